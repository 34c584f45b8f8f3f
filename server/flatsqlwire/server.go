package flatsqlwire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/tuannm99/flatsql/internal/sql/executor"
)

// Execer runs one command string. *flatsql.DB and *executor.Executor both
// satisfy it. Reset drops whatever transaction the session left open.
type Execer interface {
	ExecSQL(sql string) (*executor.Result, error)
	Reset() int
}

const rejectTimeout = 2 * time.Second

type ServerConfig struct {
	Addr   string
	Logger *slog.Logger
}

// Server serves one Execer over TCP. A storage directory admits a single
// executor, so only one connection is served at a time; the others get a
// busy error frame and are closed.
type Server struct {
	db     Execer
	log    *slog.Logger
	active atomic.Bool
	wg     sync.WaitGroup
}

func NewServer(db Execer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{db: db, log: logger}
}

// Run listens on sc.Addr until SIGINT or SIGTERM.
func Run(sc ServerConfig, db Execer) error {
	ln, err := net.Listen("tcp", sc.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := NewServer(db, sc.Logger)
	s.log.Info("flatsql tcp server listening", "addr", ln.Addr().String())
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done. It closes ln and
// waits for the active session before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer s.wg.Wait()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", "err", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, conn)
		}()
	}
}

// ServeConn runs one session on conn and closes it.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	if !s.active.CompareAndSwap(false, true) {
		s.reject(conn)
		return
	}
	defer s.active.Store(false)

	s.log.Info("session started", "remote", remoteAddr(conn))
	defer s.endSession(conn)

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var req ExecuteRequest
		if err := ReadFrame(conn, &req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.log.Debug("read frame", "err", err)
			}
			return
		}

		resp := s.exec(req)
		if err := WriteFrame(conn, resp); err != nil {
			s.log.Debug("write frame", "err", err)
			return
		}
	}
}

// endSession rolls back a transaction the client did not finish, so the
// next session starts Idle.
func (s *Server) endSession(conn net.Conn) {
	if n := s.db.Reset(); n > 0 {
		s.log.Warn("session ended inside a transaction, discarded pending commands",
			"remote", remoteAddr(conn), "count", n)
	}
	s.log.Info("session ended", "remote", remoteAddr(conn))
}

// reject answers the first request of a refused connection with a busy
// error. The request is read first so the peer never sees a reset before
// the answer.
func (s *Server) reject(conn net.Conn) {
	s.log.Info("session rejected", "remote", remoteAddr(conn))
	_ = conn.SetDeadline(time.Now().Add(rejectTimeout))

	var req ExecuteRequest
	_ = ReadFrame(conn, &req)
	_ = WriteFrame(conn, ExecuteResponse{ID: req.ID, Error: busyMessage, ErrorKind: ErrorKindBusy})
}

func (s *Server) exec(req ExecuteRequest) ExecuteResponse {
	res, err := s.db.ExecSQL(req.SQL)
	if err != nil {
		s.log.Debug("exec failed", "id", req.ID, "err", err)
		return errorResponse(req.ID, err)
	}
	return ExecuteResponse{ID: req.ID, Result: res}
}

func remoteAddr(conn net.Conn) string {
	if a := conn.RemoteAddr(); a != nil {
		return a.String()
	}
	return ""
}
