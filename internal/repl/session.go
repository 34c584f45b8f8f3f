package repl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tuannm99/flatsql/internal/history"
	"github.com/tuannm99/flatsql/internal/sql/executor"
	"github.com/tuannm99/flatsql/internal/sql/parser"
)

const (
	PromptIdle = "flatsql> "
	PromptTxn  = "flatsql*> "
)

const helpText = `meta commands:
  \q | quit | exit | X   quit
  \history [n]           print command history
  \log [n]               print recorded storage changes
  \tables                list tables
  \help                  show help

commands (one per line, trailing ';' optional):
  CREATE TABLE <name> (<col> int|varchar(n), ...)
  INSERT INTO <name> VALUES (<v1>, <v2>, ...)
  SELECT * | <col>,<col> FROM <name>
  BEGIN TRANSACTION | COMMIT | ROLLBACK`

// Execer runs one command string, locally or over the wire.
type Execer interface {
	ExecSQL(sql string) (*executor.Result, error)
}

type Options struct {
	Out     io.Writer
	History *History
	// Recorder backs \log. Nil when the storage directory keeps no history.
	Recorder history.Recorder
	// Tables backs \tables. Nil when not available (remote sessions).
	Tables func() []string
}

// Session feeds input lines to an Execer and prints what comes back.
type Session struct {
	db     Execer
	out    io.Writer
	hist   *History
	rec    history.Recorder
	tables func() []string
	style  Styles
	inTxn  bool
}

func NewSession(db Execer, opts Options) *Session {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.History == nil {
		opts.History = NewHistory(nil, "")
	}
	return &Session{
		db:     db,
		out:    opts.Out,
		hist:   opts.History,
		rec:    opts.Recorder,
		tables: opts.Tables,
		style:  NewStyles(opts.Out),
	}
}

func (s *Session) Prompt() string {
	if s.inTxn {
		return PromptTxn
	}
	return PromptIdle
}

func (s *Session) History() *History { return s.hist }

// Handle processes one input line. It returns false once the user asked
// to quit.
func (s *Session) Handle(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if isQuit(line) {
		return false
	}
	if strings.HasPrefix(line, `\`) {
		s.meta(line)
		return true
	}

	_ = s.hist.Append(line)
	s.exec(line)
	return true
}

func (s *Session) exec(line string) {
	res, err := s.db.ExecSQL(line)

	// COMMIT clears the buffer even when an atomic commit fails.
	if ctrl, ok := parser.ParseControl(line); ok {
		_, begin := ctrl.(*parser.BeginStmt)
		s.inTxn = begin
	}

	if err != nil {
		s.style.RenderError(s.out, err)
		return
	}
	s.style.Render(s.out, res)
}

func isQuit(line string) bool {
	switch strings.ToLower(line) {
	case `\q`, "quit", "exit", "x":
		return true
	}
	return false
}

func (s *Session) meta(line string) {
	fields := strings.Fields(line)
	arg := 0
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil || n < 0 {
			s.style.RenderError(s.out, fmt.Errorf("bad count %q", fields[1]))
			return
		}
		arg = n
	}

	switch fields[0] {
	case `\help`, `\?`:
		_, _ = fmt.Fprintln(s.out, helpText)
	case `\history`:
		if arg == 0 {
			arg = 50
		}
		s.hist.Print(s.out, arg)
	case `\log`:
		s.printLog(arg)
	case `\tables`:
		s.printTables()
	default:
		_, _ = fmt.Fprintf(s.out, "unknown command: %s\n", fields[0])
	}
}

func (s *Session) printLog(limit int) {
	if s.rec == nil {
		_, _ = fmt.Fprintln(s.out, s.style.Faint.Render("history is not recorded for this storage directory"))
		return
	}
	if limit == 0 {
		limit = 20
	}
	entries, err := s.rec.Log(limit)
	if err != nil {
		s.style.RenderError(s.out, err)
		return
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(s.out, s.style.Faint.Render("no recorded changes"))
		return
	}
	for _, e := range entries {
		id := e.ID
		if len(id) > 8 {
			id = id[:8]
		}
		_, _ = fmt.Fprintf(s.out, "%s %s %s\n",
			s.style.Info.Render(id),
			e.When.Format("2006-01-02 15:04:05"),
			strings.TrimSpace(e.Message))
	}
}

func (s *Session) printTables() {
	if s.tables == nil {
		_, _ = fmt.Fprintln(s.out, s.style.Faint.Render("table listing is not available"))
		return
	}
	names := s.tables()
	if len(names) == 0 {
		_, _ = fmt.Fprintln(s.out, s.style.Faint.Render("no tables"))
		return
	}
	for _, n := range names {
		_, _ = fmt.Fprintln(s.out, n)
	}
}
