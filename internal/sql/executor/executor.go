package executor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tuannm99/flatsql/internal/catalog"
	"github.com/tuannm99/flatsql/internal/history"
	"github.com/tuannm99/flatsql/internal/record"
	"github.com/tuannm99/flatsql/internal/sql/parser"
	"github.com/tuannm99/flatsql/internal/txn"
)

type CommitMode uint8

const (
	// BestEffort replays buffered commands in order and keeps going past a
	// failure; commands applied before the failure stay applied.
	BestEffort CommitMode = iota
	// Atomic validates every buffered command first and applies none if any
	// of them would fail.
	Atomic
)

func (m CommitMode) String() string {
	if m == Atomic {
		return "atomic"
	}
	return "best-effort"
}

func ParseCommitMode(s string) (CommitMode, error) {
	switch s {
	case "", "best_effort", "best-effort":
		return BestEffort, nil
	case "atomic":
		return Atomic, nil
	default:
		return BestEffort, fmt.Errorf("executor: unknown commit mode %q", s)
	}
}

// tableStore is a small seam for unit-testing Executor without real files.
type tableStore interface {
	CreateTable(name string, schema record.Schema) (*catalog.TableMeta, error)
	InsertRow(name string, raw []string) error
	SelectRows(name string, requested []string) ([]string, [][]string, error)
	Schema(name string) (record.Schema, error)
	ValidateRow(schema record.Schema, raw []string) ([]string, error)
	Occupied(name string) (bool, error)
	Tables() []string
}

var _ tableStore = (*catalog.Catalog)(nil)

type Options struct {
	CommitMode CommitMode
	History    history.Recorder
	Logger     *slog.Logger
}

// Executor is the entry point: one command string in, one Result out.
// It owns its catalog and transaction buffer and is not safe for concurrent use.
type Executor struct {
	tables tableStore
	buf    *txn.Buffer
	mode   CommitMode
	hist   history.Recorder
	log    *slog.Logger
}

func NewExecutor(cat *catalog.Catalog, opts Options) *Executor {
	return newExecutor(cat, opts)
}

func newExecutor(tables tableStore, opts Options) *Executor {
	if opts.History == nil {
		opts.History = history.NopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Executor{
		tables: tables,
		buf:    txn.NewBuffer(),
		mode:   opts.CommitMode,
		hist:   opts.History,
		log:    opts.Logger,
	}
}

func (e *Executor) InTransaction() bool { return e.buf.IsOpen() }

func (e *Executor) Pending() int { return e.buf.Len() }

func (e *Executor) Tables() []string { return e.tables.Tables() }

func (e *Executor) History() history.Recorder { return e.hist }

// Reset discards an open transaction without running it, as ROLLBACK
// would. It returns how many queued commands were dropped.
func (e *Executor) Reset() int {
	if !e.buf.IsOpen() {
		return 0
	}
	return e.buf.Discard()
}

// ExecSQL is the top-level entry: command string -> Result.
// Transaction keywords are recognized first; any other command is buffered
// while a transaction is open and dispatched otherwise.
func (e *Executor) ExecSQL(sql string) (*Result, error) {
	if ctrl, ok := parser.ParseControl(sql); ok {
		switch ctrl.(type) {
		case *parser.BeginStmt:
			return e.begin(), nil
		case *parser.CommitStmt:
			return e.commit()
		case *parser.RollbackStmt:
			return e.rollback(), nil
		}
	}

	if e.buf.Append(sql) {
		return &Result{
			Kind:    Buffered,
			Message: fmt.Sprintf("Queued for transaction (%d pending).", e.buf.Len()),
		}, nil
	}

	res, wrote, err := e.dispatch(sql)
	if err != nil {
		return nil, err
	}
	if wrote {
		e.record(sql)
	}
	return res, nil
}

// dispatch parses and runs one command outside of transaction handling.
// wrote reports whether the command changed the storage directory.
func (e *Executor) dispatch(sql string) (res *Result, wrote bool, err error) {
	stmt, err := parser.Parse(sql)
	if err != nil {
		return nil, false, err
	}

	if parser.IsControl(stmt) {
		// A control keyword reaching dispatch is a plain command, and too short.
		return nil, false, parser.ErrIncomplete
	}

	switch s := stmt.(type) {
	case *parser.CreateTableStmt:
		res, err = e.execCreateTable(s)
		return res, err == nil, err
	case *parser.InsertStmt:
		res, err = e.execInsert(s)
		return res, err == nil, err
	case *parser.SelectStmt:
		res, err = e.execSelect(s)
		return res, false, err
	default:
		return nil, false, fmt.Errorf("%w: %T", parser.ErrUnsupported, stmt)
	}
}

func (e *Executor) execCreateTable(s *parser.CreateTableStmt) (*Result, error) {
	if _, err := e.tables.CreateTable(s.TableName, s.Schema); err != nil {
		return nil, err
	}
	return &Result{
		Message: fmt.Sprintf("Table and metadata for %s created successfully.", s.TableName),
	}, nil
}

func (e *Executor) execInsert(s *parser.InsertStmt) (*Result, error) {
	if err := e.tables.InsertRow(s.TableName, s.Values); err != nil {
		return nil, err
	}
	return &Result{
		Message:      fmt.Sprintf("Data inserted into table %s.", s.TableName),
		AffectedRows: 1,
	}, nil
}

func (e *Executor) execSelect(s *parser.SelectStmt) (*Result, error) {
	cols, rows, err := e.tables.SelectRows(s.TableName, s.Columns)
	if err != nil {
		return nil, err
	}
	return &Result{
		Kind:         Printed,
		Columns:      cols,
		Rows:         rows,
		AffectedRows: int64(len(rows)),
	}, nil
}

func (e *Executor) begin() *Result {
	if dropped := e.buf.Begin(); dropped > 0 {
		e.log.Warn("executor: BEGIN discarded pending commands", "count", dropped)
		return &Result{Message: fmt.Sprintf("Transaction restarted (%d pending command(s) discarded).", dropped)}
	}
	return &Result{Message: "Transaction started."}
}

func (e *Executor) rollback() *Result {
	if !e.buf.IsOpen() {
		return &Result{Message: "No transaction in progress."}
	}
	n := e.buf.Discard()
	return &Result{Message: fmt.Sprintf("Transaction rolled back (%d command(s) discarded).", n)}
}

func (e *Executor) commit() (*Result, error) {
	if !e.buf.IsOpen() {
		return &Result{Message: "No transaction in progress."}, nil
	}
	cmds := e.buf.Drain()

	if e.mode == Atomic {
		if err := e.stage(cmds); err != nil {
			e.log.Warn("executor: atomic commit aborted", "err", err)
			return nil, err
		}
	}
	return e.replay(cmds), nil
}

// replay runs every command through dispatch, in order, continuing past
// failures. Each command's outcome is reported.
func (e *Executor) replay(cmds []string) *Result {
	res := &Result{}
	written, failed := 0, 0
	for i, cmd := range cmds {
		out := StatementOutcome{Index: i + 1, SQL: cmd}
		r, wrote, err := e.dispatch(cmd)
		if err != nil {
			failed++
			out.Error = err.Error()
			out.ErrorKind = Classify(err)
			e.log.Warn("executor: commit statement failed", "index", out.Index, "sql", cmd, "err", err)
		} else {
			out.Result = r
			res.AffectedRows += r.AffectedRows
			if wrote {
				written++
			}
		}
		res.Outcomes = append(res.Outcomes, out)
	}

	if written > 0 {
		e.record(fmt.Sprintf("COMMIT (%d statement(s))", len(cmds)))
	}

	res.Message = fmt.Sprintf("Committed %d of %d command(s)", len(cmds)-failed, len(cmds))
	if failed > 0 {
		res.Message += fmt.Sprintf("; %d failed (%s commit: earlier commands stay applied)", failed, e.mode)
	}
	res.Message += "."
	e.log.Info("executor: commit", "mode", e.mode.String(), "total", len(cmds), "failed", failed)
	return res
}

// stage checks every buffered command against the catalog plus the tables
// created earlier in the same batch, without writing anything.
func (e *Executor) stage(cmds []string) error {
	staged := make(map[string]record.Schema)

	schemaOf := func(name string) (record.Schema, error) {
		if s, ok := staged[name]; ok {
			return s, nil
		}
		return e.tables.Schema(name)
	}

	for i, cmd := range cmds {
		fail := func(err error) error { return &CommitError{Index: i + 1, SQL: cmd, Err: err} }

		stmt, err := parser.Parse(cmd)
		if err != nil {
			return fail(err)
		}
		switch s := stmt.(type) {
		case *parser.CreateTableStmt:
			if _, ok := staged[s.TableName]; ok {
				return fail(fmt.Errorf("%w: %s", catalog.ErrTableExists, s.TableName))
			}
			occupied, err := e.tables.Occupied(s.TableName)
			if err != nil {
				return fail(err)
			}
			if occupied {
				return fail(fmt.Errorf("%w: %s", catalog.ErrTableExists, s.TableName))
			}
			staged[s.TableName] = s.Schema
		case *parser.InsertStmt:
			schema, err := schemaOf(s.TableName)
			if err != nil {
				return fail(err)
			}
			if _, err := e.tables.ValidateRow(schema, s.Values); err != nil {
				return fail(err)
			}
		case *parser.SelectStmt:
			if _, ok := staged[s.TableName]; ok {
				continue
			}
			if _, err := e.tables.Schema(s.TableName); err != nil {
				return fail(err)
			}
		default:
			return fail(parser.ErrIncomplete)
		}
	}
	return nil
}

func (e *Executor) record(msg string) {
	id, err := e.hist.Record(msg)
	if err != nil {
		if !errors.Is(err, history.ErrNoChanges) {
			e.log.Warn("executor: history record failed", "err", err)
		}
		return
	}
	if id != "" {
		e.log.Debug("executor: history recorded", "commit", id)
	}
}
