package flatsql

import (
	"fmt"
	"log/slog"

	"github.com/tuannm99/flatsql/internal"
	"github.com/tuannm99/flatsql/internal/catalog"
	"github.com/tuannm99/flatsql/internal/history"
	"github.com/tuannm99/flatsql/internal/record"
	"github.com/tuannm99/flatsql/internal/sql/executor"
	"github.com/tuannm99/flatsql/internal/storage"
)

// DB is one storage directory opened for a single executor.
type DB struct {
	dir   string
	store *storage.Store
	cat   *catalog.Catalog
	exec  *executor.Executor
	log   *slog.Logger
}

// Open builds storage, catalog, history and executor from cfg.
func Open(cfg *internal.FlatSqlConfig, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dir := cfg.StorageDir()
	store, err := storage.Open(storage.Mode(cfg.Storage.Mode), dir)
	if err != nil {
		return nil, err
	}

	codec, err := record.CodecFor(cfg.Storage.RowFormat)
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Open(store, codec, logger)
	if err != nil {
		return nil, fmt.Errorf("flatsql: open catalog: %w", err)
	}

	mode, err := executor.ParseCommitMode(cfg.Txn.CommitMode)
	if err != nil {
		return nil, err
	}

	var rec history.Recorder = history.NopRecorder{}
	if cfg.Storage.History && cfg.Storage.Mode == internal.StorageModeDisk {
		g, err := history.OpenGit(dir, logger)
		if err != nil {
			return nil, fmt.Errorf("flatsql: open history: %w", err)
		}
		rec = g
	}

	logger.Info("flatsql: storage opened",
		"dir", dir,
		"mode", cfg.Storage.Mode,
		"row_format", codec.Name(),
		"commit_mode", mode.String(),
		"tables", len(cat.Tables()),
	)

	return &DB{
		dir:   dir,
		store: store,
		cat:   cat,
		exec:  executor.NewExecutor(cat, executor.Options{CommitMode: mode, History: rec, Logger: logger}),
		log:   logger,
	}, nil
}

func (db *DB) ExecSQL(sql string) (*executor.Result, error) { return db.exec.ExecSQL(sql) }

// Reset drops an open transaction of the current session.
func (db *DB) Reset() int { return db.exec.Reset() }

func (db *DB) Tables() []string { return db.cat.Tables() }

func (db *DB) History() history.Recorder { return db.exec.History() }

func (db *DB) Dir() string { return db.dir }
