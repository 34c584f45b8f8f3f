package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/go-git/go-billy/v6/osfs"

	"github.com/tuannm99/flatsql"
	"github.com/tuannm99/flatsql/internal"
	"github.com/tuannm99/flatsql/internal/repl"
	"github.com/tuannm99/flatsql/sqlclient"
)

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".flatsql_history"
	}
	return filepath.Join(home, ".flatsql_history")
}

func main() {
	var (
		cfgPath    = flag.String("config", "", "yaml config file")
		dataDir    = flag.String("data-dir", "", "working directory for database files (overrides storage.workdir)")
		dbName     = flag.String("db", "", "database directory inside data-dir (overrides storage.database)")
		addr       = flag.String("addr", "", "connect to a flatsql server instead of opening storage locally")
		timeout    = flag.Duration("timeout", 3*time.Second, "dial timeout")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
		oneShotSQL = flag.String("c", "", "execute one command and exit")
	)
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Storage.Workdir = *dataDir
	}
	if *dbName != "" {
		cfg.Storage.Database = *dbName
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	if cfg.Server.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	slog.SetDefault(logger)

	opts := repl.Options{Out: os.Stdout}
	var db repl.Execer
	var where string

	if *addr != "" {
		cli, err := sqlclient.Dial(*addr, *timeout)
		if err != nil {
			fmt.Fprintf(os.Stderr, "dial: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = cli.Close() }()
		db, where = cli, *addr
	} else {
		local, err := flatsql.Open(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open: %v\n", err)
			os.Exit(1)
		}
		db, where = local, local.Dir()
		opts.Tables = local.Tables
		if cfg.Storage.History {
			opts.Recorder = local.History()
		}
	}

	if strings.TrimSpace(*oneShotSQL) != "" {
		s := repl.NewSession(db, opts)
		s.Handle(*oneShotSQL)
		return
	}

	hist := repl.NewHistory(osfs.New(filepath.Dir(*histPath)), filepath.Base(*histPath))
	_ = hist.Load(*histMax)
	opts.History = hist
	session := repl.NewSession(db, opts)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          session.Prompt(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	for _, line := range hist.Lines() {
		_ = rl.SaveHistory(line)
	}

	fmt.Printf("flatsql on %s\n", where)
	fmt.Println(`type \help for help, X to exit`)

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}
		if !session.Handle(line) {
			return
		}
		rl.SetPrompt(session.Prompt())
	}
}
