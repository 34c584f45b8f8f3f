package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/tuannm99/flatsql"
	"github.com/tuannm99/flatsql/internal"
	"github.com/tuannm99/flatsql/server/flatsqlwire"
)

func main() {
	var (
		cfgPath = flag.String("config", "", "yaml config file")
		addr    = flag.String("addr", "", "listen address (overrides server.addr)")
		dataDir = flag.String("data-dir", "", "working directory for database files (overrides storage.workdir)")
		dbName  = flag.String("db", "", "database directory inside data-dir (overrides storage.database)")
	)
	flag.Parse()

	cfg, err := internal.LoadConfig(*cfgPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *dataDir != "" {
		cfg.Storage.Workdir = *dataDir
	}
	if *dbName != "" {
		cfg.Storage.Database = *dbName
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel()}))
	slog.SetDefault(logger)

	db, err := flatsql.Open(cfg, logger)
	if err != nil {
		logger.Error("open storage", "err", err)
		os.Exit(1)
	}

	if err := flatsqlwire.Run(flatsqlwire.ServerConfig{Addr: cfg.Server.Addr, Logger: logger}, db); err != nil {
		logger.Error("server stopped", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
