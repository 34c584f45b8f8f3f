package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	StorageModeDisk   = "disk"
	StorageModeMemory = "memory"

	RowFormatPlain   = "plain"
	RowFormatEscaped = "escaped"

	CommitBestEffort = "best_effort"
	CommitAtomic     = "atomic"
)

type FlatSqlConfig struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Mode      string `mapstructure:"mode"`
		Workdir   string `mapstructure:"workdir"`
		Database  string `mapstructure:"database"`
		RowFormat string `mapstructure:"row_format"`
		History   bool   `mapstructure:"history"`
	} `mapstructure:"storage"`

	Txn struct {
		CommitMode string `mapstructure:"commit_mode"`
	} `mapstructure:"txn"`

	Server struct {
		Addr  string `mapstructure:"addr"`
		Debug bool   `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// StorageDir is the directory handed to the executor: <workdir>/<database>.
func (c *FlatSqlConfig) StorageDir() string {
	return filepath.Join(c.Storage.Workdir, c.Storage.Database)
}

func (c *FlatSqlConfig) LogLevel() slog.Level {
	if c.Server.Debug {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "flatsql")
	v.SetDefault("storage.mode", StorageModeDisk)
	v.SetDefault("storage.workdir", "./data")
	v.SetDefault("storage.database", "default")
	v.SetDefault("storage.row_format", RowFormatPlain)
	v.SetDefault("storage.history", false)
	v.SetDefault("txn.commit_mode", CommitBestEffort)
	v.SetDefault("server.addr", "127.0.0.1:8867")
	v.SetDefault("server.debug", false)
}

// LoadConfig reads a yaml config file. An empty path yields the defaults,
// still subject to FLATSQL_* environment overrides.
func LoadConfig(path string) (*FlatSqlConfig, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("FLATSQL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg FlatSqlConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *FlatSqlConfig) validate() error {
	switch c.Storage.Mode {
	case StorageModeDisk, StorageModeMemory:
	default:
		return fmt.Errorf("storage.mode %q (want %s|%s)", c.Storage.Mode, StorageModeDisk, StorageModeMemory)
	}
	switch c.Storage.RowFormat {
	case RowFormatPlain, RowFormatEscaped:
	default:
		return fmt.Errorf("storage.row_format %q (want %s|%s)", c.Storage.RowFormat, RowFormatPlain, RowFormatEscaped)
	}
	switch c.Txn.CommitMode {
	case CommitBestEffort, CommitAtomic:
	default:
		return fmt.Errorf("txn.commit_mode %q (want %s|%s)", c.Txn.CommitMode, CommitBestEffort, CommitAtomic)
	}
	if strings.TrimSpace(c.Storage.Database) == "" {
		return fmt.Errorf("storage.database is empty")
	}
	return nil
}
