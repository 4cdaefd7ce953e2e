package machine

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	yaml "go.yaml.in/yaml/v2"

	"github.com/vgarousi/Fault-tolerance-for-MBT/graph/emit"
	"github.com/vgarousi/Fault-tolerance-for-MBT/graph/store"
)

// Config is the file form of a session's settings.
//
//	strategy: blacklist
//	max_steps: 5000
//	store:
//	  driver: sqlite
//	  dsn: ./sessions.db
//	log:
//	  format: json
//	  level: debug
//	  events: true
type Config struct {
	Strategy  string      `yaml:"strategy"`
	MaxSteps  int         `yaml:"max_steps"`
	SessionID string      `yaml:"session_id"`
	Store     StoreConfig `yaml:"store"`
	Log       LogConfig   `yaml:"log"`
}

// StoreConfig selects where snapshots are persisted. Driver is "" (none),
// "memory", "sqlite" or "mysql".
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LogConfig controls diagnostic logging. Format is "text" or "json"; Level
// is a slog level name. Events additionally writes every session event as
// a log line.
type LogConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
	Events bool   `yaml:"events"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses and validates YAML config. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := StrategyByName(c.Strategy); err != nil {
		return err
	}
	if c.MaxSteps < 0 {
		return &SessionError{Message: "max_steps cannot be negative", Code: "INVALID_CONFIG"}
	}
	switch strings.ToLower(c.Store.Driver) {
	case "", "memory":
	case "sqlite", "mysql":
		if c.Store.DSN == "" {
			return &SessionError{Message: "store." + c.Store.Driver + " needs a dsn", Code: "INVALID_CONFIG"}
		}
	default:
		return &SessionError{Message: fmt.Sprintf("unknown store driver %q", c.Store.Driver), Code: "INVALID_CONFIG"}
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return &SessionError{Message: fmt.Sprintf("unknown log format %q", c.Log.Format), Code: "INVALID_CONFIG"}
	}
	if _, err := c.level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, &SessionError{Message: fmt.Sprintf("unknown log level %q", c.Log.Level), Code: "INVALID_CONFIG", Err: err}
	}
	return level, nil
}

// Logger builds the configured slog logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// OpenStore opens the configured snapshot store. It returns a nil store and
// a no-op close when no driver is configured.
func (c *Config) OpenStore() (store.Store[Snapshot], func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(c.Store.Driver) {
	case "":
		return nil, noop, nil
	case "memory":
		return store.NewMemStore[Snapshot](), noop, nil
	case "sqlite":
		st, err := store.NewSQLiteStore[Snapshot](c.Store.DSN)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	case "mysql":
		st, err := store.NewMySQLStore[Snapshot](c.Store.DSN)
		if err != nil {
			return nil, noop, err
		}
		return st, st.Close, nil
	default:
		return nil, noop, &SessionError{Message: fmt.Sprintf("unknown store driver %q", c.Store.Driver), Code: "INVALID_CONFIG"}
	}
}

// Options turns the config into machine options. Logs and, when enabled,
// events are written to w. The store is not opened here; see OpenStore.
func (c *Config) Options(w io.Writer) ([]Option, error) {
	strategy, err := StrategyByName(c.Strategy)
	if err != nil {
		return nil, err
	}
	opts := []Option{
		WithStrategy(strategy),
		WithMaxSteps(c.MaxSteps),
		WithLogger(c.Logger(w)),
	}
	if c.SessionID != "" {
		opts = append(opts, WithSessionID(c.SessionID))
	}
	if e := c.Emitter(w); e != nil {
		opts = append(opts, WithEmitter(e))
	}
	return opts, nil
}

// Emitter returns the event log writing to w in the configured format, or
// nil when events are not logged.
func (c *Config) Emitter(w io.Writer) emit.Emitter {
	if !c.Log.Events {
		return nil
	}
	return emit.NewLogEmitter(w, strings.EqualFold(c.Log.Format, "json"))
}
