// Package config resolves the settings of the storectl command from dotenv
// files, an optional TOML file and STORE_* environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/goliatone/go-store/pkg/codec"
)

// Medium kinds understood by Open.
const (
	MediumSession = "session"
	MediumFile    = "file"
	MediumSQLite  = "sqlite"
	MediumNATS    = "nats"
)

// Config is the resolved command configuration.
type Config struct {
	Key    string `toml:"key"`
	Codec  string `toml:"codec"`
	Medium Medium `toml:"medium"`
	Log    Log    `toml:"log"`
}

// Medium selects and configures the persistence backend.
type Medium struct {
	Kind   string `toml:"kind"`
	Dir    string `toml:"dir"`
	Path   string `toml:"path"`
	URL    string `toml:"url"`
	Bucket string `toml:"bucket"`
}

// Log configures the command logger.
type Log struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Key:   "counter",
		Codec: "json",
		Medium: Medium{
			Kind:   MediumFile,
			Dir:    ".store",
			Path:   "store.db",
			URL:    "nats://127.0.0.1:4222",
			Bucket: "store-records",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// Loader resolves a Config. The zero value reads .env.local and .env from the
// working directory and no TOML file.
type Loader struct {
	// DotEnv lists candidate dotenv files. Missing files are skipped.
	DotEnv []string
	// File is an optional TOML file. Empty skips it.
	File string
	// LookupEnv reads the environment. Default: os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load returns Default overlaid with the TOML file and the environment.
func (l Loader) Load() (Config, error) {
	if err := loadDotEnv(l.dotEnvPaths()); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if l.File != "" {
		if _, err := toml.DecodeFile(l.File, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", l.File, err)
		}
	}

	lookup := l.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	applyEnv(&cfg, lookup)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load resolves the configuration with the default loader and file.
func Load(file string) (Config, error) {
	return Loader{File: file}.Load()
}

func (l Loader) dotEnvPaths() []string {
	if l.DotEnv != nil {
		return l.DotEnv
	}
	return []string{".env.local", ".env"}
}

// loadDotEnv only sets variables that are not already set.
func loadDotEnv(paths []string) error {
	seen := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"STORE_KEY":           &cfg.Key,
		"STORE_CODEC":         &cfg.Codec,
		"STORE_MEDIUM":        &cfg.Medium.Kind,
		"STORE_MEDIUM_DIR":    &cfg.Medium.Dir,
		"STORE_MEDIUM_PATH":   &cfg.Medium.Path,
		"STORE_MEDIUM_URL":    &cfg.Medium.URL,
		"STORE_MEDIUM_BUCKET": &cfg.Medium.Bucket,
		"STORE_LOG_LEVEL":     &cfg.Log.Level,
		"STORE_LOG_FORMAT":    &cfg.Log.Format,
	}
	for name, target := range overrides {
		if value, ok := lookup(name); ok && strings.TrimSpace(value) != "" {
			*target = strings.TrimSpace(value)
		}
	}
}

// Validate reports settings no command can run with.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Key) == "" {
		errs = append(errs, errors.New("config: key is required"))
	}
	if _, err := codec.ByName(c.Codec); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	switch strings.ToLower(c.Medium.Kind) {
	case MediumSession:
	case MediumFile:
		if c.Medium.Dir == "" {
			errs = append(errs, errors.New("config: medium.dir is required for the file medium"))
		}
	case MediumSQLite:
		if c.Medium.Path == "" {
			errs = append(errs, errors.New("config: medium.path is required for the sqlite medium"))
		}
	case MediumNATS:
		if c.Medium.URL == "" {
			errs = append(errs, errors.New("config: medium.url is required for the nats medium"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown medium %q", c.Medium.Kind))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}
