package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// File is the on-disk configuration schema. Zero values leave the defaults
// in place.
type File struct {
	BaseURL      string            `json:"base_url"`
	PageCount    int               `json:"page_count"`
	Timeout      string            `json:"timeout"`
	UserAgent    string            `json:"user_agent"`
	DataFile     string            `json:"data_file"`
	OutputFormat string            `json:"output_format"`
	ListenAddr   string            `json:"listen_addr"`
	Database     ConnectionProfile `json:"database"`
}

// ReadFile parses name and merges a "<name>.local.<ext>" sibling over it when
// one exists.
func ReadFile(name string) (File, error) {
	var out File

	data, err := os.ReadFile(name)
	if err != nil {
		return out, err
	}
	if err := json5.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("parse %s: %w", name, err)
	}

	ext := filepath.Ext(name)
	local := strings.TrimSuffix(name, ext) + ".local" + ext
	localData, err := os.ReadFile(local)
	if err != nil && !os.IsNotExist(err) {
		return out, err
	}
	if len(localData) > 0 {
		var override File
		if err := json5.Unmarshal(localData, &override); err != nil {
			return out, fmt.Errorf("parse %s: %w", local, err)
		}
		if err := mergo.Merge(&out, override, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", local, err)
		}
		slog.Info("merging config with local overrides", slog.String("local", local))
	}

	return out, nil
}

// Apply merges non-zero file values over cfg.
func (f File) Apply(cfg *Config) error {
	override := Config{
		BaseURL:      f.BaseURL,
		PageCount:    f.PageCount,
		UserAgent:    f.UserAgent,
		DataFile:     f.DataFile,
		OutputFormat: strings.ToLower(f.OutputFormat),
		ListenAddr:   f.ListenAddr,
		Database:     f.Database,
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		override.Timeout = d
	}
	return mergo.Merge(cfg, override, mergo.WithOverride)
}

// Load builds a configuration from defaults, an optional file and the
// environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := f.Apply(cfg); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from BOOKS_* environment variables.
func ApplyEnv(cfg *Config) error {
	if value, ok, err := EnvInt("BOOKS_PAGES"); err != nil {
		return fmt.Errorf("invalid BOOKS_PAGES: %w", err)
	} else if ok {
		cfg.PageCount = value
	}
	if value, ok := EnvString("BOOKS_BASE_URL"); ok {
		cfg.BaseURL = value
	}
	if value, ok := EnvString("BOOKS_DATA_FILE"); ok {
		cfg.DataFile = value
	}
	if value, ok := EnvString("BOOKS_LISTEN_ADDR"); ok {
		cfg.ListenAddr = value
	}
	if value, ok := EnvString("BOOKS_DB_DRIVER"); ok {
		cfg.Database.Driver = value
	}
	if value, ok := EnvString("BOOKS_DB_SERVER"); ok {
		cfg.Database.Server = value
	}
	if value, ok := EnvString("BOOKS_DB_NAME"); ok {
		cfg.Database.Database = value
	}
	return nil
}

// EnvString returns a trimmed, non-empty environment value.
func EnvString(key string) (string, bool) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses an integer environment value.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}
