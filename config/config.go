package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PagePlaceholder is replaced by the one-based page number in BaseURL.
const PagePlaceholder = "{page}"

// Config holds dashboard configuration.
type Config struct {
	BaseURL          string
	PageCount        int
	Timeout          time.Duration
	UserAgent        string
	RespectRobotsTxt bool
	DataFile         string
	OutputFormat     string // csv, json, or dual
	ListenAddr       string
	Database         ConnectionProfile
	Verbose          bool
}

// ConnectionProfile describes the relational source.
type ConnectionProfile struct {
	Driver            string `json:"driver"`
	Server            string `json:"server"`
	Database          string `json:"database"`
	Table             string `json:"table"`
	User              string `json:"user"`
	Password          string `json:"password"`
	TrustedConnection bool   `json:"trusted_connection"`
	Encrypt           bool   `json:"encrypt"`
	// DSN, when set, is handed to the driver untouched.
	DSN string `json:"dsn"`
}

// DefaultConfig returns the settings of the demo deployment.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://books.toscrape.com/catalogue/page-" + PagePlaceholder + ".html",
		PageCount:        5,
		Timeout:          10 * time.Second,
		UserAgent:        "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		RespectRobotsTxt: false,
		DataFile:         "books_data.csv",
		OutputFormat:     "csv",
		ListenAddr:       ":8501",
		Database: ConnectionProfile{
			Driver:            "sqlserver",
			Server:            "DESKTOP-RLMEU2F",
			Database:          "BooksDB",
			Table:             "BooksTable",
			TrustedConnection: true,
			Encrypt:           false,
		},
	}
}

// PageURL expands the base URL template for a one-based page number.
func (c *Config) PageURL(page int) string {
	return strings.ReplaceAll(c.BaseURL, PagePlaceholder, strconv.Itoa(page))
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}
	if !strings.Contains(c.BaseURL, PagePlaceholder) {
		return fmt.Errorf("base URL must contain the %s placeholder", PagePlaceholder)
	}

	parsedURL, err := url.Parse(c.PageURL(1))
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.PageCount <= 0 {
		return fmt.Errorf("page count must be positive")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DataFile == "" {
		return fmt.Errorf("data file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	return nil
}

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Validate checks the profile can produce a DSN and a safe query.
func (p ConnectionProfile) Validate() error {
	switch p.Driver {
	case "sqlserver", "pgx":
		if p.DSN == "" && p.Server == "" {
			return fmt.Errorf("server cannot be empty")
		}
	case "sqlite":
		if p.DSN == "" && p.Database == "" {
			return fmt.Errorf("sqlite database path cannot be empty")
		}
	default:
		return fmt.Errorf("unsupported driver %q (want sqlserver, sqlite, or pgx)", p.Driver)
	}
	if !tableName.MatchString(p.Table) {
		return fmt.Errorf("invalid table name %q", p.Table)
	}
	return nil
}

// DataSourceName builds the driver-specific connection string.
func (p ConnectionProfile) DataSourceName() string {
	if p.DSN != "" {
		return p.DSN
	}
	switch p.Driver {
	case "sqlserver":
		parts := []string{
			"server=" + p.Server,
			"database=" + p.Database,
		}
		if p.TrustedConnection {
			parts = append(parts, "integrated security=SSPI")
		} else {
			parts = append(parts, "user id="+p.User, "password="+p.Password)
		}
		if p.Encrypt {
			parts = append(parts, "encrypt=true")
		} else {
			parts = append(parts, "encrypt=disable")
		}
		return strings.Join(parts, ";")
	case "pgx":
		u := url.URL{Scheme: "postgres", Host: p.Server, Path: "/" + p.Database}
		if p.User != "" {
			u.User = url.UserPassword(p.User, p.Password)
		}
		q := url.Values{}
		if p.Encrypt {
			q.Set("sslmode", "require")
		} else {
			q.Set("sslmode", "disable")
		}
		u.RawQuery = q.Encode()
		return u.String()
	default:
		return p.Database
	}
}

// SelectAll returns the fixed read query with the table quoted for the driver.
func (p ConnectionProfile) SelectAll() string {
	parts := strings.Split(p.Table, ".")
	for i, part := range parts {
		if p.Driver == "sqlserver" {
			parts[i] = "[" + part + "]"
		} else {
			parts[i] = `"` + part + `"`
		}
	}
	return "SELECT * FROM " + strings.Join(parts, ".")
}
