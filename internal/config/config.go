package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the settings shared by every command. Each field can be set by flag or
// environment variable; flags win.
type Config struct {
	PrismicAPIURL      string        `name:"prismic-api-url" env:"PRISMIC_API_URL" help:"Prismic repository API endpoint, e.g. https://repo.cdn.prismic.io/api/v2" required:""`
	PrismicAccessToken string        `name:"prismic-access-token" env:"PRISMIC_ACCESS_TOKEN" help:"Access token for private repositories"`
	PageSize           int           `name:"page-size" env:"PAGE_SIZE" default:"4" help:"Posts per listing page"`
	RequestTimeout     time.Duration `name:"request-timeout" env:"REQUEST_TIMEOUT" default:"10s" help:"Timeout of a single CMS request"`

	OutputDir string `name:"output-dir" env:"OUTPUT_DIR" default:"./public" help:"Directory the generated site is written to"`
	SiteURL   string `name:"site-url" env:"SITE_URL" default:"http://localhost:8080" help:"Public base URL of the site"`
	SiteTitle string `name:"site-title" env:"SITE_TITLE" default:"spacetraveling" help:"Site title used in pages and the feed"`
	DBPath    string `name:"db-path" env:"SQLITE_DB_PATH" default:"./spaceblog.db" help:"SQLite database recording generated pages"`

	LogLevel  string `name:"log-level" env:"LOG_LEVEL" default:"info" enum:"trace,debug,info,warn,error" help:"Log level"`
	LogPretty bool   `name:"log-pretty" env:"LOG_PRETTY" help:"Human readable console logs"`
}

// Validate is called by kong after parsing.
func (c *Config) Validate() error {
	var errs []error

	if err := validateBaseURL("prismic-api-url", c.PrismicAPIURL); err != nil {
		errs = append(errs, err)
	}
	if err := validateBaseURL("site-url", c.SiteURL); err != nil {
		errs = append(errs, err)
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		errs = append(errs, fmt.Errorf("page-size must be between 1 and 100, got %d", c.PageSize))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request-timeout must be positive, got %s", c.RequestTimeout))
	}
	if strings.TrimSpace(c.OutputDir) == "" {
		errs = append(errs, errors.New("output-dir cannot be empty"))
	}

	return errors.Join(errs...)
}

func validateBaseURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}

// Level returns the zerolog level for LogLevel, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return level
}

// LoadDotEnv loads variables from the given .env files (".env" when none are given)
// without overriding variables already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}
