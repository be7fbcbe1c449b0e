// Package config assembles the harvester settings from command line flags,
// the environment and an optional .env file.
package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/chmdznr/sftp-log-harvester/internal/errs"
	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/chmdznr/sftp-log-harvester/internal/store"
	"github.com/joho/godotenv"
)

const (
	DefaultPollInterval     = 5 * time.Minute
	DefaultCooldownInterval = time.Minute
)

// Config is built once at startup and handed to every component.
type Config struct {
	Remote    remote.Config
	RemoteDir string
	Store     store.Config

	StagingDir string
	LedgerPath string

	PollInterval     time.Duration
	CooldownInterval time.Duration
	Suffixes         []string

	ElasticsearchHost string
	LogLevel          slog.Level
}

// Validate reports the first missing or malformed setting as a
// ConfigurationError.
func (c *Config) Validate() error {
	if c.Store.AccessKey == "" || c.Store.SecretKey == "" {
		return errs.Config("S3 credentials are required: S3_ACCESS_KEY, S3_SECRET_KEY, S3_ENDPOINT")
	}
	// the s3 driver may fall back to the AWS endpoint
	if c.Store.Endpoint == "" && c.Store.Driver != store.DriverS3 {
		return errs.Config("S3_ENDPOINT is required for the %s driver", c.Store.Driver)
	}
	if c.Store.Bucket == "" {
		return errs.Config("S3_BUCKET is required")
	}
	switch c.Store.Driver {
	case store.DriverMinio, store.DriverS3:
	default:
		return errs.Config("unknown S3_DRIVER %q", c.Store.Driver)
	}

	if c.Remote.Host == "" {
		return errs.Config("FTP_HOST is required")
	}
	switch c.Remote.Protocol {
	case remote.ProtocolSFTP, remote.ProtocolFTP:
	default:
		return errs.Config("unknown FTP_PROTOCOL %q", c.Remote.Protocol)
	}
	if c.Remote.Port < 0 || c.Remote.Port > 65535 {
		return errs.Config("FTP_PORT %d out of range", c.Remote.Port)
	}
	if c.RemoteDir == "" {
		return errs.Config("FTP_REMOTE_DIR is required")
	}

	if c.StagingDir == "" {
		return errs.Config("LOCAL_LOG_DIR is required")
	}
	if c.LedgerPath == "" {
		return errs.Config("LEDGER_PATH is required")
	}
	if c.PollInterval <= 0 {
		return errs.Config("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.CooldownInterval <= 0 {
		return errs.Config("COOLDOWN_INTERVAL must be positive, got %s", c.CooldownInterval)
	}
	return nil
}

// SplitList parses a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
