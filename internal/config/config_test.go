package config

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chmdznr/sftp-log-harvester/internal/errs"
	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/chmdznr/sftp-log-harvester/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func validConfig() *Config {
	return &Config{
		Remote: remote.Config{
			Protocol: remote.ProtocolSFTP,
			Host:     "files.example.com",
		},
		RemoteDir: "/logs",
		Store: store.Config{
			Driver:    store.DriverMinio,
			Endpoint:  "https://s3.example.com",
			AccessKey: "access",
			SecretKey: "secret",
			Bucket:    "logs-bucket",
		},
		StagingDir:       "./logs",
		LedgerPath:       "database.sqlite",
		PollInterval:     DefaultPollInterval,
		CooldownInterval: DefaultCooldownInterval,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing access key", mutate: func(c *Config) { c.Store.AccessKey = "" }, wantErr: true},
		{name: "missing secret key", mutate: func(c *Config) { c.Store.SecretKey = "" }, wantErr: true},
		{name: "missing endpoint for minio", mutate: func(c *Config) { c.Store.Endpoint = "" }, wantErr: true},
		{name: "s3 driver without endpoint", mutate: func(c *Config) { c.Store.Driver = store.DriverS3; c.Store.Endpoint = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "gcs" }, wantErr: true},
		{name: "missing bucket", mutate: func(c *Config) { c.Store.Bucket = "" }, wantErr: true},
		{name: "missing host", mutate: func(c *Config) { c.Remote.Host = "" }, wantErr: true},
		{name: "unknown protocol", mutate: func(c *Config) { c.Remote.Protocol = "scp" }, wantErr: true},
		{name: "bad port", mutate: func(c *Config) { c.Remote.Port = 70000 }, wantErr: true},
		{name: "zero poll interval", mutate: func(c *Config) { c.PollInterval = 0 }, wantErr: true},
		{name: "negative cooldown", mutate: func(c *Config) { c.CooldownInterval = -time.Second }, wantErr: true},
		{name: "missing staging dir", mutate: func(c *Config) { c.StagingDir = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errs.CodeInvalidConfig, errs.CodeOf(err))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{".log", ".txt"}, SplitList(" .log, ,.txt ,"))
	assert.Nil(t, SplitList(""))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("HARVEST_TEST_A=from-file\nHARVEST_TEST_B=from-file\n"), 0o644))

	t.Setenv("HARVEST_TEST_A", "from-env")
	t.Cleanup(func() { os.Unsetenv("HARVEST_TEST_B") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("HARVEST_TEST_A"))
	assert.Equal(t, "from-file", os.Getenv("HARVEST_TEST_B"))

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestFromContextReadsEnvironment(t *testing.T) {
	t.Setenv("FTP_HOST", "sftp.internal")
	t.Setenv("FTP_PROTOCOL", "ftp")
	t.Setenv("S3_BUCKET", "archive")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("LOG_SUFFIXES", ".log,.out")

	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range Flags() {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(nil))

	cfg := FromContext(cli.NewContext(cli.NewApp(), set, nil))

	assert.Equal(t, "sftp.internal", cfg.Remote.Host)
	assert.Equal(t, remote.ProtocolFTP, cfg.Remote.Protocol)
	assert.Equal(t, "archive", cfg.Store.Bucket)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, DefaultCooldownInterval, cfg.CooldownInterval)
	assert.Equal(t, []string{".log", ".out"}, cfg.Suffixes)
	assert.Equal(t, "/logs", cfg.RemoteDir)
	assert.Equal(t, "anonymous", cfg.Remote.Username)
}
