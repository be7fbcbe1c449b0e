package config

import (
	"time"

	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/chmdznr/sftp-log-harvester/internal/store"
	"github.com/urfave/cli/v2"
)

// Flags returns the settings flags, each bound to its environment variable.
func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "ftp-protocol", Usage: "Remote protocol (sftp, ftp)", Value: remote.ProtocolSFTP, EnvVars: []string{"FTP_PROTOCOL"}},
		&cli.StringFlag{Name: "ftp-host", Usage: "Remote host", Value: "localhost", EnvVars: []string{"FTP_HOST"}},
		&cli.IntFlag{Name: "ftp-port", Usage: "Remote port (0 uses the protocol default)", EnvVars: []string{"FTP_PORT"}},
		&cli.StringFlag{Name: "ftp-username", Usage: "Remote user", Value: "anonymous", EnvVars: []string{"FTP_USERNAME"}},
		&cli.StringFlag{Name: "ftp-password", Usage: "Remote password", EnvVars: []string{"FTP_PASSWORD"}},
		&cli.StringFlag{Name: "ftp-remote-dir", Usage: "Remote root directory to harvest", Value: "/logs", EnvVars: []string{"FTP_REMOTE_DIR"}},
		&cli.StringFlag{Name: "ftp-known-hosts", Usage: "known_hosts file for SFTP host key checks (empty disables them)", EnvVars: []string{"FTP_KNOWN_HOSTS"}},
		&cli.DurationFlag{Name: "ftp-timeout", Usage: "Remote connect timeout", Value: 30 * time.Second, EnvVars: []string{"FTP_TIMEOUT"}},

		&cli.StringFlag{Name: "s3-driver", Usage: "Object store client (minio, s3)", Value: store.DriverMinio, EnvVars: []string{"S3_DRIVER"}},
		&cli.StringFlag{Name: "s3-endpoint", Usage: "Object store endpoint URL", EnvVars: []string{"S3_ENDPOINT"}},
		&cli.StringFlag{Name: "s3-access-key", Usage: "Object store access key", EnvVars: []string{"S3_ACCESS_KEY"}},
		&cli.StringFlag{Name: "s3-secret-key", Usage: "Object store secret key", EnvVars: []string{"S3_SECRET_KEY"}},
		&cli.StringFlag{Name: "s3-bucket", Usage: "Destination bucket", Value: "logs-bucket", EnvVars: []string{"S3_BUCKET"}},
		&cli.StringFlag{Name: "s3-region", Usage: "Object store region", Value: "auto", EnvVars: []string{"S3_REGION"}},
		&cli.StringFlag{Name: "s3-prefix", Usage: "Destination folder inside the bucket", EnvVars: []string{"S3_PREFIX"}},

		&cli.StringFlag{Name: "local-log-dir", Usage: "Local staging directory", Value: "./logs", EnvVars: []string{"LOCAL_LOG_DIR"}},
		&cli.StringFlag{Name: "ledger", Usage: "Ledger database path", Value: "database.sqlite", EnvVars: []string{"LEDGER_PATH"}},
		&cli.DurationFlag{Name: "poll-interval", Usage: "Wait between successful passes", Value: DefaultPollInterval, EnvVars: []string{"POLL_INTERVAL"}},
		&cli.DurationFlag{Name: "cooldown-interval", Usage: "Wait after a failed pass", Value: DefaultCooldownInterval, EnvVars: []string{"COOLDOWN_INTERVAL"}},
		&cli.StringFlag{Name: "suffixes", Usage: "Comma separated log file suffixes", Value: ".log", EnvVars: []string{"LOG_SUFFIXES"}},

		&cli.StringFlag{Name: "elasticsearch-host", Usage: "Elasticsearch URL for the ingest pipeline (empty disables)", Value: "http://elasticsearch:9200", EnvVars: []string{"ELASTICSEARCH_HOST"}},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error", Value: "info", EnvVars: []string{"LOG_LEVEL"}},
	}
}

// FromContext builds a Config from the parsed flags. It does not validate.
func FromContext(c *cli.Context) *Config {
	return &Config{
		Remote: remote.Config{
			Protocol:   c.String("ftp-protocol"),
			Host:       c.String("ftp-host"),
			Port:       c.Int("ftp-port"),
			Username:   c.String("ftp-username"),
			Password:   c.String("ftp-password"),
			KnownHosts: c.String("ftp-known-hosts"),
			Timeout:    c.Duration("ftp-timeout"),
		},
		RemoteDir: c.String("ftp-remote-dir"),
		Store: store.Config{
			Driver:    c.String("s3-driver"),
			Endpoint:  c.String("s3-endpoint"),
			AccessKey: c.String("s3-access-key"),
			SecretKey: c.String("s3-secret-key"),
			Bucket:    c.String("s3-bucket"),
			Region:    c.String("s3-region"),
			Prefix:    c.String("s3-prefix"),
		},
		StagingDir:        c.String("local-log-dir"),
		LedgerPath:        c.String("ledger"),
		PollInterval:      c.Duration("poll-interval"),
		CooldownInterval:  c.Duration("cooldown-interval"),
		Suffixes:          SplitList(c.String("suffixes")),
		ElasticsearchHost: c.String("elasticsearch-host"),
		LogLevel:          ParseLevel(c.String("log-level")),
	}
}
