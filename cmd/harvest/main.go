package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/chmdznr/sftp-log-harvester/internal/config"
	"github.com/chmdznr/sftp-log-harvester/pkg/version"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v2"
)

func main() {
	// flags read the environment while parsing, before any Before hook runs
	envFile := envFilePath(os.Args[1:])
	if err := config.LoadDotEnv(envFile); err != nil {
		log.Fatalf("failed to load %s: %v", envFile, err)
	}

	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	app := &cli.App{
		Name:                 "harvest",
		Usage:                "Harvest log files from an SFTP/FTP server into S3-compatible storage",
		Version:              version.Version,
		EnableBashCompletion: true,
		Flags: append(config.Flags(), &cli.StringFlag{
			Name:    "env-file",
			Usage:   "Optional .env file loaded before the other flags are read",
			Value:   ".env",
			EnvVars: []string{"HARVEST_ENV_FILE"},
		}),
		Before: func(c *cli.Context) error {
			slog.SetDefault(newLogger(os.Stderr, config.ParseLevel(c.String("log-level"))))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Println(version.Detailed())
					return nil
				},
			},
			{
				Name:  "run",
				Usage: "Poll the remote server until interrupted",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "interactive",
						Usage: "Read keys from the terminal: r polls now, q quits",
					},
				},
				Action: runHarvest,
			},
			{
				Name:  "once",
				Usage: "Run a single pass and print its summary",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "progress",
						Usage: "Show a progress bar for every download",
					},
				},
				Action: runOnce,
			},
			{
				Name:   "status",
				Usage:  "Show ledger totals",
				Action: showStatus,
			},
			{
				Name:   "pending",
				Usage:  "List files whose upload failed",
				Action: listPending,
			},
			{
				Name:  "export",
				Usage: "Export the ledger to an Excel workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Usage:    "Output .xlsx path",
						Required: true,
					},
				},
				Action: exportLedger,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// newLogger writes colored records when w is a terminal.
func newLogger(w *os.File, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.DateTime,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}))
}

// envFilePath returns the --env-file argument, then HARVEST_ENV_FILE, then
// ".env". It scans args by hand since the file must be loaded before the cli
// parses anything.
func envFilePath(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if !strings.HasPrefix(arg, "-") || name != "env-file" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	if path := os.Getenv("HARVEST_ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}
