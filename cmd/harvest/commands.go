package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chmdznr/sftp-log-harvester/internal/config"
	"github.com/chmdznr/sftp-log-harvester/internal/db"
	"github.com/chmdznr/sftp-log-harvester/internal/ingest"
	"github.com/chmdznr/sftp-log-harvester/internal/ledger"
	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/chmdznr/sftp-log-harvester/internal/store"
	"github.com/chmdznr/sftp-log-harvester/internal/sync"
	"github.com/chmdznr/sftp-log-harvester/pkg/utils"
	"github.com/urfave/cli/v2"
)

// loadConfig builds and validates the settings. Nothing is started when
// validation fails.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.FromContext(c)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSyncer wires the ledger, remote and object store. The returned ledger
// must be closed by the caller.
func newSyncer(ctx context.Context, cfg *config.Config, progress bool) (*sync.Syncer, *ledger.Ledger, error) {
	dialer, err := remote.NewDialer(cfg.Remote)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create remote dialer: %w", err)
	}

	objects, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create object store: %w", err)
	}

	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	syncerConfig := sync.SyncerConfig{
		RemoteDir:        cfg.RemoteDir,
		StagingDir:       cfg.StagingDir,
		Prefix:           cfg.Store.Prefix,
		Suffixes:         cfg.Suffixes,
		PollInterval:     cfg.PollInterval,
		CooldownInterval: cfg.CooldownInterval,
		Progress:         progress,
	}
	return sync.NewSyncer(l, dialer, objects, &syncerConfig, slog.Default()), l, nil
}

func runHarvest(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer, l, err := newSyncer(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer l.Close()

	if cfg.ElasticsearchHost != "" {
		ingest.NewRegistrar(cfg.ElasticsearchHost, slog.Default()).RegisterAsync(ctx)
	}

	if c.Bool("interactive") {
		wake := make(chan struct{}, 1)
		restore, err := watchKeys(ctx, stop, wake)
		if err != nil {
			return fmt.Errorf("failed to read keyboard: %w", err)
		}
		defer restore()
		syncer.SetWake(wake)
		fmt.Println("Press r to poll now, q to quit")
	}

	err = syncer.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("harvester stopped")
		return nil
	}
	return err
}

func runOnce(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncer, l, err := newSyncer(ctx, cfg, c.Bool("progress"))
	if err != nil {
		return err
	}
	defer l.Close()

	sum, err := syncer.Pass(ctx)
	printSummary(sum)
	if err != nil {
		return fmt.Errorf("pass failed: %w", err)
	}
	return nil
}

func printSummary(sum sync.Summary) {
	fmt.Printf("\nPass Summary (%s):\n", sum.Cycle)
	fmt.Printf("- Found: %d files\n", sum.Found)
	fmt.Printf("- Transferred: %d files (%s)\n", sum.Transferred, utils.FormatSize(sum.Bytes))
	fmt.Printf("- Upload failed: %d\n", sum.UploadFailed)
	fmt.Printf("- Already harvested: %d\n", sum.Skipped)
	fmt.Printf("- Changed since harvest: %d\n", sum.Conflicts)
	fmt.Printf("- Download failed: %d\n", sum.DownloadFailed)
	fmt.Printf("- Ledger write failed: %d\n", sum.RecordFailed)
	fmt.Printf("- Unreadable directories: %d\n", sum.SkippedDirs)
	fmt.Printf("- Time elapsed: %s\n", utils.FormatDuration(sum.Duration))
}

// openLedgerForRead opens an existing ledger without its writer lock so the
// reporting commands work next to a running harvester.
func openLedgerForRead(path string) (*ledger.Ledger, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("ledger %s does not exist", path)
		}
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}

	database, err := db.New(db.WithPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	return ledger.New(database), nil
}

// showStatus shows the ledger totals.
func showStatus(c *cli.Context) error {
	l, err := openLedgerForRead(c.String("ledger"))
	if err != nil {
		return err
	}
	defer l.Close()

	stats, err := l.Stats(c.Context)
	if err != nil {
		return fmt.Errorf("failed to get stats: %w", err)
	}

	fmt.Printf("Ledger: %s\n", c.String("ledger"))
	fmt.Printf("Total Files: %d (Size: %s)\n", stats.TotalFiles, utils.FormatSize(stats.TotalSize))
	fmt.Printf("Files Uploaded: %d (Size: %s)\n", stats.UploadedFiles, utils.FormatSize(stats.UploadedSize))
	fmt.Printf("Files Pending: %d (Size: %s)\n", stats.PendingFiles, utils.FormatSize(stats.PendingSize))

	if stats.TotalFiles > 0 {
		fileProgress := float64(stats.UploadedFiles) / float64(stats.TotalFiles) * 100
		sizeProgress := 100.0
		if stats.TotalSize > 0 {
			sizeProgress = float64(stats.UploadedSize) / float64(stats.TotalSize) * 100
		}
		fmt.Printf("Uploaded: %.2f%% (Files), %.2f%% (Size)\n", fileProgress, sizeProgress)
	}
	return nil
}

func listPending(c *cli.Context) error {
	l, err := openLedgerForRead(c.String("ledger"))
	if err != nil {
		return err
	}
	defer l.Close()

	records, err := l.Pending(c.Context)
	if err != nil {
		return fmt.Errorf("failed to list pending files: %w", err)
	}
	if len(records) == 0 {
		fmt.Println("No pending files")
		return nil
	}

	for _, r := range records {
		fmt.Printf("%s\t%s\t%s\n", r.DownloadedAt.Local().Format("2006-01-02 15:04:05"), utils.FormatSize(r.FileSize), r.SourcePath)
	}
	fmt.Printf("\n%d files pending upload\n", len(records))
	return nil
}

func exportLedger(c *cli.Context) error {
	l, err := openLedgerForRead(c.String("ledger"))
	if err != nil {
		return err
	}
	defer l.Close()

	records, err := l.All(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read ledger: %w", err)
	}

	out := c.String("out")
	if err := writeWorkbook(out, records); err != nil {
		return fmt.Errorf("failed to export ledger: %w", err)
	}
	fmt.Printf("Exported %d records to %s\n", len(records), out)
	return nil
}
