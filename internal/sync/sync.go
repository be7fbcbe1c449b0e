package sync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/chmdznr/sftp-log-harvester/internal/errs"
	"github.com/chmdznr/sftp-log-harvester/internal/ledger"
	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/chmdznr/sftp-log-harvester/internal/scanner"
	"github.com/chmdznr/sftp-log-harvester/internal/store"
	"github.com/chmdznr/sftp-log-harvester/pkg/models"
)

// Syncer moves new log files from the remote server to the object store
type Syncer struct {
	ledger  *ledger.Ledger
	dialer  remote.Dialer
	objects store.ObjectStore
	scanner *scanner.Scanner
	cfg     SyncerConfig
	logger  *slog.Logger

	wake <-chan struct{}
	wait func(ctx context.Context, d time.Duration) error
}

// SyncerConfig holds configuration for the syncer
type SyncerConfig struct {
	RemoteDir        string
	StagingDir       string
	Prefix           string
	Suffixes         []string
	PollInterval     time.Duration
	CooldownInterval time.Duration
	// Progress draws a byte counter for every download on stderr.
	Progress bool
}

// DefaultSyncerConfig returns default syncer configuration
func DefaultSyncerConfig() SyncerConfig {
	return SyncerConfig{
		RemoteDir:        "/logs",
		StagingDir:       "./logs",
		Suffixes:         scanner.DefaultSuffixes,
		PollInterval:     5 * time.Minute,
		CooldownInterval: time.Minute,
	}
}

// NewSyncer creates a new syncer instance
func NewSyncer(l *ledger.Ledger, dialer remote.Dialer, objects store.ObjectStore, config *SyncerConfig, logger *slog.Logger) *Syncer {
	if config == nil {
		defaultConfig := DefaultSyncerConfig()
		config = &defaultConfig
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Syncer{
		ledger:  l,
		dialer:  dialer,
		objects: objects,
		scanner: scanner.New(logger, config.Suffixes...),
		cfg:     *config,
		logger:  logger,
	}
	s.wait = s.sleep
	return s
}

// SetWake installs a channel whose sends cut the wait between two passes
// short.
func (s *Syncer) SetWake(wake <-chan struct{}) {
	s.wake = wake
}

// recordTimeout bounds the ledger write that follows a completed download.
const recordTimeout = 30 * time.Second

// Outcome is what happened to one candidate file.
type Outcome int

const (
	// OutcomeSkipped: already in the ledger.
	OutcomeSkipped Outcome = iota + 1
	// OutcomeConflict: the source path is recorded with another name or size.
	OutcomeConflict
	OutcomeDownloadFailed
	OutcomeTransferred
	// OutcomeUploadFailed: recorded with uploaded=false.
	OutcomeUploadFailed
	// OutcomeRecordFailed: downloaded, but the ledger write failed.
	OutcomeRecordFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeConflict:
		return "conflict"
	case OutcomeDownloadFailed:
		return "download_failed"
	case OutcomeTransferred:
		return "transferred"
	case OutcomeUploadFailed:
		return "upload_failed"
	case OutcomeRecordFailed:
		return "record_failed"
	default:
		return "unknown"
	}
}

// Process harvests a single file over an open client. The returned error
// explains every outcome other than OutcomeSkipped and OutcomeTransferred;
// only one wrapping remote.ErrConnectionLost or a context error should end
// the pass.
func (s *Syncer) Process(ctx context.Context, client remote.Client, d models.FileDescriptor) (Outcome, error) {
	outcome, _, err := s.process(ctx, client, d, s.logger)
	return outcome, err
}

func (s *Syncer) process(ctx context.Context, client remote.Client, d models.FileDescriptor, logger *slog.Logger) (Outcome, int64, error) {
	exists, err := s.ledger.Exists(ctx, d)
	if err != nil {
		return OutcomeRecordFailed, 0, err
	}
	if exists {
		logger.Debug("already harvested", "path", d.Path)
		return OutcomeSkipped, 0, nil
	}

	rec, err := s.ledger.Get(ctx, d.Path)
	switch {
	case err == nil && rec.Matches(d):
		return OutcomeSkipped, 0, nil
	case err == nil:
		return OutcomeConflict, 0, errs.Conflict("process", d.Path,
			fmt.Errorf("recorded as %s (%d bytes), now %s (%d bytes)", rec.Filename, rec.FileSize, d.Name, d.Size))
	case !errs.Has(err, errs.CodeNotFound):
		return OutcomeRecordFailed, 0, err
	}

	name := stagingName(d.Name)
	if name == "" {
		return OutcomeDownloadFailed, 0, fmt.Errorf("download %s: unusable file name %q", d.Path, d.Name)
	}
	staged := filepath.Join(s.cfg.StagingDir, name)

	n, err := s.download(ctx, client, d, staged)
	if err != nil {
		if errors.Is(err, remote.ErrConnectionLost) {
			err = errs.Network("download", d.Path, err)
		}
		return OutcomeDownloadFailed, 0, err
	}
	if n != d.Size {
		logger.Warn("downloaded size differs from listing", "path", d.Path, "listed", d.Size, "downloaded", n)
	}

	uploadErr := s.upload(ctx, staged, store.Key(s.cfg.Prefix, name))
	if uploadErr != nil {
		logger.Warn("upload failed, recording as pending", "path", d.Path, "staged", staged, "error", uploadErr)
	}

	// the staged file is complete, so the row is written even when ctx was
	// cancelled during the upload
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if err := s.ledger.Record(recordCtx, d, uploadErr == nil); err != nil {
		return OutcomeRecordFailed, n, err
	}
	if uploadErr != nil {
		return OutcomeUploadFailed, n, uploadErr
	}

	logger.Info("harvested", "path", d.Path, "key", store.Key(s.cfg.Prefix, name), "size", n)
	return OutcomeTransferred, n, nil
}

// download writes the remote file to staged through a ".part" sibling so a
// partially written file never carries the final name.
func (s *Syncer) download(ctx context.Context, client remote.Client, d models.FileDescriptor, staged string) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(staged), 0o755); err != nil {
		return 0, fmt.Errorf("create staging dir: %w", err)
	}

	part := staged + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", part, err)
	}

	var w io.Writer = f
	if s.cfg.Progress {
		progress := newDownloadProgress(d)
		progress.start()
		w = progress.writer(f)
		defer progress.finish()
	}

	err = client.Retrieve(ctx, d.Path, w)
	if err == nil {
		err = f.Sync()
	}
	var size int64
	if err == nil {
		var info os.FileInfo
		if info, err = f.Stat(); err == nil {
			size = info.Size()
		}
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("download %s: %w", d.Path, err)
	}

	if err := os.Rename(part, staged); err != nil {
		os.Remove(part)
		return 0, fmt.Errorf("stage %s: %w", staged, err)
	}
	return size, nil
}

func (s *Syncer) upload(ctx context.Context, staged, key string) error {
	f, err := os.Open(staged)
	if err != nil {
		return errs.Upload("open", staged, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errs.Upload("stat", staged, err)
	}

	if err := s.objects.PutObject(ctx, key, f, info.Size()); err != nil {
		return errs.Upload("put", key, err)
	}
	return nil
}

// stagingName reduces a remote file name to a single path element usable in
// the staging directory. It returns "" when nothing usable is left.
func stagingName(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), "\\", "/")
	if name == "" {
		return ""
	}
	base := path.Base(name)
	switch base {
	case ".", "..", "/":
		return ""
	}
	return base
}
