package sync

import (
	"context"
	"time"

	"github.com/chmdznr/sftp-log-harvester/pkg/utils"
)

// Run polls until ctx is cancelled and then returns ctx.Err(). After a
// successful pass it waits PollInterval, after a failed one CooldownInterval.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Info("poll loop started",
		"root", s.cfg.RemoteDir,
		"interval", s.cfg.PollInterval,
		"cooldown", s.cfg.CooldownInterval,
	)

	for {
		sum, err := s.Pass(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := s.cfg.PollInterval
		if err != nil {
			delay = s.cfg.CooldownInterval
			s.logger.Error("poll cycle failed", "cycle", sum.Cycle, "error", err, "retry_in", delay)
		} else {
			s.logSummary(sum)
		}

		if err := s.wait(ctx, delay); err != nil {
			return err
		}
	}
}

func (s *Syncer) logSummary(sum Summary) {
	s.logger.Info("poll cycle finished",
		"cycle", sum.Cycle,
		"found", sum.Found,
		"transferred", sum.Transferred,
		"upload_failed", sum.UploadFailed,
		"skipped", sum.Skipped,
		"conflicts", sum.Conflicts,
		"download_failed", sum.DownloadFailed,
		"record_failed", sum.RecordFailed,
		"skipped_dirs", sum.SkippedDirs,
		"bytes", utils.FormatSize(sum.Bytes),
		"took", utils.FormatDuration(sum.Duration),
	)
}

// sleep waits d, or less when a wake signal arrives.
func (s *Syncer) sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	case <-s.wake:
		s.logger.Info("poll requested")
		return nil
	}
}
