package sync

import (
	"context"
	"errors"
	"time"

	"github.com/chmdznr/sftp-log-harvester/internal/errs"
	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/google/uuid"
)

// Summary counts what one pass did.
type Summary struct {
	Cycle string

	Found          int
	Transferred    int
	UploadFailed   int
	Skipped        int
	Conflicts      int
	DownloadFailed int
	RecordFailed   int
	SkippedDirs    int
	Bytes          int64

	Duration time.Duration
}

func (sum *Summary) add(o Outcome, n int64) {
	switch o {
	case OutcomeSkipped:
		sum.Skipped++
	case OutcomeConflict:
		sum.Conflicts++
	case OutcomeDownloadFailed:
		sum.DownloadFailed++
	case OutcomeTransferred:
		sum.Transferred++
	case OutcomeUploadFailed:
		sum.UploadFailed++
	case OutcomeRecordFailed:
		sum.RecordFailed++
	}
	sum.Bytes += n
}

// Pass dials the remote, walks the whole tree once and processes every log
// file found. Files are handled one at a time. The connection is closed
// before Pass returns.
//
// Per-file failures are logged and counted. Pass returns an error when the
// root could not be listed, when the connection was lost, or when ctx ended.
func (s *Syncer) Pass(ctx context.Context) (sum Summary, err error) {
	started := time.Now()
	sum.Cycle = uuid.NewString()
	logger := s.logger.With("cycle", sum.Cycle)
	defer func() { sum.Duration = time.Since(started) }()

	client, err := s.dialer.Dial(ctx)
	if err != nil {
		if !errs.Has(err, errs.CodeNetwork) {
			err = errs.Network("dial", "", err)
		}
		return sum, err
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			logger.Debug("closing remote connection", "error", cerr)
		}
	}()

	logger.Info("poll cycle started", "root", s.cfg.RemoteDir)
	walk := s.scanner.Walk(ctx, client, s.cfg.RemoteDir)
	for d := range walk.Files() {
		outcome, n, perr := s.process(ctx, client, d, logger)
		sum.add(outcome, n)
		if perr == nil {
			continue
		}
		if ctx.Err() != nil {
			err = ctx.Err()
			break
		}
		if errors.Is(perr, remote.ErrConnectionLost) {
			err = perr
			break
		}
		logger.Warn("file not harvested", "path", d.Path, "outcome", outcome, "error", perr)
	}

	sum.Found = walk.Found()
	sum.SkippedDirs = len(walk.Skipped())
	if err != nil {
		return sum, err
	}
	if werr := walk.Err(); werr != nil {
		if ctx.Err() != nil {
			return sum, ctx.Err()
		}
		return sum, errs.Network("scan", s.cfg.RemoteDir, werr)
	}
	return sum, nil
}
