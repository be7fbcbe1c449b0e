// Package ledger records which remote files have been downloaded, and whether
// their upload to the object store succeeded.
//
// A record is keyed by source path and is written exactly once. The dedup key
// used by Exists is (filename, size, source path): a file is "already
// processed" only if all three still match what was recorded.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chmdznr/sftp-log-harvester/internal/db"
	"github.com/chmdznr/sftp-log-harvester/internal/errs"
	"github.com/chmdznr/sftp-log-harvester/pkg/models"
	"github.com/gofrs/flock"
)

// ErrLedgerLocked is returned by Open when another process holds the ledger.
var ErrLedgerLocked = errors.New("ledger is locked by another process")

// Ledger is the persistent set of completed downloads.
type Ledger struct {
	db    *db.DB
	flock *flock.Flock
	now   func() time.Time
}

// Open opens the ledger at path and takes its single-writer lock.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errs.Database("open", path, err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errs.Database("lock", path, err)
	}
	if !locked {
		return nil, ErrLedgerLocked
	}

	database, err := db.New(db.WithPath(path))
	if err != nil {
		lock.Unlock()
		return nil, errs.Database("open", path, err)
	}

	l := New(database)
	l.flock = lock
	return l, nil
}

// New wraps an already opened database. No file lock is taken.
func New(database *db.DB) *Ledger {
	return &Ledger{
		db:  database,
		now: time.Now,
	}
}

// Close releases the database and the lock.
func (l *Ledger) Close() error {
	err := l.db.Close()
	if l.flock != nil && l.flock.Locked() {
		if uerr := l.flock.Unlock(); uerr != nil && err == nil {
			err = uerr
		}
	}
	return err
}

// Exists reports whether d has already been recorded with the same name,
// size and source path.
func (l *Ledger) Exists(ctx context.Context, d models.FileDescriptor) (bool, error) {
	var exists bool
	err := l.db.GetContext(ctx, &exists, `
		SELECT EXISTS(
			SELECT 1 FROM downloaded_files
			WHERE filename = ? AND file_size = ? AND source_path = ?
		)
	`, d.Name, d.Size, d.Path)
	if err != nil {
		return false, errs.Database("exists", d.Path, err)
	}
	return exists, nil
}

// Record inserts the record for d. It fails with a CodeConflict error when
// the source path is already present.
func (l *Ledger) Record(ctx context.Context, d models.FileDescriptor, uploaded bool) error {
	var modified sql.NullString
	if !d.ModTime.IsZero() {
		modified = sql.NullString{String: d.ModTime.UTC().Format(db.TimeLayout), Valid: true}
	}

	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return errs.Database("record", d.Path, err)
	}
	defer tx.Rollback()

	var taken bool
	if err := tx.GetContext(ctx, &taken,
		`SELECT EXISTS(SELECT 1 FROM downloaded_files WHERE source_path = ?)`, d.Path); err != nil {
		return errs.Database("record", d.Path, err)
	}
	if taken {
		return errs.Conflict("record", d.Path, fmt.Errorf("source path already recorded"))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO downloaded_files (filename, file_size, source_path, downloaded_at, ftp_modified_time, uploaded)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.Name, d.Size, d.Path, l.now().UTC().Format(db.TimeLayout), modified, uploaded)
	if err != nil {
		if isUniqueViolation(err) {
			return errs.Conflict("record", d.Path, err)
		}
		return errs.Database("record", d.Path, err)
	}

	if err := tx.Commit(); err != nil {
		return errs.Database("record", d.Path, err)
	}
	return nil
}

// Get returns the record for sourcePath, or an error matching errs.ErrNotFound.
func (l *Ledger) Get(ctx context.Context, sourcePath string) (*models.TransferRecord, error) {
	var r row
	err := l.db.GetContext(ctx, &r, selectRecords+` WHERE source_path = ?`, sourcePath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.CodeNotFound, "get", sourcePath, nil)
	}
	if err != nil {
		return nil, errs.Database("get", sourcePath, err)
	}
	return r.record()
}

// All returns every record, oldest first.
func (l *Ledger) All(ctx context.Context) ([]models.TransferRecord, error) {
	return l.list(ctx, "all", selectRecords+` ORDER BY id`)
}

// Pending returns the records whose upload failed, oldest first.
func (l *Ledger) Pending(ctx context.Context) ([]models.TransferRecord, error) {
	return l.list(ctx, "pending", selectRecords+` WHERE uploaded = 0 ORDER BY id`)
}

// Stats returns ledger totals
func (l *Ledger) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	err := l.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_files,
			COALESCE(SUM(file_size), 0) AS total_size,
			COUNT(CASE WHEN uploaded THEN 1 END) AS uploaded_files,
			COALESCE(SUM(CASE WHEN uploaded THEN file_size ELSE 0 END), 0) AS uploaded_size,
			COUNT(CASE WHEN NOT uploaded THEN 1 END) AS pending_files,
			COALESCE(SUM(CASE WHEN NOT uploaded THEN file_size ELSE 0 END), 0) AS pending_size
		FROM downloaded_files
	`)
	if err != nil {
		return nil, errs.Database("stats", "", err)
	}
	return &stats, nil
}

func (l *Ledger) list(ctx context.Context, op, query string) ([]models.TransferRecord, error) {
	var rows []row
	if err := l.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, errs.Database(op, "", err)
	}

	records := make([]models.TransferRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.record()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

const selectRecords = `
	SELECT id, filename, COALESCE(file_size, 0) AS file_size, source_path,
		downloaded_at, ftp_modified_time, COALESCE(uploaded, 0) AS uploaded
	FROM downloaded_files`

// row is the scan target. Timestamps are read as text since the sqlite
// drivers disagree on how they surface TIMESTAMP columns.
type row struct {
	ID           int64          `db:"id"`
	Filename     string         `db:"filename"`
	FileSize     int64          `db:"file_size"`
	SourcePath   string         `db:"source_path"`
	DownloadedAt sql.NullString `db:"downloaded_at"`
	ModifiedAt   sql.NullString `db:"ftp_modified_time"`
	Uploaded     bool           `db:"uploaded"`
}

func (r row) record() (*models.TransferRecord, error) {
	rec := &models.TransferRecord{
		ID:         r.ID,
		Filename:   r.Filename,
		FileSize:   r.FileSize,
		SourcePath: r.SourcePath,
		Uploaded:   r.Uploaded,
	}

	if r.DownloadedAt.Valid {
		t, err := parseTime(r.DownloadedAt.String)
		if err != nil {
			return nil, errs.Database("decode", r.SourcePath, err)
		}
		rec.DownloadedAt = t
	}
	if r.ModifiedAt.Valid {
		t, err := parseTime(r.ModifiedAt.String)
		if err != nil {
			return nil, errs.Database("decode", r.SourcePath, err)
		}
		rec.ModifiedAt = sql.NullTime{Time: t, Valid: true}
	}
	return rec, nil
}

var timeLayouts = []string{
	db.TimeLayout,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
