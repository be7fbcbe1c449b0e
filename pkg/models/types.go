package models

import (
	"database/sql"
	"time"
)

// TransferRecord is a ledger row. It is written once, after the download of
// SourcePath completed, and never changed afterwards.
type TransferRecord struct {
	ID           int64        `db:"id"`
	Filename     string       `db:"filename"`
	FileSize     int64        `db:"file_size"`
	SourcePath   string       `db:"source_path"`
	DownloadedAt time.Time    `db:"downloaded_at"`
	ModifiedAt   sql.NullTime `db:"ftp_modified_time"`
	Uploaded     bool         `db:"uploaded"`
}

// Matches reports whether the record was written for the same file as d.
func (r *TransferRecord) Matches(d FileDescriptor) bool {
	return r.Filename == d.Name && r.FileSize == d.Size && r.SourcePath == d.Path
}
