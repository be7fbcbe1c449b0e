package models

// Stats represents ledger totals
type Stats struct {
	TotalFiles    int64 `db:"total_files"`
	TotalSize     int64 `db:"total_size"`
	UploadedFiles int64 `db:"uploaded_files"`
	UploadedSize  int64 `db:"uploaded_size"`
	PendingFiles  int64 `db:"pending_files"` // downloaded, upload failed
	PendingSize   int64 `db:"pending_size"`
}
