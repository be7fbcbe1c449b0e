package models

import (
	"path"
	"time"
)

// FileDescriptor describes a remote file found by a scan. It lives for one
// poll cycle only.
type FileDescriptor struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// Dir returns the remote directory holding the file.
func (d FileDescriptor) Dir() string {
	return path.Dir(d.Path)
}
