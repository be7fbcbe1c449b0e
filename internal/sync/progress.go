package sync

import (
	"io"

	"github.com/chmdznr/sftp-log-harvester/pkg/models"
	"github.com/cheggaaa/pb/v3"
)

// downloadProgress draws a byte bar for one download
type downloadProgress struct {
	bar *pb.ProgressBar
}

func newDownloadProgress(d models.FileDescriptor) *downloadProgress {
	bar := pb.New64(d.Size)
	bar.Set(pb.Bytes, true)
	bar.SetTemplate(`{{string . "name"}} {{counters . }} {{bar . }} {{percent . }} {{speed . }}`)
	bar.Set("name", d.Name)
	return &downloadProgress{bar: bar}
}

func (dp *downloadProgress) writer(w io.Writer) io.Writer {
	return dp.bar.NewProxyWriter(w)
}

func (dp *downloadProgress) start() {
	dp.bar.Start()
}

func (dp *downloadProgress) finish() {
	dp.bar.Finish()
}
