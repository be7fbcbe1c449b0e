// Package scanner walks a remote directory tree looking for log files.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"path"
	"strings"

	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/chmdznr/sftp-log-harvester/pkg/models"
)

// DefaultSuffixes are the file name suffixes recognized as logs.
var DefaultSuffixes = []string{".log"}

// Scanner finds log files below a root directory.
type Scanner struct {
	suffixes []string
	logger   *slog.Logger
}

// New returns a Scanner matching suffixes case-insensitively. With no
// suffixes DefaultSuffixes is used.
func New(logger *slog.Logger, suffixes ...string) *Scanner {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	lower := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		if s = strings.TrimSpace(s); s != "" {
			lower = append(lower, strings.ToLower(s))
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{suffixes: lower, logger: logger}
}

// Match reports whether name carries a recognized suffix.
func (s *Scanner) Match(name string) bool {
	name = strings.ToLower(name)
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// SkippedDir is a directory whose listing failed.
type SkippedDir struct {
	Path string
	Err  error
}

// Walk is the state of one traversal. It is produced by Scanner.Walk and can
// be iterated once.
type Walk struct {
	scanner *Scanner
	ctx     context.Context
	lister  remote.Lister
	root    string

	started bool
	dirs    int
	files   int
	skipped []SkippedDir
	err     error
}

// Walk prepares a depth-first traversal of root. Nothing is listed until
// Files is iterated.
func (s *Scanner) Walk(ctx context.Context, lister remote.Lister, root string) *Walk {
	return &Walk{
		scanner: s,
		ctx:     ctx,
		lister:  lister,
		root:    path.Clean(root),
	}
}

// Files yields every log file below the root. A subdirectory that cannot be
// listed is logged, recorded in Skipped and left out; the rest of the tree is
// still visited.
func (w *Walk) Files() iter.Seq[models.FileDescriptor] {
	return func(yield func(models.FileDescriptor) bool) {
		if w.started {
			return
		}
		w.started = true

		entries, err := w.lister.List(w.ctx, w.root)
		if err != nil {
			w.err = fmt.Errorf("list root %s: %w", w.root, err)
			return
		}
		w.dirs++
		w.walk(w.root, entries, yield)
	}
}

// walk returns false once the consumer stopped or the context is done.
func (w *Walk) walk(dir string, entries []remote.Entry, yield func(models.FileDescriptor) bool) bool {
	for _, e := range entries {
		if err := w.ctx.Err(); err != nil {
			w.err = err
			return false
		}
		if e.Name == "." || e.Name == ".." || e.Name == "" {
			continue
		}

		full := path.Join(dir, e.Name)
		switch {
		case e.IsDir:
			children, err := w.lister.List(w.ctx, full)
			if err != nil {
				if ctxErr := w.ctx.Err(); ctxErr != nil {
					w.err = ctxErr
					return false
				}
				// every later listing would fail the same way
				if errors.Is(err, remote.ErrConnectionLost) {
					w.err = fmt.Errorf("list %s: %w", full, err)
					return false
				}
				w.skipped = append(w.skipped, SkippedDir{Path: full, Err: err})
				w.scanner.logger.Warn("skipping directory", "dir", full, "error", err)
				continue
			}
			w.dirs++
			if !w.walk(full, children, yield) {
				return false
			}
		case e.IsFile && w.scanner.Match(e.Name):
			w.files++
			if !yield(models.FileDescriptor{
				Name:    e.Name,
				Path:    full,
				Size:    e.Size,
				ModTime: e.ModTime,
			}) {
				return false
			}
		}
	}
	return true
}

// Err returns the error that ended the walk early: a failure to list the
// root, a lost connection, or the context's error.
func (w *Walk) Err() error {
	return w.err
}

// Skipped returns the directories left out because their listing failed.
func (w *Walk) Skipped() []SkippedDir {
	return w.skipped
}

// Dirs returns how many directories were listed.
func (w *Walk) Dirs() int {
	return w.dirs
}

// Found returns how many log files were yielded.
func (w *Walk) Found() int {
	return w.files
}
