package scanner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/chmdznr/sftp-log-harvester/internal/remote"
	"github.com/chmdznr/sftp-log-harvester/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	dirs   map[string][]remote.Entry
	fail   map[string]error
	listed []string
}

func (f *fakeLister) List(_ context.Context, dir string) ([]remote.Entry, error) {
	f.listed = append(f.listed, dir)
	if err, ok := f.fail[dir]; ok {
		return nil, err
	}
	entries, ok := f.dirs[dir]
	if !ok {
		return nil, errors.New("no such directory")
	}
	return entries, nil
}

func file(name string, size int64) remote.Entry {
	return remote.Entry{Name: name, Size: size, IsFile: true}
}

func dir(name string) remote.Entry {
	return remote.Entry{Name: name, IsDir: true}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func collect(w *Walk) []string {
	var paths []string
	for d := range w.Files() {
		paths = append(paths, d.Path)
	}
	return paths
}

func TestWalkRecursesAndFilters(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]remote.Entry{
		"/logs": {
			{Name: ".", IsDir: true},
			{Name: "..", IsDir: true},
			file("a.log", 10),
			file("notes.txt", 5),
			file("UPPER.LOG", 7),
			dir("sub"),
			dir("archive.log"),
			{Name: "link.log"},
		},
		"/logs/sub":         {file("b.log", 20), dir("deep")},
		"/logs/sub/deep":    {file("c.log", 30)},
		"/logs/archive.log": {file("d.log", 40)},
	}}

	w := New(quietLogger()).Walk(context.Background(), lister, "/logs/")
	paths := collect(w)

	assert.Equal(t, []string{
		"/logs/a.log",
		"/logs/UPPER.LOG",
		"/logs/sub/b.log",
		"/logs/sub/deep/c.log",
		"/logs/archive.log/d.log",
	}, paths)
	assert.NoError(t, w.Err())
	assert.Empty(t, w.Skipped())
	assert.Equal(t, 4, w.Dirs())
	assert.Equal(t, 5, w.Found())
}

func TestWalkDescriptorFields(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]remote.Entry{
		"/logs": {file("a.log", 10)},
	}}

	var got []models.FileDescriptor
	for d := range New(quietLogger()).Walk(context.Background(), lister, "/logs").Files() {
		got = append(got, d)
	}

	require.Len(t, got, 1)
	assert.Equal(t, models.FileDescriptor{Name: "a.log", Path: "/logs/a.log", Size: 10}, got[0])
	assert.Equal(t, "/logs", got[0].Dir())
}

func TestWalkSkipsFailingSubtreeOnly(t *testing.T) {
	denied := errors.New("permission denied")
	lister := &fakeLister{
		dirs: map[string][]remote.Entry{
			"/logs":            {dir("bad"), dir("good"), file("top.log", 1)},
			"/logs/good":       {dir("bad"), dir("ok")},
			"/logs/good/ok":    {file("deep.log", 2)},
			"/logs/bad/hidden": {file("never.log", 3)},
		},
		fail: map[string]error{
			"/logs/bad":      denied,
			"/logs/good/bad": denied,
		},
	}

	w := New(quietLogger()).Walk(context.Background(), lister, "/logs")
	paths := collect(w)

	assert.Equal(t, []string{"/logs/good/ok/deep.log", "/logs/top.log"}, paths)
	assert.NoError(t, w.Err())
	require.Len(t, w.Skipped(), 2)
	assert.Equal(t, "/logs/bad", w.Skipped()[0].Path)
	assert.ErrorIs(t, w.Skipped()[0].Err, denied)
	assert.Equal(t, "/logs/good/bad", w.Skipped()[1].Path)
}

func TestWalkRootFailure(t *testing.T) {
	lister := &fakeLister{fail: map[string]error{"/logs": remote.ErrConnectionLost}}

	w := New(quietLogger()).Walk(context.Background(), lister, "/logs")
	assert.Empty(t, collect(w))
	assert.ErrorIs(t, w.Err(), remote.ErrConnectionLost)
}

func TestWalkEndsOnConnectionLost(t *testing.T) {
	lister := &fakeLister{
		dirs: map[string][]remote.Entry{
			"/logs": {file("a.log", 1), dir("one"), dir("two"), file("b.log", 1)},
		},
		fail: map[string]error{
			"/logs/one": remote.ErrConnectionLost,
			"/logs/two": remote.ErrConnectionLost,
		},
	}

	w := New(quietLogger()).Walk(context.Background(), lister, "/logs")
	assert.Equal(t, []string{"/logs/a.log"}, collect(w))
	assert.ErrorIs(t, w.Err(), remote.ErrConnectionLost)
	assert.Empty(t, w.Skipped())
	assert.Equal(t, []string{"/logs", "/logs/one"}, lister.listed)
}

func TestWalkStopsWhenConsumerStops(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]remote.Entry{
		"/logs":     {file("a.log", 1), dir("sub")},
		"/logs/sub": {file("b.log", 2)},
	}}

	w := New(quietLogger()).Walk(context.Background(), lister, "/logs")
	for range w.Files() {
		break
	}
	assert.Equal(t, []string{"/logs"}, lister.listed)
}

func TestWalkIsNotRestartable(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]remote.Entry{
		"/logs": {file("a.log", 1)},
	}}

	w := New(quietLogger()).Walk(context.Background(), lister, "/logs")
	assert.Len(t, collect(w), 1)
	assert.Empty(t, collect(w))
	assert.Len(t, lister.listed, 1)
}

func TestWalkHonoursContext(t *testing.T) {
	lister := &fakeLister{dirs: map[string][]remote.Entry{
		"/logs": {file("a.log", 1), file("b.log", 1)},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	w := New(quietLogger()).Walk(ctx, lister, "/logs")

	var seen int
	for range w.Files() {
		seen++
		cancel()
	}
	assert.Equal(t, 1, seen)
	assert.ErrorIs(t, w.Err(), context.Canceled)
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		suffixes []string
		file     string
		expected bool
	}{
		{name: "default log", file: "app.log", expected: true},
		{name: "default case insensitive", file: "APP.Log", expected: true},
		{name: "default rejects rotated", file: "app.log.1", expected: false},
		{name: "custom gz", suffixes: []string{".log", ".log.gz"}, file: "app.log.gz", expected: true},
		{name: "custom ignores blanks", suffixes: []string{" ", ".txt"}, file: "app.log", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(quietLogger(), tt.suffixes...)
			assert.Equal(t, tt.expected, s.Match(tt.file))
		})
	}
}
