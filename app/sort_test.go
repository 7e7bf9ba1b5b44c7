package app

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyu-x/folder-sorter/internal/runlock"
	"github.com/moyu-x/folder-sorter/pkg/database"
	"github.com/moyu-x/folder-sorter/pkg/progress"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
}

func zipOf(t *testing.T, name, content string) string {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.String()
}

func TestRunSort(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"отчёт.docx":    "report",
		"photo.JPG":     "jpg",
		"in/data.zip":   zipOf(t, "x.txt", "inside"),
		"in/weird.qqq":  "q",
		"broken/bad.gz": "not gzip",
	})
	require.NoError(t, os.Mkdir(filepath.Join(root, "empty"), 0755))

	var mu sync.Mutex
	var seen []progress.Event
	stats, err := RunSort(&SortOptions{
		Root:        root,
		Strategy:    "batch",
		Workers:     2,
		Verify:      true,
		JournalPath: filepath.Join(t.TempDir(), "journal.db"),
		Listener: progress.ListenerFunc(func(e progress.Event) {
			mu.Lock()
			seen = append(seen, e)
			mu.Unlock()
		}),
	})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Moved)
	assert.Equal(t, 1, stats.Expanded)
	assert.Equal(t, 1, stats.ExpansionFailed)
	assert.Zero(t, stats.Lost)
	assert.Contains(t, stats.UnknownExtensions, ".qqq")
	assert.Contains(t, stats.KnownExtensions, ".jpg")
	assert.False(t, stats.EndTime.Before(stats.StartTime))
	assert.NotEmpty(t, seen)

	for _, p := range []string{"documents/otcet.docx", "images/photo.JPG", "archives/data/x.txt", "others/weird.qqq"} {
		assert.FileExists(t, filepath.Join(root, filepath.FromSlash(p)))
	}
	for _, p := range []string{"in", "broken", "empty"} {
		assert.NoDirExists(t, filepath.Join(root, p))
	}
}

func TestRunSort_Journal(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a/song.mp3": "s"})
	journalPath := filepath.Join(t.TempDir(), "journal.db")

	_, err := RunSort(&SortOptions{Root: root, JournalPath: journalPath})
	require.NoError(t, err)

	j, err := database.Open(journalPath)
	require.NoError(t, err)
	defer j.Close()

	runs, err := j.Runs(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(2), runs[0].Records, "one move and one pruned folder")
}

func TestRunSort_Errors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file.txt")
	writeFiles(t, root, map[string]string{"file.txt": "x"})

	_, err := RunSort(&SortOptions{Root: file})
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = RunSort(&SortOptions{Root: filepath.Join(root, "missing")})
	assert.Error(t, err)

	_, err = RunSort(&SortOptions{Root: root, Strategy: "parallel"})
	assert.Error(t, err)

	_, err = RunSort(&SortOptions{Root: root, Collision: "skip"})
	assert.Error(t, err)
}

func TestRunSort_Locked(t *testing.T) {
	root := t.TempDir()
	lock, err := runlock.Acquire(root)
	require.NoError(t, err)
	defer lock.Release()

	_, err = RunSort(&SortOptions{Root: root})
	assert.True(t, errors.Is(err, runlock.ErrLocked))
}

func TestRunSort_VerifyDetectsOverwrite(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"x/a.txt": "one",
		"y/a.txt": "two",
	})

	stats, err := RunSort(&SortOptions{
		Root:      root,
		Strategy:  "sequential",
		Collision: "overwrite",
		Verify:    true,
	})
	assert.ErrorIs(t, err, ErrFilesLost)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Lost)
}

func TestRunSort_MemMapFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/in/clip.mov", []byte("m"), 0644))

	stats, err := RunSort(&SortOptions{Root: "/data", Strategy: "nested", Fs: fs})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Moved)

	ok, err := afero.Exists(fs, "/data/video/clip.mov")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRunWatch(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"first.txt": "1"})

	ctx, cancel := context.WithCancel(context.Background())
	runs := make(chan *progress.Stats, 10)
	done := make(chan error, 1)
	go func() {
		done <- RunWatch(ctx, &WatchOptions{
			Sort:     SortOptions{Root: root},
			Debounce: 100 * time.Millisecond,
			OnRun: func(stats *progress.Stats, err error) {
				if err == nil {
					runs <- stats
				}
			},
		})
	}()

	select {
	case stats := <-runs:
		assert.Equal(t, 1, stats.Moved)
	case <-time.After(5 * time.Second):
		t.Fatal("initial sort did not run")
	}

	// 给监听一点时间建立
	time.Sleep(200 * time.Millisecond)
	writeFiles(t, root, map[string]string{"second.png": "2"})

	select {
	case stats := <-runs:
		assert.Equal(t, 1, stats.Moved)
	case <-time.After(5 * time.Second):
		t.Fatal("change did not trigger a sort")
	}
	assert.FileExists(t, filepath.Join(root, "images", "second.png"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("RunWatch did not stop")
	}
}

func TestCategoryIgnorer(t *testing.T) {
	ignore := categoryIgnorer("/data")
	assert.True(t, ignore("/data/images"))
	assert.True(t, ignore("/data/archives/x/y.txt"))
	assert.False(t, ignore("/data/inbox/a.jpg"))
	assert.False(t, ignore("/data/imagesX"))
}
