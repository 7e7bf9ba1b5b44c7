package relocator

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/moyu-x/folder-sorter/pkg/classifier"
	"github.com/moyu-x/folder-sorter/pkg/progress"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip Create() error = %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip Write() error = %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip Close() error = %v", err)
	}
	writeFile(t, path, buf.String())
}

func newRelocator(opts Options) *Relocator {
	return New(afero.NewOsFs(), classifier.NewDefault(nil), opts)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSplitName(t *testing.T) {
	testCases := []struct {
		name, stem, suffix string
	}{
		{"photo.JPG", "photo", ".JPG"},
		{"archive.tar.gz", "archive.tar", ".gz"},
		{".bashrc", ".bashrc", ""},
		{"README", "README", ""},
		{"trailing.", "trailing.", ""},
		{"...", "...", ""},
	}
	for _, tc := range testCases {
		stem, suffix := SplitName(tc.name)
		if stem != tc.stem || suffix != tc.suffix {
			t.Errorf("SplitName(%q) = (%q, %q), want (%q, %q)", tc.name, stem, suffix, tc.stem, tc.suffix)
		}
	}
}

func TestRelocate_MoveAndNormalize(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "sub", "Привет мир.JPG")
	writeFile(t, src, "img")

	ev := newRelocator(Options{}).Relocate(root, src)

	want := filepath.Join(root, "images", "Privet_mir.JPG")
	if ev.Action != progress.ActionMoved {
		t.Fatalf("Action = %s, want moved (err: %v)", ev.Action, ev.Err)
	}
	if ev.Destination != want {
		t.Errorf("Destination = %s, want %s", ev.Destination, want)
	}
	if ev.Size != 3 {
		t.Errorf("Size = %d, want 3", ev.Size)
	}
	if exists(src) || !exists(ev.Destination) {
		t.Error("file should have moved to its destination")
	}
}

func TestRelocate_CategoryUsesLowercaseExtension(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "song.MP3")
	writeFile(t, src, "a")

	ev := newRelocator(Options{}).Relocate(root, src)

	if ev.Category != string(classifier.Audio) {
		t.Errorf("Category = %s, want audio", ev.Category)
	}
	if ev.Destination != filepath.Join(root, "audio", "song.MP3") {
		t.Errorf("Destination = %s, extension case should be kept", ev.Destination)
	}
}

func TestRelocate_UnknownAndMissingExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "data.xyz"), "x")
	writeFile(t, filepath.Join(root, "Makefile"), "all:")

	r := newRelocator(Options{})
	for _, name := range []string{"data.xyz", "Makefile"} {
		ev := r.Relocate(root, filepath.Join(root, name))
		if ev.Category != string(classifier.Others) {
			t.Errorf("%s: Category = %s, want others", name, ev.Category)
		}
		if !exists(filepath.Join(root, "others", name)) {
			t.Errorf("%s should be in others", name)
		}
	}
}

func TestRelocate_AlreadyInPlace(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "documents", "report.txt")
	writeFile(t, src, "r")

	ev := newRelocator(Options{}).Relocate(root, src)

	if ev.Action != progress.ActionUnchanged {
		t.Errorf("Action = %s, want unchanged", ev.Action)
	}
	if !exists(src) {
		t.Error("file in place should not be touched")
	}
}

func TestRelocate_CollisionFail(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "documents", "a.txt")
	src := filepath.Join(root, "x", "a.txt")
	writeFile(t, existing, "old")
	writeFile(t, src, "new")

	ev := newRelocator(Options{Collision: CollisionFail}).Relocate(root, src)

	if ev.Action != progress.ActionFailed {
		t.Fatalf("Action = %s, want failed", ev.Action)
	}
	if !errors.Is(ev.Err, ErrDestinationExists) {
		t.Errorf("Err = %v, want ErrDestinationExists", ev.Err)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "old" {
		t.Error("existing file must not be overwritten")
	}
	if !exists(src) {
		t.Error("source must stay in place on collision")
	}
}

func TestRelocate_CollisionRename(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "documents", "a.txt"), "old")
	writeFile(t, filepath.Join(root, "documents", "a_1.txt"), "old1")
	src := filepath.Join(root, "x", "a.txt")
	writeFile(t, src, "new")

	ev := newRelocator(Options{Collision: CollisionRename}).Relocate(root, src)

	want := filepath.Join(root, "documents", "a_2.txt")
	if ev.Action != progress.ActionMoved || ev.Destination != want {
		t.Fatalf("got %s -> %s, want moved -> %s (err: %v)", ev.Action, ev.Destination, want, ev.Err)
	}
	data, _ := os.ReadFile(want)
	if string(data) != "new" {
		t.Errorf("renamed file content = %q", data)
	}
}

func TestRelocate_CollisionOverwrite(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "documents", "a.txt")
	writeFile(t, existing, "old")
	src := filepath.Join(root, "x", "a.txt")
	writeFile(t, src, "new")

	ev := newRelocator(Options{Collision: CollisionOverwrite}).Relocate(root, src)

	if ev.Action != progress.ActionMoved {
		t.Fatalf("Action = %s, want moved (err: %v)", ev.Action, ev.Err)
	}
	data, _ := os.ReadFile(existing)
	if string(data) != "new" {
		t.Errorf("content = %q, want new", data)
	}
}

func TestRelocate_ExpandArchive(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "in", "data.zip")
	writeZip(t, src, map[string]string{"x.txt": "hello"})

	r := newRelocator(Options{})
	ev := r.Relocate(root, src)

	dst := filepath.Join(root, "archives", "data")
	if ev.Action != progress.ActionExpanded || ev.Destination != dst {
		t.Fatalf("got %s -> %s (err: %v)", ev.Action, ev.Destination, ev.Err)
	}
	if !ev.ArchiveRemoved || exists(src) {
		t.Error("archive should be removed after expansion")
	}
	if !exists(filepath.Join(dst, "x.txt")) {
		t.Error("expanded file missing")
	}
	if !r.IsExpansionDir(root, dst) {
		t.Error("expansion dir should be recognized")
	}
	if r.IsExpansionDir(root, filepath.Join(root, "archives")) {
		t.Error("category dir itself is not an expansion dir")
	}
}

func TestRelocate_CorruptArchive(t *testing.T) {
	testCases := []struct {
		policy      ArchiveFailurePolicy
		wantRemoved bool
	}{
		{ArchiveFailureDelete, true},
		{ArchiveFailureKeep, false},
	}

	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			root := t.TempDir()
			src := filepath.Join(root, "broken.zip")
			writeFile(t, src, "not a zip")

			ev := newRelocator(Options{ArchiveFailure: tc.policy}).Relocate(root, src)

			if ev.Action != progress.ActionExpansionFailed {
				t.Fatalf("Action = %s, want expansion_failed", ev.Action)
			}
			if ev.Err == nil {
				t.Error("expected a failure reason")
			}
			if ev.ArchiveRemoved != tc.wantRemoved || exists(src) == tc.wantRemoved {
				t.Errorf("ArchiveRemoved = %v, want %v", ev.ArchiveRemoved, tc.wantRemoved)
			}
			if exists(filepath.Join(root, "archives", "broken")) {
				t.Error("partial expansion dir should be cleaned up")
			}
		})
	}
}

func TestRelocate_ArchiveCollision(t *testing.T) {
	testCases := []struct {
		policy      CollisionPolicy
		wantAction  progress.Action
		wantDst     string
		wantOld     string
		wantRemoved bool
	}{
		{CollisionFail, progress.ActionExpansionFailed, "data", "old", false},
		{CollisionRename, progress.ActionExpanded, "data_1", "old", true},
		{CollisionOverwrite, progress.ActionExpanded, "data", "new", true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.policy), func(t *testing.T) {
			root := t.TempDir()
			existing := filepath.Join(root, "archives", "data", "x.txt")
			writeFile(t, existing, "old")
			src := filepath.Join(root, "in", "data.zip")
			writeZip(t, src, map[string]string{"x.txt": "new"})

			ev := newRelocator(Options{Collision: tc.policy}).Relocate(root, src)

			if ev.Action != tc.wantAction {
				t.Fatalf("Action = %s, want %s (err: %v)", ev.Action, tc.wantAction, ev.Err)
			}
			if ev.ArchiveRemoved != tc.wantRemoved || exists(src) == tc.wantRemoved {
				t.Errorf("ArchiveRemoved = %v, want %v", ev.ArchiveRemoved, tc.wantRemoved)
			}
			data, _ := os.ReadFile(existing)
			if string(data) != tc.wantOld {
				t.Errorf("existing entry = %q, want %q", data, tc.wantOld)
			}

			dst := filepath.Join(root, "archives", tc.wantDst)
			if ev.Destination != dst {
				t.Errorf("Destination = %s, want %s", ev.Destination, dst)
			}
			if tc.wantAction == progress.ActionExpanded {
				data, _ := os.ReadFile(filepath.Join(dst, "x.txt"))
				if string(data) != "new" {
					t.Errorf("expanded entry = %q, want new", data)
				}
			}
			if tc.policy == CollisionFail && !errors.Is(ev.Err, ErrDestinationExists) {
				t.Errorf("Err = %v, want ErrDestinationExists", ev.Err)
			}
		})
	}
}

func TestLockExpansion(t *testing.T) {
	r := newRelocator(Options{})
	unlock := r.LockExpansion("/data/archives/x")

	locked := make(chan struct{})
	go func() {
		defer close(locked)
		r.LockExpansion("/data/archives/x/")()
	}()

	select {
	case <-locked:
		t.Fatal("second lock on the same dir should wait")
	case <-time.After(50 * time.Millisecond):
	}
	unlock()
	<-locked
}

func TestParsePolicies(t *testing.T) {
	if p, err := ParseCollisionPolicy(""); err != nil || p != CollisionFail {
		t.Errorf("ParseCollisionPolicy(\"\") = %s, %v", p, err)
	}
	if p, err := ParseCollisionPolicy("Rename"); err != nil || p != CollisionRename {
		t.Errorf("ParseCollisionPolicy(Rename) = %s, %v", p, err)
	}
	if _, err := ParseCollisionPolicy("skip"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
	if p, err := ParseArchiveFailurePolicy("keep"); err != nil || p != ArchiveFailureKeep {
		t.Errorf("ParseArchiveFailurePolicy(keep) = %s, %v", p, err)
	}
	if _, err := ParseArchiveFailurePolicy("retry"); !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("expected ErrUnknownPolicy, got %v", err)
	}
}
