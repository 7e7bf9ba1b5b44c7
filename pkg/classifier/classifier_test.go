package classifier

import (
	"fmt"
	"sync"
	"testing"
)

func TestClassifier_Classify(t *testing.T) {
	testCases := []struct {
		ext      string
		expected Category
	}{
		{".jpg", Images},
		{".jpeg", Images},
		{".svg", Images},
		{".mkv", Video},
		{".docx", Documents},
		{".txt", Documents},
		{".amr", Audio},
		{".zip", Archives},
		{".gz", Archives},
		{".tar", Archives},
		{".md", Others},
		{"", Others},
		{".JPG", Others},
	}

	cls := NewDefault(nil)

	for _, tc := range testCases {
		t.Run(tc.ext, func(t *testing.T) {
			if got := cls.Classify(tc.ext); got != tc.expected {
				t.Errorf("Classify(%q) = %q, want %q", tc.ext, got, tc.expected)
			}
		})
	}
}

func TestClassifier_Totality(t *testing.T) {
	valid := make(map[Category]bool)
	for _, c := range Categories() {
		valid[c] = true
	}

	cls := NewDefault(nil)
	inputs := []string{"", ".", "..", ".a", ".tar.gz", "\x00", ".ЖЖ", ".verylongextensionname", "noext"}
	for i := 0; i < 256; i++ {
		inputs = append(inputs, fmt.Sprintf(".%c", rune(i)))
	}

	for _, in := range inputs {
		got := cls.Classify(in)
		if got == "" || !valid[got] {
			t.Errorf("Classify(%q) returned invalid category %q", in, got)
		}
	}
}

func TestClassifier_TracksExtensions(t *testing.T) {
	tracker := NewExtensionTracker()
	cls := NewDefault(tracker)

	cls.Classify(".jpg")
	cls.Classify(".png")
	cls.Classify(".jpg")
	cls.Classify(".md")
	cls.Classify("")

	known := tracker.Known()
	if len(known) != 2 || known[0] != ".jpg" || known[1] != ".png" {
		t.Errorf("Unexpected known extensions: %v", known)
	}

	unknown := tracker.Unknown()
	if len(unknown) != 2 || unknown[0] != "" || unknown[1] != ".md" {
		t.Errorf("Unexpected unknown extensions: %v", unknown)
	}
}

func TestClassifier_CustomTable(t *testing.T) {
	table := Table{
		Documents: {".md"},
		Images:    {".md"},
	}
	cls := New(table, nil)

	// Categories() 顺序中 Documents 在 Images 之后，后写入者生效
	if got := cls.Classify(".md"); got != Documents {
		t.Errorf("Expected last writer to win, got %q", got)
	}
	if got := cls.Classify(".jpg"); got != Others {
		t.Errorf("Expected .jpg to be unknown in custom table, got %q", got)
	}
}

func TestIsArchive(t *testing.T) {
	for _, ext := range []string{".zip", ".gz", ".tar", ".ZIP", ".Tar"} {
		if !IsArchive(ext) {
			t.Errorf("Expected %q to be an archive", ext)
		}
	}
	for _, ext := range []string{".rar", ".7z", "", ".tgz"} {
		if IsArchive(ext) {
			t.Errorf("Expected %q not to be an archive", ext)
		}
	}
}

func TestClassifier_ArchiveCategory(t *testing.T) {
	if got := NewDefault(nil).ArchiveCategory(); got != Archives {
		t.Errorf("ArchiveCategory() = %q, want %q", got, Archives)
	}
}

func TestExtensionTracker_Concurrent(t *testing.T) {
	tracker := NewExtensionTracker()
	cls := NewDefault(tracker)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cls.Classify(".jpg")
			cls.Classify(fmt.Sprintf(".x%d", i%5))
		}(i)
	}
	wg.Wait()

	if len(tracker.Known()) != 1 {
		t.Errorf("Expected 1 known extension, got %v", tracker.Known())
	}
	if len(tracker.Unknown()) != 5 {
		t.Errorf("Expected 5 unknown extensions, got %v", tracker.Unknown())
	}
}
