package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/moyu-x/folder-sorter/pkg/progress"
)

func openTemp(t *testing.T) (*Journal, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return j, dbPath
}

func TestOpen(t *testing.T) {
	j, dbPath := openTemp(t)
	defer j.Close()

	if j.db == nil {
		t.Error("Expected database connection")
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Expected database file to be created")
	}
}

func TestJournal_RecordRun(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	runID, err := j.BeginRun("/data", "nested")
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}

	j.OnEvent(progress.Event{
		Action:      progress.ActionMoved,
		Source:      "/data/x/a.txt",
		Destination: "/data/documents/a.txt",
		Category:    "documents",
		Size:        12,
	})
	j.OnEvent(progress.Event{
		Action: progress.ActionFailed,
		Source: "/data/y/a.txt",
		Err:    errors.New("目标文件已存在"),
	})

	if err := j.FinishRun(); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	records, err := j.Records(runID)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	if records[0].Action != "moved" || records[0].Size != 12 {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if records[1].Error == "" {
		t.Error("Expected error text on failed record")
	}

	runs, err := j.Runs(10)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 || runs[0].ID != runID {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[0].Records != 2 || runs[0].FinishedAt == nil {
		t.Errorf("run not finalized: %+v", runs[0])
	}
}

func TestJournal_RecordsByPrefix(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	runID, err := j.BeginRun("/data", "batch")
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}
	j.OnEvent(progress.Event{Action: progress.ActionPruned, Source: "/data/empty"})
	if err := j.FinishRun(); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	records, err := j.Records(runID[:8])
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 record by prefix, got %d", len(records))
	}
}

func TestJournal_BatchFlush(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()
	j.batchSize = 10

	runID, err := j.BeginRun("/data", "sequential")
	if err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}

	const numRecords = 25
	for i := 0; i < numRecords; i++ {
		j.OnEvent(progress.Event{
			Action: progress.ActionMoved,
			Source: fmt.Sprintf("/data/file%d.txt", i),
		})
	}

	// 满两批已经落盘
	records, err := j.Records(runID)
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 20 {
		t.Errorf("Expected 20 flushed records, got %d", len(records))
	}

	if err := j.FinishRun(); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	records, _ = j.Records(runID)
	if len(records) != numRecords {
		t.Errorf("Expected %d records, got %d", numRecords, len(records))
	}
}

func TestJournal_EventsWithoutRunIgnored(t *testing.T) {
	j, _ := openTemp(t)
	defer j.Close()

	j.OnEvent(progress.Event{Action: progress.ActionMoved, Source: "/x"})
	if err := j.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	records, err := j.Records("")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected no records, got %d", len(records))
	}
}

func TestJournal_Persistence(t *testing.T) {
	j1, dbPath := openTemp(t)
	if _, err := j1.BeginRun("/data", "nested"); err != nil {
		t.Fatalf("BeginRun() error = %v", err)
	}
	if err := j1.FinishRun(); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}
	if err := j1.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	j2, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open() again error = %v", err)
	}
	defer j2.Close()

	runs, err := j2.Runs(0)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Expected run to persist across reopen, got %d", len(runs))
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	got, err := expandPath("~/x/journal.db")
	if err != nil {
		t.Fatalf("expandPath() error = %v", err)
	}
	if got != filepath.Join(home, "x", "journal.db") {
		t.Errorf("expandPath() = %s", got)
	}

	if got, _ := expandPath("/abs/journal.db"); got != "/abs/journal.db" {
		t.Errorf("absolute path should be unchanged, got %s", got)
	}
}
