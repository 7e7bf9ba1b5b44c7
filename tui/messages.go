package tui

import (
	"time"

	"github.com/moyu-x/folder-sorter/pkg/progress"
)

type countFilesMsg struct {
	total int
}

type processCompleteMsg struct {
	stats *progress.Stats
	err   error
}

type errMsg error

type progressTickMsg time.Time
