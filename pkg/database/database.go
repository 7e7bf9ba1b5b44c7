package database

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	_ "modernc.org/sqlite"

	"github.com/moyu-x/folder-sorter/internal"
	log "github.com/moyu-x/folder-sorter/pkg/logger"
	"github.com/moyu-x/folder-sorter/pkg/progress"
)

// Run 一次整理
type Run struct {
	ID         string `gorm:"primaryKey"`
	Root       string `gorm:"not null"`
	Strategy   string
	Records    int64
	StartedAt  time.Time `gorm:"index;not null"`
	FinishedAt *time.Time
}

func (Run) TableName() string {
	return "runs"
}

// Relocation 单个文件或目录的处理记录
type Relocation struct {
	ID          int64  `gorm:"primaryKey"`
	RunID       string `gorm:"index;not null"`
	Source      string `gorm:"not null"`
	Destination string
	Category    string
	Action      string `gorm:"index;not null"`
	Error       string
	Size        int64
	CreatedAt   time.Time `gorm:"not null"`
}

func (Relocation) TableName() string {
	return "relocations"
}

// Journal 把整理事件写入 sqlite，实现 progress.Listener
type Journal struct {
	db        *gorm.DB
	batchSize int

	mu       sync.Mutex
	runID    string
	buf      []Relocation
	flushErr error
}

func Open(dbPath string) (*Journal, error) {
	expandedPath, err := expandPath(dbPath)
	if err != nil {
		log.Get().Error().Err(err).Msg("扩展数据库路径失败")
		return nil, err
	}

	log.Get().Debug().Msgf("打开整理记录数据库: %s", expandedPath)

	if err := os.MkdirAll(filepath.Dir(expandedPath), 0755); err != nil {
		return nil, fmt.Errorf("创建数据库目录失败: %w", err)
	}

	dialector := sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        expandedPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
	})
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("打开数据库连接失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接失败: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := db.AutoMigrate(&Run{}, &Relocation{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("创建数据库表失败: %w", err)
	}

	return &Journal{
		db:        db,
		batchSize: internal.JournalBatchSize,
	}, nil
}

func expandPath(path string) (string, error) {
	if len(path) >= 2 && path[0] == '~' && (path[1] == '/' || path[1] == '\\') {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[2:]), nil
	}
	return path, nil
}

// BeginRun 登记一次新的整理，返回运行 ID
func (j *Journal) BeginRun(root, strategy string) (string, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Root:      root,
		Strategy:  strategy,
		StartedAt: time.Now(),
	}
	if err := j.db.Create(run).Error; err != nil {
		return "", fmt.Errorf("登记整理失败: %w", err)
	}

	j.mu.Lock()
	j.runID = run.ID
	j.buf = j.buf[:0]
	j.flushErr = nil
	j.mu.Unlock()

	log.Get().Debug().Msgf("开始记录整理: %s", run.ID)
	return run.ID, nil
}

func (j *Journal) OnEvent(e progress.Event) {
	record := Relocation{
		Source:      e.Source,
		Destination: e.Destination,
		Category:    e.Category,
		Action:      string(e.Action),
		Size:        e.Size,
		CreatedAt:   time.Now(),
	}
	if e.Err != nil {
		record.Error = e.Err.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.runID == "" {
		return
	}
	record.RunID = j.runID
	j.buf = append(j.buf, record)

	if len(j.buf) >= j.batchSize {
		j.flushLocked()
	}
}

func (j *Journal) flushLocked() {
	if len(j.buf) == 0 {
		return
	}
	if err := j.db.CreateInBatches(&j.buf, j.batchSize).Error; err != nil {
		log.Get().Error().Err(err).Msgf("写入整理记录失败，丢弃 %d 条", len(j.buf))
		j.flushErr = errors.Join(j.flushErr, err)
	}
	j.buf = j.buf[:0]
}

// Flush 写入缓冲的记录，返回此前写入失败的错误
func (j *Journal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.flushLocked()
	return j.flushErr
}

// FinishRun 写入剩余记录并更新本次整理的结束时间和记录数
func (j *Journal) FinishRun() error {
	if err := j.Flush(); err != nil {
		return err
	}

	j.mu.Lock()
	runID := j.runID
	j.runID = ""
	j.mu.Unlock()

	if runID == "" {
		return nil
	}

	var count int64
	if err := j.db.Model(&Relocation{}).Where("run_id = ?", runID).Count(&count).Error; err != nil {
		return fmt.Errorf("统计整理记录失败: %w", err)
	}

	now := time.Now()
	err := j.db.Model(&Run{}).Where("id = ?", runID).Updates(map[string]any{
		"records":     count,
		"finished_at": now,
	}).Error
	if err != nil {
		return fmt.Errorf("更新整理状态失败: %w", err)
	}
	return nil
}

// Runs 按开始时间倒序返回最近的整理
func (j *Journal) Runs(limit int) ([]Run, error) {
	var runs []Run
	q := j.db.Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询整理记录失败: %w", err)
	}
	return runs, nil
}

// Records 返回某次整理的全部记录，runID 可以是前缀
func (j *Journal) Records(runID string) ([]Relocation, error) {
	var records []Relocation
	err := j.db.Where("run_id LIKE ?", runID+"%").Order("id").Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("查询整理记录失败: %w", err)
	}
	return records, nil
}

func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
