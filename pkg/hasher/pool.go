package hasher

import (
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/spf13/afero"

	"github.com/moyu-x/folder-sorter/internal"
	"github.com/moyu-x/folder-sorter/pkg/logger"
)

type HashTask struct {
	Path string
	Size int64
}

type HashResult struct {
	Path  string
	Hash  uint64
	Size  int64
	Error error
}

// HashPool 在 ants 协程池上并发计算哈希
// 调用方需要在 Close 之前持续读取 Results
type HashPool struct {
	fs      afero.Fs
	workers int
	tasks   chan HashTask
	results chan HashResult
	wg      sync.WaitGroup
	pool    *ants.Pool
}

func NewHashPool(fs afero.Fs, workers int) *HashPool {
	if workers <= 0 {
		workers = 1
	}
	logger.Get().Debug().Msgf("创建哈希计算池，工作线程数: %d", workers)
	return &HashPool{
		fs:      fs,
		workers: workers,
		tasks:   make(chan HashTask, internal.DefaultBufferSize),
		results: make(chan HashResult, internal.DefaultBufferSize),
	}
}

func (p *HashPool) Start() error {
	var err error
	p.pool, err = ants.NewPool(p.workers)
	if err != nil {
		return fmt.Errorf("创建 goroutine 池失败: %w", err)
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		if err := p.pool.Submit(p.worker); err != nil {
			p.wg.Done()
			return fmt.Errorf("启动工作线程失败: %w", err)
		}
	}
	return nil
}

func (p *HashPool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		hash, err := CalculateHash(p.fs, task.Path)
		p.results <- HashResult{
			Path:  task.Path,
			Hash:  hash,
			Size:  task.Size,
			Error: err,
		}
	}
}

func (p *HashPool) AddTask(task HashTask) {
	p.tasks <- task
}

func (p *HashPool) Results() <-chan HashResult {
	return p.results
}

// Close 等待已提交的任务全部完成后关闭结果通道
func (p *HashPool) Close() {
	close(p.tasks)
	p.wg.Wait()

	if p.pool != nil {
		p.pool.Release()
	}

	close(p.results)
}
