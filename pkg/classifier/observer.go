package classifier

import (
	"sort"
	"sync"
)

// ExtensionObserver 接收分类过程中遇到的扩展名，仅用于统计
type ExtensionObserver interface {
	ObserveKnown(ext string)
	ObserveUnknown(ext string)
}

type noopObserver struct{}

func (noopObserver) ObserveKnown(string)   {}
func (noopObserver) ObserveUnknown(string) {}

// ExtensionTracker 线程安全地记录已识别和未识别的扩展名
type ExtensionTracker struct {
	known   map[string]struct{}
	unknown map[string]struct{}
	mu      sync.RWMutex
}

func NewExtensionTracker() *ExtensionTracker {
	return &ExtensionTracker{
		known:   make(map[string]struct{}),
		unknown: make(map[string]struct{}),
	}
}

func (t *ExtensionTracker) ObserveKnown(ext string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.known[ext] = struct{}{}
}

func (t *ExtensionTracker) ObserveUnknown(ext string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.unknown[ext] = struct{}{}
}

// Known 返回已识别扩展名的有序快照
func (t *ExtensionTracker) Known() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.known)
}

// Unknown 返回未识别扩展名的有序快照，无扩展名的文件记为空字符串
func (t *ExtensionTracker) Unknown() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return sortedKeys(t.unknown)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
