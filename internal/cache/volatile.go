package cache

import (
	"context"
	"sort"
	"sync"
)

// TierMemory / TierDurable 是两层缓存在日志与指标中的名称。
const (
	TierMemory  = "memory"
	TierDurable = "durable"
)

// Volatile 是进程内缓存层，只在当前进程生命周期内有效。
// Replace 构建新 map 后整体替换，读者只会看到旧批次或新批次。
type Volatile struct {
	mu      sync.RWMutex
	entries map[string]StoredFile
}

// NewVolatile 创建空的进程内缓存，进程启动时构建一次并注入各组件。
func NewVolatile() *Volatile {
	return &Volatile{entries: make(map[string]StoredFile)}
}

// Replace 清空并以 set 重建缓存。
func (v *Volatile) Replace(set FileSet) {
	files := set.Files()
	next := make(map[string]StoredFile, len(files))
	for _, f := range files {
		next[f.Path] = f
	}

	v.mu.Lock()
	v.entries = next
	v.mu.Unlock()
}

// Get 返回 path 对应的条目。
func (v *Volatile) Get(path string) (StoredFile, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	f, ok := v.entries[path]
	return f, ok
}

// Clear 清空缓存。
func (v *Volatile) Clear() {
	v.mu.Lock()
	v.entries = make(map[string]StoredFile)
	v.mu.Unlock()
}

// Len 返回当前条目数。
func (v *Volatile) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Paths 返回排序后的全部 path，供诊断接口使用。
func (v *Volatile) Paths() []string {
	v.mu.RLock()
	paths := make([]string, 0, len(v.entries))
	for p := range v.entries {
		paths = append(paths, p)
	}
	v.mu.RUnlock()
	sort.Strings(paths)
	return paths
}

// Name implements Tier.
func (v *Volatile) Name() string {
	return TierMemory
}

// Lookup implements Tier; never blocks on I/O.
func (v *Volatile) Lookup(_ context.Context, path string) (*StoredFile, error) {
	f, ok := v.Get(path)
	if !ok {
		return nil, ErrNotFound
	}
	return &f, nil
}
