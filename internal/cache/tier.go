package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// DurableTier 将 Store 适配为 Tier，并合并同一 path 的并发查询。
type DurableTier struct {
	store Store
	group singleflight.Group
}

// NewDurableTier wraps store as the fallback tier.
func NewDurableTier(store Store) *DurableTier {
	return &DurableTier{store: store}
}

// Name implements Tier.
func (t *DurableTier) Name() string {
	return TierDurable
}

// Lookup implements Tier. 调用方拿到的是副本，互相修改不影响。
// 合并后的查询与发起者的取消解耦，避免一个断开的请求让同批等待者全部失败。
func (t *DurableTier) Lookup(ctx context.Context, path string) (*StoredFile, error) {
	flightCtx := context.WithoutCancel(ctx)
	value, err, _ := t.group.Do(path, func() (interface{}, error) {
		return t.store.Get(flightCtx, path)
	})
	if err != nil {
		return nil, err
	}
	shared, _ := value.(*StoredFile)
	if shared == nil {
		return nil, ErrNotFound
	}
	file := *shared
	file.Content = append([]byte(nil), shared.Content...)
	return &file, nil
}
