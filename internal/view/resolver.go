package view

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropview/dropview/internal/cache"
	"github.com/dropview/dropview/internal/metrics"
)

// Result 是一次成功解析：文件、最终响应类型以及命中的缓存层。
type Result struct {
	File        cache.StoredFile
	ContentType string
	Tier        string
}

// Resolver 按优先级依次查询各缓存层。
type Resolver struct {
	tiers   []cache.Tier
	metrics *metrics.Collector
}

// NewResolver 以给定顺序组合缓存层，通常为 (Volatile, DurableTier)。
func NewResolver(collector *metrics.Collector, tiers ...cache.Tier) *Resolver {
	return &Resolver{
		tiers:   tiers,
		metrics: collector,
	}
}

// Resolve 查找 key。全部未命中时返回 cache.ErrNotFound；
// 任一层返回其它错误时立即返回该错误，不会被折叠为未命中。
func (r *Resolver) Resolve(ctx context.Context, key string) (*Result, error) {
	for _, tier := range r.tiers {
		file, err := tier.Lookup(ctx, key)
		switch {
		case err == nil:
			r.metrics.ObserveResolve(tier.Name(), metrics.OutcomeHit)
			return &Result{
				File:        *file,
				ContentType: ContentType(key, file.MimeType),
				Tier:        tier.Name(),
			}, nil
		case errors.Is(err, cache.ErrNotFound):
			continue
		default:
			r.metrics.ObserveResolve(tier.Name(), metrics.OutcomeError)
			return nil, fmt.Errorf("%s tier: %w", tier.Name(), err)
		}
	}
	r.metrics.ObserveResolve("", metrics.OutcomeMiss)
	return nil, cache.ErrNotFound
}
