package cache

import (
	"fmt"
	"strings"
)

// 支持的持久层后端。
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Options 汇总构建持久层所需的参数，由 CLI 从配置映射而来。
type Options struct {
	Backend    string
	SQLitePath string
	Redis      RedisOptions
}

// NewStore 按 Backend 选择持久层实现，返回的 Store 仍需 Initialize。
func NewStore(opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendSQLite:
		return NewSQLiteStore(opts.SQLitePath)
	case BackendRedis:
		return NewRedisStore(opts.Redis)
	default:
		return nil, fmt.Errorf("unsupported backend: %s", opts.Backend)
	}
}
