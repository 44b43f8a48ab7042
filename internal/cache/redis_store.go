package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOptions 描述 Redis 持久层的连接参数。
type RedisOptions struct {
	Addr        string
	Password    string
	DB          int
	KeyPrefix   string
	DialTimeout time.Duration
}

// redisStore 以 hash 保存每条记录（buffer + mimeType），并用一个 set 维护 path 索引，
// 写入与清空都通过 MULTI/EXEC 提交。
type redisStore struct {
	opts   RedisOptions
	client redis.UniversalClient
	owned  bool
}

// NewRedisStore 构建 Redis 持久层，Initialize 时才会建立连接。
func NewRedisStore(opts RedisOptions) (Store, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis addr required")
	}
	return &redisStore{opts: opts}, nil
}

// NewRedisStoreWithClient 复用外部构造的 client，主要用于测试。
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string) Store {
	return &redisStore{
		opts:   RedisOptions{KeyPrefix: keyPrefix},
		client: client,
	}
}

func (s *redisStore) Initialize(ctx context.Context) error {
	if s.client == nil {
		s.client = redis.NewClient(&redis.Options{
			Addr:        s.opts.Addr,
			Password:    s.opts.Password,
			DB:          s.opts.DB,
			DialTimeout: s.opts.DialTimeout,
		})
		s.owned = true
	}
	if err := s.client.Ping(ctx).Err(); err != nil {
		if s.owned {
			_ = s.client.Close()
			s.client = nil
		}
		return fmt.Errorf("%w: redis ping: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *redisStore) PutAll(ctx context.Context, files []StoredFile) error {
	if s.client == nil {
		return fmt.Errorf("%w: store not initialized", ErrPersistenceWrite)
	}
	if len(files) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, f := range files {
			if f.Path == "" {
				continue
			}
			buffer := make([]byte, len(f.Content))
			copy(buffer, f.Content)
			pipe.HSet(ctx, s.recordKey(f.Path),
				"buffer", buffer,
				"mimeType", NormalizeMimeType(f.MimeType),
			)
			pipe.SAdd(ctx, s.indexKey(), f.Path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis exec: %v", ErrPersistenceWrite, err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, path string) (*StoredFile, error) {
	if s.client == nil {
		return nil, fmt.Errorf("%w: store not initialized", ErrPersistenceRead)
	}

	values, err := s.client.HMGet(ctx, s.recordKey(path), "buffer", "mimeType").Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis hmget %s: %v", ErrPersistenceRead, path, err)
	}
	// 记录不存在时两个字段都为 nil。
	raw, ok := values[0].(string)
	if !ok {
		return nil, ErrNotFound
	}
	mime, _ := values[1].(string)

	return &StoredFile{
		Path:     path,
		Content:  []byte(raw),
		MimeType: NormalizeMimeType(mime),
	}, nil
}

func (s *redisStore) ClearAll(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("%w: store not initialized", ErrPersistenceWrite)
	}

	paths, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return fmt.Errorf("%w: redis smembers: %v", ErrPersistenceWrite, err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, p := range paths {
			pipe.Del(ctx, s.recordKey(p))
		}
		pipe.Del(ctx, s.indexKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: redis exec: %v", ErrPersistenceWrite, err)
	}
	return nil
}

func (s *redisStore) Close() error {
	if s.client == nil || !s.owned {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

func (s *redisStore) indexKey() string {
	return s.opts.KeyPrefix + CollectionName
}

func (s *redisStore) recordKey(path string) string {
	return s.opts.KeyPrefix + CollectionName + ":" + path
}
