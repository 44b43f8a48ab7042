package cache

import (
	"context"
	"errors"
	"sort"
)

// DefaultMimeType 是来源未声明类型时使用的通用类型。
const DefaultMimeType = "application/octet-stream"

// CollectionName 是持久层中唯一集合的固定标识（SQLite 表名 / Redis 键前缀）。
const CollectionName = "files"

// StoredFile 是两层缓存共用的存储单元，Path 作为主键。
type StoredFile struct {
	Path     string `json:"path"`
	Content  []byte `json:"-"`
	MimeType string `json:"mimeType"`
}

// Blob 表示一次上传中单个文件的正文及可选的类型声明。
type Blob struct {
	Content  []byte
	MimeType string
}

// FileSet 是一次完整上传批次：path -> Blob。
type FileSet map[string]Blob

// Files 返回规范化后的 StoredFile 列表（按 path 排序），忽略空 path。
func (s FileSet) Files() []StoredFile {
	if len(s) == 0 {
		return nil
	}
	result := make([]StoredFile, 0, len(s))
	for p, blob := range s {
		if p == "" {
			continue
		}
		result = append(result, StoredFile{
			Path:     p,
			Content:  blob.Content,
			MimeType: NormalizeMimeType(blob.MimeType),
		})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Path < result[j].Path
	})
	return result
}

// NormalizeMimeType 将空类型替换为 DefaultMimeType。
func NormalizeMimeType(mime string) string {
	if mime == "" {
		return DefaultMimeType
	}
	return mime
}

// Store 是持久层契约。所有操作都会阻塞到底层引擎返回。
type Store interface {
	// Initialize 打开（首次使用时创建）集合，失败时返回包装了 ErrStorageUnavailable 的错误。
	Initialize(ctx context.Context) error

	// PutAll 在单个事务内写入全部条目：要么全部可见，要么一个都不可见。
	PutAll(ctx context.Context, files []StoredFile) error

	// Get 按 path 查询。未命中返回 ErrNotFound，引擎故障返回包装了 ErrPersistenceRead 的错误。
	Get(ctx context.Context, path string) (*StoredFile, error)

	// ClearAll 删除全部记录。
	ClearAll(ctx context.Context) error

	// Close 释放底层连接。
	Close() error
}

// Tier 是解析器按优先级依次查询的一层缓存。
type Tier interface {
	Name() string
	Lookup(ctx context.Context, path string) (*StoredFile, error)
}

var (
	// ErrNotFound 表示条目不存在，属于正常结果而非系统错误。
	ErrNotFound = errors.New("cache entry not found")
	// ErrStorageUnavailable 表示持久层无法打开。
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrPersistenceWrite 表示持久层写入/清空时引擎出错。
	ErrPersistenceWrite = errors.New("persistence write failed")
	// ErrPersistenceRead 表示持久层读取时引擎出错（区别于未命中）。
	ErrPersistenceRead = errors.New("persistence read failed")
)
