package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

//go:embed migrations/001_files.sql
var sqliteMigration string

// sqliteStore 以单个 SQLite 文件保存 files 集合，写入串行化到一个连接上。
type sqliteStore struct {
	dsn string
	db  *sql.DB
}

// NewSQLiteStore 构建基于 dbPath 的持久层，需调用 Initialize 后才能使用。
// dbPath 为 ":memory:" 时仅用于测试。
func NewSQLiteStore(dbPath string) (Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("sqlite path required")
	}
	return &sqliteStore{dsn: dbPath}, nil
}

func (s *sqliteStore) Initialize(ctx context.Context) error {
	if s.db != nil {
		return nil
	}

	dsn := s.dsn
	if dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return fmt.Errorf("%w: create storage dir: %v", ErrStorageUnavailable, err)
		}
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("%w: open sqlite: %v", ErrStorageUnavailable, err)
	}
	// 单连接：避免 SQLITE_BUSY，同时保证 :memory: 库在各次操作间共享。
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("%w: ping sqlite: %v", ErrStorageUnavailable, err)
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return fmt.Errorf("%w: migrate: %v", ErrStorageUnavailable, err)
	}

	s.db = db
	return nil
}

func (s *sqliteStore) PutAll(ctx context.Context, files []StoredFile) error {
	if s.db == nil {
		return fmt.Errorf("%w: store not initialized", ErrPersistenceWrite)
	}
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", ErrPersistenceWrite, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO files (path, buffer, mime_type) VALUES (?, ?, ?)
		ON CONFLICT (path) DO UPDATE SET
			buffer = excluded.buffer,
			mime_type = excluded.mime_type
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%w: prepare: %v", ErrPersistenceWrite, err)
	}
	defer stmt.Close()

	for _, f := range files {
		if f.Path == "" {
			continue
		}
		// 逐条物化为独立缓冲区，空文件也写入非 NULL 的 BLOB。
		buffer := make([]byte, len(f.Content))
		copy(buffer, f.Content)
		if _, err := stmt.ExecContext(ctx, f.Path, buffer, NormalizeMimeType(f.MimeType)); err != nil {
			tx.Rollback()
			return fmt.Errorf("%w: put %s: %v", ErrPersistenceWrite, f.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistenceWrite, err)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, path string) (*StoredFile, error) {
	if s.db == nil {
		return nil, fmt.Errorf("%w: store not initialized", ErrPersistenceRead)
	}

	var (
		buffer []byte
		mime   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT buffer, mime_type FROM files WHERE path = ?`, path,
	).Scan(&buffer, &mime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: get %s: %v", ErrPersistenceRead, path, err)
	}

	return &StoredFile{
		Path:     path,
		Content:  buffer,
		MimeType: NormalizeMimeType(mime),
	}, nil
}

func (s *sqliteStore) ClearAll(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("%w: store not initialized", ErrPersistenceWrite)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM files`); err != nil {
		return fmt.Errorf("%w: clear: %v", ErrPersistenceWrite, err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
