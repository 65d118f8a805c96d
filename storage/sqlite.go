package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
)

const (
	sqliteSchema = `CREATE TABLE IF NOT EXISTS kv (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`
	sqliteSelect = `SELECT value FROM kv WHERE key = ?`
	sqliteUpsert = `INSERT INTO kv (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	sqliteDelete = `DELETE FROM kv WHERE key = ?`
	sqliteKeys   = `SELECT key FROM kv ORDER BY key`
)

// SQLiteStorage keeps values in a single kv table of a SQLite file.
type SQLiteStorage struct {
	db     *sql.DB
	logger types.Logger
	config *types.StorageConfig
	life   lifecycle.Machine
}

func NewSQLiteStorage(ctx context.Context, logger types.Logger, config *types.StorageConfig) (*SQLiteStorage, error) {
	if config.Path == "" {
		return nil, types.Errorf(types.ErrConfigNotFound, "sqlite storage requires a path")
	}

	if err := ensureDir(filepath.Dir(config.Path)); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, types.Errorf(types.ErrStorageConnectFailed, "open %s: %v", config.Path, err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, types.Errorf(types.ErrStorageConnectFailed, "create schema: %v", err)
	}

	return &SQLiteStorage{db: db, logger: logger, config: config}, nil
}

func (s *SQLiteStorage) Start() error {
	if err := s.life.Run(types.ErrServerAlreadyRunning, nil); err != nil {
		return err
	}

	s.logger.Info("SQLite storage opened", zap.String("path", s.config.Path))
	return nil
}

// Stop closes the database file. A stopped SQLiteStorage cannot be reopened.
func (s *SQLiteStorage) Stop() error {
	return s.life.Halt(types.ErrServerNotRunning, func() error {
		if err := s.db.Close(); err != nil {
			return types.WrapError(err, "close sqlite database")
		}
		return nil
	})
}

func (s *SQLiteStorage) IsRunning() bool {
	return s.life.Running()
}

func (s *SQLiteStorage) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte

	err := s.db.QueryRowContext(ctx, sqliteSelect, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.Errorf(types.ErrStorageOperationFailed, "select %s: %v", key, err)
	}

	return value, true, nil
}

func (s *SQLiteStorage) Write(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, sqliteUpsert, key, value); err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "upsert %s: %v", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Remove(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, sqliteDelete, key); err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "delete %s: %v", key, err)
	}
	return nil
}

func (s *SQLiteStorage) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqliteKeys)
	if err != nil {
		return nil, types.Errorf(types.ErrStorageOperationFailed, "list keys: %v", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, types.Errorf(types.ErrStorageOperationFailed, "scan key: %v", err)
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, types.Errorf(types.ErrStorageOperationFailed, "iterate keys: %v", err)
	}

	return keys, nil
}

func (s *SQLiteStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
