package storage

import (
	"context"
	"sort"
	"time"

	"github.com/ostafen/clover"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-stockwatch/lifecycle"
	"github.com/saiset-co/sai-stockwatch/types"
)

const (
	cloverCollection = "kv"
	cloverKeyField   = "key"
	cloverValueField = "value"
)

// CloverStorage keeps one document per key in an embedded clover database.
type CloverStorage struct {
	db     *clover.DB
	logger types.Logger
	config *types.StorageConfig
	life   lifecycle.Machine
}

func NewCloverStorage(logger types.Logger, config *types.StorageConfig) (*CloverStorage, error) {
	if config.Path == "" {
		return nil, types.Errorf(types.ErrConfigNotFound, "clover storage requires a path")
	}

	if err := ensureDir(config.Path); err != nil {
		return nil, err
	}

	db, err := clover.Open(config.Path)
	if err != nil {
		return nil, types.WrapError(err, "failed to open CloverDB")
	}

	exists, err := db.HasCollection(cloverCollection)
	if err != nil {
		_ = db.Close()
		return nil, types.WrapError(err, "failed to check collection existence")
	}

	if !exists {
		if err := db.CreateCollection(cloverCollection); err != nil {
			_ = db.Close()
			return nil, types.WrapError(err, "failed to create collection")
		}
	}

	return &CloverStorage{db: db, logger: logger, config: config}, nil
}

func (c *CloverStorage) Start() error {
	if err := c.life.Run(types.ErrServerAlreadyRunning, nil); err != nil {
		return err
	}

	c.logger.Info("Clover storage opened", zap.String("path", c.config.Path))
	return nil
}

// Stop closes the database. A stopped CloverStorage cannot be reopened.
func (c *CloverStorage) Stop() error {
	return c.life.Halt(types.ErrServerNotRunning, func() error {
		if err := c.db.Close(); err != nil {
			return types.WrapError(err, "close clover database")
		}
		return nil
	})
}

func (c *CloverStorage) IsRunning() bool {
	return c.life.Running()
}

func (c *CloverStorage) Read(_ context.Context, key string) ([]byte, bool, error) {
	docs, err := c.byKey(key).FindAll()
	if err != nil {
		return nil, false, types.Errorf(types.ErrStorageOperationFailed, "find %s: %v", key, err)
	}

	if len(docs) == 0 {
		return nil, false, nil
	}

	value, ok := docs[0].Get(cloverValueField).(string)
	if !ok {
		return nil, false, types.Errorf(types.ErrStorageOperationFailed, "key %s holds a non-string value", key)
	}

	return []byte(value), true, nil
}

func (c *CloverStorage) Write(_ context.Context, key string, value []byte) error {
	query := c.byKey(key)

	count, err := query.Count()
	if err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "count %s: %v", key, err)
	}

	now := time.Now().UnixNano()

	if count > 0 {
		err = query.Update(map[string]interface{}{
			cloverValueField: string(value),
			"ch_time":        now,
		})
		if err != nil {
			return types.Errorf(types.ErrStorageOperationFailed, "update %s: %v", key, err)
		}
		return nil
	}

	doc := clover.NewDocument()
	doc.Set(cloverKeyField, key)
	doc.Set(cloverValueField, string(value))
	doc.Set("cr_time", now)
	doc.Set("ch_time", now)

	if err := c.db.Insert(cloverCollection, doc); err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "insert %s: %v", key, err)
	}

	return nil
}

func (c *CloverStorage) Remove(_ context.Context, key string) error {
	if err := c.byKey(key).Delete(); err != nil {
		return types.Errorf(types.ErrStorageOperationFailed, "delete %s: %v", key, err)
	}
	return nil
}

func (c *CloverStorage) Keys(_ context.Context) ([]string, error) {
	docs, err := c.db.Query(cloverCollection).FindAll()
	if err != nil {
		return nil, types.Errorf(types.ErrStorageOperationFailed, "list keys: %v", err)
	}

	keys := make([]string, 0, len(docs))
	for _, doc := range docs {
		if key, ok := doc.Get(cloverKeyField).(string); ok {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

func (c *CloverStorage) Ping(_ context.Context) error {
	_, err := c.db.HasCollection(cloverCollection)
	return err
}

func (c *CloverStorage) byKey(key string) *clover.Query {
	return c.db.Query(cloverCollection).Where(clover.Field(cloverKeyField).Eq(key))
}
