package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"

	"cvbuilder/internal/config"
)

// Open 按 store.driver 构造文档存储。返回的 close 函数释放后端连接。
// memory 只适合单进程开发：worker 进程看不到 API 进程中的文档。
func Open(ctx context.Context, cfg *config.Config, db *gorm.DB) (Store, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		return NewMemoryStore(), noop, nil
	case config.StoreDriverMongo:
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return nil, noop, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(connectCtx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return nil, noop, fmt.Errorf("ping mongo: %w", err)
		}

		col := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
		s, err := NewMongoStore(connectCtx, col)
		if err != nil {
			_ = client.Disconnect(ctx)
			return nil, noop, err
		}
		return s, client.Disconnect, nil
	default:
		if db == nil {
			return nil, noop, fmt.Errorf("postgres store requires a database handle")
		}
		return NewGormStore(db), noop, nil
	}
}
