package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Driver string

	RedisAddr     string
	RedisPassword string
	TTL           time.Duration

	MongoURI    string
	MongoDBName string

	Postgres Credentials

	SQLitePath string
}

// Open connects the backend selected by cfg.Driver. Postgres migrations are
// applied on open.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverMemory, "":
		return NewMemoryKV(), nil

	case DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return NewRedisKV(client, cfg.TTL), nil

	case DriverMongo:
		db, err := ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, err
		}
		kv := NewMongoKV(db)
		if err := kv.CreateIndexes(ctx); err != nil {
			kv.Close()
			return nil, err
		}
		return kv, nil

	case DriverPostgres:
		kv, err := NewPostgresKV(&cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := kv.RunMigrations(); err != nil {
			kv.Close()
			return nil, err
		}
		return kv, nil

	case DriverSQLite:
		kv, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return kv, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
