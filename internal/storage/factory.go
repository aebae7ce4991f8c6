package storage

import (
	"fmt"
	"time"

	"github.com/LENAX/alert-engine/pkg/storage"
	"github.com/LENAX/alert-engine/pkg/storage/mysql"
	"github.com/LENAX/alert-engine/pkg/storage/postgres"
	"github.com/LENAX/alert-engine/pkg/storage/sqlite"
	"github.com/LENAX/alert-engine/pkg/storage/sqlstore"
)

// PoolOptions 连接池参数（内部使用）
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DialectFor 根据数据库类型选择方言（内部方法）
// dbType: 数据库类型（sqlite/mysql/postgres）
func DialectFor(dbType string) (storage.Dialect, error) {
	switch dbType {
	case "sqlite":
		return sqlite.NewSQLiteDialect(), nil
	case "mysql":
		return mysql.NewMySQLDialect(), nil
	case "postgres", "postgresql":
		return postgres.NewPostgresDialect(), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// OpenStore 打开数据库并返回Store（内部方法）
// SQLite固定单连接，连接池参数只作用于MySQL与PostgreSQL
func OpenStore(dbType, dsn string, pool PoolOptions) (*sqlstore.Store, error) {
	dialect, err := DialectFor(dbType)
	if err != nil {
		return nil, err
	}

	s, err := sqlstore.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("create %s store failed: %w", dialect.Name(), err)
	}

	if dialect.Name() != "sqlite" {
		db := s.GetDB()
		if pool.MaxOpenConns > 0 {
			db.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			db.SetMaxIdleConns(pool.MaxIdleConns)
		}
		if pool.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(pool.ConnMaxLifetime)
		}
		if pool.ConnMaxIdleTime > 0 {
			db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
		}
	}
	return s, nil
}
