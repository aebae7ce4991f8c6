package sqlite

import (
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/LENAX/alert-engine/pkg/storage"
)

// SQLiteDialect SQLite方言实现（对外导出）
type SQLiteDialect struct{}

// NewSQLiteDialect 创建SQLite方言实例
func NewSQLiteDialect() *SQLiteDialect {
	return &SQLiteDialect{}
}

// Name 返回方言名称
func (d *SQLiteDialect) Name() string {
	return "sqlite"
}

// DriverName 返回驱动名
func (d *SQLiteDialect) DriverName() string {
	return "sqlite3"
}

// NormalizeDSN SQLite的DSN原样返回
func (d *SQLiteDialect) NormalizeDSN(dsn string) string {
	return dsn
}

// UpsertSQL 返回SQLite的UPSERT语句
// 为了兼容性，使用 INSERT OR REPLACE
func (d *SQLiteDialect) UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string {
	return fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(storage.NamedPlaceholders(columns), ", "),
	)
}

// InsertIgnoreSQL 返回冲突时忽略的INSERT语句
func (d *SQLiteDialect) InsertIgnoreSQL(tableName string, columns []string) string {
	return fmt.Sprintf(
		"INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(storage.NamedPlaceholders(columns), ", "),
	)
}

// CreateIndexSQL 返回建索引语句
func (d *SQLiteDialect) CreateIndexSQL(indexName, tableName string, columns []string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, strings.Join(columns, ", "))
}

// ConfigureDB 返回SQLite配置SQL
func (d *SQLiteDialect) ConfigureDB() []string {
	return []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=30000;",
		"PRAGMA wal_autocheckpoint=1000;",
		"PRAGMA synchronous=NORMAL;",
	}
}

// BooleanType 返回SQLite布尔类型
func (d *SQLiteDialect) BooleanType() string {
	return "INTEGER"
}

// TimestampType 返回SQLite时间戳类型
func (d *SQLiteDialect) TimestampType() string {
	return "DATETIME"
}

// 确保实现接口
var _ storage.Dialect = (*SQLiteDialect)(nil)
