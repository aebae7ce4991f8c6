package postgres

import (
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/LENAX/alert-engine/pkg/storage"
)

// PostgresDialect PostgreSQL方言实现（对外导出）
type PostgresDialect struct{}

// NewPostgresDialect 创建PostgreSQL方言实例
func NewPostgresDialect() *PostgresDialect {
	return &PostgresDialect{}
}

// Name 返回方言名称
func (d *PostgresDialect) Name() string {
	return "postgres"
}

// DriverName 返回驱动名，sqlx对postgres使用$1, $2...占位符
func (d *PostgresDialect) DriverName() string {
	return "postgres"
}

// NormalizeDSN PostgreSQL的DSN原样返回
func (d *PostgresDialect) NormalizeDSN(dsn string) string {
	return dsn
}

// UpsertSQL 返回PostgreSQL的UPSERT语句（使用ON CONFLICT DO UPDATE）
func (d *PostgresDialect) UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string {
	updateParts := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updateParts[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(storage.NamedPlaceholders(columns), ", "),
		strings.Join(conflictColumns, ", "),
		strings.Join(updateParts, ", "),
	)
}

// InsertIgnoreSQL 返回冲突时忽略的INSERT语句
func (d *PostgresDialect) InsertIgnoreSQL(tableName string, columns []string) string {
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(storage.NamedPlaceholders(columns), ", "),
	)
}

// CreateIndexSQL 返回建索引语句
func (d *PostgresDialect) CreateIndexSQL(indexName, tableName string, columns []string) string {
	return fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s(%s)", indexName, tableName, strings.Join(columns, ", "))
}

// ConfigureDB 返回PostgreSQL配置SQL
func (d *PostgresDialect) ConfigureDB() []string {
	return []string{
		"SET timezone = 'UTC';",
	}
}

// BooleanType 返回PostgreSQL布尔类型
func (d *PostgresDialect) BooleanType() string {
	return "BOOLEAN"
}

// TimestampType 返回PostgreSQL时间戳类型
func (d *PostgresDialect) TimestampType() string {
	return "TIMESTAMP"
}

// 确保实现接口
var _ storage.Dialect = (*PostgresDialect)(nil)
