package storage

// Dialect SQL方言接口（对外导出）
// 封装不同数据库的SQL语法差异
type Dialect interface {
	// Name 返回方言名称（如 "sqlite", "mysql", "postgres"）
	Name() string

	// DriverName 返回database/sql驱动名，sqlx据此选择占位符风格
	DriverName() string

	// NormalizeDSN 补全驱动需要的DSN参数
	NormalizeDSN(dsn string) string

	// UpsertSQL 返回INSERT或UPDATE的命名参数SQL语句
	// conflictColumns: 冲突判断列（通常是主键）
	// updateColumns: 冲突时需要更新的列
	UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string

	// InsertIgnoreSQL 返回冲突时忽略的命名参数INSERT语句
	// SQLite: INSERT OR IGNORE
	// MySQL: INSERT IGNORE
	// PostgreSQL: ON CONFLICT DO NOTHING
	InsertIgnoreSQL(tableName string, columns []string) string

	// CreateIndexSQL 返回幂等的建索引语句，方言不支持时返回空字符串
	CreateIndexSQL(indexName, tableName string, columns []string) string

	// ConfigureDB 配置数据库连接（如SQLite的PRAGMA）
	ConfigureDB() []string

	// BooleanType 返回布尔类型
	// SQLite: INTEGER
	// MySQL: TINYINT(1)
	// PostgreSQL: BOOLEAN
	BooleanType() string

	// TimestampType 返回时间戳类型
	// SQLite/MySQL: DATETIME
	// PostgreSQL: TIMESTAMP
	TimestampType() string
}

// NamedPlaceholders 把列名转换为 :col 形式的命名参数
func NamedPlaceholders(columns []string) []string {
	out := make([]string, len(columns))
	for i, col := range columns {
		out[i] = ":" + col
	}
	return out
}
