package mysql

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/LENAX/alert-engine/pkg/storage"
)

// MySQLDialect MySQL方言实现（对外导出）
type MySQLDialect struct{}

// NewMySQLDialect 创建MySQL方言实例
func NewMySQLDialect() *MySQLDialect {
	return &MySQLDialect{}
}

// Name 返回方言名称
func (d *MySQLDialect) Name() string {
	return "mysql"
}

// DriverName 返回驱动名
func (d *MySQLDialect) DriverName() string {
	return "mysql"
}

// NormalizeDSN 确保DSN包含parseTime=true
// dsn格式: user:password@tcp(host:port)/dbname?parseTime=true
func (d *MySQLDialect) NormalizeDSN(dsn string) string {
	if strings.Contains(dsn, "parseTime=true") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true"
	}
	return dsn + "?parseTime=true"
}

// UpsertSQL 返回MySQL的UPSERT语句（使用ON DUPLICATE KEY UPDATE）
func (d *MySQLDialect) UpsertSQL(tableName string, columns []string, conflictColumns []string, updateColumns []string) string {
	updateParts := make([]string, len(updateColumns))
	for i, col := range updateColumns {
		updateParts[i] = fmt.Sprintf("%s = VALUES(%s)", col, col)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE %s",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(storage.NamedPlaceholders(columns), ", "),
		strings.Join(updateParts, ", "),
	)
}

// InsertIgnoreSQL 返回冲突时忽略的INSERT语句
func (d *MySQLDialect) InsertIgnoreSQL(tableName string, columns []string) string {
	return fmt.Sprintf(
		"INSERT IGNORE INTO %s (%s) VALUES (%s)",
		tableName,
		strings.Join(columns, ", "),
		strings.Join(storage.NamedPlaceholders(columns), ", "),
	)
}

// CreateIndexSQL MySQL不支持 CREATE INDEX IF NOT EXISTS，二级索引由迁移脚本维护
func (d *MySQLDialect) CreateIndexSQL(indexName, tableName string, columns []string) string {
	return ""
}

// ConfigureDB MySQL无需额外配置
func (d *MySQLDialect) ConfigureDB() []string {
	return nil
}

// BooleanType 返回MySQL布尔类型
func (d *MySQLDialect) BooleanType() string {
	return "TINYINT(1)"
}

// TimestampType 返回MySQL时间戳类型
func (d *MySQLDialect) TimestampType() string {
	return "DATETIME(6)"
}

// 确保实现接口
var _ storage.Dialect = (*MySQLDialect)(nil)
