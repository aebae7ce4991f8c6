// Package sqlstore 基于sqlx的存储实现，通过Dialect同时支持SQLite、PostgreSQL与MySQL
package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/storage"
)

// Store storage.Store的SQL实现（对外导出）
type Store struct {
	db      *sqlx.DB
	dialect storage.Dialect
	dedup   *DedupRepo
	now     func() time.Time
	logger  *zap.Logger
}

// Open 通过DSN打开数据库并初始化表结构（对外导出）
func Open(dialect storage.Dialect, dsn string) (*Store, error) {
	db, err := sqlx.Open(dialect.DriverName(), dialect.NormalizeDSN(dsn))
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}

	// SQLite只允许单写者，PRAGMA也只作用于当前连接
	if dialect.Name() == "sqlite" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	for _, stmt := range dialect.ConfigureDB() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("配置数据库失败: %w", err)
		}
	}

	s, err := New(db, dialect, nil)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New 基于已有连接创建Store，now为nil时使用time.Now
func New(db *sqlx.DB, dialect storage.Dialect, now func() time.Time) (*Store, error) {
	if now == nil {
		now = time.Now
	}
	s := &Store{
		db:      db,
		dialect: dialect,
		now:     now,
		logger:  zap.NewNop(),
	}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("初始化表结构失败: %w", err)
	}
	s.dedup = NewDedupRepo(db, dialect, now)
	return s, nil
}

// SetLogger 设置日志记录器，nil时忽略
func (s *Store) SetLogger(logger *zap.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GetDB 获取底层数据库连接（对外导出）
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// DedupStore 返回持久化去重存储
func (s *Store) DedupStore() cache.DedupStore {
	return s.dedup
}

// Ping 检查数据库连接
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close 关闭数据库连接（对外导出）
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// initSchema 初始化数据库表结构
func (s *Store) initSchema() error {
	b, ts := s.dialect.BooleanType(), s.dialect.TimestampType()

	tables := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS workflow_instance (
		id VARCHAR(64) PRIMARY KEY,
		project_id VARCHAR(64) NOT NULL,
		status VARCHAR(32) NOT NULL,
		current_phase VARCHAR(128) NOT NULL DEFAULT '',
		current_section VARCHAR(128) NOT NULL DEFAULT '',
		create_time %[2]s NOT NULL,
		update_time %[2]s NOT NULL
	)`, b, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS workflow_step (
		id VARCHAR(64) PRIMARY KEY,
		workflow_id VARCHAR(64) NOT NULL,
		step_key VARCHAR(128) NOT NULL,
		name VARCHAR(255) NOT NULL,
		phase VARCHAR(128) NOT NULL,
		phase_order INTEGER NOT NULL,
		section VARCHAR(128) NOT NULL,
		section_order INTEGER NOT NULL,
		sort_order INTEGER NOT NULL,
		is_completed %[1]s NOT NULL,
		completed_at %[2]s NULL,
		scheduled_end_date %[2]s NULL,
		alert_days INTEGER NULL,
		default_responsible_role VARCHAR(64) NOT NULL DEFAULT '',
		assigned_user_id VARCHAR(64) NULL,
		sub_tasks TEXT NULL
	)`, b, ts),
		`CREATE TABLE IF NOT EXISTS project (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		project_manager_id VARCHAR(64) NULL
	)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS app_user (
		id VARCHAR(64) PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL DEFAULT '',
		role VARCHAR(64) NOT NULL,
		active %[1]s NOT NULL
	)`, b),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS phase_override (
		id VARCHAR(64) PRIMARY KEY,
		workflow_id VARCHAR(64) NOT NULL,
		suppressed_phases TEXT NOT NULL,
		reason VARCHAR(512) NOT NULL DEFAULT '',
		active %[1]s NOT NULL,
		created_by VARCHAR(64) NOT NULL DEFAULT '',
		create_time %[2]s NOT NULL
	)`, b, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS workflow_alert (
		id VARCHAR(64) PRIMARY KEY,
		workflow_id VARCHAR(64) NOT NULL,
		project_id VARCHAR(64) NOT NULL,
		step_id VARCHAR(64) NOT NULL,
		step_name VARCHAR(255) NOT NULL,
		phase VARCHAR(128) NOT NULL,
		section VARCHAR(128) NOT NULL,
		category VARCHAR(32) NOT NULL,
		priority VARCHAR(16) NOT NULL,
		recipient_id VARCHAR(64) NOT NULL,
		title VARCHAR(512) NOT NULL,
		message TEXT NOT NULL,
		days_until_due INTEGER NOT NULL,
		days_overdue INTEGER NOT NULL,
		status VARCHAR(32) NOT NULL,
		create_time %[2]s NOT NULL,
		update_time %[2]s NOT NULL
	)`, b, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS notification (
		id VARCHAR(64) PRIMARY KEY,
		recipient_id VARCHAR(64) NOT NULL,
		alert_id VARCHAR(64) NOT NULL,
		type VARCHAR(64) NOT NULL,
		title VARCHAR(512) NOT NULL,
		message TEXT NOT NULL,
		is_read %[1]s NOT NULL,
		create_time %[2]s NOT NULL
	)`, b, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS suppressed_alert (
		id VARCHAR(64) PRIMARY KEY,
		workflow_id VARCHAR(64) NOT NULL,
		step_id VARCHAR(64) NOT NULL,
		phase VARCHAR(128) NOT NULL,
		section VARCHAR(128) NOT NULL,
		category VARCHAR(32) NOT NULL,
		priority VARCHAR(16) NOT NULL,
		title VARCHAR(512) NOT NULL,
		message TEXT NOT NULL,
		override_id VARCHAR(64) NOT NULL,
		reason VARCHAR(512) NOT NULL,
		create_time %[2]s NOT NULL
	)`, b, ts),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS alert_dedup (
		workflow_id VARCHAR(64) NOT NULL,
		subject VARCHAR(300) NOT NULL,
		category VARCHAR(32) NOT NULL,
		marked_at %[2]s NOT NULL,
		PRIMARY KEY (workflow_id, subject, category)
	)`, b, ts),
	}

	indexes := []struct {
		name, table string
		columns     []string
	}{
		{"idx_workflow_instance_status", "workflow_instance", []string{"status"}},
		{"idx_workflow_step_workflow_id", "workflow_step", []string{"workflow_id"}},
		{"idx_app_user_role", "app_user", []string{"role"}},
		{"idx_phase_override_workflow_id", "phase_override", []string{"workflow_id"}},
		{"idx_workflow_alert_recipient", "workflow_alert", []string{"recipient_id"}},
		{"idx_workflow_alert_workflow", "workflow_alert", []string{"workflow_id"}},
		{"idx_notification_recipient", "notification", []string{"recipient_id"}},
		{"idx_suppressed_alert_workflow", "suppressed_alert", []string{"workflow_id"}},
		{"idx_alert_dedup_marked_at", "alert_dedup", []string{"marked_at"}},
	}

	for _, ddl := range tables {
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	for _, idx := range indexes {
		ddl := s.dialect.CreateIndexSQL(idx.name, idx.table, idx.columns)
		if ddl == "" {
			continue
		}
		if _, err := s.db.Exec(ddl); err != nil {
			return err
		}
	}
	return nil
}

// 确保实现接口
var _ storage.Store = (*Store)(nil)
