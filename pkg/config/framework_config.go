// Package config 告警引擎框架配置
package config

import (
	"time"
)

// DisabledJob 定时任务表达式配置为该值时不注册
const DisabledJob = "-"

// 去重存储后端
const (
	DedupBackendMemory   = "memory"   // 进程内存，重启后冷却期重置
	DedupBackendDatabase = "database" // 数据库唯一约束，多实例共享
)

// EngineConfig 引擎框架配置（对外导出）
type EngineConfig struct {
	AlertEngine struct {
		General struct {
			InstanceName string `yaml:"instance_name"`
			LogLevel     string `yaml:"log_level"`
			Env          string `yaml:"env"`
		} `yaml:"general"`
		Storage struct {
			Database struct {
				Type            string        `yaml:"type"`
				DSN             string        `yaml:"dsn"`
				MaxOpenConns    int           `yaml:"max_open_conns"`
				MaxIdleConns    int           `yaml:"max_idle_conns"`
				ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
				ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
			} `yaml:"database"`
		} `yaml:"storage"`
		Dedup struct {
			Backend   string        `yaml:"backend"`
			Retention time.Duration `yaml:"retention"`
		} `yaml:"dedup"`
		Schedule struct {
			Enabled      *bool  `yaml:"enabled"` // 未配置时默认启用
			FastSweep    string `yaml:"fast_sweep"`
			FullSweep    string `yaml:"full_sweep"`
			DedupCleanup string `yaml:"dedup_cleanup"`
		} `yaml:"schedule"`
		Execution struct {
			WorkerConcurrency int           `yaml:"worker_concurrency"`
			CheckTimeout      time.Duration `yaml:"check_timeout"`
		} `yaml:"execution"`
		Policy struct {
			DefaultAlertDays int `yaml:"default_alert_days"`
			Cooldowns        struct {
				Warning      time.Duration `yaml:"warning"`
				Urgent       time.Duration `yaml:"urgent"`
				Overdue      time.Duration `yaml:"overdue"`
				SectionStart time.Duration `yaml:"section_start"`
			} `yaml:"cooldowns"`
		} `yaml:"policy"`
		API struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"api"`
	} `yaml:"alert-engine"`
}

// GetDatabaseType 获取数据库类型
func (c *EngineConfig) GetDatabaseType() string {
	return c.AlertEngine.Storage.Database.Type
}

// GetDatabaseDSN 获取数据库DSN
func (c *EngineConfig) GetDatabaseDSN() string {
	return c.AlertEngine.Storage.Database.DSN
}

// ScheduleEnabled 是否启用定时巡检
func (c *EngineConfig) ScheduleEnabled() bool {
	return c.AlertEngine.Schedule.Enabled == nil || *c.AlertEngine.Schedule.Enabled
}

// JobSpecs 返回三个定时任务的表达式，禁用的任务返回空字符串
func (c *EngineConfig) JobSpecs() (fastSweep, fullSweep, dedupCleanup string) {
	spec := func(s string) string {
		if s == DisabledJob {
			return ""
		}
		return s
	}
	sc := c.AlertEngine.Schedule
	return spec(sc.FastSweep), spec(sc.FullSweep), spec(sc.DedupCleanup)
}

// ApplyDefaults 应用默认值
func (c *EngineConfig) ApplyDefaults() {
	ae := &c.AlertEngine

	if ae.General.InstanceName == "" {
		ae.General.InstanceName = "alert-engine"
	}
	if ae.General.LogLevel == "" {
		ae.General.LogLevel = "info"
	}
	if ae.General.Env == "" {
		ae.General.Env = "dev"
	}

	// Database默认值
	if ae.Storage.Database.Type == "" {
		ae.Storage.Database.Type = "sqlite"
	}
	if ae.Storage.Database.DSN == "" && ae.Storage.Database.Type == "sqlite" {
		ae.Storage.Database.DSN = "./data/alert-engine.db"
	}
	if ae.Storage.Database.MaxOpenConns <= 0 {
		ae.Storage.Database.MaxOpenConns = 10
	}
	if ae.Storage.Database.MaxIdleConns <= 0 {
		ae.Storage.Database.MaxIdleConns = 5
	}
	if ae.Storage.Database.ConnMaxLifetime <= 0 {
		ae.Storage.Database.ConnMaxLifetime = 2 * time.Hour
	}
	if ae.Storage.Database.ConnMaxIdleTime <= 0 {
		ae.Storage.Database.ConnMaxIdleTime = 1 * time.Hour
	}

	if ae.Dedup.Backend == "" {
		ae.Dedup.Backend = DedupBackendDatabase
	}
	if ae.Dedup.Retention <= 0 {
		ae.Dedup.Retention = 7 * 24 * time.Hour
	}

	// 未配置的任务使用默认表达式，配置为 "-" 表示禁用
	if ae.Schedule.FastSweep == "" {
		ae.Schedule.FastSweep = "@every 5m"
	}
	if ae.Schedule.FullSweep == "" {
		ae.Schedule.FullSweep = "@every 1h"
	}
	if ae.Schedule.DedupCleanup == "" {
		ae.Schedule.DedupCleanup = "@daily"
	}

	if ae.Execution.WorkerConcurrency <= 0 {
		ae.Execution.WorkerConcurrency = 8
	}
	if ae.Execution.CheckTimeout <= 0 {
		ae.Execution.CheckTimeout = 15 * time.Second
	}

	if ae.Policy.DefaultAlertDays <= 0 {
		ae.Policy.DefaultAlertDays = 3
	}
	cd := &ae.Policy.Cooldowns
	if cd.Warning <= 0 {
		cd.Warning = 24 * time.Hour
	}
	if cd.Urgent <= 0 {
		cd.Urgent = 12 * time.Hour
	}
	if cd.Overdue <= 0 {
		cd.Overdue = 24 * time.Hour
	}
	if cd.SectionStart <= 0 {
		cd.SectionStart = 7 * 24 * time.Hour
	}

	if ae.API.Host == "" {
		ae.API.Host = "0.0.0.0"
	}
	if ae.API.Port <= 0 {
		ae.API.Port = 8080
	}
	if ae.API.ReadTimeout <= 0 {
		ae.API.ReadTimeout = 30 * time.Second
	}
	if ae.API.WriteTimeout <= 0 {
		ae.API.WriteTimeout = 30 * time.Second
	}
}
