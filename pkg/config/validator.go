package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateFrameworkConfig 校验框架配置合法性
func ValidateFrameworkConfig(cfg *EngineConfig) error {
	if cfg == nil {
		return fmt.Errorf("配置不能为空")
	}
	ae := &cfg.AlertEngine

	if ae.General.InstanceName == "" {
		return fmt.Errorf("instance_name不能为空")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[ae.General.LogLevel] {
		return fmt.Errorf("log_level必须是debug/info/warn/error之一")
	}

	validDBTypes := map[string]bool{"sqlite": true, "postgres": true, "postgresql": true, "mysql": true}
	if !validDBTypes[ae.Storage.Database.Type] {
		return fmt.Errorf("database.type必须是sqlite/postgres/mysql之一")
	}
	if ae.Storage.Database.DSN == "" {
		return fmt.Errorf("database.dsn不能为空")
	}
	if ae.Storage.Database.MaxIdleConns > ae.Storage.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns不能大于max_open_conns")
	}

	if ae.Dedup.Backend != DedupBackendMemory && ae.Dedup.Backend != DedupBackendDatabase {
		return fmt.Errorf("dedup.backend必须是memory/database之一")
	}

	for name, spec := range map[string]string{
		"fast_sweep":    ae.Schedule.FastSweep,
		"full_sweep":    ae.Schedule.FullSweep,
		"dedup_cleanup": ae.Schedule.DedupCleanup,
	} {
		if spec == DisabledJob {
			continue
		}
		if _, err := cronParser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.%s无效: %w", name, err)
		}
	}

	if ae.Policy.DefaultAlertDays < 0 {
		return fmt.Errorf("policy.default_alert_days不能为负数")
	}
	if ae.API.Port > 65535 {
		return fmt.Errorf("api.port超出范围")
	}
	return nil
}
