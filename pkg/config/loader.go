package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// EnvDSN 覆盖数据库DSN的环境变量
const EnvDSN = "ALERT_ENGINE_DSN"

// LoadFrameworkConfig 加载框架配置
// 文件不存在时返回默认配置；加载后依次应用环境变量、默认值并校验
func LoadFrameworkConfig(path string) (*EngineConfig, error) {
	cfg := &EngineConfig{}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}

	if dsn := os.Getenv(EnvDSN); dsn != "" {
		cfg.AlertEngine.Storage.Database.DSN = dsn
	}

	cfg.ApplyDefaults()
	if err := ValidateFrameworkConfig(cfg); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return cfg, nil
}
