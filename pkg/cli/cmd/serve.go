package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/alert-engine/internal/app"
	"github.com/LENAX/alert-engine/pkg/cli/output"
	"github.com/LENAX/alert-engine/pkg/config"
	"github.com/LENAX/alert-engine/pkg/logging"
)

var (
	serveHost string
	servePort int
)

// serveCmd 启动告警引擎服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动告警引擎服务",
	Long: `启动定时巡检、事件订阅与HTTP API服务，收到SIGINT/SIGTERM后优雅退出。

示例：
  alert-engine serve --config ./configs/alert-engine.yaml --port 9090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFrameworkConfig(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		if cmd.Flags().Changed("host") {
			cfg.AlertEngine.API.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.AlertEngine.API.Port = servePort
		}

		logger, err := logging.New(cfg.AlertEngine.General.LogLevel, cfg.AlertEngine.General.Env)
		if err != nil {
			output.Error("初始化日志失败: %v", err)
			return err
		}
		defer logger.Sync()

		a, err := app.New(cfg, logger, Version)
		if err != nil {
			output.Error("创建告警引擎失败: %v", err)
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		output.Success("Alert Engine Server started on %s:%d", cfg.AlertEngine.API.Host, cfg.AlertEngine.API.Port)
		if err := a.Run(ctx); err != nil {
			output.Error("服务异常退出: %v", err)
			return err
		}
		output.Success("服务已停止")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&serveHost, "host", "H", "0.0.0.0", "监听地址（覆盖配置文件）")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "监听端口（覆盖配置文件）")
}
