package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/internal/app"
	"github.com/LENAX/alert-engine/pkg/config"
	"github.com/LENAX/alert-engine/pkg/logging"
)

var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	// 命令行参数
	configPath := flag.String("config", "./configs/alert-engine.yaml", "告警引擎配置文件路径")
	host := flag.String("host", "", "监听地址（为空时使用配置文件）")
	port := flag.Int("port", 0, "监听端口（为0时使用配置文件）")
	flag.Parse()

	// 1. 加载配置
	cfg, err := config.LoadFrameworkConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	if *host != "" {
		cfg.AlertEngine.API.Host = *host
	}
	if *port > 0 {
		cfg.AlertEngine.API.Port = *port
	}

	logger, err := logging.New(cfg.AlertEngine.General.LogLevel, cfg.AlertEngine.General.Env)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logger.Sync()

	logger.Info("Alert Engine Server",
		zap.String("version", Version),
		zap.String("git_commit", GitCommit),
		zap.String("build_time", BuildTime),
		zap.String("config", *configPath))

	// 2. 装配引擎
	a, err := app.New(cfg, logger, Version)
	if err != nil {
		logger.Fatal("创建告警引擎失败", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Warn("释放资源失败", zap.Error(err))
		}
	}()

	// 3. 运行直到收到中断信号
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("服务异常退出", zap.Error(err))
		return
	}
	logger.Info("服务已停止")
}
