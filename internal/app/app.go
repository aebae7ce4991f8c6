// Package app 根据配置组装存储、事件总线、告警引擎与HTTP服务
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	istorage "github.com/LENAX/alert-engine/internal/storage"
	"github.com/LENAX/alert-engine/pkg/api"
	"github.com/LENAX/alert-engine/pkg/config"
	"github.com/LENAX/alert-engine/pkg/core/cache"
	"github.com/LENAX/alert-engine/pkg/core/engine"
	"github.com/LENAX/alert-engine/pkg/core/events"
	"github.com/LENAX/alert-engine/pkg/core/policy"
	"github.com/LENAX/alert-engine/pkg/storage/sqlstore"
)

// App 进程内全部组件
type App struct {
	Config *config.EngineConfig
	Logger *zap.Logger
	Store  *sqlstore.Store
	Dedup  cache.DedupStore
	Bus    *events.Bus
	Engine *engine.Engine

	version string
}

// EngineOptions 把配置转换为引擎参数
func EngineOptions(cfg *config.EngineConfig) engine.Options {
	ae := cfg.AlertEngine
	fast, full, cleanup := cfg.JobSpecs()
	return engine.Options{
		DefaultAlertDays: ae.Policy.DefaultAlertDays,
		Cooldowns: policy.Cooldowns{
			policy.CategoryWarning:      ae.Policy.Cooldowns.Warning,
			policy.CategoryUrgent:       ae.Policy.Cooldowns.Urgent,
			policy.CategoryOverdue:      ae.Policy.Cooldowns.Overdue,
			policy.CategorySectionStart: ae.Policy.Cooldowns.SectionStart,
		},
		WorkerConcurrency: ae.Execution.WorkerConcurrency,
		CheckTimeout:      ae.Execution.CheckTimeout,
		DedupRetention:    ae.Dedup.Retention,
		Schedule: engine.ScheduleOptions{
			Enabled:      cfg.ScheduleEnabled(),
			FastSweep:    fast,
			FullSweep:    full,
			DedupCleanup: cleanup,
		},
	}
}

// New 组装组件，不启动任何后台任务
func New(cfg *config.EngineConfig, logger *zap.Logger, version string) (*App, error) {
	db := cfg.AlertEngine.Storage.Database
	store, err := istorage.OpenStore(db.Type, db.DSN, istorage.PoolOptions{
		MaxOpenConns:    db.MaxOpenConns,
		MaxIdleConns:    db.MaxIdleConns,
		ConnMaxLifetime: db.ConnMaxLifetime,
		ConnMaxIdleTime: db.ConnMaxIdleTime,
	})
	if err != nil {
		return nil, fmt.Errorf("打开存储失败: %w", err)
	}
	store.SetLogger(logger.Named("store"))

	var dedup cache.DedupStore
	if cfg.AlertEngine.Dedup.Backend == config.DedupBackendMemory {
		dedup = cache.NewMemoryDedupStore(time.Now)
	}

	bus, err := events.NewBus(logger)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("创建事件总线失败: %w", err)
	}

	deps := engine.DepsFromStore(store, dedup)
	deps.Events = bus
	deps.Subscriber = bus
	deps.Logger = logger

	eng, err := engine.NewEngine(deps, EngineOptions(cfg))
	if err != nil {
		bus.Close()
		store.Close()
		return nil, fmt.Errorf("创建告警引擎失败: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Dedup:   deps.Dedup,
		Bus:     bus,
		Engine:  eng,
		version: version,
	}, nil
}

// Run 启动引擎、事件总线与HTTP服务，阻塞到ctx取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	if err := a.Engine.Start(ctx); err != nil {
		return err
	}

	busErr := make(chan error, 1)
	go func() { busErr <- a.Bus.Run(ctx) }()
	select {
	case <-a.Bus.Running():
	case err := <-busErr:
		a.Engine.Stop()
		return fmt.Errorf("事件总线启动失败: %w", err)
	}

	// 未启用定时调度时仍需清理内存中的去重条目
	if !a.Config.ScheduleEnabled() {
		go cache.RunCleanup(ctx, a.Dedup, time.Hour, a.Config.AlertEngine.Dedup.Retention, time.Now, a.Logger.Named("dedup"))
	}

	apiCfg := a.Config.AlertEngine.API
	server := api.NewAPIServer(api.RouterDeps{
		Engine:    a.Engine,
		Store:     a.Store,
		Publisher: a.Bus,
		Logger:    a.Logger,
		Version:   a.version,
	}, api.ServerConfig{
		Host:         apiCfg.Host,
		Port:         apiCfg.Port,
		ReadTimeout:  apiCfg.ReadTimeout,
		WriteTimeout: apiCfg.WriteTimeout,
	})

	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Start() }()

	a.Logger.Info("✅ Alert Engine started",
		zap.String("instance", a.Config.AlertEngine.General.InstanceName),
		zap.String("addr", server.Addr()),
		zap.String("database", a.Config.GetDatabaseType()),
		zap.String("dedup_backend", a.Config.AlertEngine.Dedup.Backend))

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serverErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), apiCfg.WriteTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn("关闭API服务器失败", zap.Error(err))
	}
	a.Engine.Stop()
	return runErr
}

// Close 释放事件总线与存储
func (a *App) Close() error {
	return errors.Join(a.Bus.Close(), a.Store.Close())
}
