package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/LENAX/alert-engine/internal/app"
	"github.com/LENAX/alert-engine/pkg/cli/client"
	"github.com/LENAX/alert-engine/pkg/cli/output"
	"github.com/LENAX/alert-engine/pkg/config"
	"github.com/LENAX/alert-engine/pkg/core/engine"
	"github.com/LENAX/alert-engine/pkg/logging"
)

var sweepMode string

// sweepCmd sweep子命令
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "巡检命令",
	Long:  `本地执行一次巡检，或通过HTTP API触发服务端巡检。`,
}

// sweepRunCmd 直接连接数据库执行一次巡检
var sweepRunCmd = &cobra.Command{
	Use:   "run",
	Short: "本地执行一次巡检（不启动服务）",
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := engine.Mode(sweepMode)
		if mode != engine.ModeFull && mode != engine.ModeFast {
			return fmt.Errorf("未知的巡检模式: %s", sweepMode)
		}

		cfg, err := config.LoadFrameworkConfig(configPath)
		if err != nil {
			output.Error("加载配置失败: %v", err)
			return err
		}
		logger, err := logging.New(cfg.AlertEngine.General.LogLevel, cfg.AlertEngine.General.Env)
		if err != nil {
			return err
		}
		defer logger.Sync()

		a, err := app.New(cfg, logger, Version)
		if err != nil {
			output.Error("创建告警引擎失败: %v", err)
			return err
		}
		defer a.Close()

		report, err := runSweep(cmd.Context(), a.Engine, mode)
		if err != nil {
			output.Error("巡检失败: %v", err)
			return err
		}
		logger.Debug("巡检报告", zap.Any("report", report))
		return printReport(report)
	},
}

// sweepTriggerCmd 通过API触发服务端全量巡检
var sweepTriggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "触发服务端全量巡检（后台执行）",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.New(serverURL).TriggerSweep()
		if err != nil {
			output.Error("触发失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(res)
		}
		output.Success("全量巡检已受理: %s", res.AcceptedAt.Format(time.RFC3339))
		return nil
	},
}

// sweepStatusCmd 查看巡检状态与定时任务
var sweepStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "查看巡检运行状态与定时任务",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, err := client.New(serverURL).SweepStatus()
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(status)
		}

		output.Info("全量巡检运行中: %t  快速巡检运行中: %t", status.FullRunning, status.FastRunning)
		if len(status.Jobs) == 0 {
			output.Warning("定时调度未启用")
			return nil
		}
		table := output.NewTable("JOB", "SPEC", "NEXT", "PREV")
		for _, j := range status.Jobs {
			table.AddRow(j.Name, j.Spec, formatTime(j.Next), formatTime(j.Prev))
		}
		table.Render()
		return nil
	},
}

func runSweep(ctx context.Context, eng *engine.Engine, mode engine.Mode) (*engine.SweepReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if mode == engine.ModeFast {
		return eng.RunFastSweep(ctx)
	}
	return eng.RunFullSweep(ctx)
}

func printReport(r *engine.SweepReport) error {
	if outputJSON {
		return output.PrintJSON(r)
	}
	output.Success("%s巡检完成，耗时 %s", r.Mode, r.Duration().Round(time.Millisecond))
	table := output.NewTable("WORKFLOWS", "CHECKED", "FAILED", "ORPHANS", "ALERTS", "SUPPRESSED", "DEDUPED", "UNRESOLVED", "STEP_ERRORS")
	table.AddRow(
		fmt.Sprint(r.Workflows), fmt.Sprint(r.Checked), fmt.Sprint(r.Failed), fmt.Sprint(r.Orphans),
		fmt.Sprint(r.Alerts), fmt.Sprint(r.Suppressed), fmt.Sprint(r.Deduplicated),
		fmt.Sprint(r.Unresolved), fmt.Sprint(r.StepErrors),
	)
	table.Render()
	if r.Failed > 0 {
		output.Warning("%d 个工作流检查失败，将在下一轮重试", r.Failed)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func init() {
	sweepRunCmd.Flags().StringVarP(&sweepMode, "mode", "m", string(engine.ModeFull), "巡检模式 (full/fast)")

	sweepCmd.AddCommand(sweepRunCmd)
	sweepCmd.AddCommand(sweepTriggerCmd)
	sweepCmd.AddCommand(sweepStatusCmd)
}
