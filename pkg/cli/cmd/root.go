package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// 全局变量
	serverURL  string
	outputJSON bool
	configPath string
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "alert-engine",
	Short: "Alert Engine CLI - 工作流告警引擎命令行工具",
	Long: `Alert Engine 巡检施工项目工作流，对临期、超期与新开放的步骤生成告警。

支持的功能：
  - 启动告警引擎服务（定时巡检 + 事件触发 + HTTP API）
  - 本地执行一次全量或快速巡检
  - 通过HTTP API手动触发巡检、检查单个工作流、上报事件
  - 查询告警记录与被阶段覆盖拦截的告警

使用示例：
  # 启动服务
  alert-engine serve --config ./configs/alert-engine.yaml

  # 手动触发全量巡检
  alert-engine sweep trigger

  # 查看某个工作流的超期告警
  alert-engine alerts list --workflow wf-1 --category overdue`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8080", "Alert Engine服务器地址")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./configs/alert-engine.yaml", "配置文件路径（serve与sweep run使用）")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(alertsCmd)
	rootCmd.AddCommand(eventCmd)
	rootCmd.AddCommand(versionCmd)
}
