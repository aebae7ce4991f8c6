package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/alert-engine/pkg/cli/client"
	"github.com/LENAX/alert-engine/pkg/cli/output"
)

// checkCmd 立即检查单个工作流
var checkCmd = &cobra.Command{
	Use:   "check <workflow-id>",
	Short: "立即对单个工作流执行告警策略",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.New(serverURL).CheckWorkflow(args[0])
		if err != nil {
			output.Error("检查失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(res)
		}

		switch {
		case res.Orphaned:
			output.Warning("项目不存在，工作流 %s 已清理", res.WorkflowID)
		case res.Skipped:
			output.Info("工作流 %s 已完成，无需检查", res.WorkflowID)
		default:
			output.Success("工作流 %s 检查完成", res.WorkflowID)
			table := output.NewTable("ALERTS", "SUPPRESSED", "DEDUPED", "UNRESOLVED", "STEP_ERRORS")
			table.AddRow(fmt.Sprint(res.Alerts), fmt.Sprint(res.Suppressed), fmt.Sprint(res.Deduplicated),
				fmt.Sprint(res.Unresolved), fmt.Sprint(res.StepErrors))
			table.Render()
		}
		return nil
	},
}
