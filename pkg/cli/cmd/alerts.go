package cmd

import (
	"github.com/spf13/cobra"

	"github.com/LENAX/alert-engine/pkg/cli/client"
	"github.com/LENAX/alert-engine/pkg/cli/output"
)

var alertQuery client.AlertQuery

// alertsCmd alerts子命令
var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "告警查询命令",
}

// alertsListCmd 列出告警
var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "列出告警记录",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := client.New(serverURL).ListAlerts(alertQuery)
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(result)
		}
		if len(result.Items) == 0 {
			output.Info("暂无告警")
			return nil
		}

		table := output.NewTable("CREATED", "CATEGORY", "PRIORITY", "RECIPIENT", "WORKFLOW", "TITLE")
		for _, a := range result.Items {
			table.AddRow(
				a.CreateTime.Format("2006-01-02 15:04:05"),
				output.Category(string(a.Category)),
				string(a.Priority),
				a.RecipientID,
				a.WorkflowID,
				a.Title,
			)
		}
		table.Render()
		return nil
	},
}

// alertsSuppressedCmd 列出被拦截的告警
var alertsSuppressedCmd = &cobra.Command{
	Use:   "suppressed <workflow-id>",
	Short: "列出被阶段覆盖拦截的告警",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := client.New(serverURL).ListSuppressed(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(result)
		}
		if len(result.Items) == 0 {
			output.Info("暂无拦截记录")
			return nil
		}

		table := output.NewTable("CREATED", "PHASE", "CATEGORY", "OVERRIDE", "REASON", "TITLE")
		for _, s := range result.Items {
			table.AddRow(
				s.CreateTime.Format("2006-01-02 15:04:05"),
				s.Phase,
				output.Category(string(s.Category)),
				s.OverrideID,
				s.Reason,
				s.Title,
			)
		}
		table.Render()
		return nil
	},
}

func init() {
	f := alertsListCmd.Flags()
	f.StringVar(&alertQuery.WorkflowID, "workflow", "", "按工作流过滤")
	f.StringVar(&alertQuery.RecipientID, "recipient", "", "按通知对象过滤")
	f.StringVar(&alertQuery.Category, "category", "", "按类别过滤 (warning/urgent/overdue/section_start)")
	f.StringVar(&alertQuery.Status, "status", "", "按状态过滤 (active/acknowledged/dismissed/completed)")
	f.IntVar(&alertQuery.Limit, "limit", 50, "返回记录数量限制")

	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsSuppressedCmd)
}
