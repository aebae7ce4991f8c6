package cmd

import (
	"github.com/spf13/cobra"

	"github.com/LENAX/alert-engine/pkg/api/dto"
	"github.com/LENAX/alert-engine/pkg/cli/client"
	"github.com/LENAX/alert-engine/pkg/cli/output"
)

var eventReq dto.EventRequest

// eventCmd event子命令
var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "上报工作流状态变更事件",
}

// eventSendCmd 发送事件
var eventSendCmd = &cobra.Command{
	Use:   "send <type> <workflow-id>",
	Short: "发送事件 (step.completed/project.created/workflow.changed)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		eventReq.Type = args[0]
		eventReq.WorkflowID = args[1]

		res, err := client.New(serverURL).PublishEvent(eventReq)
		if err != nil {
			output.Error("发送失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(res)
		}
		output.Success("事件已受理: %s (%s)", res.EventID, res.Type)
		return nil
	},
}

func init() {
	eventSendCmd.Flags().StringVar(&eventReq.StepID, "step", "", "关联步骤ID")
	eventSendCmd.Flags().StringVar(&eventReq.ProjectID, "project", "", "关联项目ID")

	eventCmd.AddCommand(eventSendCmd)
}
