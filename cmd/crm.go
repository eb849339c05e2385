package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/warmline/internal/pipeline"
)

var crmPushFlags stageFlags

var crmCmd = &cobra.Command{
	Use:   "crm",
	Short: "CRM integration",
}

var crmPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Create or link a Salesforce lead for each drafted prospect",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStage(cmd, "crm", crmPushFlags.options(), (*pipeline.Pipeline).PushCRM)
	},
}

func init() {
	crmPushFlags.bind(crmPushCmd, "person")
	crmCmd.AddCommand(crmPushCmd)
	rootCmd.AddCommand(crmCmd)
}
