package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/warmline/internal/contacts"
	"github.com/sells-group/warmline/internal/pipeline"
)

var (
	enrichFlags       stageFlags
	enrichConnections string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich discovered prospects from Apollo and a contact export",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := enrichFlags.options()
		if enrichConnections != "" {
			conns, err := contacts.Load(enrichConnections)
			if err != nil {
				return eris.Wrap(err, "load connections")
			}
			zap.L().Info("connections loaded", zap.Int("count", len(conns)))
			opts.Connections = conns
		}
		return runStage(cmd, "enrich", opts, (*pipeline.Pipeline).Enrich)
	},
}

func init() {
	enrichFlags.bind(enrichCmd, "person")
	enrichCmd.Flags().StringVar(&enrichConnections, "connections", "", "path to a contact export (CSV or XLSX)")
	rootCmd.AddCommand(enrichCmd)
}
