package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/pkg/config"
)

// healthCommand creates the health command.
func (c *CLI) healthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check whether the backend is up",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := c.newClient(nil)
			if err != nil {
				return err
			}

			prog := newProgress(commandLogger(cmd), config.OpHealth)
			h, err := client.CheckHealth(cmd.Context())
			if err != nil {
				return prog.failed(err)
			}
			prog.done(h.Meta)

			if c.jsonOut {
				return printJSON(h)
			}
			if h.Healthy() {
				printSuccess("Backend is %s", StyleHighlight.Render(h.Status))
			} else {
				printWarning("Backend reports status %q", h.Status)
			}
			printKeyValue("Backend", cfg.BaseURL)
			if h.Timestamp != "" {
				printKeyValue("Timestamp", h.Timestamp)
			}
			printMeta(h.Meta)
			return nil
		},
	}
}
