package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/pkg/config"
)

// leaguesCommand creates the leagues command.
func (c *CLI) leaguesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "leagues",
		Short: "List the leagues the backend can predict",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := c.newClient(nil)
			if err != nil {
				return err
			}

			prog := newProgress(commandLogger(cmd), config.OpLeagues)
			l, err := client.GetLeagues(cmd.Context())
			if err != nil {
				return prog.failed(err)
			}
			prog.done(l.Meta)

			if c.jsonOut {
				return printJSON(l)
			}
			printSuccess("%s leagues", StyleNumber.Render(fmt.Sprint(len(l.Leagues))))
			for _, league := range l.Leagues {
				line := league.Name
				if league.Country != "" {
					line += StyleDim.Render(" (" + league.Country + ")")
				}
				printItem(line)
			}
			printMeta(l.Meta)
			return nil
		},
	}
}

// teamsCommand creates the teams command.
func (c *CLI) teamsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "teams <league>",
		Short: "List the teams of a league",
		Long: `List the teams of a league.

The league may be given in several words without quoting:

  footpredict teams La Liga`,
		Args:              cobra.MinimumNArgs(1),
		ValidArgsFunction: c.completeLeagues,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := c.newClient(nil)
			if err != nil {
				return err
			}

			prog := newProgress(commandLogger(cmd), config.OpTeams)
			t, err := client.GetTeams(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return prog.failed(err)
			}
			prog.done(t.Meta)

			if c.jsonOut {
				return printJSON(t)
			}
			printSuccess("%s teams in %s", StyleNumber.Render(fmt.Sprint(len(t.Teams))), StyleHighlight.Render(t.League))
			for _, team := range t.Teams {
				printItem(team)
			}
			printMeta(t.Meta)
			return nil
		},
	}
}
