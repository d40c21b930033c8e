package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// completionGenerators writes the completion script for each supported shell.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        (*cobra.Command).GenZshCompletion,
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": (*cobra.Command).GenPowerShellCompletionWithDesc,
}

func completionShells() []string {
	shells := make([]string, 0, len(completionGenerators))
	for s := range completionGenerators {
		shells = append(shells, s)
	}
	sort.Strings(shells)
	return shells
}

// completionCommand creates the completion command. League and team names
// complete from the backend, so the generated scripts call back into
// footpredict with the same --base-url and --config flags.
func (c *CLI) completionCommand() *cobra.Command {
	shells := completionShells()
	return &cobra.Command{
		Use:   "completion <" + strings.Join(shells, "|") + ">",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for footpredict.

Besides commands and flags, league names ("teams", "predict --league") and
team names ("predict --home/--away", once --league is set) complete from
the backend.

  $ source <(footpredict completion bash)
  $ footpredict completion zsh > "${fpath[1]}/_footpredict"
  $ footpredict completion fish > ~/.config/fish/completions/footpredict.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             shells,
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root(), stdout)
		},
	}
}

// completeLeagues offers league names from the backend. Failures yield no
// suggestions rather than an error.
func (c *CLI) completeLeagues(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	client, _, err := c.newClient(nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	l, err := client.GetLeagues(cmd.Context())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return matchPrefix(l.Names(), toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeTeams offers the teams of the league given by --league.
func (c *CLI) completeTeams(cmd *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	league, _ := cmd.Flags().GetString("league")
	if league == "" {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	client, _, err := c.newClient(nil)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	t, err := client.GetTeams(cmd.Context(), league)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return matchPrefix(t.Teams, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func matchPrefix(names []string, prefix string) []string {
	var out []string
	for _, n := range names {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(prefix)) {
			out = append(out, n)
		}
	}
	return out
}
