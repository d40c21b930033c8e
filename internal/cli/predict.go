package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/pkg/config"
	"github.com/matzehuels/footpredict/pkg/integrations/footpredict"
	"github.com/matzehuels/footpredict/pkg/refresh"
)

// predictOptions holds flags for the predict command.
type predictOptions struct {
	home   string
	away   string
	league string
	watch  bool
}

// predictCommand creates the predict command.
func (c *CLI) predictCommand() *cobra.Command {
	opts := predictOptions{}

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the outcome of a match",
		Long: `Predict the outcome of a match.

Predictions are always requested from the backend. When the backend cannot
be reached, a placeholder prediction is shown and marked as such.`,
		Example: `  footpredict predict --home Arsenal --away Chelsea --league "Premier League"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPredict(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.home, "home", "", "home team")
	cmd.Flags().StringVar(&opts.away, "away", "", "away team")
	cmd.Flags().StringVar(&opts.league, "league", "", "league the match is played in")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "repeat the prediction every prediction_interval until interrupted")
	_ = cmd.MarkFlagRequired("home")
	_ = cmd.MarkFlagRequired("away")
	_ = cmd.MarkFlagRequired("league")
	_ = cmd.RegisterFlagCompletionFunc("league", c.completeLeagues)
	_ = cmd.RegisterFlagCompletionFunc("home", c.completeTeams)
	_ = cmd.RegisterFlagCompletionFunc("away", c.completeTeams)

	return cmd
}

func (c *CLI) runPredict(cmd *cobra.Command, opts predictOptions) error {
	ctx := cmd.Context()
	client, cfg, err := c.newClient(nil)
	if err != nil {
		return err
	}

	req := footpredict.PredictionRequest{HomeTeam: opts.home, AwayTeam: opts.away, League: opts.league}
	logger := commandLogger(cmd)
	predict := func(ctx context.Context) error {
		prog := newProgress(logger, config.OpPredict)
		p, err := client.PredictMatch(ctx, req)
		if err != nil {
			return prog.failed(err)
		}
		prog.done(p.Meta)
		return c.renderPrediction(p)
	}
	if err := predict(ctx); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	r, err := refresh.New(cfg.PredictionInterval, predict,
		refresh.WithLogger(logger), refresh.WithName("predict"))
	if err != nil {
		return err
	}
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	<-ctx.Done()
	return ctx.Err()
}

func (c *CLI) renderPrediction(p *footpredict.Prediction) error {
	if c.jsonOut {
		return printJSON(p)
	}

	if p.Fallback() {
		printWarning("Backend unavailable, showing placeholder prediction")
	}
	printSuccess("%s vs %s", StyleHighlight.Render(p.Match.HomeTeam), StyleHighlight.Render(p.Match.AwayTeam))
	printKeyValue("League", p.Match.League)
	printKeyValue("Prediction", p.Prediction)
	printKeyValue("Confidence", percent(p.Confidence))
	printNewline()
	printKeyValue("Home win", percent(p.Probabilities.HomeWin))
	printKeyValue("Draw", percent(p.Probabilities.Draw))
	printKeyValue("Away win", percent(p.Probabilities.AwayWin))
	printNewline()
	printKeyValue("xG", fmt.Sprintf("%.1f - %.1f", p.Analysis.ExpectedGoalsHome, p.Analysis.ExpectedGoalsAway))
	printKeyValue("BTTS", percent(p.Analysis.BothTeamsScoreProb))
	printKeyValue("Over 2.5", percent(p.Analysis.Over25GoalsProb))
	if len(p.Analysis.KeyFactors) > 0 {
		printInfo("Key factors")
		for _, f := range p.Analysis.KeyFactors {
			printItem(f)
		}
	}
	printMeta(p.Meta)
	if p.Err != nil {
		printDetail("cause: %s", p.Err)
	}
	return nil
}

func percent(v float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", v), ".0") + "%"
}
