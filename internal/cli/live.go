package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/internal/metrics"
	"github.com/matzehuels/footpredict/pkg/config"
	"github.com/matzehuels/footpredict/pkg/integrations/footpredict"
	"github.com/matzehuels/footpredict/pkg/observability"
	"github.com/matzehuels/footpredict/pkg/refresh"
)

// liveOptions holds flags for the live command.
type liveOptions struct {
	refresh     bool
	watch       bool
	interval    time.Duration
	metricsAddr string
}

// liveCommand creates the live command.
func (c *CLI) liveCommand() *cobra.Command {
	opts := liveOptions{}

	cmd := &cobra.Command{
		Use:   "live",
		Short: "Show matches in progress",
		Long: `Show matches in progress.

With --watch the list is refetched every interval until interrupted. When the
backend fails, the last good list stays on screen and is marked stale.`,
		Example: `  footpredict live
  footpredict live --watch --interval 10s --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runLive(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the cache for the first fetch")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "keep refreshing until interrupted")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "refresh interval for --watch (default from config)")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while watching")

	return cmd
}

func (c *CLI) runLive(cmd *cobra.Command, opts liveOptions) error {
	ctx := cmd.Context()
	logger := commandLogger(cmd)

	var hooks observability.Hooks
	if opts.metricsAddr != "" {
		h, stop, err := serveMetrics(ctx, opts.metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
		logger.Info("Serving metrics", "addr", opts.metricsAddr)
		hooks = h
	}

	client, cfg, err := c.newClient(hooks)
	if err != nil {
		return err
	}

	fetch := func(ctx context.Context, force bool) error {
		prog := newProgress(logger, config.OpLiveMatches)
		m, err := client.GetLiveMatches(ctx, force)
		if err != nil {
			return prog.failed(err)
		}
		prog.done(m.Meta)
		return c.renderLive(m)
	}
	if err := fetch(ctx, opts.refresh); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	interval := opts.interval
	if interval <= 0 {
		interval = cfg.RefreshInterval
	}
	r, err := refresh.New(interval, func(ctx context.Context) error {
		if err := fetch(ctx, true); err != nil {
			printError("Refresh failed: %s", errorMessage(err))
			return err
		}
		return nil
	}, refresh.WithLogger(logger), refresh.WithName("live-matches"))
	if err != nil {
		return err
	}
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	logger.Info("Watching live matches", "interval", interval)
	<-ctx.Done()
	return ctx.Err()
}

func (c *CLI) renderLive(m *footpredict.LiveMatches) error {
	if c.jsonOut {
		return printJSON(m)
	}
	if len(m.Matches) == 0 {
		printInfo("No live matches")
		printMeta(m.Meta)
		return nil
	}

	printSuccess("%s live matches", StyleNumber.Render(fmt.Sprint(len(m.Matches))))
	for _, match := range m.Matches {
		line := fmt.Sprintf("%s %s %s", match.HomeTeam, StyleHighlight.Render(match.Score), match.AwayTeam)
		var extra string
		if match.Minute > 0 {
			extra = fmt.Sprintf(" %d'", match.Minute)
		}
		if match.League != "" {
			extra += " " + match.League
		}
		printItem(line + StyleDim.Render(extra))
	}
	printMeta(m.Meta)
	return nil
}

// serveMetrics exposes a fresh Prometheus registry on addr until the
// returned stop function is called.
func serveMetrics(ctx context.Context, addr string) (*metrics.Hooks, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("metrics listener: %w", err)
	}

	reg := prometheus.NewRegistry()
	hooks := metrics.NewHooks(reg)
	srv := &http.Server{Handler: metrics.Handler(reg), ReadHeaderTimeout: 5 * time.Second}

	logger := loggerFromContext(ctx)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Warn("metrics server stopped", "err", err)
		}
	}()

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
	return hooks, stop, nil
}
