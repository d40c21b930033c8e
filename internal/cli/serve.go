package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/pkg/stubserver"
)

// serveOptions holds flags for the serve command.
type serveOptions struct {
	addr       string
	seed       uint64
	failFirst  int
	failStatus int
	delay      time.Duration
	malformed  bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a simulated backend",
		Long: `Run a simulated prediction backend with generated data.

The fault flags make it fail, slow down or corrupt responses so the retry,
cache and fallback behaviour of the client can be observed.`,
		Example: `  footpredict serve --addr :5000 --fail-first 3
  footpredict --base-url http://localhost:5000 live`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", ":5000", "listen address")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for generated data (0 picks one at random)")
	cmd.Flags().IntVar(&opts.failFirst, "fail-first", 0, "fail this many requests before serving normally")
	cmd.Flags().IntVar(&opts.failStatus, "fail-status", http.StatusServiceUnavailable, "status code of injected failures")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "delay added to every response")
	cmd.Flags().BoolVar(&opts.malformed, "malformed", false, "answer with bodies that are not JSON")

	return cmd
}

func (c *CLI) runServe(cmd *cobra.Command, opts serveOptions) error {
	ctx := cmd.Context()
	logger := commandLogger(cmd)

	handler := stubserver.New(stubserver.Options{
		Seed:       opts.seed,
		FailFirst:  opts.failFirst,
		FailStatus: opts.failStatus,
		Delay:      opts.delay,
		Malformed:  opts.malformed,
		Logger:     logger,
	})

	ln, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	printSuccess("Simulated backend listening on %s", StyleHighlight.Render("http://"+ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down", "hits", handler.TotalHits())
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
