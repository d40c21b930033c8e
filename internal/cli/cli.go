// Package cli implements the footpredict command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/footpredict/pkg/buildinfo"
	"github.com/matzehuels/footpredict/pkg/cache"
	"github.com/matzehuels/footpredict/pkg/config"
	"github.com/matzehuels/footpredict/pkg/errors"
	"github.com/matzehuels/footpredict/pkg/integrations"
	"github.com/matzehuels/footpredict/pkg/integrations/footpredict"
	"github.com/matzehuels/footpredict/pkg/observability"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used in help output.
const appName = "footpredict"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	baseURL    string
	production bool
	noCache    bool
	jsonOut    bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "footpredict queries a football prediction backend",
		Long:         `footpredict is a resilient client for a football match prediction API. It retries failed requests, caches responses and falls back to stale data when the backend is unavailable.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&c.baseURL, "base-url", "", "backend address (overrides config)")
	flags.BoolVar(&c.production, "production", false, "use the production backend "+config.ProductionURL)
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the response cache")
	flags.BoolVar(&c.jsonOut, "json", false, "print results as JSON")
	root.MarkFlagsMutuallyExclusive("base-url", "production")

	// Register all subcommands
	root.AddCommand(c.healthCommand())
	root.AddCommand(c.leaguesCommand())
	root.AddCommand(c.teamsCommand())
	root.AddCommand(c.liveCommand())
	root.AddCommand(c.predictCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Client Factory
// =============================================================================

// loadConfig assembles the configuration from file, environment and flags.
func (c *CLI) loadConfig() (config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return config.Config{}, err
	}
	switch {
	case c.baseURL != "":
		cfg.BaseURL = c.baseURL
	case c.production:
		cfg.BaseURL = config.ProductionURL
	}
	return cfg, cfg.Validate()
}

// newClient creates a backend client for CLI use. hooks may be nil.
func (c *CLI) newClient(hooks observability.Hooks) (*footpredict.Client, config.Config, error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	c.Logger.Debug("config", "summary", cfg.String())

	opts := []integrations.Option{integrations.WithLogger(c.Logger)}
	if c.noCache {
		opts = append(opts, integrations.WithCache(cache.NewNullCache()))
	}
	if hooks != nil {
		opts = append(opts, integrations.WithHooks(hooks))
	}
	client, err := footpredict.NewClient(cfg, opts...)
	if err != nil {
		return nil, config.Config{}, err
	}
	return client, cfg, nil
}

// errorMessage renders err for display, e.g. "leagues failed after 3 attempts".
func errorMessage(err error) string {
	return errors.UserMessage(err)
}
