// Package cmd defines and implements the CLI commands for the planscraper
// executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/lto-plan-scraper/internal/app"
	"github.com/JakeFAU/lto-plan-scraper/internal/config"
	"github.com/JakeFAU/lto-plan-scraper/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// skipAppAnnotation marks commands that run without application services.
const skipAppAnnotation = "planscraper/skip-app"

// rootFlags holds the persistent flags shared by every command.
type rootFlags struct {
	configPath string
	progress   string
	dryRun     bool
}

// appFactory builds the application services for a command invocation.
type appFactory func(ctx context.Context, flags rootFlags, errOut io.Writer) (*app.App, error)

// newApp is the production factory.
func newApp(ctx context.Context, flags rootFlags, errOut io.Writer) (*app.App, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.progress != "" {
		cfg.Progress.Mode = flags.progress
	}
	if flags.dryRun {
		cfg.Export.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger, app.Options{Out: errOut})
}

// newRootCmd creates and configures the root command around factory, so
// tests can swap in services backed by fakes. The returned func closes the
// services a command built; it is safe to call when none were.
func newRootCmd(factory appFactory) (*cobra.Command, func(context.Context)) {
	var (
		flags       rootFlags
		appInstance *app.App
	)
	closeApp := func(ctx context.Context) {
		if appInstance != nil {
			appInstance.Close(ctx)
			appInstance = nil
		}
	}

	cmd := &cobra.Command{
		Use:   "planscraper",
		Short: "Collects plan records from the Manitoba Land Titles Office.",
		Long: `planscraper searches the LTO "plans by parish/settlement/lot" pages,
merges and orders the plan records it finds, and saves them as CSV or Parquet.

Run "search" for one lot type and parish, or "all" to sweep every lot type
and parish for a lot number.`,
		SilenceUsage: true,

		// Builds the application services and stores them in the context
		// before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipAppAnnotation] != "" {
				return nil
			}
			built, err := factory(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			appInstance = built
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, built))
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default is ./planscraper.yaml or $HOME/.planscraper/planscraper.yaml)")
	pf.StringVar(&flags.progress, "progress", "", "progress output: spinner, log or none (overrides progress.mode)")
	pf.BoolVar(&flags.dryRun, "dry-run", false, "keep exports in memory instead of saving them")

	cmd.AddCommand(
		newSearchCmd(),
		newAllCmd(),
		newListCmd(),
		newCheckCmd(),
	)
	return cmd, closeApp
}

// Execute is the main entry point.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, closeApp := newRootCmd(newApp)
	err := root.ExecuteContext(ctx)
	// Post-run hooks do not run when RunE fails.
	closeApp(context.WithoutCancel(ctx))
	if err != nil {
		stop()
		os.Exit(1)
	}
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}
