// Package cli implements indexctl, the command-line interface to the index
// lifecycle operations.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	infraconfig "github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/config"
	"github.com/jonesrussell/north-cloud/index-lifecycle/infrastructure/logger"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/service"
)

// ServiceFactory builds the service for one command run. The returned
// cleanup func is always non-nil on success.
type ServiceFactory func(ctx context.Context, configPath string, debug bool) (*service.IndexService, func(), error)

type app struct {
	configPath string
	debug      bool
	factory    ServiceFactory
}

// NewRootCommand creates the indexctl command tree. A nil factory uses the
// configured clusters and history store.
func NewRootCommand(factory ServiceFactory) *cobra.Command {
	if factory == nil {
		factory = DefaultServiceFactory
	}
	a := &app{factory: factory}

	root := &cobra.Command{
		Use:           "indexctl",
		Short:         "Manage Elasticsearch index lifecycles",
		Long:          `Create, swap, reset and inspect the physical indices behind configured index aliases.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", infraconfig.GetConfigPath(bootstrap.DefaultConfigPath),
		"config file (default is $CONFIG_PATH or ./config.yml)")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		a.createCmd(),
		a.deleteCmd(),
		a.swapCmd(),
		a.mappingCmd(),
		a.resetCmd(),
		a.statusCmd(),
		a.listCmd(),
		a.waitCmd(),
		a.historyCmd(),
	)
	return root
}

// Execute runs indexctl with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand(nil).ExecuteContext(ctx)
}

// DefaultServiceFactory loads the config file and wires the service the
// same way the HTTP service does, minus metrics. Logs go to stderr.
func DefaultServiceFactory(ctx context.Context, configPath string, debug bool) (*service.IndexService, func(), error) {
	cfg, err := bootstrap.LoadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	log, err := logger.New(logger.Config{
		Level:       level,
		Format:      logger.FormatConsole,
		Development: debug,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	components, err := bootstrap.SetupComponents(ctx, cfg, configPath, log, false)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		components.Close(log)
		_ = log.Sync()
	}
	return components.Service, cleanup, nil
}

// withService runs fn against a freshly built service.
func (a *app) withService(cmd *cobra.Command, fn func(ctx context.Context, svc *service.IndexService) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, cleanup, err := a.factory(ctx, a.configPath, a.debug)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := fn(ctx, svc)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
