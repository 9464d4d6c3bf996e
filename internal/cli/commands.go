package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/service"
)

func (a *app) createCmd() *cobra.Command {
	var (
		suffix    string
		skipAlias bool
	)
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a physical index for a definition",
		Long: `Create a physical index named {prefix}_{name}_{suffix}. Without --suffix ` +
			`a timestamp is used. The canonical alias is attached unless --skip-alias is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				return svc.Create(ctx, args[0], suffix, skipAlias)
			})
		},
	}
	cmd.Flags().StringVar(&suffix, "suffix", "", "physical index suffix (default: timestamp)")
	cmd.Flags().BoolVar(&skipAlias, "skip-alias", false, "do not attach the canonical alias")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var suffix string
	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a physical index, or everything behind the canonical name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				return svc.Delete(ctx, args[0], suffix)
			})
		},
	}
	cmd.Flags().StringVar(&suffix, "suffix", "", "physical index suffix (default: canonical name)")
	return cmd
}

func (a *app) swapCmd() *cobra.Command {
	var suffix string
	cmd := &cobra.Command{
		Use:   "swap NAME",
		Short: "Point the canonical alias at one physical index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				return svc.Swap(ctx, args[0], suffix)
			})
		},
	}
	cmd.Flags().StringVar(&suffix, "suffix", "", "suffix of the index that receives the alias")
	_ = cmd.MarkFlagRequired("suffix")
	return cmd
}

func (a *app) mappingCmd() *cobra.Command {
	var suffix string
	cmd := &cobra.Command{
		Use:   "mapping NAME",
		Short: "Put the definition's mapping on an existing index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				return svc.UpdateMapping(ctx, args[0], suffix)
			})
		},
	}
	cmd.Flags().StringVar(&suffix, "suffix", "", "physical index suffix (default: definition version, then canonical name)")
	return cmd
}

func (a *app) resetCmd() *cobra.Command {
	var (
		suffix       string
		keepPrevious bool
	)
	cmd := &cobra.Command{
		Use:   "reset NAME",
		Short: "Create a new index, move the alias to it and drop the old ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				return svc.Reset(ctx, args[0], suffix, keepPrevious)
			})
		},
	}
	cmd.Flags().StringVar(&suffix, "suffix", "", "suffix of the new index (default: timestamp)")
	cmd.Flags().BoolVar(&keepPrevious, "keep-previous", false, "keep the indices that held the alias before")
	return cmd
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status NAME",
		Short: "Show the indices and aliases behind a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				return svc.Status(ctx, args[0])
			})
		},
	}
}

func (a *app) waitCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "wait [CLUSTER]",
		Short: "Wait for a cluster health status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clusterID := ""
			if len(args) == 1 {
				clusterID = args[0]
			}
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				resp, err := svc.WaitForCluster(ctx, clusterID, status)
				if err != nil || resp == nil {
					return nil, err
				}
				return resp, nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "green, yellow or red (default: the cluster's wait_for_status)")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history NAME",
		Short: "Show recorded lifecycle operations for a definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				return svc.History(ctx, args[0], limit)
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum entries (default: service.history_limit)")
	return cmd
}
