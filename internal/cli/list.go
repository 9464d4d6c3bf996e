package cli

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/jonesrussell/north-cloud/index-lifecycle/internal/service"
)

func (a *app) listCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List index definitions with their cluster state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(cmd, func(ctx context.Context, svc *service.IndexService) (any, error) {
				statuses, err := svc.List(ctx)
				if err != nil {
					return nil, err
				}
				if asJSON {
					return statuses, nil
				}
				renderTable(cmd.OutOrStdout(), statuses)
				return nil, nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

// renderTable writes one row per definition.
func renderTable(w io.Writer, statuses []*service.IndexStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	t.AppendHeader(table.Row{"Name", "Cluster", "Alias", "Exists", "Indices", "Mapping"})
	for _, st := range statuses {
		indices := "-"
		if len(st.Indices) > 0 {
			indices = strings.Join(st.Indices, ", ")
		}
		t.AppendRow(table.Row{
			st.Name,
			st.Cluster,
			st.Index,
			strconv.FormatBool(st.Exists),
			indices,
			st.MappingVersion,
		})
	}
	t.Render()
}
