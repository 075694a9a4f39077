package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
)

func queryCMD(cfgPath *string) *cobra.Command {
	var output string
	var query = &cobra.Command{
		Use:   "query <kql>",
		Short: "Run a read-only KQL query against the telemetry database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			rows, err := a.advisor.Query(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, rows, func() string { return formatRows(rows) })
		},
	}
	query.PersistentFlags().StringVarP(&output, "output", "o", outputMarkdown, "output format: markdown, json or yaml")

	schema := &cobra.Command{
		Use:   "schema",
		Short: "Print the telemetry tables and their columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.advisor.Schema(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, s, s.Describe)
		},
	}
	query.AddCommand(schema)

	return query
}

func formatRows(rows []kusto.Row) string {
	if len(rows) == 0 {
		return "No rows."
	}
	colSet := map[string]struct{}{}
	for _, r := range rows {
		for k := range r {
			colSet[k] = struct{}{}
		}
	}
	cols := make([]string, 0, len(colSet))
	for k := range colSet {
		cols = append(cols, k)
	}
	sort.Strings(cols)

	var b strings.Builder
	fmt.Fprintf(&b, "| %s |\n|%s\n", strings.Join(cols, " | "), strings.Repeat("---|", len(cols)))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = r.String(c)
		}
		fmt.Fprintf(&b, "| %s |\n", strings.Join(cells, " | "))
	}
	fmt.Fprintf(&b, "\n%d rows\n", len(rows))
	return b.String()
}
