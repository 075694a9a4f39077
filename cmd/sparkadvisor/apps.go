package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/kusto"
)

func appsCMD(cfgPath *string) *cobra.Command {
	var output string
	var apps = &cobra.Command{
		Use:   "apps",
		Short: "Find applications by telemetry signals",
	}
	apps.PersistentFlags().StringVarP(&output, "output", "o", outputMarkdown, "output format: markdown, json or yaml")

	// withAdvisor runs fn against a short-lived advisor built from the config.
	withAdvisor := func(cmd *cobra.Command, fn func(ctx context.Context, adv *advisor.Advisor) error) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, *cfgPath, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a.advisor)
	}

	var minViolations int
	bad := &cobra.Command{
		Use:   "bad",
		Short: "Applications with at least --min recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.FindBadApplications(ctx, minViolations)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return advisor.FormatBadApps(res) })
			})
		},
	}
	bad.Flags().IntVar(&minViolations, "min", 3, "minimum number of violations")

	var hours int
	recent := &cobra.Command{
		Use:   "recent",
		Short: "Applications seen in the last --hours",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.FindRecentApplications(ctx, hours)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return advisor.FormatRecentApps(res, hours) })
			})
		},
	}
	recent.Flags().IntVar(&hours, "hours", 24, "look-back window in hours")

	var minScore float64
	healthy := &cobra.Command{
		Use:   "healthy",
		Short: "Applications whose efficiency score is at least --min-score",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.FindHealthyApplications(ctx, minScore)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return advisor.FormatHealthyApps(res) })
			})
		},
	}
	healthy.Flags().Float64Var(&minScore, "min-score", 0.7, "minimum executor efficiency (0-1)")

	pattern := &cobra.Command{
		Use:       "pattern <" + strings.Join(advisor.Patterns, "|") + ">",
		Short:     "Applications matching a performance pattern",
		Args:      cobra.ExactArgs(1),
		ValidArgs: advisor.Patterns,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.FindApplicationsByPattern(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return advisor.FormatPatternApps(args[0], res) })
			})
		},
	}

	var top int
	worst := &cobra.Command{
		Use:   "worst",
		Short: "Applications with the most recommendations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.WorstApplications(ctx, top)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return formatWorst(res) })
			})
		},
	}
	worst.Flags().IntVar(&top, "top", 10, "number of applications")

	patterns := &cobra.Command{
		Use:   "patterns",
		Short: "Recommendations shared by the most applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.CommonBadPatterns(ctx)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return formatPatterns(res) })
			})
		},
	}

	category := &cobra.Command{
		Use:       "category <name>",
		Short:     "Telemetry recommendations matching a category (" + strings.Join(kusto.Categories(), ", ") + ")",
		Args:      cobra.ExactArgs(1),
		ValidArgs: kusto.Categories(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.RecommendationsByCategory(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return formatCategory(args[0], res) })
			})
		},
	}

	report := &cobra.Command{
		Use:   "report <application-id>",
		Short: "Every telemetry record for one application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withAdvisor(cmd, func(ctx context.Context, adv *advisor.Advisor) error {
				res, err := adv.Report(ctx, args[0])
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), output, res, func() string { return formatReport(args[0], res) })
			})
		},
	}

	apps.AddCommand(bad, recent, healthy, pattern, worst, patterns, category, report)
	return apps
}

func formatWorst(apps []kusto.WorstApp) string {
	if len(apps) == 0 {
		return "No applications with recommendations found."
	}
	var b strings.Builder
	b.WriteString("| Application | Recommendations |\n|---|---|\n")
	for _, app := range apps {
		fmt.Fprintf(&b, "| `%s` | %d |\n", app.AppID, app.RecommendationCount)
	}
	return b.String()
}

func formatPatterns(patterns []kusto.Pattern) string {
	if len(patterns) == 0 {
		return "No common patterns found."
	}
	var b strings.Builder
	b.WriteString("| Affected Apps | Recommendation |\n|---|---|\n")
	for _, p := range patterns {
		fmt.Fprintf(&b, "| %d | %s |\n", p.AffectedApps, strings.ReplaceAll(p.Recommendation, "\n", " "))
	}
	return b.String()
}

func formatCategory(name string, matches []kusto.CategoryMatch) string {
	if len(matches) == 0 {
		return fmt.Sprintf("No recommendations found for category %q.", name)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "# Category: %s (%d)\n\n", name, len(matches))
	b.WriteString("| Application | Source | Recommendation |\n|---|---|---|\n")
	for _, m := range matches {
		fmt.Fprintf(&b, "| `%s` | %s | %s |\n", m.AppID, m.Source, strings.ReplaceAll(m.Recommendation, "\n", " "))
	}
	return b.String()
}

func formatReport(appID string, r kusto.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Telemetry report: `%s`\n\n", appID)
	section := func(title string, recs []kusto.Recommendation) {
		fmt.Fprintf(&b, "## %s (%d)\n\n", title, len(recs))
		for i, r := range recs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r.Recommendation)
		}
		b.WriteString("\n")
	}
	section("Sparklens recommendations", r.Recommendations)
	section("Fabric recommendations", r.FabricRecommendations)
	fmt.Fprintf(&b, "## Stages: %d\n\n## Scaling predictions: %d\n", len(r.Stages), len(r.Predictions))
	return b.String()
}
