package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sparkadvisor/internal/store"
)

func feedbackCMD(cfgPath *string) *cobra.Command {
	var sessionID, appID string
	var feedback = &cobra.Command{
		Use:   "feedback <HELPFUL|NOT HELPFUL|PARTIAL> [comment]",
		Short: "Rate the last analysis of a session (or an application)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			f, ok := a.advisor.FeedbackFromMessage(ctx, sessionID, strings.Join(args, " "))
			if !ok {
				return fmt.Errorf("feedback must start with HELPFUL, NOT HELPFUL or PARTIAL")
			}
			if appID != "" {
				f.ApplicationID = appID
			}
			id, err := a.advisor.SubmitFeedback(ctx, f)
			if err != nil {
				return err
			}
			cmd.Printf("feedback %d recorded as %s\n", id, f.Type)
			return nil
		},
	}
	feedback.Flags().StringVar(&sessionID, "session", "", "session whose last analysis is rated")
	feedback.Flags().StringVar(&appID, "app", "", "application the feedback is about")

	var output string
	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count stored feedback per type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.advisor.FeedbackStats(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, res, func() string { return formatStats(res) })
		},
	}
	outputFlag(stats, &output)
	feedback.AddCommand(stats)

	return feedback
}

func formatStats(stats map[store.FeedbackType]int) string {
	types := make([]string, 0, len(stats))
	total := 0
	for t, n := range stats {
		types = append(types, string(t))
		total += n
	}
	sort.Strings(types)
	var b strings.Builder
	for _, t := range types {
		fmt.Fprintf(&b, "%-12s %d\n", t, stats[store.FeedbackType(t)])
	}
	fmt.Fprintf(&b, "%-12s %d", "TOTAL", total)
	return b.String()
}
