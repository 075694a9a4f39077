package main

import (
	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
)

func skewCMD(cfgPath *string) *cobra.Command {
	var output string
	var skew = &cobra.Command{
		Use:   "skew <application-id>",
		Short: "Find stages with task or shuffle skew",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.advisor.AnalyzeSkew(ctx, args[0])
			return render(cmd.OutOrStdout(), output, res, func() string { return advisor.FormatSkew(res) })
		},
	}
	outputFlag(skew, &output)
	return skew
}

func scalingCMD(cfgPath *string) *cobra.Command {
	var output string
	var scaling = &cobra.Command{
		Use:   "scaling <application-id>",
		Short: "Decide whether an application should scale up, down or stay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res := a.advisor.AnalyzeScaling(ctx, args[0])
			return render(cmd.OutOrStdout(), output, res, func() string { return advisor.FormatScaling(res) })
		},
	}
	outputFlag(scaling, &output)
	return scaling
}
