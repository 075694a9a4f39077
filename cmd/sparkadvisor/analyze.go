package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/mohammad-safakhou/sparkadvisor/internal/advisor"
	"github.com/mohammad-safakhou/sparkadvisor/internal/recommend"
)

func analyzeCMD(cfgPath *string) *cobra.Command {
	var output string
	var sessionID string
	var chat bool
	var analyze = &cobra.Command{
		Use:   "analyze <application-id>",
		Short: "Analyze one Spark application and print reconciled recommendations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.advisor.Analyze(ctx, args[0], sessionID)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, res, func() string {
				if chat {
					return advisor.FormatChatSummary(res)
				}
				return advisor.FormatAnalysis(res)
			})
		},
	}
	outputFlag(analyze, &output)
	analyze.Flags().StringVar(&sessionID, "session", "", "session id to record the analysis in")
	analyze.Flags().BoolVar(&chat, "chat", false, "print the short chat summary instead of the full report")

	return analyze
}

// validateInput is the JSON document read by the validate command.
type validateInput struct {
	ApplicationID   string                     `json:"application_id"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Context         map[string]any             `json:"context"`
}

func validateCMD(cfgPath *string) *cobra.Command {
	var output string
	var file string
	var validate = &cobra.Command{
		Use:   "validate",
		Short: "Run the judge over recommendations read from a JSON file (- for stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readValidateInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, *cfgPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.advisor.ValidateRecommendations(ctx, in.ApplicationID, in.Recommendations, in.Context)
			if res == nil {
				return err
			}
			wrapped := &advisor.Analysis{Result: *res}
			return render(cmd.OutOrStdout(), output, res, func() string {
				return advisor.FormatAnalysis(wrapped)
			})
		},
	}
	outputFlag(validate, &output)
	validate.Flags().StringVarP(&file, "file", "f", "-", "input file")

	return validate
}

func readValidateInput(stdin io.Reader, file string) (validateInput, error) {
	var in validateInput
	r := stdin
	if file != "-" && file != "" {
		f, err := os.Open(file)
		if err != nil {
			return in, err
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return in, fmt.Errorf("decode input: %w", err)
	}
	if in.ApplicationID == "" {
		in.ApplicationID = "unknown"
	}
	return in, nil
}
