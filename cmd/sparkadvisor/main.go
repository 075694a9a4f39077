package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCMD().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func newRootCMD() *cobra.Command {
	var root = &cobra.Command{
		Use:           "sparkadvisor",
		Short:         "Recommendations for Spark applications on Microsoft Fabric",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	var cfgPath string
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is ./config/config.json)")

	root.AddCommand(
		serveCMD(&cfgPath),
		migrateCMD(&cfgPath),
		mcpCMD(&cfgPath),
		analyzeCMD(&cfgPath),
		validateCMD(&cfgPath),
		appsCMD(&cfgPath),
		skewCMD(&cfgPath),
		scalingCMD(&cfgPath),
		docsCMD(&cfgPath),
		queryCMD(&cfgPath),
		feedbackCMD(&cfgPath),
	)
	return root
}

const (
	outputMarkdown = "markdown"
	outputJSON     = "json"
	outputYAML     = "yaml"
)

func outputFlag(cmd *cobra.Command, dst *string) {
	cmd.Flags().StringVarP(dst, "output", "o", outputMarkdown, "output format: markdown, json or yaml")
}

// render writes v as JSON or YAML, or calls markdown for the default format.
func render(w io.Writer, format string, v any, markdown func() string) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(v)
	case outputMarkdown, "":
		_, err := io.WriteString(w, markdown()+"\n")
		return err
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
