package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mohammad-safakhou/sparkadvisor/config"
	"github.com/mohammad-safakhou/sparkadvisor/internal/docs"
)

func docsCMD(cfgPath *string) *cobra.Command {
	var docsCmd = &cobra.Command{
		Use:   "docs",
		Short: "Manage and search the Spark documentation index",
	}

	index := &cobra.Command{
		Use:   "index [dir]",
		Short: "Index a directory of Markdown documentation (default search.docs_dir)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newBaseApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			dir := a.cfg.Search.DocsDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return fmt.Errorf("no documentation directory: pass one or set search.docs_dir")
			}
			idx, err := a.openIndex(a.cfg.Search)
			if err != nil {
				return err
			}
			if az, ok := idx.(*docs.AzureSearch); ok {
				if err := az.EnsureIndex(ctx); err != nil {
					return err
				}
			}
			n, err := docs.NewIndexer(idx, a.logger.Named("indexer")).IndexDirectory(ctx, dir)
			if err != nil {
				a.logger.Error("indexing stopped", zap.Int("indexed", n), zap.Error(err))
				return err
			}
			cmd.Printf("indexed %d documents from %s into %s\n", n, dir, describeBackend(a.cfg.Search))
			return nil
		},
	}

	var output string
	var topK int
	var category string
	search := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the documentation index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newBaseApp(*cfgPath)
			if err != nil {
				return err
			}
			defer a.Close()

			idx, err := a.openIndex(a.cfg.Search)
			if err != nil {
				return err
			}
			q := docs.Query{Text: strings.Join(args, " "), TopK: topK, Category: category}.Normalize()
			if err := q.Validate(); err != nil {
				return err
			}
			res, err := idx.Search(ctx, q)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, res, func() string { return formatDocs(res) })
		},
	}
	outputFlag(search, &output)
	search.Flags().IntVar(&topK, "top-k", 5, "number of results (1-20)")
	search.Flags().StringVar(&category, "category", "", "restrict to one category")

	docsCmd.AddCommand(index, search)
	return docsCmd
}

func describeBackend(cfg config.SearchConfig) string {
	if cfg.Backend == config.SearchBackendAzure {
		return "azure index " + cfg.Index
	}
	if cfg.IndexPath == "" {
		return "in-memory bleve index"
	}
	return "bleve index " + cfg.IndexPath
}

func formatDocs(res []docs.Document) string {
	if len(res) == 0 {
		return "No documentation found."
	}
	var b strings.Builder
	for i, d := range res {
		fmt.Fprintf(&b, "%d. **%s** (%.2f) [%s]\n", i+1, d.Title, d.Score, strings.Join(d.Category, ", "))
		if d.SourceURL != "" {
			fmt.Fprintf(&b, "   %s\n", d.SourceURL)
		}
	}
	return b.String()
}
