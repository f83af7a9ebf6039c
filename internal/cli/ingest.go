package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/domain"
)

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [path|id]...",
		Short: "Add documents to the knowledge base",
		Long: "Add documents to the knowledge base. Arguments are file paths, " +
			"or document ids from the configured source with --from-source. " +
			"With --all, every document the source lists is ingested.",
		RunE: runIngest,
	}

	cmd.Flags().Bool("from-source", false, "Treat arguments as document ids from the configured source")
	cmd.Flags().Bool("all", false, "Ingest every document the configured source lists")
	cmd.Flags().Bool("clear-first", false, "Clear the knowledge base before ingesting")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	fromSource, _ := cmd.Flags().GetBool("from-source")
	all, _ := cmd.Flags().GetBool("all")
	clearFirst, _ := cmd.Flags().GetBool("clear-first")

	if len(args) == 0 && !all {
		return fmt.Errorf("nothing to ingest: pass file paths, ids, or --all")
	}

	ctx := context.Background()
	a, err := newApp(ctx, appOptions{migrate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if (fromSource || all) && a.src == nil {
		return fmt.Errorf("no document source configured (set ASKDOCS_DOCS_DIR or the S3 settings)")
	}

	if clearFirst {
		if err := a.pipeline.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("knowledge base cleared")
	}

	var docs []domain.Document
	switch {
	case all:
		refs, err := a.src.List(ctx)
		if err != nil {
			return err
		}
		for _, ref := range refs {
			doc, err := a.src.Fetch(ctx, ref.ID)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", ref.ID, err)
				continue
			}
			docs = append(docs, *doc)
		}
	case fromSource:
		for _, id := range args {
			doc, err := a.src.Fetch(ctx, id)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", id, err)
				continue
			}
			docs = append(docs, *doc)
		}
	default:
		for _, path := range args {
			data, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
				continue
			}
			docs = append(docs, domain.Document{
				ID:      path,
				Name:    filepath.Base(path),
				Content: string(data),
			})
		}
	}

	result := a.pipeline.AddDocuments(ctx, docs)
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "error: %v\n", e)
	}
	fmt.Printf("added %d of %d documents\n", result.AddedCount, len(docs))

	if result.Failed() {
		return fmt.Errorf("no documents were added")
	}
	return nil
}
