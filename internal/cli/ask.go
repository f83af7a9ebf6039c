package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/service"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question against the knowledge base",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}

	cmd.Flags().IntP("top-k", "k", 0, "Number of chunks to retrieve (0 = default)")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, appOptions{migrate: true})
	if err != nil {
		return err
	}
	defer a.Close()

	topK, _ := cmd.Flags().GetInt("top-k")
	result, err := a.chat.Ask(ctx, service.AskInput{
		Query: strings.Join(args, " "),
		TopK:  topK,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Answer)
	if len(result.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range result.Sources {
			fmt.Printf("  %s (relevance %.2f)\n", src.DocumentName, src.RelevanceScore)
		}
	}
	return nil
}
