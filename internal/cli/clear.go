package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// ClearCmd returns the clear command
func ClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every document from the knowledge base",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := newApp(ctx, appOptions{migrate: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.pipeline.Clear(ctx); err != nil {
				return err
			}
			fmt.Println("knowledge base cleared")
			return nil
		},
	}
}
