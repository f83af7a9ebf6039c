package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/askdocs/askdocs/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "askdocsd",
		Short: "Askdocs daemon and CLI",
		Long:  "Askdocs daemon for running the question-answering API server and managing the knowledge base",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())
	rootCmd.AddCommand(cli.AskCmd())
	rootCmd.AddCommand(cli.ClearCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
