package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/ragchat/internal/cli/admin"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ragchatd",
		Short: "RAG Assistant API daemon",
		Long:  "ragchatd ingests the source document into the vector store and serves the chat API.\nWithout a subcommand it runs serve.",
		Args:  cobra.NoArgs,
	}

	admin.AddConfigFlag(rootCmd.PersistentFlags())
	admin.MakeServe(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())
	rootCmd.AddCommand(admin.MigrateCmd())

	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
