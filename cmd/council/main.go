package main

import (
	"fmt"
	"os"

	"github.com/biodoia/goleapcouncil/cmd/council/commands"
	"github.com/biodoia/goleapcouncil/internal/gateway"
	"github.com/spf13/cobra"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	gateway.Version = version

	rootCmd := &cobra.Command{
		Use:   "council",
		Short: "LLM Council - multi-model deliberation service",
		Long: `LLM Council - multi-model deliberation service

Every question goes through three stages:
  1. each council member answers independently
  2. members rank the anonymized answers of their peers
  3. a chairman synthesizes the final answer

The service keeps conversations in a database and exposes them
over an HTTP API with Server-Sent Events streaming.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to config file")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error), overrides config")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.AskCmd)
	rootCmd.AddCommand(commands.ModelsCmd)
	rootCmd.AddCommand(commands.ConversationsCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.MigrateCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("LLM Council version %s\n", version)
			fmt.Printf("Commit: %s\n", commit)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
