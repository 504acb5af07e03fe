// Command findashctl is an operator CLI for the market dashboard backend.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "findashctl",
	Short:         "Operator CLI for the market dashboard backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	apiAddr    string
	apiTimeout time.Duration
	outputJSON bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "api", envOr("FINDASH_API", "http://localhost:8080"), "API server address")
	rootCmd.PersistentFlags().DurationVar(&apiTimeout, "timeout", 20*time.Minute, "HTTP request timeout")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(healthCmd, quoteCmd, historyCmd, searchCmd)
	rootCmd.AddCommand(analyzeCmd, responseCmd, chatCmd, eventsCmd, jobsCmd, watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
