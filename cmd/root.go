package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/actprep/internal/store"
)

var rootCmd = &cobra.Command{
	Use:          "actprep",
	Short:        "Adaptive ACT practice",
	Long:         "actprep generates ACT practice questions targeted at weak subjects and tracks per-subject proficiency as you answer them.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides ACTPREP_DB env var)")
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file (overrides ACTPREP_CONFIG env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}

// resolveDBPath returns the database path using --db flag (highest priority),
// then the configured db_path, then ACTPREP_DB, then the default XDG path.
func resolveDBPath(cmd *cobra.Command, configured string) (string, error) {
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		return p, store.EnsureDir(p)
	}
	if configured != "" {
		return configured, store.EnsureDir(configured)
	}
	return store.DefaultDBPath()
}
