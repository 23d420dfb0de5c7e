package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	homeDir    string
	configPath string
	version    string = "dev"
	commit     string = "unknown"
	date       string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "prattle",
	Short: "Chat with language models from the terminal, one markdown file per conversation",
	Long: `prattle keeps every conversation as a plain markdown file with a YAML
frontmatter block, so chats can be read, grepped and versioned without the tool.

Features:
  • Streamed replies with token and cost accounting per exchange
  • Automatic chat titles and long-term memories, regenerated on a throttle
  • Compaction of long histories into a summary without losing turns
  • Folders, branching, full-text search and export (JSONL, Markdown, YAML, JSON)

Quick Start:
  prattle init                           # Create the data directory and settings
  prattle new                            # Start a chat, prints its id
  prattle send <chat-id> "Hello"         # Send a message
  prattle list                           # List chats

Data lives in ~/.prattle unless --home or PRATTLE_HOME says otherwise.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		internal.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data directory (default $PRATTLE_HOME or ~/.prattle)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Settings file (default <home>/settings.yaml)")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
