package cmd

import (
	"fmt"

	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the data directory and a default settings file",
	Long: `Create the prattle data directory layout:

  <home>/chats/                 one markdown file per chat
  <home>/context/memories.md    long-term memories (created on first update)
  <home>/context/prompt.md      optional system prompt
  <home>/settings.yaml          settings, written with defaults if missing
  <home>/state.db               throttle bookkeeping and chat index

Existing files are never overwritten.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		path := settingsFile(a.paths)
		written, err := internal.WriteDefaultSettings(path)
		if err != nil {
			return fmt.Errorf("failed to write settings: %w", err)
		}

		fmt.Fprintln(out, successStyle.Render("✅ Data directory ready: ")+a.paths.Home)
		if written {
			fmt.Fprintln(out, successStyle.Render("✅ Wrote default settings: ")+path)
		} else {
			fmt.Fprintln(out, infoStyle.Render("ℹ️  Settings already exist: ")+path)
		}
		if a.settings.APIKey == "" {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No API key configured"))
			fmt.Fprintf(out, "   Set api_key in %s or export %s\n", path, internal.APIKeyEnvVar(a.settings.Provider))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
