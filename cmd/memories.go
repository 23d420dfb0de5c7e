package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	memoriesLimit int
	memoriesPath  bool
)

// memoriesCmd represents the memories command
var memoriesCmd = &cobra.Command{
	Use:   "memories",
	Short: "Show the most recent memories",
	Long: `Print the most recent sections of the memories file, the same text that
is sent with every message. The file itself is append-only.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		if memoriesPath {
			fmt.Fprintln(out, a.memories.Path())
			return nil
		}

		limit := memoriesLimit
		if limit <= 0 {
			limit = a.settings.MaxMemoryEntries
		}
		text, err := a.memories.Load(limit)
		if err != nil {
			return fmt.Errorf("failed to read memories: %w", err)
		}
		if strings.TrimSpace(text) == "" {
			fmt.Fprintln(out, headerStyle.Render("🧠 No memories yet"))
			return nil
		}
		fmt.Fprintln(out, headerStyle.Render("🧠 Memories"))
		fmt.Fprintln(out)
		fmt.Fprintln(out, text)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(memoriesCmd)
	memoriesCmd.Flags().IntVarP(&memoriesLimit, "limit", "n", 0, "Number of sections to show (default from settings)")
	memoriesCmd.Flags().BoolVar(&memoriesPath, "path", false, "Print the memories file location and exit")
}
