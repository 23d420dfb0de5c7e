package cmd

import (
	"fmt"

	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

var (
	compactModel string
)

// compactCmd represents the compact command
var compactCmd = &cobra.Command{
	Use:   "compact <chat-id>",
	Short: "Summarize a chat's history into its compact context",
	Long: `Summarize the full history of a chat and install the summary as the
chat's compact context. The previous summary, if any, is kept in the history
under a marker. No messages are removed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		chatID, err := a.resolveChatID(args[0])
		if err != nil {
			return err
		}
		client, err := a.client()
		if err != nil {
			return err
		}

		compactor := internal.NewCompactor(a.store, client)
		err = internal.ShowProgress(cmd.Context(), "Compacting chat...", func() error {
			return compactor.Compact(cmd.Context(), chatID, compactModel)
		})
		if err != nil {
			return fmt.Errorf("failed to compact chat: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Chat history compacted"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
	compactCmd.Flags().StringVarP(&compactModel, "model", "m", "", "Model used for the summary (default: the chat's model)")
}
