package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear <chat-id>",
	Short: "Remove every message from a chat",
	Long:  `Empty a chat's history and summary. The title, model and folder are kept.`,
	Args:  cobra.ExactArgs(1),
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
		if err := a.store.Clear(chatID); err != nil {
			return fmt.Errorf("failed to clear chat: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Chat cleared"))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
