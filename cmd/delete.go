package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	deleteYes bool
)

// deleteCmd represents the delete command
var deleteCmd = &cobra.Command{
	Use:   "delete <chat-id>",
	Short: "Delete a chat permanently",
	Long: `Delete a chat file. This cannot be undone, so the full chat id or a
prefix of it must be confirmed with --yes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !deleteYes {
			return fmt.Errorf("refusing to delete without --yes")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		chatID, err := a.resolveChatID(args[0])
		if err != nil {
			return err
		}
		if err := a.store.Delete(chatID); err != nil {
			return fmt.Errorf("failed to delete chat: %w", err)
		}
		a.updates(nil).Reset(chatID)

		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Deleted chat ")+chatID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Confirm the deletion")
}
