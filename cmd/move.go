package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// moveCmd represents the move command
var moveCmd = &cobra.Command{
	Use:   "move <chat-id> [folder]",
	Short: "Move a chat into a folder",
	Long: `Move a chat into a folder below the chats directory. Nested folders use
slashes ("work/infra"). Without a folder the chat moves back to the top level.`,
	Args: cobra.RangeArgs(1, 2),
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
		folder := ""
		if len(args) == 2 {
			folder = args[1]
		}
		if err := a.store.Move(chatID, folder); err != nil {
			return fmt.Errorf("failed to move chat: %w", err)
		}

		if folder == "" {
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Moved chat to the top level"))
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Moved chat to folder: ")+folder)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(moveCmd)
}
