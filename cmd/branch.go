package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// branchCmd represents the branch command
var branchCmd = &cobra.Command{
	Use:   "branch <chat-id>",
	Short: "Copy a chat into a new one",
	Long: `Create a new chat with the same model, folder, summary and history.
The copy is titled "<title> (branch)" and gets its own title regeneration
schedule. Prints the new chat id.`,
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
		branchID, err := a.store.Branch(chatID)
		if err != nil {
			return fmt.Errorf("failed to branch chat: %w", err)
		}
		a.updates(nil).Reset(branchID)

		fmt.Fprintln(cmd.OutOrStdout(), branchID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(branchCmd)
}
