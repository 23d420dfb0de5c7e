package cmd

import (
	"fmt"

	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

// titleCmd represents the title command
var titleCmd = &cobra.Command{
	Use:   "title <chat-id>",
	Short: "Regenerate a chat's title and the memories now",
	Long: `Regenerate the chat title and extract new memories from the chat,
ignoring the update intervals.`,
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
		err = internal.ShowProgress(cmd.Context(), "Updating title and memories...", func() error {
			return a.refresh(cmd.Context(), chatID, true)
		})
		if err != nil {
			return err
		}

		rec, err := a.store.Load(chatID, "")
		if err != nil {
			return fmt.Errorf("failed to load chat: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Title: ")+rec.Metadata.Title)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(titleCmd)
}
