package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	newFolder string
	newModel  string
)

// newCmd represents the new command
var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Start a new chat",
	Long: `Create a new empty chat and print its id.

The title defaults to "New Chat" and is replaced automatically after the
first exchange.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		title := strings.TrimSpace(strings.Join(args, " "))
		if title == "" {
			title = "New Chat"
		}
		model := newModel
		if model == "" {
			model = a.settings.DefaultModel
		}

		chatID, err := a.store.Create(title, model, newFolder)
		if err != nil {
			return fmt.Errorf("failed to create chat: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), chatID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
	newCmd.Flags().StringVar(&newFolder, "folder", "", "Create the chat inside this folder")
	newCmd.Flags().StringVarP(&newModel, "model", "m", "", "Model for the chat (default from settings)")
}
