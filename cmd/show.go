package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

var (
	showLimit int
)

var (
	// Styles for show command
	chatHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1).
			MarginBottom(1)

	chatMetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			MarginBottom(1)

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2).
				MarginBottom(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Show the messages of a chat",
	Long:  `Display a chat's metadata, compact summary and messages.`,
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
		rec, err := a.store.Load(chatID, "")
		if err != nil {
			return fmt.Errorf("failed to load chat: %w", err)
		}

		displayChat(cmd.OutOrStdout(), rec, a.settings, showLimit)
		return nil
	},
}

func displayChat(out io.Writer, rec *internal.ChatRecord, settings internal.Settings, limit int) {
	meta := rec.Metadata
	title := meta.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintln(out, chatHeaderStyle.Render("💬 "+title))

	info := []string{"ID: " + meta.ChatID, "Model: " + meta.Model}
	if meta.Folder != "" {
		info = append(info, "Folder: "+meta.Folder)
	}
	if t := meta.ModifiedAt(); !t.IsZero() {
		info = append(info, "Modified: "+t.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(out, chatMetaStyle.Render(strings.Join(info, " • ")))

	if ctx := strings.TrimSpace(rec.CompactContext); ctx != "" {
		fmt.Fprintln(out, sectionStyle.Render("Summary"))
		fmt.Fprintln(out, messageContentStyle.Render(ctx))
	}

	turns := rec.Turns()
	if len(turns) == 0 {
		fmt.Fprintln(out, chatMetaStyle.Render("No messages yet"))
		return
	}
	if limit > 0 && len(turns) > limit {
		fmt.Fprintln(out, timestampStyle.Render(fmt.Sprintf("… %d earlier message(s) hidden", len(turns)-limit)))
		turns = turns[len(turns)-limit:]
	}

	for _, turn := range turns {
		label := userMessageStyle.Render("👤 " + settings.UserName)
		if turn.Role == internal.RoleAssistant {
			label = assistantMessageStyle.Render("🤖 " + settings.AssistantName)
		}
		if turn.Timestamp != "" {
			label += " " + timestampStyle.Render(turn.Timestamp)
		}
		fmt.Fprintln(out, label)
		fmt.Fprintln(out, messageContentStyle.Render(turn.Content))
		if turn.TokenInfo != "" {
			fmt.Fprintln(out, timestampStyle.Render("  "+turn.TokenInfo))
			fmt.Fprintln(out)
		}
	}
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&showLimit, "limit", "n", 0, "Only show the last N messages")
}
