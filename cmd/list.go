package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var (
	listFolder     string
	listTopLevel   bool
	listClearCache bool
)

var (
	// Styles
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	folderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Italic(true)
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List chats",
	Long: `List chats, most recently modified first.

Metadata is served from the chat index in state.db and only files that
changed since the last run are parsed again.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if listTopLevel && listFolder != "" {
			return fmt.Errorf("--folder and --top-level cannot be combined")
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		index := internal.NewChatIndex(a.state, a.store)
		if listClearCache {
			if err := index.Clear(); err != nil {
				internal.LogWarn("Failed to clear cache: %v", err)
			} else {
				internal.LogInfo("Cache cleared")
			}
		}

		entries, err := index.List(internal.ListOptions{Folder: listFolder, TopLevelOnly: listTopLevel})
		if err != nil {
			return fmt.Errorf("failed to list chats: %w", err)
		}

		displayChats(cmd.OutOrStdout(), entries, time.Now())
		return nil
	},
}

func displayChats(out io.Writer, entries []internal.IndexEntry, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(out, headerStyle.Render("📋 No chats found"))
		return
	}

	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("📋 Found %d chat(s)", len(entries))))
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("ID")+"\t"+titleStyle.Render("Title")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Modified")+"\t"+titleStyle.Render("Folder")+"\t")
	_, _ = fmt.Fprintln(w, strings.Repeat("─", 110))

	for _, entry := range entries {
		title := entry.Metadata.Title
		if title == "" {
			title = "Untitled"
		}
		// Truncate long titles but keep them readable
		if len([]rune(title)) > 50 {
			title = string([]rune(title)[:47]) + "..."
		}

		folder := dateStyle.Render("—")
		if entry.Metadata.Folder != "" {
			folder = folderStyle.Render(entry.Metadata.Folder)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			idStyle.Render(entry.Metadata.ChatID),
			title,
			countStyle.Render(strconv.Itoa(entry.MessageCount)),
			dateStyle.Render(relativeDate(entry.Metadata.ModifiedAt(), now)),
			folder)
	}
	_ = w.Flush()
	fmt.Fprintln(out)
	fmt.Fprintln(out, idStyle.Render("💡 Tip: ids may be shortened to any unambiguous prefix, e.g. `prattle show "+shortID(entries[0].Metadata.ChatID)+"`"))
}

func relativeDate(t, now time.Time) string {
	if t.IsZero() {
		return "—"
	}
	t = t.Local()
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listFolder, "folder", "", "Only list chats in this folder")
	listCmd.Flags().BoolVar(&listTopLevel, "top-level", false, "Only list chats outside any folder")
	listCmd.Flags().BoolVar(&listClearCache, "clear-cache", false, "Clear the chat index before listing")
}
