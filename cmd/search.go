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
	searchLimit int
)

var (
	matchLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	matchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Search every chat for text",
	Long: `Case-insensitive substring search over every chat file, newest chats
first. Up to three matching lines are shown per chat.`,
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		query := strings.TrimSpace(strings.Join(args, " "))
		results, err := a.store.Search(query)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		displaySearchResults(cmd.OutOrStdout(), query, results, searchLimit)
		return nil
	},
}

func displaySearchResults(out io.Writer, query string, results []internal.SearchResult, limit int) {
	if len(results) == 0 {
		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🔍 No chats contain %q", query)))
		return
	}
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("🔍 %d chat(s) contain %q", len(results), query)))
	fmt.Fprintln(out)

	hidden := 0
	if limit > 0 && len(results) > limit {
		hidden = len(results) - limit
		results = results[:limit]
	}
	for _, r := range results {
		title := r.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintln(out, titleStyle.Render(title)+" "+idStyle.Render(r.ChatID))
		for _, m := range r.Matches {
			fmt.Fprintf(out, "   %s %s\n", matchLineStyle.Render(fmt.Sprintf("%4d:", m.Line)), highlight(m.Text, query))
		}
		fmt.Fprintln(out)
	}
	if hidden > 0 {
		fmt.Fprintln(out, matchLineStyle.Render(fmt.Sprintf("… and %d more chat(s), use --limit 0 to show all", hidden)))
	}
}

// highlight styles every case-insensitive occurrence of query in line
func highlight(line, query string) string {
	lower, needle := strings.ToLower(line), strings.ToLower(query)
	if needle == "" || len(lower) != len(line) {
		return line
	}
	var b strings.Builder
	for {
		i := strings.Index(lower, needle)
		if i < 0 {
			b.WriteString(line)
			return b.String()
		}
		b.WriteString(line[:i])
		b.WriteString(matchStyle.Render(line[i : i+len(needle)]))
		line, lower = line[i+len(needle):], lower[i+len(needle):]
	}
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", internal.MaxSearchResults, "Chats shown (0 for all)")
}
