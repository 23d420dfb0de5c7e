package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

var (
	stateSchema bool
)

// stateCmd represents the state command
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect the state database",
	Long: `Show what state.db holds between runs:
  • Title regeneration bookkeeping per chat, least recently used first
  • When memories were last extracted
  • Row counts (and with --schema, columns) of every table`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.close()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "📋 Database: %s\n\n", a.paths.StateDB)

		tables, err := a.state.Tables()
		if err != nil {
			return fmt.Errorf("failed to inspect state database: %w", err)
		}
		for _, table := range tables {
			displayTable(out, table, stateSchema)
		}

		snap, err := a.state.LoadThrottle()
		if err != nil {
			return fmt.Errorf("failed to load throttle state: %w", err)
		}
		displayThrottle(out, snap, a.settings, time.Now())
		return nil
	},
}

func displayTable(out io.Writer, table internal.TableInfo, schema bool) {
	fmt.Fprintf(out, "📦 %s %s\n", titleStyle.Render(table.Name), countStyle.Render(fmt.Sprintf("(%d rows)", table.Rows)))
	if !schema {
		return
	}
	for _, col := range table.Columns {
		var attrs []string
		if col.NotNull {
			attrs = append(attrs, "NOT NULL")
		}
		if col.PrimaryKey {
			attrs = append(attrs, "[PRIMARY KEY]")
		}
		fmt.Fprintf(out, "  • %s: %s %s\n", col.Name, col.Type, strings.Join(attrs, " "))
	}
	fmt.Fprintln(out)
}

func displayThrottle(out io.Writer, snap internal.ThrottleSnapshot, settings internal.Settings, now time.Time) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, sectionStyle.Render("Title updates"))
	if len(snap.Titles) == 0 {
		fmt.Fprintln(out, dateStyle.Render("  none recorded"))
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
		_, _ = fmt.Fprintln(w, titleStyle.Render("Chat")+"\t"+titleStyle.Render("Messages")+"\t"+titleStyle.Render("Updated")+"\t"+titleStyle.Render("Next due")+"\t")
		interval := time.Duration(settings.TitleUpdateInterval) * time.Second
		for _, s := range snap.Titles {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				idStyle.Render(s.ChatID),
				countStyle.Render(fmt.Sprint(s.LastMessageCount)),
				dateStyle.Render(relativeDate(s.LastUpdate, now)),
				dueIn(s.LastUpdate.Add(interval), now))
		}
		_ = w.Flush()
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, sectionStyle.Render("Memory updates"))
	if snap.LastMemoryUpdate.IsZero() {
		fmt.Fprintln(out, dateStyle.Render("  never"))
		return
	}
	interval := time.Duration(settings.MemoryUpdateInterval) * time.Second
	fmt.Fprintf(out, "  last %s, next due %s\n",
		relativeDate(snap.LastMemoryUpdate, now), dueIn(snap.LastMemoryUpdate.Add(interval), now))
}

func dueIn(at, now time.Time) string {
	if !at.After(now) {
		return successStyle.Render("now")
	}
	return warningStyle.Render("in " + at.Sub(now).Round(time.Second).String())
}

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.Flags().BoolVar(&stateSchema, "schema", false, "Show table columns")
}
