package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

var (
	healthcheckDetails bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check that prattle can read its data and reach a provider",
	Long: `Check the health of prattle by verifying:
  • Data directory layout
  • Settings file and API key
  • State database access
  • Chat files (corrupt files are reported)

No request is sent to the completion service.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 prattle Health Check"))
		fmt.Fprintln(out)

		// Step 1: Data directory
		fmt.Fprintln(out, infoStyle.Render("Step 1: Checking data directory..."))
		a, err := openApp()
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to open data directory:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		defer a.close()
		fmt.Fprintln(out, successStyle.Render("✅ Data directory ready"))
		if healthcheckDetails {
			fmt.Fprintf(out, "   Home: %s\n", a.paths.Home)
			fmt.Fprintf(out, "   Chats: %s\n", a.paths.ChatsDir)
			fmt.Fprintf(out, "   Memories: %s\n", a.paths.MemoriesFile)
		}
		fmt.Fprintln(out)

		// Step 2: Settings
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking settings..."))
		checkSettings(out, a)
		fmt.Fprintln(out)

		// Step 3: State database
		fmt.Fprintln(out, infoStyle.Render("Step 3: Checking state database..."))
		index := internal.NewChatIndex(a.state, a.store)
		stats, err := index.Refresh(internal.ListOptions{})
		if err != nil {
			fmt.Fprintln(out, errorStyle.Render("❌ Failed to refresh chat index:"), err)
			return fmt.Errorf("health check failed: %w", err)
		}
		fmt.Fprintln(out, successStyle.Render("✅ State database accessible"))
		if healthcheckDetails {
			fmt.Fprintf(out, "   Path: %s\n", a.paths.StateDB)
			fmt.Fprintf(out, "   Index: %d parsed, %d reused, %d removed\n", stats.Parsed, stats.Reused, stats.Removed)
		}
		fmt.Fprintln(out)

		// Step 4: Chats
		fmt.Fprintln(out, infoStyle.Render("Step 4: Reading chats..."))
		total := stats.Parsed + stats.Reused
		if total > 0 {
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d chat(s)", total)))
		} else {
			fmt.Fprintln(out, warningStyle.Render("⚠️  No chats yet"))
			fmt.Fprintln(out, "   Start one with `prattle new`")
		}
		if stats.Skipped > 0 {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("⚠️  %d chat file(s) could not be parsed", stats.Skipped)))
			fmt.Fprintln(out, "   Run with --verbose to see which")
		}
		fmt.Fprintln(out)

		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)
		if a.settings.APIKey == "" {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Storage works but no API key is configured"))
			return nil
		}
		fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
		return nil
	},
}

func checkSettings(out io.Writer, a *app) {
	path := settingsFile(a.paths)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintln(out, successStyle.Render("✅ Settings loaded"))
	} else {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No settings file, using defaults"))
		fmt.Fprintln(out, "   Run `prattle init` to write one")
	}
	if healthcheckDetails {
		fmt.Fprintf(out, "   File: %s\n", path)
		fmt.Fprintf(out, "   Provider: %s\n", a.settings.Provider)
		fmt.Fprintf(out, "   Chat model: %s\n", a.settings.DefaultModel)
		fmt.Fprintf(out, "   Utility model: %s\n", a.settings.UtilityModel)
		fmt.Fprintf(out, "   Log level: %s\n", internal.GetLogLevel())
	}
	if a.settings.APIKey == "" {
		fmt.Fprintln(out, warningStyle.Render("⚠️  No API key"))
		fmt.Fprintf(out, "   Set api_key in settings or export %s\n", internal.APIKeyEnvVar(a.settings.Provider))
	} else {
		fmt.Fprintln(out, successStyle.Render("✅ API key configured"))
	}
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckDetails, "details", "d", false, "Show detailed diagnostic information")
}
