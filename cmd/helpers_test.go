package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/iksnae/prattle/internal"
	"github.com/iksnae/prattle/testutil"
)

var testTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// resetFlags restores every flag variable, since cobra keeps values between
// Execute calls on the shared rootCmd.
func resetFlags() {
	verbose, homeDir, configPath = false, "", ""
	newFolder, newModel = "", ""
	listFolder, listTopLevel, listClearCache = "", false, false
	showLimit = 0
	sendModel, sendNoUpdate = "", false
	compactModel = ""
	deleteYes = false
	searchLimit = internal.MaxSearchResults
	memoriesLimit, memoriesPath = 0, false
	format, outputDir, toStdout = "md", "./exports", false
	stateSchema = false
	healthcheckDetails = false
}

// runCommand executes prattle with --home set and returns what it printed
func runCommand(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	rootCmd.SetArgs(append([]string{"--home", home}, args...))
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(""))
	err := rootCmd.Execute()
	return stdout.String(), err
}

// mustRun is runCommand failing the test on error
func mustRun(t *testing.T, home string, args ...string) string {
	t.Helper()
	out, err := runCommand(t, home, args...)
	if err != nil {
		t.Fatalf("prattle %s error = %v\noutput:\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

// newChat creates a chat and returns its id
func newChat(t *testing.T, home string, args ...string) string {
	t.Helper()
	return strings.TrimSpace(mustRun(t, home, append([]string{"new"}, args...)...))
}

// useFakeSummarizer routes every completion to fake for the rest of the test
func useFakeSummarizer(t *testing.T, fake *internal.FakeSummarizer) {
	t.Helper()
	orig := newSummarizer
	newSummarizer = func(internal.Settings) (internal.StreamingSummarizer, error) {
		return fake, nil
	}
	t.Cleanup(func() { newSummarizer = orig })
}

// scriptedSummarizer answers title, memory and summary requests with fixed
// text and chat requests with reply.
func scriptedSummarizer(reply string) *internal.FakeSummarizer {
	return &internal.FakeSummarizer{
		Usage: &internal.TokenUsage{PromptTokens: 10, CompletionTokens: 5, Cost: 0.00012},
		Reply: func(messages []internal.ChatMessage, model string) string {
			system := messages[0].Content
			switch {
			case strings.Contains(system, "word title"):
				return `"Greeting Chat"`
			case strings.Contains(system, "save as memories"):
				return "- The user likes Go"
			case strings.Contains(system, "narrative summary"):
				return "They said hello."
			default:
				return reply
			}
		},
	}
}

func newTestHome(t *testing.T) string {
	t.Helper()
	return testutil.CreateTempDir(t)
}

func openTestStore(t *testing.T, home string) *internal.ChatStore {
	t.Helper()
	paths, err := internal.DetectDataPaths(home)
	if err != nil {
		t.Fatalf("DetectDataPaths() error = %v", err)
	}
	store, err := internal.NewChatStore(paths.ChatsDir)
	if err != nil {
		t.Fatalf("NewChatStore() error = %v", err)
	}
	return store
}
