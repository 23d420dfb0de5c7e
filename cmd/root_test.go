package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{
			name:    "version flag",
			args:    []string{"--version"},
			wantErr: false,
		},
		{
			name:    "help flag",
			args:    []string{"--help"},
			wantErr: false,
		},
		{
			name:    "unknown command",
			args:    []string{"nonexistent-command"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags()
			rootCmd.SetArgs(tt.args)
			var stdout, stderr bytes.Buffer
			rootCmd.SetOut(&stdout)
			rootCmd.SetErr(&stderr)

			err := rootCmd.Execute()
			if (err != nil) != tt.wantErr {
				t.Errorf("rootCmd.Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRootCommand_VerboseFlag(t *testing.T) {
	home := newTestHome(t)
	out := mustRun(t, home, "--verbose", "list")
	if !verbose {
		t.Error("--verbose was not parsed")
	}
	if !strings.Contains(out, "No chats found") {
		t.Errorf("list output = %q, want empty listing", out)
	}
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	want := []string{
		"init", "new", "list", "show", "send", "compact", "branch", "move",
		"search", "title", "clear", "delete", "memories", "export", "state", "healthcheck",
	}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
