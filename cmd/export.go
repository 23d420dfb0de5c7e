package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/iksnae/prattle/internal"
	"github.com/iksnae/prattle/internal/export"
	"github.com/spf13/cobra"
)

var (
	format    string
	outputDir string
	toStdout  bool
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <chat-id>",
	Short: "Export a chat to a file",
	Long: `Export a chat to jsonl, md, yaml or json.

The file is written to the output directory as <chat-id>.<ext>, or to
stdout with --stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		exporter, err := export.NewExporter(format)
		if err != nil {
			return err
		}

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

		if toStdout {
			return exporter.Export(rec, cmd.OutOrStdout())
		}

		path, err := exportToFile(exporter, rec, outputDir)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("✅ Exported to ")+path)
		return nil
	},
}

func exportToFile(exporter export.Exporter, rec *internal.ChatRecord, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", &internal.ExportError{Format: format, Path: dir, Err: err}
	}
	path := filepath.Join(dir, rec.Metadata.ChatID+"."+exporter.Extension())
	f, err := os.Create(path)
	if err != nil {
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	if err := exporter.Export(rec, f); err != nil {
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", &internal.ExportError{Format: format, Path: path, Err: err}
	}
	return path, nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&format, "format", "f", "md", "Export format (jsonl, md, yaml, json)")
	exportCmd.Flags().StringVarP(&outputDir, "output", "o", "./exports", "Output directory")
	exportCmd.Flags().BoolVar(&toStdout, "stdout", false, "Write to stdout instead of a file")
}
