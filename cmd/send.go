package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/iksnae/prattle/internal"
	"github.com/spf13/cobra"
)

var (
	sendModel    string
	sendNoUpdate bool
)

// sendCmd represents the send command
var sendCmd = &cobra.Command{
	Use:   "send <chat-id> <message...>",
	Short: "Send a message and stream the reply",
	Long: `Send a message to a chat and stream the assistant's reply.

The request carries the system prompt (context/prompt.md), recent memories,
the chat's compact summary and its full history. Both turns are appended to
the chat file with token accounting once the reply is complete.

After the exchange the chat title and the memories file are regenerated when
they are due. Use "-" as the message to read it from stdin.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		message, err := readMessage(cmd.InOrStdin(), args[1:])
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

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return a.send(ctx, cmd.OutOrStdout(), chatID, message)
	},
}

func readMessage(in io.Reader, args []string) (string, error) {
	message := strings.Join(args, " ")
	if message == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("failed to read message: %w", err)
		}
		message = string(data)
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("message is empty")
	}
	return message, nil
}

func (a *app) send(ctx context.Context, out io.Writer, chatID, message string) error {
	rec, err := a.store.Load(chatID, "")
	if err != nil {
		return fmt.Errorf("failed to load chat: %w", err)
	}
	client, err := a.client()
	if err != nil {
		return err
	}

	prompt, err := a.paths.SystemPrompt()
	if err != nil {
		internal.LogWarn("Failed to read system prompt: %v", err)
	}
	memories, err := a.memories.Load(a.settings.MaxMemoryEntries)
	if err != nil {
		internal.LogWarn("Failed to read memories: %v", err)
	}

	model := sendModel
	if model == "" {
		model = rec.Metadata.Model
	}
	if model == "" {
		model = a.settings.DefaultModel
	}

	messages := internal.BuildContext(prompt, memories, rec, message)
	internal.LogDebug("Sending %d message(s) to %s", len(messages), model)

	res, err := internal.CollectStream(ctx, client, messages, model, func(c internal.Chunk) {
		fmt.Fprint(out, c.Text)
	})
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("completion failed: %w", err)
	}

	if err := a.store.AppendExchange(chatID, internal.Exchange{
		User:      message,
		Assistant: res.Text,
		Usage:     res.Usage,
		Model:     model,
		At:        time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to save exchange: %w", err)
	}
	if res.Usage != nil {
		fmt.Fprintln(out, timestampStyle.Render(internal.FormatTokenUsage(*res.Usage, model)))
	}

	if sendNoUpdate {
		return nil
	}
	if err := a.refresh(ctx, chatID, false); err != nil {
		internal.LogWarn("%v", err)
	}
	return nil
}

// refresh regenerates the title and the memories concurrently when they are
// due, or unconditionally when force is set.
func (a *app) refresh(ctx context.Context, chatID string, force bool) error {
	rec, err := a.store.Load(chatID, "")
	if err != nil {
		return fmt.Errorf("failed to reload chat: %w", err)
	}
	client, err := a.client()
	if err != nil {
		return err
	}
	throttle := a.updates(client)
	count := internal.MessageCount(rec.FullHistory)

	var (
		wg                  sync.WaitGroup
		titleErr, memoryErr error
	)
	if throttle.ShouldUpdateTitle(chatID, count, force) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			title, err := throttle.UpdateTitle(ctx, chatID, rec.FullHistory, count, "", force)
			if err != nil {
				titleErr = fmt.Errorf("failed to update title: %w", err)
				return
			}
			if title == "" {
				return
			}
			if err := a.store.PatchMetadata(chatID, internal.MetadataPatch{Title: &title}); err != nil {
				titleErr = fmt.Errorf("failed to save title: %w", err)
				return
			}
			internal.LogInfo("Updated title: %s", title)
		}()
	}
	if throttle.ShouldUpdateMemories(force) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			existing, err := a.memories.ReadAll()
			if err != nil {
				memoryErr = fmt.Errorf("failed to read memories: %w", err)
				return
			}
			if _, err := throttle.UpdateMemories(ctx, rec.FullHistory, existing, "", force); err != nil {
				memoryErr = fmt.Errorf("failed to update memories: %w", err)
				return
			}
			internal.LogDebug("Updated memories")
		}()
	}
	wg.Wait()
	return errors.Join(titleErr, memoryErr)
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendModel, "model", "m", "", "Model for this message (default: the chat's model)")
	sendCmd.Flags().BoolVar(&sendNoUpdate, "no-update", false, "Skip title and memory regeneration")
}
