package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/coursechat/coursechat/pkg/api"
	"github.com/coursechat/coursechat/pkg/config"
	"github.com/coursechat/coursechat/pkg/render"
	"github.com/coursechat/coursechat/pkg/thread"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive conversation on a thread",
	RunE:  runChat,
}

func init() {
	chatCmd.Flags().String("thread", "", "thread id to open")
	chatCmd.Flags().String("user", "", "user id to post as")
	chatCmd.MarkFlagRequired("thread")
	chatCmd.MarkFlagRequired("user")
	viper.BindPFlag("chat.thread", chatCmd.Flags().Lookup("thread"))
	viper.BindPFlag("chat.user", chatCmd.Flags().Lookup("user"))

	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	settings := config.Get()
	threadID := viper.GetString("chat.thread")
	userID := viper.GetString("chat.user")

	client := newAPIClient()
	svc := api.NewThreadService(client, threadID)
	manager := thread.NewManager(svc).
		WithPageSize(settings.Chat.PageSize).
		WithPollInterval(settings.Chat.PollInterval)
	defer manager.Close()

	renderer := render.NewRenderer()

	// Events from the manager drive printing; stdin drives posting. The
	// updates channel is never closed: a background run finishing between
	// unsubscribe and shutdown may still deliver one last snapshot, and a
	// send on a closed channel would panic. The printer is stopped through
	// stop instead.
	updates := make(chan thread.Snapshot, 16)
	stop := make(chan struct{})
	unsubscribe := manager.Subscribe(func(snap thread.Snapshot) {
		select {
		case updates <- snap:
		default:
		}
	})
	defer unsubscribe()

	printer := newChatPrinter(renderer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case snap := <-updates:
				printer.Print(snap)
			case <-stop:
				return
			}
		}
	}()

	ctx := cmd.Context()
	if err := manager.Load(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load thread: %v\n", err)
	}

	fmt.Println("Type a message, or /more, /publish, /unpublish, /delete, /quit")
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if handled, quit := runChatCommand(ctx, manager, line); handled {
			if quit {
				break
			}
			continue
		}

		if err := manager.PostMessage(ctx, userID, line); err != nil {
			// Already surfaced via the error overlay; nothing more to do
			continue
		}
	}

	unsubscribe()
	close(stop)
	<-done
	return nil
}

// runChatCommand handles slash commands; returns (handled, quit)
func runChatCommand(ctx context.Context, manager *thread.Manager, line string) (bool, bool) {
	switch line {
	case "/quit", "/exit":
		return true, true
	case "/more":
		_ = manager.FetchMore(ctx)
		return true, false
	case "/publish":
		_ = manager.Publish(ctx)
		return true, false
	case "/unpublish":
		_ = manager.Unpublish(ctx)
		return true, false
	case "/delete":
		if err := manager.Delete(ctx); err == nil {
			fmt.Println("Thread deleted.")
			return true, true
		}
		return true, false
	case "/dismiss":
		manager.DismissError()
		return true, false
	}
	if strings.HasPrefix(line, "/") {
		fmt.Printf("Unknown command: %s\n", line)
		return true, false
	}
	return false, false
}

// chatPrinter prints snapshot changes incrementally: each message once it is
// confirmed and complete, state lines as they flip
type chatPrinter struct {
	renderer *render.Renderer
	printed  map[string]bool
	waiting  bool
	lastErr  string
}

func newChatPrinter(renderer *render.Renderer) *chatPrinter {
	return &chatPrinter{renderer: renderer, printed: map[string]bool{}}
}

func (p *chatPrinter) Print(snap thread.Snapshot) {
	p.renderer.SetParticipants(snap.Participants)

	// Waiting completion is the signal that streamed messages are final
	if snap.Waiting && !p.waiting {
		fmt.Print(p.renderer.Waiting())
	}
	p.waiting = snap.Waiting

	if !snap.Waiting && !snap.Loading {
		for _, msg := range snap.Messages {
			if msg.Local || p.printed[msg.ID] {
				continue
			}
			fmt.Print(p.renderer.Message(msg))
			p.printed[msg.ID] = true
		}
	}

	if snap.Err != "" && snap.Err != p.lastErr {
		fmt.Print(p.renderer.Error(snap.Err))
	}
	p.lastErr = snap.Err
}
