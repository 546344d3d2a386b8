package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/teslashibe/go-voicechat/pkg/api"
	"github.com/teslashibe/go-voicechat/pkg/chat"
	"github.com/teslashibe/go-voicechat/pkg/format"
)

// remoteOptions selects a headless operation against a voicechat-server.
type remoteOptions struct {
	list   bool
	ask    string
	chat   string
	delete string
	watch  bool
}

func (o remoteOptions) any() bool {
	return o.list || o.ask != "" || o.delete != "" || o.watch
}

var errNoServer = errors.New("-list, -ask, -delete and -watch need -server")

// runRemote performs the selected operations in a fixed order and writes
// human-readable results to w.
func runRemote(ctx context.Context, client *api.Client, opts remoteOptions, w io.Writer) error {
	if opts.delete != "" {
		if err := client.DeleteConversation(ctx, opts.delete); err != nil {
			return fmt.Errorf("delete %s: %w", opts.delete, err)
		}
		fmt.Fprintf(w, "deleted %s\n", opts.delete)
	}

	if opts.ask != "" {
		if err := ask(ctx, client, opts.chat, opts.ask, w); err != nil {
			return err
		}
	}

	if opts.list {
		list, err := client.Conversations(ctx)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}
		for _, c := range list.Conversations {
			marker := " "
			if c.ID == list.ActiveID {
				marker = "*"
			}
			fmt.Fprintf(w, "%s %s  %s  (%d messages)\n", marker, c.ID, c.Title, len(c.Messages))
		}
	}

	if opts.watch {
		return watch(ctx, client, w)
	}
	return nil
}

// ask sends question to conversation id, creating a conversation when id is
// empty, and prints the formatted reply.
func ask(ctx context.Context, client *api.Client, id, question string, w io.Writer) error {
	if id == "" {
		conv, err := client.CreateConversation(ctx)
		if err != nil {
			return fmt.Errorf("create conversation: %w", err)
		}
		id = conv.ID
	}

	conv, err := client.SendMessage(ctx, id, question)
	if err != nil {
		return fmt.Errorf("send to %s: %w", id, err)
	}
	reply := lastReply(conv)
	if reply == nil {
		return fmt.Errorf("send to %s: %w", id, chat.ErrEmptyResponse)
	}
	segments := reply.Segments
	if segments == nil {
		segments = format.Format(reply.Content)
	}
	fmt.Fprintln(w, format.Render(segments))
	return nil
}

func lastReply(conv api.ConversationView) *api.MessageView {
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == chat.RoleAssistant {
			return &conv.Messages[i]
		}
	}
	return nil
}

// watch prints events until ctx is done or the server closes the stream.
func watch(ctx context.Context, client *api.Client, w io.Writer) error {
	events, err := client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	for ev := range events {
		line := fmt.Sprintf("%s %s %s", ev.Time.Local().Format("15:04:05"), ev.Type, ev.ConversationID)
		switch {
		case ev.Error != "":
			line += ": " + ev.Error
		case ev.Message != nil:
			line += ": " + format.Plain(format.Format(ev.Message.Content))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
