package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/teslashibe/go-voicechat/internal/log"
)

// recordingGenerator records prompts and answers from a function.
type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	fn      func(prompt string) (string, error)
}

func (g *recordingGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	return g.fn(prompt)
}

func (g *recordingGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

func echoGenerator() *recordingGenerator {
	return &recordingGenerator{fn: func(p string) (string, error) { return "echo: " + p, nil }}
}

func testFlow(t *testing.T, gen Generator) (*SubmitFlow, *Store) {
	t.Helper()
	store, _ := testStore(t)
	return NewSubmitFlow(store, gen, WithFlowLogger(log.Discard())), store
}

func TestSubmitSkips(t *testing.T) {
	ctx := context.Background()

	t.Run("empty draft", func(t *testing.T) {
		gen := echoGenerator()
		flow, store := testFlow(t, gen)
		c, _ := store.Create(ctx)

		for _, draft := range []string{"", "   ", "\n\t"} {
			got, err := flow.Submit(ctx, draft)
			if !errors.Is(err, ErrEmptyDraft) {
				t.Errorf("Submit(%q) err = %v", draft, err)
			}
			if got.ID != c.ID || len(got.Messages) != 0 {
				t.Errorf("conversation changed: %+v", got)
			}
		}
		if len(gen.calls()) != 0 {
			t.Errorf("generator called %d times", len(gen.calls()))
		}
	})

	t.Run("no active conversation", func(t *testing.T) {
		gen := echoGenerator()
		flow, _ := testFlow(t, gen)

		_, err := flow.Submit(ctx, "hello")
		if !errors.Is(err, ErrNoActiveConversation) {
			t.Errorf("err = %v", err)
		}
		if !IsSkipped(err) {
			t.Error("IsSkipped should hold")
		}
		if len(gen.calls()) != 0 {
			t.Error("generator should not be called")
		}
	})

	t.Run("in flight", func(t *testing.T) {
		release := make(chan struct{})
		entered := make(chan struct{})
		gen := &recordingGenerator{fn: func(p string) (string, error) {
			close(entered)
			<-release
			return "done", nil
		}}
		flow, store := testFlow(t, gen)
		store.Create(ctx)

		done := make(chan error, 1)
		go func() {
			_, err := flow.Submit(ctx, "first")
			done <- err
		}()
		<-entered

		if !flow.Loading(store.ActiveID()) {
			t.Error("Loading should be true while generating")
		}
		if _, err := flow.Submit(ctx, "second"); !errors.Is(err, ErrInFlight) {
			t.Errorf("concurrent submit err = %v", err)
		}

		close(release)
		if err := <-done; err != nil {
			t.Fatalf("first submit: %v", err)
		}
		if flow.Loading(store.ActiveID()) {
			t.Error("Loading should clear after completion")
		}
		if n := len(gen.calls()); n != 1 {
			t.Errorf("generator calls = %d, want 1", n)
		}
	})
}

func TestSubmitSuccess(t *testing.T) {
	ctx := context.Background()
	gen := echoGenerator()
	flow, store := testFlow(t, gen)
	c, _ := store.Create(ctx)

	var replies []Message
	flow.OnAssistantMessage(func(id string, msg Message) {
		if id != c.ID {
			t.Errorf("listener id = %q", id)
		}
		replies = append(replies, msg)
	})

	got, err := flow.Submit(ctx, "  What is the capital of France, and why?  ")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(got.Messages) != 2 {
		t.Fatalf("messages = %+v", got.Messages)
	}
	if got.Messages[0] != NewUserMessage("What is the capital of France, and why?") {
		t.Errorf("user message = %+v", got.Messages[0])
	}
	if got.Messages[1].Role != RoleAssistant || got.Messages[1].Content != "echo: What is the capital of France, and why?" {
		t.Errorf("assistant message = %+v", got.Messages[1])
	}
	if got.Title != "What is the capital of France,..." {
		t.Errorf("title = %q", got.Title)
	}
	if len(replies) != 1 {
		t.Errorf("listener calls = %d", len(replies))
	}

	stored, _ := store.Get(c.ID)
	if len(stored.Messages) != 2 {
		t.Error("exchange not persisted in store")
	}
}

func TestSubmitSendsOnlyLastMessage(t *testing.T) {
	ctx := context.Background()
	gen := echoGenerator()
	flow, store := testFlow(t, gen)
	store.Create(ctx)

	flow.Submit(ctx, "first question")
	got, err := flow.Submit(ctx, "second question")
	if err != nil {
		t.Fatal(err)
	}

	prompts := gen.calls()
	if len(prompts) != 2 || prompts[1] != "second question" {
		t.Errorf("prompts = %q", prompts)
	}
	if got.Title != "first question..." {
		t.Errorf("title should be set once, got %q", got.Title)
	}
	if len(got.Messages) != 4 {
		t.Errorf("messages = %d", len(got.Messages))
	}
}

func TestSubmitKeepsCustomTitle(t *testing.T) {
	ctx := context.Background()
	flow, store := testFlow(t, echoGenerator())
	c, _ := store.Create(ctx)
	store.Rename(ctx, c.ID, "Mine")

	got, _ := flow.Submit(ctx, "hello")
	if got.Title != "Mine" {
		t.Errorf("title = %q", got.Title)
	}
}

func TestSubmitFailure(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func(string) (string, error)
		want error
	}{
		{"generator error", func(string) (string, error) { return "", errors.New("503") }, nil},
		{"empty reply", func(string) (string, error) { return "  ", nil }, ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow, store := testFlow(t, &recordingGenerator{fn: tt.fn})
			c, _ := store.Create(ctx)

			var failures int
			flow.OnFailure(func(id string, err error) { failures++ })
			flow.OnAssistantMessage(func(string, Message) { t.Error("no reply expected") })

			got, err := flow.Submit(ctx, "hello")
			var uerr *UpstreamError
			if !errors.As(err, &uerr) {
				t.Fatalf("expected UpstreamError, got %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if len(got.Messages) != 0 || got.Title != DefaultTitle {
				t.Errorf("conversation changed: %+v", got)
			}
			stored, _ := store.Get(c.ID)
			if len(stored.Messages) != 0 {
				t.Error("stored messages changed after failure")
			}
			if failures != 1 {
				t.Errorf("failure listener calls = %d", failures)
			}
			if flow.Loading(c.ID) {
				t.Error("loading flag should clear on failure")
			}
		})
	}
}

func TestSubmitToExplicitConversation(t *testing.T) {
	ctx := context.Background()
	flow, store := testFlow(t, echoGenerator())
	a, _ := store.Create(ctx)
	b, _ := store.Create(ctx)

	got, err := flow.SubmitTo(ctx, a.ID, "for a")
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != a.ID {
		t.Errorf("submitted to %q", got.ID)
	}
	if store.ActiveID() != b.ID {
		t.Error("SubmitTo must not change the selection")
	}
	if _, err := flow.SubmitTo(ctx, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing conversation err = %v", err)
	}
}

func TestSubmitNotifyStartedOnlyWhenClaimed(t *testing.T) {
	ctx := context.Background()
	gen := echoGenerator()
	flow, store := testFlow(t, gen)
	c, _ := store.Create(ctx)

	var started []int
	hook := func() { started = append(started, len(gen.calls())) }

	if _, err := flow.SubmitNotify(ctx, c.ID, "  ", hook); !errors.Is(err, ErrEmptyDraft) {
		t.Fatalf("empty draft err = %v", err)
	}
	flow.begin(c.ID)
	if _, err := flow.SubmitNotify(ctx, c.ID, "busy", hook); !errors.Is(err, ErrInFlight) {
		t.Fatalf("in-flight err = %v", err)
	}
	flow.end(c.ID)
	if len(started) != 0 {
		t.Fatalf("started called for skipped submissions")
	}

	if _, err := flow.SubmitNotify(ctx, c.ID, "hello", hook); err != nil {
		t.Fatal(err)
	}
	if len(started) != 1 || started[0] != 0 {
		t.Errorf("started = %v, want once before generation", started)
	}
}

func TestSubmitConcurrentConversations(t *testing.T) {
	ctx := context.Background()
	gen := &recordingGenerator{fn: func(p string) (string, error) {
		time.Sleep(5 * time.Millisecond)
		return strings.ToUpper(p), nil
	}}
	flow, store := testFlow(t, gen)

	var ids []string
	for i := 0; i < 4; i++ {
		c, _ := store.Create(ctx)
		ids = append(ids, c.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := flow.SubmitTo(ctx, id, "hi "+id); err != nil {
				t.Errorf("SubmitTo(%s): %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	for _, id := range ids {
		c, _ := store.Get(id)
		if len(c.Messages) != 2 {
			t.Errorf("%s has %d messages", id, len(c.Messages))
		}
	}
}
