package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// AssistantListener receives each assistant message after it is stored.
type AssistantListener func(conversationID string, msg Message)

// FailureListener receives generation failures.
type FailureListener func(conversationID string, err error)

// SubmitFlow sends drafts to a Generator and records the exchange in a Store.
// At most one submission per conversation is in flight.
type SubmitFlow struct {
	store  *Store
	gen    Generator
	logger *slog.Logger

	mu        sync.Mutex
	inflight  map[string]struct{}
	onReply   []AssistantListener
	onFailure []FailureListener
}

// FlowOption configures a SubmitFlow.
type FlowOption func(*SubmitFlow)

// WithFlowLogger sets the structured logger.
func WithFlowLogger(l *slog.Logger) FlowOption {
	return func(f *SubmitFlow) { f.logger = l }
}

// NewSubmitFlow creates a flow over store and gen.
func NewSubmitFlow(store *Store, gen Generator, opts ...FlowOption) *SubmitFlow {
	f := &SubmitFlow{
		store:    store,
		gen:      gen,
		logger:   slog.Default(),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With("component", "chat.submit")
	return f
}

// OnAssistantMessage registers a listener for new assistant messages.
func (f *SubmitFlow) OnAssistantMessage(fn AssistantListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReply = append(f.onReply, fn)
}

// OnFailure registers a listener for generation failures.
func (f *SubmitFlow) OnFailure(fn FailureListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onFailure = append(f.onFailure, fn)
}

// Loading reports whether a submission for id is in flight.
func (f *SubmitFlow) Loading(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.inflight[id]
	return ok
}

// Submit sends draft on behalf of the active conversation.
func (f *SubmitFlow) Submit(ctx context.Context, draft string) (Conversation, error) {
	return f.SubmitTo(ctx, f.store.ActiveID(), draft)
}

// SubmitTo sends draft on behalf of conversation id.
//
// Skipped submissions return the unchanged conversation with ErrEmptyDraft,
// ErrInFlight or ErrNoActiveConversation and never reach the generator.
// Only the newest message is sent: generation is stateless per request.
// On failure nothing is appended and an *UpstreamError is returned.
func (f *SubmitFlow) SubmitTo(ctx context.Context, id, draft string) (Conversation, error) {
	return f.SubmitNotify(ctx, id, draft, nil)
}

// SubmitNotify is SubmitTo with a hook: started runs once the submission
// has claimed the conversation and before generation. Skipped submissions
// never call it.
func (f *SubmitFlow) SubmitNotify(ctx context.Context, id, draft string, started func()) (Conversation, error) {
	if id == "" {
		return Conversation{}, ErrNoActiveConversation
	}
	conv, err := f.store.Get(id)
	if err != nil {
		return Conversation{}, err
	}

	text := strings.TrimSpace(draft)
	if text == "" {
		return conv, ErrEmptyDraft
	}
	if !f.begin(id) {
		return conv, ErrInFlight
	}
	defer f.end(id)
	if started != nil {
		started()
	}

	user := NewUserMessage(text)
	pending := append(conv.Messages, user)
	prompt := pending[len(pending)-1].Content

	start := time.Now()
	reply, err := f.gen.GenerateText(ctx, prompt)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = ErrEmptyResponse
	}
	if err != nil {
		uerr := &UpstreamError{Service: "generate", ConversationID: id, Err: err}
		f.logger.Warn("generation failed, draft dropped",
			"conversation", id,
			"error", err,
		)
		f.notifyFailure(id, uerr)
		return conv, uerr
	}

	assistant := NewAssistantMessage(reply)
	updated, err := f.store.commitExchange(ctx, id, user, assistant)
	if err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			return conv, err
		}
		f.logger.Warn("reply kept in memory only", "conversation", id, "error", err)
	}

	f.logger.Debug("reply appended",
		"conversation", id,
		"chars", len(reply),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	f.notifyReply(id, assistant)
	return updated, nil
}

func (f *SubmitFlow) begin(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.inflight[id]; busy {
		return false
	}
	f.inflight[id] = struct{}{}
	return true
}

func (f *SubmitFlow) end(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inflight, id)
}

func (f *SubmitFlow) notifyReply(id string, msg Message) {
	f.mu.Lock()
	listeners := append([]AssistantListener(nil), f.onReply...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(id, msg)
	}
}

func (f *SubmitFlow) notifyFailure(id string, err error) {
	f.mu.Lock()
	listeners := append([]FailureListener(nil), f.onFailure...)
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(id, err)
	}
}
