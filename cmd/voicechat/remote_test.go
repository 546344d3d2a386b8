package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-voicechat/pkg/api"
	"github.com/teslashibe/go-voicechat/pkg/chat"
)

// fakeServer serves the conversation routes from memory.
type fakeServer struct {
	mu      sync.Mutex
	convs   map[string]api.ConversationView
	order   []string
	active  string
	deleted []string
}

func newFakeServer() *fakeServer {
	return &fakeServer{convs: make(map[string]api.ConversationView)}
}

func (f *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}

	mux.HandleFunc("GET /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		list := api.ConversationList{ActiveID: f.active}
		for _, id := range f.order {
			list.Conversations = append(list.Conversations, f.convs[id])
		}
		writeJSON(w, http.StatusOK, list)
	})
	mux.HandleFunc("POST /api/conversations", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		conv := api.ConversationView{ID: "c9", CreatedAt: time.Now().UTC(), Active: true}
		f.convs[conv.ID] = conv
		f.order = append(f.order, conv.ID)
		f.active = conv.ID
		writeJSON(w, http.StatusCreated, conv)
	})
	mux.HandleFunc("DELETE /api/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id := r.PathValue("id")
		if _, ok := f.convs[id]; !ok {
			writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "conversation not found"})
			return
		}
		delete(f.convs, id)
		f.deleted = append(f.deleted, id)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /api/conversations/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "bad body"})
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		conv, ok := f.convs[r.PathValue("id")]
		if !ok {
			writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "conversation not found"})
			return
		}
		conv.Messages = append(conv.Messages,
			api.NewMessageView(chat.NewUserMessage(req.Content)),
			api.NewMessageView(chat.NewAssistantMessage("**Sure**\n- "+req.Content)),
		)
		f.convs[conv.ID] = conv
		writeJSON(w, http.StatusOK, conv)
	})
	mux.HandleFunc("/ws/events", func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		ev := api.NewEvent(api.EventSubmitFailed, "c1")
		ev.Error = "model unavailable"
		conn.WriteJSON(ev)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	})
	return mux
}

func newRemoteClient(t *testing.T, f *fakeServer) *api.Client {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	c, err := api.NewClient(srv.URL)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestRunRemote_AskCreatesConversation(t *testing.T) {
	f := newFakeServer()
	client := newRemoteClient(t, f)

	var out strings.Builder
	err := runRemote(context.Background(), client, remoteOptions{ask: "weather", list: true}, &out)
	if err != nil {
		t.Fatalf("runRemote: %v", err)
	}

	want := "Sure\n• weather\n* c9    (2 messages)\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}

func TestRunRemote_AskExistingAndDelete(t *testing.T) {
	f := newFakeServer()
	f.convs["a"] = api.ConversationView{ID: "a", Title: "Old"}
	f.convs["b"] = api.ConversationView{ID: "b", Title: "Keep"}
	f.order = []string{"a", "b"}
	client := newRemoteClient(t, f)

	var out strings.Builder
	opts := remoteOptions{delete: "a", ask: "hi", chat: "b"}
	if err := runRemote(context.Background(), client, opts, &out); err != nil {
		t.Fatalf("runRemote: %v", err)
	}
	f.mu.Lock()
	deleted, msgs := f.deleted, len(f.convs["b"].Messages)
	f.mu.Unlock()
	if len(deleted) != 1 || deleted[0] != "a" {
		t.Errorf("deleted = %v", deleted)
	}
	if msgs != 2 {
		t.Errorf("conversation b has %d messages, want 2", msgs)
	}
	if !strings.HasPrefix(out.String(), "deleted a\nSure\n") {
		t.Errorf("output = %q", out.String())
	}

	err := runRemote(context.Background(), client, remoteOptions{delete: "missing"}, &out)
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
		t.Errorf("delete missing err = %v, want not found", err)
	}
}

func TestRunRemote_Watch(t *testing.T) {
	client := newRemoteClient(t, newFakeServer())

	var out strings.Builder
	if err := runRemote(context.Background(), client, remoteOptions{watch: true}, &out); err != nil {
		t.Fatalf("runRemote: %v", err)
	}
	if !strings.HasSuffix(out.String(), "submit.failed c1: model unavailable\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestRemoteOptionsAny(t *testing.T) {
	if (remoteOptions{chat: "c1"}).any() {
		t.Error("-chat alone should not select headless mode")
	}
	if !(remoteOptions{watch: true}).any() {
		t.Error("-watch should select headless mode")
	}
	if err := headless(context.Background(), "", remoteOptions{list: true}); !errors.Is(err, errNoServer) {
		t.Errorf("headless without server = %v", err)
	}
}
