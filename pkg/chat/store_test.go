package chat

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/teslashibe/go-voicechat/internal/log"
	"github.com/teslashibe/go-voicechat/pkg/snapshot"
)

// testStore creates a store over fresh in-memory storage with sequential ids.
func testStore(t *testing.T) (*Store, *snapshot.MemoryStorage) {
	t.Helper()
	storage := snapshot.NewMemoryStorage()
	return newSeqStore(t, storage), storage
}

func newSeqStore(t *testing.T, storage snapshot.Storage) *Store {
	t.Helper()
	n := 0
	return NewStore(context.Background(), storage,
		WithStoreLogger(log.Discard()),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("c%d", n)
		}),
	)
}

func TestNewStoreEmpty(t *testing.T) {
	store, _ := testStore(t)

	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d", store.Len())
	}
	if _, ok := store.Active(); ok {
		t.Error("expected no active conversation")
	}
}

func TestNewStoreTolerantLoad(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    int
	}{
		{"corrupt json", `{"conversations": [`, 0},
		{"wrong shape", `"hello"`, 0},
		{"versioned envelope", `{"version":1,"conversations":[{"id":"a","title":"A","messages":[]}]}`, 1},
		{"bare array", `[{"id":"a","title":"A","messages":[]},{"id":"b","messages":[]}]`, 2},
		{"duplicate and blank ids dropped", `[{"id":"a"},{"id":"a"},{"id":""}]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := snapshot.NewMemoryStorage()
			storage.Put(SnapshotKey, []byte(tt.payload))

			store := newSeqStore(t, storage)
			if store.Len() != tt.want {
				t.Errorf("Len = %d, want %d", store.Len(), tt.want)
			}
		})
	}
}

func TestLoadSelectsFirstAndDefaultsTitle(t *testing.T) {
	storage := snapshot.NewMemoryStorage()
	storage.Put(SnapshotKey, []byte(`[{"id":"a","title":"First","messages":[]},{"id":"b","messages":[]}]`))

	store := newSeqStore(t, storage)
	if store.ActiveID() != "a" {
		t.Errorf("ActiveID = %q, want a", store.ActiveID())
	}
	b, err := store.Get("b")
	if err != nil {
		t.Fatal(err)
	}
	if b.Title != DefaultTitle {
		t.Errorf("blank title should default, got %q", b.Title)
	}
}

func TestCreate(t *testing.T) {
	store, storage := testStore(t)
	ctx := context.Background()

	c, err := store.Create(ctx)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Title != DefaultTitle || len(c.Messages) != 0 {
		t.Errorf("unexpected new conversation: %+v", c)
	}
	if store.ActiveID() != c.ID {
		t.Errorf("new conversation should be active")
	}

	c2, _ := store.Create(ctx)
	list := store.List()
	if len(list) != 2 || list[0].ID != c.ID || list[1].ID != c2.ID {
		t.Errorf("conversations should be appended in order: %+v", list)
	}
	if storage.Saves() != 2 {
		t.Errorf("expected a save per mutation, got %d", storage.Saves())
	}
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	storage := snapshot.NewMemoryStorage()
	store := newSeqStore(t, storage)

	c, _ := store.Create(ctx)
	if _, err := store.Append(ctx, c.ID, NewUserMessage("hi"), NewAssistantMessage("hello")); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Rename(ctx, c.ID, "Greetings"); err != nil {
		t.Fatal(err)
	}

	reloaded := newSeqStore(t, storage)
	got, err := reloaded.Get(c.ID)
	if err != nil {
		t.Fatalf("reloaded Get: %v", err)
	}
	if got.Title != "Greetings" || len(got.Messages) != 2 {
		t.Errorf("reloaded conversation = %+v", got)
	}
	if got.Messages[1].Role != RoleAssistant {
		t.Errorf("message order lost: %+v", got.Messages)
	}
}

func TestDeleteActiveSelectsFirstRemaining(t *testing.T) {
	ctx := context.Background()

	t.Run("first remaining", func(t *testing.T) {
		store, _ := testStore(t)
		a, _ := store.Create(ctx)
		b, _ := store.Create(ctx)
		c, _ := store.Create(ctx)

		if err := store.Select(b.ID); err != nil {
			t.Fatal(err)
		}
		if err := store.Delete(ctx, b.ID); err != nil {
			t.Fatal(err)
		}
		if store.ActiveID() != a.ID {
			t.Errorf("ActiveID = %q, want %q", store.ActiveID(), a.ID)
		}
		if _, err := store.Get(c.ID); err != nil {
			t.Errorf("index broken after delete: %v", err)
		}
	})

	t.Run("none remaining", func(t *testing.T) {
		store, _ := testStore(t)
		a, _ := store.Create(ctx)
		if err := store.Delete(ctx, a.ID); err != nil {
			t.Fatal(err)
		}
		if store.ActiveID() != "" {
			t.Errorf("ActiveID = %q, want none", store.ActiveID())
		}
		if _, ok := store.Active(); ok {
			t.Error("Active should report none")
		}
	})

	t.Run("inactive delete keeps selection", func(t *testing.T) {
		store, _ := testStore(t)
		a, _ := store.Create(ctx)
		b, _ := store.Create(ctx)
		if err := store.Delete(ctx, a.ID); err != nil {
			t.Fatal(err)
		}
		if store.ActiveID() != b.ID {
			t.Errorf("ActiveID = %q, want %q", store.ActiveID(), b.ID)
		}
	})
}

func TestNotFound(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	if _, err := store.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v", err)
	}
	if err := store.Select("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Select = %v", err)
	}
	if err := store.Delete(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete = %v", err)
	}
	if _, err := store.Append(ctx, "nope", NewUserMessage("x")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Append = %v", err)
	}
}

func TestSaveFailureKeepsMemoryState(t *testing.T) {
	store, storage := testStore(t)
	storage.SaveErr = errors.New("read-only")

	c, err := store.Create(context.Background())
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.Op != "save" {
		t.Errorf("Op = %q", perr.Op)
	}
	if _, err := store.Get(c.ID); err != nil {
		t.Errorf("conversation should stay in memory: %v", err)
	}
}

func TestReturnedConversationsAreCopies(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()
	c, _ := store.Create(ctx)
	store.Append(ctx, c.ID, NewUserMessage("original"))

	got, _ := store.Get(c.ID)
	got.Messages[0].Content = "mutated"

	again, _ := store.Get(c.ID)
	if again.Messages[0].Content != "original" {
		t.Error("store state leaked through returned slice")
	}
}

func TestPreview(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"short", "short..."},
		{"exactly thirty characters long", "exactly thirty characters long..."},
		{"this message is definitely longer than thirty", "this message is definitely lon..."},
		{"héllo wörld with ünïcode characters", "héllo wörld with ünïcode chara..."},
	}
	for _, tt := range tests {
		if got := Preview(tt.in, TitleLength); got != tt.want {
			t.Errorf("Preview(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
