package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		key string
		ok  bool
	}{
		{"chats", true},
		{"chats.v2", true},
		{"user_1-chats", true},
		{"", false},
		{"..", false},
		{"a/b", false},
		{"a b", false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.ok && err != nil {
				t.Errorf("ValidateKey(%q) = %v", tt.key, err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidKey) {
				t.Errorf("ValidateKey(%q) = %v, want ErrInvalidKey", tt.key, err)
			}
		})
	}
}

func TestFileStorage(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "store")

	s, err := NewFileStorage(dir)
	if err != nil {
		t.Fatalf("NewFileStorage: %v", err)
	}
	defer s.Close()

	t.Run("missing key", func(t *testing.T) {
		if _, err := s.Load(ctx, "chats"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Load missing = %v, want ErrNotFound", err)
		}
	})

	t.Run("save then load", func(t *testing.T) {
		if err := s.Save(ctx, "chats", []byte(`[1]`)); err != nil {
			t.Fatalf("Save: %v", err)
		}
		if err := s.Save(ctx, "chats", []byte(`[1,2]`)); err != nil {
			t.Fatalf("Save overwrite: %v", err)
		}
		got, err := s.Load(ctx, "chats")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if string(got) != `[1,2]` {
			t.Errorf("Load = %s", got)
		}
	})

	t.Run("no temp file left", func(t *testing.T) {
		if _, err := os.Stat(s.Path("chats") + ".tmp"); !os.IsNotExist(err) {
			t.Errorf("temp file should be renamed away, stat err = %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := s.Save(cctx, "chats", nil); !errors.Is(err, context.Canceled) {
			t.Errorf("Save with cancelled ctx = %v", err)
		}
	})
}

func TestMemoryStorage(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStorage()

	data := []byte("abc")
	if err := s.Save(ctx, "k", data); err != nil {
		t.Fatal(err)
	}
	data[0] = 'x'

	got, err := s.Load(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "abc" {
		t.Errorf("stored data aliased caller slice: %s", got)
	}
	if s.Saves() != 1 {
		t.Errorf("Saves = %d", s.Saves())
	}

	s.SaveErr = errors.New("disk full")
	if err := s.Save(ctx, "k", nil); err == nil {
		t.Error("expected SaveErr")
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("Open default: %v", err)
	}
	if s.Name() != "file" {
		t.Errorf("default backend = %s", s.Name())
	}

	if _, err := Open(ctx, Config{Backend: "postgres"}); err == nil {
		t.Error("postgres without DSN should fail")
	}
	if _, err := Open(ctx, Config{Backend: "minio"}); err == nil {
		t.Error("minio without endpoint should fail")
	}
	if _, err := Open(ctx, Config{Backend: "redis"}); err == nil {
		t.Error("unknown backend should fail")
	}
}
