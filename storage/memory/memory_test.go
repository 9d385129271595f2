package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/adeilh/marketcache/storage"
)

func TestStoreSetGetRemove(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if err := store.SetItem(ctx, "search_a", "one"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	got, err := store.GetItem(ctx, "search_a")
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if got != "one" {
		t.Fatalf("GetItem() = %q, want %q", got, "one")
	}

	if err := store.SetItem(ctx, "search_a", "two"); err != nil {
		t.Fatalf("SetItem() overwrite error = %v", err)
	}
	if got, _ := store.GetItem(ctx, "search_a"); got != "two" {
		t.Fatalf("GetItem() after overwrite = %q, want %q", got, "two")
	}

	if err := store.RemoveItem(ctx, "search_a"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if _, err := store.GetItem(ctx, "search_a"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.RemoveItem(ctx, "search_a"); err != nil {
		t.Fatalf("RemoveItem() on absent key error = %v", err)
	}
}

func TestStoreKeysAndLen(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	for _, k := range []string{"b", "a", "C"} {
		if err := store.SetItem(ctx, k, "v"); err != nil {
			t.Fatalf("SetItem(%q) error = %v", k, err)
		}
	}

	keys, err := store.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys() error = %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 3 || keys[0] != "C" || keys[1] != "a" || keys[2] != "b" {
		t.Fatalf("Keys() = %v", keys)
	}
	n, err := store.Len(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Len() = %d, %v; want 3", n, err)
	}
}

func TestStoreQuota(t *testing.T) {
	ctx := context.Background()
	store := NewStore(WithQuota(10))

	if err := store.SetItem(ctx, "k", "12345"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	if err := store.SetItem(ctx, "j", "12345"); !errors.Is(err, storage.ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	// replacing an existing value only charges the difference
	if err := store.SetItem(ctx, "k", "123456789"); err != nil {
		t.Fatalf("SetItem() overwrite within quota error = %v", err)
	}
	if err := store.RemoveItem(ctx, "k"); err != nil {
		t.Fatalf("RemoveItem() error = %v", err)
	}
	if err := store.SetItem(ctx, "j", "12345"); err != nil {
		t.Fatalf("SetItem() after freeing space error = %v", err)
	}
}

func TestStoreContextCancellation(t *testing.T) {
	store := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.SetItem(ctx, "any", "value"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStoreConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	var wg sync.WaitGroup
	for w := 0; w < 16; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				key := string(rune('a' + worker))
				_ = store.SetItem(ctx, key, "v")
				_, _ = store.GetItem(ctx, key)
				_, _ = store.Keys(ctx)
			}
		}(w)
	}
	wg.Wait()

	if n, _ := store.Len(ctx); n != 16 {
		t.Fatalf("Len() = %d, want 16", n)
	}
}
