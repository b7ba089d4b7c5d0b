package cache

import (
	"context"
	"testing"
)

func TestMemoryStore_SetGet(t *testing.T) {
	c := NewMemoryStore()

	ctx := context.Background()
	key := "test:key"
	val := []byte("hello")

	if err := c.Set(ctx, key, val); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// mutating the caller's buffer must not change the stored entry
	val[0] = 'j'

	got, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !hit {
		t.Fatalf("expected hit immediately after Set")
	}
	if string(got) != "hello" {
		t.Fatalf("expected 'hello', got %q", got)
	}

	ok, err := c.Exists(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected Exists to report the key, got %v, %v", ok, err)
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	c := NewMemoryStore()
	ctx := context.Background()

	_, hit, err := c.Get(ctx, "absent")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if hit {
		t.Fatalf("expected miss for absent key")
	}

	ok, err := c.Exists(ctx, "absent")
	if err != nil || ok {
		t.Fatalf("expected Exists to miss, got %v, %v", ok, err)
	}
}

func TestMemoryStore_EmptyValue(t *testing.T) {
	c := NewMemoryStore()
	ctx := context.Background()

	if err := c.Set(ctx, "one", nil); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, hit, err := c.Get(ctx, "one")
	if err != nil || !hit {
		t.Fatalf("expected hit for empty entry, got %v, %v", hit, err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty value, got %q", got)
	}

	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("expected empty store after Clear, got %d", c.Len())
	}
}
