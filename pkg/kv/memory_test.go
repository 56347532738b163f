package kv

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || got != "v" {
		t.Fatalf("expected v, got %q (%v)", got, err)
	}
	if err := store.Delete(ctx, "k", "other"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewMemory().WithClock(func() time.Time { return now })

	if err := store.Set(ctx, "count", "3", 7*24*time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	now = now.Add(7*24*time.Hour - time.Second)
	if got, err := store.Get(ctx, "count"); err != nil || got != "3" {
		t.Fatalf("expected value before expiry, got %q (%v)", got, err)
	}
	now = now.Add(time.Second)
	if _, err := store.Get(ctx, "count"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected expired key to be missing, got %v", err)
	}
}

func TestMemoryHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemory().Set(ctx, "k", "v", 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
