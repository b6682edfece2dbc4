package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_SetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := mc.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("expected v, got %s", got)
	}
}

func TestMemoryCache_Miss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	_, err := mc.Get(context.Background(), "absent")
	if err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "k", []byte("v"), -time.Second)
	if _, err := mc.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss for expired item, got %v", err)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	mc.Set(ctx, "k", []byte("v"), time.Minute)
	if err := mc.Delete(ctx, "k"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := mc.Get(ctx, "k"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestMemoryCache_ClearPattern(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	hosp := "7e6db1e0-0000-0000-0000-000000000001"
	mc.Set(ctx, QueueKey(hosp), []byte("q"), time.Minute)
	mc.Set(ctx, CalendarKey(hosp, "day", "2026-01-05"), []byte("c"), time.Minute)
	mc.Set(ctx, QueueKey("other"), []byte("o"), time.Minute)

	if err := mc.Clear(ctx, HospitalPattern(hosp)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := mc.Get(ctx, QueueKey(hosp)); err != ErrCacheMiss {
		t.Error("expected hospital queue view to be cleared")
	}
	if _, err := mc.Get(ctx, CalendarKey(hosp, "day", "2026-01-05")); err != ErrCacheMiss {
		t.Error("expected hospital calendar view to be cleared")
	}
	if _, err := mc.Get(ctx, QueueKey("other")); err != nil {
		t.Error("expected other hospital's view to survive")
	}
}
