package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/iho/bankledger/internal/usecase"
)

func TestSelectionStoreSetAndGet(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewSelectionStore(client)
	ctx := context.Background()

	if err := store.Set(ctx, "sess-1", "42", time.Hour); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != "42" {
		t.Fatalf("expected 42, got %s", got)
	}
}

func TestSelectionStoreExpires(t *testing.T) {
	client, mr := newTestRedisClient(t)

	store := NewSelectionStore(client)
	ctx := context.Background()

	if err := store.Set(ctx, "sess-1", "42", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, usecase.ErrNoAccountSelected) {
		t.Fatalf("expected ErrNoAccountSelected after expiry, got %v", err)
	}
}

func TestSelectionStoreClear(t *testing.T) {
	client, _ := newTestRedisClient(t)

	store := NewSelectionStore(client)
	ctx := context.Background()

	if err := store.Set(ctx, "sess-1", "42", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	if err := store.Clear(ctx, "sess-1"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}

	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, usecase.ErrNoAccountSelected) {
		t.Fatalf("expected ErrNoAccountSelected after clear, got %v", err)
	}
}

func TestSelectionAndIdempotencyKeysDoNotCollide(t *testing.T) {
	client, mr := newTestRedisClient(t)

	selections := NewSelectionStore(client)
	idempotency := NewIdempotencyStore(client)
	ctx := context.Background()

	if err := selections.Set(ctx, "browser-a", "1", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	scoped := "POST /api/v1/session/movements session=browser-a k1"
	if _, _, err := idempotency.CheckAndSet(ctx, scoped, nil, time.Minute); err != nil {
		t.Fatalf("CheckAndSet failed: %v", err)
	}

	sessions, keys := ledgerKeys(mr)
	if len(sessions) != 1 || sessions[0] != "browser-a" {
		t.Fatalf("expected one session key, got %v", sessions)
	}
	if len(keys) != 1 || keys[0] != scoped {
		t.Fatalf("expected one idempotency key, got %v", keys)
	}

	if err := selections.Clear(ctx, "browser-a"); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, keys = ledgerKeys(mr); len(keys) != 1 {
		t.Fatalf("clearing a session must keep its idempotency keys, got %v", keys)
	}
}
