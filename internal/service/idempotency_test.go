package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"mdbrowse/internal/domain/models"
	"mdbrowse/internal/repository/memory"
)

func TestGuardRunsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	calls := 0
	op := func(ctx context.Context) (int, []byte, error) {
		calls++
		return 201, []byte(`{"id":"abc"}`), nil
	}

	status, body, replayed, err := env.idem.Guard(ctx, "key-1", op)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if replayed || status != 201 {
		t.Errorf("first call: replayed=%v status=%d", replayed, status)
	}

	status2, body2, replayed2, err := env.idem.Guard(ctx, "key-1", op)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !replayed2 {
		t.Error("second call with the same key should replay")
	}
	if calls != 1 {
		t.Errorf("operation ran %d times, want 1", calls)
	}
	if status2 != status || !bytes.Equal(body, body2) {
		t.Error("replay must return the stored response verbatim")
	}
}

func TestGuardEmptyKeyDisablesDeduplication(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	calls := 0
	op := func(ctx context.Context) (int, []byte, error) {
		calls++
		return 200, nil, nil
	}

	for i := 0; i < 3; i++ {
		if _, _, replayed, err := env.idem.Guard(ctx, "", op); err != nil || replayed {
			t.Fatalf("call %d: replayed=%v err=%v", i, replayed, err)
		}
	}
	if calls != 3 {
		t.Errorf("operation ran %d times, want 3", calls)
	}
}

func TestGuardFailureLeavesKeyFree(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	boom := errors.New("boom")
	calls := 0

	_, _, _, err := env.idem.Guard(ctx, "key-1", func(ctx context.Context) (int, []byte, error) {
		calls++
		return 0, nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected op error to propagate, got %v", err)
	}

	// The retry executes the operation again
	status, _, replayed, err := env.idem.Guard(ctx, "key-1", func(ctx context.Context) (int, []byte, error) {
		calls++
		return 200, []byte("ok"), nil
	})
	if err != nil || replayed || status != 200 {
		t.Fatalf("retry: status=%d replayed=%v err=%v", status, replayed, err)
	}
	if calls != 2 {
		t.Errorf("operation ran %d times, want 2", calls)
	}
}

func TestGuardExpiredKeyReruns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Plant a record that is already past the TTL
	idemRepo := memory.NewIdempotencyRepository(env.store)
	if err := idemRepo.Put(ctx, &models.IdempotencyRecord{
		Key:       "stale-key",
		Status:    201,
		Body:      []byte("old"),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}); err != nil {
		t.Fatalf("plant record: %v", err)
	}

	status, body, replayed, err := env.idem.Guard(ctx, "stale-key", func(ctx context.Context) (int, []byte, error) {
		return 200, []byte("fresh"), nil
	})
	if err != nil {
		t.Fatalf("guard: %v", err)
	}
	if replayed {
		t.Error("expired record must not replay")
	}
	if status != 200 || string(body) != "fresh" {
		t.Errorf("got %d/%q, want the fresh response", status, body)
	}
}

// End to end: the same create request guarded twice writes one document,
// one version, one audit entry.
func TestGuardedDocumentCreate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	actor := adminActor()

	op := func(ctx context.Context) (int, []byte, error) {
		doc, err := env.docs.CreateDocument(ctx, actor, &CreateDocumentRequest{Title: "Doc", Content: "body"})
		if err != nil {
			return 0, nil, err
		}
		return 201, []byte(doc.ID), nil
	}

	_, first, _, err := env.idem.Guard(ctx, "create-1", op)
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, second, replayed, err := env.idem.Guard(ctx, "create-1", op)
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if !replayed || !bytes.Equal(first, second) {
		t.Error("replay should return the first document's response")
	}

	if entries := env.auditEntries(t, ActionDocumentCreate); len(entries) != 1 {
		t.Errorf("expected 1 audit entry, got %d", len(entries))
	}
	if versions, err := env.docs.ListVersions(ctx, actor, string(first)); err != nil || len(versions) != 1 {
		t.Errorf("expected a single version chain of length 1, got %d (%v)", len(versions), err)
	}
}
