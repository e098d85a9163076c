package identity

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// runStoreConformance exercises the Store contract against one backend.
// newStore must return an empty store scoped to the calling test.
func runStoreConformance(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(testCtx(t), "svc", "ghost")
		if !IsNotFound(err) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		var nf NotFoundError
		if !errors.As(err, &nf) || nf.User != "ghost" {
			t.Fatalf("expected NotFoundError for ghost, got %#v", err)
		}
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		in := testCred("svc", "alice", "d1", "user", "admin")
		if err := s.Create(ctx, in); err != nil {
			t.Fatalf("create: %v", err)
		}

		got, err := s.Get(ctx, "svc", "alice")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Service != "svc" || got.User != "alice" || got.PasswordDigest != "d1" {
			t.Fatalf("unexpected row: %+v", got)
		}
		if string(got.Salt) != string(in.Salt) {
			t.Fatalf("salt mismatch")
		}
		if !slices.Equal(got.Privileges, []string{"user", "admin"}) {
			t.Fatalf("privileges order not preserved: %v", got.Privileges)
		}
		if got.CreatedAt.IsZero() {
			t.Fatalf("expected CreatedAt")
		}
	})

	t.Run("CreateConflictKeepsFirst", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		if err := s.Create(ctx, testCred("svc", "alice", "first", "user")); err != nil {
			t.Fatalf("create: %v", err)
		}
		err := s.Create(ctx, testCred("svc", "alice", "second", "user"))
		if !IsConflict(err) || !errors.Is(err, ErrConflict) {
			t.Fatalf("expected conflict, got %v", err)
		}

		got, err := s.Get(ctx, "svc", "alice")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.PasswordDigest != "first" {
			t.Fatalf("digest overwritten: %q", got.PasswordDigest)
		}
	})

	t.Run("PutOverwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		if err := s.Put(ctx, testCred("svc", "bob", "v1", "user")); err != nil {
			t.Fatalf("put: %v", err)
		}
		if err := s.Put(ctx, testCred("svc", "bob", "v2", "admin")); err != nil {
			t.Fatalf("put: %v", err)
		}
		got, err := s.Get(ctx, "svc", "bob")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.PasswordDigest != "v2" || !slices.Equal(got.Privileges, []string{"admin"}) {
			t.Fatalf("put did not overwrite: %+v", got)
		}
	})

	t.Run("ServicesAreIsolated", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		if err := s.Create(ctx, testCred("svc-a", "carol", "a", "user")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Create(ctx, testCred("svc-b", "carol", "b", "user")); err != nil {
			t.Fatalf("same user in another service must not conflict: %v", err)
		}
		got, err := s.Get(ctx, "svc-b", "carol")
		if err != nil || got.PasswordDigest != "b" {
			t.Fatalf("unexpected row: %+v err=%v", got, err)
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		if err := s.Delete(ctx, "svc", "ghost"); err != nil {
			t.Fatalf("delete missing: %v", err)
		}
		if err := s.Create(ctx, testCred("svc", "dave", "d", "user")); err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := s.Delete(ctx, "svc", "dave"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, "svc", "dave"); err != nil {
			t.Fatalf("delete again: %v", err)
		}
		if _, err := s.Get(ctx, "svc", "dave"); !IsNotFound(err) {
			t.Fatalf("expected not found after delete, got %v", err)
		}
	})

	t.Run("InvalidInput", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		if _, err := s.Get(ctx, "svc", "  "); !IsInvalidInput(err) {
			t.Fatalf("expected invalid input, got %v", err)
		}
		bad := testCred("svc", "erin", "", "user")
		if err := s.Create(ctx, bad); !IsInvalidInput(err) {
			t.Fatalf("expected invalid input, got %v", err)
		}
	})

	t.Run("NULInKeyRejected", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		first := testCred("a\x00b", "c", "pw-1", "user")
		if err := s.Create(ctx, first); !IsInvalidInput(err) {
			t.Fatalf("service with NUL: expected invalid input, got %v", err)
		}
		second := testCred("a", "b\x00c", "pw-2", "user")
		if err := s.Put(ctx, second); !IsInvalidInput(err) {
			t.Fatalf("user with NUL: expected invalid input, got %v", err)
		}
		if _, err := s.Get(ctx, "a\x00b", "c"); !IsInvalidInput(err) {
			t.Fatalf("get with NUL: expected invalid input, got %v", err)
		}
		if err := s.Delete(ctx, "a", "b\x00c"); !IsInvalidInput(err) {
			t.Fatalf("delete with NUL: expected invalid input, got %v", err)
		}
	})

	t.Run("ConcurrentCreateOneWinner", func(t *testing.T) {
		s := newStore(t)
		ctx := testCtx(t)

		const n = 8
		var wins, conflicts atomic.Int32
		var wg sync.WaitGroup
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := s.Create(ctx, testCred("svc", "race", string(rune('a'+i)), "user"))
				switch {
				case err == nil:
					wins.Add(1)
				case IsConflict(err):
					conflicts.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		if wins.Load() != 1 || conflicts.Load() != n-1 {
			t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", n-1, wins.Load(), conflicts.Load())
		}
	})
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testCred(service, user, digest string, privs ...string) StoredCredential {
	return StoredCredential{
		Service:        service,
		User:           user,
		PasswordDigest: digest,
		Salt:           []byte("0123456789abcdef"),
		Privileges:     privs,
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}
