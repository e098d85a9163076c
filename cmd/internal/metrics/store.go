package metrics

import (
	"context"
	"errors"
	"time"

	"ebauth/cmd/identity"
)

// InstrumentStore wraps s so every call is timed into StoreOperationDuration.
// Ping and Close pass through when s implements them.
func InstrumentStore(s identity.Store) identity.Store {
	return &instrumentedStore{next: s}
}

type instrumentedStore struct {
	next identity.Store
}

func (s *instrumentedStore) Get(ctx context.Context, service, user string) (identity.StoredCredential, error) {
	start := time.Now()
	c, err := s.next.Get(ctx, service, user)
	observeStore("get", start, err)
	return c, err
}

func (s *instrumentedStore) Put(ctx context.Context, c identity.StoredCredential) error {
	start := time.Now()
	err := s.next.Put(ctx, c)
	observeStore("put", start, err)
	return err
}

func (s *instrumentedStore) Create(ctx context.Context, c identity.StoredCredential) error {
	start := time.Now()
	err := s.next.Create(ctx, c)
	observeStore("create", start, err)
	return err
}

func (s *instrumentedStore) Delete(ctx context.Context, service, user string) error {
	start := time.Now()
	err := s.next.Delete(ctx, service, user)
	observeStore("delete", start, err)
	return err
}

func (s *instrumentedStore) Ping(ctx context.Context) error {
	if p, ok := s.next.(identity.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *instrumentedStore) Close() error {
	if c, ok := s.next.(identity.Closer); ok {
		return c.Close()
	}
	return nil
}

func observeStore(op string, start time.Time, err error) {
	StoreOperationDuration.WithLabelValues(op, storeResult(err)).Observe(time.Since(start).Seconds())
}

func storeResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, identity.ErrNotFound):
		return "not_found"
	case errors.Is(err, identity.ErrConflict):
		return "conflict"
	case errors.Is(err, identity.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
