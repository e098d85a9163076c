package identity

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is a process-local Store for development and tests.
// Rows are lost on restart.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[memKey]StoredCredential
}

type memKey struct {
	service string
	user    string
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rows: make(map[memKey]StoredCredential)}
}

// Close closes the store (noop for in-memory).
func (s *MemoryStore) Close() error { return nil }

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Get(ctx context.Context, service, user string) (StoredCredential, error) {
	const op = "identity.Get"

	if err := validKey(op, service, user); err != nil {
		return StoredCredential{}, err
	}
	if err := ctx.Err(); err != nil {
		return StoredCredential{}, storeErr(op, err)
	}

	s.mu.RLock()
	row, ok := s.rows[memKey{service, user}]
	s.mu.RUnlock()

	if !ok {
		return StoredCredential{}, NotFoundError{Op: op, User: user}
	}
	return cloneCredential(row), nil
}

func (s *MemoryStore) Put(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Put"

	if err := cred.Validate(op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rows[memKey{cred.Service, cred.User}] = stamp(cred)
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Create"

	if err := cred.Validate(op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}

	k := memKey{cred.Service, cred.User}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rows[k]; exists {
		return ConflictError{Op: op, User: cred.User}
	}
	s.rows[k] = stamp(cred)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, service, user string) error {
	const op = "identity.Delete"

	if err := validKey(op, service, user); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}

	s.mu.Lock()
	delete(s.rows, memKey{service, user})
	s.mu.Unlock()
	return nil
}

// Len returns the number of rows across all services.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// stamp returns a private copy of cred with CreatedAt set.
func stamp(cred StoredCredential) StoredCredential {
	c := cloneCredential(cred)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return c
}

func cloneCredential(c StoredCredential) StoredCredential {
	c.Salt = slices.Clone(c.Salt)
	c.Privileges = slices.Clone(c.Privileges)
	return c
}
