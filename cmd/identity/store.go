package identity

import "context"

// Store is the directory persistence boundary, keyed by (service, user).
//
// Contract:
//   - Get returns NotFoundError (ErrNotFound) for a missing row.
//   - Put is an unconditional upsert.
//   - Create succeeds only if no row exists for the key; otherwise ConflictError.
//   - Delete is idempotent: deleting an absent row is not an error.
//   - Backend failures are returned as StoreError (ErrUnavailable).
//
// Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, service, user string) (StoredCredential, error)
	Put(ctx context.Context, cred StoredCredential) error
	Create(ctx context.Context, cred StoredCredential) error
	Delete(ctx context.Context, service, user string) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by stores that own backend resources.
type Closer interface {
	Close() error
}
