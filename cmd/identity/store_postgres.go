package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the directory over PostgreSQL.
//
// Design notes:
//   - The pgx pool is owned by the caller; this store must NOT close it.
//   - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
//   - Create relies on the primary key and ON CONFLICT DO NOTHING, so concurrent
//     creates for one key produce exactly one winner.
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the store (default "ebauth").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return fmt.Errorf("identity: empty schema")
		}
		if !pgIdentIsValid(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: "ebauth",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// EnsureSchema creates the schema and the identities table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const op = "identity.EnsureSchema"

	ddl := fmt.Sprintf(`
CREATE SCHEMA IF NOT EXISTS %s;

CREATE TABLE IF NOT EXISTS %s (
  service TEXT NOT NULL,
  username TEXT NOT NULL,
  password_digest TEXT NOT NULL,
  salt BYTEA NOT NULL,
  privileges TEXT[] NOT NULL DEFAULT '{}',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now(),

  CONSTRAINT pk_identities PRIMARY KEY (service, username),
  CONSTRAINT chk_identities_username_nonempty CHECK (char_length(username) > 0)
);
`, pgx.Identifier{s.schema}.Sanitize(), s.table())

	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return storeErr(op, err)
	}
	return nil
}

// Ping acquires a connection to confirm the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return storeErr("identity.Ping", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, service, user string) (StoredCredential, error) {
	const op = "identity.Get"

	if err := validKey(op, service, user); err != nil {
		return StoredCredential{}, err
	}

	q := fmt.Sprintf(`
SELECT service, username, password_digest, salt, privileges, created_at
FROM %s
WHERE service = $1 AND username = $2
`, s.table())

	var c StoredCredential
	err := s.pool.QueryRow(ctx, q, service, user).Scan(
		&c.Service,
		&c.User,
		&c.PasswordDigest,
		&c.Salt,
		&c.Privileges,
		&c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StoredCredential{}, NotFoundError{Op: op, User: user}
		}
		return StoredCredential{}, storeErr(op, err)
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (s *PostgresStore) Put(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Put"

	if err := cred.Validate(op); err != nil {
		return err
	}

	q := fmt.Sprintf(`
INSERT INTO %s (service, username, password_digest, salt, privileges, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (service, username) DO UPDATE
SET password_digest = EXCLUDED.password_digest,
    salt = EXCLUDED.salt,
    privileges = EXCLUDED.privileges
`, s.table())

	if _, err := s.pool.Exec(ctx, q, pgArgs(cred)...); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Create"

	if err := cred.Validate(op); err != nil {
		return err
	}

	q := fmt.Sprintf(`
INSERT INTO %s (service, username, password_digest, salt, privileges, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (service, username) DO NOTHING
`, s.table())

	tag, err := s.pool.Exec(ctx, q, pgArgs(cred)...)
	if err != nil {
		if pgIsUniqueViolation(err) {
			return ConflictError{Op: op, User: cred.User}
		}
		return storeErr(op, err)
	}
	if tag.RowsAffected() == 0 {
		return ConflictError{Op: op, User: cred.User}
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, service, user string) error {
	const op = "identity.Delete"

	if err := validKey(op, service, user); err != nil {
		return err
	}

	q := fmt.Sprintf(`DELETE FROM %s WHERE service = $1 AND username = $2`, s.table())
	if _, err := s.pool.Exec(ctx, q, service, user); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (s *PostgresStore) table() string {
	return pgIdent(s.schema, "identities")
}

func pgArgs(c StoredCredential) []any {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	privs := c.Privileges
	if privs == nil {
		privs = []string{}
	}
	return []any{c.Service, c.User, c.PasswordDigest, c.Salt, privs, created}
}

// pgIdentIsValid checks if a string is a safe Postgres identifier.
func pgIdentIsValid(s string) bool {
	return pgIdentRe.MatchString(s)
}

// pgIdent safely quotes a schema-qualified identifier: "schema"."name".
func pgIdent(schema, name string) string {
	return pgx.Identifier{schema, name}.Sanitize()
}

func pgIsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" // unique_violation
}
