package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
)

// BadgerStore keeps the directory in an embedded BadgerDB.
//
// Rows are CBOR-encoded under "idn/<service>\x00<user>". Create runs its
// existence check and write in one update transaction; Badger's optimistic
// conflict detection turns a concurrent create into ErrConflict.
type BadgerStore struct {
	db    *badgerdb.DB
	owned bool
}

// badgerRow is the persisted form. Key fields live in the key, not the value.
type badgerRow struct {
	PasswordDigest string   `cbor:"1,keyasint"`
	Salt           []byte   `cbor:"2,keyasint"`
	Privileges     []string `cbor:"3,keyasint"`
	CreatedAt      int64    `cbor:"4,keyasint"` // unix nanos, UTC
}

var (
	badgerEnc cbor.EncMode
	badgerDec cbor.DecMode
)

func init() {
	var err error
	// Core Deterministic Encoding: same row, same bytes.
	badgerEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("identity: CBOR encoder initialization failed: " + err.Error())
	}
	badgerDec, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("identity: CBOR decoder initialization failed: " + err.Error())
	}
}

// OpenBadgerStore opens (or creates) a Badger directory at dir.
// An empty dir opens an in-memory database. The returned store owns the DB.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badgerdb.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("identity: open badger: %w", err)
	}
	return &BadgerStore{db: db, owned: true}, nil
}

// NewBadgerStore wraps an already open DB. The caller keeps ownership.
func NewBadgerStore(db *badgerdb.DB) (*BadgerStore, error) {
	if db == nil {
		return nil, fmt.Errorf("identity: nil badger db")
	}
	return &BadgerStore{db: db}, nil
}

// Close closes the DB when the store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Ping starts a read transaction to confirm the DB is usable.
func (s *BadgerStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return storeErr("identity.Ping", err)
	}
	if err := s.db.View(func(*badgerdb.Txn) error { return nil }); err != nil {
		return storeErr("identity.Ping", err)
	}
	return nil
}

func (s *BadgerStore) Get(ctx context.Context, service, user string) (StoredCredential, error) {
	const op = "identity.Get"

	if err := validKey(op, service, user); err != nil {
		return StoredCredential{}, err
	}
	if err := ctx.Err(); err != nil {
		return StoredCredential{}, storeErr(op, err)
	}

	var row badgerRow
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(badgerKey(service, user))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return badgerDec.Unmarshal(val, &row)
		})
	})
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return StoredCredential{}, NotFoundError{Op: op, User: user}
	}
	if err != nil {
		return StoredCredential{}, storeErr(op, err)
	}

	return StoredCredential{
		Service:        service,
		User:           user,
		PasswordDigest: row.PasswordDigest,
		Salt:           row.Salt,
		Privileges:     row.Privileges,
		CreatedAt:      time.Unix(0, row.CreatedAt).UTC(),
	}, nil
}

func (s *BadgerStore) Put(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Put"

	if err := cred.Validate(op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}

	val, err := encodeBadgerRow(cred)
	if err != nil {
		return storeErr(op, err)
	}
	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(badgerKey(cred.Service, cred.User), val)
	}); err != nil {
		return storeErr(op, err)
	}
	return nil
}

var errBadgerExists = errors.New("row exists")

func (s *BadgerStore) Create(ctx context.Context, cred StoredCredential) error {
	const op = "identity.Create"

	if err := cred.Validate(op); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}

	val, err := encodeBadgerRow(cred)
	if err != nil {
		return storeErr(op, err)
	}

	key := badgerKey(cred.Service, cred.User)
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(key)
		switch {
		case err == nil:
			return errBadgerExists
		case !errors.Is(err, badgerdb.ErrKeyNotFound):
			return err
		}
		return txn.Set(key, val)
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errBadgerExists), errors.Is(err, badgerdb.ErrConflict):
		return ConflictError{Op: op, User: cred.User}
	default:
		return storeErr(op, err)
	}
}

func (s *BadgerStore) Delete(ctx context.Context, service, user string) error {
	const op = "identity.Delete"

	if err := validKey(op, service, user); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return storeErr(op, err)
	}

	// Badger deletes of absent keys are no-ops.
	if err := s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Delete(badgerKey(service, user))
	}); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func badgerKey(service, user string) []byte {
	k := make([]byte, 0, 4+len(service)+1+len(user))
	k = append(k, "idn/"...)
	k = append(k, service...)
	k = append(k, 0)
	k = append(k, user...)
	return k
}

func encodeBadgerRow(c StoredCredential) ([]byte, error) {
	created := c.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return badgerEnc.Marshal(badgerRow{
		PasswordDigest: c.PasswordDigest,
		Salt:           c.Salt,
		Privileges:     c.Privileges,
		CreatedAt:      created.UTC().UnixNano(),
	})
}
