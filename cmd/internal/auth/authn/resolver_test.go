package authn

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebauth/cmd/identity"
	"ebauth/cmd/internal/tenant"
	"ebauth/cmd/security/password"
	"ebauth/cmd/security/token"
)

var t0 = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

// spyStore counts Get calls and can be told to fail.
type spyStore struct {
	identity.Store
	gets atomic.Int32
	fail error
}

func (s *spyStore) Get(ctx context.Context, service, user string) (identity.StoredCredential, error) {
	s.gets.Add(1)
	if s.fail != nil {
		return identity.StoredCredential{}, s.fail
	}
	return s.Store.Get(ctx, service, user)
}

type fixture struct {
	cfg      tenant.Config
	store    *spyStore
	hasher   *password.Hasher
	codec    token.Codec
	clock    time.Time
	resolver *Resolver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg, err := tenant.Config{
		Name:           "svc",
		TokenSecret:    []byte("0123456789abcdef0123456789abcdef"),
		TokenTimeout:   10 * time.Minute,
		PasswordPepper: []byte("pepper"),
	}.Validate()
	require.NoError(t, err)

	pcfg := password.DefaultConfig()
	pcfg.Params.MemoryKiB = 8 * 1024
	pcfg.Params.Iterations = 1
	pcfg.Params.Parallelism = 1

	codec, err := cfg.NewCodec()
	require.NoError(t, err)

	f := &fixture{
		cfg:    cfg,
		store:  &spyStore{Store: identity.NewMemoryStore()},
		hasher: password.NewHasher(pcfg, cfg.PasswordPepper),
		codec:  codec,
		clock:  t0,
	}
	f.resolver = NewResolver(cfg, f.store, codec, f.hasher, WithClock(func() time.Time { return f.clock }))
	return f
}

func (f *fixture) addUser(t *testing.T, user, pw string, privs ...string) {
	t.Helper()
	salt, err := f.hasher.NewSalt()
	require.NoError(t, err)
	digest, err := f.hasher.Digest(pw, salt)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), identity.StoredCredential{
		Service: f.cfg.Name, User: user, PasswordDigest: digest, Salt: salt, Privileges: privs,
	}))
}

func (f *fixture) sign(t *testing.T, id identity.Identity, at time.Time) string {
	t.Helper()
	tok, err := f.codec.Sign(id, at)
	require.NoError(t, err)
	return tok
}

func TestResolve_None(t *testing.T) {
	f := newFixture(t)

	id, err := f.resolver.Resolve(context.Background(), None())
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())
	assert.Zero(t, f.store.gets.Load())
}

func TestResolve_FormToken(t *testing.T) {
	f := newFixture(t)
	want := identity.Identity{User: "alice", Privileges: []string{"user", "admin"}}
	tok := f.sign(t, want, t0)

	id, err := f.resolver.Resolve(context.Background(), FormToken(tok))
	require.NoError(t, err)
	assert.Equal(t, want, id)
}

func TestResolve_FormTokenExpiredNeverFallsBack(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "pw", "user")
	tok := f.sign(t, identity.Identity{User: "alice", Privileges: []string{"user"}}, t0)

	f.clock = t0.Add(10 * time.Minute)
	id, err := f.resolver.Resolve(context.Background(), FormToken(tok))
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())
	assert.Zero(t, f.store.gets.Load(), "expired form token must not reach the directory")
}

func TestResolve_FormTokenInvalidNeverFallsBack(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "pw", "user")

	id, err := f.resolver.Resolve(context.Background(), FormToken("alice"))
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())
	assert.Zero(t, f.store.gets.Load())
}

func TestResolve_BasicAuthUsernameIsToken(t *testing.T) {
	f := newFixture(t)
	want := identity.Identity{User: "bob", Privileges: []string{"user"}}
	tok := f.sign(t, want, t0)

	id, err := f.resolver.Resolve(context.Background(), BasicAuth(tok, "ignored"))
	require.NoError(t, err)
	assert.Equal(t, want, id)
	assert.Zero(t, f.store.gets.Load())
}

func TestResolve_BasicAuthExpiredTokenIsAnonymous(t *testing.T) {
	f := newFixture(t)
	tok := f.sign(t, identity.Identity{User: "bob", Privileges: []string{"user"}}, t0)

	f.clock = t0.Add(time.Hour)
	id, err := f.resolver.Resolve(context.Background(), BasicAuth(tok, "pw"))
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())
	assert.Zero(t, f.store.gets.Load(), "expired token in username must not fall back")
}

func TestResolve_BasicAuthPassword(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct", "user", "admin")

	id, err := f.resolver.Resolve(context.Background(), BasicAuth("alice", "correct"))
	require.NoError(t, err)
	assert.Equal(t, identity.Identity{User: "alice", Privileges: []string{"user", "admin"}}, id)
}

func TestResolve_BasicAuthCarriesLivePrivileges(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "pw", "user", "admin")
	f.addUser(t, "alice", "pw", "user")

	id, err := f.resolver.Resolve(context.Background(), BasicAuth("alice", "pw"))
	require.NoError(t, err)
	assert.Equal(t, []string{"user"}, id.Privileges)
}

func TestResolve_BasicAuthRejects(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "correct", "user")

	cases := map[string]Credentials{
		"wrong password": BasicAuth("alice", "wrong"),
		"unknown user":   BasicAuth("mallory", "correct"),
		"empty username": BasicAuth("", "correct"),
		"blank username": BasicAuth("   ", "correct"),
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			id, err := f.resolver.Resolve(context.Background(), creds)
			require.NoError(t, err)
			assert.True(t, id.IsAnonymous())
		})
	}
}

func TestResolve_BasicAuthUnusableDigestIsAnonymous(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Put(context.Background(), identity.StoredCredential{
		Service: "svc", User: "legacy", PasswordDigest: "5f4dcc3b5aa765d61d8327deb882cf99",
		Salt: []byte("0123456789abcdef"), Privileges: []string{"user"},
	}))

	id, err := f.resolver.Resolve(context.Background(), BasicAuth("legacy", "password"))
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())
}

func TestResolve_StoreFailurePropagates(t *testing.T) {
	f := newFixture(t)
	f.store.fail = identity.StoreError{Op: "identity.Get", Err: errors.New("connection refused")}

	id, err := f.resolver.Resolve(context.Background(), BasicAuth("alice", "pw"))
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrUnavailable)
	assert.True(t, id.IsAnonymous())
}

func TestResolve_OtherServiceRowsInvisible(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "pw", "user")

	other := f.cfg
	other.Name = "other"
	r := NewResolver(other, f.store, f.codec, f.hasher, WithClock(func() time.Time { return t0 }))

	id, err := r.Resolve(context.Background(), BasicAuth("alice", "pw"))
	require.NoError(t, err)
	assert.True(t, id.IsAnonymous())
}

func TestGetToken(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "alice", "pw", "user")
	ctx := context.Background()

	t.Run("resolves request identity", func(t *testing.T) {
		res, err := f.resolver.GetToken(ctx, nil, BasicAuth("alice", "pw"))
		require.NoError(t, err)
		require.NotNil(t, res.Token)

		id, err := f.codec.Verify(*res.Token, t0)
		require.NoError(t, err)
		assert.Equal(t, "alice", id.User)
		assert.Equal(t, []string{"user"}, id.Privileges)
	})

	t.Run("override skips resolution", func(t *testing.T) {
		before := f.store.gets.Load()
		override := identity.Identity{User: "carol", Privileges: []string{"admin"}}

		res, err := f.resolver.GetToken(ctx, &override, None())
		require.NoError(t, err)
		require.NotNil(t, res.Token)
		assert.Equal(t, before, f.store.gets.Load())

		id, err := f.codec.Verify(*res.Token, t0)
		require.NoError(t, err)
		assert.Equal(t, override, id)
	})

	t.Run("anonymous yields null", func(t *testing.T) {
		res, err := f.resolver.GetToken(ctx, nil, BasicAuth("alice", "wrong"))
		require.NoError(t, err)
		assert.Nil(t, res.Token)

		res, err = f.resolver.GetToken(ctx, &identity.Anonymous, None())
		require.NoError(t, err)
		assert.Nil(t, res.Token)
	})

	t.Run("store failure", func(t *testing.T) {
		f.store.fail = identity.StoreError{Op: "identity.Get"}
		defer func() { f.store.fail = nil }()

		_, err := f.resolver.GetToken(ctx, nil, BasicAuth("alice", "pw"))
		assert.ErrorIs(t, err, identity.ErrUnavailable)
	})
}

func TestCredentials_StringHidesSecrets(t *testing.T) {
	c := BasicAuth("alice", "hunter2")
	assert.NotContains(t, c.String(), "hunter2")
	assert.NotContains(t, c.String(), "alice")
	assert.Equal(t, "none", None().String())
	assert.Equal(t, KindFormToken, FormToken("x").Kind())
}
