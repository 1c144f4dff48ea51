package auth_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	auth "github.com/goliatone/go-syr-auth"
	"github.com/goliatone/go-syr-auth/storage"
)

var testKey = []byte(strings.Repeat("k", 32))

func cheapHasher() *auth.Argon2Hasher {
	return auth.NewArgon2Hasher(auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1})
}

func openStore(t *testing.T) (*bun.DB, auth.RepositoryManager) {
	t.Helper()
	ctx := context.Background()

	db, err := storage.Open(ctx, storage.Options{Driver: storage.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = storage.Migrate(ctx, db)
	require.NoError(t, err)

	return db, auth.NewRepositoryManager(db)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recorder struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (r *recorder) Record(_ context.Context, event auth.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) Types() []auth.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fixture struct {
	db       *bun.DB
	repo     auth.RepositoryManager
	clock    *fakeClock
	tokens   *auth.JWTTokenService
	sessions *auth.SessionManager
	prov     *auth.Provisioner
	events   *recorder
}

func newFixture(t *testing.T, opts ...auth.ProvisionerOption) *fixture {
	t.Helper()

	db, repo := openStore(t)
	clock := newClock()

	tokens, err := auth.NewTokenService(testKey, auth.WithTokenClock(clock.Now))
	require.NoError(t, err)

	sessions := auth.NewSessionManager(repo, auth.WithSessionClock(clock.Now))
	events := &recorder{}

	base := []auth.ProvisionerOption{
		auth.WithClock(clock.Now),
		auth.WithActivitySink(events),
		auth.WithDIDDomain("syr.example"),
	}

	return &fixture{
		db:       db,
		repo:     repo,
		clock:    clock,
		tokens:   tokens,
		sessions: sessions,
		events:   events,
		prov:     auth.NewProvisioner(repo, cheapHasher(), tokens, sessions, append(base, opts...)...),
	}
}

func (f *fixture) register(t *testing.T, username string) *auth.AuthResult {
	t.Helper()
	result, err := f.prov.Register(context.Background(), auth.RegisterInput{
		Username:    username,
		Password:    "Passw0rdOK",
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
	})
	require.NoError(t, err)
	return result
}
