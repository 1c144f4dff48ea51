package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-syr-auth"
)

type sweepCounter struct {
	removed int64
	errs    int
}

func (s *sweepCounter) ObserveSweep(removed int64, err error) {
	if err != nil {
		s.errs++
		return
	}
	s.removed += removed
}

func TestSweeperSweepOnce(t *testing.T) {
	_, sm, clock, user := newSessionFixture(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := sm.Create(ctx, user.ID)
		require.NoError(t, err)
	}
	clock.Advance(time.Minute)

	observer := &sweepCounter{}
	sweeper := auth.NewSweeper(sm, time.Hour, auth.WithSweepObserver(observer))

	n, err := sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), observer.removed)

	n, err = sweeper.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweeperReportsErrors(t *testing.T) {
	db, repo := openStore(t)
	sm := auth.NewSessionManager(repo)
	require.NoError(t, db.Close())

	observer := &sweepCounter{}
	_, err := auth.NewSweeper(sm, 0, auth.WithSweepObserver(observer)).SweepOnce(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, observer.errs)
}

func TestSweeperRunStopsWithContext(t *testing.T) {
	_, repo := openStore(t)
	sweeper := auth.NewSweeper(auth.NewSessionManager(repo), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
