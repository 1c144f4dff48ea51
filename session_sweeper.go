package auth

import (
	"context"
	"time"
)

// DefaultSweepInterval is how often the sweeper runs when unset
const DefaultSweepInterval = 15 * time.Minute

// SweepObserver is told how many rows each sweep removed
type SweepObserver interface {
	ObserveSweep(removed int64, err error)
}

// Sweeper periodically removes expired sessions
type Sweeper struct {
	sessions *SessionManager
	interval time.Duration
	observer SweepObserver
	logger   Logger
}

// SweeperOption configures a Sweeper
type SweeperOption func(*Sweeper)

// WithSweepObserver registers an observer, e.g. a metrics collector
func WithSweepObserver(o SweepObserver) SweeperOption {
	return func(s *Sweeper) {
		s.observer = o
	}
}

// WithSweeperLogger sets the logger
func WithSweeperLogger(logger Logger) SweeperOption {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSweeper creates a sweeper running every interval
func NewSweeper(sessions *SessionManager, interval time.Duration, opts ...SweeperOption) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s := &Sweeper{
		sessions: sessions,
		interval: interval,
		logger:   defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// SweepOnce runs a single sweep
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.sessions.SweepExpired(ctx)
	if s.observer != nil {
		s.observer.ObserveSweep(n, err)
	}
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
		return 0, err
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
	return n, nil
}

// Run sweeps until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
