package subscription

import (
	"context"
	"log/slog"
	"time"
)

// SweeperConfig holds settings for the periodic expiry sweeper.
// Populate it from the environment via pkg/config and apply it with
// WithSweeperConfig.
type SweeperConfig struct {
	Interval time.Duration `env:"SUBSCRIPTION_SWEEP_INTERVAL" envDefault:"5m"`
}

// Sweeper periodically drives overdue subscriptions to expired. Multiple
// sweepers may run at once (or alongside webhook reconciliation); every
// write goes through the same optimistic-concurrency path, so overlap costs
// a retry, not correctness.
type Sweeper struct {
	svc      Service
	interval time.Duration
	log      *slog.Logger
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweeperConfig applies an environment-sourced configuration.
func WithSweeperConfig(cfg SweeperConfig) SweeperOption {
	return func(sw *Sweeper) {
		if cfg.Interval > 0 {
			sw.interval = cfg.Interval
		}
	}
}

// WithSweepInterval overrides the default 5 minute sweep interval.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(sw *Sweeper) {
		if d > 0 {
			sw.interval = d
		}
	}
}

// WithSweeperLogger sets the sweeper's logger.
func WithSweeperLogger(log *slog.Logger) SweeperOption {
	return func(sw *Sweeper) {
		if log != nil {
			sw.log = log
		}
	}
}

// NewSweeper creates a sweeper bound to the given service.
// Panics if svc is nil to fail fast during initialization.
func NewSweeper(svc Service, opts ...SweeperOption) *Sweeper {
	if svc == nil {
		panic("subscription: Service is required")
	}

	sw := &Sweeper{
		svc:      svc,
		interval: 5 * time.Minute,
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(sw)
	}
	return sw
}

// Run sweeps on a fixed interval until the context is canceled.
// Blocks; start it in its own goroutine. The first sweep happens after one
// interval, not immediately, so startup bursts do not pile onto a fresh
// deployment.
func (sw *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.log.Info("expiry sweeper started", slog.Duration("interval", sw.interval))

	for {
		select {
		case <-ctx.Done():
			sw.log.Info("expiry sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

func (sw *Sweeper) sweep(ctx context.Context) {
	expired, err := sw.svc.SweepExpired(ctx, time.Now().UTC())
	if err != nil {
		sw.log.ErrorContext(ctx, "expiry sweep failed", slog.Any("error", err))
		return
	}
	if expired > 0 {
		sw.log.InfoContext(ctx, "expiry sweep completed", slog.Int("expired", expired))
	}
}
