package subscription

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithConfig overrides the default service configuration.
func WithConfig(cfg Config) ServiceOption {
	return func(s *service) {
		s.cfg = cfg
	}
}

// WithLogger sets the logger used for non-surfaced failures (provider
// cancellation errors, dropped webhooks, contested sweeps).
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithEventHandler registers a hook receiving lifecycle events after their
// write is durable. Notifications, audit trails and analytics belong here,
// outside the core.
func WithEventHandler(fn EventHandler) ServiceOption {
	return func(s *service) {
		if fn != nil {
			s.onEvent = fn
		}
	}
}

// WithClock replaces the time source. Intended for tests that need
// deterministic dates.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}
