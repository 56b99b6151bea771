package subscription

import "time"

// Config holds the tunable knobs of the subscription service.
// Fields can be populated from the environment via pkg/config.
type Config struct {
	// MaxWriteRetries bounds how many times a conflicting write is re-read
	// and recomputed before ErrConflict is surfaced to the caller.
	MaxWriteRetries int `env:"SUBSCRIPTION_WRITE_RETRIES" envDefault:"3"`

	// GracePeriod is the window after expiry during which renew can still
	// reactivate a subscription without a fresh subscribe.
	GracePeriod time.Duration `env:"SUBSCRIPTION_GRACE_PERIOD" envDefault:"168h"`

	// AuthorizeTimeout caps the blocking call to the payment provider during
	// subscribe and upgrade. On timeout no record is persisted.
	AuthorizeTimeout time.Duration `env:"SUBSCRIPTION_AUTHORIZE_TIMEOUT" envDefault:"15s"`

	// PaymentRetryLimit is the provider retry attempt at which a failing
	// subscription moves from past_due to unpaid.
	PaymentRetryLimit int `env:"SUBSCRIPTION_PAYMENT_RETRY_LIMIT" envDefault:"3"`
}

// DefaultConfig returns the configuration used when no override is supplied.
func DefaultConfig() Config {
	return Config{
		MaxWriteRetries:   3,
		GracePeriod:       7 * 24 * time.Hour,
		AuthorizeTimeout:  15 * time.Second,
		PaymentRetryLimit: 3,
	}
}
