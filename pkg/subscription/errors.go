package subscription

import "errors"

var (
	ErrNotFound          = errors.New("subscription not found")
	ErrAlreadySubscribed = errors.New("user already has an active or trialing subscription")
	ErrAlreadyCanceled   = errors.New("subscription is already canceled")
	ErrTrialAlreadyUsed  = errors.New("free trial has already been used")
	ErrTrialNotAvailable = errors.New("plan does not offer a free trial")
	ErrGraceExpired      = errors.New("grace period has expired, a new subscription is required")
	ErrInvalidState      = errors.New("operation not allowed in current subscription state")

	ErrPaymentAuthorizationFailed = errors.New("payment authorization failed")
	ErrInvalidOnOneTimePlan       = errors.New("operation not supported on one-time plans")

	ErrVersionMismatch = errors.New("subscription was modified concurrently")
	ErrConflict        = errors.New("subscription update conflicted with concurrent writers")

	// Provider-specific errors
	ErrMissingAPIKey             = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrInvalidEnvironment        = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
)
