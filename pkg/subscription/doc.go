// Package subscription manages the lifecycle of a customer's relationship to
// a billing plan: trials, activation, renewal, upgrade, usage metering and
// cancellation, reconciled against an external payment provider that reports
// outcomes asynchronously through webhooks.
//
// # Architecture
//
// All mutations of a subscription record funnel through one transition
// authority: a set of pure transition functions validated against a static
// state chart. Client operations (Subscribe, Cancel, Upgrade, Renew,
// ReportUsage), provider webhooks (HandleProviderEvent) and the periodic
// expiry sweeper all enter through the same functions, so there is exactly
// one definition of what, say, a failed payment means for a subscription's
// status.
//
// Transitions are computed synchronously over an in-memory copy of the
// record; all I/O happens around the pure decision step. Concurrent writers
// (an HTTP request, a webhook delivery and a sweeper tick may race on the
// same record) are serialized by optimistic concurrency: every write carries
// the version it read, the store rejects stale writes, and the service
// re-reads and recomputes a bounded number of times before surfacing
// ErrConflict.
//
// # States
//
//	trial ──────┬──> active ──> past_due ──> unpaid
//	            │       │           │
//	            │       v           │
//	            │    expired        │
//	            v       │           v
//	         canceled <─┴───────────┘
//
// trial and active are the only states accepting ordinary client operations.
// canceled and expired are terminal for clients, except that renew can
// reactivate an expired subscription within a configurable grace window.
// Terminal records are never deleted; they are retained for history and for
// the sticky per-user trial flag.
//
// # Payment providers
//
// The PaymentProvider interface isolates the core from any particular
// billing backend; a Paddle implementation backed by the official SDK is
// included. Authorization is always performed before persisting, so a
// provider timeout can never leave a paid-but-unrecorded subscription.
//
// # Basic usage
//
//	cat, _ := catalog.New(ctx, plansSource)
//	provider, _ := subscription.NewPaddleProvider(paddleCfg)
//	store := subscription.NewMemoryStore()
//
//	svc := subscription.NewService(cat, provider, store,
//	    subscription.WithLogger(logger),
//	)
//
//	sub, err := svc.Subscribe(ctx, userID, "pro", subscription.SubscribeOptions{
//	    UseFreeTrial: true,
//	})
package subscription
