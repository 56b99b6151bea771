package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/shopspring/decimal"
)

// PaddleConfig holds configuration for the Paddle payment provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements PaymentProvider for Paddle.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
}

// NewPaddleProvider creates a new Paddle payment provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error

	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, config.Environment)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
	}, nil
}

// Authorize creates a Paddle transaction for the plan's catalog price,
// charging the customer's stored payment method. The user ID travels in
// custom data so webhook events can be correlated back.
func (p *PaddleProvider) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if req.PriceID == "" {
		return nil, errors.New("price ID is required")
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  req.PriceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"user_id": req.UserID.String(),
		},
	}
	if req.Email != "" {
		transactionReq.CustomData["email"] = req.Email
	}

	transaction, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	result := &AuthorizeResult{AuthorizedAt: time.Now().UTC()}
	if transaction.SubscriptionID != nil {
		result.ExternalSubscriptionID = *transaction.SubscriptionID
	}
	if result.ExternalSubscriptionID == "" {
		// One-off charges have no subscription; fall back to the
		// transaction ID so the record can still be correlated.
		result.ExternalSubscriptionID = transaction.ID
	}
	if transaction.CustomerID != nil {
		result.ExternalCustomerID = *transaction.CustomerID
	}
	return result, nil
}

// Cancel requests cancellation of a Paddle subscription.
func (p *PaddleProvider) Cancel(ctx context.Context, externalSubscriptionID string) error {
	if externalSubscriptionID == "" {
		return errors.New("external subscription ID is required")
	}

	_, err := p.client.SubscriptionsClient.CancelSubscription(ctx, &paddle.CancelSubscriptionRequest{
		SubscriptionID: externalSubscriptionID,
	})
	if err != nil {
		return fmt.Errorf("failed to cancel paddle subscription: %w", err)
	}
	return nil
}

// ParseWebhook validates and normalizes an incoming Paddle webhook.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*ProviderEvent, error) {
	// The SDK verifier works on an http.Request; reconstruct one around the
	// raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request for verification: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("webhook verification error: %w", err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var paddleEvent struct {
		EventID    string         `json:"event_id"`
		EventType  string         `json:"event_type"`
		OccurredAt string         `json:"occurred_at"`
		Data       map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, fmt.Errorf("failed to parse webhook payload: %w", err)
	}

	event := &ProviderEvent{
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		Raw:           paddleEvent.Data,
	}

	if occurredAt, err := time.Parse(time.RFC3339, paddleEvent.OccurredAt); err == nil {
		event.OccurredAt = occurredAt.UTC()
	}

	// Transaction events reference the subscription they belong to;
	// subscription events carry the subscription ID as their own ID.
	if strings.HasPrefix(paddleEvent.EventType, "transaction.") {
		if subID, ok := paddleEvent.Data["subscription_id"].(string); ok {
			event.ExternalSubscriptionID = subID
		}
		if payments, ok := paddleEvent.Data["payments"].([]any); ok {
			event.Attempt = len(payments)
		}
		if details, ok := paddleEvent.Data["details"].(map[string]any); ok {
			event.Amount, event.Currency = extractPaddleTotal(details)
		}
	}
	if strings.HasPrefix(paddleEvent.EventType, "subscription.") {
		if subID, ok := paddleEvent.Data["id"].(string); ok {
			event.ExternalSubscriptionID = subID
		}
	}

	return event, nil
}

// mapPaddleEventType maps Paddle event types to normalized provider events.
func mapPaddleEventType(paddleEvent string) ProviderEventType {
	switch paddleEvent {
	case "transaction.completed", "transaction.payment_succeeded":
		return ProviderPaymentSucceeded
	case "transaction.payment_failed":
		return ProviderPaymentFailed
	case "subscription.canceled":
		return ProviderSubscriptionCanceled
	default:
		// Unmapped events flow through with their original name; the
		// reconciler ignores types it does not handle.
		return ProviderEventType(paddleEvent)
	}
}

// extractPaddleTotal pulls the charged total out of the transaction details.
// Paddle reports totals as strings in the currency's lowest denomination.
func extractPaddleTotal(details map[string]any) (decimal.Decimal, string) {
	totals, ok := details["totals"].(map[string]any)
	if !ok {
		return decimal.Zero, ""
	}

	currency, _ := totals["currency_code"].(string)
	raw, _ := totals["total"].(string)
	cents, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return decimal.Zero, currency
	}
	return decimal.New(cents, -2), currency
}
