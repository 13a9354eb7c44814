package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/Alias1177/ChurnPredictor/models"
)

var (
	// ErrUnhandledEvent marks Stripe events that carry no churn signal
	ErrUnhandledEvent = errors.New("unhandled stripe event")
	// ErrMissingCustomer means the event could not be tied to a customer
	ErrMissingCustomer = errors.New("customer not found in stripe event")
)

// customerIDKey is the metadata key holding our own customer id
const customerIDKey = "customer_id"

// StripeService turns Stripe billing webhooks into customer events
type StripeService struct {
	WebhookSecret string
}

// NewStripeService creates a new Stripe webhook service
func NewStripeService(webhookSecret string) *StripeService {
	return &StripeService{WebhookSecret: webhookSecret}
}

// IngestedEvent is a customer event derived from a Stripe webhook
type IngestedEvent struct {
	StripeEventID string
	CustomerID    string
	Event         models.Event
}

// VerifyWebhookSignature verifies the signature of a Stripe webhook event
func (s *StripeService) VerifyWebhookSignature(payload []byte, signature string) (*stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// EventFromStripe maps a billing event to a churn event:
// paid invoices and charges are purchases, a subscription moving to a pricier plan is an
// upgrade and a deleted subscription is churn.
func EventFromStripe(event *stripe.Event) (*IngestedEvent, error) {
	if event == nil || event.Data == nil {
		return nil, fmt.Errorf("empty stripe event")
	}

	var (
		customerID string
		eventType  models.EventType
	)

	switch event.Type {
	case "invoice.paid":
		var invoice stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
			return nil, fmt.Errorf("failed to parse invoice: %w", err)
		}
		customerID = resolveCustomer(invoice.Metadata, invoice.Customer)
		eventType = models.EventMakePurchase

	case "charge.succeeded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return nil, fmt.Errorf("failed to parse charge: %w", err)
		}
		customerID = resolveCustomer(charge.Metadata, charge.Customer)
		eventType = models.EventMakePurchase

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		previous, ok, err := previousAmount(event.Data.PreviousAttributes)
		if err != nil {
			return nil, err
		}
		if !ok || subscriptionAmount(sub.Items) <= previous {
			return nil, fmt.Errorf("%w: %s without plan upgrade", ErrUnhandledEvent, event.Type)
		}
		customerID = resolveCustomer(sub.Metadata, sub.Customer)
		eventType = models.EventUpgradePlan

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("failed to parse subscription: %w", err)
		}
		customerID = resolveCustomer(sub.Metadata, sub.Customer)
		eventType = models.EventChurned

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnhandledEvent, event.Type)
	}

	if customerID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingCustomer, event.ID)
	}

	return &IngestedEvent{
		StripeEventID: event.ID,
		CustomerID:    customerID,
		Event: models.Event{
			Date: models.FormatDate(time.Unix(event.Created, 0).UTC()),
			Type: eventType,
		},
	}, nil
}

func resolveCustomer(metadata map[string]string, customer *stripe.Customer) string {
	if id := metadata[customerIDKey]; id != "" {
		return id
	}
	if customer != nil {
		return customer.ID
	}
	return ""
}

func subscriptionAmount(items *stripe.SubscriptionItemList) int64 {
	if items == nil {
		return 0
	}
	var total int64
	for _, item := range items.Data {
		if item == nil || item.Price == nil {
			continue
		}
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		total += item.Price.UnitAmount * quantity
	}
	return total
}

// previousAmount reads the plan amount from previous_attributes.items, ok is false
// when the update did not touch the items
func previousAmount(previous map[string]interface{}) (int64, bool, error) {
	raw, exists := previous["items"]
	if !exists {
		return 0, false, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return 0, false, fmt.Errorf("encoding previous items: %w", err)
	}
	var items stripe.SubscriptionItemList
	if err := json.Unmarshal(data, &items); err != nil {
		return 0, false, fmt.Errorf("failed to parse previous items: %w", err)
	}
	return subscriptionAmount(&items), true, nil
}
