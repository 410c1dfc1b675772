package services

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// IntentShipping mirrors the shipping block attached to a payment intent for
// guest checkouts.
type IntentShipping struct {
	Name       string
	Line1      string
	City       string
	State      string
	Country    string
	PostalCode string
}

// CreateIntentParams are the inputs for a new payment intent.
type CreateIntentParams struct {
	AmountCents  int64
	Currency     string
	ReceiptEmail string
	Metadata     map[string]string
	Shipping     *IntentShipping
}

// PaymentIntent is the provider-neutral view of an intent that the order flow
// consumes.
type PaymentIntent struct {
	ID            string
	ClientSecret  string
	Status        string
	PaymentMethod string
	CardLast4     string
	CardBrand     string
	ReceiptURL    string
}

// IntentSucceeded is the provider status required before an order may be created.
const IntentSucceeded = "succeeded"

// PaymentProvider abstracts the payment processor so the order flow can be
// exercised against a fake in tests.
type PaymentProvider interface {
	CreateIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*PaymentIntent, error)
}

// StripeService is the Stripe-backed PaymentProvider. The client is built
// once at startup and injected; nothing here touches package-level state.
type StripeService struct {
	api *client.API
}

// NewStripeService constructs a StripeService from a secret key.
func NewStripeService(secretKey string) *StripeService {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeService{api: api}
}

// CreateIntent creates a payment intent with automatic payment methods.
func (s *StripeService) CreateIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error) {
	intentParams := &stripe.PaymentIntentParams{
		Params:   stripe.Params{Context: ctx},
		Amount:   stripe.Int64(params.AmountCents),
		Currency: stripe.String(params.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	if params.ReceiptEmail != "" {
		intentParams.ReceiptEmail = stripe.String(params.ReceiptEmail)
	}
	for key, value := range params.Metadata {
		intentParams.AddMetadata(key, value)
	}
	if params.Shipping != nil {
		intentParams.Shipping = &stripe.ShippingDetailsParams{
			Name: stripe.String(params.Shipping.Name),
			Address: &stripe.AddressParams{
				Line1:      stripe.String(params.Shipping.Line1),
				City:       stripe.String(params.Shipping.City),
				State:      stripe.String(params.Shipping.State),
				Country:    stripe.String(params.Shipping.Country),
				PostalCode: stripe.String(params.Shipping.PostalCode),
			},
		}
	}

	intent, err := s.api.PaymentIntents.New(intentParams)
	if err != nil {
		return nil, err
	}
	return mapIntent(intent), nil
}

// RetrieveIntent fetches an intent with its latest charge expanded so card
// details and the receipt URL are available for the payment record.
func (s *StripeService) RetrieveIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{Params: stripe.Params{Context: ctx}}
	params.AddExpand("latest_charge")

	intent, err := s.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, err
	}
	return mapIntent(intent), nil
}

func mapIntent(intent *stripe.PaymentIntent) *PaymentIntent {
	mapped := &PaymentIntent{
		ID:            intent.ID,
		ClientSecret:  intent.ClientSecret,
		Status:        string(intent.Status),
		PaymentMethod: "card",
	}

	if len(intent.PaymentMethodTypes) > 0 {
		mapped.PaymentMethod = intent.PaymentMethodTypes[0]
	}

	if charge := intent.LatestCharge; charge != nil {
		mapped.ReceiptURL = charge.ReceiptURL
		if charge.PaymentMethodDetails != nil && charge.PaymentMethodDetails.Card != nil {
			mapped.CardLast4 = charge.PaymentMethodDetails.Card.Last4
			mapped.CardBrand = string(charge.PaymentMethodDetails.Card.Brand)
		}
	}

	return mapped
}
