package payment

import (
    "context"

    stripe "github.com/stripe/stripe-go/v79"
    "github.com/stripe/stripe-go/v79/paymentintent"
)

// StripeProcessor implements Processor on the Stripe PaymentIntents API.
// The authoritative amount and currency live server‑side in the intent;
// the client only ever sees the client secret.
type StripeProcessor struct{}

// NewStripeProcessor configures the global Stripe client with the secret
// API key and returns a processor.
func NewStripeProcessor(apiKey string) *StripeProcessor {
    stripe.Key = apiKey
    return &StripeProcessor{}
}

// CreateIntent creates a PaymentIntent for the publication fee.
func (p *StripeProcessor) CreateIntent(ctx context.Context, amountCents int64, currency string) (*Intent, error) {
    params := &stripe.PaymentIntentParams{
        Amount:   stripe.Int64(amountCents),
        Currency: stripe.String(currency),
        AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
            Enabled: stripe.Bool(true),
        },
    }
    params.Context = ctx
    pi, err := paymentintent.New(params)
    if err != nil {
        return nil, err
    }
    return fromStripe(pi), nil
}

// RetrieveIntent reads the current state of an intent.  This is the
// authoritative check behind every success report.
func (p *StripeProcessor) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
    params := &stripe.PaymentIntentParams{}
    params.Context = ctx
    pi, err := paymentintent.Get(id, params)
    if err != nil {
        return nil, err
    }
    return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
    return &Intent{
        ID:           pi.ID,
        ClientSecret: pi.ClientSecret,
        AmountCents:  pi.Amount,
        Status:       mapStatus(pi.Status),
    }
}

func mapStatus(s stripe.PaymentIntentStatus) IntentStatus {
    switch s {
    case stripe.PaymentIntentStatusSucceeded:
        return IntentSucceeded
    case stripe.PaymentIntentStatusRequiresAction,
        stripe.PaymentIntentStatusRequiresConfirmation:
        return IntentRequiresAction
    case stripe.PaymentIntentStatusProcessing:
        return IntentProcessing
    case stripe.PaymentIntentStatusCanceled:
        return IntentCanceled
    default:
        return IntentIncomplete
    }
}
