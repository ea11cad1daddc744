package payment

import (
    "context"
    "errors"
)

// Attempt is what BeginAttempt hands back to the caller: the opaque
// client secret that drives the processor's collection UI plus the fee
// the client should display.  The displayed amount is informational; the
// charge amount is the one baked into the intent server‑side.
type Attempt struct {
    ListingID    string `json:"listing_id"`
    ClientSecret string `json:"client_secret"`
    AmountCents  int64  `json:"amount_cents"`
}

// Coordinator drives a single payment attempt per listing to a terminal
// outcome.  It enforces the no‑double‑charge rule through the
// AttemptStore and verifies success reports against the processor before
// believing them.
type Coordinator struct {
    proc     Processor
    attempts AttemptStore
    feeCents int64
    currency string
}

// NewCoordinator builds a Coordinator charging the flat publication fee.
func NewCoordinator(proc Processor, attempts AttemptStore, feeCents int64) *Coordinator {
    return &Coordinator{proc: proc, attempts: attempts, feeCents: feeCents, currency: "usd"}
}

// FeeCents returns the flat publication fee.
func (c *Coordinator) FeeCents() int64 { return c.feeCents }

// BeginAttempt reserves the attempt slot for the listing and creates a
// payment intent for the publication fee.  A second call without an
// intervening resolution fails with ErrAttemptActive.  The slot is
// reserved before the processor call so two racing callers cannot both
// create an intent.
func (c *Coordinator) BeginAttempt(ctx context.Context, listingID string) (*Attempt, error) {
    if err := c.attempts.Acquire(ctx, listingID); err != nil {
        return nil, err
    }
    intent, err := c.proc.CreateIntent(ctx, c.feeCents, c.currency)
    if err != nil {
        // The reservation must not outlive a failed intent creation.
        _ = c.attempts.Release(ctx, listingID)
        return nil, err
    }
    if err := c.attempts.Bind(ctx, listingID, intent.ID); err != nil {
        _ = c.attempts.Release(ctx, listingID)
        return nil, err
    }
    return &Attempt{
        ListingID:    listingID,
        ClientSecret: intent.ClientSecret,
        AmountCents:  intent.AmountCents,
    }, nil
}

// Collect resolves the active attempt for a listing given the outcome the
// client reports from the processor's collection flow.
//
// Cancelled and failed reports are taken at face value — they grant
// nothing — and clear the marker so a fresh BeginAttempt is allowed
// immediately.  A success report is verified against the processor's
// intent status first; an unconfirmed success degrades to a failed
// outcome.  On a transport error talking to the processor the marker is
// left in place so the caller can retry the same step.
func (c *Coordinator) Collect(ctx context.Context, listingID string, reported Outcome, reason string) (Outcome, error) {
    intentID, err := c.attempts.IntentID(ctx, listingID)
    if err != nil {
        return OutcomeFailed, err
    }

    switch reported {
    case OutcomeCancelled:
        if err := c.attempts.Release(ctx, listingID); err != nil {
            return OutcomeFailed, err
        }
        return OutcomeCancelled, nil

    case OutcomeFailed:
        if err := c.attempts.Release(ctx, listingID); err != nil {
            return OutcomeFailed, err
        }
        if reason == "" {
            reason = "payment was not completed"
        }
        return OutcomeFailed, &Error{Reason: reason}

    case OutcomeSucceeded:
        intent, err := c.proc.RetrieveIntent(ctx, intentID)
        if err != nil {
            // Transport problem: keep the attempt so the caller can retry.
            return OutcomeFailed, err
        }
        if err := c.attempts.Release(ctx, listingID); err != nil {
            return OutcomeFailed, err
        }
        if intent.Status != IntentSucceeded {
            return OutcomeFailed, &Error{Reason: "payment not confirmed by processor"}
        }
        return OutcomeSucceeded, nil
    }
    return OutcomeFailed, errors.New("unknown payment outcome")
}
