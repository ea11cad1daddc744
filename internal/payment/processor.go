// Package payment mediates exactly one successful charge per listing.
// The Coordinator owns the single‑flight attempt marker and talks to the
// external processor; it never touches listing status — reporting the
// outcome to the publication workflow is where its job ends.
package payment

import (
    "context"
    "errors"
    "fmt"
)

// IntentStatus is the processor‑side state of a payment intent.  Only
// IntentSucceeded entitles a listing to publication; every other value is
// treated as not‑paid.
type IntentStatus string

const (
    IntentSucceeded      IntentStatus = "succeeded"
    IntentRequiresAction IntentStatus = "requires_action"
    IntentProcessing     IntentStatus = "processing"
    IntentCanceled       IntentStatus = "canceled"
    IntentIncomplete     IntentStatus = "incomplete"
)

// Intent is the processor's record of one charge.  ClientSecret is the
// opaque handle the client needs to drive the collection UI; it is never
// logged.
type Intent struct {
    ID           string
    ClientSecret string
    AmountCents  int64
    Status       IntentStatus
}

// Processor is the consumed payment‑processor interface.  The amount
// passed to CreateIntent is always the server‑side publication fee; a
// client‑supplied amount never reaches this boundary.
type Processor interface {
    CreateIntent(ctx context.Context, amountCents int64, currency string) (*Intent, error)
    RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}

// Outcome is the terminal result of one collection attempt.
type Outcome int

const (
    OutcomeSucceeded Outcome = iota
    OutcomeCancelled
    OutcomeFailed
)

func (o Outcome) String() string {
    switch o {
    case OutcomeSucceeded:
        return "succeeded"
    case OutcomeCancelled:
        return "cancelled"
    default:
        return "failed"
    }
}

// ParseOutcome converts the wire representation of an outcome.
func ParseOutcome(s string) (Outcome, error) {
    switch s {
    case "succeeded":
        return OutcomeSucceeded, nil
    case "cancelled", "canceled":
        return OutcomeCancelled, nil
    case "failed":
        return OutcomeFailed, nil
    }
    return 0, fmt.Errorf("unknown payment outcome %q", s)
}

// Error is a processor‑side failure with a reason the caller may show to
// the user (card declined, network, …).  It is retryable via a fresh
// BeginAttempt.
type Error struct {
    Reason string
}

func (e *Error) Error() string { return "payment failed: " + e.Reason }

// ErrAttemptActive signals a duplicate BeginAttempt for a listing whose
// previous attempt has not resolved.  Handlers translate it to HTTP 409;
// it is the guard against double‑charging.
var ErrAttemptActive = errors.New("payment attempt already active")

// ErrNoAttempt is returned by Collect when no attempt is active for the
// listing.
var ErrNoAttempt = errors.New("no active payment attempt")
