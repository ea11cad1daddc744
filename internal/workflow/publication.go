// Package workflow orchestrates the listing publication state machine:
//
//	Draft (client only) → Pending (persisted) → AttemptActive → Completed
//	                                          ↘ back to Pending on cancel/failure
//
// The workflow owns the payment‑gate invariant: a listing becomes
// publicly visible only after the coordinator reports a confirmed
// payment, and the status transition itself happens here, never inside
// the coordinator.
package workflow

import (
    "context"
    "errors"
    "log"

    "github.com/iliyamo/tesla-marketplace/internal/metrics"
    "github.com/iliyamo/tesla-marketplace/internal/model"
    "github.com/iliyamo/tesla-marketplace/internal/payment"
    "github.com/iliyamo/tesla-marketplace/internal/repository"
    "github.com/iliyamo/tesla-marketplace/internal/session"
)

// ErrUnauthorized is returned when the caller's identity does not match
// the listing owner (or there is no identity at all).  It is not
// retryable without re‑authenticating.
var ErrUnauthorized = errors.New("unauthorized")

// Publisher receives a notification after a listing first transitions to
// completed.  Publishing is best effort; failures are logged, never
// surfaced, and never roll the transition back.
type Publisher interface {
    ListingPublished(ctx context.Context, l *model.Listing) error
}

// Workflow coordinates the repository and the payment coordinator.  It
// holds no per‑listing state of its own: the persisted listing row and
// the coordinator's attempt marker are the only sources of truth, which
// is what makes every step independently retriable.
type Workflow struct {
    listings  repository.ListingStore
    payments  *payment.Coordinator
    publisher Publisher
    metrics   metrics.Recorder
}

// New builds a Workflow.  publisher may be nil when no broker is
// configured.
func New(listings repository.ListingStore, payments *payment.Coordinator, publisher Publisher, rec metrics.Recorder) *Workflow {
    if rec == nil {
        rec = metrics.NewNop()
    }
    return &Workflow{listings: listings, payments: payments, publisher: publisher, metrics: rec}
}

// Submit validates a draft and persists it as a pending listing owned by
// ownerID.  The caller must be authenticated as that same owner;
// submitting on someone else's behalf fails with ErrUnauthorized before
// anything is validated or written.  The returned listing carries the ID
// the caller needs to drive payment next.
func (w *Workflow) Submit(ctx context.Context, caller session.Identity, draft model.ListingDraft, ownerID uint64) (*model.Listing, error) {
    if caller.ID == 0 || caller.ID != ownerID {
        return nil, ErrUnauthorized
    }
    l, err := model.NewListing(draft, ownerID)
    if err != nil {
        return nil, err
    }
    if err := w.listings.Create(ctx, l); err != nil {
        return nil, err
    }
    w.metrics.RecordSubmission()
    return l, nil
}

// StartPayment begins a payment attempt for a pending listing the caller
// owns.  The listing must already be persisted — the repository record is
// what orders create‑before‑charge — and still pending; a completed
// listing reports ErrInvalidTransition.  The returned attempt carries the
// client secret for the collection step.
func (w *Workflow) StartPayment(ctx context.Context, caller session.Identity, listingID string) (*payment.Attempt, error) {
    l, err := w.listings.GetByID(ctx, listingID)
    if err != nil {
        return nil, err
    }
    if caller.ID == 0 || caller.ID != l.OwnerID {
        return nil, ErrUnauthorized
    }
    if l.Status != model.StatusPending {
        return nil, repository.ErrInvalidTransition
    }
    return w.payments.BeginAttempt(ctx, listingID)
}

// CompletePayment resolves the active attempt with the outcome reported
// from the collection flow and, on a confirmed success, marks the listing
// completed.
//
// The two halves — confirming payment with the coordinator and updating
// status in the repository — are deliberately separate, idempotent steps:
// a crash between them leaves a pending listing plus a succeeded intent,
// and retrying this call converges on completed without a second charge.
// A duplicate success report after the listing already completed is a
// no‑op success.
func (w *Workflow) CompletePayment(ctx context.Context, caller session.Identity, listingID string, reported payment.Outcome, reason string) (payment.Outcome, error) {
    l, err := w.listings.GetByID(ctx, listingID)
    if err != nil {
        return payment.OutcomeFailed, err
    }
    if caller.ID == 0 || caller.ID != l.OwnerID {
        return payment.OutcomeFailed, ErrUnauthorized
    }
    if l.Status == model.StatusCompleted && reported == payment.OutcomeSucceeded {
        // Duplicate confirmation after an earlier success already
        // completed the listing.
        return payment.OutcomeSucceeded, nil
    }

    outcome, err := w.payments.Collect(ctx, listingID, reported, reason)
    w.metrics.RecordPaymentOutcome(outcome.String())
    if err != nil {
        // Cancelled is never an error; anything here is a real failure
        // (declined card, unverified success, transport).  The listing
        // stays pending and the caller may retry with a fresh attempt.
        return outcome, err
    }
    if outcome == payment.OutcomeCancelled {
        return outcome, nil
    }

    if err := w.listings.MarkCompleted(ctx, listingID); err != nil {
        if errors.Is(err, repository.ErrInvalidTransition) {
            // Someone beat us to it; the money is collected and the
            // listing is live, so this retry has nothing left to do.
            return payment.OutcomeSucceeded, nil
        }
        return payment.OutcomeFailed, err
    }
    w.metrics.RecordPublication()

    if w.publisher != nil {
        l.Status = model.StatusCompleted
        if err := w.publisher.ListingPublished(ctx, l); err != nil {
            log.Printf("workflow: publish listing.published event failed: %v", err)
        }
    }
    return payment.OutcomeSucceeded, nil
}
