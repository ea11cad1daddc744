package workflow

import (
    "context"
    "errors"
    "sync"
    "testing"

    "github.com/iliyamo/tesla-marketplace/internal/model"
    "github.com/iliyamo/tesla-marketplace/internal/payment"
    "github.com/iliyamo/tesla-marketplace/internal/repository"
    "github.com/iliyamo/tesla-marketplace/internal/session"
)

// memListings is an in-memory ListingStore mirroring the SQL repository's
// semantics, including the conditional status transition.
type memListings struct {
    mu     sync.Mutex
    rows   map[string]*model.Listing
    nextID int
}

func newMemListings() *memListings { return &memListings{rows: make(map[string]*model.Listing)} }

func (s *memListings) Create(_ context.Context, l *model.Listing) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.nextID++
    l.ID = string(rune('a' + s.nextID - 1))
    l.Status = model.StatusPending
    cp := *l
    s.rows[l.ID] = &cp
    return nil
}

func (s *memListings) GetByID(_ context.Context, id string) (*model.Listing, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    l, ok := s.rows[id]
    if !ok {
        return nil, repository.ErrNotFound
    }
    cp := *l
    return &cp, nil
}

func (s *memListings) ListByOwner(_ context.Context, ownerID uint64) ([]model.Listing, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := []model.Listing{}
    for _, l := range s.rows {
        if l.OwnerID == ownerID {
            out = append(out, *l)
        }
    }
    return out, nil
}

func (s *memListings) ListPublic(_ context.Context) ([]model.Listing, error) {
    s.mu.Lock()
    defer s.mu.Unlock()
    out := []model.Listing{}
    for _, l := range s.rows {
        if l.Status == model.StatusCompleted {
            out = append(out, *l)
        }
    }
    return out, nil
}

func (s *memListings) MarkCompleted(_ context.Context, id string) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    l, ok := s.rows[id]
    if !ok {
        return repository.ErrNotFound
    }
    if l.Status != model.StatusPending {
        return repository.ErrInvalidTransition
    }
    l.Status = model.StatusCompleted
    return nil
}

// fakeProcessor drives the coordinator without touching Stripe.
type fakeProcessor struct {
    mu       sync.Mutex
    statuses map[string]payment.IntentStatus
    created  int
}

func newFakeProcessor() *fakeProcessor {
    return &fakeProcessor{statuses: make(map[string]payment.IntentStatus)}
}

func (f *fakeProcessor) CreateIntent(_ context.Context, amount int64, _ string) (*payment.Intent, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.created++
    id := string(rune('A' + f.created - 1))
    f.statuses[id] = payment.IntentRequiresAction
    return &payment.Intent{ID: id, ClientSecret: id + "_secret", AmountCents: amount, Status: payment.IntentRequiresAction}, nil
}

func (f *fakeProcessor) RetrieveIntent(_ context.Context, id string) (*payment.Intent, error) {
    f.mu.Lock()
    defer f.mu.Unlock()
    return &payment.Intent{ID: id, Status: f.statuses[id]}, nil
}

// settle marks an intent as paid processor-side, the way a real card
// confirmation would.
func (f *fakeProcessor) settle(id string) {
    f.mu.Lock()
    defer f.mu.Unlock()
    f.statuses[id] = payment.IntentSucceeded
}

type recordingPublisher struct {
    mu        sync.Mutex
    published []string
}

func (p *recordingPublisher) ListingPublished(_ context.Context, l *model.Listing) error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.published = append(p.published, l.ID)
    return nil
}

func draft() model.ListingDraft {
    return model.ListingDraft{
        Make:          "Tesla",
        Model:         "Model Y",
        Year:          2022,
        Trim:          "Performance",
        PriceCents:    4899900,
        Mileage:       12000,
        ExteriorColor: "Midnight Silver",
        InteriorColor: "White",
        Description:   "Performance trim with the tow hitch package and FSD transferred.",
        City:          "Denver",
        State:         "CO",
        Zip:           "80202",
        ContactName:   "Robin Seller",
        ContactEmail:  "robin@example.com",
    }
}

func setup() (*Workflow, *memListings, *fakeProcessor, *recordingPublisher) {
    listings := newMemListings()
    proc := newFakeProcessor()
    pub := &recordingPublisher{}
    coord := payment.NewCoordinator(proc, payment.NewMemoryAttempts(), 10000)
    return New(listings, coord, pub, nil), listings, proc, pub
}

var owner = session.Identity{ID: 7, Email: "robin@example.com"}

// The successful path: submit, pay, confirm, published.
func TestPublicationSuccess(t *testing.T) {
    flow, listings, proc, pub := setup()
    ctx := context.Background()

    l, err := flow.Submit(ctx, owner, draft(), owner.ID)
    if err != nil {
        t.Fatalf("Submit: %v", err)
    }
    if l.Status != model.StatusPending {
        t.Fatalf("submitted listing status = %q, want pending", l.Status)
    }
    if pubs, _ := listings.ListPublic(ctx); len(pubs) != 0 {
        t.Fatal("pending listing leaked into public results")
    }

    attempt, err := flow.StartPayment(ctx, owner, l.ID)
    if err != nil {
        t.Fatalf("StartPayment: %v", err)
    }
    if attempt.AmountCents != 10000 {
        t.Errorf("fee = %d, want 10000", attempt.AmountCents)
    }

    proc.settle("A")
    out, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeSucceeded, "")
    if err != nil {
        t.Fatalf("CompletePayment: %v", err)
    }
    if out != payment.OutcomeSucceeded {
        t.Fatalf("outcome = %v, want succeeded", out)
    }

    got, _ := listings.GetByID(ctx, l.ID)
    if got.Status != model.StatusCompleted {
        t.Errorf("status = %q, want completed", got.Status)
    }
    if pubs, _ := listings.ListPublic(ctx); len(pubs) != 1 {
        t.Errorf("public listings = %d, want 1", len(pubs))
    }
    if len(pub.published) != 1 || pub.published[0] != l.ID {
        t.Errorf("published events = %v, want [%s]", pub.published, l.ID)
    }
}

// Cancellation leaves the listing pending and retryable.
func TestPublicationCancelThenRetry(t *testing.T) {
    flow, listings, proc, _ := setup()
    ctx := context.Background()

    l, _ := flow.Submit(ctx, owner, draft(), owner.ID)
    if _, err := flow.StartPayment(ctx, owner, l.ID); err != nil {
        t.Fatal(err)
    }

    out, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeCancelled, "")
    if err != nil {
        t.Fatalf("cancel must not error: %v", err)
    }
    if out != payment.OutcomeCancelled {
        t.Fatalf("outcome = %v, want cancelled", out)
    }
    got, _ := listings.GetByID(ctx, l.ID)
    if got.Status != model.StatusPending {
        t.Fatalf("status after cancel = %q, want pending", got.Status)
    }

    // A fresh attempt goes through and can complete.
    if _, err := flow.StartPayment(ctx, owner, l.ID); err != nil {
        t.Fatalf("retry StartPayment: %v", err)
    }
    proc.settle("B")
    if out, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeSucceeded, ""); err != nil || out != payment.OutcomeSucceeded {
        t.Fatalf("retry complete = (%v, %v)", out, err)
    }
}

// A failed charge surfaces the reason and keeps the listing pending.
func TestPublicationFailureKeepsPending(t *testing.T) {
    flow, listings, _, pub := setup()
    ctx := context.Background()

    l, _ := flow.Submit(ctx, owner, draft(), owner.ID)
    if _, err := flow.StartPayment(ctx, owner, l.ID); err != nil {
        t.Fatal(err)
    }

    out, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeFailed, "card declined")
    if out != payment.OutcomeFailed {
        t.Fatalf("outcome = %v, want failed", out)
    }
    var perr *payment.Error
    if !errors.As(err, &perr) || perr.Reason != "card declined" {
        t.Fatalf("err = %v, want payment error with reason", err)
    }
    got, _ := listings.GetByID(ctx, l.ID)
    if got.Status != model.StatusPending {
        t.Errorf("status = %q, want pending", got.Status)
    }
    if len(pub.published) != 0 {
        t.Error("failed payment must not publish an event")
    }
}

// A success report the processor does not confirm grants nothing.
func TestPublicationUnconfirmedSuccess(t *testing.T) {
    flow, listings, _, _ := setup()
    ctx := context.Background()

    l, _ := flow.Submit(ctx, owner, draft(), owner.ID)
    if _, err := flow.StartPayment(ctx, owner, l.ID); err != nil {
        t.Fatal(err)
    }

    // No settle: the intent is still requires_action processor-side.
    out, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeSucceeded, "")
    if out != payment.OutcomeFailed {
        t.Fatalf("outcome = %v, want failed", out)
    }
    var perr *payment.Error
    if !errors.As(err, &perr) {
        t.Fatalf("err = %v, want payment error", err)
    }
    got, _ := listings.GetByID(ctx, l.ID)
    if got.Status != model.StatusPending {
        t.Errorf("status = %q, want pending", got.Status)
    }
}

// A duplicate success confirmation is an idempotent no-op.
func TestPublicationDuplicateConfirmation(t *testing.T) {
    flow, _, proc, pub := setup()
    ctx := context.Background()

    l, _ := flow.Submit(ctx, owner, draft(), owner.ID)
    if _, err := flow.StartPayment(ctx, owner, l.ID); err != nil {
        t.Fatal(err)
    }
    proc.settle("A")
    if _, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeSucceeded, ""); err != nil {
        t.Fatal(err)
    }

    out, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeSucceeded, "")
    if err != nil {
        t.Fatalf("duplicate confirmation must not error: %v", err)
    }
    if out != payment.OutcomeSucceeded {
        t.Fatalf("outcome = %v, want succeeded", out)
    }
    if len(pub.published) != 1 {
        t.Errorf("published events = %d, want exactly 1", len(pub.published))
    }
}

func TestStartPaymentGuards(t *testing.T) {
    flow, _, proc, _ := setup()
    ctx := context.Background()

    l, _ := flow.Submit(ctx, owner, draft(), owner.ID)

    t.Run("unknown listing", func(t *testing.T) {
        if _, err := flow.StartPayment(ctx, owner, "nope"); !errors.Is(err, repository.ErrNotFound) {
            t.Errorf("err = %v, want ErrNotFound", err)
        }
    })
    t.Run("not the owner", func(t *testing.T) {
        stranger := session.Identity{ID: 99, Email: "x@example.com"}
        if _, err := flow.StartPayment(ctx, stranger, l.ID); !errors.Is(err, ErrUnauthorized) {
            t.Errorf("err = %v, want ErrUnauthorized", err)
        }
    })
    t.Run("double attempt", func(t *testing.T) {
        if _, err := flow.StartPayment(ctx, owner, l.ID); err != nil {
            t.Fatal(err)
        }
        if _, err := flow.StartPayment(ctx, owner, l.ID); !errors.Is(err, payment.ErrAttemptActive) {
            t.Errorf("err = %v, want ErrAttemptActive", err)
        }
    })
    t.Run("already completed", func(t *testing.T) {
        proc.settle("A")
        if _, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeSucceeded, ""); err != nil {
            t.Fatal(err)
        }
        if _, err := flow.StartPayment(ctx, owner, l.ID); !errors.Is(err, repository.ErrInvalidTransition) {
            t.Errorf("err = %v, want ErrInvalidTransition", err)
        }
    })
}

func TestSubmitGuards(t *testing.T) {
    flow, listings, _, _ := setup()
    ctx := context.Background()

    t.Run("anonymous caller", func(t *testing.T) {
        if _, err := flow.Submit(ctx, session.Identity{}, draft(), 7); !errors.Is(err, ErrUnauthorized) {
            t.Errorf("err = %v, want ErrUnauthorized", err)
        }
    })
    t.Run("owner mismatch", func(t *testing.T) {
        if _, err := flow.Submit(ctx, owner, draft(), owner.ID+1); !errors.Is(err, ErrUnauthorized) {
            t.Errorf("err = %v, want ErrUnauthorized", err)
        }
    })
    t.Run("invalid draft", func(t *testing.T) {
        d := draft()
        d.PriceCents = 0
        var verr *model.ValidationError
        if _, err := flow.Submit(ctx, owner, d, owner.ID); !errors.As(err, &verr) {
            t.Fatalf("err = %v, want *ValidationError", err)
        }
        if verr.Field != "price_cents" {
            t.Errorf("field = %q, want price_cents", verr.Field)
        }
        // Nothing was persisted.
        if mine, _ := listings.ListByOwner(ctx, owner.ID); len(mine) != 0 {
            t.Errorf("rejected draft persisted %d listings", len(mine))
        }
    })
}

func TestCompletePaymentGuards(t *testing.T) {
    flow, _, _, _ := setup()
    ctx := context.Background()

    l, _ := flow.Submit(ctx, owner, draft(), owner.ID)

    t.Run("no active attempt", func(t *testing.T) {
        if _, err := flow.CompletePayment(ctx, owner, l.ID, payment.OutcomeSucceeded, ""); !errors.Is(err, payment.ErrNoAttempt) {
            t.Errorf("err = %v, want ErrNoAttempt", err)
        }
    })
    t.Run("not the owner", func(t *testing.T) {
        stranger := session.Identity{ID: 99}
        if _, err := flow.CompletePayment(ctx, stranger, l.ID, payment.OutcomeSucceeded, ""); !errors.Is(err, ErrUnauthorized) {
            t.Errorf("err = %v, want ErrUnauthorized", err)
        }
    })
}
