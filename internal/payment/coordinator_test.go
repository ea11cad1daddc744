package payment

import (
    "context"
    "errors"
    "testing"
)

// fakeProcessor implements Processor with function fields so each test
// controls exactly what the processor reports.
type fakeProcessor struct {
    createFn   func(ctx context.Context, amountCents int64, currency string) (*Intent, error)
    retrieveFn func(ctx context.Context, id string) (*Intent, error)
}

func (f *fakeProcessor) CreateIntent(ctx context.Context, amountCents int64, currency string) (*Intent, error) {
    return f.createFn(ctx, amountCents, currency)
}

func (f *fakeProcessor) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
    return f.retrieveFn(ctx, id)
}

func succeedingProcessor() *fakeProcessor {
    return &fakeProcessor{
        createFn: func(_ context.Context, amount int64, _ string) (*Intent, error) {
            return &Intent{ID: "pi_1", ClientSecret: "pi_1_secret", AmountCents: amount, Status: IntentRequiresAction}, nil
        },
        retrieveFn: func(_ context.Context, id string) (*Intent, error) {
            return &Intent{ID: id, AmountCents: 10000, Status: IntentSucceeded}, nil
        },
    }
}

func TestBeginAttemptCreatesIntentForFee(t *testing.T) {
    var gotAmount int64
    var gotCurrency string
    proc := succeedingProcessor()
    base := proc.createFn
    proc.createFn = func(ctx context.Context, amount int64, currency string) (*Intent, error) {
        gotAmount, gotCurrency = amount, currency
        return base(ctx, amount, currency)
    }
    c := NewCoordinator(proc, NewMemoryAttempts(), 10000)

    a, err := c.BeginAttempt(context.Background(), "listing-1")
    if err != nil {
        t.Fatalf("BeginAttempt: %v", err)
    }
    if gotAmount != 10000 || gotCurrency != "usd" {
        t.Errorf("intent created with %d %s, want 10000 usd", gotAmount, gotCurrency)
    }
    if a.ClientSecret != "pi_1_secret" {
        t.Errorf("client secret = %q", a.ClientSecret)
    }
    if a.AmountCents != 10000 {
        t.Errorf("amount = %d, want 10000", a.AmountCents)
    }
}

func TestBeginAttemptRejectsConcurrentAttempt(t *testing.T) {
    c := NewCoordinator(succeedingProcessor(), NewMemoryAttempts(), 10000)
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatalf("first BeginAttempt: %v", err)
    }
    _, err := c.BeginAttempt(context.Background(), "listing-1")
    if !errors.Is(err, ErrAttemptActive) {
        t.Fatalf("second BeginAttempt err = %v, want ErrAttemptActive", err)
    }
}

func TestBeginAttemptReleasesSlotWhenIntentCreationFails(t *testing.T) {
    proc := succeedingProcessor()
    boom := errors.New("stripe down")
    proc.createFn = func(context.Context, int64, string) (*Intent, error) { return nil, boom }
    c := NewCoordinator(proc, NewMemoryAttempts(), 10000)

    if _, err := c.BeginAttempt(context.Background(), "listing-1"); !errors.Is(err, boom) {
        t.Fatalf("err = %v, want processor error", err)
    }

    // The slot must be free again: a retry reaches the processor.
    proc.createFn = succeedingProcessor().createFn
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatalf("retry after failed create: %v", err)
    }
}

func TestCollectCancelledFreesSlot(t *testing.T) {
    c := NewCoordinator(succeedingProcessor(), NewMemoryAttempts(), 10000)
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatal(err)
    }
    out, err := c.Collect(context.Background(), "listing-1", OutcomeCancelled, "")
    if err != nil {
        t.Fatalf("cancel must not error: %v", err)
    }
    if out != OutcomeCancelled {
        t.Errorf("outcome = %v, want cancelled", out)
    }
    // Immediately retryable.
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatalf("BeginAttempt after cancel: %v", err)
    }
}

func TestCollectFailedReturnsReasonAndFreesSlot(t *testing.T) {
    c := NewCoordinator(succeedingProcessor(), NewMemoryAttempts(), 10000)
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatal(err)
    }
    out, err := c.Collect(context.Background(), "listing-1", OutcomeFailed, "card declined")
    if out != OutcomeFailed {
        t.Errorf("outcome = %v, want failed", out)
    }
    var perr *Error
    if !errors.As(err, &perr) || perr.Reason != "card declined" {
        t.Fatalf("err = %v, want payment error with reason", err)
    }
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatalf("BeginAttempt after failure: %v", err)
    }
}

func TestCollectVerifiesSuccessAgainstProcessor(t *testing.T) {
    proc := succeedingProcessor()
    c := NewCoordinator(proc, NewMemoryAttempts(), 10000)
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatal(err)
    }
    out, err := c.Collect(context.Background(), "listing-1", OutcomeSucceeded, "")
    if err != nil {
        t.Fatalf("Collect: %v", err)
    }
    if out != OutcomeSucceeded {
        t.Errorf("outcome = %v, want succeeded", out)
    }
}

func TestCollectRejectsUnconfirmedSuccessReport(t *testing.T) {
    proc := succeedingProcessor()
    proc.retrieveFn = func(_ context.Context, id string) (*Intent, error) {
        return &Intent{ID: id, Status: IntentProcessing}, nil
    }
    c := NewCoordinator(proc, NewMemoryAttempts(), 10000)
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatal(err)
    }

    out, err := c.Collect(context.Background(), "listing-1", OutcomeSucceeded, "")
    if out != OutcomeFailed {
        t.Errorf("outcome = %v, want failed", out)
    }
    var perr *Error
    if !errors.As(err, &perr) {
        t.Fatalf("err = %v, want payment error", err)
    }
}

func TestCollectKeepsAttemptOnTransportError(t *testing.T) {
    proc := succeedingProcessor()
    boom := errors.New("timeout")
    proc.retrieveFn = func(context.Context, string) (*Intent, error) { return nil, boom }
    c := NewCoordinator(proc, NewMemoryAttempts(), 10000)
    if _, err := c.BeginAttempt(context.Background(), "listing-1"); err != nil {
        t.Fatal(err)
    }

    if _, err := c.Collect(context.Background(), "listing-1", OutcomeSucceeded, ""); !errors.Is(err, boom) {
        t.Fatalf("err = %v, want transport error", err)
    }

    // Marker still held: the same collect can be retried once the
    // processor is reachable again.
    proc.retrieveFn = succeedingProcessor().retrieveFn
    out, err := c.Collect(context.Background(), "listing-1", OutcomeSucceeded, "")
    if err != nil || out != OutcomeSucceeded {
        t.Fatalf("retry collect = (%v, %v), want success", out, err)
    }
}

func TestCollectWithoutAttempt(t *testing.T) {
    c := NewCoordinator(succeedingProcessor(), NewMemoryAttempts(), 10000)
    if _, err := c.Collect(context.Background(), "listing-1", OutcomeSucceeded, ""); !errors.Is(err, ErrNoAttempt) {
        t.Fatalf("err = %v, want ErrNoAttempt", err)
    }
}

func TestParseOutcome(t *testing.T) {
    cases := []struct {
        in   string
        want Outcome
        ok   bool
    }{
        {"succeeded", OutcomeSucceeded, true},
        {"cancelled", OutcomeCancelled, true},
        {"canceled", OutcomeCancelled, true},
        {"failed", OutcomeFailed, true},
        {"paid", 0, false},
        {"", 0, false},
    }
    for _, tc := range cases {
        got, err := ParseOutcome(tc.in)
        if tc.ok && (err != nil || got != tc.want) {
            t.Errorf("ParseOutcome(%q) = (%v, %v), want %v", tc.in, got, err, tc.want)
        }
        if !tc.ok && err == nil {
            t.Errorf("ParseOutcome(%q) should fail", tc.in)
        }
    }
}
