package repository

import (
    "context"

    "github.com/iliyamo/tesla-marketplace/internal/model"
)

// ListingStore is the persistence interface consumed by the publication
// workflow and the listing handlers.  The MySQL implementation lives in
// ListingRepo; tests supply in‑memory fakes.
type ListingStore interface {
    // Create persists a new pending listing, assigning its ID and
    // creation timestamp.  The listing's Status must be pending; Create
    // never writes a completed row.
    Create(ctx context.Context, l *model.Listing) error

    // GetByID returns a single listing or ErrNotFound.  Reads carry no
    // ownership restriction; detail views are public.
    GetByID(ctx context.Context, id string) (*model.Listing, error)

    // ListByOwner returns every listing owned by ownerID, newest first,
    // including pending ones.
    ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error)

    // ListPublic returns completed listings only, newest first.  This is
    // the status filter that keeps unpaid listings invisible.
    ListPublic(ctx context.Context) ([]model.Listing, error)

    // MarkCompleted atomically transitions pending → completed.  It
    // returns ErrNotFound when the listing does not exist and
    // ErrInvalidTransition when its status is no longer pending, so a
    // duplicated payment confirmation is a safe no‑op for the caller.
    MarkCompleted(ctx context.Context, id string) error
}
