package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "time"

    "github.com/google/uuid"

    "github.com/iliyamo/tesla-marketplace/internal/model"
)

// ListingRepo provides data access to the `listings` table.  Listings are
// mutated only through Create and MarkCompleted; there is no general
// update path, which keeps the pending → completed transition the single
// write after creation.  All timestamps are stored in UTC.
type ListingRepo struct {
    db *sql.DB
}

// NewListingRepo returns a new ListingRepo bound to the given database.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

// listingColumns is the scan order shared by every SELECT in this file.
const listingColumns = `id, owner_id, make, model, year, trim, price_cents, mileage,
       exterior_color, interior_color, description, vin, images, city, state, zip,
       features, contact_name, contact_phone, contact_email, status, created_at`

// Create inserts a pending listing and populates its generated ID and
// creation timestamp.  Image and feature lists are stored JSON‑encoded in
// TEXT columns; order is preserved.  Status is forced to pending here so
// no caller can persist a completed row directly.
func (r *ListingRepo) Create(ctx context.Context, l *model.Listing) error {
    l.ID = uuid.NewString()
    l.Status = model.StatusPending
    l.CreatedAt = time.Now().UTC()

    images, err := json.Marshal(emptyIfNil(l.Images))
    if err != nil {
        return err
    }
    features, err := json.Marshal(emptyIfNil(l.Features))
    if err != nil {
        return err
    }

    const q = `INSERT INTO listings
        (id, owner_id, make, model, year, trim, price_cents, mileage,
         exterior_color, interior_color, description, vin, images, city, state, zip,
         features, contact_name, contact_phone, contact_email, status, created_at)
        VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`
    _, err = r.db.ExecContext(ctx, q,
        l.ID, l.OwnerID, l.Make, l.Model, l.Year, l.Trim, l.PriceCents, l.Mileage,
        l.ExteriorColor, l.InteriorColor, l.Description, l.VIN, string(images),
        l.Location.City, l.Location.State, l.Location.Zip,
        string(features), l.Contact.Name, l.Contact.Phone, l.Contact.Email,
        l.Status, l.CreatedAt.Format("2006-01-02 15:04:05"),
    )
    return err
}

// GetByID returns the listing with the given ID or ErrNotFound.
func (r *ListingRepo) GetByID(ctx context.Context, id string) (*model.Listing, error) {
    row := r.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = ?`, id)
    l, err := scanListing(row)
    if err == sql.ErrNoRows {
        return nil, ErrNotFound
    }
    if err != nil {
        return nil, err
    }
    return l, nil
}

// ListByOwner returns every listing owned by ownerID, newest first.
// Pending listings are included: an owner always sees their own unpaid
// drafts.  Ties on created_at are broken by id descending so the order is
// deterministic.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.Listing, error) {
    const q = `SELECT ` + listingColumns + ` FROM listings
               WHERE owner_id = ?
               ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, ownerID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return collectListings(rows)
}

// ListPublic returns completed listings only, newest first.  The status
// filter is applied here, at the storage boundary, so a pending listing
// can never leak into public browse results.
func (r *ListingRepo) ListPublic(ctx context.Context) ([]model.Listing, error) {
    const q = `SELECT ` + listingColumns + ` FROM listings
               WHERE status = ?
               ORDER BY created_at DESC, id DESC`
    rows, err := r.db.QueryContext(ctx, q, model.StatusCompleted)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    return collectListings(rows)
}

// MarkCompleted transitions a listing from pending to completed with a
// conditional update.  The WHERE clause on the current status makes the
// update the serialization point for the listing's terminal state: a
// duplicated confirmation matches zero rows and reports
// ErrInvalidTransition instead of writing twice.
func (r *ListingRepo) MarkCompleted(ctx context.Context, id string) error {
    res, err := r.db.ExecContext(ctx,
        `UPDATE listings SET status = ? WHERE id = ? AND status = ?`,
        model.StatusCompleted, id, model.StatusPending)
    if err != nil {
        return err
    }
    n, err := res.RowsAffected()
    if err != nil {
        return err
    }
    if n == 1 {
        return nil
    }
    // Zero rows: either the listing is gone or it already advanced.
    var status string
    err = r.db.QueryRowContext(ctx, `SELECT status FROM listings WHERE id = ?`, id).Scan(&status)
    if err == sql.ErrNoRows {
        return ErrNotFound
    }
    if err != nil {
        return err
    }
    return ErrInvalidTransition
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

func scanListing(row rowScanner) (*model.Listing, error) {
    var l model.Listing
    var images, features string
    var phone sql.NullString
    err := row.Scan(
        &l.ID, &l.OwnerID, &l.Make, &l.Model, &l.Year, &l.Trim, &l.PriceCents, &l.Mileage,
        &l.ExteriorColor, &l.InteriorColor, &l.Description, &l.VIN, &images,
        &l.Location.City, &l.Location.State, &l.Location.Zip,
        &features, &l.Contact.Name, &phone, &l.Contact.Email,
        &l.Status, &l.CreatedAt,
    )
    if err != nil {
        return nil, err
    }
    if phone.Valid {
        l.Contact.Phone = phone.String
    }
    if err := json.Unmarshal([]byte(images), &l.Images); err != nil {
        l.Images = []string{}
    }
    if err := json.Unmarshal([]byte(features), &l.Features); err != nil {
        l.Features = []string{}
    }
    return &l, nil
}

func collectListings(rows *sql.Rows) ([]model.Listing, error) {
    out := make([]model.Listing, 0)
    for rows.Next() {
        l, err := scanListing(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *l)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return out, nil
}

func emptyIfNil(s []string) []string {
    if s == nil {
        return []string{}
    }
    return s
}
