package model

import "time"

// Listing status values.  A listing is created as pending and becomes
// completed exactly once, after its publication fee has been paid.  The
// transition is never reversed; public queries only ever see completed
// rows.
const (
    StatusPending   = "pending"
    StatusCompleted = "completed"
)

// Location describes where the vehicle is offered for sale.
type Location struct {
    City  string `json:"city"`  // listings.city
    State string `json:"state"` // listings.state
    Zip   string `json:"zip"`   // listings.zip
}

// ContactInfo is the seller contact block shown on a listing detail page.
// Phone is optional.
type ContactInfo struct {
    Name  string `json:"name"`            // listings.contact_name
    Phone string `json:"phone,omitempty"` // listings.contact_phone
    Email string `json:"email"`           // listings.contact_email
}

// Listing represents one vehicle offer as stored in the `listings` table.
//
// Fields:
//  ID            – opaque identifier assigned by the repository on create.
//  OwnerID       – user who created the listing; the only identity allowed
//                  to mutate it.
//  Make/Model/…  – vehicle attributes captured from the seller's draft.
//  Images        – ordered image URLs.
//  Features      – ordered free‑text feature strings.
//  Status        – StatusPending or StatusCompleted.
//  CreatedAt     – creation timestamp; listings are sorted newest first.
type Listing struct {
    ID            string      `json:"id"`       // listings.id (uuid)
    OwnerID       uint64      `json:"owner_id"` // listings.owner_id
    Make          string      `json:"make"`
    Model         string      `json:"model"`
    Year          int         `json:"year"`
    Trim          string      `json:"trim"`
    PriceCents    int64       `json:"price_cents"`
    Mileage       int         `json:"mileage"`
    ExteriorColor string      `json:"exterior_color"`
    InteriorColor string      `json:"interior_color"`
    Description   string      `json:"description"`
    VIN           string      `json:"vin"`
    Images        []string    `json:"images"`
    Location      Location    `json:"location"`
    Features      []string    `json:"features"`
    Contact       ContactInfo `json:"contact"`
    Status        string      `json:"status"`     // pending | completed
    CreatedAt     time.Time   `json:"created_at"` // listings.created_at
}

// Public reports whether the listing may appear in public browse results.
func (l *Listing) Public() bool { return l.Status == StatusCompleted }
