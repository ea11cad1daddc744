package model

import (
    "fmt"
    "regexp"
    "strings"
    "time"
)

// ListingDraft carries the raw, client‑supplied fields of a listing before
// any of them have been checked.  A draft never reaches the repository
// directly; NewListing is the single place where a draft is turned into a
// Listing, so invalid input is rejected before it can be persisted.
type ListingDraft struct {
    Make          string   `json:"make"`
    Model         string   `json:"model"`
    Year          int      `json:"year"`
    Trim          string   `json:"trim"`
    PriceCents    int64    `json:"price_cents"`
    Mileage       int      `json:"mileage"`
    ExteriorColor string   `json:"exterior_color"`
    InteriorColor string   `json:"interior_color"`
    Description   string   `json:"description"`
    VIN           string   `json:"vin"`
    Images        []string `json:"images"`
    City          string   `json:"city"`
    State         string   `json:"state"`
    Zip           string   `json:"zip"`
    Features      []string `json:"features"`
    ContactName   string   `json:"contact_name"`
    ContactPhone  string   `json:"contact_phone"`
    ContactEmail  string   `json:"contact_email"`
}

// ValidationError reports the first draft field that failed validation.
// Field uses the JSON name of the field so clients can highlight the
// offending input.
type ValidationError struct {
    Field  string // JSON name of the invalid field
    Reason string // human‑readable explanation
}

func (e *ValidationError) Error() string {
    return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}

// zipPattern accepts 5‑digit US ZIP codes with an optional +4 extension.
var zipPattern = regexp.MustCompile(`^\d{5}(-\d{4})?$`)

// minDescriptionLen mirrors the minimum enforced on the listing form.
const minDescriptionLen = 20

// firstModelYear is the oldest model year a draft may carry.
const firstModelYear = 2008

// NewListing validates a draft and returns an unpersisted Listing with
// status pending.  The returned listing has no ID and no timestamp; the
// repository assigns both on create.  On failure a *ValidationError naming
// the offending field is returned and no Listing is produced.
func NewListing(d ListingDraft, ownerID uint64) (*Listing, error) {
    d.Make = strings.TrimSpace(d.Make)
    d.Model = strings.TrimSpace(d.Model)
    d.Trim = strings.TrimSpace(d.Trim)
    d.Description = strings.TrimSpace(d.Description)
    d.City = strings.TrimSpace(d.City)
    d.State = strings.TrimSpace(d.State)
    d.Zip = strings.TrimSpace(d.Zip)
    d.ContactName = strings.TrimSpace(d.ContactName)
    d.ContactEmail = strings.TrimSpace(strings.ToLower(d.ContactEmail))

    switch {
    case d.Make == "":
        return nil, &ValidationError{Field: "make", Reason: "make is required"}
    case d.Model == "":
        return nil, &ValidationError{Field: "model", Reason: "model is required"}
    case d.Year < firstModelYear || d.Year > time.Now().UTC().Year()+1:
        return nil, &ValidationError{Field: "year", Reason: fmt.Sprintf("year must be between %d and next year", firstModelYear)}
    case d.Trim == "":
        return nil, &ValidationError{Field: "trim", Reason: "trim is required"}
    case d.PriceCents < 1:
        return nil, &ValidationError{Field: "price_cents", Reason: "price must be greater than 0"}
    case d.Mileage < 0:
        return nil, &ValidationError{Field: "mileage", Reason: "mileage must be positive"}
    case d.ExteriorColor == "":
        return nil, &ValidationError{Field: "exterior_color", Reason: "exterior color is required"}
    case d.InteriorColor == "":
        return nil, &ValidationError{Field: "interior_color", Reason: "interior color is required"}
    case len(d.Description) < minDescriptionLen:
        return nil, &ValidationError{Field: "description", Reason: fmt.Sprintf("description must be at least %d characters", minDescriptionLen)}
    case d.City == "":
        return nil, &ValidationError{Field: "city", Reason: "city is required"}
    case d.State == "":
        return nil, &ValidationError{Field: "state", Reason: "state is required"}
    case !zipPattern.MatchString(d.Zip):
        return nil, &ValidationError{Field: "zip", Reason: "invalid ZIP code format"}
    case d.ContactName == "":
        return nil, &ValidationError{Field: "contact_name", Reason: "contact name is required"}
    case d.ContactEmail == "" || !strings.Contains(d.ContactEmail, "@"):
        return nil, &ValidationError{Field: "contact_email", Reason: "a valid contact email is required"}
    }

    vin := strings.TrimSpace(d.VIN)
    if vin == "" {
        vin = "pending" // VIN verification happens out of band
    }

    features := make([]string, 0, len(d.Features))
    for _, f := range d.Features {
        if f = strings.TrimSpace(f); f != "" {
            features = append(features, f)
        }
    }

    return &Listing{
        OwnerID:       ownerID,
        Make:          d.Make,
        Model:         d.Model,
        Year:          d.Year,
        Trim:          d.Trim,
        PriceCents:    d.PriceCents,
        Mileage:       d.Mileage,
        ExteriorColor: d.ExteriorColor,
        InteriorColor: d.InteriorColor,
        Description:   d.Description,
        VIN:           vin,
        Images:        d.Images,
        Location:      Location{City: d.City, State: d.State, Zip: d.Zip},
        Features:      features,
        Contact:       ContactInfo{Name: d.ContactName, Phone: strings.TrimSpace(d.ContactPhone), Email: d.ContactEmail},
        Status:        StatusPending,
    }, nil
}
