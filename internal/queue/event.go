// Package queue defines message payloads exchanged over the message broker.
package queue

// ListingPublishedEvent is published when a listing's publication fee has
// been confirmed and the listing became publicly visible.  It contains
// enough information for downstream consumers to log, notify, or trigger
// analytics without querying the primary database.
type ListingPublishedEvent struct {
    ListingID   string `json:"listing_id"`
    OwnerID     uint64 `json:"owner_id"`
    Make        string `json:"make"`
    Model       string `json:"model"`
    Year        int    `json:"year"`
    PriceCents  int64  `json:"price_cents"`
    City        string `json:"city"`
    State       string `json:"state"`
    PublishedAt string `json:"published_at"`
}
