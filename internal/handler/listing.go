package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tesla-marketplace/internal/model"
    "github.com/iliyamo/tesla-marketplace/internal/repository"
    "github.com/iliyamo/tesla-marketplace/internal/session"
    "github.com/iliyamo/tesla-marketplace/internal/workflow"
)

// ListingHandler serves listing submission and browse endpoints.  Writes
// go through the publication workflow; reads go straight to the store.
type ListingHandler struct {
    Flow     *workflow.Workflow
    Listings repository.ListingStore
}

func NewListingHandler(flow *workflow.Workflow, listings repository.ListingStore) *ListingHandler {
    return &ListingHandler{Flow: flow, Listings: listings}
}

// callerIdentity pulls the identity the JWT middleware put on the context.
func callerIdentity(c echo.Context) session.Identity {
    id := session.Identity{}
    if v, ok := c.Get("user_id").(uint64); ok {
        id.ID = v
    }
    if v, ok := c.Get("email").(string); ok {
        id.Email = v
    }
    return id
}

// Create accepts a listing draft and persists it as pending (protected).
// The response carries the generated listing ID and the pending status;
// the client drives payment next.
func (h *ListingHandler) Create(c echo.Context) error {
    var draft model.ListingDraft
    if err := c.Bind(&draft); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    caller := callerIdentity(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    l, err := h.Flow.Submit(ctx, caller, draft, caller.ID)
    if err != nil {
        var verr *model.ValidationError
        switch {
        case errors.As(err, &verr):
            return c.JSON(http.StatusBadRequest, echo.Map{"error": verr.Reason, "field": verr.Field})
        case errors.Is(err, workflow.ErrUnauthorized):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create listing failed"})
    }
    return c.JSON(http.StatusCreated, l)
}

// Browse returns completed listings, newest first (public, cacheable).
// Pending listings never appear here regardless of who asks.
func (h *ListingHandler) Browse(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    ls, err := h.Listings.ListPublic(ctx)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list listings failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"listings": ls})
}

// Detail returns one published listing (public).  Unpublished listings
// answer 404 so their existence is not revealed; owners see their own
// pending listings through MyListings instead.
func (h *ListingHandler) Detail(c echo.Context) error {
    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    l, err := h.Listings.GetByID(ctx, c.Param("id"))
    if err != nil {
        if errors.Is(err, repository.ErrNotFound) {
            return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
        }
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load listing failed"})
    }
    if !l.Public() {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
    }
    return c.JSON(http.StatusOK, l)
}

// MyListings returns every listing of the caller, pending included,
// newest first (protected).
func (h *ListingHandler) MyListings(c echo.Context) error {
    caller := callerIdentity(c)
    if caller.ID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    ls, err := h.Listings.ListByOwner(ctx, caller.ID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list listings failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{"listings": ls})
}
