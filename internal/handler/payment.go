package handler

import (
    "context"
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tesla-marketplace/internal/payment"
    "github.com/iliyamo/tesla-marketplace/internal/repository"
    "github.com/iliyamo/tesla-marketplace/internal/workflow"
)

// PaymentHandler drives the two-step publication payment over HTTP:
// start an attempt, then report its outcome.  Both endpoints are owner
// only and idempotent enough to be retried after client crashes.
type PaymentHandler struct {
    Flow *workflow.Workflow
}

func NewPaymentHandler(flow *workflow.Workflow) *PaymentHandler {
    return &PaymentHandler{Flow: flow}
}

type completeReq struct {
    Outcome string `json:"outcome"` // succeeded | cancelled | failed
    Reason  string `json:"reason"`  // optional detail for failed
}

// Start begins a payment attempt for a pending listing the caller owns
// and returns the client secret that drives the collection UI.
func (h *PaymentHandler) Start(c echo.Context) error {
    caller := callerIdentity(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    attempt, err := h.Flow.StartPayment(ctx, caller, c.Param("id"))
    if err != nil {
        switch {
        case errors.Is(err, repository.ErrNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
        case errors.Is(err, workflow.ErrUnauthorized):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        case errors.Is(err, repository.ErrInvalidTransition):
            return c.JSON(http.StatusConflict, echo.Map{"error": "listing already published"})
        case errors.Is(err, payment.ErrAttemptActive):
            return c.JSON(http.StatusConflict, echo.Map{"error": "payment already in progress"})
        }
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment setup failed"})
    }
    return c.JSON(http.StatusCreated, attempt)
}

// Complete reports the outcome of the collection flow.  A confirmed
// success publishes the listing; cancellation and failure leave it
// pending and free the attempt slot for a retry.
func (h *PaymentHandler) Complete(c echo.Context) error {
    var req completeReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    reported, err := payment.ParseOutcome(req.Outcome)
    if err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "outcome must be succeeded, cancelled or failed"})
    }
    caller := callerIdentity(c)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
    defer cancel()

    outcome, err := h.Flow.CompletePayment(ctx, caller, c.Param("id"), reported, req.Reason)
    if err != nil {
        var perr *payment.Error
        switch {
        case errors.Is(err, repository.ErrNotFound):
            return c.JSON(http.StatusNotFound, echo.Map{"error": "listing not found"})
        case errors.Is(err, workflow.ErrUnauthorized):
            return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
        case errors.Is(err, payment.ErrNoAttempt):
            return c.JSON(http.StatusConflict, echo.Map{"error": "no active payment attempt"})
        case errors.As(err, &perr):
            return c.JSON(http.StatusPaymentRequired, echo.Map{
                "outcome": outcome.String(),
                "error":   perr.Reason,
            })
        }
        return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment verification failed"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "listing_id": c.Param("id"),
        "outcome":    outcome.String(),
    })
}
