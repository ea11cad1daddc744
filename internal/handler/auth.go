package handler

import (
    "context"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tesla-marketplace/internal/config"
    "github.com/iliyamo/tesla-marketplace/internal/repository"
    "github.com/iliyamo/tesla-marketplace/internal/session"
    "github.com/iliyamo/tesla-marketplace/internal/utils"
)

// AuthHandler exposes the sign‑up / sign‑in / token lifecycle over HTTP.
// All credential checks go through the session provider; the handler only
// translates between HTTP and the provider's error taxonomy.
type AuthHandler struct {
    Cfg      config.Config
    Provider session.Provider
    Users    *repository.UserRepo
    Tokens   *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, p session.Provider, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
    return &AuthHandler{Cfg: cfg, Provider: p, Users: u, Tokens: t}
}

// ----- DTOs -----

type credentialsReq struct {
    Email    string `json:"email"`
    Password string `json:"password"`
}
type refreshReq struct {
    RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
    Token   string    `json:"token"`
    Expires time.Time `json:"expires"`
}
type userPart struct {
    ID    uint64 `json:"id"`
    Email string `json:"email"`
}
type authResp struct {
    User    userPart  `json:"user"`
    Access  tokenPart `json:"access"`
    Refresh tokenPart `json:"refresh"`
}

func sessionResp(s *session.Session) authResp {
    return authResp{
        User:    userPart{ID: s.ID, Email: s.Email},
        Access:  tokenPart{Token: s.AccessToken, Expires: s.AccessExpires},
        Refresh: tokenPart{Token: s.RefreshToken, Expires: s.RefreshExpires}, // raw back to client
    }
}

// Register creates the account and signs it in immediately.
func (h *AuthHandler) Register(c echo.Context) error {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    sess, err := h.Provider.SignUp(ctx, req.Email, req.Password)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
        }
        return authErrJSON(c, err)
    }
    return c.JSON(http.StatusCreated, sessionResp(sess))
}

// Login verifies credentials and returns a fresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
    var req credentialsReq
    if err := c.Bind(&req); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
    }
    req.Email = strings.ToLower(strings.TrimSpace(req.Email))
    if req.Email == "" || req.Password == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    sess, err := h.Provider.SignIn(ctx, req.Email, req.Password)
    if err != nil {
        return authErrJSON(c, err)
    }
    return c.JSON(http.StatusOK, sessionResp(sess))
}

// Refresh rotates the refresh token: validate by hash, revoke the old
// one, issue a new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }
    raw := strings.TrimSpace(req.RefreshToken)
    hash := utils.HashRefreshRaw(raw)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    userID, err := h.Tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    _ = h.Tokens.RevokeByHash(ctx, hash)

    u, err := h.Users.GetByID(ctx, userID)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
    }
    access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, h.Cfg.AccessTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
    }
    newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue refresh failed"})
    }
    if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save refresh failed"})
    }

    return c.JSON(http.StatusOK, authResp{
        User:    userPart{ID: u.ID, Email: u.Email},
        Access:  tokenPart{Token: access.Token, Expires: access.Exp},
        Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
    })
}

// RefreshAccess exchanges a valid refresh token for a new access token
// WITHOUT rotating the refresh token.  This is the resume path clients
// use after a restart.
func (h *AuthHandler) RefreshAccess(c echo.Context) error {
    var req refreshReq
    if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
    }

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    sess, err := h.Provider.Resume(ctx, strings.TrimSpace(req.RefreshToken))
    if err != nil {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "access": tokenPart{Token: sess.AccessToken, Expires: sess.AccessExpires},
    })
}

// Logout revokes either the refresh token in the body (single session) or,
// when called with a bearer token and no body, every session of the user.
func (h *AuthHandler) Logout(c echo.Context) error {
    var req refreshReq
    _ = c.Bind(&req)
    refreshToken := strings.TrimSpace(req.RefreshToken)

    ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
    defer cancel()

    if refreshToken != "" {
        if err := h.Provider.SignOut(ctx, refreshToken); err != nil {
            return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
        }
        return c.NoContent(http.StatusNoContent)
    }

    // No body: the route is behind the JWT middleware, so the user ID is
    // on the context. Revoke every session.
    uid, ok := c.Get("user_id").(uint64)
    if !ok || uid == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
    }
    return c.NoContent(http.StatusNoContent)
}

// Me reports the authenticated identity (protected).
func (h *AuthHandler) Me(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{
        "user_id": c.Get("user_id"),
        "email":   c.Get("email"),
    })
}

// authErrJSON maps the provider's error taxonomy to status codes.
func authErrJSON(c echo.Context, err error) error {
    var aerr *session.AuthError
    if errors.As(err, &aerr) {
        switch aerr.Kind {
        case session.AuthErrInvalidCredentials:
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
        case session.AuthErrNetwork:
            return c.JSON(http.StatusBadGateway, echo.Map{"error": "auth backend unreachable"})
        }
    }
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "auth failed"})
}
