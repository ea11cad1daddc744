package session

import (
    "context"
    "database/sql"
    "errors"
    "net"

    "github.com/iliyamo/tesla-marketplace/internal/config"
    "github.com/iliyamo/tesla-marketplace/internal/repository"
    "github.com/iliyamo/tesla-marketplace/internal/utils"
)

// LocalProvider implements Provider against the application's own user
// and refresh‑token tables.  It issues the same HS256 access tokens the
// JWT middleware verifies, so sessions created here work across the HTTP
// surface.
type LocalProvider struct {
    cfg    config.Config
    users  *repository.UserRepo
    tokens *repository.TokenRepo
}

// NewLocalProvider wires a provider over the given repositories.
func NewLocalProvider(cfg config.Config, users *repository.UserRepo, tokens *repository.TokenRepo) *LocalProvider {
    return &LocalProvider{cfg: cfg, users: users, tokens: tokens}
}

// SignUp creates the account and immediately signs it in.  Duplicate
// emails surface as invalid‑credentials class errors so the caller can
// correct input.
func (p *LocalProvider) SignUp(ctx context.Context, email, password string) (*Session, error) {
    uid, err := p.users.Create(ctx, email, password, p.cfg.BcryptCost)
    if err != nil {
        if errors.Is(err, repository.ErrEmailExists) {
            return nil, &AuthError{Kind: AuthErrInvalidCredentials, Err: err}
        }
        return nil, classify(err)
    }
    return p.issue(ctx, Identity{ID: uid, Email: email})
}

// SignIn verifies the password and issues a fresh token pair.
func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
    u, err := p.users.GetByEmail(ctx, email)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, &AuthError{Kind: AuthErrInvalidCredentials}
        }
        return nil, classify(err)
    }
    if !utils.VerifyPassword(u.PasswordHash, password) {
        return nil, &AuthError{Kind: AuthErrInvalidCredentials}
    }
    return p.issue(ctx, Identity{ID: u.ID, Email: u.Email})
}

// Resume validates a stored refresh token and issues a new access token
// without rotating the refresh token.
func (p *LocalProvider) Resume(ctx context.Context, refreshToken string) (*Session, error) {
    hash := utils.HashRefreshRaw(refreshToken)
    uid, err := p.tokens.ValidateRefresh(ctx, hash)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, &AuthError{Kind: AuthErrInvalidCredentials}
        }
        return nil, classify(err)
    }
    u, err := p.users.GetByID(ctx, uid)
    if err != nil {
        return nil, classify(err)
    }
    access, err := utils.NewAccessToken(p.cfg.JWTSecret, u.ID, u.Email, p.cfg.AccessTTLMin)
    if err != nil {
        return nil, classify(err)
    }
    return &Session{
        Identity:      Identity{ID: u.ID, Email: u.Email},
        AccessToken:   access.Token,
        AccessExpires: access.Exp,
        RefreshToken:  refreshToken,
    }, nil
}

// SignOut revokes the refresh token.  Unknown tokens revoke to nothing,
// which keeps sign‑out idempotent.
func (p *LocalProvider) SignOut(ctx context.Context, refreshToken string) error {
    if err := p.tokens.RevokeByHash(ctx, utils.HashRefreshRaw(refreshToken)); err != nil {
        return classify(err)
    }
    return nil
}

// issue mints an access/refresh pair for the identity and persists the
// refresh hash.
func (p *LocalProvider) issue(ctx context.Context, id Identity) (*Session, error) {
    access, err := utils.NewAccessToken(p.cfg.JWTSecret, id.ID, id.Email, p.cfg.AccessTTLMin)
    if err != nil {
        return nil, classify(err)
    }
    refresh, err := utils.NewRefreshToken(p.cfg.RefreshTTLDays)
    if err != nil {
        return nil, classify(err)
    }
    if err := p.tokens.StoreRefresh(ctx, id.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
        return nil, classify(err)
    }
    return &Session{
        Identity:       id,
        AccessToken:    access.Token,
        AccessExpires:  access.Exp,
        RefreshToken:   refresh.Raw,
        RefreshExpires: refresh.Exp,
    }, nil
}

// classify folds infrastructure errors into the AuthError taxonomy.
func classify(err error) error {
    var nerr net.Error
    if errors.As(err, &nerr) {
        return &AuthError{Kind: AuthErrNetwork, Err: err}
    }
    return &AuthError{Kind: AuthErrUnknown, Err: err}
}
