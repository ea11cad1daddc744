package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestNewAccessTokenClaims(t *testing.T) {
    const secret = "test-secret"
    at, err := NewAccessToken(secret, 42, "seller@example.com", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }

    tok, err := jwt.Parse(at.Token, func(tk *jwt.Token) (interface{}, error) {
        if _, ok := tk.Method.(*jwt.SigningMethodHMAC); !ok {
            t.Fatalf("unexpected signing method %v", tk.Method)
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        t.Fatalf("parse: %v (valid=%v)", err, tok.Valid)
    }
    claims := tok.Claims.(jwt.MapClaims)
    if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
        t.Errorf("sub = %v, want 42", claims["sub"])
    }
    if claims["email"] != "seller@example.com" {
        t.Errorf("email = %v", claims["email"])
    }
    if at.Exp.Before(time.Now()) {
        t.Error("token already expired")
    }
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
    at, err := NewAccessToken("right-secret", 1, "a@b.c", 15)
    if err != nil {
        t.Fatal(err)
    }
    tok, err := jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) {
        return []byte("wrong-secret"), nil
    })
    if err == nil && tok.Valid {
        t.Fatal("token verified with the wrong secret")
    }
}

func TestRefreshTokensAreUniqueAndHashed(t *testing.T) {
    a, err := NewRefreshToken(7)
    if err != nil {
        t.Fatal(err)
    }
    b, err := NewRefreshToken(7)
    if err != nil {
        t.Fatal(err)
    }
    if a.Raw == b.Raw {
        t.Fatal("two refresh tokens must never collide")
    }
    if len(a.Raw) != 96 {
        t.Errorf("raw token length = %d, want 96 hex chars", len(a.Raw))
    }
    if HashRefreshRaw(a.Raw) == a.Raw {
        t.Error("hash must differ from the raw token")
    }
    if HashRefreshRaw(a.Raw) != HashRefreshRaw(a.Raw) {
        t.Error("hash must be deterministic")
    }
}
