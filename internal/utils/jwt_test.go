package utils

import (
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

func TestNewAccessTokenRoundTrip(t *testing.T) {
    const secret = "test-secret"
    tok, err := NewAccessToken(secret, 42, "RIDER", 15)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    if tok.Exp.Before(time.Now().UTC()) {
        t.Fatal("token already expired at issuance")
    }
    parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
        return []byte(secret), nil
    })
    if err != nil || !parsed.Valid {
        t.Fatalf("parse issued token: %v", err)
    }
    claims, ok := parsed.Claims.(jwt.MapClaims)
    if !ok {
        t.Fatal("claims not MapClaims")
    }
    if claims["role"] != "RIDER" {
        t.Errorf("role claim = %v, want RIDER", claims["role"])
    }
    if sub, _ := claims["sub"].(float64); uint64(sub) != 42 {
        t.Errorf("sub claim = %v, want 42", claims["sub"])
    }
}

func TestNewAccessTokenWrongSecret(t *testing.T) {
    tok, err := NewAccessToken("right", 1, "CUSTOMER", 5)
    if err != nil {
        t.Fatalf("NewAccessToken: %v", err)
    }
    parsed, err := jwt.Parse(tok.Token, func(tk *jwt.Token) (interface{}, error) {
        return []byte("wrong"), nil
    })
    if err == nil && parsed.Valid {
        t.Fatal("token validated with wrong secret")
    }
}

func TestRefreshTokenHashStable(t *testing.T) {
    rt, err := NewRefreshToken(7)
    if err != nil {
        t.Fatalf("NewRefreshToken: %v", err)
    }
    if len(rt.Raw) != 96 {
        t.Errorf("raw token length = %d, want 96", len(rt.Raw))
    }
    if HashRefreshRaw(rt.Raw) != HashRefreshRaw(rt.Raw) {
        t.Error("hash not deterministic")
    }
    other, _ := NewRefreshToken(7)
    if rt.Raw == other.Raw {
        t.Error("two refresh tokens collided")
    }
}
