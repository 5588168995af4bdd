package utils

import (
    "testing"

    "github.com/golang-jwt/jwt/v5"
)

func TestAccessTokenRoundTrip(t *testing.T) {
    tok, err := NewAccessToken("s3cret", 42, "admin", 15, "jti-a")
    if err != nil {
        t.Fatalf("sign: %v", err)
    }
    c, err := ParseAccessToken("s3cret", tok.Token)
    if err != nil {
        t.Fatalf("parse: %v", err)
    }
    if c.UserID != 42 || c.Role != "admin" {
        t.Fatalf("unexpected claims %+v", c)
    }
}

func TestParseAccessTokenRejects(t *testing.T) {
    good, _ := NewAccessToken("s3cret", 42, "user", 15, "jti-a")
    expired, _ := NewAccessToken("s3cret", 42, "user", -5, "jti-a")
    noRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "42"}).SignedString([]byte("s3cret"))
    numericSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": 42, "role": "user"}).SignedString([]byte("s3cret"))
    none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42", "role": "admin"}).SignedString(jwt.UnsafeAllowNoneSignatureType)

    cases := map[string]struct{ secret, raw string }{
        "wrong secret": {"other", good.Token},
        "expired":      {"s3cret", expired.Token},
        "no role":      {"s3cret", noRole},
        "numeric sub":  {"s3cret", numericSub},
        "alg none":     {"s3cret", none},
        "garbage":      {"s3cret", "not.a.jwt"},
    }
    for name, tc := range cases {
        if _, err := ParseAccessToken(tc.secret, tc.raw); err != ErrInvalidToken {
            t.Fatalf("%s: expected ErrInvalidToken, got %v", name, err)
        }
    }
}

func TestTokensDifferByJTI(t *testing.T) {
    a, _ := NewAccessToken("s3cret", 1, "user", 15, "one")
    b, _ := NewAccessToken("s3cret", 1, "user", 15, "two")
    if HashToken(a.Token) == HashToken(b.Token) {
        t.Fatalf("expected distinct session hashes")
    }
    if len(HashToken(a.Token)) != 64 {
        t.Fatalf("expected hex sha-256")
    }
}

func TestPassword(t *testing.T) {
    h, err := HashPassword("festival2026", 4)
    if err != nil {
        t.Fatalf("hash: %v", err)
    }
    if !VerifyPassword(h, "festival2026") || VerifyPassword(h, "festival2025") {
        t.Fatalf("bcrypt verify mismatch")
    }
}
