package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/labstack/echo/v4"

    "github.com/yumrun/yumrun-backend/internal/config"
)

func TestEncodeDecodePayload(t *testing.T) {
    hdr := http.Header{}
    hdr.Set("Content-Type", "application/json")
    body := []byte(`{"rewards":[]}`)

    payload, err := encodePayload(http.StatusOK, hdr, body)
    if err != nil {
        t.Fatalf("encodePayload: %v", err)
    }
    status, gotHdr, gotBody, ok := decodePayload(payload)
    if !ok {
        t.Fatal("decodePayload reported failure")
    }
    if status != http.StatusOK {
        t.Errorf("status = %d, want %d", status, http.StatusOK)
    }
    if gotHdr.Get("Content-Type") != "application/json" {
        t.Errorf("Content-Type = %q", gotHdr.Get("Content-Type"))
    }
    if string(gotBody) != string(body) {
        t.Errorf("body = %q, want %q", gotBody, body)
    }
}

func TestDecodePayloadRejectsShortInput(t *testing.T) {
    if _, _, _, ok := decodePayload([]byte{1, 2, 3}); ok {
        t.Error("decodePayload accepted a truncated payload")
    }
}

func newTestContext(method, target string) echo.Context {
    e := echo.New()
    req := httptest.NewRequest(method, target, nil)
    rec := httptest.NewRecorder()
    c := e.NewContext(req, rec)
    c.SetPath("/v1/orders/:id")
    return c
}

func TestBuildRateKeyStrategies(t *testing.T) {
    cfg := config.RateLimitConfig{Prefix: "yumrun:rl"}

    cases := []struct {
        strategy string
        want     string
    }{
        {"route", "yumrun:rl:route:GET /v1/orders/:id"},
        {"user", "yumrun:rl:user:7"},
        {"ip_route", "yumrun:rl:ip:192.0.2.1:route:GET /v1/orders/:id"},
    }
    for _, tc := range cases {
        c := newTestContext(http.MethodGet, "/v1/orders/42")
        c.Set("user_id", float64(7))
        cfg.KeyStrategy = tc.strategy
        if got := buildRateKey(cfg, c); got != tc.want {
            t.Errorf("strategy %s: key = %q, want %q", tc.strategy, got, tc.want)
        }
    }
}

func TestCurrentUserIDAnonymous(t *testing.T) {
    c := newTestContext(http.MethodGet, "/v1/orders/1")
    if got := currentUserID(c); got != "anon" {
        t.Errorf("currentUserID = %q, want anon", got)
    }
}

func TestAsInt64(t *testing.T) {
    cases := []struct {
        in   interface{}
        want int64
    }{
        {int64(5), 5},
        {float64(9), 9},
        {"12", 12},
        {"junk", 0},
        {nil, 0},
    }
    for _, tc := range cases {
        if got := asInt64(tc.in); got != tc.want {
            t.Errorf("asInt64(%v) = %d, want %d", tc.in, got, tc.want)
        }
    }
}
