package middleware

import (
    "context"
    "errors"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/go-redis/redismock/v9"
    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/miraifest/ticket-booking/internal/config"
    "github.com/miraifest/ticket-booking/internal/utils"
)

const testSecret = "test-secret"

type stubSessions struct {
    ok  bool
    err error
}

func (s stubSessions) VerifySession(context.Context, uint64, string) (bool, error) { return s.ok, s.err }

func serve(t *testing.T, h echo.HandlerFunc, mw []echo.MiddlewareFunc, header map[string]string) *httptest.ResponseRecorder {
    t.Helper()
    e := echo.New()
    e.GET("/test", h, mw...)
    req := httptest.NewRequest(http.MethodGet, "/test", nil)
    for k, v := range header {
        req.Header.Set(k, v)
    }
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    return rec
}

func bearer(t *testing.T, userID uint64, role string) map[string]string {
    t.Helper()
    tok, err := utils.NewAccessToken(testSecret, userID, role, 5, "jti-1")
    require.NoError(t, err)
    return map[string]string{"Authorization": "Bearer " + tok.Token}
}

func whoAmI(c echo.Context) error {
    return c.JSON(http.StatusOK, echo.Map{"user_id": c.Get(CtxUserID), "role": c.Get(CtxRole)})
}

func TestJWTAuth(t *testing.T) {
    t.Run("valid token", func(t *testing.T) {
        rec := serve(t, whoAmI, []echo.MiddlewareFunc{JWTAuth(testSecret, nil)}, bearer(t, 42, "user"))
        assert.Equal(t, http.StatusOK, rec.Code)
        assert.JSONEq(t, `{"user_id":42,"role":"user"}`, rec.Body.String())
    })

    t.Run("missing header", func(t *testing.T) {
        rec := serve(t, whoAmI, []echo.MiddlewareFunc{JWTAuth(testSecret, nil)}, nil)
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
        assert.Contains(t, rec.Body.String(), `"success":false`)
    })

    t.Run("wrong secret", func(t *testing.T) {
        tok, err := utils.NewAccessToken("other-secret", 42, "user", 5, "jti-1")
        require.NoError(t, err)
        rec := serve(t, whoAmI, []echo.MiddlewareFunc{JWTAuth(testSecret, nil)}, map[string]string{"Authorization": "Bearer " + tok.Token})
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
    })

    t.Run("expired token", func(t *testing.T) {
        tok, err := utils.NewAccessToken(testSecret, 42, "user", -1, "jti-1")
        require.NoError(t, err)
        rec := serve(t, whoAmI, []echo.MiddlewareFunc{JWTAuth(testSecret, nil)}, map[string]string{"Authorization": "Bearer " + tok.Token})
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
    })

    t.Run("logged out session", func(t *testing.T) {
        rec := serve(t, whoAmI, []echo.MiddlewareFunc{JWTAuth(testSecret, stubSessions{ok: false})}, bearer(t, 42, "user"))
        assert.Equal(t, http.StatusUnauthorized, rec.Code)
    })

    t.Run("session store down", func(t *testing.T) {
        rec := serve(t, whoAmI, []echo.MiddlewareFunc{JWTAuth(testSecret, stubSessions{err: errors.New("db down")})}, bearer(t, 42, "user"))
        assert.Equal(t, http.StatusInternalServerError, rec.Code)
    })
}

func TestRequireRole(t *testing.T) {
    adminOnly := []echo.MiddlewareFunc{JWTAuth(testSecret, stubSessions{ok: true}), RequireRole("admin")}

    rec := serve(t, whoAmI, adminOnly, bearer(t, 1, "admin"))
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = serve(t, whoAmI, adminOnly, bearer(t, 2, "user"))
    assert.Equal(t, http.StatusForbidden, rec.Code)
    assert.JSONEq(t, `{"success":false,"message":"forbidden","data":null}`, rec.Body.String())
}

func TestRequestID(t *testing.T) {
    echoID := func(c echo.Context) error { return c.String(http.StatusOK, GetRequestID(c)) }

    rec := serve(t, echoID, []echo.MiddlewareFunc{RequestID()}, map[string]string{RequestIDHeader: "req-123"})
    assert.Equal(t, "req-123", rec.Body.String())
    assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))

    rec = serve(t, echoID, []echo.MiddlewareFunc{RequestID()}, nil)
    assert.Len(t, rec.Body.String(), 36)
    assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))
}

func TestResponseCache_Purge(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    cfg := config.CacheConfig{Enabled: true, Prefix: "cache", Methods: map[string]bool{"GET": true}}
    rc := NewResponseCache(cfg, rdb, "tickets")

    mock.ExpectScan(0, "cache:tickets:*", 100).SetVal([]string{"cache:tickets:a", "cache:tickets:b"}, 7)
    mock.ExpectDel("cache:tickets:a", "cache:tickets:b").SetVal(2)
    mock.ExpectScan(7, "cache:tickets:*", 100).SetVal([]string{}, 0)

    require.NoError(t, rc.Purge(context.Background()))
    require.NoError(t, mock.ExpectationsWereMet())
}

func TestResponseCache_PurgeError(t *testing.T) {
    rdb, mock := redismock.NewClientMock()
    rc := NewResponseCache(config.CacheConfig{Enabled: true, Prefix: "cache"}, rdb, "tickets")

    mock.ExpectScan(0, "cache:tickets:*", 100).SetErr(errors.New("connection refused"))
    assert.Error(t, rc.Purge(context.Background()))
}

func TestResponseCache_DisabledIsPassThrough(t *testing.T) {
    rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil, "tickets")
    require.NoError(t, rc.Purge(context.Background()))

    rec := serve(t, func(c echo.Context) error { return c.String(http.StatusOK, "fresh") }, []echo.MiddlewareFunc{rc.Middleware()}, nil)
    assert.Equal(t, "fresh", rec.Body.String())
    assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestCacheKey_IncludesPathParams(t *testing.T) {
    cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
    e := echo.New()
    keyFor := func(id string) string {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/tickets/"+id, nil), httptest.NewRecorder())
        c.SetPath("/api/v1/tickets/:id")
        c.SetParamNames("id")
        c.SetParamValues(id)
        return cacheKeyFrom(cfg, "tickets", c)
    }
    a, b := keyFor("1"), keyFor("2")
    assert.NotEqual(t, a, b)
    assert.Regexp(t, `^cache:tickets:[0-9a-f]{40}$`, a)
}

func TestRateLimitKey(t *testing.T) {
    e := echo.New()
    req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
    req.RemoteAddr = "10.0.0.7:5555"
    c := e.NewContext(req, httptest.NewRecorder())
    c.SetPath("/api/v1/auth/login")

    cfg := config.RateLimitConfig{Prefix: "rl:auth", KeyStrategy: "ip_route"}
    assert.Equal(t, "rl:auth:ip:10.0.0.7:route:POST /api/v1/auth/login", buildRateKey(cfg, c))

    c.Set(CtxUserID, uint64(9))
    cfg.KeyStrategy = "user"
    assert.Equal(t, "rl:auth:user:9", buildRateKey(cfg, c))
}

func TestParseBucketResult(t *testing.T) {
    res, ok := parseBucketResult([]any{int64(0), int64(0), int64(1500)})
    require.True(t, ok)
    assert.False(t, res.allowed)
    assert.Equal(t, 1500*time.Millisecond, res.retry)

    res, ok = parseBucketResult([]any{int64(1), int64(9), int64(0)})
    require.True(t, ok)
    assert.True(t, res.allowed)
    assert.Equal(t, int64(9), res.remaining)

    _, ok = parseBucketResult("OK")
    assert.False(t, ok)
}

func TestTokenBucket_DisabledPassesThrough(t *testing.T) {
    mw := NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil)
    rec := serve(t, func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, []echo.MiddlewareFunc{mw}, nil)
    assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRequireMember(t *testing.T) {
    members := []echo.MiddlewareFunc{JWTAuth(testSecret, stubSessions{ok: true}), RequireMember()}
    assert.Equal(t, http.StatusOK, serve(t, whoAmI, members, bearer(t, 2, "user")).Code)
    assert.Equal(t, http.StatusOK, serve(t, whoAmI, members, bearer(t, 1, "admin")).Code)
    assert.Equal(t, http.StatusForbidden, serve(t, whoAmI, members, bearer(t, 3, "scanner")).Code)
}

func TestCORS(t *testing.T) {
    e := echo.New()
    e.Use(CORS(config.CORSConfig{AllowOrigins: []string{"*"}, MaxAge: 24 * time.Hour}))
    e.GET("/api/v1/tickets", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

    req := httptest.NewRequest(http.MethodOptions, "/api/v1/tickets", nil)
    req.Header.Set(echo.HeaderOrigin, "https://fest.example")
    req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusNoContent, rec.Code)
    assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
    assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowHeaders), echo.HeaderAuthorization)
    assert.Equal(t, "86400", rec.Header().Get(echo.HeaderAccessControlMaxAge))

    req = httptest.NewRequest(http.MethodGet, "/api/v1/tickets", nil)
    req.Header.Set(echo.HeaderOrigin, "https://fest.example")
    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusOK, rec.Code)
    assert.Equal(t, "*", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
