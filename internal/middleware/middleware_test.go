package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-reservation/internal/config"
	"github.com/iliyamo/cinema-reservation/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, h echo.HandlerFunc, mw []echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/x/:id", h, mw...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, userID, role, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestJWTAuthStoresIdentity(t *testing.T) {
	var gotID uint64
	var gotRole string
	h := func(c echo.Context) error {
		gotID = c.Get(CtxUserID).(uint64)
		gotRole = c.Get(CtxRole).(string)
		return c.NoContent(http.StatusNoContent)
	}
	req := httptest.NewRequest(http.MethodGet, "/x/1", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 42, "admin"))

	rec := serve(t, h, []echo.MiddlewareFunc{JWTAuth(secret)}, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, uint64(42), gotID)
	assert.Equal(t, "admin", gotRole)
}

func TestJWTAuthRejects(t *testing.T) {
	h := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	for name, header := range map[string]string{
		"missing":      "",
		"not bearer":   "Basic abc",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not.a.jwt",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x/1", nil)
			if header != "" {
				req.Header.Set(echo.HeaderAuthorization, header)
			}
			rec := serve(t, h, []echo.MiddlewareFunc{JWTAuth(secret)}, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	t.Run("wrong secret", func(t *testing.T) {
		tok, err := utils.NewAccessToken("other", 1, "customer", 5)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/x/1", nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok.Token)
		rec := serve(t, h, []echo.MiddlewareFunc{JWTAuth(secret)}, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	h := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	mw := []echo.MiddlewareFunc{JWTAuth(secret), RequireRole("admin")}

	req := httptest.NewRequest(http.MethodGet, "/x/1", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 1, "customer"))
	assert.Equal(t, http.StatusForbidden, serve(t, h, mw, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/x/1", nil)
	req.Header.Set(echo.HeaderAuthorization, bearer(t, 1, "admin"))
	assert.Equal(t, http.StatusNoContent, serve(t, h, mw, req).Code)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/order/reserve", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/order/reserve")
	c.Set(CtxUserID, uint64(7))

	cfg := config.RateLimitConfig{Prefix: "rl"}
	cfg.KeyStrategy = "ip"
	assert.Equal(t, "rl:ip:10.0.0.1", rateKey(cfg, c))
	cfg.KeyStrategy = "user_route"
	assert.Equal(t, "rl:user:7:route:POST /order/reserve", rateKey(cfg, c))
	cfg.KeyStrategy = ""
	assert.Equal(t, "rl:ip:10.0.0.1:user:7:route:POST /order/reserve", rateKey(cfg, c))

	anon := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", subject(anon))
}

func TestRetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 0, retryAfterSeconds(-5))
	assert.Equal(t, 1, retryAfterSeconds(1))
	assert.Equal(t, 2, retryAfterSeconds(1001))
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	h := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	mw := []echo.MiddlewareFunc{
		RateLimit(config.RateLimitConfig{Enabled: true}, nil, hclog.NewNullLogger()),
		ResponseCache(config.CacheConfig{Enabled: true}, nil, hclog.NewNullLogger()),
	}
	rec := serve(t, h, mw, httptest.NewRequest(http.MethodGet, "/x/1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-Cache"))

	// A nil purger is a no-op.
	var p *Purger
	p.Purge(context.Background())
}

func TestCacheKeyUsesRequestPath(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "catalogue", KeyStrategy: "path_query"}
	e := echo.New()
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/movie/:movie_id")
		return cacheKey(cfg, c)
	}
	assert.NotEqual(t, key("/movie/1"), key("/movie/2"))
	assert.NotEqual(t, key("/movie?genre=drama"), key("/movie?genre=crime"))
	assert.Equal(t, key("/movie/1"), key("/movie/1"))
	assert.Regexp(t, `^catalogue:[0-9a-f]{40}$`, key("/movie/1"))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}
