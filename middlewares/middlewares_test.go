package middlewares

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicconnect-be/models"
	"civicconnect-be/services"
	"civicconnect-be/store"
	authUtils "civicconnect-be/utils"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	tokens *authUtils.TokenIssuer
	roles  *services.RoleResolver
	store  *store.MemoryStore
}

func newFixture() fixture {
	s := store.NewMemoryStore()
	return fixture{
		tokens: authUtils.NewTokenIssuer("test-secret", time.Hour),
		roles:  services.NewRoleResolver(s, nil),
		store:  s,
	}
}

func (f fixture) token(t *testing.T, p models.Principal) string {
	t.Helper()
	token, err := f.tokens.GenerateToken(p)
	require.NoError(t, err)
	return token
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	f := newFixture()
	r := gin.New()
	r.GET("/me", AuthMiddleware(f.tokens, f.roles), func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"uid": actor.UID, "kind": actor.Kind})
	})

	w := do(r, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"No authorization token provided","code":"unauthorized"}`, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, models.Principal{UID: "u1", IsOrganization: true}))
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","kind":"organization"}`, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: f.token(t, models.Principal{UID: "u2"})})
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u2","kind":"user"}`, w.Body.String())
}

func TestAuthMiddleware_RequiresBearerScheme(t *testing.T) {
	f := newFixture()
	r := gin.New()
	r.GET("/me", AuthMiddleware(f.tokens, f.roles), func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFrom(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", f.token(t, models.Principal{UID: "u1"}))
	w := do(r, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "No authorization token provided")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic xyz")
	assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic xyz")
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: f.token(t, models.Principal{UID: "u2"})})
	w = do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u2", w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer "+f.token(t, models.Principal{UID: "u3"}))
	assert.Equal(t, "u3", do(r, req).Body.String())
}

func TestOptionalAuth(t *testing.T) {
	f := newFixture()
	r := gin.New()
	r.GET("/feed", OptionalAuth(f.tokens, f.roles), func(c *gin.Context) {
		c.String(http.StatusOK, UserIDFrom(c))
	})

	w := do(r, httptest.NewRequest(http.MethodGet, "/feed", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/feed", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, models.Principal{UID: "u1"}))
	assert.Equal(t, "u1", do(r, req).Body.String())
}

func TestRequireKind(t *testing.T) {
	f := newFixture()
	r := gin.New()
	r.GET("/org", AuthMiddleware(f.tokens, f.roles), RequireKind(models.KindOrganization), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/org", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, models.Principal{UID: "u1"}))
	w := do(r, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"forbidden"`)

	req = httptest.NewRequest(http.MethodGet, "/org", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, models.Principal{UID: "o1", Role: "organization"}))
	assert.Equal(t, http.StatusNoContent, do(r, req).Code)
}

func TestIssueRateLimiter(t *testing.T) {
	f := newFixture()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	r := gin.New()
	r.POST("/issues", AuthMiddleware(f.tokens, f.roles), IssueRateLimiter(client, "issue_limit", 2), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	token := f.token(t, models.Principal{UID: "u1"})
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/issues", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return do(r, req)
	}

	assert.Equal(t, http.StatusCreated, post().Code)
	assert.Equal(t, http.StatusCreated, post().Code)
	w := post()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	assert.Equal(t, 24*time.Hour, mr.TTL("issue_limit:u1"))

	mr.FastForward(25 * time.Hour)
	assert.Equal(t, http.StatusCreated, post().Code)
}

func TestIssueRateLimiter_NilClientDisables(t *testing.T) {
	r := gin.New()
	r.POST("/issues", IssueRateLimiter(nil, "issue_limit", 0), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	assert.Equal(t, http.StatusCreated, do(r, httptest.NewRequest(http.MethodPost, "/issues", nil)).Code)
}

func TestIPRateLimiter(t *testing.T) {
	limit, err := NewIPRateLimiter("2-M")
	require.NoError(t, err)

	r := gin.New()
	r.Use(limit)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(r, httptest.NewRequest(http.MethodGet, "/ping", nil)).Code)

	_, err = NewIPRateLimiter("lots")
	assert.Error(t, err)
}

func TestSecureHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecureHeaders(SecureOptions(false)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := do(r, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
