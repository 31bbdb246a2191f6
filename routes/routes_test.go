package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/controllers"
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
	if err := controllers.RegisterValidators(); err != nil {
		panic(err)
	}
}

type server struct {
	engine *gin.Engine
	tokens *authUtils.TokenIssuer
}

func newServer(t *testing.T, st store.Store, redisClient *redis.Client) *server {
	t.Helper()
	tokens := authUtils.NewTokenIssuer("test-secret", time.Hour)
	roles := services.NewRoleResolver(st, nil)
	accounts := services.NewAccountService(st, tokens, roles)
	issues := services.NewIssueService(st, services.ScopeOwn)

	r := gin.New()
	Setup(r, Deps{
		Tokens:     tokens,
		Roles:      roles,
		Auth:       controllers.NewAuthController(accounts, controllers.CookieConfig{MaxAge: time.Hour}),
		Issues:     controllers.NewIssueController(issues),
		Comments:   controllers.NewCommentController(issues),
		Health:     controllers.NewHealthController(st, redisClient, "test"),
		Redis:      redisClient,
		IssueQueue: "issue_limit",
		DailyLimit: 2,
	})
	return &server{engine: r, tokens: tokens}
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// register creates an account and returns its token.
func (s *server) register(t *testing.T, email, orgName string) string {
	t.Helper()
	body := gin.H{"email": email, "password": "secret123"}
	if orgName != "" {
		body["isOrganization"] = true
		body["organizationName"] = orgName
	}
	w := s.do(t, http.MethodPost, "/api/auth/register", "", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["token"].(string)
}

func (s *server) createIssue(t *testing.T, token string, body gin.H) map[string]interface{} {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/issues", token, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)
}

func TestPingAndHealth(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)

	w := s.do(t, http.MethodGet, "/ping", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", decode(t, w)["message"])

	w = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginMe(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "citizen@example.com", "password": "secret123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "user", body["userType"])
	assert.Equal(t, services.UserDashboardPath, body["redirectPath"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), "auth_token=")

	w = s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"email": "citizen@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, apperrors.CodeConflict, decode(t, w)["code"])

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "citizen@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "citizen@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	token := decode(t, w)["token"].(string)

	w = s.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode(t, w)
	assert.Equal(t, "citizen@example.com", me["email"])
	assert.Equal(t, false, me["isOrganization"])

	w = s.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsUnknownOrganization(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)

	w := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"email": "org@example.com", "password": "secret123",
		"isOrganization": true, "organizationName": "Nowhere Council",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apperrors.CodeInvalidRequest, decode(t, w)["code"])
}

func TestUpdateProfileSwitchesKind(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)
	token := s.register(t, "switch@example.com", "")

	w := s.do(t, http.MethodPost, "/api/auth/update-profile", token, gin.H{
		"isOrganization": true, "organizationName": "Public Works Department (PWD)",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "organization", body["userType"])
	assert.Equal(t, services.OrganizationDashboardPath, body["redirectPath"])

	// The old token's claims say user, but the stored profile wins.
	w = s.do(t, http.MethodGet, "/api/organization/issues", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKindGuardedDashboards(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)
	user := s.register(t, "user@example.com", "")
	org := s.register(t, "pwd@example.com", "Public Works Department (PWD)")

	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/user/issues", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/user/issues", org, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(t, http.MethodGet, "/api/organization/issues", user, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/user/issues", user, nil).Code)
}

func TestRouteDecision(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)
	org := s.register(t, "pwd@example.com", "Public Works Department (PWD)")

	w := s.do(t, http.MethodGet, "/api/auth/route?path=/user/dashboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, services.LoginPath, body["redirect"])

	w = s.do(t, http.MethodGet, "/api/auth/route?path=/user/dashboard", org, nil)
	body = decode(t, w)
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, services.OrganizationDashboardPath, body["redirect"])
}

func TestIssueLifecycleOverHTTP(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)
	user := s.register(t, "user@example.com", "")
	other := s.register(t, "other@example.com", "")
	org := s.register(t, "pwd@example.com", "Public Works Department (PWD)")

	issue := s.createIssue(t, user, gin.H{
		"title": "Pothole", "description": "Deep pothole", "location": "Main St",
		"issueType": "roads", "severity": "High", "latitude": 19.07, "longitude": 72.87,
	})
	id := issue["id"].(string)
	assert.Equal(t, "pwd", issue["assignedTo"])
	assert.Equal(t, "high", issue["priority"])
	assert.Equal(t, "open", issue["status"])

	w := s.do(t, http.MethodGet, "/api/organization/issues", org, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var assigned []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &assigned))
	require.Len(t, assigned, 1)
	assert.Equal(t, id, assigned[0]["id"])

	w = s.do(t, http.MethodPatch, "/api/issues/"+id+"/status", org, gin.H{"status": "In Progress"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "in_progress", decode(t, w)["status"])

	w = s.do(t, http.MethodPatch, "/api/issues/"+id+"/status", org, gin.H{"status": "closed-forever"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/issues/"+id+"/priority", other, gin.H{"priority": "low"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/issues/"+id+"/vote", other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	vote := decode(t, w)
	assert.Equal(t, true, vote["voted"])
	assert.EqualValues(t, 1, vote["votes"])

	w = s.do(t, http.MethodGet, "/api/issues/"+id, other, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["userHasVoted"])

	w = s.do(t, http.MethodPost, "/api/issues/"+id+"/comments", other, gin.H{"content": "Still there"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = s.do(t, http.MethodGet, "/api/issues/"+id+"/comments", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var comments []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &comments))
	assert.Len(t, comments, 1)

	w = s.do(t, http.MethodGet, "/api/issues?category=roads", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.EqualValues(t, 1, page["totalIssues"])

	w = s.do(t, http.MethodGet, "/api/issues/recent", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["issues"], 1)

	w = s.do(t, http.MethodDelete, "/api/issues/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(t, http.MethodDelete, "/api/issues/"+id, user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/issues/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apperrors.CodeNotFound, decode(t, w)["code"])
}

func TestCreateIssueValidation(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)
	user := s.register(t, "user@example.com", "")

	w := s.do(t, http.MethodPost, "/api/issues", "", gin.H{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodPost, "/api/issues", user, gin.H{"title": "Pothole"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/issues", user, gin.H{
		"title": "Pothole", "description": "Deep", "location": "Main St", "category": "volcanoes",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/issues", user, gin.H{
		"title": "Pothole", "description": "Deep", "location": "Main St",
		"category": "roads", "assignedTo": "bmc-waste",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, apperrors.CodeInvalidAssignment, decode(t, w)["code"])
}

func TestAssignIssue(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)
	user := s.register(t, "user@example.com", "")
	org := s.register(t, "pwd@example.com", "Public Works Department (PWD)")

	id := s.createIssue(t, user, gin.H{
		"title": "Pothole", "description": "Deep", "location": "Main St", "category": "roads",
	})["id"].(string)

	w := s.do(t, http.MethodPatch, "/api/issues/"+id+"/assign", user, gin.H{"organizationId": "mmrda"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPatch, "/api/issues/"+id+"/assign", org, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/issues/"+id+"/assign", org, gin.H{"organizationId": "bmc-waste"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(t, http.MethodPatch, "/api/issues/"+id+"/assign", org, gin.H{"organizationName": "Mumbai Metropolitan Region Development Authority (MMRDA)"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "mmrda", decode(t, w)["assignedTo"])

	// PWD no longer owns it.
	w = s.do(t, http.MethodPatch, "/api/issues/"+id+"/status", org, gin.H{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDirectoryEndpoints(t *testing.T) {
	s := newServer(t, store.NewMemoryStore(), nil)

	w := s.do(t, http.MethodGet, "/api/organizations/garbage", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orgs []models.Organization
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orgs))
	require.NotEmpty(t, orgs)
	for _, o := range orgs {
		assert.Contains(t, o.IssueTypes, models.Garbage)
	}

	w = s.do(t, http.MethodGet, "/api/organizations/unknown", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/categories", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(t, http.MethodGet, "/api/organizations", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDailyIssueLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := newServer(t, store.NewMemoryStore(), client)
	user := s.register(t, "user@example.com", "")

	for i := 0; i < 2; i++ {
		s.createIssue(t, user, gin.H{
			"title": fmt.Sprintf("Issue %d", i), "description": "d", "location": "l",
		})
	}
	w := s.do(t, http.MethodPost, "/api/issues", user, gin.H{"title": "Third", "description": "d", "location": "l"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.CodeRateLimited, decode(t, w)["code"])
}

// failingStore makes every feed read and Ping fail as if the database were down.
type failingStore struct {
	*store.MemoryStore
}

var errDown = fmt.Errorf("list: %w: connection refused", apperrors.ErrUpstreamUnavailable)

func (f failingStore) ListIssues(context.Context, models.IssueFilter) ([]models.Issue, int64, error) {
	return nil, 0, errDown
}

func (f failingStore) CountIssues(context.Context, models.IssueFilter) (int64, error) {
	return 0, errDown
}

func (f failingStore) CountIssuesByCategory(context.Context) (map[models.IssueCategory]int64, error) {
	return nil, errDown
}

func (f failingStore) CountIssuesByStatus(context.Context) (map[models.IssueStatus]int64, error) {
	return nil, errDown
}

func (f failingStore) CountAllVotes(context.Context) (int64, error) {
	return 0, errDown
}

func (f failingStore) GetIssue(context.Context, string) (*models.Issue, error) {
	return nil, errDown
}

func (f failingStore) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestFeedDegradesWhenStoreIsDown(t *testing.T) {
	s := newServer(t, failingStore{store.NewMemoryStore()}, nil)

	for _, path := range []string{"/api/issues", "/api/issues/recent", "/api/issues/stats"} {
		t.Run(path, func(t *testing.T) {
			w := s.do(t, http.MethodGet, path, "", nil)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, true, decode(t, w)["degraded"])
		})
	}

	w := s.do(t, http.MethodGet, "/api/issues/abc", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.CodeUnavailable, decode(t, w)["code"])

	w = s.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unhealthy", decode(t, w)["status"])
}
