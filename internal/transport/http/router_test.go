package httptransport_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/srivastavahk/TaskFlow/api"
	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/email"
	"github.com/srivastavahk/TaskFlow/internal/health"
	"github.com/srivastavahk/TaskFlow/internal/infrastructure/memory"
	ctxlog "github.com/srivastavahk/TaskFlow/internal/log"
	"github.com/srivastavahk/TaskFlow/internal/ratelimit"
	"github.com/srivastavahk/TaskFlow/internal/token"
	httptransport "github.com/srivastavahk/TaskFlow/internal/transport/http"
	"github.com/srivastavahk/TaskFlow/internal/transport/http/handler"
	"github.com/srivastavahk/TaskFlow/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// outbox records invitation emails so tests can follow the link.
type outbox struct {
	mu    sync.Mutex
	links []string
}

var tokenParam = regexp.MustCompile(`token=([0-9a-f]{64})`)

func (o *outbox) Send(_ context.Context, msg email.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if m := tokenParam.FindStringSubmatch(msg.Text); m != nil {
		o.links = append(o.links, m[1])
	}
	return nil
}

func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.links, "no invitation email sent")
	return o.links[len(o.links)-1]
}

type fakeLimiter struct {
	mu    sync.Mutex
	count map[string]int
}

func (l *fakeLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (ratelimit.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count[key]++
	n := l.count[key]
	return ratelimit.Result{
		Allowed:   n <= limit,
		Limit:     limit,
		Remaining: max(limit-n, 0),
		ResetAt:   time.Now().Add(window),
	}, nil
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	clock  *testClock
	outbox *outbox
	store  *memory.Store
}

func newTestServer(t *testing.T, opts httptransport.Options) *testServer {
	t.Helper()
	return newTestServerWithLogger(t, opts, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestServerWithLogger(t *testing.T, opts httptransport.Options, logger *slog.Logger) *testServer {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewStore(memory.WithClock(clock.now))
	box := &outbox{}

	tokens, err := token.New([]byte("router-test-secret-0123456789abcdef"), token.WithClock(clock.now))
	require.NoError(t, err)

	guard := usecase.NewGuard(store.Teams(), store.Memberships())
	auth := usecase.NewAuthUsecase(store.Users(), tokens, usecase.AuthConfig{
		AccessTTL:  30 * 24 * time.Hour,
		RefreshTTL: 60 * 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	})
	teams := usecase.NewTeamUsecase(guard, store.Teams(), store.Memberships())
	invitations := usecase.NewInvitationUsecase(
		guard, store.Users(), store.Teams(), store.Memberships(), store.Invitations(),
		box, "http://localhost:3000", logger,
		usecase.WithInvitationClock(clock.now),
	)
	checker := health.NewChecker(logger, prometheus.NewRegistry(), health.Dependency{Name: "store", Pinger: store})

	engine := httptransport.NewRouter(logger, tokens, store.Users(), httptransport.Handlers{
		Auth:    handler.NewAuthHandler(auth, logger),
		Team:    handler.NewTeamHandler(teams, invitations, logger),
		Health:  handler.NewHealthHandler(checker),
		OpenAPI: handler.NewOpenAPIHandler(api.OpenAPISpec, logger),
	}, opts)

	return &testServer{t: t, engine: engine, clock: clock, outbox: box, store: store}
}

func (s *testServer) do(method, path, bearer string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = strings.NewReader(string(raw))
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

// signup registers and logs in, returning the access token.
func (s *testServer) signup(name, email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/register", "", map[string]string{"name": name, "email": email, "password": "Password123!"})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return s.login(email)
}

func (s *testServer) login(email string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "Password123!"})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(s.t, body.AccessToken)
	return body.AccessToken
}

func (s *testServer) createTeam(bearer, name string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/teams", bearer, map[string]string{"name": name})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		ID string `json:"id"`
	}
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.ID
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// ---- scenarios ----

func TestRegisterLoginMe(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})
	access := s.signup("Alice", "alice@example.com")

	w := s.do(http.MethodGet, "/auth/me", access, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alice@example.com", decode[map[string]string](t, w)["email"])
}

func TestInviteAcceptIsSingleUse(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})
	admin := s.signup("Admin", "admin@example.com")
	teamID := s.createTeam(admin, "Eng")

	w := s.do(http.MethodPost, "/teams/"+teamID+"/invite", admin, map[string]string{"email": "bob@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	raw := s.outbox.lastToken(t)

	bob := s.signup("Bob", "bob@example.com")
	w = s.do(http.MethodPost, "/teams/invite/accept", bob, map[string]string{"token": raw})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, teamID, decode[map[string]any](t, w)["id"])

	w = s.do(http.MethodGet, "/teams/"+teamID+"/members", bob, nil)
	require.Equal(t, http.StatusOK, w.Code)
	members := decode[[]struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}](t, w)
	require.Len(t, members, 2)
	for _, m := range members {
		if m.Email == "bob@example.com" {
			assert.Equal(t, "member", m.Role)
		}
	}

	w = s.do(http.MethodPost, "/teams/invite/accept", bob, map[string]string{"token": raw})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExpiredInvitationIsConsumed(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})
	admin := s.signup("Admin", "admin@example.com")
	bob := s.signup("Bob", "bob@example.com")
	teamID := s.createTeam(admin, "Eng")

	w := s.do(http.MethodPost, "/teams/"+teamID+"/invite", admin, map[string]string{"email": "bob@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	raw := s.outbox.lastToken(t)

	s.clock.advance(domain.InvitationTTL + time.Second)

	w = s.do(http.MethodPost, "/teams/invite/accept", bob, map[string]string{"token": raw})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/teams/invite/accept", bob, map[string]string{"token": raw})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestNonMemberIsForbidden(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})
	admin := s.signup("Admin", "admin@example.com")
	eve := s.signup("Eve", "eve@example.com")
	teamID := s.createTeam(admin, "Eng")

	w := s.do(http.MethodGet, "/teams/"+teamID, eve, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/teams/"+teamID+"/invite", eve, map[string]string{"email": "x@example.com"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/teams/does-not-exist", eve, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// ---- route policy ----

func TestProtectedRoutes_RejectAnonymousUniformly(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})

	for _, bearer := range []string{"", "not-a-token", "a.b.c"} {
		w := s.do(http.MethodGet, "/teams", bearer, nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)

		body := decode[map[string]any](t, w)
		assert.Equal(t, "Full authentication is required", body["message"])
		assert.Equal(t, "/teams", body["path"])
	}
}

func TestSuspendedAccountTokenIsIgnored(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})
	access := s.signup("Alice", "alice@example.com")

	u, err := s.store.Users().FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, s.store.Users().SetStatus(context.Background(), u.ID, domain.UserStatusSuspended))

	w := s.do(http.MethodGet, "/auth/me", access, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicRoutes(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/docs/openapi.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "3.1.0", decode[map[string]any](t, w)["openapi"])

	// a bad token on a public route is ignored, not rejected
	w = s.do(http.MethodPost, "/auth/login", "garbage", map[string]string{"email": "nobody@example.com", "password": "Password123!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid email or password", decode[map[string]any](t, w)["message"])
}

func TestUnknownRoute_Returns404(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})

	w := s.do(http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "/nope", decode[map[string]any](t, w)["path"])
}

func TestRecovery_PanicLogCarriesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(ctxlog.NewContextHandler(slog.NewJSONHandler(&buf, nil)))
	s := newTestServerWithLogger(t, httptransport.Options{}, logger)
	bearer := s.signup("Ana", "ana@x.io")

	s.engine.GET("/boom", func(*gin.Context) { panic("boom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "trace-panic")
	req.Header.Set("Authorization", "Bearer "+bearer)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "trace-panic", w.Header().Get("X-Request-ID"))

	var panicLine string
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, `"msg":"panic recovered"`) {
			panicLine = line
		}
	}
	require.NotEmpty(t, panicLine, "no panic log record")
	assert.Contains(t, panicLine, `"request_id":"trace-panic"`)
}

func TestRequestID(t *testing.T) {
	s := newTestServer(t, httptransport.Options{})

	w := s.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	send := func(id string) string {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", id)
		w := httptest.NewRecorder()
		s.engine.ServeHTTP(w, req)
		return w.Header().Get("X-Request-ID")
	}
	assert.Equal(t, "trace-123", send("trace-123"))
	assert.NotEqual(t, "has spaces in it", send("has spaces in it"))
}

func TestSecurityHeaders(t *testing.T) {
	local := newTestServer(t, httptransport.Options{})
	w := local.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	prod := newTestServer(t, httptransport.Options{HSTS: true})
	w = prod.do(http.MethodGet, "/health", "", nil)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestLoginIsRateLimited(t *testing.T) {
	s := newTestServer(t, httptransport.Options{
		Limiter:         &fakeLimiter{count: map[string]int{}},
		LoginRateLimit:  2,
		LoginRateWindow: time.Minute,
	})

	creds := map[string]string{"email": "alice@example.com", "password": "Password123!"}
	for range 2 {
		w := s.do(http.MethodPost, "/auth/login", "", creds)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := s.do(http.MethodPost, "/auth/login", "", creds)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestCORS(t *testing.T) {
	s := newTestServer(t, httptransport.Options{CORSAllowedOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
}
