package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/quotation-engine/internal/notifications"
	"github.com/angelmondragon/quotation-engine/internal/quotes"
	"github.com/angelmondragon/quotation-engine/pkg/auth"
	"github.com/angelmondragon/quotation-engine/pkg/config"
	"github.com/angelmondragon/quotation-engine/pkg/enums"
	"github.com/angelmondragon/quotation-engine/pkg/logger"
	"github.com/angelmondragon/quotation-engine/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type memoryRedis struct {
	mu       sync.Mutex
	values   map[string]string
	counters map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counters: map[string]int64{}}
}

func (m *memoryRedis) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memoryRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memoryRedis) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}

func (m *memoryRedis) Ping(context.Context) error {
	return nil
}

func (m *memoryRedis) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[scope]++
	count := m.counters[scope]
	return count <= limit, count, nil
}

type countingQuotes struct {
	mu      sync.Mutex
	submits int
}

func (q *countingQuotes) Submit(ctx context.Context, input quotes.SubmitInput) (types.Quote, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.submits++
	return types.Quote{RequestID: input.RequestID.String(), Status: enums.QuoteStatusSubmitted}, nil
}

func (q *countingQuotes) Accept(ctx context.Context, input quotes.DecisionInput) (types.Quote, error) {
	return types.Quote{RequestID: input.RequestID.String(), Status: enums.QuoteStatusAccepted}, nil
}

func (q *countingQuotes) Reject(ctx context.Context, input quotes.DecisionInput) (types.Quote, error) {
	return types.Quote{RequestID: input.RequestID.String(), Status: enums.QuoteStatusRejected}, nil
}

func (q *countingQuotes) Get(ctx context.Context, requestID uuid.UUID) (types.Quote, error) {
	return types.Quote{RequestID: requestID.String(), Status: enums.QuoteStatusSubmitted}, nil
}

type emptyNotifications struct{}

func (emptyNotifications) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (emptyNotifications) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (emptyNotifications) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", CORSOrigins: []string{"http://localhost:3000"}},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "quotation-test", ExpirationMinutes: 60},
		RateLimit: config.RateLimitConfig{
			QuoteWriteWindow: time.Minute,
			QuoteWriteLimit:  3,
		},
	}
}

func newTestRouter(cfg *config.Config, svc quotes.Service, store redisStore) http.Handler {
	return NewRouter(Params{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		DB:            stubPinger{},
		Redis:         store,
		Quotes:        svc,
		Notifications: emptyNotifications{},
		Metrics:       http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, "# metrics") }),
	})
}

func buildToken(t *testing.T, cfg *config.Config, userID uuid.UUID, role enums.UserRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(cfg.JWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role})
	require.NoError(t, err)
	return token
}

const submitBody = `{"riskProfile":"low","riskMultiplier":4,"serviceHeadCount":1,"lineItems":[{"description":"Survey","quantity":1,"unitPrice":100,"uom":"unit","category":"other","sortOrder":0}]}`

func TestHealthAndMetricsArePublic(t *testing.T) {
	router := newTestRouter(testConfig(), &countingQuotes{}, newMemoryRedis())

	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/api/public/ping"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestHealthReadyWithoutRedis(t *testing.T) {
	router := newTestRouter(testConfig(), &countingQuotes{}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestAPIRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(testConfig(), &countingQuotes{}, newMemoryRedis())
	for _, path := range []string{"/api/ping", "/api/quotes/" + uuid.NewString(), "/api/notifications"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)
	}
}

func TestQuoteRoutesResolve(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &countingQuotes{}, newMemoryRedis())
	requestID := uuid.NewString()
	token := buildToken(t, cfg, uuid.New(), enums.UserRoleClient)

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/quotes/" + requestID, "", http.StatusOK},
		{http.MethodPost, "/api/quotes/" + requestID + "/accept", "", http.StatusOK},
		{http.MethodPost, "/api/quotes/" + requestID + "/reject", `{"reason":"no"}`, http.StatusOK},
		{http.MethodGet, "/api/notifications", "", http.StatusOK},
		{http.MethodPost, "/api/notifications/read-all", "", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		assert.Equal(t, tc.want, resp.Code, "%s %s: %s", tc.method, tc.path, resp.Body.String())
	}
}

func TestSubmitRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	svc := &countingQuotes{}
	router := newTestRouter(cfg, svc, newMemoryRedis())
	token := buildToken(t, cfg, uuid.New(), enums.UserRoleClient)

	req := httptest.NewRequest(http.MethodPost, "/api/quotes/"+uuid.NewString(), strings.NewReader(submitBody))
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Zero(t, svc.submits)
}

func TestSubmitReplaysWithIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	svc := &countingQuotes{}
	router := newTestRouter(cfg, svc, newMemoryRedis())
	requestID := uuid.NewString()
	token := buildToken(t, cfg, uuid.New(), enums.UserRoleAdmin)

	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/quotes/"+requestID, strings.NewReader(submitBody))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "submit-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		return resp
	}

	first := send()
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := send()
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, svc.submits)
}

func TestQuoteWritesAreThrottled(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, &countingQuotes{}, newMemoryRedis())
	token := buildToken(t, cfg, uuid.New(), enums.UserRoleClient)

	var last int
	for i := 0; i < cfg.RateLimit.QuoteWriteLimit+1; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/quotes/"+uuid.NewString()+"/accept", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		last = resp.Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)

	read := httptest.NewRequest(http.MethodGet, "/api/quotes/"+uuid.NewString(), nil)
	read.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, read)
	assert.Equal(t, http.StatusOK, resp.Code)
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter(testConfig(), &countingQuotes{}, newMemoryRedis())
	req := httptest.NewRequest(http.MethodOptions, "/api/quotes/"+uuid.NewString(), nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	assert.Equal(t, "http://localhost:3000", resp.Header().Get("Access-Control-Allow-Origin"))
}
