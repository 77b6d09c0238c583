//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"expert-crm/internal/config"
	"expert-crm/internal/database"
	"expert-crm/internal/handler"
	"expert-crm/internal/middleware"
	"expert-crm/internal/repository"
	"expert-crm/internal/router"
	"expert-crm/internal/service"
)

const (
	testCronSecret    = "test-cron-secret"
	testWebhookSecret = "test-webhook-secret"
)

type testEnv struct {
	db *database.DB

	experts       *repository.ExpertRepository
	audits        *repository.AuditRepository
	notifications *repository.NotificationRepository
	settings      *repository.SettingsRepository
	idempotency   *repository.IdempotencyRepository

	authService    *service.AuthService
	reclaimService *service.ReclaimService
	expertService  *service.ExpertService

	server      *httptest.Server
	adminToken  string
	adminUserID string
}

// newTestEnv connects to the database named by TEST_DATABASE_URL, resets all
// tables, and stands up the full HTTP stack. Tests sharing the database must
// not run in parallel.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	databaseURL := os.Getenv("TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.New(ctx, databaseURL, 10, 1)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	require.NoError(t, db.EnsureSchema(ctx))
	_, err = db.Pool.Exec(ctx,
		`TRUNCATE users, refresh_tokens, experts, expert_contacts,
		 audit_entries, notifications, system_config, processed_requests CASCADE`)
	require.NoError(t, err)

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewTokenRepository(pool)
	expertRepo := repository.NewExpertRepository(pool)
	contactRepo := repository.NewContactRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)
	idempotencyRepo := repository.NewIdempotencyRepository(pool)
	lockRepo := repository.NewLockRepository()

	authService, err := service.NewAuthService("test-secret", 15*time.Minute, 24*time.Hour, userRepo, tokenRepo)
	require.NoError(t, err)
	require.NoError(t, authService.EnsureSeedAdmin(ctx, "admin", "admin123"))
	authMiddleware := middleware.NewAuthMiddleware(authService)

	reclaimService := service.NewReclaimService(pool, lockRepo, expertRepo, auditRepo,
		notificationRepo, settingsRepo, userRepo, 500)
	expertService := service.NewExpertService(pool, expertRepo, contactRepo, idempotencyRepo)
	decayService := service.NewDecayService(expertRepo, auditRepo, settingsRepo)
	settingsService := service.NewSettingsService(settingsRepo)
	notificationService := service.NewNotificationService(notificationRepo)

	cfg := &config.Config{
		ServerPort:       "8080",
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      []string{"*"},
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
	}

	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(authService),
		Expert:       handler.NewExpertHandler(expertService),
		Reclaim:      handler.NewReclaimHandler(reclaimService),
		Cron:         handler.NewCronHandler(reclaimService, testCronSecret, false),
		Webhook:      handler.NewWebhookHandler(expertService, testWebhookSecret),
		Settings:     handler.NewSettingsHandler(settingsService),
		Decay:        handler.NewDecayHandler(decayService),
		Audit:        handler.NewAuditHandler(auditRepo),
		Notification: handler.NewNotificationHandler(notificationService),
	}, db.Health)

	server := httptest.NewServer(appRouter)
	t.Cleanup(server.Close)

	env := &testEnv{
		db:             db,
		experts:        expertRepo,
		audits:         auditRepo,
		notifications:  notificationRepo,
		settings:       settingsRepo,
		idempotency:    idempotencyRepo,
		authService:    authService,
		reclaimService: reclaimService,
		expertService:  expertService,
		server:         server,
	}

	env.adminToken, env.adminUserID = env.login(t, "admin", "admin123")
	return env
}

func (e *testEnv) login(t *testing.T, username string, password string) (string, string) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(e.server.URL+"/api/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed struct {
		Data struct {
			AccessToken string `json:"access_token"`
			User        struct {
				ID string `json:"id"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&parsed))
	require.NotEmpty(t, parsed.Data.AccessToken)

	return parsed.Data.AccessToken, parsed.Data.User.ID
}

// createUser registers an account through the auth service and returns its id.
func (e *testEnv) createUser(t *testing.T, username string, role string) string {
	t.Helper()

	user, err := e.authService.Register(context.Background(), username, "Password123!", role)
	require.NoError(t, err)
	return user.ID
}

type expertFixture struct {
	name              string
	ownerID           *string
	visibility        string
	privateExpiresAt  *time.Time
	lastContactUpdate *time.Time
	createdAt         time.Time
	priority          bool
}

// insertExpert writes a fully specified row, bypassing the ingestion defaults
// so tests can place experts anywhere on the lease timeline.
func (e *testEnv) insertExpert(t *testing.T, f expertFixture) string {
	t.Helper()

	if f.visibility == "" {
		f.visibility = "PRIVATE"
	}
	if f.createdAt.IsZero() {
		f.createdAt = time.Now().UTC()
	}

	id := uuid.NewString()
	_, err := e.db.Pool.Exec(context.Background(),
		`INSERT INTO experts (id, name, owner_id, visibility_status, private_expires_at,
		                      reacquisition_priority, last_contact_update, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		id, f.name, f.ownerID, f.visibility, f.privateExpiresAt, f.priority, f.lastContactUpdate, f.createdAt)
	require.NoError(t, err)
	return id
}

func (e *testEnv) insertContact(t *testing.T, expertID string, verified bool) string {
	t.Helper()

	id := uuid.NewString()
	_, err := e.db.Pool.Exec(context.Background(),
		`INSERT INTO expert_contacts (id, expert_id, channel, value, is_verified)
		 VALUES ($1, $2, 'email', 'contact@example.com', $3)`,
		id, expertID, verified)
	require.NoError(t, err)
	return id
}

func timePtr(v time.Time) *time.Time { return &v }

func doJSONRequest(t *testing.T, method string, url string, body []byte, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, bytes.NewReader(body))
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}
