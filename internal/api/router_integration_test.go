//go:build integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/studyhub/studyhub/internal/api"
	"github.com/studyhub/studyhub/internal/audit"
	"github.com/studyhub/studyhub/internal/auth"
	"github.com/studyhub/studyhub/internal/config"
	"github.com/studyhub/studyhub/internal/database"
	"github.com/studyhub/studyhub/internal/llm"
	mw "github.com/studyhub/studyhub/internal/middleware"
	"github.com/studyhub/studyhub/internal/quota"
	"github.com/studyhub/studyhub/internal/retry"
	"github.com/studyhub/studyhub/internal/study"
	"github.com/studyhub/studyhub/internal/users"
)

const (
	testAccessSecret  = "test-access-secret-32-chars-long!!"
	testEncryptionKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	flashcardsReply   = "```json\n[{\"front\":\"What do plants make?\",\"back\":\"Glucose.\"},{\"front\":\"Which pigment absorbs light?\",\"back\":\"Chlorophyll.\"}]\n```"
)

type testEnv struct {
	pool     *pgxpool.Pool
	server   *httptest.Server
	jwt      *auth.JWTManager
	model    *fakeModelServer
	auditLog *audit.Repository
}

// fakeModelServer speaks just enough of the chat completions API.
type fakeModelServer struct {
	calls   atomic.Int64
	status  atomic.Int64
	content atomic.Value
}

func (f *fakeModelServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	w.Header().Set("Content-Type", "application/json")
	if status := int(f.status.Load()); status != 0 {
		w.WriteHeader(status)
		_, _ = fmt.Fprintf(w, `{"error":{"message":"upstream status %d","type":"server_error"}}`, status)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": f.content.Load().(string)},
			"finish_reason": "stop",
		}},
	})
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "studyhub_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { pgContainer.Terminate(ctx) })

	host, _ := pgContainer.Host(ctx)
	port, _ := pgContainer.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/studyhub_test?sslmode=disable", host, port.Port())

	migrationsPath, err := filepath.Abs(filepath.Join("..", "..", "migrations"))
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(dsn, migrationsPath))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	model := &fakeModelServer{}
	model.content.Store(flashcardsReply)
	modelServer := httptest.NewServer(model)
	t.Cleanup(modelServer.Close)

	aiCfg := config.AIConfig{APIKey: "sk-process-default", BaseURL: modelServer.URL + "/v1", RepairConcurrency: 1}
	quotaCfg := config.QuotaConfig{FreeGenerationLimit: 2, FreeChatLimit: 5, PremiumGenerationLimit: 10, PremiumChatLimit: 50}

	encryptor, err := auth.NewEncryptor(testEncryptionKey)
	require.NoError(t, err)
	userSvc := users.NewService(users.NewRepository(pool), encryptor)
	quotaSvc := quota.NewService(quota.NewPostgresStore(pool), userSvc, quotaCfg)

	genCfg := study.GeneratorConfigFromAI(aiCfg)
	genCfg.Retry = retry.Options{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
	generator := study.NewGenerator(llm.NewProvider(aiCfg), genCfg)
	studyHandler := study.NewHandler(study.NewService(generator, quotaSvc, userSvc, nil), 10*time.Second)

	auditRepo := audit.NewRepository(pool)
	userHandler := users.NewHandler(userSvc)
	jwtManager := auth.NewJWTManager(testAccessSecret, "studyhub")
	limiter := mw.NewRateLimiter(redisClient, "study", 100, 60, auth.RateLimitKey)

	router := api.NewRouter(pool, nil, api.RouterConfig{StudyRateLimiter: limiter.Middleware}, api.HandlerSet{
		CreateNotes:       studyHandler.CreateNotes,
		CreateFlashcards:  studyHandler.CreateFlashcards,
		CreateTree:        studyHandler.CreateTree,
		Ask:               studyHandler.Ask,
		GetQuota:          quota.NewHandler(quotaSvc).Get,
		ListActivity:      audit.NewHandler(auditRepo).List,
		GetCredentials:    userHandler.GetCredentials,
		UpdateCredentials: userHandler.UpdateCredentials,
		DeleteCredentials: userHandler.DeleteCredentials,
		AuthMiddleware:    auth.Middleware(jwtManager),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{pool: pool, server: server, jwt: jwtManager, model: model, auditLog: auditRepo}
}

func (env *testEnv) createUser(t *testing.T, premium bool) (uuid.UUID, string) {
	t.Helper()
	id := uuid.New()
	email := id.String() + "@test.com"
	_, err := env.pool.Exec(context.Background(),
		`INSERT INTO users (id, email, is_premium) VALUES ($1, $2, $3)`, id, email, premium)
	require.NoError(t, err)

	token, err := env.jwt.GenerateAccessToken(id.String(), email, time.Hour)
	require.NoError(t, err)
	return id, token
}

func (env *testEnv) do(t *testing.T, method, path string, body any, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, env.server.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func parse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var result map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	return result
}

func TestStudyAPI_Integration(t *testing.T) {
	env := setupTestEnv(t)

	t.Run("requires a token", func(t *testing.T) {
		resp := env.do(t, "POST", "/api/v1/study/flashcards", map[string]string{"content": "x"}, "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("token for unknown user", func(t *testing.T) {
		token, err := env.jwt.GenerateAccessToken(uuid.NewString(), "ghost@test.com", time.Hour)
		require.NoError(t, err)
		resp := env.do(t, "POST", "/api/v1/study/flashcards", map[string]string{"content": "x"}, token)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		resp.Body.Close()
	})

	t.Run("daily generation limit", func(t *testing.T) {
		env.model.status.Store(0)
		_, token := env.createUser(t, false)
		body := map[string]string{"content": "Photosynthesis is how plants make food"}

		for i := 0; i < 2; i++ {
			resp := env.do(t, "POST", "/api/v1/study/flashcards", body, token)
			require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
			result := parse(t, resp)
			assert.Len(t, result["data"], 2)
		}

		resp := env.do(t, "POST", "/api/v1/study/flashcards", body, token)
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		result := parse(t, resp)
		assert.Equal(t, "quota_exceeded", result["code"])

		resp = env.do(t, "GET", "/api/v1/quota", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := parse(t, resp)["data"].(map[string]any)
		generation := data["generation"].(map[string]any)
		assert.EqualValues(t, 2, generation["used"])
		assert.EqualValues(t, 2, generation["limit"])
	})

	t.Run("provider outage does not consume quota", func(t *testing.T) {
		userID, token := env.createUser(t, false)
		env.model.status.Store(http.StatusServiceUnavailable)
		defer env.model.status.Store(0)

		resp := env.do(t, "POST", "/api/v1/study/tree", map[string]string{"content": "Cells"}, token)
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "30", resp.Header.Get("Retry-After"))
		assert.Equal(t, "rate_limited", parse(t, resp)["code"])

		var count int
		err := env.pool.QueryRow(context.Background(),
			`SELECT generation_count FROM user_quotas WHERE user_id = $1`, userID).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("personal credentials round trip", func(t *testing.T) {
		_, token := env.createUser(t, true)

		resp := env.do(t, "PUT", "/api/v1/me/ai-credentials",
			map[string]string{"api_key": "sk-personal-123456", "model": "gpt-4o"}, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()

		resp = env.do(t, "GET", "/api/v1/me/ai-credentials", nil, token)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		data := parse(t, resp)["data"].(map[string]any)
		assert.Equal(t, true, data["has_own_key"])
		assert.Equal(t, "gpt-4o", data["preferred_model"])
	})

	t.Run("activity is isolated per user", func(t *testing.T) {
		aliceID, aliceToken := env.createUser(t, false)
		_, bobToken := env.createUser(t, false)

		require.NoError(t, env.auditLog.Insert(context.Background(), &audit.Log{
			UserID:    aliceID,
			EventType: audit.EventGenerationSucceeded,
			Severity:  "info",
			Artifact:  "notes",
		}))

		resp := env.do(t, "GET", "/api/v1/activity", nil, aliceToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 1, parse(t, resp)["total_count"])

		resp = env.do(t, "GET", "/api/v1/activity", nil, bobToken)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 0, parse(t, resp)["total_count"])
	})

	t.Run("liveness", func(t *testing.T) {
		resp := env.do(t, "GET", "/health/live", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp.Body.Close()
	})
}
