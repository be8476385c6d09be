package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gearconnect/statuspage/internal/config"
	"github.com/gearconnect/statuspage/internal/testutil"
)

const (
	adminUser     = "admin"
	adminPassword = "correct horse battery staple"
	// unreachable makes every mobile call fail fast without leaving the host.
	unreachable = "http://127.0.0.1:1"
)

type webhookRecorder struct {
	mu    sync.Mutex
	posts int
}

func (w *webhookRecorder) ServeHTTP(rw http.ResponseWriter, _ *http.Request) {
	w.mu.Lock()
	w.posts++
	w.mu.Unlock()
	rw.WriteHeader(http.StatusOK)
}

func (w *webhookRecorder) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.posts
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Log.Level = "error"
	cfg.Subscriptions.FilePath = filepath.Join(t.TempDir(), "subscriptions.json")
	cfg.Tracker.AuthToken = ""
	cfg.Mobile.StatusURL = unreachable + "/status"
	cfg.Mobile.APIURL = unreachable + "/api"
	cfg.Mobile.StoragePingURL = unreachable + "/ping"
	cfg.Mobile.Timeout = time.Second
	cfg.Mobile.ProbeTimeout = time.Second
	cfg.Admin.Username = adminUser
	cfg.Admin.PasswordHash = string(hash)
	cfg.JWT.SecretKey = strings.Repeat("k", 32)
	return &cfg
}

func startApp(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	application, err := New(cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(application.Router())
	t.Cleanup(func() {
		srv.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, application.Shutdown(ctx))
	})
	return srv
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestApp_SystemEndpoints(t *testing.T) {
	srv := startApp(t, testConfig(t))

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := get(t, srv.URL+path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "OK", testutil.ReadBody(t, resp), path)
	}

	resp := get(t, srv.URL+"/api/openapi.yaml")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, testutil.ReadBody(t, resp), "/api/status")

	resp = get(t, srv.URL+"/docs")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	client := testutil.NewClient(t, srv.URL)
	resp = client.GET("/version")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestApp_PublicStatus(t *testing.T) {
	srv := startApp(t, testConfig(t))

	resp := get(t, srv.URL+"/api/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("Cache-Control"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(body, &snap))
	assert.Contains(t, snap, "incidents")
	assert.Contains(t, snap, "lastUpdated")
}

func TestApp_SubscriptionLifecycle(t *testing.T) {
	srv := startApp(t, testConfig(t))
	client := testutil.NewClient(t, srv.URL)

	resp := client.POST("/api/v1/subscriptions", map[string]string{"email": "Dana@Example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = client.POST("/api/v1/subscriptions", map[string]string{"email": "dana@example.com"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = client.GET("/api/v1/subscriptions")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	client.Login(adminUser, adminPassword)

	resp = client.GET("/api/v1/subscriptions")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Total         int `json:"total"`
		Subscriptions []struct {
			Email string `json:"email"`
		} `json:"subscriptions"`
	}
	testutil.DecodeJSON(t, resp, &list)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "da***@example.com", list.Subscriptions[0].Email)

	resp = client.DELETE("/api/v1/subscriptions?email=dana@example.com")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = client.DELETE("/api/v1/subscriptions?email=dana@example.com")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestApp_CORSPreflightOnAPI(t *testing.T) {
	cfg := testConfig(t)
	cfg.CORS.AllowedOrigins = []string{"https://status.example.com"}
	srv := startApp(t, cfg)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/subscriptions", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://status.example.com")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://status.example.com", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestApp_NotifierIgnoresMockIncidents(t *testing.T) {
	hook := &webhookRecorder{}
	mattermost := httptest.NewServer(hook)
	t.Cleanup(mattermost.Close)

	cfg := testConfig(t)
	cfg.Notifications.Enabled = true
	cfg.Notifications.PollInterval = 20 * time.Millisecond
	cfg.Notifications.Mattermost.WebhookURL = mattermost.URL
	startApp(t, cfg)

	// Without a tracker token the incident feed is mock data, which must
	// never reach operators.
	time.Sleep(200 * time.Millisecond)
	assert.Zero(t, hook.count())
}

func TestNew_RejectsUnwritableStore(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfg.Subscriptions.FilePath = filepath.Join(blocker, "nested", "subscriptions.json")

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open subscription file")
}
