package subscriptions_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gearconnect/statuspage/internal/subscriptions"
	"github.com/gearconnect/statuspage/internal/testutil"
)

func newRouter(t *testing.T) chi.Router {
	t.Helper()
	h := subscriptions.NewHandler(newService(t, nil))
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		h.RegisterPublicRoutes(r)
		h.RegisterAdminRoutes(r)
	})
	return r
}

func do(t *testing.T, r http.Handler, method, target, body string) (*http.Request, *http.Response) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return req, rec.Result()
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHandler_SubscribeFlow(t *testing.T) {
	r := newRouter(t)
	validator := testutil.NewOpenAPIValidator(t)

	req, resp := do(t, r, http.MethodPost, "/api/v1/subscriptions", `{"email":"Dana@Example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	validator.ValidateResponse(t, req, resp)
	body := decode(t, resp)
	assert.Equal(t, "Successfully subscribed to notifications", body["message"])
	sub := body["subscription"].(map[string]any)
	assert.Equal(t, "dana@example.com", sub["email"])
	assert.NotEmpty(t, sub["id"])
	assert.NotEmpty(t, sub["createdAt"])

	req, resp = do(t, r, http.MethodPost, "/api/v1/subscriptions", `{"email":"dana@example.com"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validator.ValidateResponse(t, req, resp)
	assert.Equal(t, "Email already subscribed", decode(t, resp)["message"])

	req, resp = do(t, r, http.MethodGet, "/api/v1/subscriptions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validator.ValidateResponse(t, req, resp)
	list := decode(t, resp)
	assert.EqualValues(t, 1, list["total"])
	first := list["subscriptions"].([]any)[0].(map[string]any)
	assert.Equal(t, "da***@example.com", first["email"])
	assert.Equal(t, true, first["verified"])
	assert.Equal(t, []any{"incident", "maintenance", "resolution"}, first["types"])

	req, resp = do(t, r, http.MethodDelete, "/api/v1/subscriptions?email=dana@example.com", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	validator.ValidateResponse(t, req, resp)
	assert.Equal(t, "Successfully unsubscribed", decode(t, resp)["message"])

	req, resp = do(t, r, http.MethodDelete, "/api/v1/subscriptions?email=dana@example.com", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	validator.ValidateResponse(t, req, resp)
	errBody := decode(t, resp)["error"].(map[string]any)
	assert.Equal(t, "Email not found in subscriptions", errBody["message"])
}

func TestHandler_SubscribeErrors(t *testing.T) {
	r := newRouter(t)

	tests := []struct {
		name    string
		method  string
		target  string
		body    string
		message string
	}{
		{name: "invalid email", method: http.MethodPost, target: "/api/v1/subscriptions", body: `{"email":"nope"}`, message: "Invalid email address"},
		{name: "missing email", method: http.MethodPost, target: "/api/v1/subscriptions", body: `{}`, message: "Invalid email address"},
		{name: "malformed body", method: http.MethodPost, target: "/api/v1/subscriptions", body: `{`, message: "invalid json"},
		{name: "unsubscribe without email", method: http.MethodDelete, target: "/api/v1/subscriptions", message: "Invalid email address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := do(t, r, tt.method, tt.target, tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			errBody := decode(t, resp)["error"].(map[string]any)
			assert.Equal(t, tt.message, errBody["message"])
		})
	}
}

func TestHandler_ListEmpty(t *testing.T) {
	r := newRouter(t)

	_, resp := do(t, r, http.MethodGet, "/api/v1/subscriptions", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.EqualValues(t, 0, body["total"])
	assert.Equal(t, []any{}, body["subscriptions"])
}
