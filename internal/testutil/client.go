package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// Client calls a running API and checks every exchange against the OpenAPI
// document.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	validator  *OpenAPIValidator
	t          *testing.T
}

// NewClient returns a validating client for baseURL.
func NewClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: http.DefaultClient,
		validator:  NewOpenAPIValidator(t),
		t:          t,
	}
}

// Login obtains an admin token and uses it for later requests.
func (c *Client) Login(username, password string) {
	c.t.Helper()

	resp := c.POST("/api/v1/auth/login", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(c.t, http.StatusOK, resp.StatusCode, "login rejected")

	var out struct {
		AccessToken string `json:"access_token"`
	}
	DecodeJSON(c.t, resp, &out)
	require.NotEmpty(c.t, out.AccessToken)
	c.Token = out.AccessToken
}

// GET sends a GET request.
func (c *Client) GET(path string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodGet, path, nil)
}

// POST sends body as JSON.
func (c *Client) POST(path string, body any) *http.Response {
	c.t.Helper()
	return c.do(http.MethodPost, path, body)
}

// DELETE sends a DELETE request.
func (c *Client) DELETE(path string) *http.Response {
	c.t.Helper()
	return c.do(http.MethodDelete, path, nil)
}

func (c *Client) do(method, path string, body any) *http.Response {
	c.t.Helper()

	var reader io.Reader
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { _ = resp.Body.Close() })

	if payload != nil {
		req.Body = io.NopCloser(bytes.NewReader(payload))
	}
	c.validator.ValidateRequestResponse(c.t, req, resp)
	return resp
}

// DecodeJSON decodes the response body into v.
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

// ReadBody returns the response body as a string.
func ReadBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
