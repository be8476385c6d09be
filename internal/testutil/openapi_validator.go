// Package testutil provides helpers shared by handler and integration tests.
package testutil

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/stretchr/testify/require"

	"github.com/gearconnect/statuspage/api/openapi"
)

// OpenAPIValidator checks requests and responses against the embedded API
// document.
type OpenAPIValidator struct {
	router routers.Router
}

// NewOpenAPIValidator loads and validates the embedded API document.
func NewOpenAPIValidator(t *testing.T) *OpenAPIValidator {
	t.Helper()

	doc, err := openapi3.NewLoader().LoadFromData(openapi.Spec)
	require.NoError(t, err, "load OpenAPI document")
	require.NoError(t, doc.Validate(context.Background()), "validate OpenAPI document")

	router, err := legacy.NewRouter(doc)
	require.NoError(t, err, "create OpenAPI router")

	return &OpenAPIValidator{router: router}
}

func (v *OpenAPIValidator) route(t *testing.T, req *http.Request) (*routers.Route, map[string]string, bool) {
	t.Helper()

	// Match on method and path only; the document has no servers block.
	probe, err := http.NewRequest(req.Method, req.URL.Path, nil)
	require.NoError(t, err)

	route, params, err := v.router.FindRoute(probe)
	if err != nil {
		t.Errorf("OpenAPI: %s %s is not documented: %v", req.Method, req.URL.Path, err)
		return nil, nil, false
	}
	return route, params, true
}

// ValidateRequest fails the test when req does not match its operation.
// The request body is restored after reading.
func (v *OpenAPIValidator) ValidateRequest(t *testing.T, req *http.Request) {
	t.Helper()

	route, params, ok := v.route(t, req)
	if !ok {
		return
	}

	if req.Body != nil {
		body, err := io.ReadAll(req.Body)
		require.NoError(t, err)
		req.Body = io.NopCloser(bytes.NewReader(body))
		defer func() { req.Body = io.NopCloser(bytes.NewReader(body)) }()
	}

	err := openapi3filter.ValidateRequest(context.Background(), &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	})
	if err != nil {
		t.Errorf("OpenAPI: request %s %s: %v", req.Method, req.URL.Path, err)
	}
}

// ValidateResponse fails the test when resp does not match the documented
// response for req. The response body is restored after reading.
func (v *OpenAPIValidator) ValidateResponse(t *testing.T, req *http.Request, resp *http.Response) {
	t.Helper()

	route, params, ok := v.route(t, req)
	if !ok {
		return
	}

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	err = openapi3filter.ValidateResponse(context.Background(), &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request:    req,
			PathParams: params,
			Route:      route,
		},
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	})
	if err != nil {
		t.Errorf("OpenAPI: response %s %s (%d): %s\nbody: %s",
			req.Method, req.URL.Path, resp.StatusCode, shorten(err.Error(), 500), shorten(string(body), 200))
	}
}

// ValidateRequestResponse runs both checks.
func (v *OpenAPIValidator) ValidateRequestResponse(t *testing.T, req *http.Request, resp *http.Response) {
	t.Helper()
	v.ValidateRequest(t, req)
	v.ValidateResponse(t, req, resp)
}

func shorten(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
