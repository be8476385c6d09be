package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gearconnect/statuspage/internal/domain"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult(t *testing.T) {
	live := Live([]int{1})
	assert.False(t, live.Failed())
	assert.Equal(t, domain.ProvenanceLive, live.Source)

	sub := Substitute([]int{2}, domain.ProvenanceSynthetic, ErrNotConfigured)
	assert.True(t, sub.Failed())
	assert.ErrorIs(t, sub.Err, ErrNotConfigured)
	assert.Equal(t, []int{2}, sub.Value)
}

func TestGetJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"value": 3}`))
	}))
	defer server.Close()

	var out struct {
		Value int `json:"value"`
	}
	err := GetJSON(context.Background(), server.Client(), server.URL, map[string]string{"Authorization": "Bearer token"}, &out)

	require.NoError(t, err)
	assert.Equal(t, 3, out.Value)
}

func TestGetJSON_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	var out any
	err := GetJSON(context.Background(), server.Client(), server.URL, nil, &out)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
	assert.Equal(t, "nope", statusErr.Body)
}

func TestFlexTime(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
		want  time.Time
	}{
		{"rfc3339", `"2026-01-01T10:00:00Z"`, true, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"fractional", `"2026-01-01T10:00:00.500Z"`, true, time.Date(2026, 1, 1, 10, 0, 0, 500_000_000, time.UTC)},
		{"epoch", `1767261600`, true, time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"null", `null`, false, time.Time{}},
		{"garbage", `"yesterday"`, false, time.Time{}},
		{"object", `{}`, false, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v FlexTime
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.valid, v.Valid)
			if tt.valid {
				assert.True(t, tt.want.Equal(v.Time))
				assert.NotNil(t, v.Ptr())
			} else {
				assert.Nil(t, v.Ptr())
			}
		})
	}
}

func TestFlexInt(t *testing.T) {
	var payload struct {
		A FlexInt `json:"a"`
		B FlexInt `json:"b"`
		C FlexInt `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 15, "b": "42", "c": "many"}`), &payload))

	assert.Equal(t, FlexInt(15), payload.A)
	assert.Equal(t, FlexInt(42), payload.B)
	assert.Equal(t, FlexInt(0), payload.C)
}

func TestCountsAsSuccess(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"not found", &StatusError{Code: http.StatusNotFound}, true},
		{"wrapped unauthorized", fmt.Errorf("fetch: %w", &StatusError{Code: http.StatusUnauthorized}), true},
		{"rate limited", &StatusError{Code: http.StatusTooManyRequests}, false},
		{"server error", &StatusError{Code: http.StatusBadGateway}, false},
		{"caller canceled", fmt.Errorf("send request: %w", context.Canceled), true},
		{"deadline", fmt.Errorf("send request: %w", context.DeadlineExceeded), false},
		{"transport", errors.New("connection refused"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countsAsSuccess(tt.err))
		})
	}
}

func TestNewBreaker_IgnoresClientErrors(t *testing.T) {
	cb := NewBreaker("test", BreakerConfig{ConsecutiveFailures: 1, OpenTimeout: time.Minute, HalfOpenRequests: 1}, nil)
	require.NotNil(t, cb)

	for range 3 {
		err := Guard(cb, func() error { return &StatusError{Code: http.StatusNotFound} })
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateClosed, cb.State())

	_ = Guard(cb, func() error { return &StatusError{Code: http.StatusServiceUnavailable} })
	assert.Equal(t, gobreaker.StateOpen, cb.State())
}
