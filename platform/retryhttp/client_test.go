package retryhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient(maxRetries int) *Client {
	return New(
		WithMaxRetries(maxRetries),
		WithBaseDelay(time.Millisecond),
		WithTimeout(2*time.Second),
	)
}

func TestRetryBudgetExhaustion(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := fastClient(3).PostJSON(context.Background(), srv.URL, map[string]string{"k": "v"}, nil)
	if err == nil {
		t.Fatalf("expected failure after exhausting retries")
	}
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4 (initial plus 3 retries)", attempts)
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("error is %T, want *Error", err)
	}
	if rerr.Attempts != 4 {
		t.Errorf("Error.Attempts = %d, want 4", rerr.Attempts)
	}
	if rerr.Terminal {
		t.Errorf("exhausted 5xx budget is retryable, not terminal")
	}
	if rerr.LastStatus != http.StatusInternalServerError {
		t.Errorf("LastStatus = %d, want 500", rerr.LastStatus)
	}
}

func TestTerminalStatusNotRetried(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	_, err := fastClient(3).PostJSON(context.Background(), srv.URL, nil, nil)
	if err == nil {
		t.Fatalf("expected terminal failure")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is terminal)", attempts)
	}

	var rerr *Error
	if !errors.As(err, &rerr) {
		t.Fatalf("error is %T, want *Error", err)
	}
	if !rerr.Terminal {
		t.Errorf("422 must be terminal")
	}
	if !IsTerminal(err) {
		t.Errorf("IsTerminal must see the typed error")
	}
	if !IsTerminal(fmt.Errorf("dashboard /api/jobs: %w", err)) {
		t.Errorf("IsTerminal must unwrap")
	}
}

func TestRecoveryMidBudget(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	result, err := fastClient(3).PostJSON(context.Background(), srv.URL, map[string]int{"n": 1}, nil)
	if err != nil {
		t.Fatalf("expected recovery: %v", err)
	}
	if result.Attempts != 3 {
		t.Errorf("Result.Attempts = %d, want 3", result.Attempts)
	}
	if result.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", result.Status)
	}
}

func TestRetryableStatuses(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
	}{
		{http.StatusRequestTimeout, true},
		{http.StatusTooManyRequests, true},
		{http.StatusBadGateway, true},
		{http.StatusBadRequest, false},
		{http.StatusUnauthorized, false},
		{http.StatusNotFound, false},
	}
	for _, tt := range tests {
		if got := isRetryableStatus(tt.status); got != tt.retryable {
			t.Errorf("isRetryableStatus(%d) = %v, want %v", tt.status, got, tt.retryable)
		}
	}
}

func TestHeadersOnEveryAttempt(t *testing.T) {
	var attempts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Dashboard-Secret") != "s" {
			t.Errorf("attempt %d missing auth header", atomic.LoadInt32(&attempts))
		}
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := fastClient(2).PostJSON(context.Background(), srv.URL, nil,
		map[string]string{"X-Dashboard-Secret": "s"})
	if err != nil {
		t.Fatalf("PostJSON: %v", err)
	}
}

func TestGetJSONDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name":"unit-7"}`))
	}))
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
	}
	if _, err := fastClient(0).GetJSON(context.Background(), srv.URL, nil, &out); err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "unit-7" {
		t.Errorf("decoded name = %q", out.Name)
	}
}
