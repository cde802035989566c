package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
		wantOK bool
	}{
		{"empty header", "", 0, false},
		{"integer seconds", "2", 2 * time.Second, true},
		{"zero seconds", "0", 0, true},
		{"negative clamps to zero", "-5", 0, true},
		{"garbage", "soon", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseRetryAfter(tt.header)
			if ok != tt.wantOK {
				t.Fatalf("parseRetryAfter(%q) ok = %v, want %v", tt.header, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.header, got, tt.want)
			}
		})
	}
}

func TestParseRetryAfter_HTTPDate(t *testing.T) {
	future := time.Now().Add(3 * time.Second).UTC().Format(http.TimeFormat)
	got, ok := parseRetryAfter(future)
	if !ok {
		t.Fatal("expected HTTP-date to parse")
	}
	if got <= 0 || got > 3*time.Second {
		t.Errorf("expected delay in (0, 3s], got %v", got)
	}

	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	got, ok = parseRetryAfter(past)
	if !ok {
		t.Fatal("expected past HTTP-date to parse")
	}
	if got != 0 {
		t.Errorf("expected past date to clamp to 0, got %v", got)
	}
}

func TestBackoffDelay(t *testing.T) {
	c := NewClient(nil, &RetryOptions{
		MaxRetries:   5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	})

	wantBase := []time.Duration{
		500 * time.Millisecond,
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second, // capped
		10 * time.Second,
	}

	for attempt, base := range wantBase {
		d := c.backoffDelay(attempt)
		jitter := d - base
		if jitter < 0 || jitter >= 250*time.Millisecond {
			t.Errorf("attempt %d: delay %v outside [%v, %v+250ms)", attempt, d, base, base)
		}
	}
}

func TestFetchWithRetry_RetriesTransientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), &RetryOptions{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	})

	resp, err := c.FetchWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchWithRetry failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 after retries, got %d", resp.StatusCode)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestFetchWithRetry_GivesUpImmediatelyWithZeroRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), &RetryOptions{
		MaxRetries:   0,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
	})

	start := time.Now()
	resp, err := c.FetchWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchWithRetry failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 returned to caller, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("Expected a single attempt, got %d", calls)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("Expected no delay before giving up, took %v", elapsed)
	}
}

func TestFetchWithRetry_DoesNotRetryOtherStatuses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), &RetryOptions{MaxRetries: 5, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	resp, err := c.FetchWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchWithRetry failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 passed through, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("404 must not be retried, got %d attempts", calls)
	}
}

func TestFetchWithRetry_HonorsRetryAfter(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Backoff base is deliberately large; the short Retry-After must win.
	c := NewClient(srv.Client(), &RetryOptions{
		MaxRetries:   1,
		InitialDelay: time.Minute,
		MaxDelay:     time.Minute,
	})

	start := time.Now()
	resp, err := c.FetchWithRetry(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("FetchWithRetry failed: %v", err)
	}
	defer resp.Body.Close()

	elapsed := time.Since(start)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if elapsed < time.Second {
		t.Errorf("Expected to wait at least the Retry-After duration, waited %v", elapsed)
	}
	if elapsed > 5*time.Second {
		t.Errorf("Retry-After should override exponential backoff, waited %v", elapsed)
	}
}

func TestFetchWithRetry_NetworkErrorPropagatesAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(&http.Client{Timeout: time.Second}, &RetryOptions{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
	})

	_, err := c.FetchWithRetry(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Expected network error to propagate after exhausting retries")
	}
}

func TestFetchWithRetry_ContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.Client(), &RetryOptions{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchWithRetry(ctx, srv.URL)
	if err == nil {
		t.Fatal("Expected context cancellation error")
	}
}
