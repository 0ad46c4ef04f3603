package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// recorder counts calls to a test server and remembers when they arrived.
type recorder struct {
	calls atomic.Int32
	mu    sync.Mutex
	times []time.Time
	body  [][]byte
}

func (r *recorder) record(req *http.Request) int {
	data, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	r.times = append(r.times, time.Now())
	r.body = append(r.body, data)
	r.mu.Unlock()
	return int(r.calls.Add(1))
}

func (r *recorder) gaps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []time.Duration
	for i := 1; i < len(r.times); i++ {
		out = append(out, r.times[i].Sub(r.times[i-1]))
	}
	return out
}

func newTestClient(t *testing.T, baseURL string, wait time.Duration) *Client {
	t.Helper()
	c, err := NewClient(ClientConfig{
		BaseURL:     baseURL,
		ServiceName: "test",
		RetryWait:   wait,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return c
}

func TestParseBaseURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "empty", raw: "", wantErr: true},
		{name: "host only", raw: "redmine.example.com", wantErr: true},
		{name: "relative path", raw: "/redmine", wantErr: true},
		{name: "scheme without host", raw: "http://", wantErr: true},
		{name: "missing scheme", raw: "://redmine.example.com", wantErr: true},
		{name: "host and port", raw: "localhost:3000", wantErr: true},
		{name: "opaque", raw: "mailto:admin@example.com", wantErr: true},
		{name: "plain", raw: "http://redmine.example.com", want: "http://redmine.example.com/"},
		{name: "trailing slash", raw: "https://redmine.example.com/", want: "https://redmine.example.com/"},
		{name: "sub path", raw: "http://127.0.0.1:8080/redmine", want: "http://127.0.0.1:8080/redmine/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseBaseURL(tt.raw)
			if tt.wantErr {
				if !IsInvalidConfig(err) {
					t.Fatalf("ParseBaseURL(%q) error = %v, want ErrInvalidConfig", tt.raw, err)
				}
				var cfgErr *ConfigError
				if !errors.As(err, &cfgErr) {
					t.Fatalf("error %T is not *ConfigError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseBaseURL(%q) error = %v", tt.raw, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseBaseURL(%q) = %q, want %q", tt.raw, got.String(), tt.want)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	t.Run("rejects malformed base url", func(t *testing.T) {
		_, err := NewClient(ClientConfig{BaseURL: "not a url"})
		if KindOf(err) != KindInvalidConfig {
			t.Errorf("KindOf() = %q, want %q", KindOf(err), KindInvalidConfig)
		}
	})

	t.Run("applies defaults", func(t *testing.T) {
		c, err := NewClient(ClientConfig{BaseURL: "http://example.com"})
		if err != nil {
			t.Fatalf("NewClient() error = %v", err)
		}
		if c.MaxAttempts() != DefaultMaxAttempts {
			t.Errorf("MaxAttempts() = %d, want %d", c.MaxAttempts(), DefaultMaxAttempts)
		}
		if c.RetryWait() != DefaultRetryWait {
			t.Errorf("RetryWait() = %v, want %v", c.RetryWait(), DefaultRetryWait)
		}
	})
}

func TestResolveURL(t *testing.T) {
	c := newTestClient(t, "https://tracker.example.com/redmine", time.Millisecond)

	tests := []struct {
		ref  string
		want string
	}{
		{"uploads.json", "https://tracker.example.com/redmine/uploads.json"},
		{"issues/7.json?include=attachments", "https://tracker.example.com/redmine/issues/7.json?include=attachments"},
		{"projects/cfia/issues.json?limit=25", "https://tracker.example.com/redmine/projects/cfia/issues.json?limit=25"},
		{"https://files.example.com/a/b.txt", "https://files.example.com/a/b.txt"},
	}

	for _, tt := range tests {
		got, err := c.ResolveURL(tt.ref)
		if err != nil {
			t.Fatalf("ResolveURL(%q) error = %v", tt.ref, err)
		}
		if got != tt.want {
			t.Errorf("ResolveURL(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestExecuteRetriesUntilSuccess(t *testing.T) {
	const wait = 15 * time.Millisecond

	for _, failures := range []int{0, 1, 3, 9} {
		t.Run(fmt.Sprintf("%d failures", failures), func(t *testing.T) {
			rec := &recorder{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if rec.record(r) <= failures {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_ = json.NewEncoder(w).Encode(map[string]string{"ok": "true"})
			}))
			defer server.Close()

			c := newTestClient(t, server.URL, wait)

			var result map[string]string
			if err := c.GetJSON(context.Background(), "issues.json", &result); err != nil {
				t.Fatalf("GetJSON() error = %v", err)
			}
			if result["ok"] != "true" {
				t.Errorf("got ok = %q, want %q", result["ok"], "true")
			}
			if got := int(rec.calls.Load()); got != failures+1 {
				t.Errorf("got %d calls, want %d", got, failures+1)
			}
			for i, gap := range rec.gaps() {
				if gap < wait {
					t.Errorf("gap %d = %v, want at least %v", i, gap, wait)
				}
			}
		})
	}
}

func TestExecuteExhaustsRetries(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Millisecond)

	_, err := c.Get(context.Background(), "issues/1.json")

	var exhausted *ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("got error %v, want *ExhaustedRetriesError", err)
	}
	if exhausted.Attempts != DefaultMaxAttempts {
		t.Errorf("Attempts = %d, want %d", exhausted.Attempts, DefaultMaxAttempts)
	}
	if exhausted.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", exhausted.StatusCode)
	}
	if string(exhausted.Body) != "boom" {
		t.Errorf("Body = %q, want %q", exhausted.Body, "boom")
	}
	if got := int(rec.calls.Load()); got != DefaultMaxAttempts {
		t.Errorf("got %d calls, want %d", got, DefaultMaxAttempts)
	}
	if !IsRetriesExhausted(err) {
		t.Error("IsRetriesExhausted() = false, want true")
	}
}

func TestExecuteUnauthorizedIsFatal(t *testing.T) {
	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{
			name: "GET",
			call: func(c *Client) error {
				_, err := c.Get(context.Background(), "issues/1.json")
				return err
			},
		},
		{
			name: "PUT",
			call: func(c *Client) error {
				_, err := c.Put(context.Background(), "issues/1.json", map[string]any{"issue": map[string]any{}})
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				rec.record(r)
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte("bad key"))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL, time.Hour)

			err := tt.call(c)
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("got error %v, want *AuthError", err)
			}
			if string(authErr.Body) != "bad key" {
				t.Errorf("Body = %q, want %q", authErr.Body, "bad key")
			}
			if !IsUnauthorized(err) {
				t.Error("IsUnauthorized() = false, want true")
			}
			if got := rec.calls.Load(); got != 1 {
				t.Errorf("got %d calls, want 1", got)
			}
		})
	}
}

func TestPut(t *testing.T) {
	t.Run("accepts 201 and replays body", func(t *testing.T) {
		rec := &recorder{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Content-Type") != "application/json" {
				t.Errorf("Content-Type = %q, want application/json", r.Header.Get("Content-Type"))
			}
			if rec.record(r) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		c := newTestClient(t, server.URL, time.Millisecond)

		status, err := c.Put(context.Background(), "issues/3.json", map[string]any{"issue": map[string]string{"notes": "hi"}})
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if status != http.StatusCreated {
			t.Errorf("status = %d, want 201", status)
		}
		want := `{"issue":{"notes":"hi"}}`
		for i, b := range rec.body {
			if string(b) != want {
				t.Errorf("attempt %d body = %s, want %s", i+1, b, want)
			}
		}
	})
}

func TestExecuteTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := server.URL
	server.Close()

	c, err := NewClient(ClientConfig{
		BaseURL:     url,
		ServiceName: "test",
		MaxAttempts: 3,
		RetryWait:   time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	_, err = c.Get(context.Background(), "issues.json")
	var exhausted *ExhaustedRetriesError
	if !errors.As(err, &exhausted) {
		t.Fatalf("got error %v, want *ExhaustedRetriesError", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	if exhausted.StatusCode != 0 || exhausted.Err == nil {
		t.Errorf("got status %d err %v, want transport error", exhausted.StatusCode, exhausted.Err)
	}
}

func TestExecuteContextCanceled(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Get(ctx, "issues.json")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("got error %v, want context.DeadlineExceeded", err)
	}
	if got := rec.calls.Load(); got != 1 {
		t.Errorf("got %d calls, want 1", got)
	}
}

func TestPostOnce(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("nope"))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL, time.Millisecond)

	resp, err := c.PostOnce(context.Background(), "uploads.json", "application/octet-stream", []byte("data"))
	if err != nil {
		t.Fatalf("PostOnce() error = %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError || string(resp.Body) != "nope" {
		t.Errorf("got %d %q, want 500 %q", resp.StatusCode, resp.Body, "nope")
	}
	if got := rec.calls.Load(); got != 1 {
		t.Errorf("got %d calls, want 1", got)
	}
	if got := string(rec.body[0]); got != "data" {
		t.Errorf("body = %q, want %q", got, "data")
	}
}

func TestBeforeRequestAppliedToEveryAttempt(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Api-Key") != "secret" {
			t.Errorf("attempt missing api key header")
		}
		if rec.record(r) < 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	c, err := NewClient(ClientConfig{
		BaseURL:   server.URL,
		RetryWait: time.Millisecond,
		BeforeRequest: func(req *http.Request) {
			req.Header.Set("X-Api-Key", "secret")
		},
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := c.Get(context.Background(), "x.json"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
}

func TestMetrics(t *testing.T) {
	rec := &recorder{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec.record(r) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	c, err := NewClient(ClientConfig{
		BaseURL:   server.URL,
		RetryWait: time.Millisecond,
		Metrics:   m,
	})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := c.Get(context.Background(), "x.json"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got := testutil.ToFloat64(m.Attempts.WithLabelValues(http.MethodGet, "500")); got != 2 {
		t.Errorf("500 attempts = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Attempts.WithLabelValues(http.MethodGet, "200")); got != 1 {
		t.Errorf("200 attempts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, OutcomeSuccess)); got != 1 {
		t.Errorf("successful requests = %v, want 1", got)
	}
	if _, err := NewMetrics(reg); err == nil {
		t.Error("registering metrics twice should fail")
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantMsg  string
		wantKind Kind
	}{
		{
			name:     "config",
			err:      &ConfigError{Field: "base url", Value: "nope", Reason: "scheme and host are required"},
			wantMsg:  `invalid base url "nope": scheme and host are required`,
			wantKind: KindInvalidConfig,
		},
		{
			name:     "auth",
			err:      &AuthError{Service: "redmine", Endpoint: "http://x/issues.json", StatusCode: 401},
			wantMsg:  "redmine authentication failed (401) at http://x/issues.json: invalid api key",
			wantKind: KindUnauthorized,
		},
		{
			name: "exhausted",
			err: &ExhaustedRetriesError{
				Service: "redmine", Method: "GET", Endpoint: "http://x/a.json",
				Attempts: 10, StatusCode: 503, Body: []byte("maintenance"),
			},
			wantMsg:  "could not reach redmine after 10 attempts: GET http://x/a.json returned 503: maintenance",
			wantKind: KindRetriesExhausted,
		},
		{
			name: "exhausted transport",
			err: &ExhaustedRetriesError{
				Service: "redmine", Method: "PUT", Endpoint: "http://x/a.json",
				Attempts: 2, Err: io.ErrUnexpectedEOF,
			},
			wantMsg:  "could not reach redmine after 2 attempts: PUT http://x/a.json: unexpected EOF",
			wantKind: KindRetriesExhausted,
		},
		{
			name:     "wrapped",
			err:      errors.Join(errors.New("context"), ErrUpload),
			wantMsg:  "context\nupload failed",
			wantKind: KindUpload,
		},
		{
			name:     "other",
			err:      errors.New("boom"),
			wantMsg:  "boom",
			wantKind: KindOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tt.wantMsg)
			}
			if got := KindOf(tt.err); got != tt.wantKind {
				t.Errorf("KindOf() = %q, want %q", got, tt.wantKind)
			}
		})
	}

	if KindOf(nil) != KindNone {
		t.Error("KindOf(nil) should be KindNone")
	}
	if !errors.Is(&ExhaustedRetriesError{Err: io.ErrUnexpectedEOF}, io.ErrUnexpectedEOF) {
		t.Error("ExhaustedRetriesError should unwrap to its transport error")
	}
}

func TestPageIterator(t *testing.T) {
	t.Run("walks offsets until total", func(t *testing.T) {
		data := []int{1, 2, 3, 4, 5, 6, 7}
		var offsets []int

		fetch := func(_ context.Context, offset int) ([]int, int, error) {
			offsets = append(offsets, offset)
			end := min(offset+3, len(data))
			return data[offset:end], len(data), nil
		}

		got, err := NewPageIterator(fetch).All(context.Background())
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if len(got) != len(data) {
			t.Fatalf("got %d items, want %d", len(got), len(data))
		}
		wantOffsets := []int{0, 3, 6}
		if len(offsets) != len(wantOffsets) {
			t.Fatalf("offsets = %v, want %v", offsets, wantOffsets)
		}
		for i := range wantOffsets {
			if offsets[i] != wantOffsets[i] {
				t.Errorf("offsets = %v, want %v", offsets, wantOffsets)
			}
		}
	})

	t.Run("stops on empty page", func(t *testing.T) {
		calls := 0
		fetch := func(_ context.Context, _ int) ([]string, int, error) {
			calls++
			return nil, -1, nil
		}

		iter := NewPageIterator(fetch)
		got, err := iter.All(context.Background())
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if len(got) != 0 || calls != 1 {
			t.Errorf("got %d items in %d calls, want 0 in 1", len(got), calls)
		}
	})

	t.Run("stops on short page", func(t *testing.T) {
		calls := 0
		fetch := func(_ context.Context, _ int) ([]int, int, error) {
			calls++
			return []int{1, 2, 3}, -1, nil
		}

		got, err := NewPageIterator(fetch).WithPageSize(5).All(context.Background())
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if len(got) != 3 || calls != 1 {
			t.Errorf("got %d items in %d calls, want 3 in 1", len(got), calls)
		}
	})

	t.Run("full pages continue without total", func(t *testing.T) {
		var offsets []int
		fetch := func(_ context.Context, offset int) ([]int, int, error) {
			offsets = append(offsets, offset)
			if offset >= 4 {
				return []int{5}, -1, nil
			}
			return []int{offset + 1, offset + 2}, -1, nil
		}

		got, err := NewPageIterator(fetch).WithPageSize(2).All(context.Background())
		if err != nil {
			t.Fatalf("All() error = %v", err)
		}
		if len(got) != 5 || len(offsets) != 3 {
			t.Errorf("got %d items at offsets %v, want 5 at [0 2 4]", len(got), offsets)
		}
	})

	t.Run("propagates error", func(t *testing.T) {
		wantErr := errors.New("fetch failed")
		fetch := func(_ context.Context, _ int) ([]int, int, error) {
			return nil, 0, wantErr
		}

		_, err := NewPageIterator(fetch).All(context.Background())
		if !errors.Is(err, wantErr) {
			t.Errorf("got error %v, want %v", err, wantErr)
		}
	})

	t.Run("Take limits results", func(t *testing.T) {
		fetch := func(_ context.Context, _ int) ([]int, int, error) {
			return []int{1, 2, 3, 4, 5}, -1, nil
		}

		iter := NewPageIterator(fetch)
		got, err := iter.Take(context.Background(), 3)
		if err != nil {
			t.Fatalf("Take() error = %v", err)
		}
		if len(got) != 3 || iter.Fetched() != 3 {
			t.Errorf("got %d items, fetched %d, want 3", len(got), iter.Fetched())
		}
	})

	t.Run("ForEach processes all items", func(t *testing.T) {
		fetch := func(_ context.Context, offset int) ([]int, int, error) {
			if offset > 0 {
				return nil, 3, nil
			}
			return []int{1, 2, 3}, 3, nil
		}

		iter := NewPageIterator(fetch)
		var sum int
		err := iter.ForEach(context.Background(), func(i int) error {
			sum += i
			return nil
		})
		if err != nil {
			t.Fatalf("ForEach() error = %v", err)
		}
		if sum != 6 || iter.Total() != 3 {
			t.Errorf("sum = %d total = %d, want 6 and 3", sum, iter.Total())
		}
	})
}
