package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Request is one request received by a FakeRedmine.
type Request struct {
	Method      string
	Path        string
	Query       string
	APIKey      string
	ContentType string
	Body        []byte
}

// FakeRedmine is an httptest server that routes by "METHOD /path" and
// records every request in order. Unrouted requests get 404.
type FakeRedmine struct {
	// URL is the server's base URL.
	URL string

	mu       sync.Mutex
	requests []Request
	routes   map[string]http.HandlerFunc
	apiKey   string
}

// NewFakeRedmine starts a server that is closed when the test ends.
func NewFakeRedmine(t *testing.T) *FakeRedmine {
	t.Helper()

	f := &FakeRedmine{routes: make(map[string]http.HandlerFunc)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	f.URL = srv.URL
	return f
}

// RequireKey makes every request without this api key fail with 401.
func (f *FakeRedmine) RequireKey(key string) *FakeRedmine {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiKey = key
	return f
}

// Handle routes pattern, such as "PUT /issues/1.json", to h.
func (f *FakeRedmine) Handle(pattern string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[pattern] = h
}

// Requests returns a copy of the requests received so far.
func (f *FakeRedmine) Requests() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.requests...)
}

func (f *FakeRedmine) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	key := r.Header.Get("X-Redmine-API-Key")

	f.mu.Lock()
	f.requests = append(f.requests, Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		APIKey:      key,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	h, ok := f.routes[r.Method+" "+r.URL.Path]
	required := f.apiKey
	f.mu.Unlock()

	switch {
	case required != "" && key != required:
		w.WriteHeader(http.StatusUnauthorized)
	case !ok:
		w.WriteHeader(http.StatusNotFound)
	default:
		h(w, r)
	}
}

// JSON responds with status and v encoded as JSON.
func JSON(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Status responds with status and a literal body.
func Status(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

// Sequence serves the nth call with the nth handler and repeats the last
// one after that.
func Sequence(handlers ...http.HandlerFunc) http.HandlerFunc {
	var (
		mu sync.Mutex
		n  int
	)
	return func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		h := handlers[min(n, len(handlers)-1)]
		n++
		mu.Unlock()
		h(w, r)
	}
}
