package slackdm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *fakeSleeper) sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.waits = append(s.waits, d)

	return nil
}

func (s *fakeSleeper) calls() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]time.Duration(nil), s.waits...)
}

// fakeSlack serves the two Slack endpoints used by the handler and counts
// calls to each.
type fakeSlack struct {
	server      *httptest.Server
	lookupCalls atomic.Int32
	sendCalls   atomic.Int32
}

func newFakeSlack(t *testing.T, lookup, send http.HandlerFunc) *fakeSlack {
	t.Helper()

	f := &fakeSlack{}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users.lookupByEmail", func(w http.ResponseWriter, r *http.Request) {
		f.lookupCalls.Add(1)
		lookup(w, r)
	})
	mux.HandleFunc("/api/chat.postMessage", func(w http.ResponseWriter, r *http.Request) {
		f.sendCalls.Add(1)
		send(w, r)
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)

	return f
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	}
}

func bearerContext(address string) ExecutionContext {
	return ExecutionContext{
		Environment: map[string]string{EnvAddress: address},
		Secrets:     map[string]string{SecretBearerToken: "xoxb-test"},
	}
}

type recordedCall struct {
	method string
	status int
}

type fakeMetrics struct {
	mu       sync.Mutex
	calls    []recordedCall
	outcomes []string
}

func (m *fakeMetrics) RecordSlackCall(_ context.Context, method string, status int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, recordedCall{method: method, status: status})
}

func (m *fakeMetrics) RecordOutcome(_ context.Context, entryPoint, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.outcomes = append(m.outcomes, entryPoint+":"+outcome)
}
