package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"os"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Priya8975/webhook-notifier/internal/domain"
	"github.com/Priya8975/webhook-notifier/internal/engine"
	"github.com/Priya8975/webhook-notifier/internal/metrics"
	"github.com/Priya8975/webhook-notifier/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type stubMailer struct {
	mu   sync.Mutex
	sent []domain.Message
	err  error
}

func (m *stubMailer) Send(_ context.Context, _ domain.Sender, msg domain.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	if m.err != nil {
		return "", m.err
	}
	return "<stub@test>", nil
}

func (m *stubMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type stubVerifier struct {
	err  error
	seen []domain.Sender
}

func (v *stubVerifier) Verify(_ context.Context, s domain.Sender) error {
	v.seen = append(v.seen, s)
	return v.err
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type testServer struct {
	handler  http.Handler
	store    *store.MemoryStore
	engine   *engine.Engine
	mailer   *stubMailer
	verifier *stubVerifier
	settings *engine.SettingsCache
}

func newTestServer(t *testing.T, limits domain.RateConfig) *testServer {
	t.Helper()
	return newTestServerBehind(t, limits, nil)
}

// newTestServerBehind builds a test server that trusts forwarding headers
// from the given proxies.
func newTestServerBehind(t *testing.T, limits domain.RateConfig, proxies []netip.Prefix) *testServer {
	t.Helper()
	ctx := context.Background()
	logger := testLogger()

	mem := store.NewMemory()
	s := domain.DefaultSettings()
	s.RateLimits = withHeadroom(limits)
	if err := mem.PutSettings(ctx, s); err != nil {
		t.Fatalf("PutSettings() error: %v", err)
	}

	cache := engine.NewSettingsCache(mem, 0, nil)
	rec := metrics.New(prometheus.NewRegistry())
	mailer := &stubMailer{}
	verifier := &stubVerifier{}

	eng := engine.NewEngine(engine.Deps{
		Targets: mem,
		Senders: mem,
		Logs:    mem,
		Limiter: engine.NewRateController(cache, engine.NewMemoryCounter(nil), logger),
		Mailer:  mailer,
		Metrics: rec,
		Logger:  logger,
	})

	handler := NewRouter(RouterDeps{
		Engine:     eng,
		Settings:   cache,
		Verifier:   verifier,
		Metrics:    rec,
		Store:      mem,
		Logger:     logger,
		PublicHost: "http://notify.test",

		TrustedProxies: proxies,
	})

	return &testServer{
		handler:  handler,
		store:    mem,
		engine:   eng,
		mailer:   mailer,
		verifier: verifier,
		settings: cache,
	}
}

// do sends a request with an optional JSON body and returns the recorder.
func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) raw(t *testing.T, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func (ts *testServer) createTarget(t *testing.T, name string) domain.Target {
	t.Helper()
	w := ts.do(t, http.MethodPost, "/api/webhooks", domain.CreateTargetRequest{Name: name})
	expectStatus(t, w, http.StatusCreated)
	return decodeBody[domain.Target](t, w)
}

func (ts *testServer) createSender(t *testing.T) senderView {
	t.Helper()
	host, from, secret := "smtp.example.com", "noreply@example.com", "hunter2"
	w := ts.do(t, http.MethodPost, "/api/senders", domain.SenderRequest{
		Host:      &host,
		FromEmail: &from,
		Secret:    &secret,
	})
	expectStatus(t, w, http.StatusCreated)
	return decodeBody[senderView](t, w)
}

// noLimit is a limit no test comes close to.
const noLimit = 1_000_000

// withHeadroom raises every limit left unset in cfg to noLimit.
func withHeadroom(cfg domain.RateConfig) domain.RateConfig {
	for _, l := range []*int{&cfg.SourceLimit, &cfg.TargetLimit, &cfg.BurstLimit} {
		if *l <= 0 {
			*l = noLimit
		}
	}
	return cfg
}

func unlimited() domain.RateConfig {
	return withHeadroom(domain.RateConfig{})
}
