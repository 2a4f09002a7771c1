package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qpinta/internal/backend/backendtest"
	"qpinta/internal/config"
	"qpinta/internal/session"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	fake := backendtest.New(t)
	return &config.Config{
		Server:  config.ServerConfig{Port: "0", Env: "test"},
		Backend: fake.Config(),
		Session: config.SessionConfig{Store: config.SessionStoreMemory, Secret: "test-secret"},
	}
}

func startServer(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()

	deps, err := Open(context.Background(), cfg, logger)
	if err != nil {
		t.Fatalf("failed to open dependencies: %v", err)
	}
	srv, err := NewServer(cfg, logger, deps)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	t.Cleanup(func() { srv.Close() })

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func noRedirect() *http.Client {
	return &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
}

func TestHealth(t *testing.T) {
	ts := startServer(t, testConfig(t))

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", resp.StatusCode, body)
	}
}

func TestRoutes(t *testing.T) {
	ts := startServer(t, testConfig(t))
	client := noRedirect()

	tests := []struct {
		path     string
		status   int
		location string
	}{
		{"/", http.StatusOK, ""},
		{"/static/site.css", http.StatusOK, ""},
		{"/admin", http.StatusSeeOther, "/admin/login"},
		{"/admin/login", http.StatusOK, ""},
		{"/admin/dashboard", http.StatusSeeOther, "/admin/login"},
		{"/admin/products", http.StatusSeeOther, "/admin/login"},
		{"/admin/categories", http.StatusSeeOther, "/admin/login"},
		{"/product/42", http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := client.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.status {
				t.Errorf("expected %d, got %d", tt.status, resp.StatusCode)
			}
			if tt.location != "" && resp.Header.Get("Location") != tt.location {
				t.Errorf("expected redirect to %q, got %q", tt.location, resp.Header.Get("Location"))
			}
		})
	}
}

func TestEveryResponseCarriesClientCookie(t *testing.T) {
	ts := startServer(t, testConfig(t))

	resp, err := noRedirect().Get(ts.URL + "/admin/products")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	var found bool
	for _, c := range resp.Cookies() {
		found = found || c.Name == session.CookieName
	}
	if !found {
		t.Error("expected a client cookie on a redirected request")
	}
}

func TestOpenSessionStores(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := net.SplitHostPort(mr.Addr())

	tests := []struct {
		name  string
		store string
	}{
		{"memory", config.SessionStoreMemory},
		{"default", ""},
		{"redis", config.SessionStoreRedis},
		{"badger", config.SessionStoreBadger},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Session.Store = tt.store
			cfg.Redis = config.RedisConfig{Host: host, Port: port}

			deps, err := Open(context.Background(), cfg, zap.NewNop())
			if err != nil {
				t.Fatalf("failed to open %s store: %v", tt.name, err)
			}
			defer deps.Close()

			storage := deps.Sessions.Storage("client")
			ctx := context.Background()
			if err := storage.SetItem(ctx, session.KeyToken, "t"); err != nil {
				t.Fatal(err)
			}
			if got, ok, _ := storage.GetItem(ctx, session.KeyToken); !ok || got != "t" {
				t.Errorf("expected stored token, got %q %v", got, ok)
			}
			if (deps.Redis != nil) != (tt.store == config.SessionStoreRedis) {
				t.Errorf("unexpected redis client for %s store", tt.name)
			}
		})
	}
}

func TestOpenRejectsUnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Session.Store = "cookie"

	if _, err := Open(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected an error for an unknown session store")
	}
}

func TestOpenFailsWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := net.SplitHostPort(mr.Addr())
	mr.Close()

	cfg := testConfig(t)
	cfg.Session.Store = config.SessionStoreRedis
	cfg.Redis = config.RedisConfig{Host: host, Port: port}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := Open(ctx, cfg, zap.NewNop()); err == nil {
		t.Error("expected an error when redis is unreachable")
	}
}
