package app

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apiwire-hq/apiwire/internal/config"
	"github.com/apiwire-hq/apiwire/internal/logger"
)

// testConfig builds a config pointing at a services file for the given server.
func testConfig(t *testing.T, srv *httptest.Server) *config.Config {
	t.Helper()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}

	dir := t.TempDir()
	servicesFile := filepath.Join(dir, "services.yaml")
	content := fmt.Sprintf(`
services:
  - id: authsvc
    name: Auth Service
    host: %s
    port: %s
    endpoints:
      - id: login
        path: /auth/login/
        method: POST
      - id: me
        path: /v1/me
`, u.Hostname(), u.Port())
	if err := os.WriteFile(servicesFile, []byte(content), 0o644); err != nil {
		t.Fatalf("write services file: %v", err)
	}

	return &config.Config{
		AppName:        "apiwire-test",
		LogLevel:       "error",
		ServicesFile:   servicesFile,
		SinksFile:      filepath.Join(dir, "missing-sinks.yaml"),
		HTTPTimeout:    2 * time.Second,
		TokenStoreType: "bbolt",
		BBoltPath:      filepath.Join(dir, "tokens.db"),
		TokenTTL:       time.Hour,
		TokenCleanup:   10 * time.Minute,
		DemoService:    "authsvc",
		DemoUsername:   "bachld",
		DemoPassword:   "12345678",
	}
}

func TestRunDemoLogsInAndFetchesProfile(t *testing.T) {
	var loginHits, profileHits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login/":
			loginHits++
			if got := r.URL.Query().Get("username"); got != "bachld" {
				t.Errorf("unexpected username: %s", got)
			}
			w.Write([]byte(`{"access_token":"tok-abc"}`))
		case "/v1/me":
			profileHits++
			if got := r.Header.Get("Authorization"); got != "Bearer tok-abc" {
				t.Errorf("unexpected authorization: %q", got)
			}
			w.Write([]byte(`{"username":"bachld"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	rt, err := NewRuntime(context.Background(), testConfig(t, srv), &logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	if err := rt.RunDemo(context.Background()); err != nil {
		t.Fatalf("RunDemo: %v", err)
	}
	if loginHits != 1 || profileHits != 1 {
		t.Fatalf("unexpected hit counts: login=%d profile=%d", loginHits, profileHits)
	}

	// Second run reuses the stored token; no second login.
	if err := rt.RunDemo(context.Background()); err != nil {
		t.Fatalf("RunDemo (second): %v", err)
	}
	if loginHits != 1 {
		t.Fatalf("expected token reuse, login hit %d times", loginHits)
	}
}

func TestRunDemoSurfacesLoginDecodeFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":"shape"}`))
	}))
	defer srv.Close()

	rt, err := NewRuntime(context.Background(), testConfig(t, srv), &logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	if err := rt.RunDemo(context.Background()); err == nil {
		t.Fatalf("expected decode failure from login")
	}
}

func TestInvokeAttachesStoredToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-xyz" {
			t.Errorf("unexpected authorization: %q", got)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	rt, err := NewRuntime(context.Background(), testConfig(t, srv), &logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	if err := rt.store.SaveToken("authsvc", "tok-xyz"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	raw, err := rt.Invoke(context.Background(), "authsvc", "me", nil)
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if string(raw) != `{"ok":true}` {
		t.Fatalf("unexpected payload: %s", raw)
	}
}

func TestInvokeUnknownServiceFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	rt, err := NewRuntime(context.Background(), testConfig(t, srv), &logger.NopLogger{})
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	defer rt.Close()

	if _, err := rt.Invoke(context.Background(), "ghost", "me", nil); err == nil {
		t.Fatalf("expected unknown service error")
	}
}
