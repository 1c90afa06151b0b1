package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/grocerylist/internal/config"
	"github.com/dukerupert/grocerylist/internal/database"
	"github.com/dukerupert/grocerylist/internal/store"
)

func testConfig() config.Config {
	return config.Config{
		CORS: config.CORSConfig{
			AllowedOrigins: "*",
			AllowedMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
			AllowedHeaders: "Content-Type,Authorization",
			MaxAge:         86400,
		},
		Realtime: config.RealtimeConfig{Enabled: true},
	}
}

func setupServer(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(New(store.NewItemStore(db), cfg, logger).Router())
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes(t *testing.T) {
	srv := setupServer(t, testConfig())

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/", http.StatusOK},
		{"GET", "/health", http.StatusOK},
		{"GET", "/api/items", http.StatusOK},
		{"GET", "/api/items/nope", http.StatusNotFound},
		{"DELETE", "/api/items/nope", http.StatusOK},
		{"OPTIONS", "/api/items", http.StatusNoContent},
		{"GET", "/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			req.Header.Set("Origin", "http://localhost:19006")
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
			}
		})
	}
}

func TestCreateThroughRouter(t *testing.T) {
	srv := setupServer(t, testConfig())

	resp, err := http.Post(srv.URL+"/api/items", "application/json", strings.NewReader(`{"name":"Milk"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["name"] != "Milk" || body["id"] == "" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRealtimeDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Realtime.Enabled = false
	srv := setupServer(t, cfg)

	resp, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestRateLimitOnMutations(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.RequestsPerMinute = 2
	srv := setupServer(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := http.Post(srv.URL+"/api/items", "application/json", strings.NewReader(`{}`))
		if err != nil {
			t.Fatalf("post: %v", err)
		}
		resp.Body.Close()
		codes = append(codes, resp.StatusCode)
	}
	if codes[0] != 201 || codes[1] != 201 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [201 201 429]", codes)
	}

	resp, err := http.Get(srv.URL + "/api/items")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET after limit: status = %d, want 200", resp.StatusCode)
	}
}

func TestBackupRoutesWithoutStorage(t *testing.T) {
	srv := setupServer(t, testConfig())

	resp, err := http.Get(srv.URL + "/api/backups/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["state"] != "disabled" {
		t.Errorf("state = %v, want disabled", body["state"])
	}

	tests := []struct {
		method, path, body string
	}{
		{"POST", "/api/backups", ""},
		{"GET", "/api/backups/grocery/grocery-1.json.enc", ""},
		{"POST", "/api/backups/restore", `{"key":"grocery/grocery-1.json.enc"}`},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, _ := http.NewRequest(tt.method, srv.URL+tt.path, strings.NewReader(tt.body))
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("request: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusServiceUnavailable {
				t.Fatalf("status = %d, want 503", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
				t.Errorf("content type = %q, want JSON", ct)
			}
		})
	}
}

func TestBackupStatusWithStorage(t *testing.T) {
	cfg := testConfig()
	cfg.Backup = config.BackupConfig{Bucket: "b", AccessKey: "k", SecretKey: "s", Passphrase: "passphrase"}
	srv := setupServer(t, cfg)

	resp, err := http.Get(srv.URL + "/api/backups/status")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with backup config = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	json.NewDecoder(resp.Body).Decode(&body)
	if body["state"] != "idle" {
		t.Errorf("state = %v, want idle", body["state"])
	}
}

func TestWebSocketThroughMiddleware(t *testing.T) {
	srv := setupServer(t, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	// Give the server a moment to register the subscriber before mutating.
	time.Sleep(100 * time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/items", "application/json", strings.NewReader(`{"name":"Eggs"}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"type":"grocery_item_created"`) {
		t.Errorf("unexpected message %s", data)
	}
}
