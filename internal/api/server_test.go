package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dkemmer/servicegate/internal/audit"
	"github.com/dkemmer/servicegate/internal/infrastructure/config"
	"github.com/dkemmer/servicegate/internal/infrastructure/database"
	"github.com/dkemmer/servicegate/internal/infrastructure/logging"
	"github.com/dkemmer/servicegate/internal/secrets"
	"github.com/dkemmer/servicegate/internal/security"
)

// testServer creates a Server backed by a migrated SQLite audit store
// in a temporary directory.
func testServer(t *testing.T) *Server {
	t.Helper()

	ctx := context.Background()
	db, err := database.Open(ctx, config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5000,
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	cfg := &config.Config{
		Miro: config.MiroConfig{
			AccessToken: secrets.New("miro-token-abc123"),
			BoardID:     "uXjVPxyz123=",
		},
		Stripe: config.StripeConfig{
			APIKey: secrets.New("sk_test_abc123"),
		},
		ClickHouse: config.ClickHouseConfig{
			Host:     "localhost",
			Port:     9000,
			User:     "default",
			Password: secrets.New("ch-password"),
			Database: "default",
		},
		Security: config.SecurityConfig{
			EncryptionKey: secrets.New("test-signing-key-at-least-32-chars"),
		},
		API: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
	}

	manager, err := security.NewManager(cfg.Security.EncryptionKey)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config:   cfg,
		Logger:   log,
		Security: manager,
		Audit:    audit.NewSQLiteRepository(db.DB),
		Version:  "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv
}

// doJSON issues a request against the router and decodes the response
// body into out (when out is non-nil).
func doJSON(t *testing.T, router http.Handler, method, path, body string, out any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if out != nil {
		if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
			t.Fatalf("unmarshal response: %v (body %q)", err, w.Body.String())
		}
	}
	return w
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	router := testServer(t).buildRouter()

	var resp map[string]any
	w := doJSON(t, router, http.MethodGet, "/api/v1/health", "", &resp)

	if w.Code != http.StatusOK {
		t.Errorf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", w.Header().Get("Content-Type"))
	}
}

// ─── Config Endpoint Tests ─────────────────────────────────────────

func TestConfigView_MasksCredentials(t *testing.T) {
	router := testServer(t).buildRouter()

	var resp configView
	w := doJSON(t, router, http.MethodGet, "/api/v1/config", "", &resp)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if resp.Miro.AccessToken != "*************c123" {
		t.Errorf("miro access token = %q, want %q", resp.Miro.AccessToken, "*************c123")
	}
	if resp.Stripe.APIKey != "**********c123" {
		t.Errorf("stripe api key = %q, want %q", resp.Stripe.APIKey, "**********c123")
	}
	if resp.ClickHouse.Password != "*******word" {
		t.Errorf("clickhouse password = %q, want %q", resp.ClickHouse.Password, "*******word")
	}

	body := w.Body.String()
	for _, raw := range []string{"miro-token-abc123", "sk_test_abc123", "ch-password"} {
		if strings.Contains(body, raw) {
			t.Errorf("response body contains raw credential %q", raw)
		}
	}
}

func TestConfigView_NonSecretFieldsVisible(t *testing.T) {
	router := testServer(t).buildRouter()

	var resp configView
	doJSON(t, router, http.MethodGet, "/api/v1/config", "", &resp)

	if resp.Miro.BoardID != "uXjVPxyz123=" {
		t.Errorf("board id = %q, want uXjVPxyz123=", resp.Miro.BoardID)
	}
	if resp.ClickHouse.Host != "localhost" || resp.ClickHouse.Port != 9000 {
		t.Errorf("clickhouse host:port = %s:%d, want localhost:9000", resp.ClickHouse.Host, resp.ClickHouse.Port)
	}
}

func TestConfigValidation_AllValid(t *testing.T) {
	router := testServer(t).buildRouter()

	var resp map[string]struct {
		Valid    bool     `json:"valid"`
		Errors   []string `json:"errors"`
		Warnings []string `json:"warnings"`
	}
	w := doJSON(t, router, http.MethodGet, "/api/v1/config/validation", "", &resp)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	for _, name := range []string{"miro", "clickhouse"} {
		result, ok := resp[name]
		if !ok {
			t.Fatalf("missing %q in validation results", name)
		}
		if !result.Valid {
			t.Errorf("%s valid = false, errors %v", name, result.Errors)
		}
		if result.Errors == nil || result.Warnings == nil {
			t.Errorf("%s errors/warnings marshalled as null", name)
		}
	}
}

func TestConfigValidation_ReportsErrors(t *testing.T) {
	srv := testServer(t)
	srv.cfg.Miro.AccessToken = secrets.New("")
	router := srv.buildRouter()

	var resp map[string]struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	doJSON(t, router, http.MethodGet, "/api/v1/config/validation", "", &resp)

	miro := resp["miro"]
	if miro.Valid {
		t.Error("expected miro to be invalid with empty token")
	}
	found := false
	for _, e := range miro.Errors {
		if e == "access token is missing" {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %v, want to contain %q", miro.Errors, "access token is missing")
	}
}

// ─── Token Endpoint Tests ──────────────────────────────────────────

func TestTokenEncodeDecode_RoundTrip(t *testing.T) {
	router := testServer(t).buildRouter()

	var encResp tokenEncodeResponse
	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens",
		`{"claims":{"user_id":"alice","role":"admin"}}`, &encResp)
	if w.Code != http.StatusOK {
		t.Fatalf("encode status = %d, want %d", w.Code, http.StatusOK)
	}
	if encResp.Token == "" {
		t.Fatal("expected a token in the response")
	}

	var decResp tokenDecodeResponse
	w = doJSON(t, router, http.MethodPost, "/api/v1/tokens/decode",
		`{"token":"`+encResp.Token+`"}`, &decResp)
	if w.Code != http.StatusOK {
		t.Fatalf("decode status = %d, want %d", w.Code, http.StatusOK)
	}
	if decResp.Claims["user_id"] != "alice" {
		t.Errorf("user_id = %v, want alice", decResp.Claims["user_id"])
	}
	if decResp.Claims["role"] != "admin" {
		t.Errorf("role = %v, want admin", decResp.Claims["role"])
	}
}

func TestTokenEncode_EmptyClaims(t *testing.T) {
	router := testServer(t).buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens", `{"claims":{}}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTokenDecode_InvalidSignature(t *testing.T) {
	srv := testServer(t)
	router := srv.buildRouter()

	other, err := security.NewManager(secrets.New("a-completely-different-signing-key"))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	token, err := other.Encode(map[string]any{"user_id": "mallory"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	var resp Error
	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens/decode",
		`{"token":"`+token+`"}`, &resp)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if resp.Code != ErrCodeUnauthorized {
		t.Errorf("error code = %q, want %q", resp.Code, ErrCodeUnauthorized)
	}
}

func TestTokenDecode_Malformed(t *testing.T) {
	router := testServer(t).buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens/decode",
		`{"token":"not-a-token"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestTokenDecode_MissingToken(t *testing.T) {
	router := testServer(t).buildRouter()

	w := doJSON(t, router, http.MethodPost, "/api/v1/tokens/decode", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Audit Endpoint Tests ──────────────────────────────────────────

func TestAuditList_RecordsActivity(t *testing.T) {
	router := testServer(t).buildRouter()

	// Generate some audit activity first.
	doJSON(t, router, http.MethodGet, "/api/v1/config/validation", "", nil)
	doJSON(t, router, http.MethodPost, "/api/v1/tokens", `{"claims":{"a":1}}`, nil)

	var resp audit.ListResult
	w := doJSON(t, router, http.MethodGet, "/api/v1/audit", "", &resp)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if resp.Total != 2 {
		t.Errorf("total = %d, want 2", resp.Total)
	}

	actions := make(map[string]bool)
	for _, event := range resp.Events {
		actions[event.Action] = true
	}
	if !actions[audit.ActionValidationRun] || !actions[audit.ActionTokenEncoded] {
		t.Errorf("actions = %v, want validation_run and token_encoded", actions)
	}
}

func TestAuditList_FilterByAction(t *testing.T) {
	router := testServer(t).buildRouter()

	doJSON(t, router, http.MethodGet, "/api/v1/config/validation", "", nil)
	doJSON(t, router, http.MethodPost, "/api/v1/tokens", `{"claims":{"a":1}}`, nil)

	var resp audit.ListResult
	doJSON(t, router, http.MethodGet, "/api/v1/audit?action=token_encoded", "", &resp)

	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	if resp.Events[0].Action != audit.ActionTokenEncoded {
		t.Errorf("action = %q, want %q", resp.Events[0].Action, audit.ActionTokenEncoded)
	}
}

func TestAuditList_RejectedTokenRecorded(t *testing.T) {
	router := testServer(t).buildRouter()

	doJSON(t, router, http.MethodPost, "/api/v1/tokens/decode", `{"token":"garbage"}`, nil)

	var resp audit.ListResult
	doJSON(t, router, http.MethodGet, "/api/v1/audit?action=token_rejected", "", &resp)

	if resp.Total != 1 {
		t.Fatalf("total = %d, want 1", resp.Total)
	}
	if resp.Events[0].Detail["reason"] != "malformed" {
		t.Errorf("reason = %v, want malformed", resp.Events[0].Detail["reason"])
	}
}

func TestAuditList_InvalidLimit(t *testing.T) {
	router := testServer(t).buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/audit?limit=banana", "", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	router := testServer(t).buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	router := testServer(t).buildRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestNotFound(t *testing.T) {
	router := testServer(t).buildRouter()

	w := doJSON(t, router, http.MethodGet, "/api/v1/nonexistent", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// ─── Server Lifecycle Tests ────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Deps{}); err == nil {
		t.Error("expected error with missing dependencies")
	}
}

func TestClose_WithoutStart(t *testing.T) {
	srv := testServer(t)
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start: %v", err)
	}
}
