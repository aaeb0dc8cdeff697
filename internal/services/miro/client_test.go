package miro

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dkemmer/servicegate/internal/infrastructure/config"
	"github.com/dkemmer/servicegate/internal/secrets"
)

func testConfig() config.MiroConfig {
	return config.MiroConfig{
		AccessToken: secrets.New("test-token-abc"),
		BoardID:     "uXjVN123=",
	}
}

// newTestClient spins up a fake Miro API and returns a client pointed
// at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(testConfig(), WithBaseURL(srv.URL))
}

func TestAuthorizationHeader(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":[]}`)) //nolint:errcheck
	})

	if _, err := client.BoardItems(context.Background(), ""); err != nil {
		t.Fatalf("BoardItems() error = %v", err)
	}

	if gotAuth != "Bearer test-token-abc" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
}

func TestBoardItems_TypeFilter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if !strings.HasPrefix(r.URL.Path, "/boards/uXjVN123=/items") {
			t.Errorf("path = %q, want board items path", r.URL.Path)
		}
		if got := r.URL.Query().Get("type"); got != "card" {
			t.Errorf("type query = %q, want card", got)
		}
		w.Write([]byte(`{"data":[{"id":"itm-1","type":"card"}]}`)) //nolint:errcheck
	})

	items, err := client.BoardItems(context.Background(), "card")
	if err != nil {
		t.Fatalf("BoardItems() error = %v", err)
	}
	if len(items) != 1 || items[0].ID != "itm-1" {
		t.Errorf("items = %+v, want one item itm-1", items)
	}
}

func TestCreateCard(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding request body: %v", err)
		}
		data, _ := body["data"].(map[string]any)
		if data["content"] != "hello" {
			t.Errorf("content = %v, want hello", data["content"])
		}

		w.Write([]byte(`{"id":"crd-1"}`)) //nolint:errcheck
	})

	card, err := client.CreateCard(context.Background(), "hello", Position{X: 10, Y: 20})
	if err != nil {
		t.Fatalf("CreateCard() error = %v", err)
	}
	if card.ID != "crd-1" {
		t.Errorf("card.ID = %q, want crd-1", card.ID)
	}
}

func TestDo_ErrorOmitsCredentials(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"bad token test-token-abc"}`, http.StatusUnauthorized)
	})

	_, err := client.BoardItems(context.Background(), "")
	if err == nil {
		t.Fatal("BoardItems() should fail on 401")
	}
	if strings.Contains(err.Error(), "test-token-abc") {
		t.Errorf("error %q leaked the token", err)
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error %q should carry the status code", err)
	}
}

func TestCreateRelatedCards_ChainsConnectors(t *testing.T) {
	var cardCount, connectorCount int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/cards"):
			cardCount++
			w.Write([]byte(`{"id":"crd-` + string(rune('0'+cardCount)) + `"}`)) //nolint:errcheck
		case strings.Contains(r.URL.Path, "/connectors"):
			connectorCount++

			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decoding connector body: %v", err)
			}
			data, _ := body["data"].(map[string]any)
			if data["shape"] != "curved" {
				t.Errorf("shape = %v, want curved", data["shape"])
			}

			w.Write([]byte(`{"id":"con-1"}`)) //nolint:errcheck
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	specs := []CardSpec{
		{Content: "first", Position: Position{X: 0, Y: 0}},
		{Content: "second", Position: Position{X: 100, Y: 0}},
		{Content: "third", Position: Position{X: 200, Y: 0}},
	}

	created, err := client.CreateRelatedCards(context.Background(), specs, "curved")
	if err != nil {
		t.Fatalf("CreateRelatedCards() error = %v", err)
	}

	if len(created) != 3 {
		t.Errorf("created %d cards, want 3", len(created))
	}
	if cardCount != 3 {
		t.Errorf("cardCount = %d, want 3", cardCount)
	}
	// n cards yield n-1 connections.
	if connectorCount != 2 {
		t.Errorf("connectorCount = %d, want 2", connectorCount)
	}
}

func TestDeleteCard(t *testing.T) {
	var gotMethod, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	})

	if err := client.DeleteCard(context.Background(), "crd-9"); err != nil {
		t.Fatalf("DeleteCard() error = %v", err)
	}
	if gotMethod != http.MethodDelete {
		t.Errorf("method = %s, want DELETE", gotMethod)
	}
	if !strings.HasSuffix(gotPath, "/cards/crd-9") {
		t.Errorf("path = %q, want card path", gotPath)
	}
}

func TestContextCancellation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := client.BoardItems(ctx, ""); err == nil {
		t.Error("BoardItems() should fail when the context is cancelled")
	}
}
