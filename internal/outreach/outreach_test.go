package outreach

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/use-agent/leadforge/internal/leads"
)

func TestGenerateDraft_ReturnsContentOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(req.Messages))
		}
		resp := chatResponse{}
		resp.Choices = []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		}{{Message: struct {
			Content string `json:"content"`
		}{Content: "Sehr geehrte Damen und Herren,..."}}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	lead, _ := leads.New("Test GmbH", "Handwerk", leads.Address{})
	client := NewClient(nil)
	draft, err := client.GenerateDraft(context.Background(), "Handwerk", "Berlin", []leads.Lead{*lead}, Params{
		APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("GenerateDraft: %v", err)
	}
	if !strings.Contains(draft, "Damen und Herren") {
		t.Errorf("draft = %q, expected greeting", draft)
	}
}

func TestGenerateDraft_CapsSeedAtTwentyLeads(t *testing.T) {
	var seenLeads int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		var seed []leadSummary
		_ = json.Unmarshal([]byte(strings.SplitN(req.Messages[1].Content, "Leads:\n", 2)[1]), &seed)
		seenLeads = len(seed)
		_ = json.NewEncoder(w).Encode(chatResponse{})
	}))
	defer srv.Close()

	batch := make([]leads.Lead, 30)
	for i := range batch {
		l, _ := leads.New("Firma", "Handwerk", leads.Address{})
		batch[i] = *l
	}

	client := NewClient(nil)
	_, err := client.GenerateDraft(context.Background(), "Handwerk", "Berlin", batch, Params{BaseURL: srv.URL})
	if err == nil {
		t.Fatal("expected error since mock returns no choices")
	}
	if seenLeads != maxSeedLeads {
		t.Errorf("seenLeads = %d, want %d", seenLeads, maxSeedLeads)
	}
}

func TestGenerateDraft_PropagatesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]string{"message": "invalid api key"}})
	}))
	defer srv.Close()

	client := NewClient(nil)
	_, err := client.GenerateDraft(context.Background(), "Handwerk", "Berlin", nil, Params{BaseURL: srv.URL})
	if err == nil || !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("err = %v, want it to mention invalid api key", err)
	}
}
