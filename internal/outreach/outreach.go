// Package outreach drafts a cold-outreach email using an OpenAI-
// compatible chat completion endpoint, seeded with a batch of leads.
// It is an optional finishing step a CLI run can trigger once leads
// have been collected and filtered; nothing else in the pipeline
// depends on it.
package outreach

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/use-agent/leadforge/internal/leads"
)

// maxSeedLeads caps how many leads are embedded in the prompt, keeping
// the request within a reasonable token budget.
const maxSeedLeads = 20

// Client is a lightweight OpenAI-compatible chat completion client —
// no SDK needed for a single endpoint call.
type Client struct {
	httpClient *http.Client
}

// NewClient builds a Client. Pass nil to use a fresh http.Client with
// default settings.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{httpClient: httpClient}
}

// Params holds per-request LLM configuration (bring your own key).
type Params struct {
	APIKey  string
	Model   string
	BaseURL string // e.g. "https://api.openai.com/v1"
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateDraft asks the configured LLM for a cold-outreach email
// template, seeded with the category/city context and a sample of the
// collected leads.
func (c *Client) GenerateDraft(ctx context.Context, category, city string, batch []leads.Lead, params Params) (string, error) {
	seed := batch
	if len(seed) > maxSeedLeads {
		seed = seed[:maxSeedLeads]
	}

	seedJSON, err := json.Marshal(seedSummaries(seed))
	if err != nil {
		return "", fmt.Errorf("outreach: marshal lead seed: %w", err)
	}

	reqBody := chatRequest{
		Model: params.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Branche: %s\nStadt: %s\nLeads:\n%s", category, city, seedJSON)},
		},
		Temperature: 0.7,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("outreach: marshal request: %w", err)
	}

	endpoint := strings.TrimRight(params.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("outreach: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+params.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("outreach: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("outreach: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatErrorResponse
		msg := "LLM API error"
		if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error.Message != "" {
			msg = errResp.Error.Message
		}
		return "", fmt.Errorf("outreach: %s (status %d)", msg, resp.StatusCode)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return "", fmt.Errorf("outreach: parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("outreach: LLM returned no choices")
	}

	return chatResp.Choices[0].Message.Content, nil
}

type leadSummary struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	City       string `json:"city"`
	Phone      string `json:"phone,omitempty"`
	WebsiteURL string `json:"website_url,omitempty"`
	Status     string `json:"website_status"`
}

func seedSummaries(batch []leads.Lead) []leadSummary {
	out := make([]leadSummary, len(batch))
	for i, l := range batch {
		out[i] = leadSummary{
			Name:       l.Name,
			Category:   l.Category,
			City:       l.Address.City(),
			Phone:      l.Phone,
			WebsiteURL: l.WebsiteURL,
			Status:     l.Verdict.Status.String(),
		}
	}
	return out
}

const systemPrompt = `You are a copywriter drafting a short, friendly cold-outreach email template for a web agency. The recipient businesses either have no website or an outdated one. Write one reusable German-language email draft (not one per lead) that:
- opens with a personalized placeholder for the business name
- briefly notes the value of a modern web presence
- ends with a clear, low-pressure call to action

Return only the email draft text, no commentary.`
