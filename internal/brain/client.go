// Package brain wraps the external reasoning service's HTTP API. The
// service owns personas, memories, and the language model; this client
// only ships snapshots out and decisions back. All pacing is client-side
// — the service is treated as best-effort with no assumed server limits.
package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a running brain server. A nil Client is valid and
// reports disabled, mirroring how the simulation runs headless without
// reasoning.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a brain client. Returns nil if baseURL is empty
// (reasoning features disabled).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		return nil
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Enabled reports whether the client is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != ""
}

// AgentSnapshot is the outbound per-agent state for a decide call.
type AgentSnapshot struct {
	ID        string             `json:"id"`
	Role      string             `json:"role"`
	Pos       [2]float64         `json:"pos"` // [x, y] in grid coords
	Needs     map[string]float64 `json:"needs"`
	TimeOfDay string             `json:"time_of_day,omitempty"`
}

// NextIntent is the destination category a decision names.
type NextIntent struct {
	Category string `json:"category"`
	Name     string `json:"name,omitempty"`
}

// Decision is one inbound per-agent result.
type Decision struct {
	ID         string     `json:"id"`
	NextIntent NextIntent `json:"next_intent"`
	Thought    string     `json:"thought,omitempty"`
}

// RegisterAgent enrolls one agent with the service at run start.
type RegisterAgent struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	Seed int64  `json:"seed,omitempty"`
}

// ChatPair names two agents for a meeting exchange.
type ChatPair struct {
	AID string `json:"aId"`
	BID string `json:"bId"`
}

// ChatLine is the two-sided exchange for one pair. Rendered only; it
// must never alter needs or goals.
type ChatLine struct {
	AID   string `json:"aId"`
	BID   string `json:"bId"`
	ALine string `json:"a_line"`
	BLine string `json:"b_line"`
}

// StartRun opens a run on the service and returns its id.
func (c *Client) StartRun(ctx context.Context, hypothesisID string, seed int64, speed float64) (string, error) {
	req := map[string]any{"hypothesisId": hypothesisID, "seed": seed, "speed": speed}
	var resp struct {
		RunID string `json:"runId"`
	}
	if err := c.post(ctx, "/start_run", req, &resp); err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}
	if resp.RunID == "" {
		return "", fmt.Errorf("start run: empty runId")
	}
	return resp.RunID, nil
}

// RegisterAgents enrolls the eligible agents for a run.
func (c *Client) RegisterAgents(ctx context.Context, runID string, agents []RegisterAgent) error {
	req := map[string]any{"runId": runID, "agents": agents}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.post(ctx, "/register_agents", req, &resp); err != nil {
		return fmt.Errorf("register agents: %w", err)
	}
	return nil
}

// Decide requests one decision per snapshot. The service may return
// fewer decisions than snapshots; callers must treat missing or unknown
// ids as per-agent no-ops, not batch failures.
func (c *Client) Decide(ctx context.Context, runID string, snapshots []AgentSnapshot, extra map[string]any) ([]Decision, error) {
	req := map[string]any{"runId": runID, "agents": snapshots, "context": extra}
	var resp struct {
		Decisions []Decision `json:"decisions"`
	}
	if err := c.post(ctx, "/decide", req, &resp); err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	return resp.Decisions, nil
}

// Chat requests a short two-sided exchange for each meeting pair.
func (c *Client) Chat(ctx context.Context, runID string, pairs []ChatPair, extra map[string]any) ([]ChatLine, error) {
	req := map[string]any{"runId": runID, "pairs": pairs, "context": extra}
	var resp struct {
		Pairs []ChatLine `json:"pairs"`
	}
	if err := c.post(ctx, "/chat", req, &resp); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}
	return resp.Pairs, nil
}

// Metrics forwards telemetry samples. Fire-and-forget: callers log
// failures and move on.
func (c *Client) Metrics(ctx context.Context, runID string, samples []map[string]any) error {
	req := map[string]any{"runId": runID, "samples": samples}
	var resp struct {
		OK bool `json:"ok"`
	}
	if err := c.post(ctx, "/metrics", req, &resp); err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	return nil
}

// EndRun closes a run on the service.
func (c *Client) EndRun(ctx context.Context, runID string) error {
	req := map[string]any{"runId": runID}
	if err := c.post(ctx, "/end_run", req, nil); err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, respBody any) error {
	if !c.Enabled() {
		return fmt.Errorf("brain client not configured")
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("API call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error %d: %s", resp.StatusCode, string(raw))
	}
	if respBody == nil {
		return nil
	}
	if err := json.Unmarshal(raw, respBody); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
