// Package supervisor provides a small HTTP client for the supervisor REST API.
package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the supervisor REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// QueryRequest is the payload for submitting a query.
type QueryRequest struct {
	Query          string `json:"query"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// UsedAgent records one agent invocation made while answering a query.
type UsedAgent struct {
	Name   string `json:"name"`
	Intent string `json:"intent"`
	Status string `json:"status"`
}

// StepResult is the normalized response a single plan step produced.
type StepResult struct {
	RequestID string      `json:"request_id"`
	AgentName string      `json:"agent_name"`
	Status    string      `json:"status"`
	Output    *StepOutput `json:"output,omitempty"`
	Error     *StepError  `json:"error,omitempty"`
}

// StepOutput carries the step's result payload.
type StepOutput struct {
	Result any `json:"result"`
}

// StepError describes a failed step.
type StepError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// QueryResult is the full reply to a submitted query.
type QueryResult struct {
	Answer              string                `json:"answer"`
	ConversationID      string                `json:"conversation_id"`
	UsedAgents          []UsedAgent           `json:"used_agents"`
	IntermediateResults map[string]StepResult `json:"intermediate_results"`
}

// AgentInfo describes one registry entry.
type AgentInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Endpoint  string `json:"endpoint,omitempty"`
	TimeoutMS int    `json:"timeout_ms"`
}

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("supervisor api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the supervisor API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Query submits a user query and returns the composed answer.
func (c *Client) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	var result QueryResult
	if err := c.post(ctx, "/api/query", req, &result); err != nil {
		return QueryResult{}, err
	}
	return result, nil
}

// Agents lists the agents currently present in the registry.
func (c *Client) Agents(ctx context.Context) ([]AgentInfo, error) {
	var body struct {
		Agents []AgentInfo `json:"agents"`
	}
	if err := c.get(ctx, "/api/agents", &body); err != nil {
		return nil, err
	}
	return body.Agents, nil
}

// Health reports whether the service answers its liveness probe.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/health", nil)
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	rel := &url.URL{Path: path.Join(c.baseURL.Path, endpoint)}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
