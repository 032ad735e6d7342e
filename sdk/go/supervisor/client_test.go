package supervisor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestQuerySuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/query" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "hello" {
			t.Fatalf("unexpected query: %q", req.Query)
		}
		_ = json.NewEncoder(w).Encode(QueryResult{
			Answer:         "hi there",
			ConversationID: "conv-1",
			UsedAgents:     []UsedAgent{{Name: "echo", Intent: "process_query", Status: "success"}},
			IntermediateResults: map[string]StepResult{
				"step_1": {RequestID: "req-1", AgentName: "echo", Status: "success"},
			},
		})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	result, err := client.Query(context.Background(), QueryRequest{Query: "hello"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if result.Answer != "hi there" || result.ConversationID != "conv-1" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if len(result.UsedAgents) != 1 || result.UsedAgents[0].Name != "echo" {
		t.Fatalf("unexpected used agents: %+v", result.UsedAgents)
	}
	if _, ok := result.IntermediateResults["step_1"]; !ok {
		t.Fatalf("missing step_1: %+v", result.IntermediateResults)
	}
}

func TestQueryAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"查询内容不能为空"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.Query(context.Background(), QueryRequest{})
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Message == "" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestAgents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/agents" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"agents":[{"name":"echo","type":"http","endpoint":"http://agent:9100/invoke","timeout_ms":5000}]}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	agents, err := client.Agents(context.Background())
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	if len(agents) != 1 || agents[0].Name != "echo" || agents[0].TimeoutMS != 5000 {
		t.Fatalf("unexpected agents: %+v", agents)
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	client, err := NewClient(server.URL, server.Client())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if err := client.Health(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}
