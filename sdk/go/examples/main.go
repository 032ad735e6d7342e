package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"Supervisor-Integration-Agent/sdk/go/supervisor"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/query", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(supervisor.QueryResult{
			Answer:         "The knowledge base has been updated.",
			ConversationID: "conv-demo",
			UsedAgents: []supervisor.UsedAgent{
				{Name: "KnowledgeBaseBuilderAgent", Intent: "create_task", Status: "success"},
				{Name: "task_dependency_agent", Intent: "task.resolve_dependencies", Status: "success"},
			},
		})
	})
	mux.HandleFunc("/api/agents", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"agents": []supervisor.AgentInfo{
				{Name: "KnowledgeBaseBuilderAgent", Type: "http", Endpoint: "http://kb-agent:9100/invoke"},
			},
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client, err := supervisor.NewClient(srv.URL, srv.Client())
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	agents, err := client.Agents(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("registry lists %d agent(s)\n", len(agents))

	result, err := client.Query(ctx, supervisor.QueryRequest{
		Query:  "rebuild the knowledge base from the latest documents",
		UserID: "demo-user",
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("answer: %s\n", result.Answer)
	for _, used := range result.UsedAgents {
		fmt.Printf("used %s (%s) -> %s\n", used.Name, used.Intent, used.Status)
	}
}
