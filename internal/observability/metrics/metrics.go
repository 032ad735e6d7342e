// Package metrics collects supervisor runtime metrics and exposes them in
// Prometheus text exposition format. Both the HTTP surface and the agent
// invocation path report here.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type requestKey struct {
	handler string
	method  string
	code    string
}

type invocationKey struct {
	agent  string
	status string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram() *histogram {
	buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			break
		}
	}
	// Values greater than the last bucket are accounted for in the +Inf bucket via h.count.
}

type collector struct {
	mu              sync.Mutex
	requests        map[requestKey]uint64
	requestLatency  map[string]*histogram
	invocations     map[invocationKey]uint64
	invokeLatency   map[string]*histogram
	invocationFails map[string]uint64
}

var defaultCollector = &collector{
	requests:        make(map[requestKey]uint64),
	requestLatency:  make(map[string]*histogram),
	invocations:     make(map[invocationKey]uint64),
	invokeLatency:   make(map[string]*histogram),
	invocationFails: make(map[string]uint64),
}

// ObserveHTTPRequest records metrics about an HTTP request lifecycle.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	c := defaultCollector
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests[requestKey{handler: handler, method: method, code: strconv.Itoa(status)}]++
	hist := c.requestLatency[handler]
	if hist == nil {
		hist = newHistogram()
		c.requestLatency[handler] = hist
	}
	hist.observe(duration.Seconds())
}

// ObserveAgentInvocation records the outcome and latency of one agent call.
func ObserveAgentInvocation(agent, status string, duration time.Duration) {
	c := defaultCollector
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invocations[invocationKey{agent: agent, status: status}]++
	if status != "success" {
		c.invocationFails[agent]++
	}
	hist := c.invokeLatency[agent]
	if hist == nil {
		hist = newHistogram()
		c.invokeLatency[agent] = hist
	}
	hist.observe(duration.Seconds())
}

// Handler exposes the metrics in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, defaultCollector.render())
	})
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var builder strings.Builder
	builder.Grow(1024)

	type requestMetric struct {
		requestKey
		value uint64
	}
	reqs := make([]requestMetric, 0, len(c.requests))
	for key, value := range c.requests {
		reqs = append(reqs, requestMetric{requestKey: key, value: value})
	}
	sort.Slice(reqs, func(i, j int) bool {
		if reqs[i].handler == reqs[j].handler {
			if reqs[i].method == reqs[j].method {
				return reqs[i].code < reqs[j].code
			}
			return reqs[i].method < reqs[j].method
		}
		return reqs[i].handler < reqs[j].handler
	})

	builder.WriteString("# HELP supervisor_http_requests_total Total number of HTTP requests processed.\n")
	builder.WriteString("# TYPE supervisor_http_requests_total counter\n")
	for _, metric := range reqs {
		builder.WriteString(fmt.Sprintf("supervisor_http_requests_total{handler=\"%s\",method=\"%s\",code=\"%s\"} %d\n",
			escape(metric.handler), escape(metric.method), escape(metric.code), metric.value))
	}

	renderHistograms(&builder, "supervisor_http_request_duration_seconds",
		"HTTP request duration in seconds.", "handler", c.requestLatency)

	type invocationMetric struct {
		invocationKey
		value uint64
	}
	invs := make([]invocationMetric, 0, len(c.invocations))
	for key, value := range c.invocations {
		invs = append(invs, invocationMetric{invocationKey: key, value: value})
	}
	sort.Slice(invs, func(i, j int) bool {
		if invs[i].agent == invs[j].agent {
			return invs[i].status < invs[j].status
		}
		return invs[i].agent < invs[j].agent
	})

	builder.WriteString("# HELP supervisor_agent_invocations_total Total number of agent invocations by outcome.\n")
	builder.WriteString("# TYPE supervisor_agent_invocations_total counter\n")
	for _, metric := range invs {
		builder.WriteString(fmt.Sprintf("supervisor_agent_invocations_total{agent=\"%s\",status=\"%s\"} %d\n",
			escape(metric.agent), escape(metric.status), metric.value))
	}

	fails := make([]string, 0, len(c.invocationFails))
	for agent := range c.invocationFails {
		fails = append(fails, agent)
	}
	sort.Strings(fails)

	builder.WriteString("# HELP supervisor_agent_invocation_errors_total Total number of agent invocations that returned an error status.\n")
	builder.WriteString("# TYPE supervisor_agent_invocation_errors_total counter\n")
	for _, agent := range fails {
		builder.WriteString(fmt.Sprintf("supervisor_agent_invocation_errors_total{agent=\"%s\"} %d\n",
			escape(agent), c.invocationFails[agent]))
	}

	renderHistograms(&builder, "supervisor_agent_invocation_duration_seconds",
		"Agent invocation duration in seconds.", "agent", c.invokeLatency)

	return builder.String()
}

func renderHistograms(builder *strings.Builder, name, help, label string, histograms map[string]*histogram) {
	keys := make([]string, 0, len(histograms))
	for key := range histograms {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	builder.WriteString(fmt.Sprintf("# HELP %s %s\n", name, help))
	builder.WriteString(fmt.Sprintf("# TYPE %s histogram\n", name))
	for _, key := range keys {
		hist := histograms[key]
		for idx, bound := range hist.buckets {
			builder.WriteString(fmt.Sprintf("%s_bucket{%s=\"%s\",le=\"%s\"} %d\n",
				name, label, escape(key), formatFloat(bound), hist.counts[idx]))
		}
		builder.WriteString(fmt.Sprintf("%s_bucket{%s=\"%s\",le=\"+Inf\"} %d\n", name, label, escape(key), hist.count))
		builder.WriteString(fmt.Sprintf("%s_sum{%s=\"%s\"} %s\n", name, label, escape(key), formatFloat(hist.sum)))
		builder.WriteString(fmt.Sprintf("%s_count{%s=\"%s\"} %d\n", name, label, escape(key), hist.count))
	}
}

func escape(value string) string {
	value = strings.ReplaceAll(value, "\\", "\\\\")
	value = strings.ReplaceAll(value, "\"", "\\\"")
	value = strings.ReplaceAll(value, "\n", "")
	return value
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// StartServer launches a standalone HTTP server exposing the /metrics endpoint.
func StartServer(ctx context.Context, addr string) error {
	if addr == "" {
		return errors.New("metrics address is empty")
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
