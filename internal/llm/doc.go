// Package llm contains adapters for invoking large language models. It
// abstracts away provider-specific APIs behind a single completion interface
// consumed by the planner and the answer composer.
package llm
