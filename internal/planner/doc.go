// Package planner turns a user query into an ordered execution plan by
// asking a language model to pick agents from the registry. A malformed
// model reply degrades to a deterministic single-step plan instead of
// failing the query.
package planner
