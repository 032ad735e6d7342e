// Package supervisor ties the query pipeline together: it loads the agent
// registry, plans the query, executes the plan, composes the final answer and
// records conversation history plus usage audit entries.
package supervisor
