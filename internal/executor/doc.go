// Package executor drives an ordered plan of agent invocations. It resolves
// each step's input from prior results, dispatches through the invoker,
// maintains the per-execution step-output ledger and usage log, and applies
// the conditional auto-chain rule. Execution never short-circuits: a failed
// step produces an error-status ledger entry and the loop continues.
package executor
