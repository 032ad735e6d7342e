// Package audit transports invocation usage entries from the query path to
// observability tooling. Entries are published to a queue after each plan
// execution and consumed asynchronously by a sink that mirrors them to the
// audit log and raises alerts on error-status invocations.
package audit
