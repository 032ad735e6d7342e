// Package api exposes the REST surface of the supervisor: query submission,
// agent catalogue listing and health checks. File uploads arrive inline as
// markers embedded in the query text and are lifted into the call context.
package api
