// Package protocol defines the normalized handshake exchanged with remote
// agents: the request envelope built per invocation, the response envelope
// parsed from the agent reply, and the error taxonomy both sides agree on.
package protocol
