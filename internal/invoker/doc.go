// Package invoker dispatches handshake requests to remote agents. It is the
// reliability boundary of the system: every transport fault, misconfiguration
// or unsupported capability is converted into a structured error response, so
// a plan execution can never crash because one agent is unreachable.
package invoker
