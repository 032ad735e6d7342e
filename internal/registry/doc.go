// Package registry maintains the catalog of remote agents the supervisor can
// delegate to. Metadata is loaded from a YAML file, looked up by name during
// plan execution, and may be reloaded between executions but never mutated
// mid-execution.
package registry
