// Package config loads the supervisor daemon configuration from a JSON file,
// fills in defaults and resolves relative paths against the config directory.
// Secrets such as the LLM API key can be supplied through the environment.
package config
