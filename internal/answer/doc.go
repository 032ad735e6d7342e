// Package answer composes the final user-facing reply from the outputs the
// executed plan collected. It prefers a language-model synthesis and falls
// back to a plain summary when the model is unavailable.
package answer
