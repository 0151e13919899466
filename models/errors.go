package models

import "errors"

// Error taxonomy. Collaborator errors are wrapped into one of these at each
// pipeline stage boundary so that raw client error types never cross it.
var (
	// ErrValidation marks empty or invalid caller input.
	ErrValidation = errors.New("invalid input")

	// ErrUnavailable marks an unreachable or uninitialized collaborator
	// (embedder, LLM, vector store).
	ErrUnavailable = errors.New("upstream unavailable")
)
