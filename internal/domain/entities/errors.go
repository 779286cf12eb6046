// Package entities - errors.go declares the sentinel errors shared across layers.
package entities

import "errors"

// Domain errors. Adapters and use cases wrap these with %w.
var (
	ErrProviderUnavailable      = errors.New("provider unavailable")
	ErrProviderCallFailed       = errors.New("provider call failed")
	ErrKnowledgeBaseUnavailable = errors.New("knowledge base not initialized")
	ErrMalformedModelOutput     = errors.New("malformed model output")
	ErrDuplicateDocument        = errors.New("document already exists")
	ErrDocumentNotFound         = errors.New("document not found")
	ErrStorage                  = errors.New("storage failure")
	ErrEmptyContent             = errors.New("content is empty")
	ErrSessionNotFound          = errors.New("session not found")
	ErrInvalidPhase             = errors.New("invalid phase transition")
	ErrStaleReview              = errors.New("review is stale")
)
