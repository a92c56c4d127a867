package interfaces

import (
	"context"

	"github.com/ternarybob/portent/internal/models"
)

// RequestKind distinguishes chunk scoring from narrative synthesis
type RequestKind string

const (
	RequestChunk     RequestKind = "chunk"
	RequestSynthesis RequestKind = "synthesis"
)

// ScoringRequest is one call to a scoring backend
type ScoringRequest struct {
	Kind              RequestKind
	SystemInstruction string
	Text              string   // Concatenated chunk text (or explanations for synthesis)
	Posts             []string // Individual posts, for backends that score post by post
}

// ScoringBackend turns text into a free-text reply that should contain a
// "score:<number>" marker. Callers must not depend on which implementation is used.
type ScoringBackend interface {
	Name() string
	// DefaultPolicy is the fallback policy the backend was tuned for
	DefaultPolicy() models.FallbackPolicy
	Score(ctx context.Context, request *ScoringRequest) (string, error)
	Close() error
}
