package models

import "time"

// FallbackPolicy decides what a chunk without a usable score contributes to the average
type FallbackPolicy string

const (
	// PolicyNeutral records a 0.0 score and counts it in the average
	PolicyNeutral FallbackPolicy = "neutral"
	// PolicyOmit drops the chunk from the average denominator
	PolicyOmit FallbackPolicy = "omit"
)

// ClassificationMode selects which corpus the pipeline scores
type ClassificationMode string

const (
	ModeCatalog ClassificationMode = "catalog"
	ModeAll     ClassificationMode = "all"
	ModeReplies ClassificationMode = "replies"
)

// UsesThreads reports whether the mode needs full thread fetches
func (m ClassificationMode) UsesThreads() bool {
	return m == ModeAll || m == ModeReplies
}

// HistoryRecord is one append-only entry of the score history
type HistoryRecord struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ChunkResult is the outcome of scoring one chunk.
// Score is nil when the chunk contributed nothing (omit policy).
type ChunkResult struct {
	Index       int      `json:"chunk"` // 1-based
	PostCount   int      `json:"post_count"`
	Score       *float64 `json:"score,omitempty"`
	Explanation string   `json:"explanation"`
	Fallback    bool     `json:"fallback"` // Score is a policy substitute, not a parsed value
	Error       string   `json:"error,omitempty"`
}

// Contributes reports whether the chunk counts toward the average
func (c ChunkResult) Contributes() bool {
	return c.Score != nil
}

// ClassificationOutcome carries a classified corpus to the aggregator
type ClassificationOutcome struct {
	RunID      string
	Backend    string
	Policy     FallbackPolicy
	TotalPosts int
	Chunks     []ChunkResult
	Synthesis  string // Empty when narrative synthesis did not run
}

// AggregateResult is the per-pass summary persisted to the latest-result slot
type AggregateResult struct {
	RunID              string         `json:"run_id"`
	AverageScore       float64        `json:"averageScore"`
	TotalPostCount     int            `json:"totalPostCount"`
	ChunkCount         int            `json:"chunk_count"`
	ContributingChunks int            `json:"contributing_chunks"`
	Backend            string         `json:"backend"`
	Policy             FallbackPolicy `json:"policy"`
	Mode               string         `json:"mode"`
	Timestamp          time.Time      `json:"timestamp"`
}

// ReasoningDocument is the human-readable explanation rebuilt on every pass
type ReasoningDocument struct {
	RunID     string    `json:"run_id"`
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}
