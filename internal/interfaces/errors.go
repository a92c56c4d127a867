package interfaces

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by single-slot stores that have not been written yet
	ErrNotFound = errors.New("not found")
	// ErrPassInProgress is returned when a pass is requested while one is running
	ErrPassInProgress = errors.New("pipeline pass already in progress")
	// ErrSynthesisUnsupported is returned by backends that cannot write free text
	ErrSynthesisUnsupported = errors.New("backend does not support narrative synthesis")
)

// TransientFetchError reports a failed board or thread fetch. The unit is skipped.
type TransientFetchError struct {
	Board    string
	ThreadNo int64 // 0 for catalog fetches
	Err      error
}

func (e *TransientFetchError) Error() string {
	if e.ThreadNo != 0 {
		return fmt.Sprintf("fetch /%s/ thread %d: %v", e.Board, e.ThreadNo, e.Err)
	}
	return fmt.Sprintf("fetch /%s/ catalog: %v", e.Board, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// MalformedResponseError reports a backend reply without a usable score
type MalformedResponseError struct {
	Chunk  int
	Reason string
}

func (e *MalformedResponseError) Error() string {
	if e.Chunk > 0 {
		return fmt.Sprintf("chunk %d: malformed response: %s", e.Chunk, e.Reason)
	}
	return fmt.Sprintf("malformed response: %s", e.Reason)
}

// BackendUnavailableError reports a scoring call that failed or timed out
type BackendUnavailableError struct {
	Backend string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Backend, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Err }

// PersistenceError reports a failed history, result or reasoning write. It fails the pass.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// CorpusUnavailableError reports a missing snapshot. The board contributes zero posts.
type CorpusUnavailableError struct {
	Board string
	Err   error
}

func (e *CorpusUnavailableError) Error() string {
	return fmt.Sprintf("corpus for /%s/ unavailable: %v", e.Board, e.Err)
}

func (e *CorpusUnavailableError) Unwrap() error { return e.Err }
