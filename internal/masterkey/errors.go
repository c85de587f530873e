package masterkey

import "errors"

var (
	// ErrInvalidRecord indicates the incoming record carries no query text.
	// It is raised before any retrieval attempt.
	ErrInvalidRecord = errors.New("record has no query text")

	// ErrKeySpaceExhausted indicates the key generator could not produce an
	// identifier absent from the registry within its attempt budget. This is
	// an internal invariant violation, not a recoverable condition.
	ErrKeySpaceExhausted = errors.New("key generation exhausted without a unique master key")

	// ErrRecordConflict indicates a reuse outcome would place a record name
	// into a second master key group.
	ErrRecordConflict = errors.New("record already assigned to a different master key")
)

// RetrievalError wraps a candidate retriever failure. When it is returned
// the registry snapshot passed to Assign was not touched; callers should
// retry the whole assignment.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string {
	if e == nil || e.Err == nil {
		return "candidate retrieval failed"
	}
	return "candidate retrieval: " + e.Err.Error()
}

func (e *RetrievalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
