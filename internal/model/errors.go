package model

import "errors"

var (
	// ErrInvalidVote rejects vote values outside {-1, +1} before any mutation.
	ErrInvalidVote = errors.New("invalid vote value")

	// ErrNotFound means the idea is not registered with the tally store.
	ErrNotFound = errors.New("idea not found")

	// ErrConflictRetry means the per-pair lock could not be acquired in time.
	// The whole vote operation is safe to retry.
	ErrConflictRetry = errors.New("vote contended")

	// ErrSubscriberClosed means an operation hit a subscriber that has already
	// been unsubscribed or dropped.
	ErrSubscriberClosed = errors.New("subscriber closed")
)
