package rubric

import "errors"

// Sentinel errors shared by the persistence implementations and their callers.
var (
	// ErrNotFound is returned when no rubric exists for an id.
	ErrNotFound = errors.New("rubric not found")

	// ErrConflict is returned when a save is based on an outdated copy, or
	// when a review already has a snapshot of a different rubric. Saving a
	// new organization default is not a conflict; the previous default is
	// demoted.
	ErrConflict = errors.New("rubric conflict")

	// ErrMalformed is returned when a stored or received payload cannot be decoded.
	ErrMalformed = errors.New("malformed rubric payload")

	// ErrInvalidID is returned when a rubric id is missing or not well formed.
	ErrInvalidID = errors.New("invalid rubric id")
)
