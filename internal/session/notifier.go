package session

import "github.com/roach88/rubric/internal/document"

// Notifier receives the signals the presentation layer reacts to.
// Calls are made outside the session lock, from the goroutine that ran the
// operation.
type Notifier interface {
	// Created fires after the first successful save of a new rubric.
	Created(rubricID string)

	// Saved fires after a successful save of an existing rubric.
	Saved(rubricID string)

	// Invalid fires when validation blocks a save.
	Invalid(errs document.ValidationErrors)

	// Failed fires for load and save errors.
	Failed(err error)
}

// NopNotifier ignores every signal.
type NopNotifier struct{}

func (NopNotifier) Created(string)                    {}
func (NopNotifier) Saved(string)                      {}
func (NopNotifier) Invalid(document.ValidationErrors) {}
func (NopNotifier) Failed(error)                      {}
