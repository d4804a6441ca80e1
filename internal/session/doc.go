// Package session drives one rubric edit from load to save.
//
// A Session owns a document.Document and moves through the states
// loading, clean, dirty, saving and load_error. Mutations are accepted only
// in clean or dirty, and are rejected with ErrBusy while a save is in
// flight. Load and save are the only blocking operations; both take a
// context and run without holding the session lock.
//
// Every load is tagged with a generation number. Close and any newer Load
// bump the generation, so a load that finishes late is discarded instead of
// overwriting the state the user has since moved on from.
package session
