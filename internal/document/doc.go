// Package document is the in-memory rubric being edited: title and
// organization-default metadata plus the ordered blocks, with validation and
// whole-document save/load against a persistence collaborator.
package document
