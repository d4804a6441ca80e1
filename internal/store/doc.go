// Package store provides SQLite-backed storage for rubric documents.
//
// The store keeps:
//   - Rubrics: one row per rubric, scoped to an organization, with the three
//     block collections stored as JSON
//   - Snapshots: immutable copies of a rubric taken when a peer review is
//     submitted, keyed by organization and review
//
// # Rules
//
//   - A create generates a UUIDv7 id; an edit must name an existing rubric
//     of the same organization.
//   - An edit carrying baseUpdatedAt is rejected with rubric.ErrConflict when
//     the stored row has moved on. Edits without it are last-write-wins.
//   - Marking a rubric as organization default clears the flag on every
//     other rubric of the organization in the same transaction. A partial
//     unique index backs this up.
//   - Block orders must be exactly 1..N; anything else is rubric.ErrMalformed.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// ForOrg adapts the store to document.Persistence for one organization.
package store
