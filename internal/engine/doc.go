// Package engine implements the rubric block store and its ordering engine.
//
// A rubric keeps its blocks in three typed collections (headings, text
// blocks, prompts) but presents them as one document. Every block carries an
// order: a dense 1-based rank shared by all three collections.
//
// INVARIANT:
//
// After every mutation the multiset of orders across all collections is
// exactly {1..N} where N is the number of blocks. The operations below each
// preserve it in a single pass:
//   - Insert appends at LastOrder()+1
//   - Move swaps the order values of two adjacent blocks, whatever their
//     collections; the collections themselves are never reordered
//   - Delete removes a block and decrements every order above it
//
// Blocks are addressed by order, never by array position. Operations on an
// order that does not exist are no-ops reporting changed=false; they indicate
// a stale view in the caller, not a data problem.
//
// The engine is synchronous and in-memory. It is not safe for concurrent use;
// callers (the edit session) serialise access.
package engine
