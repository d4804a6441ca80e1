// Package harness provides scenario testing for rubric editing.
//
// The harness replays a list of edit steps against a real edit session
// backed by an in-memory SQLite store, checks the block order invariant
// after every step, and evaluates assertions on the final document.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: scenario_name
//	description: "What this scenario validates"
//	org_name: "Acme University"
//	template:
//	  file: templates/intro.cue
//	  name: intro
//	steps:
//	  - insert: {heading: "Intro"}
//	  - insert: {prompt: {type: dropdown, text: "Verdict", options: [Accept, Reject]}}
//	  - move: {order: 2, direction: up}
//	    expect: {changed: true}
//	  - delete: {order: 1}
//	  - set_title: "Essay review"
//	  - save: {}
//	  - reload: {}
//	assertions:
//	  - type: view
//	    blocks: ["1 prompt Verdict (Accept, Reject)"]
//	  - type: state
//	    state: clean
//
// # Assertion Types
//
//   - view: the merged ordered view renders exactly as the listed lines
//   - count: the number of blocks of a variant
//   - valid: the document passes validation
//   - invalid: validation reports the given code
//   - state: the session is in the given state
//   - persisted: the stored copy renders the same view as the session
//
// # Deterministic Testing
//
// Each run uses a fresh in-memory database, a deterministic clock and
// sequential rubric ids, so traces are identical across runs and can be
// compared against golden files.
package harness
