// Package rubric provides the block and document types for peer review rubrics.
//
// This package contains type definitions and the content hash only. All other
// internal packages import rubric; rubric imports nothing internal.
//
// Key design constraints:
//   - Block is a closed sum type: Heading, TextBlock and Prompt
//   - Order is a dense 1-based rank shared by all three variants
//   - Dropdown options carry no order field; array position is their order
//   - All JSON tags use camelCase to match the persistence API
package rubric
