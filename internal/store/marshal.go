package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/rubric/internal/rubric"
)

// marshalBlocks converts one block collection to JSON TEXT for storage.
// A nil collection is stored as "[]".
func marshalBlocks[T any](blocks []T) (string, error) {
	if blocks == nil {
		return "[]", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false) // Markdown text blocks keep <, > and & as typed
	if err := enc.Encode(blocks); err != nil {
		return "", fmt.Errorf("marshal blocks: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalBlocks parses a JSON TEXT block collection.
// Stored rows that fail to decode are reported as rubric.ErrMalformed.
func unmarshalBlocks[T any](data string) ([]T, error) {
	if data == "" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal blocks: %w: %v", rubric.ErrMalformed, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// marshalDocument converts a whole rubric to JSON TEXT for snapshots.
func marshalDocument(r rubric.Rubric) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalDocument parses a snapshot document.
func unmarshalDocument(data string) (rubric.Rubric, error) {
	var r rubric.Rubric
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return rubric.Rubric{}, fmt.Errorf("unmarshal document: %w: %v", rubric.ErrMalformed, err)
	}
	return r, nil
}

// toNanos and fromNanos convert timestamps to and from the INTEGER columns.
func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}
