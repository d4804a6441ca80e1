package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/roach88/rubric/internal/rubric"
)

// MemPersistence is an in-memory persistence collaborator for tests.
// It follows the same create/edit, conflict and organization-default rules
// as the SQLite store, and lets tests inject failures and delays.
type MemPersistence struct {
	mu      sync.Mutex
	OrgID   string
	Clock   *DeterministicClock
	IDs     *SequentialIDs
	rubrics map[string]rubric.Rubric

	// GetErr and PutErr, when set, are returned by the next calls.
	GetErr error
	PutErr error

	// BeforeGet runs before GetRubric reads; tests use it to hold a load
	// in flight. Its error is returned as the load error.
	BeforeGet func(ctx context.Context) error

	Gets int
	Puts []rubric.PutRequest
}

// NewMemPersistence creates an empty collaborator for orgID.
func NewMemPersistence(orgID string) *MemPersistence {
	return &MemPersistence{
		OrgID:   orgID,
		Clock:   NewDeterministicClock(),
		IDs:     NewSequentialIDs("rubric"),
		rubrics: make(map[string]rubric.Rubric),
	}
}

// Seed stores r as-is under r.RubricID, bypassing the PUT rules.
func (m *MemPersistence) Seed(r rubric.Rubric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rubrics[r.RubricID] = deepCopy(r)
}

// Stored returns a copy of the stored rubric, if any.
func (m *MemPersistence) Stored(id string) (rubric.Rubric, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rubrics[id]
	return deepCopy(r), ok
}

// GetRubric implements document.Persistence.
func (m *MemPersistence) GetRubric(ctx context.Context, id string) (*rubric.Rubric, error) {
	if m.BeforeGet != nil {
		if err := m.BeforeGet(ctx); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	r, ok := m.rubrics[id]
	if !ok {
		return nil, fmt.Errorf("get rubric %s: %w", id, rubric.ErrNotFound)
	}
	out := deepCopy(r)
	return &out, nil
}

// GetOrgDefault implements document.Persistence.
func (m *MemPersistence) GetOrgDefault(ctx context.Context) (rubric.OrgDefaultStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := rubric.OrgDefaultStatus{OrgID: m.OrgID}
	for _, r := range m.rubrics {
		if r.IsOrgDefault {
			status.HasDefault = true
		}
	}
	return status, nil
}

// PutRubric implements document.Persistence.
func (m *MemPersistence) PutRubric(ctx context.Context, req rubric.PutRequest) (rubric.PutResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts = append(m.Puts, req)
	if m.PutErr != nil {
		return rubric.PutResponse{}, m.PutErr
	}

	now := m.Clock.Now()
	r := rubric.Rubric{
		RubricTitle: req.RubricTitle,
		Headings:    req.Headings,
		TextBlocks:  req.TextBlocks,
		Prompts:     req.Prompts,
		UpdatedAt:   now,
	}
	if req.OrgDefault != nil {
		r.IsOrgDefault = *req.OrgDefault
	}

	switch req.Mode {
	case rubric.ModeCreate:
		r.RubricID = m.IDs.Generate()
		r.CreatedAt = now
	case rubric.ModeEdit:
		existing, ok := m.rubrics[req.RubricID]
		if !ok {
			return rubric.PutResponse{}, fmt.Errorf("put rubric %s: %w", req.RubricID, rubric.ErrNotFound)
		}
		if !req.BaseUpdatedAt.IsZero() && !req.BaseUpdatedAt.Equal(existing.UpdatedAt) {
			return rubric.PutResponse{}, fmt.Errorf("put rubric %s: %w", req.RubricID, rubric.ErrConflict)
		}
		r.RubricID = req.RubricID
		r.CreatedAt = existing.CreatedAt
	default:
		return rubric.PutResponse{}, fmt.Errorf("put rubric: unknown mode %q", req.Mode)
	}

	if r.IsOrgDefault {
		for id, other := range m.rubrics {
			if id != r.RubricID && other.IsOrgDefault {
				other.IsOrgDefault = false
				m.rubrics[id] = other
			}
		}
	}
	m.rubrics[r.RubricID] = deepCopy(r)
	return rubric.PutResponse{RubricID: r.RubricID, UpdatedAt: now}, nil
}

// deepCopy round-trips through JSON so no slice is shared with callers.
func deepCopy(r rubric.Rubric) rubric.Rubric {
	data, err := json.Marshal(r)
	if err != nil {
		panic(fmt.Sprintf("testutil: copy rubric: %v", err))
	}
	var out rubric.Rubric
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("testutil: copy rubric: %v", err))
	}
	return out
}
