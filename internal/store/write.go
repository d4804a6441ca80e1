package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rubric/internal/engine"
	"github.com/roach88/rubric/internal/rubric"
)

// PutRubric creates or replaces a whole rubric for orgID.
//
// In create mode a new id is generated. In edit mode the rubric must exist
// in the same organization, otherwise rubric.ErrNotFound is returned; a
// non-zero BaseUpdatedAt that no longer matches the stored row yields
// rubric.ErrConflict. The read-check-write runs in one transaction.
func (s *Store) PutRubric(ctx context.Context, orgID string, req rubric.PutRequest) (rubric.PutResponse, error) {
	if orgID == "" {
		return rubric.PutResponse{}, errors.New("put rubric: organization id is required")
	}

	doc := rubric.Rubric{
		RubricTitle: req.RubricTitle,
		Headings:    req.Headings,
		TextBlocks:  req.TextBlocks,
		Prompts:     req.Prompts,
	}
	if err := engine.FromRubric(doc).CheckInvariant(); err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric: %w: %v", rubric.ErrMalformed, err)
	}
	hash, err := rubric.ContentHash(doc)
	if err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric: %w", err)
	}

	headings, err := marshalBlocks(req.Headings)
	if err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric: %w", err)
	}
	textBlocks, err := marshalBlocks(req.TextBlocks)
	if err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric: %w", err)
	}
	prompts, err := marshalBlocks(req.Prompts)
	if err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	now := s.now().UTC()
	var (
		id         string
		orgDefault bool
	)

	switch req.Mode {
	case rubric.ModeCreate:
		id, err = s.newID()
		if err != nil {
			return rubric.PutResponse{}, fmt.Errorf("put rubric: generate id: %w", err)
		}
		if req.OrgDefault != nil {
			orgDefault = *req.OrgDefault
		}

	case rubric.ModeEdit:
		id = req.RubricID
		var (
			storedUpdated int64
			storedDefault bool
		)
		err := tx.QueryRowContext(ctx, `
			SELECT updated_at, is_org_default FROM rubrics WHERE id = ? AND org_id = ?
		`, id, orgID).Scan(&storedUpdated, &storedDefault)
		if errors.Is(err, sql.ErrNoRows) {
			return rubric.PutResponse{}, fmt.Errorf("put rubric %s: %w", id, rubric.ErrNotFound)
		}
		if err != nil {
			return rubric.PutResponse{}, fmt.Errorf("put rubric %s: %w", id, err)
		}
		if !req.BaseUpdatedAt.IsZero() && toNanos(req.BaseUpdatedAt) != storedUpdated {
			return rubric.PutResponse{}, fmt.Errorf("put rubric %s: %w: stored copy changed since %s",
				id, rubric.ErrConflict, req.BaseUpdatedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"))
		}
		orgDefault = storedDefault
		if req.OrgDefault != nil {
			orgDefault = *req.OrgDefault
		}
		// Keep timestamps strictly increasing so a base never matches twice.
		if toNanos(now) <= storedUpdated {
			now = fromNanos(storedUpdated + 1)
		}

	default:
		return rubric.PutResponse{}, fmt.Errorf("put rubric: unknown mode %q", req.Mode)
	}

	if orgDefault {
		if _, err := tx.ExecContext(ctx, `
			UPDATE rubrics SET is_org_default = 0 WHERE org_id = ? AND id <> ? AND is_org_default = 1
		`, orgID, id); err != nil {
			return rubric.PutResponse{}, fmt.Errorf("put rubric %s: clear org default: %w", id, err)
		}
	}

	if req.Mode == rubric.ModeCreate {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rubrics
			(id, org_id, title, is_org_default, headings, text_blocks, prompts, content_hash, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, id, orgID, req.RubricTitle, orgDefault, headings, textBlocks, prompts, hash, toNanos(now), toNanos(now))
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE rubrics
			SET title = ?, is_org_default = ?, headings = ?, text_blocks = ?, prompts = ?,
			    content_hash = ?, updated_at = ?
			WHERE id = ? AND org_id = ?
		`, req.RubricTitle, orgDefault, headings, textBlocks, prompts, hash, toNanos(now), id, orgID)
	}
	if err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return rubric.PutResponse{}, fmt.Errorf("put rubric %s: commit: %w", id, err)
	}

	return rubric.PutResponse{RubricID: id, UpdatedAt: now}, nil
}

// Snapshot records an immutable copy of rubricID for a submitted review.
//
// Review ids are scoped to orgID. Uses ON CONFLICT(org_id, review_id) DO
// NOTHING for idempotency: a review that already has a snapshot of rubricID
// gets the existing one back, even if the rubric has changed since. A review
// whose snapshot is of another rubric yields rubric.ErrConflict.
func (s *Store) Snapshot(ctx context.Context, orgID, rubricID, reviewID string) (rubric.Snapshot, error) {
	if orgID == "" {
		return rubric.Snapshot{}, errors.New("snapshot: organization id is required")
	}
	if reviewID == "" {
		return rubric.Snapshot{}, errors.New("snapshot: review id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	r, err := getRubric(ctx, tx, orgID, rubricID)
	if err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	hash, err := rubric.ContentHash(*r)
	if err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	docJSON, err := marshalDocument(*r)
	if err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO snapshots (org_id, rubric_id, review_id, content_hash, document, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(org_id, review_id) DO NOTHING
	`, orgID, rubricID, reviewID, hash, docJSON, toNanos(s.now())); err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: insert: %w", err)
	}

	snap, err := readSnapshot(ctx, tx, orgID, reviewID)
	if err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	if snap.RubricID != rubricID {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: review %s: %w: already recorded against rubric %s",
			reviewID, rubric.ErrConflict, snap.RubricID)
	}

	if err := tx.Commit(); err != nil {
		return rubric.Snapshot{}, fmt.Errorf("snapshot: commit: %w", err)
	}
	return snap, nil
}
