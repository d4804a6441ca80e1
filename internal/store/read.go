package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/rubric/internal/rubric"
)

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetRubric retrieves a rubric by id within orgID.
// Returns rubric.ErrNotFound if no such rubric exists in the organization.
func (s *Store) GetRubric(ctx context.Context, orgID, id string) (*rubric.Rubric, error) {
	return getRubric(ctx, s.db, orgID, id)
}

func getRubric(ctx context.Context, q queryer, orgID, id string) (*rubric.Rubric, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, title, is_org_default, headings, text_blocks, prompts, created_at, updated_at
		FROM rubrics
		WHERE id = ? AND org_id = ?
	`, id, orgID)

	var (
		r                             rubric.Rubric
		headings, textBlocks, prompts string
		createdAt, updatedAt          int64
	)
	err := row.Scan(&r.RubricID, &r.RubricTitle, &r.IsOrgDefault, &headings, &textBlocks, &prompts, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get rubric %s: %w", id, rubric.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get rubric %s: %w", id, err)
	}

	if r.Headings, err = unmarshalBlocks[rubric.Heading](headings); err != nil {
		return nil, fmt.Errorf("get rubric %s: %w", id, err)
	}
	if r.TextBlocks, err = unmarshalBlocks[rubric.TextBlock](textBlocks); err != nil {
		return nil, fmt.Errorf("get rubric %s: %w", id, err)
	}
	if r.Prompts, err = unmarshalBlocks[rubric.Prompt](prompts); err != nil {
		return nil, fmt.Errorf("get rubric %s: %w", id, err)
	}
	r.CreatedAt = fromNanos(createdAt)
	r.UpdatedAt = fromNanos(updatedAt)
	return &r, nil
}

// OrgDefault reports whether orgID has a default rubric.
func (s *Store) OrgDefault(ctx context.Context, orgID string) (rubric.OrgDefaultStatus, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM rubrics WHERE org_id = ? AND is_org_default = 1
	`, orgID).Scan(&n)
	if err != nil {
		return rubric.OrgDefaultStatus{}, fmt.Errorf("org default %s: %w", orgID, err)
	}
	return rubric.OrgDefaultStatus{OrgID: orgID, HasDefault: n > 0}, nil
}

// ListRubrics returns the rubrics of orgID, most recently updated first.
// Ties are broken by id for deterministic output.
//
// Returns an empty slice (not nil) if the organization has no rubrics.
func (s *Store) ListRubrics(ctx context.Context, orgID string) ([]rubric.Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, is_org_default, headings, text_blocks, prompts, updated_at
		FROM rubrics
		WHERE org_id = ?
		ORDER BY updated_at DESC, id COLLATE BINARY ASC
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list rubrics: %w", err)
	}
	defer rows.Close()

	out := []rubric.Summary{}
	for rows.Next() {
		var (
			sum                           rubric.Summary
			headings, textBlocks, prompts string
			updatedAt                     int64
		)
		if err := rows.Scan(&sum.RubricID, &sum.RubricTitle, &sum.IsOrgDefault, &headings, &textBlocks, &prompts, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan rubric: %w", err)
		}
		n, err := countBlocks(headings, textBlocks, prompts)
		if err != nil {
			return nil, fmt.Errorf("list rubrics: %s: %w", sum.RubricID, err)
		}
		sum.BlockCount = n
		sum.UpdatedAt = fromNanos(updatedAt)
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rubrics: %w", err)
	}
	return out, nil
}

func countBlocks(collections ...string) (int, error) {
	total := 0
	for _, c := range collections {
		blocks, err := unmarshalBlocks[struct{}](c)
		if err != nil {
			return 0, err
		}
		total += len(blocks)
	}
	return total, nil
}

// ReadSnapshot retrieves the snapshot taken for reviewID in orgID.
// Returns rubric.ErrNotFound if the review has no snapshot in that organization.
func (s *Store) ReadSnapshot(ctx context.Context, orgID, reviewID string) (rubric.Snapshot, error) {
	return readSnapshot(ctx, s.db, orgID, reviewID)
}

func readSnapshot(ctx context.Context, q queryer, orgID, reviewID string) (rubric.Snapshot, error) {
	var (
		snap    rubric.Snapshot
		docJSON string
		takenAt int64
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, rubric_id, review_id, content_hash, document, taken_at
		FROM snapshots
		WHERE org_id = ? AND review_id = ?
	`, orgID, reviewID).Scan(&snap.ID, &snap.RubricID, &snap.ReviewID, &snap.ContentHash, &docJSON, &takenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rubric.Snapshot{}, fmt.Errorf("read snapshot %s: %w", reviewID, rubric.ErrNotFound)
	}
	if err != nil {
		return rubric.Snapshot{}, fmt.Errorf("read snapshot %s: %w", reviewID, err)
	}

	snap.Rubric, err = unmarshalDocument(docJSON)
	if err != nil {
		return rubric.Snapshot{}, fmt.Errorf("read snapshot %s: %w", reviewID, err)
	}
	snap.TakenAt = fromNanos(takenAt)
	return snap, nil
}
