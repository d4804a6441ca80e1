package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rubric/internal/document"
	"github.com/roach88/rubric/internal/rubric"
)

var _ document.Persistence = (*OrgStore)(nil)

func TestPutRubric_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	resp, err := s.PutRubric(ctx, "org-1", createTestRequest("Essay review"))
	require.NoError(t, err)
	assert.Equal(t, "rubric-0001", resp.RubricID)
	assert.False(t, resp.UpdatedAt.IsZero())

	got, err := s.GetRubric(ctx, "org-1", resp.RubricID)
	require.NoError(t, err)
	assert.Equal(t, "Essay review", got.RubricTitle)
	assert.False(t, got.IsOrgDefault)
	assert.Equal(t, []rubric.Heading{{Order: 1, Text: "Intro"}}, got.Headings)
	assert.Equal(t, "Use <b>evidence</b> & examples.", got.TextBlocks[0].Text)
	require.Len(t, got.Prompts, 1)
	assert.Len(t, got.Prompts[0].PromptOptions, 2)
	assert.True(t, got.UpdatedAt.Equal(resp.UpdatedAt))
	assert.True(t, got.CreatedAt.Equal(resp.UpdatedAt))
}

func TestPutRubric_RawJSONNotEscaped(t *testing.T) {
	s := createTestStore(t)
	resp, err := s.PutRubric(context.Background(), "org-1", createTestRequest("Essay review"))
	require.NoError(t, err)

	var raw string
	require.NoError(t, s.db.QueryRow("SELECT text_blocks FROM rubrics WHERE id = ?", resp.RubricID).Scan(&raw))
	assert.Equal(t, `[{"order":2,"text":"Use <b>evidence</b> & examples."}]`, raw)
}

func TestPutRubric_EmptyCollectionsStoredAsArrays(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	resp, err := s.PutRubric(ctx, "org-1", rubric.PutRequest{Mode: rubric.ModeCreate, RubricTitle: "Empty"})
	require.NoError(t, err)

	got, err := s.GetRubric(ctx, "org-1", resp.RubricID)
	require.NoError(t, err)
	assert.NotNil(t, got.Headings)
	assert.Empty(t, got.Headings)
	assert.Empty(t, got.Prompts)
}

func TestPutRubric_Edit(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	created, err := s.PutRubric(ctx, "org-1", createTestRequest("Essay review"))
	require.NoError(t, err)

	req := createTestRequest("Essay review v2")
	req.Mode = rubric.ModeEdit
	req.RubricID = created.RubricID
	req.BaseUpdatedAt = created.UpdatedAt
	req.Headings = nil
	req.TextBlocks[0].Order = 1
	req.Prompts[0].Order = 2

	edited, err := s.PutRubric(ctx, "org-1", req)
	require.NoError(t, err)
	assert.Equal(t, created.RubricID, edited.RubricID)
	assert.True(t, edited.UpdatedAt.After(created.UpdatedAt))

	got, err := s.GetRubric(ctx, "org-1", created.RubricID)
	require.NoError(t, err)
	assert.Equal(t, "Essay review v2", got.RubricTitle)
	assert.Empty(t, got.Headings)
	assert.True(t, got.CreatedAt.Equal(created.UpdatedAt))
}

func TestPutRubric_StaleBaseConflicts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	created, err := s.PutRubric(ctx, "org-1", createTestRequest("Essay review"))
	require.NoError(t, err)

	first := createTestRequest("First")
	first.Mode = rubric.ModeEdit
	first.RubricID = created.RubricID
	first.BaseUpdatedAt = created.UpdatedAt
	_, err = s.PutRubric(ctx, "org-1", first)
	require.NoError(t, err)

	second := first
	second.RubricTitle = "Second"
	_, err = s.PutRubric(ctx, "org-1", second)
	assert.ErrorIs(t, err, rubric.ErrConflict)

	// Without a base the save is last-write-wins.
	second.BaseUpdatedAt = time.Time{}
	_, err = s.PutRubric(ctx, "org-1", second)
	require.NoError(t, err)

	got, err := s.GetRubric(ctx, "org-1", created.RubricID)
	require.NoError(t, err)
	assert.Equal(t, "Second", got.RubricTitle)
}

func TestPutRubric_EditUnknownOrOtherOrg(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	created, err := s.PutRubric(ctx, "org-1", createTestRequest("Essay review"))
	require.NoError(t, err)

	req := createTestRequest("Hijack")
	req.Mode = rubric.ModeEdit
	req.RubricID = created.RubricID
	_, err = s.PutRubric(ctx, "org-2", req)
	assert.ErrorIs(t, err, rubric.ErrNotFound)

	req.RubricID = "nope"
	_, err = s.PutRubric(ctx, "org-1", req)
	assert.ErrorIs(t, err, rubric.ErrNotFound)

	_, err = s.GetRubric(ctx, "org-2", created.RubricID)
	assert.ErrorIs(t, err, rubric.ErrNotFound)
}

func TestPutRubric_RejectsBrokenOrders(t *testing.T) {
	s := createTestStore(t)
	req := createTestRequest("Broken")
	req.Prompts[0].Order = 5

	_, err := s.PutRubric(context.Background(), "org-1", req)
	assert.ErrorIs(t, err, rubric.ErrMalformed)
}

func TestPutRubric_RejectsUnknownMode(t *testing.T) {
	s := createTestStore(t)
	req := createTestRequest("Modes")
	req.Mode = "upsert"

	_, err := s.PutRubric(context.Background(), "org-1", req)
	assert.ErrorContains(t, err, "unknown mode")
}

func TestPutRubric_OrgDefaultMoves(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	status, err := s.OrgDefault(ctx, "org-1")
	require.NoError(t, err)
	assert.False(t, status.HasDefault)

	reqA := createTestRequest("Acme")
	reqA.OrgDefault = boolPtr(true)
	a, err := s.PutRubric(ctx, "org-1", reqA)
	require.NoError(t, err)

	other := createTestRequest("Other org")
	other.OrgDefault = boolPtr(true)
	_, err = s.PutRubric(ctx, "org-2", other)
	require.NoError(t, err)

	reqB := createTestRequest("Acme")
	reqB.OrgDefault = boolPtr(true)
	b, err := s.PutRubric(ctx, "org-1", reqB)
	require.NoError(t, err)

	gotA, err := s.GetRubric(ctx, "org-1", a.RubricID)
	require.NoError(t, err)
	assert.False(t, gotA.IsOrgDefault)
	gotB, err := s.GetRubric(ctx, "org-1", b.RubricID)
	require.NoError(t, err)
	assert.True(t, gotB.IsOrgDefault)

	status, err = s.OrgDefault(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, rubric.OrgDefaultStatus{OrgID: "org-1", HasDefault: true}, status)

	// An edit that leaves orgDefault unset keeps the stored flag.
	keep := createTestRequest("Acme")
	keep.Mode = rubric.ModeEdit
	keep.RubricID = b.RubricID
	_, err = s.PutRubric(ctx, "org-1", keep)
	require.NoError(t, err)
	gotB, err = s.GetRubric(ctx, "org-1", b.RubricID)
	require.NoError(t, err)
	assert.True(t, gotB.IsOrgDefault)
}

func TestPutRubric_RequiresOrg(t *testing.T) {
	s := createTestStore(t)
	_, err := s.PutRubric(context.Background(), "", createTestRequest("x"))
	assert.Error(t, err)
}

func TestSnapshot_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	created, err := s.PutRubric(ctx, "org-1", createTestRequest("Essay review"))
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, "org-1", created.RubricID, "review-1")
	require.NoError(t, err)
	assert.Equal(t, created.RubricID, snap.RubricID)
	assert.Equal(t, "review-1", snap.ReviewID)
	assert.Len(t, snap.ContentHash, 64)
	assert.Equal(t, "Essay review", snap.Rubric.RubricTitle)

	edit := createTestRequest("Changed later")
	edit.Mode = rubric.ModeEdit
	edit.RubricID = created.RubricID
	_, err = s.PutRubric(ctx, "org-1", edit)
	require.NoError(t, err)

	again, err := s.Snapshot(ctx, "org-1", created.RubricID, "review-1")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, again.ID)
	assert.Equal(t, snap.ContentHash, again.ContentHash)
	assert.Equal(t, "Essay review", again.Rubric.RubricTitle)

	next, err := s.Snapshot(ctx, "org-1", created.RubricID, "review-2")
	require.NoError(t, err)
	assert.NotEqual(t, snap.ContentHash, next.ContentHash)

	read, err := s.ReadSnapshot(ctx, "org-1", "review-2")
	require.NoError(t, err)
	assert.Equal(t, next.ID, read.ID)
	assert.Equal(t, "Changed later", read.Rubric.RubricTitle)
}

func TestSnapshot_Errors(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Snapshot(ctx, "org-1", "missing", "review-1")
	assert.ErrorIs(t, err, rubric.ErrNotFound)

	_, err = s.Snapshot(ctx, "org-1", "missing", "")
	assert.Error(t, err)

	_, err = s.ReadSnapshot(ctx, "org-1", "review-1")
	assert.ErrorIs(t, err, rubric.ErrNotFound)
}

func TestSnapshot_ReviewIDScopedToOrg(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	a, err := s.PutRubric(ctx, "org-a", createTestRequest("Org A rubric"))
	require.NoError(t, err)
	b, err := s.PutRubric(ctx, "org-b", createTestRequest("Org B rubric"))
	require.NoError(t, err)

	snapA, err := s.Snapshot(ctx, "org-a", a.RubricID, "review-1")
	require.NoError(t, err)

	// The same review id in another organization is a separate snapshot.
	snapB, err := s.Snapshot(ctx, "org-b", b.RubricID, "review-1")
	require.NoError(t, err)
	assert.NotEqual(t, snapA.ID, snapB.ID)
	assert.Equal(t, b.RubricID, snapB.RubricID)
	assert.Equal(t, "Org B rubric", snapB.Rubric.RubricTitle)

	readA, err := s.ReadSnapshot(ctx, "org-a", "review-1")
	require.NoError(t, err)
	assert.Equal(t, "Org A rubric", readA.Rubric.RubricTitle)
	readB, err := s.ReadSnapshot(ctx, "org-b", "review-1")
	require.NoError(t, err)
	assert.Equal(t, "Org B rubric", readB.Rubric.RubricTitle)

	// Another organization cannot snapshot org A's rubric.
	_, err = s.Snapshot(ctx, "org-b", a.RubricID, "review-2")
	assert.ErrorIs(t, err, rubric.ErrNotFound)
	_, err = s.ReadSnapshot(ctx, "org-b", "review-2")
	assert.ErrorIs(t, err, rubric.ErrNotFound)
}

func TestSnapshot_ReviewIDReusedForAnotherRubric(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	first, err := s.PutRubric(ctx, "org-1", createTestRequest("First"))
	require.NoError(t, err)
	second, err := s.PutRubric(ctx, "org-1", createTestRequest("Second"))
	require.NoError(t, err)

	_, err = s.Snapshot(ctx, "org-1", first.RubricID, "review-1")
	require.NoError(t, err)

	_, err = s.Snapshot(ctx, "org-1", second.RubricID, "review-1")
	assert.ErrorIs(t, err, rubric.ErrConflict)

	read, err := s.ReadSnapshot(ctx, "org-1", "review-1")
	require.NoError(t, err)
	assert.Equal(t, first.RubricID, read.RubricID)
}

func TestSnapshot_RequiresOrg(t *testing.T) {
	s := createTestStore(t)
	_, err := s.Snapshot(context.Background(), "", "rubric-0001", "review-1")
	assert.Error(t, err)
}
