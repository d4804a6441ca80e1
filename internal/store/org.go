package store

import (
	"context"

	"github.com/roach88/rubric/internal/rubric"
)

// OrgStore is a Store scoped to one organization.
// It implements document.Persistence.
type OrgStore struct {
	store *Store
	orgID string
}

// ForOrg scopes the store to orgID.
func (s *Store) ForOrg(orgID string) *OrgStore {
	return &OrgStore{store: s, orgID: orgID}
}

// OrgID returns the organization the store is scoped to.
func (o *OrgStore) OrgID() string { return o.orgID }

// GetRubric implements document.Persistence.
func (o *OrgStore) GetRubric(ctx context.Context, id string) (*rubric.Rubric, error) {
	return o.store.GetRubric(ctx, o.orgID, id)
}

// GetOrgDefault implements document.Persistence.
func (o *OrgStore) GetOrgDefault(ctx context.Context) (rubric.OrgDefaultStatus, error) {
	return o.store.OrgDefault(ctx, o.orgID)
}

// PutRubric implements document.Persistence.
func (o *OrgStore) PutRubric(ctx context.Context, req rubric.PutRequest) (rubric.PutResponse, error) {
	return o.store.PutRubric(ctx, o.orgID, req)
}

// ListRubrics lists the organization's rubrics.
func (o *OrgStore) ListRubrics(ctx context.Context) ([]rubric.Summary, error) {
	return o.store.ListRubrics(ctx, o.orgID)
}

// Snapshot records an immutable copy of rubricID for reviewID.
func (o *OrgStore) Snapshot(ctx context.Context, rubricID, reviewID string) (rubric.Snapshot, error) {
	return o.store.Snapshot(ctx, o.orgID, rubricID, reviewID)
}

// ReadSnapshot retrieves the organization's snapshot for reviewID.
func (o *OrgStore) ReadSnapshot(ctx context.Context, reviewID string) (rubric.Snapshot, error) {
	return o.store.ReadSnapshot(ctx, o.orgID, reviewID)
}
