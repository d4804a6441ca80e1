package rubric

import "time"

// SaveMode distinguishes creating a new rubric from editing an existing one.
type SaveMode string

const (
	ModeCreate SaveMode = "create"
	ModeEdit   SaveMode = "edit"
)

// PutRequest is the body of PUT /rubric. The whole document travels in one request.
type PutRequest struct {
	Mode        SaveMode    `json:"mode"`
	RubricID    string      `json:"rubricID,omitempty"`
	RubricTitle string      `json:"rubricTitle"`
	OrgDefault  *bool       `json:"orgDefault,omitempty"`
	Headings    []Heading   `json:"headings"`
	TextBlocks  []TextBlock `json:"textBlocks"`
	Prompts     []Prompt    `json:"prompts"`

	// BaseUpdatedAt is the updatedAt the editor loaded. When set, the
	// persistence layer rejects the save if the stored rubric moved on.
	BaseUpdatedAt time.Time `json:"baseUpdatedAt,omitzero"`
}

// PutResponse is the reply to PUT /rubric.
type PutResponse struct {
	RubricID  string    `json:"rubricID"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// OrgDefaultStatus is the reply to GET /rubric/orgdefault.
type OrgDefaultStatus struct {
	OrgID      string `json:"orgID"`
	HasDefault bool   `json:"hasDefault"`
}

// Snapshot is the immutable copy of a rubric's blocks taken when a peer
// review is submitted against it.
type Snapshot struct {
	ID          int64     `json:"id"`
	RubricID    string    `json:"rubricID"`
	ReviewID    string    `json:"reviewID"`
	ContentHash string    `json:"contentHash"`
	Rubric      Rubric    `json:"rubric"`
	TakenAt     time.Time `json:"takenAt"`
}

// Summary is one row of a rubric listing.
type Summary struct {
	RubricID     string    `json:"rubricID"`
	RubricTitle  string    `json:"rubricTitle"`
	IsOrgDefault bool      `json:"isOrgDefault"`
	BlockCount   int       `json:"blockCount"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
