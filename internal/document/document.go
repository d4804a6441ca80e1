package document

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/engine"
	"github.com/roach88/rubric/internal/rubric"
)

// ErrTitleLocked is returned by SetTitle while the rubric is the
// organization default; its title then follows the organization name.
var ErrTitleLocked = errors.New("title is locked while the rubric is the organization default")

// Persistence is the remote collaborator that stores whole rubric documents.
type Persistence interface {
	// GetRubric fetches a rubric by id (GET /rubric?rubricID=<id>).
	GetRubric(ctx context.Context, id string) (*rubric.Rubric, error)

	// GetOrgDefault reports whether the organization already has a default
	// rubric (GET /rubric/orgdefault).
	GetOrgDefault(ctx context.Context) (rubric.OrgDefaultStatus, error)

	// PutRubric creates or replaces a whole rubric (PUT /rubric).
	PutRubric(ctx context.Context, req rubric.PutRequest) (rubric.PutResponse, error)
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether id is a well-formed rubric identifier.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// Document is one rubric under edit.
type Document struct {
	id           string
	mode         rubric.SaveMode
	title        string
	isOrgDefault bool
	orgName      string
	createdAt    time.Time
	updatedAt    time.Time

	engine *engine.Engine
	logger *zap.Logger
}

// Option configures a Document.
type Option func(*Document)

// WithLogger sets the logger for the document and its ordering engine.
func WithLogger(l *zap.Logger) Option {
	return func(d *Document) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates an empty document in create mode. orgName is the
// organization display name used when the rubric becomes the default.
func New(orgName string, opts ...Option) *Document {
	d := &Document{
		mode:    rubric.ModeCreate,
		orgName: orgName,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.engine = engine.New(engine.NewBlockStore(), engine.WithLogger(d.logger))
	return d
}

// FromRubric creates a document in edit mode holding a copy of r.
// It fails with rubric.ErrMalformed when r's block orders are not exactly 1..N.
func FromRubric(r rubric.Rubric, orgName string, opts ...Option) (*Document, error) {
	store := engine.FromRubric(r)
	if err := store.CheckInvariant(); err != nil {
		return nil, fmt.Errorf("%w: %v", rubric.ErrMalformed, err)
	}

	d := New(orgName, opts...)
	d.id = r.RubricID
	d.mode = rubric.ModeEdit
	d.title = r.RubricTitle
	d.isOrgDefault = r.IsOrgDefault
	if r.IsOrgDefault && orgName != "" {
		d.title = orgName
	}
	d.createdAt = r.CreatedAt
	d.updatedAt = r.UpdatedAt
	d.engine = engine.New(store, engine.WithLogger(d.logger))
	return d, nil
}

// Load fetches rubric id from p and builds a document from it.
// A malformed id, a missing rubric or a malformed payload is an error; no
// empty document is substituted.
func Load(ctx context.Context, p Persistence, id, orgName string, opts ...Option) (*Document, error) {
	id = strings.TrimSpace(id)
	if !ValidID(id) {
		return nil, fmt.Errorf("load rubric %q: %w", id, rubric.ErrInvalidID)
	}

	r, err := p.GetRubric(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load rubric %s: %w", id, err)
	}
	if r == nil {
		return nil, fmt.Errorf("load rubric %s: %w: empty payload", id, rubric.ErrMalformed)
	}
	if r.RubricID == "" {
		r.RubricID = id
	}
	if r.RubricID != id {
		return nil, fmt.Errorf("load rubric %s: %w: payload is rubric %s", id, rubric.ErrMalformed, r.RubricID)
	}

	d, err := FromRubric(*r, orgName, opts...)
	if err != nil {
		return nil, fmt.Errorf("load rubric %s: %w", id, err)
	}
	return d, nil
}

// ID returns the rubric id, empty until the first successful save in create mode.
func (d *Document) ID() string { return d.id }

// Mode returns ModeCreate until the document has been saved once.
func (d *Document) Mode() rubric.SaveMode { return d.mode }

// Title returns the current title.
func (d *Document) Title() string { return d.title }

// IsOrgDefault reports whether the rubric is the organization default.
func (d *Document) IsOrgDefault() bool { return d.isOrgDefault }

// TitleLocked reports whether the title can be edited.
func (d *Document) TitleLocked() bool { return d.isOrgDefault }

// UpdatedAt returns the persistence timestamp of the last load or save.
func (d *Document) UpdatedAt() time.Time { return d.updatedAt }

// CreatedAt returns the creation timestamp, zero until first saved.
func (d *Document) CreatedAt() time.Time { return d.createdAt }

// SetTitle changes the title. Fails with ErrTitleLocked for the organization default.
func (d *Document) SetTitle(title string) error {
	if d.isOrgDefault {
		return ErrTitleLocked
	}
	d.title = title
	return nil
}

// SetOrgDefault marks or unmarks the rubric as the organization default.
// Marking forces the title to the organization name and locks it;
// unmarking unlocks it and clears it.
func (d *Document) SetOrgDefault(on bool) {
	if on {
		d.isOrgDefault = true
		d.title = d.orgName
		return
	}
	if d.isOrgDefault {
		d.isOrgDefault = false
		d.title = ""
	}
}

// Insert appends a block at the end of the document and returns its order.
// Options on a non-dropdown prompt are dropped.
func (d *Document) Insert(b rubric.Block) (int, error) {
	return d.engine.Insert(normalizeBlock(b))
}

// Move swaps the block at order with its neighbour in dir.
func (d *Document) Move(order int, dir rubric.Direction) bool {
	return d.engine.Move(order, dir)
}

// Delete removes the block at order and renumbers the blocks after it.
func (d *Document) Delete(order int) bool {
	return d.engine.Delete(order)
}

// Update replaces the content of the block at order.
func (d *Document) Update(order int, b rubric.Block) (bool, error) {
	return d.engine.Update(order, normalizeBlock(b))
}

// View returns the merged, order-sorted blocks.
func (d *Document) View() []engine.Entry {
	return d.engine.Store().MergedOrderedView()
}

// FindByOrder returns the block at order.
func (d *Document) FindByOrder(order int) (engine.Entry, bool) {
	return d.engine.Store().FindByOrder(order)
}

// Len returns the number of blocks.
func (d *Document) Len() int {
	return d.engine.Store().Len()
}

// Rubric returns a copy of the document in wire form.
func (d *Document) Rubric() rubric.Rubric {
	r := rubric.Rubric{
		RubricID:     d.id,
		RubricTitle:  d.title,
		IsOrgDefault: d.isOrgDefault,
		CreatedAt:    d.createdAt,
		UpdatedAt:    d.updatedAt,
	}
	d.engine.Store().Apply(&r)
	return r
}

// PutRequest builds the whole-document save request.
func (d *Document) PutRequest() rubric.PutRequest {
	store := d.engine.Store()
	orgDefault := d.isOrgDefault
	req := rubric.PutRequest{
		Mode:        d.mode,
		RubricTitle: strings.TrimSpace(d.title),
		OrgDefault:  &orgDefault,
		Headings:    store.Headings(),
		TextBlocks:  store.TextBlocks(),
		Prompts:     store.Prompts(),
	}
	if d.mode == rubric.ModeEdit {
		req.RubricID = d.id
		req.BaseUpdatedAt = d.updatedAt
	}
	return req
}

// Save validates the document and hands it to p in one request.
// Validation problems are returned as ValidationErrors. On any failure the
// document is left untouched so the save can be retried.
func (d *Document) Save(ctx context.Context, p Persistence) (rubric.PutResponse, error) {
	if errs := d.Validate(); len(errs) > 0 {
		return rubric.PutResponse{}, errs
	}
	return d.commit(ctx, p, d.PutRequest())
}

// commit sends req and, on success, records the returned identity.
func (d *Document) commit(ctx context.Context, p Persistence, req rubric.PutRequest) (rubric.PutResponse, error) {
	resp, err := p.PutRubric(ctx, req)
	if err != nil {
		return rubric.PutResponse{}, fmt.Errorf("save rubric: %w", err)
	}
	if resp.RubricID == "" {
		return rubric.PutResponse{}, fmt.Errorf("save rubric: %w: response has no rubric id", rubric.ErrMalformed)
	}
	d.MarkSaved(req.Mode, resp)
	return resp, nil
}

// MarkSaved records a successful save of a request made in mode. Callers
// that send the request themselves, outside their own lock, call it once
// the response is back.
func (d *Document) MarkSaved(mode rubric.SaveMode, resp rubric.PutResponse) {
	if mode == rubric.ModeCreate && d.createdAt.IsZero() {
		d.createdAt = resp.UpdatedAt
	}
	d.id = resp.RubricID
	d.mode = rubric.ModeEdit
	d.updatedAt = resp.UpdatedAt
	d.logger.Debug("rubric saved",
		zap.String("rubric_id", d.id),
		zap.String("mode", string(mode)))
}

// normalizeBlock enforces that only dropdown prompts carry options.
func normalizeBlock(b rubric.Block) rubric.Block {
	p, ok := b.(rubric.Prompt)
	if !ok {
		return b
	}
	if p.PromptType != rubric.PromptDropdown {
		p.PromptOptions = nil
	}
	return p
}
