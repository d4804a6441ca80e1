package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/document"
	"github.com/roach88/rubric/internal/engine"
	"github.com/roach88/rubric/internal/rubric"
)

// State is the lifecycle state of a session.
type State string

const (
	StateLoading   State = "loading"
	StateClean     State = "clean"
	StateDirty     State = "dirty"
	StateSaving    State = "saving"
	StateLoadError State = "load_error"
)

var (
	// ErrBusy is returned for mutations and saves while a save is in flight.
	ErrBusy = errors.New("session is saving")

	// ErrNotEditable is returned when the session holds no loaded document.
	ErrNotEditable = errors.New("session has no editable rubric")

	// ErrStale is returned by a load whose result was superseded by Close
	// or a newer Load.
	ErrStale = errors.New("load result superseded")

	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("session is closed")

	// ErrOrgDefaultUnavailable is returned when a new rubric is marked as
	// the organization default while the organization already has one.
	ErrOrgDefaultUnavailable = errors.New("organization already has a default rubric")
)

// Session is one rubric edit. Safe for concurrent use.
type Session struct {
	mu sync.Mutex

	p        document.Persistence
	orgName  string
	notifier Notifier
	logger   *zap.Logger

	state      State
	doc        *document.Document
	generation uint64
	closed     bool
	lastErr    error

	canOfferOrgDefault bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. The document and engine log through it too.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithNotifier sets the presentation collaborator.
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

func newSession(p document.Persistence, orgName string, opts []Option) *Session {
	s := &Session{
		p:        p,
		orgName:  orgName,
		notifier: NopNotifier{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewCreate starts a session for a new, empty rubric. It asks p whether the
// organization already has a default rubric; if it does, or if the question
// cannot be answered, the organization default is not offered.
func NewCreate(ctx context.Context, p document.Persistence, orgName string, opts ...Option) *Session {
	s := newSession(p, orgName, opts)
	s.doc = document.New(orgName, document.WithLogger(s.logger))
	s.state = StateClean

	status, err := p.GetOrgDefault(ctx)
	if err != nil {
		s.logger.Warn("organization default lookup failed", zap.Error(err))
		return s
	}
	s.canOfferOrgDefault = !status.HasDefault
	return s
}

// NewEdit returns a session in the loading state. Call Load to fetch the rubric.
func NewEdit(p document.Persistence, orgName string, opts ...Option) *Session {
	s := newSession(p, orgName, opts)
	s.state = StateLoading
	return s
}

// Open is NewEdit followed by Load.
func Open(ctx context.Context, p document.Persistence, id, orgName string, opts ...Option) (*Session, error) {
	s := NewEdit(p, orgName, opts...)
	if err := s.Load(ctx, id); err != nil {
		return s, err
	}
	return s, nil
}

// Load fetches rubric id and replaces the session's document with it.
//
// On failure the session enters load_error, which is terminal. A result
// that arrives after Close or after a newer Load is dropped and ErrStale is
// returned.
func (s *Session) Load(ctx context.Context, id string) error {
	s.mu.Lock()
	switch {
	case s.closed:
		s.mu.Unlock()
		return ErrClosed
	case s.state == StateLoadError:
		s.mu.Unlock()
		return ErrNotEditable
	case s.state == StateSaving:
		s.mu.Unlock()
		return ErrBusy
	}
	s.generation++
	gen := s.generation
	s.transition(StateLoading)
	s.mu.Unlock()

	doc, err := document.Load(ctx, s.p, id, s.orgName, document.WithLogger(s.logger))

	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("stale load discarded", zap.String("rubric_id", id), zap.Uint64("generation", gen))
		return ErrStale
	}
	if err != nil {
		s.lastErr = err
		s.doc = nil
		s.transition(StateLoadError)
		s.mu.Unlock()
		s.notifier.Failed(err)
		return err
	}
	s.doc = doc
	s.lastErr = nil
	s.canOfferOrgDefault = true
	s.transition(StateClean)
	s.mu.Unlock()
	return nil
}

// Close abandons the session. Loads still in flight are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.logger.Debug("session closed", zap.String("state", string(s.state)))
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the last load or save error, cleared by a successful load or save.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// CanOfferOrgDefault reports whether the rubric may be marked as the
// organization default.
func (s *Session) CanOfferOrgDefault() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canOfferOrgDefault
}

// Insert appends a block and returns its order.
func (s *Session) Insert(b rubric.Block) (int, error) {
	var order int
	err := s.mutate(func(d *document.Document) (bool, error) {
		var err error
		order, err = d.Insert(b)
		return err == nil, err
	})
	return order, err
}

// Move swaps the block at order with its neighbour in dir.
// It reports false for a boundary move or a stale order.
func (s *Session) Move(order int, dir rubric.Direction) (bool, error) {
	var changed bool
	err := s.mutate(func(d *document.Document) (bool, error) {
		changed = d.Move(order, dir)
		return changed, nil
	})
	return changed, err
}

// Delete removes the block at order.
func (s *Session) Delete(order int) (bool, error) {
	var changed bool
	err := s.mutate(func(d *document.Document) (bool, error) {
		changed = d.Delete(order)
		return changed, nil
	})
	return changed, err
}

// Update replaces the block at order.
func (s *Session) Update(order int, b rubric.Block) (bool, error) {
	var changed bool
	err := s.mutate(func(d *document.Document) (bool, error) {
		var err error
		changed, err = d.Update(order, b)
		return changed, err
	})
	return changed, err
}

// SetTitle changes the rubric title.
func (s *Session) SetTitle(title string) error {
	return s.mutate(func(d *document.Document) (bool, error) {
		if d.Title() == title {
			return false, nil
		}
		if err := d.SetTitle(title); err != nil {
			return false, err
		}
		return true, nil
	})
}

// SetOrgDefault marks or unmarks the rubric as the organization default.
func (s *Session) SetOrgDefault(on bool) error {
	return s.mutate(func(d *document.Document) (bool, error) {
		if on && !s.canOfferOrgDefault {
			return false, ErrOrgDefaultUnavailable
		}
		if d.IsOrgDefault() == on {
			return false, nil
		}
		d.SetOrgDefault(on)
		return true, nil
	})
}

// mutate runs fn against the document under the lock and marks the session
// dirty when fn reports a change.
func (s *Session) mutate(fn func(d *document.Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.editableLocked(); err != nil {
		return err
	}
	changed, err := fn(s.doc)
	if err != nil {
		return err
	}
	if changed && s.state == StateClean {
		s.transition(StateDirty)
	}
	return nil
}

func (s *Session) editableLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.state == StateSaving:
		return ErrBusy
	case s.state != StateClean && s.state != StateDirty:
		return ErrNotEditable
	}
	return nil
}

// Save validates the document and sends it as one request.
//
// Validation failures are reported to the notifier and returned as
// document.ValidationErrors; the state does not change. A persistence
// failure returns the session to dirty with edits preserved.
func (s *Session) Save(ctx context.Context) (rubric.PutResponse, error) {
	s.mu.Lock()
	if err := s.editableLocked(); err != nil {
		s.mu.Unlock()
		return rubric.PutResponse{}, err
	}
	if errs := s.doc.Validate(); len(errs) > 0 {
		s.mu.Unlock()
		s.notifier.Invalid(errs)
		return rubric.PutResponse{}, errs
	}
	req := s.doc.PutRequest()
	s.transition(StateSaving)
	s.mu.Unlock()

	resp, err := s.p.PutRubric(ctx, req)
	if err == nil && resp.RubricID == "" {
		err = fmt.Errorf("%w: response has no rubric id", rubric.ErrMalformed)
	}

	s.mu.Lock()
	if err != nil {
		err = fmt.Errorf("save rubric: %w", err)
		s.lastErr = err
		s.transition(StateDirty)
		s.mu.Unlock()
		s.notifier.Failed(err)
		return rubric.PutResponse{}, err
	}
	s.doc.MarkSaved(req.Mode, resp)
	s.lastErr = nil
	s.canOfferOrgDefault = true
	s.transition(StateClean)
	s.mu.Unlock()

	if req.Mode == rubric.ModeCreate {
		s.notifier.Created(resp.RubricID)
	} else {
		s.notifier.Saved(resp.RubricID)
	}
	return resp, nil
}

// View returns the merged, order-sorted blocks.
func (s *Session) View() ([]engine.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotEditable
	}
	return s.doc.View(), nil
}

// Rubric returns a copy of the document in wire form.
func (s *Session) Rubric() (rubric.Rubric, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return rubric.Rubric{}, ErrNotEditable
	}
	return s.doc.Rubric(), nil
}

// Validate runs document validation without saving.
func (s *Session) Validate() (document.ValidationErrors, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, ErrNotEditable
	}
	return s.doc.Validate(), nil
}

// transition must be called with s.mu held.
func (s *Session) transition(next State) {
	if s.state == next {
		return
	}
	s.logger.Debug("session state",
		zap.String("from", string(s.state)),
		zap.String("to", string(next)))
	s.state = next
}
