package engine

import (
	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/rubric"
)

// Engine applies invariant-preserving mutations to a BlockStore.
type Engine struct {
	store  *BlockStore
	logger *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report stale references.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine over store. A nil store starts empty.
func New(store *BlockStore, opts ...Option) *Engine {
	if store == nil {
		store = NewBlockStore()
	}
	e := &Engine{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the underlying block store.
func (e *Engine) Store() *BlockStore {
	return e.store
}

// Insert appends b at the end of the document and returns its order.
// The order carried by b is ignored.
func (e *Engine) Insert(b rubric.Block) (int, error) {
	switch b.(type) {
	case rubric.Heading, rubric.TextBlock, rubric.Prompt:
	default:
		return 0, ErrUnsupportedBlock
	}

	order := e.store.LastOrder() + 1
	if err := e.store.appendBlock(rubric.WithOrder(b, order)); err != nil {
		return 0, err
	}
	e.logger.Debug("block inserted",
		zap.String("variant", string(b.Variant())),
		zap.Int("order", order))
	return order, nil
}

// Move swaps the block at order with its neighbour in dir.
//
// Moving order 1 up, moving LastOrder() down, or naming an order that does
// not exist is a no-op. Reports whether the store changed.
func (e *Engine) Move(order int, dir rubric.Direction) bool {
	var target int
	switch dir {
	case rubric.Up:
		if order <= 1 {
			return false
		}
		target = order - 1
	case rubric.Down:
		if order >= e.store.LastOrder() {
			return false
		}
		target = order + 1
	default:
		return false
	}

	from, ok := e.store.locate(order)
	if !ok {
		e.stale("move", order)
		return false
	}
	to, ok := e.store.locate(target)
	if !ok {
		e.stale("move", target)
		return false
	}

	e.store.setOrder(from, target)
	e.store.setOrder(to, order)
	e.logger.Debug("block moved",
		zap.String("variant", string(from.variant)),
		zap.Int("from", order),
		zap.Int("to", target))
	return true
}

// Delete removes the block at order and closes the gap it leaves.
// Unknown orders are a no-op. Reports whether the store changed.
func (e *Engine) Delete(order int) bool {
	l, ok := e.store.locate(order)
	if !ok {
		e.stale("delete", order)
		return false
	}

	e.store.remove(l)
	e.store.shiftAbove(order)
	e.logger.Debug("block deleted",
		zap.String("variant", string(l.variant)),
		zap.Int("order", order))
	return true
}

// Update replaces the content of the block at order, keeping its order.
// The replacement must be of the same variant. Unknown orders are a no-op.
func (e *Engine) Update(order int, b rubric.Block) (bool, error) {
	switch b.(type) {
	case rubric.Heading, rubric.TextBlock, rubric.Prompt:
	default:
		return false, ErrUnsupportedBlock
	}

	l, ok := e.store.locate(order)
	if !ok {
		e.stale("update", order)
		return false, nil
	}
	if l.variant != b.Variant() {
		return false, &VariantMismatchError{Order: order, Have: l.variant, Want: b.Variant()}
	}

	e.store.replace(l, rubric.WithOrder(b, order))
	return true, nil
}

func (e *Engine) stale(op string, order int) {
	e.logger.Debug("stale block reference ignored",
		zap.String("op", op),
		zap.Int("order", order))
}
