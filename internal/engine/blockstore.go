package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/rubric/internal/rubric"
)

// Entry is one block of the merged view, tagged with its variant.
type Entry struct {
	Variant rubric.Variant
	Block   rubric.Block
}

// Order returns the block's order.
func (e Entry) Order() int {
	return e.Block.BlockOrder()
}

// Text returns the block's display text.
func (e Entry) Text() string {
	switch b := e.Block.(type) {
	case rubric.Heading:
		return b.Text
	case rubric.TextBlock:
		return b.Text
	case rubric.Prompt:
		return b.PromptText
	default:
		return ""
	}
}

// String renders the entry on one line: "3 prompt Verdict (Accept, Reject)".
// Dropdown option texts follow in parentheses.
func (e Entry) String() string {
	line := fmt.Sprintf("%d %s %s", e.Order(), e.Variant, e.Text())
	if p, ok := e.Block.(rubric.Prompt); ok && len(p.PromptOptions) > 0 {
		texts := make([]string, len(p.PromptOptions))
		for i, o := range p.PromptOptions {
			texts[i] = o.Text
		}
		line += " (" + strings.Join(texts, ", ") + ")"
	}
	return line
}

// loc addresses a block inside its typed collection.
type loc struct {
	variant rubric.Variant
	index   int
}

// BlockStore holds the three typed block collections.
type BlockStore struct {
	headings   []rubric.Heading
	textBlocks []rubric.TextBlock
	prompts    []rubric.Prompt
}

// NewBlockStore creates an empty store.
func NewBlockStore() *BlockStore {
	return &BlockStore{
		headings:   []rubric.Heading{},
		textBlocks: []rubric.TextBlock{},
		prompts:    []rubric.Prompt{},
	}
}

// FromRubric creates a store holding copies of r's blocks.
// Orders are taken as-is; call CheckInvariant to verify them.
func FromRubric(r rubric.Rubric) *BlockStore {
	s := NewBlockStore()
	s.headings = append(s.headings, r.Headings...)
	s.textBlocks = append(s.textBlocks, r.TextBlocks...)
	for _, p := range r.Prompts {
		p.PromptOptions = rubric.CloneOptions(p.PromptOptions)
		s.prompts = append(s.prompts, p)
	}
	return s
}

// Apply copies the store's collections into r, replacing its blocks.
func (s *BlockStore) Apply(r *rubric.Rubric) {
	r.Headings = s.Headings()
	r.TextBlocks = s.TextBlocks()
	r.Prompts = s.Prompts()
}

// Headings returns a copy of the heading collection in storage order.
func (s *BlockStore) Headings() []rubric.Heading {
	out := make([]rubric.Heading, len(s.headings))
	copy(out, s.headings)
	return out
}

// TextBlocks returns a copy of the text block collection in storage order.
func (s *BlockStore) TextBlocks() []rubric.TextBlock {
	out := make([]rubric.TextBlock, len(s.textBlocks))
	copy(out, s.textBlocks)
	return out
}

// Prompts returns a copy of the prompt collection in storage order.
func (s *BlockStore) Prompts() []rubric.Prompt {
	out := make([]rubric.Prompt, len(s.prompts))
	for i, p := range s.prompts {
		p.PromptOptions = rubric.CloneOptions(p.PromptOptions)
		out[i] = p
	}
	return out
}

// Len returns the number of blocks across all collections.
func (s *BlockStore) Len() int {
	return len(s.headings) + len(s.textBlocks) + len(s.prompts)
}

// LastOrder returns the highest order across all collections, or 0 if empty.
func (s *BlockStore) LastOrder() int {
	last := 0
	for _, h := range s.headings {
		last = max(last, h.Order)
	}
	for _, t := range s.textBlocks {
		last = max(last, t.Order)
	}
	for _, p := range s.prompts {
		last = max(last, p.Order)
	}
	return last
}

// MergedOrderedView returns every block sorted ascending by order.
// Blocks sharing an order (only possible if the invariant is broken) are
// ordered by variant, then by their index in the collection.
func (s *BlockStore) MergedOrderedView() []Entry {
	type ranked struct {
		entry Entry
		index int
	}
	all := make([]ranked, 0, s.Len())
	for i, h := range s.headings {
		all = append(all, ranked{Entry{rubric.VariantHeading, h}, i})
	}
	for i, t := range s.textBlocks {
		all = append(all, ranked{Entry{rubric.VariantTextBlock, t}, i})
	}
	for i, p := range s.prompts {
		p.PromptOptions = rubric.CloneOptions(p.PromptOptions)
		all = append(all, ranked{Entry{rubric.VariantPrompt, p}, i})
	}

	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.entry.Order() != b.entry.Order() {
			return a.entry.Order() < b.entry.Order()
		}
		if a.entry.Variant != b.entry.Variant {
			return a.entry.Variant.Rank() < b.entry.Variant.Rank()
		}
		return a.index < b.index
	})

	view := make([]Entry, len(all))
	for i, r := range all {
		view[i] = r.entry
	}
	return view
}

// FindByOrder returns the block holding order.
func (s *BlockStore) FindByOrder(order int) (Entry, bool) {
	l, ok := s.locate(order)
	if !ok {
		return Entry{}, false
	}
	return Entry{Variant: l.variant, Block: s.blockAt(l)}, true
}

// CheckInvariant verifies that orders are exactly {1..Len()}.
func (s *BlockStore) CheckInvariant() error {
	n := s.Len()
	seen := make([]bool, n+1)
	for _, e := range s.MergedOrderedView() {
		o := e.Order()
		if o < 1 || o > n {
			return &InvariantError{Order: o, Count: n, Reason: "order out of range"}
		}
		if seen[o] {
			return &InvariantError{Order: o, Count: n, Reason: "duplicate order"}
		}
		seen[o] = true
	}
	return nil
}

// locate scans all three collections for order.
func (s *BlockStore) locate(order int) (loc, bool) {
	for i, h := range s.headings {
		if h.Order == order {
			return loc{rubric.VariantHeading, i}, true
		}
	}
	for i, t := range s.textBlocks {
		if t.Order == order {
			return loc{rubric.VariantTextBlock, i}, true
		}
	}
	for i, p := range s.prompts {
		if p.Order == order {
			return loc{rubric.VariantPrompt, i}, true
		}
	}
	return loc{}, false
}

func (s *BlockStore) blockAt(l loc) rubric.Block {
	switch l.variant {
	case rubric.VariantHeading:
		return s.headings[l.index]
	case rubric.VariantTextBlock:
		return s.textBlocks[l.index]
	default:
		p := s.prompts[l.index]
		p.PromptOptions = rubric.CloneOptions(p.PromptOptions)
		return p
	}
}

func (s *BlockStore) setOrder(l loc, order int) {
	switch l.variant {
	case rubric.VariantHeading:
		s.headings[l.index].Order = order
	case rubric.VariantTextBlock:
		s.textBlocks[l.index].Order = order
	default:
		s.prompts[l.index].Order = order
	}
}

// replace overwrites the block at l. The caller guarantees b has l's variant.
func (s *BlockStore) replace(l loc, b rubric.Block) {
	switch v := b.(type) {
	case rubric.Heading:
		s.headings[l.index] = v
	case rubric.TextBlock:
		s.textBlocks[l.index] = v
	case rubric.Prompt:
		v.PromptOptions = rubric.CloneOptions(v.PromptOptions)
		s.prompts[l.index] = v
	}
}

func (s *BlockStore) remove(l loc) {
	switch l.variant {
	case rubric.VariantHeading:
		s.headings = append(s.headings[:l.index], s.headings[l.index+1:]...)
	case rubric.VariantTextBlock:
		s.textBlocks = append(s.textBlocks[:l.index], s.textBlocks[l.index+1:]...)
	default:
		s.prompts = append(s.prompts[:l.index], s.prompts[l.index+1:]...)
	}
}

// appendBlock adds b to its own collection.
func (s *BlockStore) appendBlock(b rubric.Block) error {
	switch v := b.(type) {
	case rubric.Heading:
		s.headings = append(s.headings, v)
	case rubric.TextBlock:
		s.textBlocks = append(s.textBlocks, v)
	case rubric.Prompt:
		v.PromptOptions = rubric.CloneOptions(v.PromptOptions)
		s.prompts = append(s.prompts, v)
	default:
		return fmt.Errorf("append block: unsupported block type %T", b)
	}
	return nil
}

// shiftAbove decrements every order greater than order.
func (s *BlockStore) shiftAbove(order int) {
	for i := range s.headings {
		if s.headings[i].Order > order {
			s.headings[i].Order--
		}
	}
	for i := range s.textBlocks {
		if s.textBlocks[i].Order > order {
			s.textBlocks[i].Order--
		}
	}
	for i := range s.prompts {
		if s.prompts[i].Order > order {
			s.prompts[i].Order--
		}
	}
}
