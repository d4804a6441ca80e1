package rubric

import "time"

// Variant tags which typed collection a block belongs to.
type Variant string

const (
	VariantHeading   Variant = "heading"
	VariantTextBlock Variant = "textBlock"
	VariantPrompt    Variant = "prompt"
)

// ValidVariants defines allowed variant tags.
var ValidVariants = map[Variant]bool{
	VariantHeading:   true,
	VariantTextBlock: true,
	VariantPrompt:    true,
}

// Rank returns the tie-break rank used when two blocks share an order.
func (v Variant) Rank() int {
	switch v {
	case VariantHeading:
		return 0
	case VariantTextBlock:
		return 1
	case VariantPrompt:
		return 2
	default:
		return 3
	}
}

// PromptType is the response kind of a prompt block.
type PromptType string

const (
	PromptThreePointLikert PromptType = "three_point_likert"
	PromptFivePointLikert  PromptType = "five_point_likert"
	PromptSevenPointLikert PromptType = "seven_point_likert"
	PromptText             PromptType = "text"
	PromptDropdown         PromptType = "dropdown"
	PromptCheckbox         PromptType = "checkbox"
)

// ValidPromptTypes defines allowed prompt types.
var ValidPromptTypes = map[PromptType]bool{
	PromptThreePointLikert: true,
	PromptFivePointLikert:  true,
	PromptSevenPointLikert: true,
	PromptText:             true,
	PromptDropdown:         true,
	PromptCheckbox:         true,
}

// Field limits, counted in characters after trimming.
const (
	HeadingMaxLen    = 499
	TextBlockMaxLen  = 4999
	TitleMinLen      = 3
	TitleMaxLen      = 200
	OptionTextMaxLen = 249
	MaxOptions       = 10
)

// Block is a single content unit of a rubric document.
// Implemented by Heading, TextBlock and Prompt only.
type Block interface {
	Variant() Variant
	BlockOrder() int
	withOrder(order int) Block
}

// WithOrder returns a copy of b placed at order.
func WithOrder(b Block, order int) Block {
	return b.withOrder(order)
}

// Heading is a section heading.
type Heading struct {
	Order int    `json:"order"`
	Text  string `json:"text" validate:"required,max=499"`
}

// TextBlock is a free-text block holding Markdown source.
type TextBlock struct {
	Order int    `json:"order"`
	Text  string `json:"text" validate:"required,max=4999"`
}

// Prompt is a response prompt shown to the reviewer.
type Prompt struct {
	Order          int              `json:"order"`
	PromptType     PromptType       `json:"promptType" validate:"required,oneof=three_point_likert five_point_likert seven_point_likert text dropdown checkbox"`
	PromptText     string           `json:"promptText" validate:"required"`
	PromptRequired bool             `json:"promptRequired"`
	PromptOptions  []DropdownOption `json:"promptOptions,omitempty" validate:"omitempty,max=10"`
}

// DropdownOption is one selectable option of a dropdown prompt.
type DropdownOption struct {
	Key   string `json:"key"`
	Text  string `json:"text"`
	Value string `json:"value"`
}

func (Heading) Variant() Variant   { return VariantHeading }
func (TextBlock) Variant() Variant { return VariantTextBlock }
func (Prompt) Variant() Variant    { return VariantPrompt }

func (h Heading) BlockOrder() int   { return h.Order }
func (t TextBlock) BlockOrder() int { return t.Order }
func (p Prompt) BlockOrder() int    { return p.Order }

func (h Heading) withOrder(order int) Block {
	h.Order = order
	return h
}

func (t TextBlock) withOrder(order int) Block {
	t.Order = order
	return t
}

func (p Prompt) withOrder(order int) Block {
	p.Order = order
	p.PromptOptions = CloneOptions(p.PromptOptions)
	return p
}

// CloneOptions copies an option slice so callers never share backing arrays.
func CloneOptions(opts []DropdownOption) []DropdownOption {
	if opts == nil {
		return nil
	}
	out := make([]DropdownOption, len(opts))
	copy(out, opts)
	return out
}

// Rubric is the whole peer review form template as exchanged with persistence.
type Rubric struct {
	RubricID     string      `json:"rubricID,omitempty"`
	RubricTitle  string      `json:"rubricTitle"`
	IsOrgDefault bool        `json:"isOrgDefault"`
	Headings     []Heading   `json:"headings"`
	TextBlocks   []TextBlock `json:"textBlocks"`
	Prompts      []Prompt    `json:"prompts"`
	CreatedAt    time.Time   `json:"createdAt,omitzero"`
	UpdatedAt    time.Time   `json:"updatedAt,omitzero"`
}

// BlockCount returns the number of blocks across all three collections.
func (r *Rubric) BlockCount() int {
	return len(r.Headings) + len(r.TextBlocks) + len(r.Prompts)
}

// Direction is the target of a move: towards order 1 (up) or away from it (down).
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ParseDirection parses "up" or "down".
func ParseDirection(s string) (Direction, bool) {
	switch Direction(s) {
	case Up:
		return Up, true
	case Down:
		return Down, true
	default:
		return "", false
	}
}
