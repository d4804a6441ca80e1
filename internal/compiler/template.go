package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rubric/internal/document"
	"github.com/roach88/rubric/internal/options"
	"github.com/roach88/rubric/internal/rubric"
)

// Template is a compiled rubric template.
type Template struct {
	Name       string
	Pos        token.Pos
	Document   *document.Document
	Collisions map[int]map[string][]int // block order -> option key collisions
}

// Target receives a compiled template. *session.Session implements it.
type Target interface {
	SetTitle(title string) error
	SetOrgDefault(on bool) error
	Insert(b rubric.Block) (int, error)
}

// ApplyTo copies the template's title, default flag and blocks into t.
// Blocks are appended in template order.
func (tmpl *Template) ApplyTo(t Target) error {
	doc := tmpl.Document
	if doc.IsOrgDefault() {
		if err := t.SetOrgDefault(true); err != nil {
			return fmt.Errorf("template %s: %w", tmpl.Name, err)
		}
	} else if err := t.SetTitle(doc.Title()); err != nil {
		return fmt.Errorf("template %s: %w", tmpl.Name, err)
	}
	for _, e := range doc.View() {
		if _, err := t.Insert(e.Block); err != nil {
			return fmt.Errorf("template %s: block %d: %w", tmpl.Name, e.Order(), err)
		}
	}
	return nil
}

// blockKinds maps the template block keys to what they compile to.
var blockKinds = map[string]rubric.Variant{
	"heading": rubric.VariantHeading,
	"text":    rubric.VariantTextBlock,
	"prompt":  rubric.VariantPrompt,
}

// CompileTemplate parses a CUE value into a rubric document in create mode.
// orgName is the organization display name used when the template is marked
// as the organization default.
//
// The CUE value should be the template struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`rubric: intro: { ... }`)
//	tmpl, err := CompileTemplate(v.LookupPath(cue.ParsePath("rubric.intro")), "Acme")
func CompileTemplate(v cue.Value, orgName string) (*Template, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	tmpl := &Template{
		Pos:        v.Pos(),
		Collisions: map[int]map[string][]int{},
	}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		tmpl.Name = labels[len(labels)-1].String()
	}

	doc := document.New(orgName)
	tmpl.Document = doc

	// Parse title (required unless the template is the organization default)
	orgDefault, err := optionalBool(v, "orgDefault")
	if err != nil {
		return nil, err
	}
	titleVal := v.LookupPath(cue.ParsePath("title"))
	switch {
	case titleVal.Exists():
		title, err := titleVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		if err := doc.SetTitle(title); err != nil {
			return nil, err
		}
	case !orgDefault:
		return nil, &CompileError{
			Field:   "title",
			Message: "title is required",
			Pos:     v.Pos(),
		}
	}
	if orgDefault {
		doc.SetOrgDefault(true)
	}

	// Parse blocks (required, at least one)
	blocksVal := v.LookupPath(cue.ParsePath("blocks"))
	if !blocksVal.Exists() {
		return nil, &CompileError{
			Field:   "blocks",
			Message: "blocks is required",
			Pos:     v.Pos(),
		}
	}
	iter, err := blocksVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		block, collisions, err := parseBlock(iter.Value(), i)
		if err != nil {
			return nil, err
		}
		order, err := doc.Insert(block)
		if err != nil {
			return nil, &CompileError{
				Field:   fmt.Sprintf("blocks[%d]", i),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		if len(collisions) > 0 {
			tmpl.Collisions[order] = collisions
		}
	}
	if doc.Len() == 0 {
		return nil, &CompileError{
			Field:   "blocks",
			Message: "at least one block is required",
			Pos:     blocksVal.Pos(),
		}
	}

	return tmpl, nil
}

// parseBlock parses one entry of the blocks list. Each entry has exactly one
// of heading, text or prompt.
func parseBlock(v cue.Value, index int) (rubric.Block, map[string][]int, error) {
	field := fmt.Sprintf("blocks[%d]", index)

	fields, err := v.Fields()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}
	var (
		kind  string
		value cue.Value
		count int
	)
	for fields.Next() {
		label := fields.Label()
		if _, ok := blockKinds[label]; !ok {
			return nil, nil, &CompileError{
				Field:   field,
				Message: fmt.Sprintf("unknown block kind %q (want heading, text or prompt)", label),
				Pos:     fields.Value().Pos(),
			}
		}
		kind, value = label, fields.Value()
		count++
	}
	if count != 1 {
		return nil, nil, &CompileError{
			Field:   field,
			Message: "block must have exactly one of heading, text or prompt",
			Pos:     v.Pos(),
		}
	}

	switch blockKinds[kind] {
	case rubric.VariantHeading:
		text, err := value.String()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		return rubric.Heading{Text: text}, nil, nil

	case rubric.VariantTextBlock:
		text, err := value.String()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		return rubric.TextBlock{Text: text}, nil, nil

	default:
		return parsePrompt(value, field+".prompt")
	}
}

// parsePrompt parses a prompt struct: type and text are required, required
// and options are optional. Options are only accepted on dropdown prompts.
func parsePrompt(v cue.Value, field string) (rubric.Block, map[string][]int, error) {
	typ, err := requiredString(v, "type", field)
	if err != nil {
		return nil, nil, err
	}
	if !rubric.ValidPromptTypes[rubric.PromptType(typ)] {
		return nil, nil, &CompileError{
			Field:   field + ".type",
			Message: fmt.Sprintf("unsupported prompt type %q", typ),
			Pos:     v.LookupPath(cue.ParsePath("type")).Pos(),
		}
	}
	text, err := requiredString(v, "text", field)
	if err != nil {
		return nil, nil, err
	}
	required, err := optionalBool(v, "required")
	if err != nil {
		return nil, nil, err
	}

	p := rubric.Prompt{
		PromptType:     rubric.PromptType(typ),
		PromptText:     text,
		PromptRequired: required,
	}

	optsVal := v.LookupPath(cue.ParsePath("options"))
	if !optsVal.Exists() {
		return p, nil, nil
	}
	if p.PromptType != rubric.PromptDropdown {
		return nil, nil, &CompileError{
			Field:   field + ".options",
			Message: "only dropdown prompts take options",
			Pos:     optsVal.Pos(),
		}
	}

	list := options.New(nil)
	iter, err := optsVal.List()
	if err != nil {
		return nil, nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		s, err := iter.Value().String()
		if err != nil {
			return nil, nil, formatCUEError(err)
		}
		if _, err := list.Add(s); err != nil {
			return nil, nil, &CompileError{
				Field:   fmt.Sprintf("%s.options[%d]", field, i),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
	}
	p.PromptOptions = list.Items()
	return p, list.Collisions(), nil
}

func requiredString(v cue.Value, name, field string) (string, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := val.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalBool(v cue.Value, name string) (bool, error) {
	val := v.LookupPath(cue.ParsePath(name))
	if !val.Exists() {
		return false, nil
	}
	b, err := val.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
