package document

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/roach88/rubric/internal/rubric"
)

// Validation error codes (E200-E299)
const (
	ErrCodeTitleLength       = "E201" // title outside 3-200 characters
	ErrCodeHeadingText       = "E202" // heading empty or too long
	ErrCodeTextBlockText     = "E203" // text block empty or too long
	ErrCodePromptType        = "E204" // prompt type missing or unknown
	ErrCodePromptText        = "E205" // prompt text empty
	ErrCodeOptionCount       = "E206" // dropdown needs 1-10 options
	ErrCodeOptionsNotAllowed = "E207" // options on a non-dropdown prompt
	ErrCodeOrderInvariant    = "E208" // block orders are not exactly 1..N
	ErrCodeOptionText        = "E209" // option text empty or too long
)

// ValidationError is one field-level problem found by Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is every problem found in one Validate pass.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return "validation passed"
	}
	if len(v) == 1 {
		return v[0].Error()
	}
	return fmt.Sprintf("%s (and %d more)", v[0].Error(), len(v)-1)
}

// Fields returns the set of fields carrying an error, for UI flags.
func (v ValidationErrors) Fields() map[string]bool {
	out := make(map[string]bool, len(v))
	for _, e := range v {
		out[e.Field] = true
	}
	return out
}

// AsValidationErrors extracts ValidationErrors from err.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the whole document and returns every problem found, or nil.
func (d *Document) Validate() ValidationErrors {
	var errs ValidationErrors

	title := strings.TrimSpace(d.title)
	if err := validate.Var(title, fmt.Sprintf("min=%d,max=%d", rubric.TitleMinLen, rubric.TitleMaxLen)); err != nil {
		errs = append(errs, ValidationError{
			Field:   "rubricTitle",
			Message: fmt.Sprintf("title must be %d-%d characters", rubric.TitleMinLen, rubric.TitleMaxLen),
			Code:    ErrCodeTitleLength,
		})
	}

	store := d.engine.Store()
	for _, h := range store.Headings() {
		h.Text = strings.TrimSpace(h.Text)
		if err := validate.Struct(h); err != nil {
			errs = append(errs, ValidationError{
				Field:   blockField(rubric.VariantHeading, h.Order, "text"),
				Message: fmt.Sprintf("heading must be 1-%d characters", rubric.HeadingMaxLen),
				Code:    ErrCodeHeadingText,
			})
		}
	}

	for _, tb := range store.TextBlocks() {
		tb.Text = strings.TrimSpace(tb.Text)
		if err := validate.Struct(tb); err != nil {
			errs = append(errs, ValidationError{
				Field:   blockField(rubric.VariantTextBlock, tb.Order, "text"),
				Message: fmt.Sprintf("text block must be 1-%d characters", rubric.TextBlockMaxLen),
				Code:    ErrCodeTextBlockText,
			})
		}
	}

	for _, p := range store.Prompts() {
		errs = append(errs, validatePrompt(p)...)
	}

	if err := store.CheckInvariant(); err != nil {
		errs = append(errs, ValidationError{
			Field:   "blocks",
			Message: err.Error(),
			Code:    ErrCodeOrderInvariant,
		})
	}

	return errs
}

func validatePrompt(p rubric.Prompt) ValidationErrors {
	var errs ValidationErrors
	p.PromptText = strings.TrimSpace(p.PromptText)

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				switch fe.StructField() {
				case "PromptType":
					errs = append(errs, ValidationError{
						Field:   blockField(rubric.VariantPrompt, p.Order, "promptType"),
						Message: fmt.Sprintf("prompt type %q is not supported", p.PromptType),
						Code:    ErrCodePromptType,
					})
				case "PromptText":
					errs = append(errs, ValidationError{
						Field:   blockField(rubric.VariantPrompt, p.Order, "promptText"),
						Message: "prompt text is required",
						Code:    ErrCodePromptText,
					})
				case "PromptOptions":
					errs = append(errs, optionCountError(p))
				}
			}
		}
	}

	isDropdown := p.PromptType == rubric.PromptDropdown
	switch {
	case isDropdown && len(p.PromptOptions) == 0:
		errs = append(errs, optionCountError(p))
	case !isDropdown && len(p.PromptOptions) > 0:
		errs = append(errs, ValidationError{
			Field:   blockField(rubric.VariantPrompt, p.Order, "promptOptions"),
			Message: "only dropdown prompts carry options",
			Code:    ErrCodeOptionsNotAllowed,
		})
	}

	for i, opt := range p.PromptOptions {
		text := strings.TrimSpace(opt.Text)
		if err := validate.Var(text, fmt.Sprintf("required,max=%d", rubric.OptionTextMaxLen)); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s[%d]", blockField(rubric.VariantPrompt, p.Order, "promptOptions"), i),
				Message: fmt.Sprintf("option text must be 1-%d characters", rubric.OptionTextMaxLen),
				Code:    ErrCodeOptionText,
			})
		}
	}

	return errs
}

func optionCountError(p rubric.Prompt) ValidationError {
	return ValidationError{
		Field:   blockField(rubric.VariantPrompt, p.Order, "promptOptions"),
		Message: fmt.Sprintf("dropdown prompts need 1-%d options", rubric.MaxOptions),
		Code:    ErrCodeOptionCount,
	}
}

// blockField names a block field by order, which is the block's identity
// while editing: "prompt[3].promptText".
func blockField(v rubric.Variant, order int, field string) string {
	return fmt.Sprintf("%s[%d].%s", v, order, field)
}
