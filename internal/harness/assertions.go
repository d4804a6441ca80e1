package harness

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/rubric/internal/engine"
	"github.com/roach88/rubric/internal/rubric"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s changed=%t state=%s", event.Step, event.Op, event.Changed, event.State)
			if event.Error != "" {
				fmt.Fprintf(&buf, " error=%q", event.Error)
			}
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}

// AssertionContext carries what assertions need beyond the result.
type AssertionContext struct {
	Ctx     context.Context
	Harness *Harness
}

// EvaluateAssertions checks every assertion and returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertView:
		return assertView(result, a)
	case AssertCount:
		return assertCount(result, a, actx)
	case AssertValid:
		return assertValid(result, actx)
	case AssertInvalid:
		return assertInvalid(result, a, actx)
	case AssertState:
		return assertState(result, a, actx)
	case AssertPersisted:
		return assertPersisted(result, actx)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertView checks the final merged view line by line.
func assertView(result *Result, a Assertion) error {
	if equalLines(result.View, a.Blocks) {
		return nil
	}
	return &AssertionError{
		Type:     AssertView,
		Expected: formatLines(a.Blocks),
		Actual:   formatLines(result.View),
		Trace:    result.Trace,
	}
}

// assertCount checks how many blocks of one variant the document holds.
func assertCount(result *Result, a Assertion, actx *AssertionContext) error {
	view, err := actx.Harness.session.View()
	if err != nil {
		return err
	}
	n := 0
	for _, e := range view {
		if e.Variant == rubric.Variant(a.Variant) {
			n++
		}
	}
	if n == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Expected: fmt.Sprintf("%d %s blocks", a.Count, a.Variant),
		Actual:   fmt.Sprintf("%d %s blocks", n, a.Variant),
		Trace:    result.Trace,
	}
}

func assertValid(result *Result, actx *AssertionContext) error {
	errs, err := actx.Harness.session.Validate()
	if err != nil {
		return err
	}
	if len(errs) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertValid,
		Expected: "no validation errors",
		Actual:   errs.Error(),
		Trace:    result.Trace,
	}
}

func assertInvalid(result *Result, a Assertion, actx *AssertionContext) error {
	errs, err := actx.Harness.session.Validate()
	if err != nil {
		return err
	}
	codes := make([]string, 0, len(errs))
	for _, e := range errs {
		if e.Code == a.Code {
			return nil
		}
		codes = append(codes, e.Code)
	}
	return &AssertionError{
		Type:     AssertInvalid,
		Expected: "validation error " + a.Code,
		Actual:   "codes [" + strings.Join(codes, ", ") + "]",
		Trace:    result.Trace,
	}
}

func assertState(result *Result, a Assertion, actx *AssertionContext) error {
	got := string(actx.Harness.session.State())
	if got == a.State {
		return nil
	}
	return &AssertionError{
		Type:     AssertState,
		Expected: a.State,
		Actual:   got,
		Trace:    result.Trace,
	}
}

// assertPersisted reads the last saved rubric back from the store and
// compares its view with the session's.
func assertPersisted(result *Result, actx *AssertionContext) error {
	h := actx.Harness
	if h.savedID == "" {
		return &AssertionError{
			Type:     AssertPersisted,
			Expected: "a saved rubric",
			Actual:   "nothing saved",
			Trace:    result.Trace,
		}
	}
	stored, err := h.p.GetRubric(actx.Ctx, h.savedID)
	if err != nil {
		return fmt.Errorf("read back %s: %w", h.savedID, err)
	}
	got := renderView(engine.FromRubric(*stored).MergedOrderedView())
	if equalLines(got, result.View) {
		return nil
	}
	return &AssertionError{
		Type:     AssertPersisted,
		Expected: formatLines(result.View),
		Actual:   formatLines(got),
		Trace:    result.Trace,
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func formatLines(lines []string) string {
	if len(lines) == 0 {
		return "(empty)"
	}
	return "[" + strings.Join(lines, " | ") + "]"
}
