package harness

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/compiler"
	"github.com/roach88/rubric/internal/engine"
	"github.com/roach88/rubric/internal/options"
	"github.com/roach88/rubric/internal/rubric"
	"github.com/roach88/rubric/internal/session"
	"github.com/roach88/rubric/internal/store"
	"github.com/roach88/rubric/internal/testutil"
)

// DefaultOrgName is used when a scenario does not name its organization.
const DefaultOrgName = "Harness Org"

const harnessOrgID = "harness"

// Harness is the scenario execution engine.
// It runs steps against one session with a deterministic clock and ids.
type Harness struct {
	store   *store.Store
	p       *store.OrgStore
	session *session.Session
	orgName string
	savedID string
	logger  *zap.Logger
}

// Option configures a harness run.
type Option func(*Harness)

// WithLogger sets the logger passed to the session.
func WithLogger(l *zap.Logger) Option {
	return func(h *Harness) {
		if l != nil {
			h.logger = l
		}
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Create fresh in-memory database and a create-mode session
// 2. Compile and insert the template blocks, if any
// 3. Execute steps, checking expectations and the order invariant
// 4. Evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	clock := testutil.NewDeterministicClock()
	ids := testutil.NewSequentialIDs("rubric")
	st, err := store.Open(":memory:",
		store.WithClock(clock.Now),
		store.WithIDGenerator(func() (string, error) { return ids.Generate(), nil }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:   st,
		p:       st.ForOrg(harnessOrgID),
		orgName: scenario.OrgName,
		logger:  zap.NewNop(),
	}
	if h.orgName == "" {
		h.orgName = DefaultOrgName
	}
	for _, opt := range opts {
		opt(h)
	}

	ctx := context.Background()
	h.session = session.NewCreate(ctx, h.p, h.orgName, session.WithLogger(h.logger))
	defer func() { h.session.Close() }()

	result := NewResult()

	if scenario.Template != nil {
		if err := h.applyTemplate(scenario.Template); err != nil {
			return nil, fmt.Errorf("failed to apply template: %w", err)
		}
	}

	for i, step := range scenario.Steps {
		ev, err := h.executeStep(ctx, i, step)
		if err != nil {
			return nil, err
		}
		result.AddTrace(ev)
		checkExpect(result, i, step.Expect, ev)

		if err := h.checkInvariant(); err != nil {
			result.AddError(fmt.Sprintf("steps[%d] %s: %v", i, ev.Op, err))
		}
	}

	view, err := h.session.View()
	if err != nil {
		return nil, fmt.Errorf("final view: %w", err)
	}
	result.View = renderView(view)

	actx := &AssertionContext{Ctx: ctx, Harness: h}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	return result, nil
}

// applyTemplate compiles the referenced template and inserts its blocks and
// title into the session.
func (h *Harness) applyTemplate(ref *TemplateRef) error {
	data, err := os.ReadFile(ref.File)
	if err != nil {
		return err
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(ref.File))
	if err := v.Err(); err != nil {
		return err
	}
	tmpl, err := compiler.CompileTemplate(v.LookupPath(cue.MakePath(cue.Str("rubric"), cue.Str(ref.Name))), h.orgName)
	if err != nil {
		return err
	}

	return tmpl.ApplyTo(h.session)
}

// executeStep runs one step. Operation failures are recorded in the trace;
// only harness failures are returned as errors.
func (h *Harness) executeStep(ctx context.Context, index int, step Step) (TraceEvent, error) {
	ev := TraceEvent{Step: index, Op: step.Op()}
	var err error

	switch ev.Op {
	case "insert":
		ev.Args = step.Insert
		var block rubric.Block
		if block, err = step.Insert.build(); err == nil {
			ev.Order, err = h.session.Insert(block)
			ev.Changed = err == nil
		}

	case "move":
		ev.Args = step.Move
		dir, _ := rubric.ParseDirection(step.Move.Direction)
		ev.Order = step.Move.Order
		ev.Changed, err = h.session.Move(step.Move.Order, dir)

	case "delete":
		ev.Args = step.Delete
		ev.Order = step.Delete.Order
		ev.Changed, err = h.session.Delete(step.Delete.Order)

	case "update":
		ev.Args = step.Update
		ev.Order = step.Update.Order
		var block rubric.Block
		if block, err = step.Update.BlockSpec.build(); err == nil {
			ev.Changed, err = h.session.Update(step.Update.Order, block)
		}

	case "set_title":
		ev.Args = *step.SetTitle
		before := h.header()
		err = h.session.SetTitle(*step.SetTitle)
		ev.Changed = err == nil && before != h.header()

	case "org_default":
		ev.Args = *step.OrgDefault
		before := h.header()
		err = h.session.SetOrgDefault(*step.OrgDefault)
		ev.Changed = err == nil && before != h.header()

	case "save":
		var resp rubric.PutResponse
		resp, err = h.session.Save(ctx)
		if err == nil {
			h.savedID = resp.RubricID
			ev.Args = resp.RubricID
			ev.Changed = true
		}

	case "reload":
		if h.savedID == "" {
			err = errors.New("nothing saved yet")
			break
		}
		ev.Args = h.savedID
		h.session.Close()
		h.session, err = session.Open(ctx, h.p, h.savedID, h.orgName, session.WithLogger(h.logger))
		ev.Changed = err == nil

	default:
		return ev, fmt.Errorf("steps[%d]: no operation", index)
	}

	if err != nil {
		ev.Error = err.Error()
	}
	ev.State = string(h.session.State())
	view, viewErr := h.session.View()
	if viewErr == nil {
		ev.View = renderView(view)
	} else {
		ev.View = []string{}
	}

	h.logger.Debug("step executed",
		zap.Int("step", index),
		zap.String("op", ev.Op),
		zap.Bool("changed", ev.Changed),
		zap.String("state", ev.State))
	return ev, nil
}

// header returns the title and default flag, for change detection.
func (h *Harness) header() string {
	r, err := h.session.Rubric()
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s|%t", r.RubricTitle, r.IsOrgDefault)
}

// checkExpect compares a step outcome against its expect clause.
func checkExpect(result *Result, index int, expect *StepExpect, ev TraceEvent) {
	if expect == nil {
		if ev.Error != "" {
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %s", index, ev.Op, ev.Error))
		}
		return
	}
	if expect.Error != "" {
		if !strings.Contains(ev.Error, expect.Error) {
			result.AddError(fmt.Sprintf("steps[%d] %s: expected error containing %q, got %q", index, ev.Op, expect.Error, ev.Error))
		}
	} else if ev.Error != "" {
		result.AddError(fmt.Sprintf("steps[%d] %s: unexpected error: %s", index, ev.Op, ev.Error))
	}
	if expect.Changed != nil && *expect.Changed != ev.Changed {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected changed=%t, got %t", index, ev.Op, *expect.Changed, ev.Changed))
	}
	if expect.Order != nil && *expect.Order != ev.Order {
		result.AddError(fmt.Sprintf("steps[%d] %s: expected order %d, got %d", index, ev.Op, *expect.Order, ev.Order))
	}
}

// checkInvariant verifies the session's blocks are ordered exactly 1..N.
func (h *Harness) checkInvariant() error {
	r, err := h.session.Rubric()
	if errors.Is(err, session.ErrNotEditable) {
		return nil
	}
	if err != nil {
		return err
	}
	return engine.FromRubric(r).CheckInvariant()
}

// build converts b into a block with no order.
func (b BlockSpec) build() (rubric.Block, error) {
	switch {
	case b.Heading != "":
		return rubric.Heading{Text: b.Heading}, nil
	case b.Text != "":
		return rubric.TextBlock{Text: b.Text}, nil
	case b.Prompt != nil:
		p := rubric.Prompt{
			PromptType:     rubric.PromptType(b.Prompt.Type),
			PromptText:     b.Prompt.Text,
			PromptRequired: b.Prompt.Required,
		}
		if len(b.Prompt.Options) > 0 {
			list, err := options.FromTexts(b.Prompt.Options)
			if err != nil {
				return nil, err
			}
			p.PromptOptions = list.Items()
		}
		return p, nil
	default:
		return nil, errors.New("empty block")
	}
}

func renderView(view []engine.Entry) []string {
	out := make([]string, len(view))
	for i, e := range view {
		out[i] = e.String()
	}
	return out
}
