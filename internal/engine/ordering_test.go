package engine

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/roach88/rubric/internal/rubric"
)

func mustInsert(t *testing.T, e *Engine, b rubric.Block) int {
	t.Helper()
	order, err := e.Insert(b)
	require.NoError(t, err)
	return order
}

func TestInsert_AppendsAtEnd(t *testing.T) {
	e := New(nil)

	assert.Equal(t, 1, mustInsert(t, e, rubric.Heading{Text: "Intro"}))
	assert.Equal(t, 2, mustInsert(t, e, rubric.Prompt{PromptType: rubric.PromptText, PromptText: "Rate this"}))
	assert.Equal(t, 3, mustInsert(t, e, rubric.TextBlock{Order: 1, Text: "ignored order"}))
	assert.NoError(t, e.Store().CheckInvariant())
}

func TestInsert_UnsupportedBlock(t *testing.T) {
	e := New(nil)

	_, err := e.Insert(nil)
	assert.ErrorIs(t, err, ErrUnsupportedBlock)

	_, err = e.Insert(&rubric.Heading{Text: "pointer"})
	assert.ErrorIs(t, err, ErrUnsupportedBlock)
	assert.Equal(t, 0, e.Store().Len())
}

func TestScenario_InsertMoveDelete(t *testing.T) {
	e := New(nil)
	mustInsert(t, e, rubric.Heading{Text: "Intro"})
	mustInsert(t, e, rubric.Prompt{PromptType: rubric.PromptText, PromptText: "Rate this"})
	mustInsert(t, e, rubric.TextBlock{Text: "Instructions"})

	require.True(t, e.Move(3, rubric.Up))
	assert.Equal(t, []viewLine{
		{1, rubric.VariantHeading, "Intro"},
		{2, rubric.VariantTextBlock, "Instructions"},
		{3, rubric.VariantPrompt, "Rate this"},
	}, render(e.Store().MergedOrderedView()))

	require.True(t, e.Delete(1))
	assert.Equal(t, []viewLine{
		{1, rubric.VariantTextBlock, "Instructions"},
		{2, rubric.VariantPrompt, "Rate this"},
	}, render(e.Store().MergedOrderedView()))
	assert.NoError(t, e.Store().CheckInvariant())
}

func TestMove_CrossCollection(t *testing.T) {
	e := New(nil)
	mustInsert(t, e, rubric.TextBlock{Text: "Preamble"})
	mustInsert(t, e, rubric.Heading{Text: "Section"})
	mustInsert(t, e, rubric.Prompt{PromptType: rubric.PromptCheckbox, PromptText: "Done?"})

	require.True(t, e.Move(2, rubric.Down))

	s := e.Store()
	assert.Equal(t, []rubric.Heading{{Order: 3, Text: "Section"}}, s.Headings())
	require.Len(t, s.Prompts(), 1)
	assert.Equal(t, 2, s.Prompts()[0].Order)
	assert.Len(t, s.TextBlocks(), 1)
}

func TestMove_Boundaries(t *testing.T) {
	e := New(nil)
	mustInsert(t, e, rubric.Heading{Text: "a"})
	mustInsert(t, e, rubric.TextBlock{Text: "b"})
	mustInsert(t, e, rubric.Heading{Text: "c"})
	before := render(e.Store().MergedOrderedView())

	assert.False(t, e.Move(1, rubric.Up))
	assert.False(t, e.Move(3, rubric.Down))
	assert.Equal(t, before, render(e.Store().MergedOrderedView()))
}

func TestMove_StaleAndInvalid(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := New(nil, WithLogger(zap.New(core)))
	mustInsert(t, e, rubric.Heading{Text: "a"})
	mustInsert(t, e, rubric.Heading{Text: "b"})
	before := render(e.Store().MergedOrderedView())

	assert.False(t, e.Move(7, rubric.Up))
	assert.False(t, e.Move(0, rubric.Down))
	assert.False(t, e.Move(-3, rubric.Down))
	assert.False(t, e.Move(1, rubric.Direction("sideways")))
	assert.Equal(t, before, render(e.Store().MergedOrderedView()))
	assert.GreaterOrEqual(t, logs.FilterMessage("stale block reference ignored").Len(), 1)
}

func TestDelete_Renumbers(t *testing.T) {
	e := New(nil)
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		if text == "c" {
			mustInsert(t, e, rubric.Prompt{PromptType: rubric.PromptText, PromptText: text})
			continue
		}
		mustInsert(t, e, rubric.TextBlock{Text: text})
	}

	require.True(t, e.Delete(3))
	assert.Equal(t, []viewLine{
		{1, rubric.VariantTextBlock, "a"},
		{2, rubric.VariantTextBlock, "b"},
		{3, rubric.VariantTextBlock, "d"},
		{4, rubric.VariantTextBlock, "e"},
	}, render(e.Store().MergedOrderedView()))
	assert.Empty(t, e.Store().Prompts())
}

func TestDelete_StaleIsNoOp(t *testing.T) {
	e := New(nil)
	mustInsert(t, e, rubric.Heading{Text: "a"})
	mustInsert(t, e, rubric.Heading{Text: "b"})

	require.True(t, e.Delete(2))
	assert.False(t, e.Delete(2), "second click on the same delete")
	assert.Equal(t, 1, e.Store().Len())
}

func TestUpdate(t *testing.T) {
	e := New(nil)
	mustInsert(t, e, rubric.Heading{Text: "a"})
	mustInsert(t, e, rubric.Prompt{PromptType: rubric.PromptText, PromptText: "old"})

	changed, err := e.Update(2, rubric.Prompt{Order: 99, PromptType: rubric.PromptCheckbox, PromptText: "new"})
	require.NoError(t, err)
	assert.True(t, changed)

	got, ok := e.Store().FindByOrder(2)
	require.True(t, ok)
	assert.Equal(t, rubric.Prompt{Order: 2, PromptType: rubric.PromptCheckbox, PromptText: "new"}, got.Block)

	_, err = e.Update(1, rubric.TextBlock{Text: "wrong variant"})
	var mismatch *VariantMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, rubric.VariantHeading, mismatch.Have)

	changed, err = e.Update(5, rubric.Heading{Text: "gone"})
	assert.NoError(t, err)
	assert.False(t, changed)
}

// TestOrderingInvariant_RandomOperations drives long random sequences of
// insert/move/delete and checks the dense ordering after every step.
func TestOrderingInvariant_RandomOperations(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		e := New(nil)
		var shadow []viewLine // expected document order

		for step := 0; step < 200; step++ {
			n := e.Store().Len()
			switch op := rng.Intn(4); {
			case op == 0 || n == 0:
				var b rubric.Block
				text := string(rune('a' + rng.Intn(26)))
				switch rng.Intn(3) {
				case 0:
					b = rubric.Heading{Text: text}
				case 1:
					b = rubric.TextBlock{Text: text}
				default:
					b = rubric.Prompt{PromptType: rubric.PromptText, PromptText: text}
				}
				order := mustInsert(t, e, b)
				shadow = append(shadow, viewLine{order, b.Variant(), text})
			case op == 1:
				order := rng.Intn(n+2) - 1
				dir := rubric.Up
				if rng.Intn(2) == 0 {
					dir = rubric.Down
				}
				if e.Move(order, dir) {
					i, j := order-1, order
					if dir == rubric.Up {
						j = order - 2
					}
					shadow[i], shadow[j] = shadow[j], shadow[i]
				}
			default:
				order := rng.Intn(n+2) - 1
				if e.Delete(order) {
					shadow = append(shadow[:order-1], shadow[order:]...)
				}
			}

			require.NoError(t, e.Store().CheckInvariant(), "run %d step %d", run, step)
			for i := range shadow {
				shadow[i].Order = i + 1
			}
			if diff := cmp.Diff(shadow, render(e.Store().MergedOrderedView())); diff != "" {
				t.Fatalf("run %d step %d: view mismatch (-want +got):\n%s", run, step, diff)
			}
		}
	}
}
