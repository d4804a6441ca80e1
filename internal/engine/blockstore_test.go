package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rubric/internal/rubric"
)

// viewLine is a compact rendering of one merged-view entry for comparisons.
type viewLine struct {
	Order   int
	Variant rubric.Variant
	Text    string
}

func render(view []Entry) []viewLine {
	out := make([]viewLine, len(view))
	for i, e := range view {
		line := viewLine{Order: e.Order(), Variant: e.Variant}
		switch b := e.Block.(type) {
		case rubric.Heading:
			line.Text = b.Text
		case rubric.TextBlock:
			line.Text = b.Text
		case rubric.Prompt:
			line.Text = b.PromptText
		}
		out[i] = line
	}
	return out
}

func TestNewBlockStore_Empty(t *testing.T) {
	s := NewBlockStore()
	assert.Equal(t, 0, s.LastOrder())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.MergedOrderedView())
	assert.NoError(t, s.CheckInvariant())

	_, ok := s.FindByOrder(1)
	assert.False(t, ok)
}

func TestMergedOrderedView_InterleavesCollections(t *testing.T) {
	s := FromRubric(rubric.Rubric{
		Headings:   []rubric.Heading{{Order: 3, Text: "Second section"}, {Order: 1, Text: "Intro"}},
		TextBlocks: []rubric.TextBlock{{Order: 2, Text: "Read first"}},
		Prompts:    []rubric.Prompt{{Order: 4, PromptType: rubric.PromptText, PromptText: "Comments"}},
	})

	want := []viewLine{
		{1, rubric.VariantHeading, "Intro"},
		{2, rubric.VariantTextBlock, "Read first"},
		{3, rubric.VariantHeading, "Second section"},
		{4, rubric.VariantPrompt, "Comments"},
	}
	if diff := cmp.Diff(want, render(s.MergedOrderedView())); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 4, s.LastOrder())
	assert.NoError(t, s.CheckInvariant())
}

func TestMergedOrderedView_DeterministicTieBreak(t *testing.T) {
	s := FromRubric(rubric.Rubric{
		Headings:   []rubric.Heading{{Order: 1, Text: "h0"}, {Order: 1, Text: "h1"}},
		TextBlocks: []rubric.TextBlock{{Order: 1, Text: "t0"}},
		Prompts:    []rubric.Prompt{{Order: 1, PromptText: "p0"}},
	})

	want := []viewLine{
		{1, rubric.VariantHeading, "h0"},
		{1, rubric.VariantHeading, "h1"},
		{1, rubric.VariantTextBlock, "t0"},
		{1, rubric.VariantPrompt, "p0"},
	}
	for i := 0; i < 5; i++ {
		assert.Equal(t, want, render(s.MergedOrderedView()))
	}

	err := s.CheckInvariant()
	require.Error(t, err)
	assert.True(t, IsInvariantError(err))
}

func TestFindByOrder(t *testing.T) {
	s := FromRubric(rubric.Rubric{
		Headings: []rubric.Heading{{Order: 2, Text: "Intro"}},
		Prompts:  []rubric.Prompt{{Order: 1, PromptType: rubric.PromptCheckbox, PromptText: "Agree?"}},
	})

	e, ok := s.FindByOrder(2)
	require.True(t, ok)
	assert.Equal(t, rubric.VariantHeading, e.Variant)
	assert.Equal(t, "Intro", e.Block.(rubric.Heading).Text)

	e, ok = s.FindByOrder(1)
	require.True(t, ok)
	assert.Equal(t, rubric.VariantPrompt, e.Variant)

	_, ok = s.FindByOrder(3)
	assert.False(t, ok)
}

func TestCheckInvariant_Gap(t *testing.T) {
	s := FromRubric(rubric.Rubric{
		Headings:   []rubric.Heading{{Order: 1, Text: "a"}},
		TextBlocks: []rubric.TextBlock{{Order: 3, Text: "b"}},
	})

	err := s.CheckInvariant()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestFromRubric_DoesNotAliasInput(t *testing.T) {
	r := rubric.Rubric{
		Prompts: []rubric.Prompt{{
			Order:         1,
			PromptType:    rubric.PromptDropdown,
			PromptText:    "Pick",
			PromptOptions: []rubric.DropdownOption{{Key: "a", Text: "A", Value: "a"}},
		}},
	}
	s := FromRubric(r)
	r.Prompts[0].PromptOptions[0].Text = "mutated"
	r.Prompts[0].Order = 9

	p := s.Prompts()[0]
	assert.Equal(t, 1, p.Order)
	assert.Equal(t, "A", p.PromptOptions[0].Text)
}

func TestApply(t *testing.T) {
	s := NewBlockStore()
	e := New(s)
	_, err := e.Insert(rubric.Heading{Text: "Intro"})
	require.NoError(t, err)
	_, err = e.Insert(rubric.TextBlock{Text: "Body"})
	require.NoError(t, err)

	var r rubric.Rubric
	s.Apply(&r)
	assert.Equal(t, []rubric.Heading{{Order: 1, Text: "Intro"}}, r.Headings)
	assert.Equal(t, []rubric.TextBlock{{Order: 2, Text: "Body"}}, r.TextBlocks)
	assert.Equal(t, []rubric.Prompt{}, r.Prompts)
}

func TestEntry_String(t *testing.T) {
	tests := []struct {
		entry Entry
		want  string
	}{
		{Entry{rubric.VariantHeading, rubric.Heading{Order: 1, Text: "Intro"}}, "1 heading Intro"},
		{Entry{rubric.VariantTextBlock, rubric.TextBlock{Order: 2, Text: "Read *all* of it"}}, "2 textBlock Read *all* of it"},
		{Entry{rubric.VariantPrompt, rubric.Prompt{Order: 3, PromptType: rubric.PromptText, PromptText: "Why?"}}, "3 prompt Why?"},
		{Entry{rubric.VariantPrompt, rubric.Prompt{
			Order:      4,
			PromptType: rubric.PromptDropdown,
			PromptText: "Verdict",
			PromptOptions: []rubric.DropdownOption{
				{Key: "accept", Text: "Accept", Value: "accept"},
				{Key: "reject", Text: "Reject", Value: "reject"},
			},
		}}, "4 prompt Verdict (Accept, Reject)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.entry.String())
	}
}
