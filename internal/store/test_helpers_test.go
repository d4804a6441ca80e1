package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/rubric/internal/rubric"
	"github.com/roach88/rubric/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a deterministic
// clock and sequential ids.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	clock := testutil.NewDeterministicClock()
	ids := testutil.NewSequentialIDs("rubric")
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path,
		WithClock(clock.Now),
		WithIDGenerator(func() (string, error) { return ids.Generate(), nil }),
	)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRequest builds a small valid create request.
func createTestRequest(title string) rubric.PutRequest {
	return rubric.PutRequest{
		Mode:        rubric.ModeCreate,
		RubricTitle: title,
		Headings:    []rubric.Heading{{Order: 1, Text: "Intro"}},
		TextBlocks:  []rubric.TextBlock{{Order: 2, Text: "Use <b>evidence</b> & examples."}},
		Prompts: []rubric.Prompt{{
			Order:          3,
			PromptType:     rubric.PromptDropdown,
			PromptText:     "Verdict",
			PromptRequired: true,
			PromptOptions: []rubric.DropdownOption{
				{Key: "accept", Text: "Accept", Value: "accept"},
				{Key: "reject", Text: "Reject", Value: "reject"},
			},
		}},
	}
}

func boolPtr(b bool) *bool { return &b }
