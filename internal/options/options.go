// Package options manages the option list of a dropdown prompt while the
// prompt is being edited.
//
// The list is ordered purely by array position. It is independent of the
// document-level block order and is written back into the parent prompt only
// when the prompt edit is committed.
package options

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/rubric/internal/rubric"
)

var (
	// ErrEmptyText is returned when an option's text is blank after trimming.
	ErrEmptyText = errors.New("option text is empty")

	// ErrTextTooLong is returned when an option's text exceeds rubric.OptionTextMaxLen characters.
	ErrTextTooLong = errors.New("option text is too long")

	// ErrListFull is returned when the list already holds rubric.MaxOptions options.
	ErrListFull = errors.New("option list is full")
)

var lower = cases.Lower(language.Und)

// NormalizeKey derives an option key from its display text: lowercased,
// with everything that is not a letter removed.
func NormalizeKey(text string) string {
	var b strings.Builder
	for _, r := range lower.String(text) {
		if unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// List is the ordered option list of one in-progress prompt edit.
type List struct {
	items []rubric.DropdownOption
}

// New creates a list seeded with a copy of existing options.
func New(existing []rubric.DropdownOption) *List {
	items := rubric.CloneOptions(existing)
	if items == nil {
		items = []rubric.DropdownOption{}
	}
	return &List{items: items}
}

// FromTexts builds a list by adding each text in turn.
// Returns the first rejection, if any.
func FromTexts(texts []string) (*List, error) {
	l := New(nil)
	for _, text := range texts {
		if _, err := l.Add(text); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add appends an option built from text.
//
// Options whose derived keys collide are kept as distinct entries; use
// Collisions to report them.
func (l *List) Add(text string) (rubric.DropdownOption, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return rubric.DropdownOption{}, ErrEmptyText
	}
	if utf8.RuneCountInString(text) > rubric.OptionTextMaxLen {
		return rubric.DropdownOption{}, ErrTextTooLong
	}
	if len(l.items) >= rubric.MaxOptions {
		return rubric.DropdownOption{}, ErrListFull
	}

	key := NormalizeKey(text)
	opt := rubric.DropdownOption{Key: key, Text: text, Value: key}
	l.items = append(l.items, opt)
	return opt, nil
}

// Move shifts the option at index one position in dir.
// Moving the first option up, the last option down, or an index outside the
// list is a no-op. Reports whether the list changed.
func (l *List) Move(index int, dir rubric.Direction) bool {
	if index < 0 || index >= len(l.items) {
		return false
	}

	target := index
	switch dir {
	case rubric.Up:
		if index == 0 {
			return false
		}
		target = index - 1
	case rubric.Down:
		if index == len(l.items)-1 {
			return false
		}
		target = index + 1
	default:
		return false
	}

	opt := l.items[index]
	l.items = append(l.items[:index], l.items[index+1:]...)
	l.items = append(l.items[:target], append([]rubric.DropdownOption{opt}, l.items[target:]...)...)
	return true
}

// Remove deletes the option at index. Out-of-range indexes are a no-op.
func (l *List) Remove(index int) bool {
	if index < 0 || index >= len(l.items) {
		return false
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return true
}

// Len returns the number of options.
func (l *List) Len() int {
	return len(l.items)
}

// Items returns a copy of the options in list order.
func (l *List) Items() []rubric.DropdownOption {
	out := make([]rubric.DropdownOption, len(l.items))
	copy(out, l.items)
	return out
}

// Collisions returns, for every key held by more than one option, the
// indexes of those options in list order.
func (l *List) Collisions() map[string][]int {
	seen := make(map[string][]int)
	for i, opt := range l.items {
		seen[opt.Key] = append(seen[opt.Key], i)
	}
	out := make(map[string][]int)
	for key, idx := range seen {
		if len(idx) > 1 {
			out[key] = idx
		}
	}
	return out
}
