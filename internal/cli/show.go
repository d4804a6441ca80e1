package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rubric/internal/engine"
	"github.com/roach88/rubric/internal/rubric"
	"github.com/roach88/rubric/internal/session"
)

// BlockView is one block of the merged ordered view.
type BlockView struct {
	Order    int      `json:"order"`
	Variant  string   `json:"variant"`
	Text     string   `json:"text"`
	Type     string   `json:"promptType,omitempty"`
	Required bool     `json:"required,omitempty"`
	Options  []string `json:"options,omitempty"`
}

// RubricView is the output of show and edit.
type RubricView struct {
	RubricID     string      `json:"rubricID"`
	Title        string      `json:"title"`
	IsOrgDefault bool        `json:"isOrgDefault"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	Blocks       []BlockView `json:"blocks"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "show <rubric-id>",
		Short:         "Print a rubric's blocks in order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runShow(ctx context.Context, opts *RootOptions, id string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	st, org, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := session.Open(ctx, org, id, orgName(opts), session.WithLogger(opts.Logger()))
	defer s.Close()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRubricLoad, err)
	}

	view, err := rubricView(s)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRubricLoad, err)
	}
	return outputRubricView(formatter, view)
}

// rubricView renders the session's document for output.
func rubricView(s *session.Session) (RubricView, error) {
	r, err := s.Rubric()
	if err != nil {
		return RubricView{}, err
	}
	entries := engine.FromRubric(r).MergedOrderedView()

	view := RubricView{
		RubricID:     r.RubricID,
		Title:        r.RubricTitle,
		IsOrgDefault: r.IsOrgDefault,
		UpdatedAt:    r.UpdatedAt,
		Blocks:       make([]BlockView, len(entries)),
	}
	for i, e := range entries {
		b := BlockView{Order: e.Order(), Variant: string(e.Variant), Text: e.Text()}
		if p, ok := e.Block.(rubric.Prompt); ok {
			b.Type = string(p.PromptType)
			b.Required = p.PromptRequired
			for _, o := range p.PromptOptions {
				b.Options = append(b.Options, o.Text)
			}
		}
		view.Blocks[i] = b
	}
	return view, nil
}

func outputRubricView(formatter *OutputFormatter, view RubricView) error {
	if formatter.Format == "json" {
		return formatter.Success(view)
	}

	w := formatter.Writer
	title := view.Title
	if view.IsOrgDefault {
		title += " [organization default]"
	}
	fmt.Fprintf(w, "%s (%s)\n", title, view.RubricID)
	for _, b := range view.Blocks {
		line := fmt.Sprintf("%3d  %-9s  %s", b.Order, b.Variant, b.Text)
		if b.Type != "" {
			line += fmt.Sprintf("  [%s", b.Type)
			if b.Required {
				line += ", required"
			}
			line += "]"
		}
		fmt.Fprintln(w, line)
		for _, o := range b.Options {
			fmt.Fprintf(w, "%16s- %s\n", "", o)
		}
	}
	return nil
}
