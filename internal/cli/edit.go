package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/rubric/internal/document"
	"github.com/roach88/rubric/internal/rubric"
	"github.com/roach88/rubric/internal/session"
)

// EditResult is the output of edit.
type EditResult struct {
	Changed bool       `json:"changed"`
	Saved   bool       `json:"saved"`
	Rubric  RubricView `json:"rubric"`
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <rubric-id> <move|delete> <order> [up|down]",
		Short: "Move or delete one block and save",
		Long: `Apply one ordering operation to a stored rubric and save it.

Moving the first block up, the last block down, or naming an order that does
not exist changes nothing and saves nothing.

Examples:
  rubric edit 0192f0c4-... move 3 up
  rubric edit 0192f0c4-... delete 2`,
		Args:          cobra.RangeArgs(3, 4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd.Context(), rootOpts, args, cmd)
		},
	}
	return cmd
}

// editOp is a parsed edit operation.
type editOp struct {
	name  string
	order int
	dir   rubric.Direction
}

func parseEditArgs(args []string) (editOp, error) {
	op := editOp{name: args[1]}
	order, err := strconv.Atoi(args[2])
	if err != nil || order < 1 {
		return op, fmt.Errorf("order must be a positive integer, got %q", args[2])
	}
	op.order = order

	switch op.name {
	case "move":
		if len(args) != 4 {
			return op, errors.New("move needs a direction: up or down")
		}
		dir, ok := rubric.ParseDirection(args[3])
		if !ok {
			return op, fmt.Errorf("direction must be up or down, got %q", args[3])
		}
		op.dir = dir
	case "delete":
		if len(args) != 3 {
			return op, errors.New("delete takes no direction")
		}
	default:
		return op, fmt.Errorf("unknown operation %q: must be move or delete", op.name)
	}
	return op, nil
}

func runEdit(ctx context.Context, opts *RootOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	op, err := parseEditArgs(args)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeBadArgument, err)
	}

	st, org, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	s, err := session.Open(ctx, org, args[0], orgName(opts), session.WithLogger(opts.Logger()))
	defer s.Close()
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRubricLoad, err)
	}

	var changed bool
	switch op.name {
	case "move":
		changed, err = s.Move(op.order, op.dir)
	case "delete":
		changed, err = s.Delete(op.order)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := EditResult{Changed: changed}
	if changed {
		if _, err := s.Save(ctx); err != nil {
			if v, ok := document.AsValidationErrors(err); ok {
				_ = formatter.Error(ErrCodeRubricSave, "rubric is invalid after edit", v)
				return reportedExitError(ExitFailure, ErrCodeRubricSave, err)
			}
			return formatter.Fail(ExitCommandError, ErrCodeRubricSave, err)
		}
		result.Saved = true
	}

	result.Rubric, err = rubricView(s)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeRubricLoad, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	if !changed {
		fmt.Fprintln(formatter.Writer, "No change.")
	} else {
		fmt.Fprintln(formatter.Writer, "✓ Saved")
	}
	return outputRubricView(formatter, result.Rubric)
}
