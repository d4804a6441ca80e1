package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rubric/internal/rubric"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "list",
		Short:         "List the organization's rubrics",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			st, org, err := rootOpts.openStore(formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			list, err := org.ListRubrics(cmd.Context())
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeStore, err)
			}
			return outputList(formatter, list)
		},
	}
	return cmd
}

func outputList(formatter *OutputFormatter, list []rubric.Summary) error {
	if formatter.Format == "json" {
		return formatter.Success(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(formatter.Writer, "No rubrics.")
		return nil
	}
	for _, s := range list {
		marker := " "
		if s.IsOrgDefault {
			marker = "*"
		}
		fmt.Fprintf(formatter.Writer, "%s %s  %-40s  %d blocks  %s\n",
			marker, s.RubricID, s.RubricTitle, s.BlockCount, s.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
