package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	var reviewID string

	cmd := &cobra.Command{
		Use:   "snapshot <rubric-id> --review <review-id>",
		Short: "Record the rubric a peer review was submitted against",
		Long: `Store an immutable copy of a rubric for a submitted peer review.

A review has at most one snapshot: running the command again for the same
review returns the first snapshot, even if the rubric changed since. Naming
a different rubric for a review that already has a snapshot fails.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			if reviewID == "" {
				return formatter.Fail(ExitCommandError, ErrCodeBadArgument, errors.New("--review is required"))
			}

			st, org, err := rootOpts.openStore(formatter)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := org.Snapshot(cmd.Context(), args[0], reviewID)
			if err != nil {
				return formatter.Fail(ExitCommandError, ErrCodeSnapshot, err)
			}

			if formatter.Format == "json" {
				return formatter.Success(snap)
			}
			fmt.Fprintf(formatter.Writer, "✓ Snapshot %d of %s for review %s\n", snap.ID, snap.RubricID, snap.ReviewID)
			fmt.Fprintf(formatter.Writer, "  content hash %s\n", snap.ContentHash)
			return nil
		},
	}

	cmd.Flags().StringVar(&reviewID, "review", "", "peer review id (required)")
	return cmd
}
