// Command rubric builds, edits and serves peer review rubrics.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/roach88/rubric/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintf(os.Stderr, "rubric: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
