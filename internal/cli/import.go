package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/compiler"
	"github.com/roach88/rubric/internal/session"
	"github.com/roach88/rubric/internal/store"
)

// ImportedRubric is one template saved by import.
type ImportedRubric struct {
	Template string `json:"template"`
	RubricID string `json:"rubricID"`
	Title    string `json:"title"`
	Blocks   int    `json:"blocks"`
}

// ImportResult is the output of import.
type ImportResult struct {
	Imported []ImportedRubric `json:"imported"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <templates-dir>",
		Short: "Create rubrics from CUE templates",
		Long: `Compile and validate the templates in a directory, then save each one
as a new rubric of the configured organization. Nothing is saved when any
template is invalid.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runImport(ctx context.Context, opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	templates, validationErrors, err := ValidateTemplatesDir(dir, orgName(opts))
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeLoadFailed, err)
	}
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(templates), validationErrors)
	}

	st, org, err := opts.openStore(formatter)
	if err != nil {
		return err
	}
	defer st.Close()

	result := ImportResult{Imported: make([]ImportedRubric, 0, len(templates))}
	for _, tmpl := range templates {
		imported, err := importTemplate(ctx, opts, org, tmpl)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeRubricSave, err)
		}
		formatter.VerboseLog("Imported %s as %s", imported.Template, imported.RubricID)
		result.Imported = append(result.Imported, imported)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	for _, r := range result.Imported {
		fmt.Fprintf(formatter.Writer, "✓ %s → %s (%d blocks)\n", r.Template, r.RubricID, r.Blocks)
	}
	return nil
}

// importTemplate saves one template through a create-mode session.
func importTemplate(ctx context.Context, opts *RootOptions, org *store.OrgStore, tmpl *compiler.Template) (ImportedRubric, error) {
	s := session.NewCreate(ctx, org, orgName(opts), session.WithLogger(opts.Logger()))
	defer s.Close()

	if err := tmpl.ApplyTo(s); err != nil {
		return ImportedRubric{}, err
	}
	resp, err := s.Save(ctx)
	if err != nil {
		return ImportedRubric{}, fmt.Errorf("template %s: %w", tmpl.Name, err)
	}
	opts.Logger().Info("template imported",
		zap.String("template", tmpl.Name),
		zap.String("rubric_id", resp.RubricID))

	return ImportedRubric{
		Template: tmpl.Name,
		RubricID: resp.RubricID,
		Title:    tmpl.Document.Title(),
		Blocks:   tmpl.Document.Len(),
	}, nil
}
