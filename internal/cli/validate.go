package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rubric/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool                       `json:"valid"`
	Templates int                        `json:"templates"`
	Errors    []compiler.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <templates-dir>",
		Short: "Validate rubric templates without saving them",
		Long: `Compile the CUE rubric templates in a directory and run the same
validation the editor runs before saving. Nothing is written to the database.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	templates, validationErrors, err := ValidateTemplatesDir(dir, orgName(opts))
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			return outputValidateError(formatter, loadErr.Code, loadErr.Message)
		}
		return outputValidateError(formatter, ErrCodeGeneric, err.Error())
	}

	formatter.VerboseLog("Compiled %d template(s) from %s", len(templates), dir)

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, len(templates), validationErrors)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Templates: len(templates)})
	}
	fmt.Fprintf(formatter.Writer, "✓ %d template(s) valid\n", len(templates))
	return nil
}

// ValidateTemplatesDir compiles and validates every template in dir.
// Compile errors are reported as validation errors; only directory-level
// failures are returned as err.
func ValidateTemplatesDir(dir, orgName string) ([]*compiler.Template, []compiler.ValidationError, error) {
	loadResult, loadErrors := LoadTemplates(dir, orgName, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, nil, loadErrors[0]
	}

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			validationErrors = append(validationErrors, compiler.ValidationError{
				Template: loadErr.Template,
				Field:    "template",
				Message:  loadErr.Message,
				Code:     loadErr.Code,
				Line:     lineOf(loadErr),
			})
		}
	}
	validationErrors = append(validationErrors, compiler.Validate(loadResult.Templates)...)
	return loadResult.Templates, validationErrors, nil
}

func lineOf(e *LoadError) int {
	if e.Pos.IsValid() {
		return e.Pos.Line()
	}
	return 0
}

// orgName returns the configured organization name, used as the title of
// organization default templates.
func orgName(opts *RootOptions) string {
	if cfg, err := opts.Config(); err == nil {
		return cfg.Org.Name
	}
	return ""
}

// outputValidateError outputs a single command-level error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return reportedExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, templates int, errs []compiler.ValidationError) error {
	exitErr := reportedExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)), nil)

	if formatter.Format == "json" {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:     false,
				Templates: templates,
				Errors:    errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}); err != nil {
			return err
		}
		return exitErr
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s\n", err.Error())
	}
	return exitErr
}
