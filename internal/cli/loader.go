package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/roach88/rubric/internal/compiler"
)

// LoadMode controls how errors are handled during template loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading templates from a directory.
type LoadResult struct {
	Templates []*compiler.Template
	CUEValue  cue.Value // The raw CUE value for additional processing
	FileCount int       // Number of CUE files found
}

// LoadError represents an error that occurred during template loading.
type LoadError struct {
	Code     string
	Template string
	Message  string
	Pos      token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Template != "" {
		msg = e.Template + ": " + msg
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// LoadTemplates loads and compiles the CUE rubric templates in dir.
// Templates live under the top-level "rubric" struct, one field per template.
// orgName is the title given to templates marked orgDefault.
// If mode is LoadModeFailFast, returns on first error.
// If mode is LoadModeCollectAll, collects all errors.
func LoadTemplates(dir, orgName string, mode LoadMode) (*LoadResult, []error) {
	var errs []error

	// Verify directory exists
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("templates directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing templates directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	cueFiles, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(cueFiles) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}}
	}

	result := &LoadResult{
		CUEValue:  value,
		FileCount: len(cueFiles),
	}

	rubricsVal := value.LookupPath(cue.ParsePath("rubric"))
	if !rubricsVal.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoTemplates, Message: "no rubric templates found"}}
	}
	iter, err := rubricsVal.Fields()
	if err != nil {
		return result, []error{&LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("iterating templates: %v", err)}}
	}
	for iter.Next() {
		tmpl, compileErr := compiler.CompileTemplate(iter.Value(), orgName)
		if compileErr != nil {
			errs = append(errs, convertCompileError(compileErr, iter.Label()))
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Templates = append(result.Templates, tmpl)
	}

	if len(result.Templates) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoTemplates, Message: "no rubric templates found"})
	}

	return result, errs
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error, name string) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:     MapFieldToErrorCode(compileErr.Field),
			Template: name,
			Message:  compileErr.Field + ": " + compileErr.Message,
			Pos:      compileErr.Pos,
		}
	}
	return &LoadError{
		Code:     ErrCodeGeneric,
		Template: name,
		Message:  err.Error(),
	}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeConfig      = "E008" // Configuration invalid
	ErrCodeStore       = "E009" // Database could not be opened
	ErrCodeNoTemplates = "E010" // No rubric templates defined

	// Rubric command errors
	ErrCodeBadArgument = "E020" // Invalid command argument
	ErrCodeRubricLoad  = "E021" // Rubric could not be loaded
	ErrCodeRubricSave  = "E022" // Rubric could not be saved
	ErrCodeSnapshot    = "E023" // Snapshot could not be recorded

	// Template compile errors
	ErrCodeTemplateTitle   = "E030" // Missing or invalid title
	ErrCodeTemplateBlocks  = "E031" // Missing or invalid blocks
	ErrCodeTemplatePrompt  = "E032" // Invalid prompt
	ErrCodeTemplateOptions = "E033" // Invalid dropdown options
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch {
	case field == "title":
		return ErrCodeTemplateTitle
	case field == "cue":
		return ErrCodeBuildFailed
	case strings.Contains(field, ".options"):
		return ErrCodeTemplateOptions
	case strings.Contains(field, ".prompt"):
		return ErrCodeTemplatePrompt
	case strings.HasPrefix(field, "blocks"):
		return ErrCodeTemplateBlocks
	default:
		return ErrCodeGeneric
	}
}
