package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

var (
	templatesDir = filepath.Join("..", "..", "testdata", "templates")
	invalidDir   = filepath.Join("..", "..", "testdata", "invalid")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
)

// testOptions returns root options backed by a fresh database.
func testOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	t.Setenv("RUBRIC_DB", "")
	t.Setenv("RUBRIC_ORG_ID", "")
	t.Setenv("RUBRIC_ORG_NAME", "")
	return &RootOptions{
		Format: format,
		DB:     filepath.Join(t.TempDir(), "rubric.db"),
	}
}

// execute runs cmd with args and returns its combined output.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// decodeData decodes the data payload of a JSON CLI response into T.
func decodeData[T any](t *testing.T, out string) (T, CLIResponse) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)

	var data T
	if len(resp.Data) > 0 {
		require.NoError(t, json.Unmarshal(resp.Data, &data))
	}
	return data, CLIResponse{Status: resp.Status, Error: resp.Error}
}

// importTemplates imports the sample templates and returns the result.
func importTemplates(t *testing.T, opts *RootOptions) ImportResult {
	t.Helper()
	format := opts.Format
	opts.Format = "json"
	defer func() { opts.Format = format }()

	out, err := execute(t, NewImportCommand(opts), templatesDir)
	require.NoError(t, err, out)
	result, resp := decodeData[ImportResult](t, out)
	require.Equal(t, "ok", resp.Status)
	require.Len(t, result.Imported, 2)
	return result
}

// essayID returns the id of the imported essay template.
func essayID(t *testing.T, result ImportResult) string {
	t.Helper()
	for _, r := range result.Imported {
		if r.Template == "essay" {
			return r.RubricID
		}
	}
	t.Fatal("essay template not imported")
	return ""
}
