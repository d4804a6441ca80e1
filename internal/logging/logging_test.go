package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		mode    string
		verbose bool
		debug   bool
	}{
		{mode: "", verbose: false, debug: false},
		{mode: "dev", verbose: true, debug: true},
		{mode: "production", verbose: false, debug: false},
		{mode: "PROD", verbose: true, debug: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			l, err := New(tt.mode, tt.verbose)
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.Core().Enabled(zap.DebugLevel))
			assert.True(t, l.Core().Enabled(zap.InfoLevel))
		})
	}
}

func TestNew_UnknownMode(t *testing.T) {
	_, err := New("chatty", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown log mode "chatty"`)
}
