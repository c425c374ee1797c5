package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	config, shouldExit, err := Parse([]string{"-model", "rtl_seg", "-input", "rows.csv"}, out)

	require.NoError(t, err)
	require.False(t, shouldExit)
	assert.Equal(t, "rtl_seg", config.Model)
	assert.Equal(t, "rows.csv", config.Input)
	assert.Equal(t, 0, config.Workers)
	assert.Equal(t, 10, config.Attempts)
	assert.Equal(t, "text", config.LogFormat)
	assert.Equal(t, "info", config.LogLevel)
}

func TestParse_NoModelPrintsUsage(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, shouldExit, err := Parse(nil, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
	assert.Contains(t, out.String(), "Usage:")
}

func TestParse_Help(t *testing.T) {
	t.Parallel()

	out := &bytes.Buffer{}
	_, shouldExit, err := Parse([]string{"-h"}, out)

	require.NoError(t, err)
	assert.True(t, shouldExit)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{
			name:    "no action",
			args:    []string{"-model", "rtl_seg"},
			wantMsg: "nothing to do",
		},
		{
			name:    "conflicting actions",
			args:    []string{"-model", "rtl_seg", "-describe", "-template", "3"},
			wantMsg: "exactly one",
		},
		{
			name:    "bad input extension",
			args:    []string{"-model", "rtl_seg", "-input", "rows.xlsx"},
			wantMsg: "unsupported input format",
		},
		{
			name:    "bad log format",
			args:    []string{"-model", "rtl_seg", "-describe", "-log-format", "xml"},
			wantMsg: "invalid log-format",
		},
		{
			name:    "bad log level",
			args:    []string{"-model", "rtl_seg", "-describe", "-log-level", "loud"},
			wantMsg: "invalid log-level",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := &bytes.Buffer{}
			_, _, err := Parse(tc.args, out)

			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
