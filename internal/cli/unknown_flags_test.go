package cli

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownFlag_ShowsHelpAndUsageError(t *testing.T) {
	t.Parallel()
	root := NewRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"compile", "--unknown-flag"})

	err := root.Execute()
	require.Error(t, err)
	assert.IsType(t, usageError{}, err)
	assert.Contains(t, err.Error(), "unknown flag")
	assert.Contains(t, err.Error(), "Usage:")
	assert.Equal(t, ExitUsage, ExitCodeFor(err))
}

func TestExtraArgs_AreUsageErrors(t *testing.T) {
	t.Parallel()
	for _, args := range [][]string{
		{"list", "extra"},
		{"describe"},
		{"api", "GET"},
		{"version", "now"},
	} {
		root := NewRootCmd()
		root.SetOut(io.Discard)
		root.SetErr(io.Discard)
		root.SetArgs(args)

		assert.Equal(t, ExitUsage, ExitCodeFor(root.Execute()), "%v", args)
	}
}
