//go:build !integration

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"pivot", "validate", "batch", "runs", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "quote-pivot", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestPivotCommand_Args(t *testing.T) {
	assert.Error(t, pivotCmd.Args(pivotCmd, []string{"only-src"}))
	assert.Error(t, pivotCmd.Args(pivotCmd, []string{"a", "b", "c"}))
	assert.NoError(t, pivotCmd.Args(pivotCmd, []string{"src.csv", "dst.csv"}))
}

func TestPivotCommand_Flags(t *testing.T) {
	for _, name := range []string{"yes", "sheet", "crlf"} {
		require.NotNil(t, pivotCmd.Flags().Lookup(name), "pivot command should have --%s flag", name)
	}
	assert.Equal(t, "false", pivotCmd.Flags().Lookup("yes").DefValue)
}

func TestValidateCommand_Flags(t *testing.T) {
	flag := validateCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "text", flag.DefValue)
	assert.NotNil(t, validateCmd.Flags().Lookup("strict"))
}

func TestBatchCommand_Flags(t *testing.T) {
	flag := batchCmd.Flags().Lookup("out-dir")
	require.NotNil(t, flag)
	assert.Equal(t, ".", flag.DefValue)
	assert.Error(t, batchCmd.Args(batchCmd, nil))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["list"])
	assert.True(t, names["show"])
}
