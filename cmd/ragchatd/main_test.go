package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_FlagsOnlyRunsServe(t *testing.T) {
	root := newRootCmd()

	cmd, rest, err := root.Find([]string{"-c", "config.yaml", "--port", "9000"})
	require.NoError(t, err)

	assert.Same(t, root, cmd)
	assert.NotNil(t, cmd.RunE)
	require.NoError(t, cmd.ParseFlags(rest))
	port, err := cmd.Flags().GetString("port")
	require.NoError(t, err)
	assert.Equal(t, "9000", port)
	config, err := cmd.Flags().GetString("config")
	require.NoError(t, err)
	assert.Equal(t, "config.yaml", config)
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "ingest", "migrate"} {
		cmd, _, err := root.Find([]string{name, "-c", "config.yaml"})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
