package commands_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/bindle/cmd/bindle/commands"
	"go.trai.ch/bindle/internal/adapters/logger"
	"go.trai.ch/bindle/internal/app"
)

func newCLI(t *testing.T) (*commands.CLI, *bytes.Buffer) {
	t.Helper()
	log := logger.New()
	log.SetOutput(io.Discard)

	cli := commands.New(&app.Components{Logger: log})
	var out bytes.Buffer
	cli.SetOutput(&out, &out)
	return cli, &out
}

func TestVersionCommand(t *testing.T) {
	cli, out := newCLI(t)
	cli.SetArgs([]string{"version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "bindle version dev")
	assert.Contains(t, out.String(), "commit:")
}

func TestVersionFlag(t *testing.T) {
	cli, out := newCLI(t)
	cli.SetArgs([]string{"--version"})

	require.NoError(t, cli.Execute(context.Background()))
	assert.Contains(t, out.String(), "bindle version dev")
}

func TestHelpListsCommands(t *testing.T) {
	cli, out := newCLI(t)
	cli.SetArgs([]string{"--help"})

	require.NoError(t, cli.Execute(context.Background()))
	for _, name := range []string{"serve", "build", "clean", "version"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestUnknownCommand(t *testing.T) {
	cli, _ := newCLI(t)
	cli.SetArgs([]string{"frobnicate"})

	require.Error(t, cli.Execute(context.Background()))
}
