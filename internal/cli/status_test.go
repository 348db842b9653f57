package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perales/rite/internal/ceremony"
	"github.com/perales/rite/internal/storage"
)

// seedStore creates a store with a submitted short session at epoch 7, one
// journaled attempt and two archived flips, and returns its path.
func seedStore(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rite.db")
	store, err := storage.Open(path)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	answers := []ceremony.AnswerRecord{
		{Answer: ceremony.AnswerLeft},
		{Answer: ceremony.AnswerRight, Easy: true},
	}

	require.NoError(t, store.ResetValidation(ctx, 7))
	require.NoError(t, store.RecordAttempt(ctx, "attempt-01", ceremony.ShortSession, 7, answers))
	require.NoError(t, store.SetShortAnswers(ctx, answers, 7))
	require.NoError(t, store.ArchiveFlips(ctx, 7, []ceremony.Flip{
		{Hash: "reddit", Ready: true},
		{Hash: "meme", Ready: true},
	}))
	return path
}

func TestStatusCommandText(t *testing.T) {
	path := seedStore(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewStatusCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Epoch: 7")
	assert.Contains(t, output, "Short session: submitted (2 answer(s))")
	assert.Contains(t, output, "Long session: not submitted")
	assert.Contains(t, output, "Archived flips (epoch 7): 2")
	assert.Contains(t, output, "Attempts (epoch 7): 1")
	assert.Contains(t, output, "attempt-01  short  2 answer(s)")
}

func TestStatusCommandJSON(t *testing.T) {
	path := seedStore(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewStatusCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(7), data["epoch"])
	assert.Equal(t, true, data["short_submitted"])
	assert.Equal(t, false, data["long_submitted"])
	assert.Equal(t, float64(2), data["archived_flips"])

	attempts, ok := data["attempts"].([]any)
	require.True(t, ok)
	require.Len(t, attempts, 1)
	attempt := attempts[0].(map[string]any)
	assert.Equal(t, "attempt-01", attempt["token"])
	assert.Equal(t, "short", attempt["kind"])
}

func TestStatusCommandEpochOverride(t *testing.T) {
	path := seedStore(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewStatusCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path, "--epoch", "3"})

	err := cmd.Execute()
	require.NoError(t, err)

	// The record is still epoch 7; only the journal/archive views move
	output := buf.String()
	assert.Contains(t, output, "Epoch: 7")
	assert.Contains(t, output, "Archived flips (epoch 3): 0")
	assert.Contains(t, output, "Attempts (epoch 3): 0")
}

func TestStatusCommandFreshStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rite.db")
	store, err := storage.Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewStatusCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", path})

	err = cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Epoch: 0")
	assert.Contains(t, output, "Short session: not submitted")
	assert.Contains(t, output, "Long session: not submitted")
}

func TestStatusCommandDatabaseNotFound(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewStatusCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "missing.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
}

func TestStatusCommandDBFromEnvironment(t *testing.T) {
	path := seedStore(t)
	t.Setenv("RITE_DB_PATH", path)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewStatusCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Epoch: 7")
}
