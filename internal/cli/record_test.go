package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uniflux/internal/store"
)

const recordScenario = `
name: record-roundtrip
description: Events imported by the record command.
events:
  - kind: set-counter
    value: 5
  - kind: increment
    delta: 3
  - kind: set-name
    name: ada
`

func writeScenarioFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func tempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.db")
}

func TestRecordCommand(t *testing.T) {
	dbPath := tempDBPath(t)
	scenarioPath := writeScenarioFile(t, recordScenario)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRecordCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--scenario", scenarioPath, "--session", "sess-1"})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	db, err := store.Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	rows, err := db.ReadRecording(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "set-counter", rows[0].Kind)
	assert.Equal(t, "increment", rows[1].Kind)
	assert.Equal(t, "set-name", rows[2].Kind)
	for i, row := range rows {
		assert.Equal(t, i, row.Index)
	}
	// Synthetic spacing keeps replay gaps deterministic.
	assert.Equal(t, recordSpacing, rows[1].RecordedAt.Sub(rows[0].RecordedAt))
}

func TestRecordCommand_GeneratedSessionID(t *testing.T) {
	dbPath := tempDBPath(t)
	scenarioPath := writeScenarioFile(t, recordScenario)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewRecordCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--scenario", scenarioPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	session, _ := data["session"].(string)
	assert.NotEmpty(t, session)
	assert.Equal(t, float64(3), data["events"])
}

func TestRecordCommand_BadScenario(t *testing.T) {
	dbPath := tempDBPath(t)
	scenarioPath := writeScenarioFile(t, "name: broken\n")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewRecordCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--scenario", scenarioPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "load scenario")
}

func TestSessionsCommand(t *testing.T) {
	dbPath := tempDBPath(t)
	scenarioPath := writeScenarioFile(t, recordScenario)

	rootOpts := &RootOptions{Format: "text"}
	record := NewRecordCommand(rootOpts)
	record.SetOut(&bytes.Buffer{})
	record.SetArgs([]string{"--db", dbPath, "--scenario", scenarioPath, "--session", "sess-1"})
	require.NoError(t, record.Execute())

	buf := &bytes.Buffer{}
	sessions := NewSessionsCommand(rootOpts)
	sessions.SetOut(buf)
	sessions.SetArgs([]string{"--db", dbPath})
	require.NoError(t, sessions.Execute())

	assert.Contains(t, buf.String(), "sess-1")
	assert.Contains(t, buf.String(), "3 event(s)")
}

func TestSessionsCommand_Empty(t *testing.T) {
	dbPath := tempDBPath(t)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewSessionsCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "no recorded sessions")
}
