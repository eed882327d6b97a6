package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formcheck/internal/store"
	"github.com/roach88/formcheck/internal/testutil"
)

// recordRuns runs both fixture scenarios against the sticky-success form,
// recording run-1 (email_valid, pass) and run-2 (last_name_clear, fail).
func recordRuns(t *testing.T, ws *workspace) {
	t.Helper()
	ws.writeScenario(t, "email_valid.yaml", emailValidScenario)
	ws.writeScenario(t, "last_name_clear.yaml", lastNameClearScenario)
	_, _, err := execute(NewTestCommand(ws.options("text", testutil.WithStickySuccess("lastName"))))
	require.Error(t, err)
}

func TestHistoryCommandNoDatabase(t *testing.T) {
	ws := newWorkspace(t, "")

	out, _, err := execute(NewHistoryCommand(ws.options("text")))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NO_HISTORY]")
	assert.Contains(t, out, "no run history at")
}

func TestHistoryCommandListsRuns(t *testing.T) {
	ws := newWorkspace(t, "")
	recordRuns(t, ws)

	out, _, err := execute(NewHistoryCommand(ws.options("text")))
	require.NoError(t, err)
	assert.Regexp(t, `(?s)FAIL run-2 last_name_clear \(0 passed, 1 failed\).*PASS run-1 email_valid \(1 passed, 0 failed\)`, out)
}

func TestHistoryCommandFiltersByScenario(t *testing.T) {
	ws := newWorkspace(t, "")
	recordRuns(t, ws)

	out, _, err := execute(NewHistoryCommand(ws.options("json")), "email_valid")
	require.NoError(t, err)

	var response struct {
		Data []store.RunSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	require.Len(t, response.Data, 1)
	assert.Equal(t, "run-1", response.Data[0].ID)
	assert.True(t, response.Data[0].Pass)
}

func TestHistoryCommandShowsRun(t *testing.T) {
	ws := newWorkspace(t, "")
	recordRuns(t, ws)

	out, _, err := execute(NewHistoryCommand(ws.options("text")), "--run", "run-2")
	require.NoError(t, err)
	assert.Contains(t, out, "run run-2")
	assert.Contains(t, out, "FAIL last_name_clear")
	assert.Contains(t, out, "known defect: sticky-success (reproduced: true)")
}

func TestHistoryCommandUnknownRun(t *testing.T) {
	ws := newWorkspace(t, "")
	recordRuns(t, ws)

	out, _, err := execute(NewHistoryCommand(ws.options("text")), "--run", "run-9")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrRunNotFound)
	assert.Contains(t, out, "Error [E_RUN_NOT_FOUND]")
}

func TestHistoryCommandCheck(t *testing.T) {
	ws := newWorkspace(t, "")
	recordRuns(t, ws)

	out, _, err := execute(NewHistoryCommand(ws.options("text")), "--check", "lastName.invalid")
	require.NoError(t, err)
	assert.Contains(t, out, "lastName.invalid")
	assert.Contains(t, out, "FAIL run-2 last_name_clear [assertion] known defect reproduced")

	out, _, err = execute(NewHistoryCommand(ws.options("text")), "--check", "password.valid")
	require.NoError(t, err)
	assert.Contains(t, out, "No runs of check password.valid.")
}

func TestHistoryCommandRunAndCheckExclusive(t *testing.T) {
	ws := newWorkspace(t, "")

	_, _, err := execute(NewHistoryCommand(ws.options("text")), "--run", "a", "--check", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none of the others can be")
}
