package cli

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formcheck/internal/config"
	"github.com/roach88/formcheck/internal/testutil"
	"github.com/roach88/formcheck/internal/ui"
)

const emailValidScenario = `name: email_valid
description: "A canonical email settles valid"
steps:
  - {field: email, action: fill}
  - {action: defocus}
expect:
  - {field: email, state: valid}
`

const lastNameClearScenario = `name: last_name_clear
description: "Clearing a valid last name shows the error"
steps:
  - {field: lastName, action: fill}
  - {action: defocus}
  - {field: lastName, action: clear}
  - {action: defocus}
expect:
  - field: lastName
    state: invalid
    value: ""
    known_defect:
      id: sticky-success
      observed: successVisible && !errorVisible
`

const lastNameExpectedScenario = `name: last_name_expected
description: "Clearing a valid last name settles as the registry says"
steps:
  - {field: lastName, action: fill}
  - {action: defocus}
  - {field: lastName, action: clear}
  - {action: defocus}
expect:
  - {field: lastName, state: expected, value: ""}
`

const unknownFieldScenario = `name: nickname
description: "References a field the registry does not know"
steps:
  - {field: nickname, action: fill}
expect:
  - {field: email, state: pristine}
`

// fakePages opens a freshly loaded simulated signup form per scenario.
func fakePages(opts ...testutil.FormOption) PageFactory {
	return func(ctx context.Context, cfg config.Config, logger *slog.Logger) (ui.Page, func(), error) {
		form := testutil.NewFakeForm(opts...)
		if err := form.Navigate(ctx, testutil.FormURL); err != nil {
			return nil, nil, err
		}
		return form, func() {}, nil
	}
}

// workspace is a temporary project: a config file, a scenarios directory
// and a history database path.
type workspace struct {
	dir       string
	config    string
	scenarios string
	db        string
}

func newWorkspace(t *testing.T, extraConfig string) *workspace {
	t.Helper()
	dir := t.TempDir()
	ws := &workspace{
		dir:       dir,
		config:    filepath.Join(dir, "formcheck.yaml"),
		scenarios: filepath.Join(dir, "scenarios"),
		db:        filepath.Join(dir, "history.db"),
	}
	require.NoError(t, os.MkdirAll(ws.scenarios, 0755))
	cfg := "scenarios: scenarios\ndb: history.db\n" + extraConfig
	require.NoError(t, os.WriteFile(ws.config, []byte(cfg), 0644))
	return ws
}

func (ws *workspace) writeScenario(t *testing.T, file, body string) string {
	t.Helper()
	path := filepath.Join(ws.scenarios, file)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// options returns root options that run against the simulated form with a
// step clock, so failed waits return without sleeping.
func (ws *workspace) options(format string, formOpts ...testutil.FormOption) *RootOptions {
	return &RootOptions{
		Format: format,
		Config: ws.config,
		Pages:  fakePages(formOpts...),
		Clock:  testutil.NewStepClock(),
		IDs:    testutil.NewSequenceIDGenerator("run"),
	}
}

// execute runs cmd with args and returns stdout and stderr.
func execute(cmd *cobra.Command, args ...string) (string, string, error) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}
