package main

import (
	"errors"
	"os"
	"testing"

	"github.com/rsquared-project/witness-manager/internal/config"
	"github.com/rsquared-project/witness-manager/internal/runner"
	"github.com/rsquared-project/witness-manager/internal/secrets"
	ui "github.com/rsquared-project/witness-manager/internal/ui"
)

// errMock is a generic error for test assertions.
var errMock = errors.New("mock error")

// mockPrompter implements Prompter with scripted answers.
type mockPrompter struct {
	lines       []string
	secrets     []string
	interactive bool
	lineErr     error
	secretErr   error

	// prompts records what was asked, in order.
	prompts []string
}

func (m *mockPrompter) ReadLine(prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.lineErr != nil {
		return "", m.lineErr
	}
	if len(m.lines) == 0 {
		return "", nil
	}
	line := m.lines[0]
	m.lines = m.lines[1:]
	return line, nil
}

func (m *mockPrompter) ReadSecret(prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.secretErr != nil {
		return "", m.secretErr
	}
	if len(m.secrets) == 0 {
		return "", nil
	}
	s := m.secrets[0]
	// The last scripted secret repeats so flows that prompt more than
	// once (e.g. resolving twice in one test) keep getting an answer.
	if len(m.secrets) > 1 {
		m.secrets = m.secrets[1:]
	}
	return s, nil
}

func (m *mockPrompter) IsInteractive() bool { return m.interactive }

// testDeps builds deps rooted in a temp home with a fake runner and a
// scripted prompter.
func testDeps(t *testing.T, prompter *mockPrompter) (*Deps, *runner.Fake) {
	t.Helper()
	home := t.TempDir()
	prof := config.Defaults()
	prof.HomeDir = home
	fake := &runner.Fake{}
	d := &Deps{
		Home:     home,
		Prof:     prof,
		Launch:   config.DefaultLaunchConfig(prof),
		Run:      fake,
		Store:    secrets.NewStore(home),
		Printer:  ui.NewPrinter("text"),
		Prompter: prompter,
		Out:      os.Stdout,
	}
	return d, fake
}
