package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Fake is a scripted Runner for tests. Responses are matched by command
// name plus a substring of the joined arguments; the first match wins.
type Fake struct {
	mu        sync.Mutex
	responses []fakeResponse
	Calls     []FakeCall
}

// FakeCall records one invocation for later assertions.
type FakeCall struct {
	Name  string
	Args  []string
	Input string
}

type fakeResponse struct {
	name     string
	argMatch string
	res      Result
	err      error
}

// Stub registers a response for commands named name whose joined args
// contain argMatch. Empty argMatch matches any args.
func (f *Fake) Stub(name, argMatch string, res Result, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, fakeResponse{name: name, argMatch: argMatch, res: res, err: err})
}

func (f *Fake) Run(_ context.Context, name string, args ...string) (Result, error) {
	return f.dispatch(name, "", args)
}

func (f *Fake) RunInteractive(_ context.Context, input string, _ time.Duration, name string, args ...string) (Result, error) {
	return f.dispatch(name, input, args)
}

func (f *Fake) dispatch(name, input string, args []string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, FakeCall{Name: name, Args: args, Input: input})
	joined := strings.Join(args, " ")
	for _, r := range f.responses {
		if r.name == filepath.Base(name) && (r.argMatch == "" || strings.Contains(joined, r.argMatch)) {
			return r.res, r.err
		}
	}
	return Result{}, fmt.Errorf("fake runner: no stub for %s %s", name, joined)
}
