package exitcodes

import (
	"errors"
	"fmt"
	"testing"
)

func TestConstructorsCarryTheirCode(t *testing.T) {
	cases := []struct {
		name string
		err  *ErrorWithCode
		code int
	}{
		{"invalid args", InvalidArgsError("bad flag"), InvalidArgs},
		{"invalid args formatted", InvalidArgsErrorf("unknown mode %q", "turbo"), InvalidArgs},
		{"precondition", PreconditionError("no execution profile"), PreconditionFailed},
		{"precondition formatted", PreconditionErrorf("run %s first", "setup"), PreconditionFailed},
		{"network", NetworkErr("rpc unreachable"), NetworkError},
		{"network formatted", NetworkErrf("dial %s", "ws://node:8090"), NetworkError},
		{"process", ProcessErr("node did not start"), ProcessError},
		{"process formatted", ProcessErrf("pid %d gone", 4242), ProcessError},
		{"validation", ValidationErr("wrong password"), ValidationError},
		{"validation formatted", ValidationErrf("corrupt %s", "store"), ValidationError},
		{"rotation", RotationErr("rotation failed"), RotationFailed},
		{"rotation formatted", RotationErrf("failed at %s", "authorizing"), RotationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("Code = %d, want %d", tc.err.Code, tc.code)
			}
			if got := CodeForError(tc.err); got != tc.code {
				t.Errorf("CodeForError = %d, want %d", got, tc.code)
			}
			if tc.err.Error() == "" {
				t.Error("empty message")
			}
		})
	}
}

func TestWrapErrorKeepsCauseChain(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapError(NetworkError, "probe node", cause)

	if got := err.Error(); got != "probe node: connection refused" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost through wrapping")
	}
	if got := CodeForError(err); got != NetworkError {
		t.Errorf("CodeForError = %d, want %d", got, NetworkError)
	}
}

func TestCodeForError(t *testing.T) {
	coded := RotationErr("rotation failed")
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil is success", nil, Success},
		{"plain error is general", errors.New("boom"), GeneralError},
		{"coded error", coded, RotationFailed},
		{"fmt-wrapped coded error", fmt.Errorf("while rotating: %w", coded), RotationFailed},
		{"doubly wrapped", fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", PreconditionError("no store"))), PreconditionFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CodeForError(tc.err); got != tc.want {
				t.Errorf("CodeForError = %d, want %d", got, tc.want)
			}
		})
	}
}

// The numeric values are part of the CLI contract; scripts and the
// systemd unit match on them.
func TestExitCodeValuesAreStable(t *testing.T) {
	want := map[string]struct{ got, want int }{
		"Success":            {Success, 0},
		"GeneralError":       {GeneralError, 1},
		"InvalidArgs":        {InvalidArgs, 2},
		"PreconditionFailed": {PreconditionFailed, 3},
		"NetworkError":       {NetworkError, 4},
		"ProcessError":       {ProcessError, 5},
		"ValidationError":    {ValidationError, 6},
		"RotationFailed":     {RotationFailed, 7},
	}
	for name, c := range want {
		if c.got != c.want {
			t.Errorf("%s = %d, want %d", name, c.got, c.want)
		}
	}
}
