package exitcodes

import "errors"

// Standard exit codes for witness-manager
const (
	// Success indicates successful command completion
	Success = 0

	// GeneralError indicates a general/unknown error
	GeneralError = 1

	// InvalidArgs indicates invalid command-line arguments or flags
	InvalidArgs = 2

	// PreconditionFailed indicates a precondition was not met
	// (e.g., no execution profile, missing stored config, run already active)
	PreconditionFailed = 3

	// NetworkError indicates network/connectivity failure
	// (e.g., node RPC unreachable, timeout)
	NetworkError = 4

	// ProcessError indicates process management failure
	// (e.g., node failed to start/stop, docker daemon unreachable)
	ProcessError = 5

	// ValidationError indicates validation failure
	// (e.g., invalid config, corrupted data, wrong password)
	ValidationError = 6

	// RotationFailed indicates the key rotation workflow failed.
	// Stderr explains the step and reason; new keys, if any were
	// authorized, are reported before exiting.
	RotationFailed = 7
)

// CodeForError returns the exit code for an error, looking through
// wrappers for an ErrorWithCode. Errors without an explicit code map to
// GeneralError.
func CodeForError(err error) int {
	if err == nil {
		return Success
	}
	var ec *ErrorWithCode
	if errors.As(err, &ec) {
		return ec.Code
	}
	return GeneralError
}
