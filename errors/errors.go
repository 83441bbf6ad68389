package errors

import "errors"

// Sentinel errors for common error conditions
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates that a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates that input validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")
)

// Tool execution errors. These are recoverable: the agent loop renders them
// into the transcript and lets the model correct itself.
var (
	// ErrUnknownTool indicates the model asked for a tool that is not registered
	ErrUnknownTool = errors.New("unknown tool")

	// ErrPathEscape indicates a path resolved outside the confinement root
	ErrPathEscape = errors.New("path escapes confinement root")

	// ErrCommandNotAllowed indicates a shell command failed the allow-list or chaining checks
	ErrCommandNotAllowed = errors.New("command not allowed")
)

// Turn-fatal errors. They abort the current turn and are returned to the caller.
var (
	// ErrTransport indicates the LLM endpoint was unreachable or returned a malformed reply
	ErrTransport = errors.New("llm transport failure")

	// ErrBudgetExceeded indicates the agent ran out of tool-loop iterations
	ErrBudgetExceeded = errors.New("iteration budget exceeded")
)

// Broadcast errors.
var (
	// ErrTimeout indicates a broadcast member did not answer in time
	ErrTimeout = errors.New("timed out")

	// ErrUnknownAgent indicates a broadcast named an agent that is not registered
	ErrUnknownAgent = errors.New("unknown agent")

	// ErrEmptyAudience indicates a broadcast resolved to no agents
	ErrEmptyAudience = errors.New("empty audience")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}
