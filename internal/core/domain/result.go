// Package domain defines the core domain models for SnapKeeper.
package domain

// Result is the outcome of a loading or mutating repository operation.
//
// The zero value is a failure with an empty message; use Success or Failure.
type Result struct {
	ok      bool
	message string
}

// Success returns a successful Result.
func Success() Result {
	return Result{ok: true}
}

// Failure returns a failed Result carrying a human-readable message.
func Failure(message string) Result {
	return Result{message: message}
}

// Succeeded reports whether the operation succeeded.
func (r Result) Succeeded() bool {
	return r.ok
}

// Message returns the failure message. It is empty on success.
func (r Result) Message() string {
	return r.message
}

// String implements fmt.Stringer.
func (r Result) String() string {
	if r.ok {
		return "success"
	}
	return "failure: " + r.message
}
