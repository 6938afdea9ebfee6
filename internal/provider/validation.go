package provider

import "fmt"

// FailureReason classifies why a token could not be validated.
type FailureReason int

const (
	FailureNone FailureReason = iota
	FailureInvalid
	FailureExpired
	FailureNetwork
)

// String returns a short name for logs.
func (r FailureReason) String() string {
	switch r {
	case FailureNone:
		return "none"
	case FailureInvalid:
		return "invalid"
	case FailureExpired:
		return "expired"
	case FailureNetwork:
		return "network"
	default:
		return fmt.Sprintf("FailureReason(%d)", int(r))
	}
}

// Validation is the outcome of a token check. A zero Failure means the token is good.
type Validation struct {
	Username string
	Failure  FailureReason
	Err      error // underlying cause, if any
}

// OK reports whether the token was accepted.
func (v Validation) OK() bool {
	return v.Failure == FailureNone
}

// Message returns the human-readable text shown to the user for a failed validation.
func (v Validation) Message() string {
	switch v.Failure {
	case FailureNone:
		return ""
	case FailureInvalid:
		return "Invalid token"
	case FailureExpired:
		return "Token expired"
	case FailureNetwork:
		if v.Err != nil {
			return v.Err.Error()
		}
		return "Authentication failed"
	default:
		return "Authentication failed"
	}
}

// Valid returns a successful validation for the given user.
func Valid(username string) Validation {
	return Validation{Username: username}
}

// Failed returns a failed validation.
func Failed(reason FailureReason, err error) Validation {
	return Validation{Failure: reason, Err: err}
}
