package types

import "fmt"

// The coordination core surfaces every failure with one of the error kinds
// below so that the caller can map it to its own boundary. They are matched
// with errors.As and survive xerrors wrapping.

// ValidationError reports a malformed ceremony setup or election record.
type ValidationError struct {
	Reason string
}

// NewValidationError creates a new validation error.
func NewValidationError(format string, args ...interface{}) ValidationError {
	return ValidationError{Reason: fmt.Sprintf(format, args...)}
}

func (e ValidationError) Error() string {
	return "validation error: " + e.Reason
}

// StateError reports an operation invoked in the wrong lifecycle phase.
type StateError struct {
	Reason string
}

// NewStateError creates a new state error.
func NewStateError(format string, args ...interface{}) StateError {
	return StateError{Reason: fmt.Sprintf(format, args...)}
}

func (e StateError) Error() string {
	return "state error: " + e.Reason
}

// NotFoundError reports an unknown election or guardian.
type NotFoundError struct {
	Reason string
}

// NewNotFoundError creates a new not-found error.
func NewNotFoundError(format string, args ...interface{}) NotFoundError {
	return NotFoundError{Reason: fmt.Sprintf(format, args...)}
}

func (e NotFoundError) Error() string {
	return "not found: " + e.Reason
}

// DuplicateSubmissionError reports a guardian resubmission attempt.
// Resubmission is never allowed, even to fix a prior submission.
type DuplicateSubmissionError struct {
	Reason string
}

// NewDuplicateSubmissionError creates a new duplicate-submission error.
func NewDuplicateSubmissionError(format string, args ...interface{}) DuplicateSubmissionError {
	return DuplicateSubmissionError{Reason: fmt.Sprintf(format, args...)}
}

func (e DuplicateSubmissionError) Error() string {
	return "duplicate submission: " + e.Reason
}

// QuorumError reports that too few shares have been submitted to combine.
type QuorumError struct {
	Reason string
}

// NewQuorumError creates a new quorum error.
func NewQuorumError(format string, args ...interface{}) QuorumError {
	return QuorumError{Reason: fmt.Sprintf(format, args...)}
}

func (e QuorumError) Error() string {
	return "quorum error: " + e.Reason
}

// CryptoVerificationError reports a share or combined result that fails proof
// verification.
type CryptoVerificationError struct {
	Reason string
}

// NewCryptoVerificationError creates a new crypto-verification error.
func NewCryptoVerificationError(format string, args ...interface{}) CryptoVerificationError {
	return CryptoVerificationError{Reason: fmt.Sprintf(format, args...)}
}

func (e CryptoVerificationError) Error() string {
	return "crypto verification error: " + e.Reason
}
