package triage

import (
	"errors"
	"fmt"
)

// Error represents domain-specific errors for triage runs
type Error struct {
	Code    string
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause
func (e Error) Unwrap() error {
	return e.Cause
}

// Common triage errors
var (
	// ErrTypeValidation indicates a state handed to the store is not well-formed
	ErrTypeValidation = Error{
		Code:    "STATE_TYPE_INVALID",
		Message: "Workflow state failed validation",
	}

	// ErrCorruption indicates stored bytes could not be turned back into a valid state
	ErrCorruption = Error{
		Code:    "STATE_CORRUPT",
		Message: "Stored workflow state is corrupt",
	}

	// ErrNothingToResume indicates a decision arrived for a user without stored state
	ErrNothingToResume = Error{
		Code:    "NOTHING_TO_RESUME",
		Message: "No paused workflow to resume",
	}

	// ErrRunCompleted indicates an operation on a completed run
	ErrRunCompleted = Error{
		Code:    "RUN_COMPLETED",
		Message: "Workflow run is already complete",
	}

	// ErrUnknownDecision indicates a decision verb outside approve/reject/save
	ErrUnknownDecision = Error{
		Code:    "UNKNOWN_DECISION",
		Message: "Unknown decision",
	}

	// ErrApprovalNotFound indicates an approval id that the broker never issued
	ErrApprovalNotFound = Error{
		Code:    "APPROVAL_NOT_FOUND",
		Message: "Approval request not found",
	}

	// ErrInvalidRequest indicates malformed trigger input
	ErrInvalidRequest = Error{
		Code:    "INVALID_REQUEST",
		Message: "Invalid request",
	}
)

// NewError creates a new triage error with details
func NewError(code, message string, details map[string]interface{}) Error {
	return Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// WithDetails adds details to an existing error
func (e Error) WithDetails(details map[string]interface{}) Error {
	e.Details = details
	return e
}

// WithMessage replaces the message, keeping the code
func (e Error) WithMessage(format string, args ...interface{}) Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// Wrap attaches an underlying cause
func (e Error) Wrap(cause error) Error {
	e.Cause = cause
	return e
}

func hasCode(err error, code string) bool {
	var te Error
	return errors.As(err, &te) && te.Code == code
}

// IsTypeValidation checks if the error is a state validation error
func IsTypeValidation(err error) bool {
	return hasCode(err, ErrTypeValidation.Code)
}

// IsCorruption checks if the error is a corrupt state error
func IsCorruption(err error) bool {
	return hasCode(err, ErrCorruption.Code)
}

// IsNothingToResume checks if the error is a nothing to resume error
func IsNothingToResume(err error) bool {
	return hasCode(err, ErrNothingToResume.Code)
}

// IsRunCompleted checks if the error is a completed run error
func IsRunCompleted(err error) bool {
	return hasCode(err, ErrRunCompleted.Code)
}

// IsUnknownDecision checks if the error is an unknown decision error
func IsUnknownDecision(err error) bool {
	return hasCode(err, ErrUnknownDecision.Code)
}

// IsApprovalNotFound checks if the error is an approval not found error
func IsApprovalNotFound(err error) bool {
	return hasCode(err, ErrApprovalNotFound.Code)
}

// IsInvalidRequest checks if the error is an invalid request error
func IsInvalidRequest(err error) bool {
	return hasCode(err, ErrInvalidRequest.Code)
}
