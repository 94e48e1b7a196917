package approval

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDecision is returned when a decision verb cannot be parsed
var ErrUnknownDecision = errors.New("unknown decision")

// Decision is the human verdict on a single draft
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
	DecisionSave    Decision = "save"
)

// Choices returns the decisions offered on every approval message, in display order
func Choices() []Decision {
	return []Decision{DecisionApprove, DecisionReject, DecisionSave}
}

// ParseDecision accepts the bare verb, the action id form ("approve_draft")
// and the past tense form ("approved"). Case and surrounding space are ignored.
func ParseDecision(s string) (Decision, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	v = strings.TrimSuffix(v, "_draft")

	switch v {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	case "save", "saved":
		return DecisionSave, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDecision, s)
	}
}

// String returns the string representation
func (d Decision) String() string {
	return string(d)
}

// IsValid checks if the decision is one of the known verbs
func (d Decision) IsValid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionSave:
		return true
	}
	return false
}

// Status maps the decision onto the terminal request status it produces
func (d Decision) Status() Status {
	switch d {
	case DecisionApprove:
		return StatusApproved
	case DecisionReject:
		return StatusRejected
	case DecisionSave:
		return StatusSaved
	default:
		return StatusPending
	}
}

// Label is the button text shown to the approver
func (d Decision) Label() string {
	switch d {
	case DecisionApprove:
		return "Approve & Send"
	case DecisionReject:
		return "Reject"
	case DecisionSave:
		return "Save"
	default:
		return string(d)
	}
}

// ActionID is the identifier carried by interactive transports
func (d Decision) ActionID() string {
	return string(d) + "_draft"
}
