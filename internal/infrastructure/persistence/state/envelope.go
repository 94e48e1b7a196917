// Package state persists one WorkflowState per user behind a pluggable blob backend
package state

import (
	"encoding/json"
	"time"

	"github.com/YoshitsuguKoike/inboxzero/internal/domain/triage"
)

const (
	// EnvelopeType tags every stored record
	EnvelopeType = "WorkflowState"
	// EnvelopeVersion is the only schema version this build reads or writes
	EnvelopeVersion = "1.0"
)

// Envelope wraps a serialized state so schema drift is detected on load
type Envelope struct {
	Type      string          `json:"type"`
	Version   string          `json:"version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Encode validates s and wraps it in an envelope
func Encode(s *triage.WorkflowState, now time.Time) ([]byte, error) {
	if s == nil {
		return nil, triage.ErrTypeValidation.WithMessage("workflow state is nil")
	}
	if err := s.Validate(); err != nil {
		return nil, triage.ErrTypeValidation.Wrap(err)
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, triage.ErrTypeValidation.Wrap(err)
	}
	return json.Marshal(Envelope{
		Type:      EnvelopeType,
		Version:   EnvelopeVersion,
		Timestamp: now.UTC(),
		Data:      data,
	})
}

// Decode unwraps a stored record. Anything other than a well-formed current
// envelope around a valid state is reported as corruption.
func Decode(raw []byte) (*triage.WorkflowState, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, triage.ErrCorruption.WithMessage("stored record is not an envelope").Wrap(err)
	}
	if env.Type != EnvelopeType {
		return nil, triage.ErrCorruption.WithDetails(map[string]interface{}{"type": env.Type})
	}
	if env.Version != EnvelopeVersion {
		return nil, triage.ErrCorruption.WithDetails(map[string]interface{}{"version": env.Version})
	}
	if len(env.Data) == 0 {
		return nil, triage.ErrCorruption.WithMessage("envelope has no data")
	}

	var s triage.WorkflowState
	if err := json.Unmarshal(env.Data, &s); err != nil {
		return nil, triage.ErrCorruption.WithMessage("envelope data is not a workflow state").Wrap(err)
	}
	if err := s.Validate(); err != nil {
		return nil, triage.ErrCorruption.Wrap(err)
	}
	return &s, nil
}
