package triage

// StepName identifies a node of the triage workflow
type StepName string

const (
	StepFetchUnread   StepName = "fetch_unread"
	StepSummarize     StepName = "summarize"
	StepTriage        StepName = "triage"
	StepComposeDrafts StepName = "compose_drafts"
	StepPublishGate   StepName = "publish_gate"
	StepSuspendWait   StepName = "suspend_wait"
	StepFinalize      StepName = "finalize"
)

// Steps lists every step in pipeline order
func Steps() []StepName {
	return []StepName{
		StepFetchUnread,
		StepSummarize,
		StepTriage,
		StepComposeDrafts,
		StepPublishGate,
		StepSuspendWait,
		StepFinalize,
	}
}

// String returns the string representation of the step
func (s StepName) String() string {
	return string(s)
}

// IsValid checks if the step is known
func (s StepName) IsValid() bool {
	for _, step := range Steps() {
		if s == step {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a run stops after this step
func (s StepName) IsTerminal() bool {
	return s == StepSuspendWait || s == StepFinalize
}

// CanTransitionTo checks if a transition to the next step is valid
func (s StepName) CanTransitionTo(next StepName) bool {
	validTransitions := map[StepName][]StepName{
		StepFetchUnread:   {StepSummarize},
		StepSummarize:     {StepTriage},
		StepTriage:        {StepComposeDrafts},
		StepComposeDrafts: {StepPublishGate},
		StepPublishGate:   {StepPublishGate, StepSuspendWait, StepFinalize},
		StepSuspendWait:   {},
		StepFinalize:      {},
	}

	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}

	for _, step := range allowed {
		if step == next {
			return true
		}
	}
	return false
}
