// Package approval holds the pure transition rules of the project approval
// workflow. Persistence, audit records and notifications live in the engine;
// this package only answers "given this status and this action, what next".
package approval

import "fmt"

const (
	StatusDraft    = "draft"
	StatusInReview = "in_review"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

const (
	ActionRequest = "request"
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionReset   = "reset"
)

// UnsupportedActionError marks an action outside the known vocabulary. This
// is a contract violation by the caller, not a user input problem.
type UnsupportedActionError struct {
	Action string
}

func (e UnsupportedActionError) Error() string {
	return fmt.Sprintf("unsupported approval action %q", e.Action)
}

// Normalize maps any stored status outside the known set to draft. Stored
// values come back from the database or from old clients and must never take
// the machine into a state it does not have.
func Normalize(status string) string {
	switch status {
	case StatusDraft, StatusInReview, StatusApproved, StatusRejected:
		return status
	default:
		return StatusDraft
	}
}

// ParseAction validates the action vocabulary.
func ParseAction(action string) (string, error) {
	switch action {
	case ActionRequest, ActionApprove, ActionReject, ActionReset:
		return action, nil
	default:
		return "", UnsupportedActionError{Action: action}
	}
}

// Next returns the resulting status for an action applied to the current
// status, and whether the transition is allowed. A disallowed pair is not an
// error: callers treat it as a no-op so that repeated or out-of-order
// requests never fabricate history. reset is allowed from every state.
func Next(current, action string) (string, bool) {
	current = Normalize(current)
	switch action {
	case ActionRequest:
		if current == StatusDraft || current == StatusRejected {
			return StatusInReview, true
		}
	case ActionApprove:
		if current == StatusInReview {
			return StatusApproved, true
		}
	case ActionReject:
		if current == StatusInReview {
			return StatusRejected, true
		}
	case ActionReset:
		return StatusDraft, true
	}
	return current, false
}

// TimelineLabel derives the human label recorded for a target status.
func TimelineLabel(status string) string {
	switch Normalize(status) {
	case StatusInReview:
		return "In review status"
	case StatusApproved:
		return "Approved status"
	case StatusRejected:
		return "Rejected status"
	default:
		return "Draft status"
	}
}

// TimelineState maps a target status onto the timeline state vocabulary.
func TimelineState(status string) string {
	switch Normalize(status) {
	case StatusInReview:
		return "in_progress"
	case StatusApproved:
		return "completed"
	case StatusRejected:
		return "blocked"
	default:
		return "upcoming"
	}
}
