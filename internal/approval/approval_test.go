package approval

import (
	"errors"
	"testing"
)

func TestNextTransitionTable(t *testing.T) {
	cases := []struct {
		current string
		action  string
		want    string
		allowed bool
	}{
		{StatusDraft, ActionRequest, StatusInReview, true},
		{StatusRejected, ActionRequest, StatusInReview, true},
		{StatusInReview, ActionRequest, StatusInReview, false},
		{StatusApproved, ActionRequest, StatusApproved, false},
		{StatusInReview, ActionApprove, StatusApproved, true},
		{StatusDraft, ActionApprove, StatusDraft, false},
		{StatusRejected, ActionApprove, StatusRejected, false},
		{StatusInReview, ActionReject, StatusRejected, true},
		{StatusApproved, ActionReject, StatusApproved, false},
		{StatusDraft, ActionReset, StatusDraft, true},
		{StatusInReview, ActionReset, StatusDraft, true},
		{StatusApproved, ActionReset, StatusDraft, true},
		{StatusRejected, ActionReset, StatusDraft, true},
	}
	for _, c := range cases {
		got, allowed := Next(c.current, c.action)
		if got != c.want || allowed != c.allowed {
			t.Errorf("Next(%s, %s) = (%s, %v), want (%s, %v)", c.current, c.action, got, allowed, c.want, c.allowed)
		}
	}
}

func TestNormalize(t *testing.T) {
	for _, s := range []string{StatusDraft, StatusInReview, StatusApproved, StatusRejected} {
		if Normalize(s) != s {
			t.Errorf("Normalize(%s) changed a valid status", s)
		}
	}
	for _, s := range []string{"", "pending", "DRAFT", "archived"} {
		if Normalize(s) != StatusDraft {
			t.Errorf("Normalize(%q) = %s, want draft", s, Normalize(s))
		}
	}
}

func TestNextNormalizesUnknownCurrent(t *testing.T) {
	got, allowed := Next("garbage", ActionRequest)
	if got != StatusInReview || !allowed {
		t.Fatalf("Next(garbage, request) = (%s, %v)", got, allowed)
	}
}

func TestParseAction(t *testing.T) {
	for _, a := range []string{ActionRequest, ActionApprove, ActionReject, ActionReset} {
		if _, err := ParseAction(a); err != nil {
			t.Errorf("ParseAction(%s): %v", a, err)
		}
	}
	_, err := ParseAction("publish")
	var ua UnsupportedActionError
	if !errors.As(err, &ua) || ua.Action != "publish" {
		t.Fatalf("ParseAction(publish) = %v", err)
	}
}

func TestTimelineLabels(t *testing.T) {
	if TimelineLabel(StatusApproved) != "Approved status" {
		t.Fatalf("label = %q", TimelineLabel(StatusApproved))
	}
	if TimelineState(StatusApproved) != "completed" {
		t.Fatalf("state = %q", TimelineState(StatusApproved))
	}
	if TimelineState(StatusRejected) != "blocked" || TimelineState(StatusInReview) != "in_progress" {
		t.Fatalf("unexpected timeline states")
	}
}
