package engine_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"staffdesk/internal/config"
	"staffdesk/internal/db"
	"staffdesk/internal/domain"
	"staffdesk/internal/engine"
	"staffdesk/internal/migrate"
	"staffdesk/internal/readiness"
	"staffdesk/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn, config.Default("test"))
	eng.Now = func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func newTestProject(t *testing.T, env testEnv) domain.Project {
	t.Helper()
	p, err := env.Engine.CreateProject(env.Ctx, engine.ProjectCreateOptions{ProjectName: "Rollout"})
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return p
}

func historyLen(t *testing.T, env testEnv, projectID int) int {
	t.Helper()
	hist, err := env.Engine.Repo.ListStatusHistory(env.Ctx, projectID)
	if err != nil {
		t.Fatalf("list history: %v", err)
	}
	return len(hist)
}

func TestApproveFromDraftIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)

	got, changed, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "approve"})
	if err != nil {
		t.Fatalf("approve from draft: %v", err)
	}
	if changed {
		t.Fatal("approve from draft should not change state")
	}
	if got.ApprovalStatus != "draft" {
		t.Fatalf("status = %q, want draft", got.ApprovalStatus)
	}
	if n := historyLen(t, env, p.ProjectID); n != 0 {
		t.Fatalf("history length = %d, want 0", n)
	}
}

func TestRequestAppendsOneHistoryEntry(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)

	actor := 1001
	got, changed, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{
		ProjectID: p.ProjectID, Action: "request", ActorID: &actor, ActorName: "Asha Anand",
	})
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if !changed || got.ApprovalStatus != "in_review" {
		t.Fatalf("status = %q changed=%v, want in_review changed", got.ApprovalStatus, changed)
	}
	if got.ApprovalRequestedAt == nil || got.ApprovalRequestedBy == nil || *got.ApprovalRequestedBy != actor {
		t.Fatalf("request stamps not set: %+v", got)
	}
	hist, err := env.Engine.Repo.ListStatusHistory(env.Ctx, p.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].PreviousStatus != "draft" || hist[0].Status != "in_review" {
		t.Fatalf("history entry = %+v", hist[0])
	}
	if hist[0].ChangedByName != "Asha Anand" {
		t.Fatalf("changed_by_name = %q", hist[0].ChangedByName)
	}
}

func TestRejectRequiresComment(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	if _, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "request"}); err != nil {
		t.Fatal(err)
	}

	_, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "reject", Comment: "   "})
	var verr engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := historyLen(t, env, p.ProjectID); n != 1 {
		t.Fatalf("rejected-without-comment must not append history, got %d entries", n)
	}

	got, changed, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "reject", Comment: "budget missing"})
	if err != nil || !changed {
		t.Fatalf("reject with comment: %v changed=%v", err, changed)
	}
	if got.ApprovalStatus != "rejected" || got.ApprovalReason != "budget missing" {
		t.Fatalf("got %q reason %q", got.ApprovalStatus, got.ApprovalReason)
	}
}

func TestResetClearsApprovalFieldsFromAnyState(t *testing.T) {
	env := newTestEnv(t)
	actor := 1001
	for _, setup := range [][]engine.ApprovalOptions{
		nil, // draft
		{{Action: "request", ActorID: &actor}},
		{{Action: "request", ActorID: &actor}, {Action: "approve", ActorID: &actor, Comment: "ok"}},
		{{Action: "request", ActorID: &actor}, {Action: "reject", ActorID: &actor, Comment: "no"}},
	} {
		p := newTestProject(t, env)
		for _, opts := range setup {
			opts.ProjectID = p.ProjectID
			if _, _, err := env.Engine.ApplyApproval(env.Ctx, opts); err != nil {
				t.Fatal(err)
			}
		}
		got, changed, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "reset"})
		if err != nil || !changed {
			t.Fatalf("reset: %v changed=%v", err, changed)
		}
		if got.ApprovalStatus != "draft" {
			t.Fatalf("status after reset = %q", got.ApprovalStatus)
		}
		if got.ApprovalRequestedAt != nil || got.ApprovalRequestedBy != nil ||
			got.ApprovalResolvedAt != nil || got.ApprovalResolvedBy != nil || got.ApprovalReason != "" {
			t.Fatalf("approval fields not cleared: %+v", got)
		}
	}
}

func TestRequestAfterRejectionClearsResolvedFields(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	reviewer := 1001
	if _, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "request"}); err != nil {
		t.Fatal(err)
	}
	if _, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "reject", ActorID: &reviewer, Comment: "no budget"}); err != nil {
		t.Fatal(err)
	}

	got, changed, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "request", Comment: "budget attached"})
	if err != nil || !changed {
		t.Fatalf("re-request: %v changed=%v", err, changed)
	}
	if got.ApprovalStatus != "in_review" {
		t.Fatalf("status = %q, want in_review", got.ApprovalStatus)
	}
	if got.ApprovalResolvedAt != nil || got.ApprovalResolvedBy != nil {
		t.Fatalf("re-request kept old resolution: resolvedAt=%v resolvedBy=%v", got.ApprovalResolvedAt, got.ApprovalResolvedBy)
	}
	if got.ApprovalReason != "budget attached" {
		t.Fatalf("reason = %q, want the re-request comment", got.ApprovalReason)
	}
	if got.ApprovalRequestedAt == nil {
		t.Fatal("re-request did not stamp requested_at")
	}
}

func TestRequestWithoutCommentClearsOldReason(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	for _, opts := range []engine.ApprovalOptions{
		{ProjectID: p.ProjectID, Action: "request"},
		{ProjectID: p.ProjectID, Action: "reject", Comment: "missing scope"},
	} {
		if _, _, err := env.Engine.ApplyApproval(env.Ctx, opts); err != nil {
			t.Fatal(err)
		}
	}
	got, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "request"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ApprovalReason != "" {
		t.Fatalf("reason = %q, want old rejection reason gone", got.ApprovalReason)
	}
}

func TestJournalRowsUseEngineClock(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	if _, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "request"}); err != nil {
		t.Fatal(err)
	}
	want := env.Engine.Now().UTC().Format(time.RFC3339)
	hist, err := env.Engine.Repo.ListStatusHistory(env.Ctx, p.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].ChangedAt != want {
		t.Fatalf("history stamp = %+v, want changed_at %s", hist, want)
	}
	timeline, err := env.Engine.Repo.ListTimeline(env.Ctx, p.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range timeline {
		if entry.OccurredAt != want {
			t.Fatalf("timeline entry %q occurred_at = %s, want %s", entry.Label, entry.OccurredAt, want)
		}
	}
}

func TestApproveStoresReasonAndTimeline(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	if _, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "request"}); err != nil {
		t.Fatal(err)
	}
	got, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "approve", Comment: "looks good"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ApprovalStatus != "approved" || got.ApprovalReason != "looks good" {
		t.Fatalf("got %q reason %q", got.ApprovalStatus, got.ApprovalReason)
	}
	timeline, err := env.Engine.Repo.ListTimeline(env.Ctx, p.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	// creation + request + approve
	if len(timeline) != 3 {
		t.Fatalf("timeline length = %d, want 3", len(timeline))
	}
	last := timeline[len(timeline)-1]
	if last.Label != "Approved status" || last.State != "completed" {
		t.Fatalf("timeline entry = %+v", last)
	}
}

func TestUnsupportedActionIsFatal(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	_, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "promote"})
	if err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestApprovalOnMissingProject(t *testing.T) {
	env := newTestEnv(t)
	_, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: 99999, Action: "request"})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestChecklistScoreTracksItems(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	if p.ReadinessScore != 0 {
		t.Fatalf("new project score = %d, want 0", p.ReadinessScore)
	}

	state, err := env.Engine.UpdateChecklist(env.Ctx, p.ProjectID, map[string]readiness.Item{
		"scope":    {Status: "done"},
		"staffing": {Status: "in_progress"},
		"risk":     {Status: "done"},
		"kickoff":  {Status: "blocked"},
	})
	if err != nil {
		t.Fatalf("update checklist: %v", err)
	}
	if state.Percent != 50 {
		t.Fatalf("percent = %d, want 50", state.Percent)
	}
	stored, err := env.Engine.Repo.GetProject(env.Ctx, p.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ReadinessScore != 50 {
		t.Fatalf("stored score = %d, want 50", stored.ReadinessScore)
	}
}

func TestChecklistRejectsUnknownTask(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	_, err := env.Engine.UpdateChecklist(env.Ctx, p.ProjectID, map[string]readiness.Item{
		"no-such-task": {Status: "done"},
	})
	var verr engine.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommentResolveIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	c, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{
		ProjectID: p.ProjectID, Section: "approval", Comment: "missing budget sheet", Severity: "warning",
	})
	if err != nil {
		t.Fatalf("add comment: %v", err)
	}

	reviewer := 1002
	first, err := env.Engine.ResolveComment(env.Ctx, c.ID, true, &reviewer)
	if err != nil || !first.Resolved {
		t.Fatalf("resolve: %v resolved=%v", err, first.Resolved)
	}
	second, err := env.Engine.ResolveComment(env.Ctx, c.ID, true, &reviewer)
	if err != nil || !second.Resolved {
		t.Fatalf("second resolve: %v resolved=%v", err, second.Resolved)
	}
	if first.ResolvedAt == nil || second.ResolvedAt == nil || *first.ResolvedAt != *second.ResolvedAt {
		t.Fatalf("second resolve changed the stamp: %v vs %v", first.ResolvedAt, second.ResolvedAt)
	}
	comments, err := env.Engine.Repo.ListComments(env.Ctx, p.ProjectID, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(comments) != 1 {
		t.Fatalf("comments duplicated: %d", len(comments))
	}

	reopened, err := env.Engine.ResolveComment(env.Ctx, c.ID, false, nil)
	if err != nil || reopened.Resolved {
		t.Fatalf("reopen: %v resolved=%v", err, reopened.Resolved)
	}
	if reopened.ResolvedAt != nil || reopened.ResolvedBy != nil {
		t.Fatalf("reopen did not clear stamps: %+v", reopened)
	}
}

func TestCommentValidation(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	var verr engine.ValidationError
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{ProjectID: p.ProjectID, Section: "billing", Comment: "x"}); !errors.As(err, &verr) {
		t.Fatalf("bad section: %v", err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{ProjectID: p.ProjectID, Section: "team", Comment: "x", Severity: "fatal"}); !errors.As(err, &verr) {
		t.Fatalf("bad severity: %v", err)
	}
	if _, err := env.Engine.AddComment(env.Ctx, engine.CommentOptions{ProjectID: p.ProjectID, Section: "team", Comment: " "}); !errors.As(err, &verr) {
		t.Fatalf("empty comment: %v", err)
	}
}

func TestCounterIDsAreUniqueAndMonotonic(t *testing.T) {
	env := newTestEnv(t)
	seen := map[int]bool{}
	prev := 0
	for i := 0; i < 5; i++ {
		p := newTestProject(t, env)
		if seen[p.ProjectID] {
			t.Fatalf("duplicate project id %d", p.ProjectID)
		}
		seen[p.ProjectID] = true
		if p.ProjectID <= prev {
			t.Fatalf("ids not monotonic: %d after %d", p.ProjectID, prev)
		}
		prev = p.ProjectID
	}
	first := 0
	for id := range seen {
		if first == 0 || id < first {
			first = id
		}
	}
	if first != 5001 {
		t.Fatalf("first project id = %d, want 5001", first)
	}
}

func TestRacingTransitionsKeepBothHistoryRows(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	if _, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "request"}); err != nil {
		t.Fatal(err)
	}
	// Two resolutions land back to back; the second overwrites the
	// first project status but both audit rows survive.
	if _, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "approve", Comment: "ok"}); err != nil {
		t.Fatal(err)
	}
	got, _, err := env.Engine.ApplyApproval(env.Ctx, engine.ApprovalOptions{ProjectID: p.ProjectID, Action: "reset"})
	if err != nil {
		t.Fatal(err)
	}
	if got.ApprovalStatus != "draft" {
		t.Fatalf("status = %q", got.ApprovalStatus)
	}
	if n := historyLen(t, env, p.ProjectID); n != 3 {
		t.Fatalf("history length = %d, want 3", n)
	}
}

func TestProjectDetailOrdersHistoryNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	p := newTestProject(t, env)
	for _, opts := range []engine.ApprovalOptions{
		{ProjectID: p.ProjectID, Action: "request"},
		{ProjectID: p.ProjectID, Action: "approve", Comment: "ok"},
	} {
		if _, _, err := env.Engine.ApplyApproval(env.Ctx, opts); err != nil {
			t.Fatal(err)
		}
	}
	detail, err := env.Engine.GetProjectDetail(env.Ctx, p.ProjectID)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.History) != 2 {
		t.Fatalf("history length = %d", len(detail.History))
	}
	if detail.History[0].Status != "approved" || detail.History[1].Status != "in_review" {
		t.Fatalf("history not newest first: %+v", detail.History)
	}
	if detail.Checklist.Percent != 0 {
		t.Fatalf("checklist percent = %d", detail.Checklist.Percent)
	}
}

func TestSeedProducesWorkspace(t *testing.T) {
	env := newTestEnv(t)
	res, err := env.Engine.Seed(env.Ctx, 10, 2)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if res.Employees != 10 || res.Projects != 2 {
		t.Fatalf("seed result = %+v", res)
	}
	if res.Assignments < 2*3 {
		t.Fatalf("too few assignments: %d", res.Assignments)
	}
	report, err := env.Engine.Readiness(env.Ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Projects) != 2 {
		t.Fatalf("readiness rows = %d", len(report.Projects))
	}
}

func TestAllocationsFlagOverallocation(t *testing.T) {
	env := newTestEnv(t)
	emp, err := env.Engine.CreateEmployee(env.Ctx, engine.EmployeeCreateOptions{Name: "Mei Tanaka", Email: "mei@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		p := newTestProject(t, env)
		if _, err := env.Engine.CreateAssignment(env.Ctx, engine.AssignmentCreateOptions{
			ProjectID: p.ProjectID, EmpID: emp.EmployeeID, AllocationPct: 100,
		}); err != nil {
			t.Fatal(err)
		}
	}
	rows, err := env.Engine.Allocations(env.Ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || !rows[0].Overallocated || rows[0].TotalPct != 200 {
		t.Fatalf("allocation rows = %+v", rows)
	}
}
