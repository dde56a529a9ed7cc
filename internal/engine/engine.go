package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"staffdesk/internal/approval"
	"staffdesk/internal/config"
	"staffdesk/internal/domain"
	"staffdesk/internal/journal"
	"staffdesk/internal/readiness"
	"staffdesk/internal/repo"
)

// Notifier receives approval transitions after commit. Implementations
// must not block and must swallow their own failures.
type Notifier interface {
	ProjectTransitioned(p domain.Project, action string)
}

type Engine struct {
	DB       *sql.DB
	Repo     repo.Repo
	Journal  journal.Writer
	Config   *config.Config
	Notifier Notifier
	Now      func() time.Time
}

func New(db *sql.DB, cfg *config.Config) Engine {
	return Engine{
		DB:      db,
		Repo:    repo.Repo{DB: db},
		Journal: journal.Writer{DB: db},
		Config:  cfg,
		Now:     time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) nowString() string {
	return e.now().UTC().Format(time.RFC3339)
}

// ValidationError reports rejected caller input. It maps to a 400 at
// the API boundary.
type ValidationError struct {
	Field string
	Msg   string
}

func (v ValidationError) Error() string {
	if v.Field == "" {
		return v.Msg
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Msg)
}

func (e Engine) schedule() []readiness.Task {
	if e.Config != nil && len(e.Config.Readiness.Schedule) > 0 {
		return e.Config.Readiness.Schedule
	}
	return readiness.DefaultSchedule()
}

// ApprovalOptions are the inputs to one approval transition.
type ApprovalOptions struct {
	ProjectID int
	Action    string
	ActorID   *int
	ActorName string
	Comment   string
}

// ApplyApproval runs one approval action against a project. A
// transition that is not allowed from the current status is a no-op:
// the project comes back unchanged, changed=false, no history row. The
// status update and both journal rows commit in one transaction.
func (e Engine) ApplyApproval(ctx context.Context, opts ApprovalOptions) (domain.Project, bool, error) {
	action, err := approval.ParseAction(opts.Action)
	if err != nil {
		return domain.Project{}, false, err
	}
	if action == approval.ActionReject && strings.TrimSpace(opts.Comment) == "" {
		return domain.Project{}, false, ValidationError{Field: "comment", Msg: "rejection requires a non-empty comment"}
	}

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, false, err
	}
	defer tx.Rollback()

	p, err := e.Repo.GetProjectTx(ctx, tx, opts.ProjectID)
	if err != nil {
		return domain.Project{}, false, err
	}
	current := approval.Normalize(p.ApprovalStatus)
	next, ok := approval.Next(current, action)
	if !ok {
		p.ApprovalStatus = current
		return p, false, nil
	}

	now := e.nowString()
	p.ApprovalStatus = next
	p.UpdatedAt = now
	switch action {
	case approval.ActionRequest:
		p.ApprovalRequestedAt = &now
		p.ApprovalRequestedBy = opts.ActorID
		// A re-request after rejection starts a fresh review; the
		// previous resolution must not linger on the record.
		p.ApprovalResolvedAt = nil
		p.ApprovalResolvedBy = nil
		p.ApprovalReason = opts.Comment
	case approval.ActionApprove, approval.ActionReject:
		p.ApprovalResolvedAt = &now
		p.ApprovalResolvedBy = opts.ActorID
		p.ApprovalReason = opts.Comment
	case approval.ActionReset:
		p.ApprovalRequestedAt = nil
		p.ApprovalRequestedBy = nil
		p.ApprovalResolvedAt = nil
		p.ApprovalResolvedBy = nil
		p.ApprovalReason = ""
	}

	if err := e.Repo.SetApprovalTx(ctx, tx, p); err != nil {
		return p, false, err
	}
	if err := e.Journal.AppendHistory(ctx, tx, journal.HistoryRecord{
		ProjectID:      p.ProjectID,
		Status:         next,
		PreviousStatus: current,
		ChangedAt:      now,
		ChangedBy:      opts.ActorID,
		ChangedByName:  opts.ActorName,
		Comment:        opts.Comment,
	}); err != nil {
		return p, false, err
	}
	if err := e.Journal.AppendTimeline(ctx, tx, journal.TimelineRecord{
		ProjectID:  p.ProjectID,
		Label:      approval.TimelineLabel(next),
		State:      approval.TimelineState(next),
		OccurredAt: now,
	}); err != nil {
		return p, false, err
	}
	if err := tx.Commit(); err != nil {
		return p, false, err
	}
	if e.Notifier != nil {
		e.Notifier.ProjectTransitioned(p, string(action))
	}
	return p, true, nil
}

// UpdateChecklist replaces the project's checklist items and recomputes
// the readiness score from the same items in the same call, so the
// stored score never disagrees with the stored checklist.
func (e Engine) UpdateChecklist(ctx context.Context, projectID int, items map[string]readiness.Item) (readiness.State, error) {
	schedule := e.schedule()
	known := map[string]bool{}
	for _, task := range schedule {
		known[task.ID] = true
	}
	normalized := make(map[string]readiness.Item, len(items))
	for taskID, item := range items {
		if !known[taskID] {
			return readiness.State{}, ValidationError{Field: "items", Msg: fmt.Sprintf("unknown task id %q", taskID)}
		}
		item.Status = readiness.NormalizeStatus(item.Status)
		normalized[taskID] = item
	}
	if _, err := e.Repo.GetProject(ctx, projectID); err != nil {
		return readiness.State{}, err
	}

	state := readiness.Compute(normalized, schedule)
	payload, err := json.Marshal(normalized)
	if err != nil {
		return readiness.State{}, err
	}
	now := e.nowString()
	if err := e.Repo.SetChecklist(ctx, projectID, string(payload), state.Percent, now); err != nil {
		return readiness.State{}, err
	}
	return state, nil
}

// ChecklistState decodes the stored checklist and recomputes the score
// against the current schedule.
func (e Engine) ChecklistState(ctx context.Context, projectID int) (readiness.State, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return readiness.State{}, err
	}
	return e.checklistStateOf(p)
}

func (e Engine) checklistStateOf(p domain.Project) (readiness.State, error) {
	items := map[string]readiness.Item{}
	if p.ChecklistJSON != nil && *p.ChecklistJSON != "" {
		if err := json.Unmarshal([]byte(*p.ChecklistJSON), &items); err != nil {
			return readiness.State{}, fmt.Errorf("project %d checklist: %w", p.ProjectID, err)
		}
	}
	return readiness.Compute(items, e.schedule()), nil
}

var validSections = map[string]bool{"overview": true, "team": true, "contact": true, "approval": true}
var validSeverities = map[string]bool{"info": true, "warning": true, "critical": true}

// CommentOptions are the inputs to AddComment.
type CommentOptions struct {
	ProjectID    int
	Section      string
	Comment      string
	ReviewerID   *int
	ReviewerName string
	Severity     string
}

// AddComment attaches a reviewer comment and records it on the shared
// project timeline.
func (e Engine) AddComment(ctx context.Context, opts CommentOptions) (domain.ReviewerComment, error) {
	if !validSections[opts.Section] {
		return domain.ReviewerComment{}, ValidationError{Field: "section", Msg: fmt.Sprintf("unknown section %q", opts.Section)}
	}
	if opts.Severity == "" {
		opts.Severity = "info"
	}
	if !validSeverities[opts.Severity] {
		return domain.ReviewerComment{}, ValidationError{Field: "severity", Msg: fmt.Sprintf("unknown severity %q", opts.Severity)}
	}
	if strings.TrimSpace(opts.Comment) == "" {
		return domain.ReviewerComment{}, ValidationError{Field: "comment", Msg: "comment is required"}
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.ReviewerComment{}, err
	}

	c := domain.ReviewerComment{
		ID:           uuid.New().String(),
		ProjectID:    opts.ProjectID,
		Section:      opts.Section,
		Comment:      opts.Comment,
		ReviewerID:   opts.ReviewerID,
		ReviewerName: opts.ReviewerName,
		Severity:     opts.Severity,
		CreatedAt:    e.nowString(),
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertCommentTx(ctx, tx, c); err != nil {
		return c, err
	}
	state := "in_progress"
	if c.Severity == "critical" {
		state = "blocked"
	}
	if err := e.Journal.AppendTimeline(ctx, tx, journal.TimelineRecord{
		ProjectID:  c.ProjectID,
		Label:      fmt.Sprintf("Reviewer comment on %s", c.Section),
		State:      state,
		OccurredAt: c.CreatedAt,
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// ResolveComment sets the resolved flag. Repeating the current state is
// idempotent: the stored resolution stamp is kept and no timeline row
// is added.
func (e Engine) ResolveComment(ctx context.Context, id string, resolved bool, actorID *int) (domain.ReviewerComment, error) {
	c, err := e.Repo.GetComment(ctx, id)
	if err != nil {
		return c, err
	}
	if c.Resolved == resolved {
		return c, nil
	}
	if resolved {
		now := e.nowString()
		c.ResolvedAt = &now
		c.ResolvedBy = actorID
	} else {
		c.ResolvedAt = nil
		c.ResolvedBy = nil
	}
	c.Resolved = resolved

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return c, err
	}
	defer tx.Rollback()
	if err := e.Repo.SetCommentResolvedTx(ctx, tx, c.ID, c.Resolved, c.ResolvedAt, c.ResolvedBy); err != nil {
		return c, err
	}
	label, state := "Reviewer comment resolved", "completed"
	if !resolved {
		label, state = "Reviewer comment reopened", "in_progress"
	}
	if err := e.Journal.AppendTimeline(ctx, tx, journal.TimelineRecord{
		ProjectID:  c.ProjectID,
		Label:      label,
		State:      state,
		OccurredAt: e.nowString(),
	}); err != nil {
		return c, err
	}
	if err := tx.Commit(); err != nil {
		return c, err
	}
	return c, nil
}

// ProjectDetail is a project with its sub-collections loaded.
type ProjectDetail struct {
	Project   domain.Project             `json:"project"`
	Checklist readiness.State            `json:"checklist"`
	History   []domain.StatusHistoryEntry `json:"status_history"`
	Timeline  []domain.TimelineEntry     `json:"timeline"`
	Comments  []domain.ReviewerComment   `json:"reviewer_comments"`
}

// GetProjectDetail loads the full aggregate in presentation order:
// history newest first, timeline and comments oldest first.
func (e Engine) GetProjectDetail(ctx context.Context, projectID int) (ProjectDetail, error) {
	p, err := e.Repo.GetProject(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, err
	}
	p.ApprovalStatus = approval.Normalize(p.ApprovalStatus)
	state, err := e.checklistStateOf(p)
	if err != nil {
		return ProjectDetail{}, err
	}
	history, err := e.Repo.ListStatusHistory(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, err
	}
	for i, j := 0, len(history)-1; i < j; i, j = i+1, j-1 {
		history[i], history[j] = history[j], history[i]
	}
	timeline, err := e.Repo.ListTimeline(ctx, projectID)
	if err != nil {
		return ProjectDetail{}, err
	}
	comments, err := e.Repo.ListComments(ctx, projectID, "", nil)
	if err != nil {
		return ProjectDetail{}, err
	}
	return ProjectDetail{Project: p, Checklist: state, History: history, Timeline: timeline, Comments: comments}, nil
}

var errConfigNotLoaded = errors.New("config not loaded")
