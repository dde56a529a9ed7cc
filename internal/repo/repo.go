package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"staffdesk/internal/config"
	"staffdesk/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const projectCols = `project_id,project_name,client_name,start_date,end_date,lead_by_emp_id,status,progress,overview_json,
approval_status,approval_requested_at,approval_requested_by,approval_resolved_at,approval_resolved_by,approval_reason,
readiness_score,checklist_json,checklist_updated_at,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (domain.Project, error) {
	var (
		p        domain.Project
		overview string
	)
	err := row.Scan(&p.ProjectID, &p.ProjectName, &p.ClientName, &p.StartDate, &p.EndDate, &p.LeadByEmpID,
		&p.Status, &p.Progress, &overview,
		&p.ApprovalStatus, &p.ApprovalRequestedAt, &p.ApprovalRequestedBy, &p.ApprovalResolvedAt, &p.ApprovalResolvedBy, &p.ApprovalReason,
		&p.ReadinessScore, &p.ChecklistJSON, &p.ChecklistUpdatedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	if overview != "" {
		if err := json.Unmarshal([]byte(overview), &p.Overview); err != nil {
			return p, fmt.Errorf("project %d overview: %w", p.ProjectID, err)
		}
	}
	return p, nil
}

func (r Repo) InsertProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	overview, err := json.Marshal(p.Overview)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO projects(`+projectCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		p.ProjectID, p.ProjectName, p.ClientName, p.StartDate, p.EndDate, p.LeadByEmpID,
		p.Status, p.Progress, string(overview),
		p.ApprovalStatus, p.ApprovalRequestedAt, p.ApprovalRequestedBy, p.ApprovalResolvedAt, p.ApprovalResolvedBy, p.ApprovalReason,
		p.ReadinessScore, p.ChecklistJSON, p.ChecklistUpdatedAt, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r Repo) GetProject(ctx context.Context, id int) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE project_id=?`, id))
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id int) (domain.Project, error) {
	return scanProject(tx.QueryRowContext(ctx, `SELECT `+projectCols+` FROM projects WHERE project_id=?`, id))
}

// ListProjects returns projects ordered by id, optionally filtered by
// approval status.
func (r Repo) ListProjects(ctx context.Context, status string) ([]domain.Project, error) {
	query := `SELECT ` + projectCols + ` FROM projects`
	var args []any
	if status != "" {
		query += ` WHERE approval_status=?`
		args = append(args, status)
	}
	query += ` ORDER BY project_id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ProjectUpdate carries optional fields for a partial project update.
// Nil means leave unchanged.
type ProjectUpdate struct {
	ProjectName *string
	ClientName  *string
	StartDate   *string
	EndDate     *string
	LeadByEmpID *int
	Status      *string
	Progress    *int
	Overview    *domain.ProjectOverview
}

// UpdateProject applies a partial update. Last writer wins; concurrent
// updates both land and the row reflects whichever committed later.
func (r Repo) UpdateProject(ctx context.Context, id int, upd ProjectUpdate) error {
	var (
		fields []string
		args   []any
	)
	if upd.ProjectName != nil {
		fields = append(fields, "project_name=?")
		args = append(args, *upd.ProjectName)
	}
	if upd.ClientName != nil {
		fields = append(fields, "client_name=?")
		args = append(args, *upd.ClientName)
	}
	if upd.StartDate != nil {
		fields = append(fields, "start_date=?")
		args = append(args, nullable(*upd.StartDate))
	}
	if upd.EndDate != nil {
		fields = append(fields, "end_date=?")
		args = append(args, nullable(*upd.EndDate))
	}
	if upd.LeadByEmpID != nil {
		fields = append(fields, "lead_by_emp_id=?")
		args = append(args, *upd.LeadByEmpID)
	}
	if upd.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, *upd.Status)
	}
	if upd.Progress != nil {
		fields = append(fields, "progress=?")
		args = append(args, *upd.Progress)
	}
	if upd.Overview != nil {
		payload, err := json.Marshal(upd.Overview)
		if err != nil {
			return err
		}
		fields = append(fields, "overview_json=?")
		args = append(args, string(payload))
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, time.Now().UTC().Format(time.RFC3339), id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE projects SET %s WHERE project_id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetApprovalTx writes the approval fields and the derived timestamps in the
// caller's transaction, alongside the journal rows for the same transition.
func (r Repo) SetApprovalTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET approval_status=?,approval_requested_at=?,approval_requested_by=?,
approval_resolved_at=?,approval_resolved_by=?,approval_reason=?,updated_at=? WHERE project_id=?`,
		p.ApprovalStatus, p.ApprovalRequestedAt, p.ApprovalRequestedBy,
		p.ApprovalResolvedAt, p.ApprovalResolvedBy, p.ApprovalReason, p.UpdatedAt, p.ProjectID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetChecklist stores the checklist snapshot and its derived score together.
func (r Repo) SetChecklist(ctx context.Context, id int, checklistJSON string, score int, updatedAt string) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE projects SET checklist_json=?,readiness_score=?,checklist_updated_at=?,updated_at=? WHERE project_id=?`,
		checklistJSON, score, updatedAt, updatedAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) ListStatusHistory(ctx context.Context, projectID int) ([]domain.StatusHistoryEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,status,previous_status,changed_at,changed_by,COALESCE(changed_by_name,''),COALESCE(comment,'')
FROM status_history WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.StatusHistoryEntry
	for rows.Next() {
		var e domain.StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Status, &e.PreviousStatus, &e.ChangedAt, &e.ChangedBy, &e.ChangedByName, &e.Comment); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) ListTimeline(ctx context.Context, projectID int) ([]domain.TimelineEntry, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,label,state,occurred_at,due_at FROM timeline WHERE project_id=? ORDER BY id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.TimelineEntry
	for rows.Next() {
		var e domain.TimelineEntry
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Label, &e.State, &e.OccurredAt, &e.DueAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

func (r Repo) InsertCommentTx(ctx context.Context, tx *sql.Tx, c domain.ReviewerComment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO reviewer_comments(id,project_id,section,comment,reviewer_id,reviewer_name,severity,resolved,resolved_at,resolved_by,created_at)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		c.ID, c.ProjectID, c.Section, c.Comment, c.ReviewerID, c.ReviewerName, c.Severity, boolInt(c.Resolved), c.ResolvedAt, c.ResolvedBy, c.CreatedAt)
	return err
}

func scanComment(row rowScanner) (domain.ReviewerComment, error) {
	var (
		c        domain.ReviewerComment
		resolved int
	)
	err := row.Scan(&c.ID, &c.ProjectID, &c.Section, &c.Comment, &c.ReviewerID, &c.ReviewerName, &c.Severity, &resolved, &c.ResolvedAt, &c.ResolvedBy, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	c.Resolved = resolved != 0
	return c, err
}

const commentCols = `id,project_id,section,comment,reviewer_id,COALESCE(reviewer_name,''),severity,resolved,resolved_at,resolved_by,created_at`

func (r Repo) GetComment(ctx context.Context, id string) (domain.ReviewerComment, error) {
	return scanComment(r.DB.QueryRowContext(ctx, `SELECT `+commentCols+` FROM reviewer_comments WHERE id=?`, id))
}

// ListComments filters by section and resolved when given. Comments are
// never deleted; resolution only flips the flag.
func (r Repo) ListComments(ctx context.Context, projectID int, section string, resolved *bool) ([]domain.ReviewerComment, error) {
	query := `SELECT ` + commentCols + ` FROM reviewer_comments WHERE project_id=?`
	args := []any{projectID}
	if section != "" {
		query += ` AND section=?`
		args = append(args, section)
	}
	if resolved != nil {
		query += ` AND resolved=?`
		args = append(args, boolInt(*resolved))
	}
	query += ` ORDER BY created_at, id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ReviewerComment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// SetCommentResolvedTx flips the resolved flag. Resolving an already
// resolved comment keeps the original resolution stamp.
func (r Repo) SetCommentResolvedTx(ctx context.Context, tx *sql.Tx, id string, resolved bool, resolvedAt *string, resolvedBy *int) error {
	res, err := tx.ExecContext(ctx, `UPDATE reviewer_comments SET resolved=?,resolved_at=?,resolved_by=? WHERE id=?`,
		boolInt(resolved), resolvedAt, resolvedBy, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetAppConfig returns the workspace config stored in the database, or
// ErrNotFound before first import.
func (r Repo) GetAppConfig(ctx context.Context) (*config.Config, error) {
	var payload string
	err := r.DB.QueryRowContext(ctx, `SELECT config_yaml FROM app_config WHERE id=1`).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return config.FromYAML([]byte(payload))
}

func (r Repo) UpsertAppConfig(ctx context.Context, yaml string) error {
	if _, err := config.FromYAML([]byte(yaml)); err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.DB.ExecContext(ctx, `INSERT INTO app_config(id,config_yaml,updated_at) VALUES (1,?,?)
ON CONFLICT(id) DO UPDATE SET config_yaml=excluded.config_yaml, updated_at=excluded.updated_at`, yaml, now)
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
