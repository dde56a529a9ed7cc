package journal

import (
	"context"
	"database/sql"
	"time"
)

// Writer appends status history and timeline rows. Both tables are
// append-only; rows are inserted inside the caller's transaction so an
// aborted state change leaves no orphan audit rows.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type HistoryRecord struct {
	ProjectID      int
	Status         string
	PreviousStatus string
	ChangedAt      string
	ChangedBy      *int
	ChangedByName  string
	Comment        string
}

type TimelineRecord struct {
	ProjectID  int
	Label      string
	State      string
	OccurredAt string
	DueAt      *string
}

func (w Writer) stamp(at string) string {
	if at != "" {
		return at
	}
	now := w.Now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(time.RFC3339)
}

// AppendHistory writes one status_history row. ChangedAt defaults to
// the writer clock when the record carries no timestamp.
func (w Writer) AppendHistory(ctx context.Context, tx *sql.Tx, rec HistoryRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO status_history(project_id,status,previous_status,changed_at,changed_by,changed_by_name,comment) VALUES (?,?,?,?,?,?,?)`,
		rec.ProjectID, rec.Status, rec.PreviousStatus, w.stamp(rec.ChangedAt), rec.ChangedBy, rec.ChangedByName, rec.Comment)
	return err
}

// AppendTimeline writes one timeline row. OccurredAt defaults to the
// writer clock when the record carries no timestamp.
func (w Writer) AppendTimeline(ctx context.Context, tx *sql.Tx, rec TimelineRecord) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO timeline(project_id,label,state,occurred_at,due_at) VALUES (?,?,?,?,?)`,
		rec.ProjectID, rec.Label, rec.State, w.stamp(rec.OccurredAt), rec.DueAt)
	return err
}
