package repo

import (
	"context"
	"database/sql"
)

// Counter names. Start values come from config and are installed on
// first use, so existing workspaces keep their sequence.
const (
	CounterEmployee        = "employee_id"
	CounterProject         = "project_id"
	CounterProjectEmployee = "emp_project_id"
)

// NextIDTx allocates the next ID from a named counter inside the
// caller's transaction. The counter row holds the last issued value,
// seeded with the configured base, so the first allocation is base+1.
// The single UPDATE..RETURNING makes the increment atomic; two racing
// callers never see the same value.
func (r Repo) NextIDTx(ctx context.Context, tx *sql.Tx, name string, start int) (int, error) {
	if _, err := tx.ExecContext(ctx, `INSERT INTO counters(name,value) VALUES (?,?) ON CONFLICT(name) DO NOTHING`, name, start); err != nil {
		return 0, err
	}
	var id int
	err := tx.QueryRowContext(ctx, `UPDATE counters SET value=value+1 WHERE name=? RETURNING value`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}
