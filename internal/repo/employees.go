package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"staffdesk/internal/domain"
)

const employeeCols = `employee_id,name,email,dept_id,role,contact_no,is_active,location,about,skills_json,avatar_url,created_at,updated_at`

func scanEmployee(row rowScanner) (domain.Employee, error) {
	var (
		e      domain.Employee
		active int
		skills string
	)
	err := row.Scan(&e.EmployeeID, &e.Name, &e.Email, &e.DeptID, &e.Role, &e.ContactNo, &active,
		&e.Location, &e.About, &skills, &e.AvatarURL, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return e, ErrNotFound
	}
	if err != nil {
		return e, err
	}
	e.IsActive = active != 0
	if skills != "" {
		if err := json.Unmarshal([]byte(skills), &e.Skills); err != nil {
			return e, fmt.Errorf("employee %d skills: %w", e.EmployeeID, err)
		}
	}
	return e, nil
}

func (r Repo) InsertEmployeeTx(ctx context.Context, tx *sql.Tx, e domain.Employee) error {
	skills, err := json.Marshal(e.Skills)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO employees(`+employeeCols+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		e.EmployeeID, e.Name, e.Email, e.DeptID, e.Role, e.ContactNo, boolInt(e.IsActive),
		e.Location, e.About, string(skills), e.AvatarURL, e.CreatedAt, e.UpdatedAt)
	return err
}

func (r Repo) GetEmployee(ctx context.Context, id int) (domain.Employee, error) {
	return scanEmployee(r.DB.QueryRowContext(ctx, `SELECT `+employeeCols+` FROM employees WHERE employee_id=?`, id))
}

func (r Repo) ListEmployees(ctx context.Context, deptID *int, activeOnly bool) ([]domain.Employee, error) {
	query := `SELECT ` + employeeCols + ` FROM employees`
	var (
		where []string
		args  []any
	)
	if deptID != nil {
		where = append(where, "dept_id=?")
		args = append(args, *deptID)
	}
	if activeOnly {
		where = append(where, "is_active=1")
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY employee_id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EmployeeUpdate carries optional fields for a partial employee update.
type EmployeeUpdate struct {
	Name      *string
	Email     *string
	DeptID    *int
	Role      *string
	ContactNo *string
	IsActive  *bool
	Location  *string
	About     *string
	Skills    *[]string
	AvatarURL *string
}

func (r Repo) UpdateEmployee(ctx context.Context, id int, upd EmployeeUpdate) error {
	var (
		fields []string
		args   []any
	)
	set := func(col string, v any) {
		fields = append(fields, col+"=?")
		args = append(args, v)
	}
	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Email != nil {
		set("email", *upd.Email)
	}
	if upd.DeptID != nil {
		set("dept_id", *upd.DeptID)
	}
	if upd.Role != nil {
		set("role", *upd.Role)
	}
	if upd.ContactNo != nil {
		set("contact_no", *upd.ContactNo)
	}
	if upd.IsActive != nil {
		set("is_active", boolInt(*upd.IsActive))
	}
	if upd.Location != nil {
		set("location", *upd.Location)
	}
	if upd.About != nil {
		set("about", *upd.About)
	}
	if upd.Skills != nil {
		payload, err := json.Marshal(*upd.Skills)
		if err != nil {
			return err
		}
		set("skills_json", string(payload))
	}
	if upd.AvatarURL != nil {
		set("avatar_url", *upd.AvatarURL)
	}
	if len(fields) == 0 {
		return nil
	}
	fields = append(fields, "updated_at=?")
	args = append(args, time.Now().UTC().Format(time.RFC3339), id)
	res, err := r.DB.ExecContext(ctx, fmt.Sprintf(`UPDATE employees SET %s WHERE employee_id=?`, strings.Join(fields, ",")), args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) InsertDepartmentParent(ctx context.Context, name, description, createdAt string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO department_parents(name,description,created_at) VALUES (?,?,?)`,
		name, description, createdAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (r Repo) InsertDepartmentChild(ctx context.Context, parentID int, name, description, createdAt string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `INSERT INTO department_children(parent_dept_id,name,description,created_at) VALUES (?,?,?,?)`,
		parentID, name, description, createdAt)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return int(id), err
}

func (r Repo) ListDepartmentParents(ctx context.Context) ([]domain.DepartmentParent, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT department_id,name,description,created_at FROM department_parents ORDER BY department_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DepartmentParent
	for rows.Next() {
		var d domain.DepartmentParent
		if err := rows.Scan(&d.DepartmentID, &d.Name, &d.Description, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) ListDepartmentChildren(ctx context.Context, parentID *int) ([]domain.DepartmentChild, error) {
	query := `SELECT child_dept_id,parent_dept_id,name,description,created_at FROM department_children`
	var args []any
	if parentID != nil {
		query += ` WHERE parent_dept_id=?`
		args = append(args, *parentID)
	}
	query += ` ORDER BY child_dept_id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DepartmentChild
	for rows.Next() {
		var d domain.DepartmentChild
		if err := rows.Scan(&d.ChildDeptID, &d.ParentDeptID, &d.Name, &d.Description, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) GetDepartmentChild(ctx context.Context, id int) (domain.DepartmentChild, error) {
	var d domain.DepartmentChild
	err := r.DB.QueryRowContext(ctx, `SELECT child_dept_id,parent_dept_id,name,description,created_at FROM department_children WHERE child_dept_id=?`, id).
		Scan(&d.ChildDeptID, &d.ParentDeptID, &d.Name, &d.Description, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	return d, err
}

const assignmentCols = `emp_project_id,project_id,emp_id,role,is_active,allocation_pct,assigned_date,created_at,updated_at`

func scanAssignment(row rowScanner) (domain.Assignment, error) {
	var (
		a      domain.Assignment
		active int
	)
	err := row.Scan(&a.EmpProjectID, &a.ProjectID, &a.EmpID, &a.Role, &active, &a.AllocationPct, &a.AssignedDate, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return a, ErrNotFound
	}
	a.IsActive = active != 0
	return a, err
}

func (r Repo) InsertAssignmentTx(ctx context.Context, tx *sql.Tx, a domain.Assignment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO project_employees(`+assignmentCols+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		a.EmpProjectID, a.ProjectID, a.EmpID, a.Role, boolInt(a.IsActive), a.AllocationPct, a.AssignedDate, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r Repo) GetAssignment(ctx context.Context, id int) (domain.Assignment, error) {
	return scanAssignment(r.DB.QueryRowContext(ctx, `SELECT `+assignmentCols+` FROM project_employees WHERE emp_project_id=?`, id))
}

func (r Repo) ListAssignments(ctx context.Context, projectID, empID *int) ([]domain.Assignment, error) {
	query := `SELECT ` + assignmentCols + ` FROM project_employees`
	var (
		where []string
		args  []any
	)
	if projectID != nil {
		where = append(where, "project_id=?")
		args = append(args, *projectID)
	}
	if empID != nil {
		where = append(where, "emp_id=?")
		args = append(args, *empID)
	}
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY emp_project_id`
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// ReleaseAssignment deactivates an assignment. Assignment rows are kept
// for allocation history.
func (r Repo) ReleaseAssignment(ctx context.Context, id int) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := r.DB.ExecContext(ctx, `UPDATE project_employees SET is_active=0,updated_at=? WHERE emp_project_id=?`, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
