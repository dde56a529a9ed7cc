package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"staffdesk/internal/approval"
	"staffdesk/internal/domain"
	"staffdesk/internal/journal"
	"staffdesk/internal/readiness"
	"staffdesk/internal/repo"
)

func (e Engine) counterStarts() (employee, project, assignment int) {
	employee, project, assignment = 1000, 5000, 7000
	if e.Config != nil && e.Config.Counters.Employee > 0 {
		employee = e.Config.Counters.Employee
	}
	if e.Config != nil && e.Config.Counters.Project > 0 {
		project = e.Config.Counters.Project
	}
	if e.Config != nil && e.Config.Counters.ProjectEmployee > 0 {
		assignment = e.Config.Counters.ProjectEmployee
	}
	return
}

// EmployeeCreateOptions are parameters for creating an employee.
type EmployeeCreateOptions struct {
	Name      string
	Email     string
	DeptID    *int
	Role      string
	ContactNo string
	Location  string
	About     string
	Skills    []string
	AvatarURL string
}

func (e Engine) CreateEmployee(ctx context.Context, opts EmployeeCreateOptions) (domain.Employee, error) {
	if e.Config == nil {
		return domain.Employee{}, errConfigNotLoaded
	}
	if strings.TrimSpace(opts.Name) == "" {
		return domain.Employee{}, ValidationError{Field: "name", Msg: "name is required"}
	}
	if !strings.Contains(opts.Email, "@") {
		return domain.Employee{}, ValidationError{Field: "email", Msg: "valid email is required"}
	}
	if opts.DeptID != nil {
		if _, err := e.Repo.GetDepartmentChild(ctx, *opts.DeptID); err != nil {
			return domain.Employee{}, fmt.Errorf("department %d: %w", *opts.DeptID, err)
		}
	}
	empStart, _, _ := e.counterStarts()
	now := e.nowString()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Employee{}, err
	}
	defer tx.Rollback()

	id, err := e.Repo.NextIDTx(ctx, tx, repo.CounterEmployee, empStart)
	if err != nil {
		return domain.Employee{}, fmt.Errorf("allocate employee id: %w", err)
	}
	emp := domain.Employee{
		EmployeeID: id,
		Name:       opts.Name,
		Email:      opts.Email,
		DeptID:     opts.DeptID,
		Role:       opts.Role,
		ContactNo:  opts.ContactNo,
		IsActive:   true,
		Location:   opts.Location,
		About:      opts.About,
		Skills:     opts.Skills,
		AvatarURL:  opts.AvatarURL,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.Repo.InsertEmployeeTx(ctx, tx, emp); err != nil {
		return domain.Employee{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Employee{}, err
	}
	return emp, nil
}

// ProjectCreateOptions are parameters for creating a project.
type ProjectCreateOptions struct {
	ProjectName string
	ClientName  string
	StartDate   *string
	EndDate     *string
	LeadByEmpID *int
	Status      string
	Overview    domain.ProjectOverview
}

// CreateProject allocates a project ID, seeds the readiness checklist
// with every scheduled task at not_started, and writes the first
// timeline entry. New projects start in approval status draft.
func (e Engine) CreateProject(ctx context.Context, opts ProjectCreateOptions) (domain.Project, error) {
	if e.Config == nil {
		return domain.Project{}, errConfigNotLoaded
	}
	if strings.TrimSpace(opts.ProjectName) == "" {
		return domain.Project{}, ValidationError{Field: "project_name", Msg: "project_name is required"}
	}
	if opts.Status == "" {
		opts.Status = "draft"
	}
	switch opts.Status {
	case "draft", "active", "completed", "on_hold":
	default:
		return domain.Project{}, ValidationError{Field: "status", Msg: fmt.Sprintf("unknown status %q", opts.Status)}
	}
	if opts.LeadByEmpID != nil {
		if _, err := e.Repo.GetEmployee(ctx, *opts.LeadByEmpID); err != nil {
			return domain.Project{}, fmt.Errorf("lead employee %d: %w", *opts.LeadByEmpID, err)
		}
	}
	schedule := e.schedule()
	items := make(map[string]readiness.Item, len(schedule))
	for _, task := range schedule {
		items[task.ID] = readiness.Item{Status: readiness.StatusNotStarted}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return domain.Project{}, err
	}
	checklist := string(payload)
	now := e.nowString()
	_, projStart, _ := e.counterStarts()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	id, err := e.Repo.NextIDTx(ctx, tx, repo.CounterProject, projStart)
	if err != nil {
		return domain.Project{}, fmt.Errorf("allocate project id: %w", err)
	}
	p := domain.Project{
		ProjectID:          id,
		ProjectName:        opts.ProjectName,
		ClientName:         opts.ClientName,
		StartDate:          opts.StartDate,
		EndDate:            opts.EndDate,
		LeadByEmpID:        opts.LeadByEmpID,
		Status:             opts.Status,
		Overview:           opts.Overview,
		ApprovalStatus:     approval.StatusDraft,
		ChecklistJSON:      &checklist,
		ChecklistUpdatedAt: now,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := e.Repo.InsertProjectTx(ctx, tx, p); err != nil {
		return domain.Project{}, err
	}
	if err := e.Journal.AppendTimeline(ctx, tx, journal.TimelineRecord{
		ProjectID:  p.ProjectID,
		Label:      approval.TimelineLabel(approval.StatusDraft),
		State:      approval.TimelineState(approval.StatusDraft),
		OccurredAt: now,
		DueAt:      opts.EndDate,
	}); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

// AssignmentCreateOptions are parameters for assigning an employee.
type AssignmentCreateOptions struct {
	ProjectID     int
	EmpID         int
	Role          string
	AllocationPct int
	AssignedDate  string
}

func (e Engine) CreateAssignment(ctx context.Context, opts AssignmentCreateOptions) (domain.Assignment, error) {
	if e.Config == nil {
		return domain.Assignment{}, errConfigNotLoaded
	}
	if opts.AllocationPct <= 0 || opts.AllocationPct > 100 {
		return domain.Assignment{}, ValidationError{Field: "allocation_pct", Msg: "allocation_pct must be in 1..100"}
	}
	if _, err := e.Repo.GetProject(ctx, opts.ProjectID); err != nil {
		return domain.Assignment{}, fmt.Errorf("project %d: %w", opts.ProjectID, err)
	}
	if _, err := e.Repo.GetEmployee(ctx, opts.EmpID); err != nil {
		return domain.Assignment{}, fmt.Errorf("employee %d: %w", opts.EmpID, err)
	}
	now := e.nowString()
	if opts.AssignedDate == "" {
		opts.AssignedDate = e.now().UTC().Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", opts.AssignedDate); err != nil {
		return domain.Assignment{}, ValidationError{Field: "assigned_date", Msg: "assigned_date must be YYYY-MM-DD"}
	}
	_, _, asgStart := e.counterStarts()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Assignment{}, err
	}
	defer tx.Rollback()

	id, err := e.Repo.NextIDTx(ctx, tx, repo.CounterProjectEmployee, asgStart)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("allocate assignment id: %w", err)
	}
	a := domain.Assignment{
		EmpProjectID:  id,
		ProjectID:     opts.ProjectID,
		EmpID:         opts.EmpID,
		Role:          opts.Role,
		IsActive:      true,
		AllocationPct: opts.AllocationPct,
		AssignedDate:  opts.AssignedDate,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := e.Repo.InsertAssignmentTx(ctx, tx, a); err != nil {
		return domain.Assignment{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Assignment{}, err
	}
	return a, nil
}

func (e Engine) CreateDepartmentParent(ctx context.Context, name, description string) (domain.DepartmentParent, error) {
	if strings.TrimSpace(name) == "" {
		return domain.DepartmentParent{}, ValidationError{Field: "name", Msg: "name is required"}
	}
	now := e.nowString()
	id, err := e.Repo.InsertDepartmentParent(ctx, name, description, now)
	if err != nil {
		return domain.DepartmentParent{}, err
	}
	return domain.DepartmentParent{DepartmentID: id, Name: name, Description: description, CreatedAt: now}, nil
}

func (e Engine) CreateDepartmentChild(ctx context.Context, parentID int, name, description string) (domain.DepartmentChild, error) {
	if strings.TrimSpace(name) == "" {
		return domain.DepartmentChild{}, ValidationError{Field: "name", Msg: "name is required"}
	}
	parents, err := e.Repo.ListDepartmentParents(ctx)
	if err != nil {
		return domain.DepartmentChild{}, err
	}
	found := false
	for _, p := range parents {
		if p.DepartmentID == parentID {
			found = true
			break
		}
	}
	if !found {
		return domain.DepartmentChild{}, fmt.Errorf("parent department %d: %w", parentID, repo.ErrNotFound)
	}
	now := e.nowString()
	id, err := e.Repo.InsertDepartmentChild(ctx, parentID, name, description, now)
	if err != nil {
		return domain.DepartmentChild{}, err
	}
	return domain.DepartmentChild{ChildDeptID: id, ParentDeptID: parentID, Name: name, Description: description, CreatedAt: now}, nil
}
