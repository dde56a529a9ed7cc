package engine

import (
	"context"

	"staffdesk/internal/approval"
)

// ProjectReadinessRow is one project in the readiness report. Percent
// is recomputed from the raw checklist items, not read from the stored
// score, since stored scores drift when schedule weights change.
type ProjectReadinessRow struct {
	ProjectID      int    `json:"project_id"`
	ProjectName    string `json:"project_name"`
	ApprovalStatus string `json:"approval_status"`
	StoredScore    int    `json:"stored_score"`
	ComputedScore  int    `json:"computed_score"`
	CompletedItems int    `json:"completed_items"`
	RemainingItems int    `json:"remaining_items"`
}

// ReadinessReport aggregates readiness across projects.
type ReadinessReport struct {
	Projects       []ProjectReadinessRow `json:"projects"`
	AveragePercent int                   `json:"average_percent"`
	ByApproval     map[string]int        `json:"by_approval"`
	DriftedCount   int                   `json:"drifted_count"`
}

// Readiness builds the report over all projects, optionally filtered
// by approval status.
func (e Engine) Readiness(ctx context.Context, status string) (ReadinessReport, error) {
	projects, err := e.Repo.ListProjects(ctx, status)
	if err != nil {
		return ReadinessReport{}, err
	}
	report := ReadinessReport{ByApproval: map[string]int{}}
	total := 0
	for _, p := range projects {
		state, err := e.checklistStateOf(p)
		if err != nil {
			return ReadinessReport{}, err
		}
		row := ProjectReadinessRow{
			ProjectID:      p.ProjectID,
			ProjectName:    p.ProjectName,
			ApprovalStatus: approval.Normalize(p.ApprovalStatus),
			StoredScore:    p.ReadinessScore,
			ComputedScore:  state.Percent,
			CompletedItems: state.CompletedItems,
			RemainingItems: state.RemainingItems,
		}
		if row.StoredScore != row.ComputedScore {
			report.DriftedCount++
		}
		report.ByApproval[row.ApprovalStatus]++
		report.Projects = append(report.Projects, row)
		total += row.ComputedScore
	}
	if len(report.Projects) > 0 {
		report.AveragePercent = (total + len(report.Projects)/2) / len(report.Projects)
	}
	return report, nil
}

// AllocationRow is one employee in the allocation report.
type AllocationRow struct {
	EmpID         int    `json:"emp_id"`
	Name          string `json:"name"`
	Assignments   int    `json:"assignments"`
	TotalPct      int    `json:"total_pct"`
	Overallocated bool   `json:"overallocated"`
}

// Allocations sums active allocation percentages per employee and
// flags anyone over 100.
func (e Engine) Allocations(ctx context.Context) ([]AllocationRow, error) {
	employees, err := e.Repo.ListEmployees(ctx, nil, false)
	if err != nil {
		return nil, err
	}
	assignments, err := e.Repo.ListAssignments(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	byEmp := map[int]*AllocationRow{}
	var rows []AllocationRow
	for _, emp := range employees {
		byEmp[emp.EmployeeID] = &AllocationRow{EmpID: emp.EmployeeID, Name: emp.Name}
	}
	for _, a := range assignments {
		if !a.IsActive {
			continue
		}
		row, ok := byEmp[a.EmpID]
		if !ok {
			continue
		}
		row.Assignments++
		row.TotalPct += a.AllocationPct
	}
	for _, emp := range employees {
		row := byEmp[emp.EmployeeID]
		row.Overallocated = row.TotalPct > 100
		rows = append(rows, *row)
	}
	return rows, nil
}
