package server

import (
	"fmt"
	"time"

	"staffdesk/internal/domain"
	"staffdesk/internal/readiness"
)

type CreateEmployeeRequest struct {
	Name      string   `json:"name" example:"Asha Anand"`
	Email     string   `json:"email" format:"email"`
	DeptID    *int     `json:"dept_id,omitempty"`
	Role      string   `json:"role,omitempty"`
	ContactNo string   `json:"contact_no,omitempty"`
	Location  string   `json:"location,omitempty"`
	About     string   `json:"about,omitempty"`
	Skills    []string `json:"skills,omitempty"`
	AvatarURL string   `json:"avatar_url,omitempty"`
}

type UpdateEmployeeRequest struct {
	Name      *string   `json:"name,omitempty"`
	Email     *string   `json:"email,omitempty"`
	DeptID    *int      `json:"dept_id,omitempty"`
	Role      *string   `json:"role,omitempty"`
	ContactNo *string   `json:"contact_no,omitempty"`
	IsActive  *bool     `json:"is_active,omitempty"`
	Location  *string   `json:"location,omitempty"`
	About     *string   `json:"about,omitempty"`
	Skills    *[]string `json:"skills,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
}

type CreateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CreateProjectRequest struct {
	ProjectName string                 `json:"project_name"`
	ClientName  string                 `json:"client_name,omitempty"`
	StartDate   *string                `json:"start_date,omitempty" format:"date"`
	EndDate     *string                `json:"end_date,omitempty" format:"date"`
	LeadByEmpID *int                   `json:"lead_by_emp_id,omitempty"`
	Status      string                 `json:"status,omitempty" enum:"draft,active,completed,on_hold"`
	Overview    domain.ProjectOverview `json:"overview,omitempty"`
}

type UpdateProjectRequest struct {
	ProjectName *string                 `json:"project_name,omitempty"`
	ClientName  *string                 `json:"client_name,omitempty"`
	StartDate   *string                 `json:"start_date,omitempty" format:"date"`
	EndDate     *string                 `json:"end_date,omitempty" format:"date"`
	LeadByEmpID *int                    `json:"lead_by_emp_id,omitempty"`
	Status      *string                 `json:"status,omitempty" enum:"draft,active,completed,on_hold"`
	Progress    *int                    `json:"progress,omitempty" minimum:"0" maximum:"100"`
	Overview    *domain.ProjectOverview `json:"overview,omitempty"`
}

type ApprovalRequest struct {
	Action    string `json:"action" example:"request"`
	ActorID   *int   `json:"actor_id,omitempty"`
	ActorName string `json:"actor_name,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

type ApprovalResponse struct {
	Changed bool           `json:"changed"`
	Project domain.Project `json:"project"`
}

// ChecklistItemRequest is one checklist entry as sent by the client.
// Status is free-form here; unknown values score as not_started.
type ChecklistItemRequest struct {
	Status  string  `json:"status" example:"in_progress"`
	OwnerID *int    `json:"owner_id,omitempty"`
	DueDate *string `json:"due_date,omitempty" format:"date"`
	Notes   string  `json:"notes,omitempty"`
}

type UpdateChecklistRequest struct {
	Items map[string]ChecklistItemRequest `json:"items"`
}

// FieldError is one rejected field in a checklist payload.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// validateChecklist screens the raw payload and returns either the
// parsed items or the full list of field errors, never a partial mix.
func validateChecklist(req UpdateChecklistRequest) (map[string]readiness.Item, []FieldError) {
	var errs []FieldError
	items := make(map[string]readiness.Item, len(req.Items))
	for taskID, item := range req.Items {
		if taskID == "" {
			errs = append(errs, FieldError{Field: "items", Reason: "empty task id"})
			continue
		}
		if item.DueDate != nil && *item.DueDate != "" {
			if _, err := time.Parse("2006-01-02", *item.DueDate); err != nil {
				errs = append(errs, FieldError{
					Field:  fmt.Sprintf("items.%s.due_date", taskID),
					Reason: "must be YYYY-MM-DD",
				})
				continue
			}
		}
		if item.OwnerID != nil && *item.OwnerID <= 0 {
			errs = append(errs, FieldError{
				Field:  fmt.Sprintf("items.%s.owner_id", taskID),
				Reason: "must be positive",
			})
			continue
		}
		items[taskID] = readiness.Item{
			Status:  readiness.NormalizeStatus(item.Status),
			OwnerID: item.OwnerID,
			DueDate: item.DueDate,
			Notes:   item.Notes,
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return items, nil
}

type CreateCommentRequest struct {
	Section  string `json:"section" enum:"overview,team,contact,approval"`
	Comment  string `json:"comment"`
	Severity string `json:"severity,omitempty" enum:"info,warning,critical"`
}

type ResolveCommentRequest struct {
	Resolved bool `json:"resolved"`
}

type CreateAssignmentRequest struct {
	ProjectID     int    `json:"project_id"`
	EmpID         int    `json:"emp_id"`
	Role          string `json:"role,omitempty"`
	AllocationPct int    `json:"allocation_pct" minimum:"1" maximum:"100"`
	AssignedDate  string `json:"assigned_date,omitempty" format:"date"`
}
