package domain

type Employee struct {
	EmployeeID int      `json:"employee_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	DeptID     *int     `json:"dept_id,omitempty"`
	Role       string   `json:"role,omitempty"`
	ContactNo  string   `json:"contact_no,omitempty"`
	IsActive   bool     `json:"is_active"`
	Location   string   `json:"location,omitempty"`
	About      string   `json:"about,omitempty"`
	Skills     []string `json:"skills,omitempty"`
	AvatarURL  string   `json:"avatar_url,omitempty"`
	CreatedAt  string   `json:"created_at" format:"date-time"`
	UpdatedAt  string   `json:"updated_at" format:"date-time"`
}

type DepartmentParent struct {
	DepartmentID int    `json:"department_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type DepartmentChild struct {
	ChildDeptID  int    `json:"child_dept_id"`
	ParentDeptID int    `json:"parent_dept_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type ProjectOverview struct {
	Summary    string   `json:"summary,omitempty"`
	Objectives []string `json:"objectives,omitempty"`
}

// Project is the aggregate root. The approval fields, the checklist snapshot
// and the append-only sub-collections (history, timeline, reviewer comments)
// all hang off one project and have no lifecycle of their own.
type Project struct {
	ProjectID   int             `json:"project_id"`
	ProjectName string          `json:"project_name"`
	ClientName  string          `json:"client_name,omitempty"`
	StartDate   *string         `json:"start_date,omitempty" format:"date"`
	EndDate     *string         `json:"end_date,omitempty" format:"date"`
	LeadByEmpID *int            `json:"lead_by_emp_id,omitempty"`
	Status      string          `json:"status" enum:"draft,active,completed,on_hold"`
	Progress    int             `json:"progress"`
	Overview    ProjectOverview `json:"overview"`

	ApprovalStatus      string  `json:"approval_status" enum:"draft,in_review,approved,rejected"`
	ApprovalRequestedAt *string `json:"approval_requested_at,omitempty" format:"date-time"`
	ApprovalRequestedBy *int    `json:"approval_requested_by,omitempty"`
	ApprovalResolvedAt  *string `json:"approval_resolved_at,omitempty" format:"date-time"`
	ApprovalResolvedBy  *int    `json:"approval_resolved_by,omitempty"`
	ApprovalReason      string  `json:"approval_reason,omitempty"`

	ReadinessScore     int     `json:"readiness_score"`
	ChecklistJSON      *string `json:"-"`
	ChecklistUpdatedAt string  `json:"checklist_updated_at,omitempty" format:"date-time"`

	CreatedAt string `json:"created_at" format:"date-time"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Assignment struct {
	EmpProjectID  int    `json:"emp_project_id"`
	ProjectID     int    `json:"project_id"`
	EmpID         int    `json:"emp_id"`
	Role          string `json:"role,omitempty"`
	IsActive      bool   `json:"is_active"`
	AllocationPct int    `json:"allocation_pct"`
	AssignedDate  string `json:"assigned_date" format:"date"`
	CreatedAt     string `json:"created_at" format:"date-time"`
	UpdatedAt     string `json:"updated_at" format:"date-time"`
}

// StatusHistoryEntry is one row of the append-only approval audit log.
// Rows are written once per transition and never mutated or deleted.
type StatusHistoryEntry struct {
	ID             int64  `json:"id"`
	ProjectID      int    `json:"project_id"`
	Status         string `json:"status" enum:"draft,in_review,approved,rejected"`
	PreviousStatus string `json:"previous_status" enum:"draft,in_review,approved,rejected"`
	ChangedAt      string `json:"changed_at" format:"date-time"`
	ChangedBy      *int   `json:"changed_by,omitempty"`
	ChangedByName  string `json:"changed_by_name,omitempty"`
	Comment        string `json:"comment,omitempty"`
}

// TimelineEntry is the human-readable project event log shared by approval
// transitions and reviewer-comment events.
type TimelineEntry struct {
	ID         int64   `json:"id"`
	ProjectID  int     `json:"project_id"`
	Label      string  `json:"label"`
	State      string  `json:"state" enum:"completed,in_progress,blocked,upcoming"`
	OccurredAt string  `json:"occurred_at" format:"date-time"`
	DueAt      *string `json:"due_at,omitempty" format:"date"`
}

type ReviewerComment struct {
	ID           string  `json:"id"`
	ProjectID    int     `json:"project_id"`
	Section      string  `json:"section" enum:"overview,team,contact,approval"`
	Comment      string  `json:"comment"`
	ReviewerID   *int    `json:"reviewer_id,omitempty"`
	ReviewerName string  `json:"reviewer_name,omitempty"`
	Severity     string  `json:"severity" enum:"info,warning,critical"`
	Resolved     bool    `json:"resolved"`
	ResolvedAt   *string `json:"resolved_at,omitempty" format:"date-time"`
	ResolvedBy   *int    `json:"resolved_by,omitempty"`
	CreatedAt    string  `json:"created_at" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
