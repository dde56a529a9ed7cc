package staffdesksdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal Staffdesk HTTP API client.
type Client struct {
	BaseURL     string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Employee represents the API employee model (partial).
type Employee struct {
	EmployeeID int      `json:"employee_id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	DeptID     *int     `json:"dept_id,omitempty"`
	Role       string   `json:"role,omitempty"`
	IsActive   bool     `json:"is_active"`
	Skills     []string `json:"skills,omitempty"`
}

// Project represents the API project model (partial).
type Project struct {
	ProjectID           int     `json:"project_id"`
	ProjectName         string  `json:"project_name"`
	ClientName          string  `json:"client_name,omitempty"`
	Status              string  `json:"status"`
	ApprovalStatus      string  `json:"approval_status"`
	ApprovalRequestedAt *string `json:"approval_requested_at,omitempty"`
	ApprovalResolvedAt  *string `json:"approval_resolved_at,omitempty"`
	ApprovalReason      string  `json:"approval_reason,omitempty"`
	ReadinessScore      int     `json:"readiness_score"`
}

// ApprovalResult is the outcome of an approval action. Changed is false
// when the action was a no-op for the current status.
type ApprovalResult struct {
	Changed bool    `json:"changed"`
	Project Project `json:"project"`
}

// ChecklistItem is one checklist entry keyed by task id.
type ChecklistItem struct {
	Status  string  `json:"status"`
	OwnerID *int    `json:"owner_id,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

// ChecklistState is the scored checklist snapshot.
type ChecklistState struct {
	Items           []ChecklistStateItem `json:"items"`
	TotalWeight     int                  `json:"total_weight"`
	CompletedWeight float64              `json:"completed_weight"`
	Percent         int                  `json:"percent"`
	CompletedItems  int                  `json:"completed_items"`
	RemainingItems  int                  `json:"remaining_items"`
}

type ChecklistStateItem struct {
	TaskID  string  `json:"task_id"`
	Status  string  `json:"status"`
	OwnerID *int    `json:"owner_id,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

// Comment is a reviewer comment on a project section.
type Comment struct {
	ID           string  `json:"id"`
	ProjectID    int     `json:"project_id"`
	Section      string  `json:"section"`
	Comment      string  `json:"comment"`
	Severity     string  `json:"severity"`
	ReviewerName string  `json:"reviewer_name,omitempty"`
	Resolved     bool    `json:"resolved"`
	ResolvedAt   *string `json:"resolved_at,omitempty"`
	CreatedAt    string  `json:"created_at"`
}

// HistoryEntry is one approval status transition.
type HistoryEntry struct {
	ID             int64  `json:"id"`
	ProjectID      int    `json:"project_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status"`
	ChangedAt      string `json:"changed_at"`
	ChangedByName  string `json:"changed_by_name,omitempty"`
	Comment        string `json:"comment,omitempty"`
}

// TimelineEntry is one project timeline event.
type TimelineEntry struct {
	ID         int64   `json:"id"`
	ProjectID  int     `json:"project_id"`
	Label      string  `json:"label"`
	State      string  `json:"state"`
	OccurredAt string  `json:"occurred_at"`
	DueAt      *string `json:"due_at,omitempty"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// CreateEmployee creates an employee.
func (c *Client) CreateEmployee(ctx context.Context, name, email string, deptID *int) (Employee, error) {
	body := map[string]any{
		"name":  name,
		"email": email,
	}
	if deptID != nil {
		body["dept_id"] = *deptID
	}
	var resp Employee
	err := c.do(ctx, http.MethodPost, "v0/employees", body, &resp)
	return resp, err
}

// ListEmployees returns employees, optionally filtered by department.
func (c *Client) ListEmployees(ctx context.Context, deptID *int) ([]Employee, error) {
	endpoint := "v0/employees"
	if deptID != nil {
		endpoint = fmt.Sprintf("%s?dept_id=%d", endpoint, *deptID)
	}
	var resp []Employee
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// CreateProject creates a project in approval status draft.
func (c *Client) CreateProject(ctx context.Context, name, client string) (Project, error) {
	body := map[string]any{
		"project_name": name,
		"client_name":  client,
	}
	var resp Project
	err := c.do(ctx, http.MethodPost, "v0/projects", body, &resp)
	return resp, err
}

// ListProjects returns projects, optionally filtered by approval status.
func (c *Client) ListProjects(ctx context.Context, approvalStatus string) ([]Project, error) {
	endpoint := "v0/projects"
	if approvalStatus != "" {
		endpoint = fmt.Sprintf("%s?status=%s", endpoint, url.QueryEscape(approvalStatus))
	}
	var resp []Project
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Approval runs an approval action. Reject requires a comment.
func (c *Client) Approval(ctx context.Context, projectID int, action, comment string) (ApprovalResult, error) {
	body := map[string]any{
		"action":  action,
		"comment": comment,
	}
	var resp ApprovalResult
	endpoint := fmt.Sprintf("v0/projects/%d/approval", projectID)
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// UpdateChecklist replaces the checklist items and returns the new state.
func (c *Client) UpdateChecklist(ctx context.Context, projectID int, items map[string]ChecklistItem) (ChecklistState, error) {
	body := map[string]any{"items": items}
	var resp ChecklistState
	endpoint := fmt.Sprintf("v0/projects/%d/checklist", projectID)
	err := c.do(ctx, http.MethodPut, endpoint, body, &resp)
	return resp, err
}

// Checklist returns the current checklist state.
func (c *Client) Checklist(ctx context.Context, projectID int) (ChecklistState, error) {
	var resp ChecklistState
	endpoint := fmt.Sprintf("v0/projects/%d/checklist", projectID)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// AddComment attaches a reviewer comment to a project section.
func (c *Client) AddComment(ctx context.Context, projectID int, section, comment, severity string) (Comment, error) {
	body := map[string]any{
		"section":  section,
		"comment":  comment,
		"severity": severity,
	}
	var resp Comment
	endpoint := fmt.Sprintf("v0/projects/%d/comments", projectID)
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// ResolveComment resolves or reopens a comment. Both are idempotent.
func (c *Client) ResolveComment(ctx context.Context, commentID string, resolved bool) (Comment, error) {
	body := map[string]any{"resolved": resolved}
	var resp Comment
	endpoint := fmt.Sprintf("v0/comments/%s/resolve", url.PathEscape(commentID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// History returns the approval status history, newest first.
func (c *Client) History(ctx context.Context, projectID int) ([]HistoryEntry, error) {
	var resp []HistoryEntry
	endpoint := fmt.Sprintf("v0/projects/%d/history", projectID)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Timeline returns the project timeline, oldest first.
func (c *Client) Timeline(ctx context.Context, projectID int) ([]TimelineEntry, error) {
	var resp []TimelineEntry
	endpoint := fmt.Sprintf("v0/projects/%d/timeline", projectID)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
