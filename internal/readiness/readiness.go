// Package readiness computes the weighted checklist completion score for a
// project. It is the single implementation of the formula: the save path in
// the engine and every reporting path call Compute on the raw items rather
// than trusting a stored score.
package readiness

import "math"

const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusBlocked    = "blocked"
	StatusDone       = "done"
)

// Task is one entry of the fixed weighted schedule. The schedule is
// configuration, not user data; all weights are expected to sum to 100.
type Task struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Category string `json:"category" yaml:"category"`
	Weight   int    `json:"weight" yaml:"weight"`
}

// Item is the per-project state of one schedule task.
type Item struct {
	Status  string  `json:"status"`
	OwnerID *int    `json:"owner_id,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

// StateItem is an item joined back to its task id for the stored snapshot.
type StateItem struct {
	TaskID  string  `json:"task_id"`
	Status  string  `json:"status"`
	OwnerID *int    `json:"owner_id,omitempty"`
	DueDate *string `json:"due_date,omitempty"`
	Notes   string  `json:"notes,omitempty"`
}

// State is the derived checklist snapshot persisted on the project.
type State struct {
	Items           []StateItem `json:"items"`
	TotalWeight     int         `json:"total_weight"`
	CompletedWeight float64     `json:"completed_weight"`
	Percent         int         `json:"percent"`
	CompletedItems  int         `json:"completed_items"`
	RemainingItems  int         `json:"remaining_items"`
}

// DefaultSchedule returns the reference five-task schedule.
func DefaultSchedule() []Task {
	return []Task{
		{ID: "scope", Title: "Scope agreed", Category: "planning", Weight: 25},
		{ID: "staffing", Title: "Team staffed", Category: "team", Weight: 20},
		{ID: "budget", Title: "Budget signed off", Category: "planning", Weight: 20},
		{ID: "risk", Title: "Risk review held", Category: "governance", Weight: 15},
		{ID: "kickoff", Title: "Kickoff scheduled", Category: "delivery", Weight: 20},
	}
}

// statusValue maps a checklist status to its completion fraction. Unknown
// strings score zero; checklist state often arrives from an untrusted client
// and must never produce an error here.
func statusValue(status string) float64 {
	switch status {
	case StatusDone:
		return 1
	case StatusInProgress:
		return 0.5
	default:
		return 0
	}
}

// NormalizeStatus collapses unknown statuses to not_started.
func NormalizeStatus(status string) string {
	switch status {
	case StatusNotStarted, StatusInProgress, StatusBlocked, StatusDone:
		return status
	default:
		return StatusNotStarted
	}
}

// Compute derives the checklist state from raw items and the schedule. Items
// missing from the map default to not_started. The function is pure: same
// input, same output, no side effects.
func Compute(items map[string]Item, schedule []Task) State {
	st := State{Items: make([]StateItem, 0, len(schedule))}
	for _, task := range schedule {
		item := items[task.ID]
		status := NormalizeStatus(item.Status)
		st.TotalWeight += task.Weight
		st.CompletedWeight += float64(task.Weight) * statusValue(status)
		if status == StatusDone {
			st.CompletedItems++
		}
		st.Items = append(st.Items, StateItem{
			TaskID:  task.ID,
			Status:  status,
			OwnerID: item.OwnerID,
			DueDate: item.DueDate,
			Notes:   item.Notes,
		})
	}
	st.RemainingItems = len(schedule) - st.CompletedItems
	if st.TotalWeight > 0 {
		st.Percent = int(math.Round(st.CompletedWeight / float64(st.TotalWeight) * 100))
	}
	return st
}

// ItemsByTask converts a stored snapshot back into the Compute input shape.
func ItemsByTask(items []StateItem) map[string]Item {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		m[it.TaskID] = Item{Status: it.Status, OwnerID: it.OwnerID, DueDate: it.DueDate, Notes: it.Notes}
	}
	return m
}
