package domain

import "time"

// Issue status values. The numeric encoding is shared with the dashboard.
const (
	IssueStatusOpen      = 0
	IssueStatusCompleted = 1
)

// Issue represents a tracked task, either a draft under construction in a
// chat session or a persisted record.
type Issue struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Type            string    `json:"type,omitempty"`
	Estimation      int       `json:"estimation"`
	DueDate         time.Time `json:"due_date"`
	Assignee        int64     `json:"assignee"`
	SprintID        int64     `json:"sprint_id,omitempty"`
	Team            string    `json:"team,omitempty"`
	Status          int       `json:"status"`
	HoursWorked     int       `json:"hours_worked"`
	CompletionNotes string    `json:"completion_notes,omitempty"`
}

// IsCompleted reports whether the issue has been completed.
func (i *Issue) IsCompleted() bool {
	return i.Status == IssueStatusCompleted
}

// IssueStats summarizes a developer's workload.
type IssueStats struct {
	Completed  []*Issue
	Pending    []*Issue
	TotalHours int
}

// ComputeIssueStats partitions issues into completed and pending and sums
// hours worked over the completed ones.
func ComputeIssueStats(issues []*Issue) IssueStats {
	var stats IssueStats
	for _, issue := range issues {
		if issue.IsCompleted() {
			stats.Completed = append(stats.Completed, issue)
			stats.TotalHours += issue.HoursWorked
		} else {
			stats.Pending = append(stats.Pending, issue)
		}
	}
	return stats
}
