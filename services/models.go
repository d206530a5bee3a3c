// Package services contains the thin domain layers on top of the API client:
// task CRUD with request cancellation and debounced update streams, analytics
// dashboards with graceful degradation, and the auth session lifecycle.
package services

import (
	"encoding/json"
	"strconv"
	"time"
)

// TaskStatus is the workflow column a task sits in.
type TaskStatus string

const (
	StatusBacklog    TaskStatus = "BACKLOG"
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusInReview   TaskStatus = "IN_REVIEW"
	StatusDone       TaskStatus = "DONE"
)

// TaskPriority orders tasks within a column.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "LOW"
	PriorityMedium TaskPriority = "MEDIUM"
	PriorityHigh   TaskPriority = "HIGH"
	PriorityUrgent TaskPriority = "URGENT"
)

// Task is the core work item.
type Task struct {
	ID          string       `json:"id"`
	ProjectID   string       `json:"projectId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority,omitempty"`
	AssigneeID  string       `json:"assigneeId,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt,omitempty"`
	UpdatedAt   time.Time    `json:"updatedAt,omitempty"`
}

// TaskInput is the payload for creating or updating a task. New tasks start
// in BACKLOG when no status is given.
type TaskInput struct {
	ProjectID   string       `json:"projectId"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status,omitempty"`
	Priority    TaskPriority `json:"priority,omitempty"`
	AssigneeID  string       `json:"assigneeId,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
}

// TaskFilter narrows a task listing. Its JSON form doubles as the signature
// that keys in-flight request cancellation.
type TaskFilter struct {
	ProjectID  string       `json:"projectId,omitempty"`
	Status     TaskStatus   `json:"status,omitempty"`
	Priority   TaskPriority `json:"priority,omitempty"`
	AssigneeID string       `json:"assigneeId,omitempty"`
	Search     string       `json:"search,omitempty"`
	Page       int          `json:"page,omitempty"`
	PageSize   int          `json:"pageSize,omitempty"`
}

// signature returns the canonical key identifying this filter.
func (f TaskFilter) signature() string {
	b, _ := json.Marshal(f)
	return string(b)
}

func (f TaskFilter) params() map[string]string {
	p := map[string]string{}
	if f.ProjectID != "" {
		p["projectId"] = f.ProjectID
	}
	if f.Status != "" {
		p["status"] = string(f.Status)
	}
	if f.Priority != "" {
		p["priority"] = string(f.Priority)
	}
	if f.AssigneeID != "" {
		p["assigneeId"] = f.AssigneeID
	}
	if f.Search != "" {
		p["search"] = f.Search
	}
	if f.Page > 0 {
		p["page"] = strconv.Itoa(f.Page)
	}
	if f.PageSize > 0 {
		p["pageSize"] = strconv.Itoa(f.PageSize)
	}
	return p
}

// TaskEventKind labels a task update notification.
type TaskEventKind string

const (
	TaskCreated TaskEventKind = "created"
	TaskUpdated TaskEventKind = "updated"
	TaskDeleted TaskEventKind = "deleted"
)

// TaskEvent is one debounced update delivered to subscribers.
type TaskEvent struct {
	Kind TaskEventKind
	Task Task
}

// TokenPair is the result of login/refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// PerformanceMetrics mirrors the analytics service's performance report.
type PerformanceMetrics struct {
	ProjectID      string  `json:"projectId"`
	Throughput     float64 `json:"throughput"`
	CycleTimeHours float64 `json:"cycleTimeHours"`
	CompletionRate float64 `json:"completionRate"`
}

// ResourceMetrics mirrors the analytics service's utilization report.
type ResourceMetrics struct {
	ProjectID   string  `json:"projectId"`
	Utilization float64 `json:"utilization"`
	Capacity    float64 `json:"capacity"`
}

// Predictions is the optional forward-looking slice of the dashboard;
// fetch failures degrade to a nil field rather than failing the dashboard.
type Predictions struct {
	ProjectID       string     `json:"projectId"`
	DelayRisk       float64    `json:"delayRisk"`
	ForecastEndDate *time.Time `json:"forecastEndDate,omitempty"`
}

// Dashboard aggregates the analytics views for one project.
type Dashboard struct {
	ProjectID   string              `json:"projectId"`
	Performance *PerformanceMetrics `json:"performance,omitempty"`
	Resources   *ResourceMetrics    `json:"resources,omitempty"`
	Predictions *Predictions        `json:"predictions,omitempty"`
	FetchedAt   time.Time           `json:"fetchedAt"`
}
