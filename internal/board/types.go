package board

import "time"

// Task status values accepted by the board. Anything else is rejected so
// tasks never disappear from the column views.
const (
	TaskStatusTodo       = "todo"
	TaskStatusInProgress = "in-progress"
	TaskStatusReview     = "review"
	TaskStatusDone       = "done"
)

// Task is a single card on a project board.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	Date        string    `json:"date"`
	FeatureFile string    `json:"featureFile,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Project owns an ordered list of tasks plus optional docs and a path to the
// working tree browsed by the file API.
type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Docs        string    `json:"docs"`
	Color       string    `json:"color"`
	ProjectPath string    `json:"projectPath,omitempty"`
	Tasks       []*Task   `json:"tasks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Data is the on-disk shape of tasks.json.
type Data struct {
	Projects []*Project `json:"projects"`
}

// Stats summarizes the board for the status endpoint.
type Stats struct {
	Projects      int           `json:"projects"`
	TotalTasks    int           `json:"totalTasks"`
	TasksByStatus TasksByStatus `json:"tasksByStatus"`
}

type TasksByStatus struct {
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
}

// ProjectUpdate carries a partial project update; nil fields are left alone.
type ProjectUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Docs        *string `json:"docs"`
	Color       *string `json:"color"`
	ProjectPath *string `json:"projectPath"`
}

// TaskUpdate carries a partial task update; nil fields are left alone.
type TaskUpdate struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Date        *string `json:"date"`
	FeatureFile *string `json:"featureFile"`
}
