package models

import "time"

// Page bounds a list query. A zero Limit returns everything after Offset.
type Page struct {
	Offset int
	Limit  int
}

// TaskResponse is the externally visible shape of a task.
type TaskResponse struct {
	TaskID    string     `json:"taskId"`
	Name      string     `json:"name"`
	Memo      string     `json:"memo"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Priority  int        `json:"priority"`
	Check     bool       `json:"check"`
	Archive   bool       `json:"archive"`
}

// NewTaskResponse converts a stored task, defaulting priority to 0.
func NewTaskResponse(t Task) TaskResponse {
	priority := 0
	if t.Priority != nil {
		priority = *t.Priority
	}
	return TaskResponse{
		TaskID:    t.ID,
		Name:      t.Name,
		Memo:      t.Memo,
		StartDate: t.StartDate,
		EndDate:   t.EndDate,
		Priority:  priority,
		Check:     t.Check,
		Archive:   t.Archive,
	}
}

// SearchTasksResponse wraps a list of tasks.
type SearchTasksResponse struct {
	TaskList []TaskResponse `json:"taskList"`
}

// NewSearchTasksResponse converts tasks in order. The list is never nil.
func NewSearchTasksResponse(tasks []Task) SearchTasksResponse {
	list := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		list = append(list, NewTaskResponse(t))
	}
	return SearchTasksResponse{TaskList: list}
}

// TaskCreateRequest carries the fields of a new task.
type TaskCreateRequest struct {
	ParentID  string     `json:"parentId"`
	Name      string     `json:"name"`
	Memo      string     `json:"memo"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Priority  *int       `json:"priority"`
}

// TaskUpdateRequest replaces the content fields of a task.
// A nil Check keeps the stored value.
type TaskUpdateRequest struct {
	TaskID    string     `json:"taskId"`
	Name      string     `json:"name"`
	Memo      *string    `json:"memo"`
	StartDate *time.Time `json:"startDate"`
	EndDate   *time.Time `json:"endDate"`
	Priority  *int       `json:"priority"`
	Check     *bool      `json:"check"`
}

type TaskDeleteRequest struct {
	TaskID  string `json:"taskId"`
	Cascade bool   `json:"cascade"`
}

type TaskDeleteResponse struct {
	TaskID       string `json:"taskId"`
	DeletedNodes int    `json:"deletedNodes"`
}

type EmptyTrashResponse struct {
	DeletedNodes int `json:"deletedNodes"`
}

// TaskRelocateRequest is shared by restore and move.
type TaskRelocateRequest struct {
	TaskID   string `json:"taskId"`
	ParentID string `json:"parentId"`
}

type TaskRestoreResponse struct {
	TaskID        string `json:"taskId"`
	ParentID      string `json:"parentId"`
	RestoredNodes int    `json:"restoredNodes"`
}

type TaskMoveResponse struct {
	TaskID     string `json:"taskId"`
	ParentID   string `json:"parentId"`
	MovedNodes int    `json:"movedNodes"`
}

type TaskArchiveRequest struct {
	TaskID string `json:"taskId"`
}

type TaskArchiveResponse struct {
	TaskID        string `json:"taskId"`
	ArchivedNodes int    `json:"archivedNodes"`
}

// TaskUnarchiveRequest restores to the remembered parent when ParentID is nil.
type TaskUnarchiveRequest struct {
	TaskID   string  `json:"taskId"`
	ParentID *string `json:"parentId"`
}

type TaskUnarchiveResponse struct {
	TaskID          string `json:"taskId"`
	ParentID        string `json:"parentId"`
	UnarchivedNodes int    `json:"unarchivedNodes"`
}

// TaskSearchByNameRequest searches one container; an empty Container means root.
type TaskSearchByNameRequest struct {
	Container string `json:"container"`
	Name      string `json:"name"`
	Offset    int    `json:"offset"`
	Limit     int    `json:"limit"`
}

// TaskRoute is one step of the path from a task up to its container.
type TaskRoute struct {
	TaskID string `json:"taskId"`
	Name   string `json:"name"`
	Order  int    `json:"order"`
}

// TaskRouteResponse lists the path outermost ancestor first, the task itself last with order 0.
type TaskRouteResponse struct {
	Routes []TaskRoute `json:"routes"`
}

type UserResponse struct {
	Email string `json:"email"`
}
