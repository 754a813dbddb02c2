package controllers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"taskforest/app/errors"
	"taskforest/app/models"
	"taskforest/app/services"
)

// TaskController handles HTTP requests for tasks.
type TaskController struct {
	Service *services.TaskService
	Logger  *zap.Logger
}

// NewTaskController creates a new TaskController.
func NewTaskController(service *services.TaskService, logger *zap.Logger) *TaskController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskController{Service: service, Logger: logger}
}

// serve runs fn for the request's user and writes its result as JSON.
func (c *TaskController) serve(w http.ResponseWriter, r *http.Request, fn func(user string) (any, error)) {
	user, err := currentUser(r)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	resp, err := fn(user)
	if err != nil {
		writeError(w, r, c.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// FindRoots handles GET /tasks/roots.
func (c *TaskController) FindRoots(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		return c.Service.FindRoots(r.Context(), user)
	})
}

// FindByID handles GET /tasks/{taskId}.
func (c *TaskController) FindByID(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]
	c.serve(w, r, func(user string) (any, error) {
		return c.Service.FindByID(r.Context(), user, taskID)
	})
}

// FindChildren handles GET /tasks/{taskId}/subtasks.
func (c *TaskController) FindChildren(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]
	c.serve(w, r, func(user string) (any, error) {
		return c.Service.FindChildren(r.Context(), user, taskID)
	})
}

// GetRoutes handles GET /tasks/{taskId}/routes.
func (c *TaskController) GetRoutes(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["taskId"]
	c.serve(w, r, func(user string) (any, error) {
		return c.Service.GetRoutes(r.Context(), user, taskID)
	})
}

// CreateTask handles POST /tasks.
func (c *TaskController) CreateTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskCreateRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.CreateTask(r.Context(), user, req)
	})
}

// UpdateTask handles PATCH /tasks.
func (c *TaskController) UpdateTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskUpdateRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.UpdateTask(r.Context(), user, req)
	})
}

// DeleteTask handles POST /tasks/delete.
func (c *TaskController) DeleteTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskDeleteRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.DeleteTask(r.Context(), user, req.TaskID, req.Cascade)
	})
}

// FindByDateRange handles GET /tasks?startDate=&endDate=.
func (c *TaskController) FindByDateRange(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		q := r.URL.Query()
		start, err := parseDate("startDate", q.Get("startDate"))
		if err != nil {
			return nil, err
		}
		end, err := parseDate("endDate", q.Get("endDate"))
		if err != nil {
			return nil, err
		}
		return c.Service.FindByDateRange(r.Context(), user, start, end)
	})
}

// FindAll handles GET /tasks/all.
func (c *TaskController) FindAll(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		page, err := pageFromQuery(r)
		if err != nil {
			return nil, err
		}
		return c.Service.FindAll(r.Context(), user, page)
	})
}

// RestoreTask handles POST /tasks/restore.
func (c *TaskController) RestoreTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskRelocateRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.RestoreTask(r.Context(), user, req.TaskID, req.ParentID)
	})
}

// DropTask handles DELETE /tasks/drop.
func (c *TaskController) DropTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskDeleteRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.DropTask(r.Context(), user, req.TaskID, req.Cascade)
	})
}

// DropAll handles DELETE /tasks/drop/all.
func (c *TaskController) DropAll(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		return c.Service.DropAll(r.Context(), user)
	})
}

// MoveTask handles POST /tasks/move.
func (c *TaskController) MoveTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskRelocateRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.MoveTask(r.Context(), user, req.TaskID, req.ParentID)
	})
}

// ArchiveTask handles POST /tasks/archive.
func (c *TaskController) ArchiveTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskArchiveRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.ArchiveTask(r.Context(), user, req.TaskID)
	})
}

// UnarchiveTask handles POST /tasks/unarchive.
func (c *TaskController) UnarchiveTask(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskUnarchiveRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		return c.Service.UnarchiveTask(r.Context(), user, req.TaskID, req.ParentID)
	})
}

// SearchByName handles POST /tasks/search.
func (c *TaskController) SearchByName(w http.ResponseWriter, r *http.Request) {
	c.serve(w, r, func(user string) (any, error) {
		var req models.TaskSearchByNameRequest
		if err := decode(r, &req); err != nil {
			return nil, err
		}
		page := models.Page{Offset: req.Offset, Limit: req.Limit}
		return c.Service.SearchByName(r.Context(), user, req.Container, req.Name, page)
	})
}

// parseDate accepts a calendar date or an RFC 3339 timestamp.
func parseDate(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "%s is required", name)
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New(errors.ErrCodeInvalidInput, "%s %q is not a date", name, raw)
}
