package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"taskforest/app/errors"
	"taskforest/app/models"
	"taskforest/app/store"
)

// SearchByName returns tasks of one container whose name contains text.
// An empty container searches root.
func (s *TaskService) SearchByName(ctx context.Context, user, container, text string, page models.Page) (models.SearchTasksResponse, error) {
	if container == "" {
		container = models.RootID
	}
	if !models.IsContainerID(container) {
		return models.SearchTasksResponse{}, errors.New(errors.ErrCodeInvalidInput, "unknown container %q", container)
	}
	if err := checkPage(page); err != nil {
		return models.SearchTasksResponse{}, err
	}

	var matches []models.Task
	err := s.read(ctx, user, func(tx store.Tx) error {
		matches = nil
		desc, err := tx.Descendants(ctx, container)
		if err != nil {
			return err
		}
		for _, t := range desc {
			if strings.Contains(t.Name, text) {
				matches = append(matches, t)
			}
		}
		return nil
	})
	if err != nil {
		return models.SearchTasksResponse{}, err
	}
	sortByName(matches)
	return models.NewSearchTasksResponse(paginate(matches, page)), nil
}

// FindByDateRange returns live tasks whose start or end date falls on a
// calendar day within [start, end].
func (s *TaskService) FindByDateRange(ctx context.Context, user string, start, end time.Time) (models.SearchTasksResponse, error) {
	from, to := day(start), day(end)
	if from.After(to) {
		return models.SearchTasksResponse{}, errors.New(errors.ErrCodeInvalidInput, "startDate is after endDate")
	}
	within := func(t *time.Time) bool {
		if t == nil {
			return false
		}
		d := day(*t)
		return !d.Before(from) && !d.After(to)
	}

	var matches []models.Task
	err := s.read(ctx, user, func(tx store.Tx) error {
		matches = nil
		desc, err := tx.Descendants(ctx, models.RootID)
		if err != nil {
			return err
		}
		for _, t := range desc {
			if within(t.StartDate) || within(t.EndDate) {
				matches = append(matches, t)
			}
		}
		return nil
	})
	if err != nil {
		return models.SearchTasksResponse{}, err
	}
	sortByName(matches)
	return models.NewSearchTasksResponse(matches), nil
}

// FindAll lists every live task, paged.
func (s *TaskService) FindAll(ctx context.Context, user string, page models.Page) (models.SearchTasksResponse, error) {
	if err := checkPage(page); err != nil {
		return models.SearchTasksResponse{}, err
	}
	var tasks []models.Task
	err := s.read(ctx, user, func(tx store.Tx) error {
		var err error
		tasks, err = tx.Descendants(ctx, models.RootID)
		return err
	})
	if err != nil {
		return models.SearchTasksResponse{}, err
	}
	sortByName(tasks)
	return models.NewSearchTasksResponse(paginate(tasks, page)), nil
}

func checkPage(p models.Page) error {
	if p.Offset < 0 || p.Limit < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "offset and limit must not be negative")
	}
	return nil
}

// paginate applies offset and limit. A zero limit means no limit.
func paginate(tasks []models.Task, p models.Page) []models.Task {
	if p.Offset >= len(tasks) {
		return []models.Task{}
	}
	tasks = tasks[p.Offset:]
	if p.Limit > 0 && p.Limit < len(tasks) {
		tasks = tasks[:p.Limit]
	}
	return tasks
}

func sortByName(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Name != tasks[j].Name {
			return tasks[i].Name < tasks[j].Name
		}
		return tasks[i].ID < tasks[j].ID
	})
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
