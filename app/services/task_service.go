package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"taskforest/app/errors"
	"taskforest/app/lock"
	"taskforest/app/models"
	"taskforest/app/store"
)

// TaskService implements the structural task operations of one user's forest.
//
// Reads go straight to the store. Every mutation takes the user's lock, then
// runs as a single store write transaction, so a partially applied move or
// stamp is never observable.
type TaskService struct {
	store  store.Store
	locker lock.Locker
	logger *zap.Logger
	newID  func() string
	now    func() time.Time
}

// NewTaskService creates a new instance of TaskService.
func NewTaskService(st store.Store, locker lock.Locker, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		store:  st,
		locker: locker,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// ProvisionUser creates the user's root, trash and archive containers.
func (s *TaskService) ProvisionUser(ctx context.Context, user string) error {
	if strings.TrimSpace(user) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "user must not be empty")
	}
	if err := s.store.Provision(ctx, user); err != nil {
		return errors.FromStore(err, "provision %s", user)
	}
	s.logger.Info("user provisioned", zap.String("user", user))
	return nil
}

func (s *TaskService) read(ctx context.Context, user string, fn func(tx store.Tx) error) error {
	if err := s.store.ExecuteRead(ctx, user, fn); err != nil {
		return errors.FromStore(err, "read forest of %s", user)
	}
	return nil
}

func (s *TaskService) mutate(ctx context.Context, user, op string, fn func(tx store.Tx) error) error {
	unlock, err := s.locker.Lock(ctx, user)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreFailure, err, "%s: lock %s", op, user)
	}
	defer unlock()

	if err := s.store.ExecuteWrite(ctx, user, fn); err != nil {
		s.logger.Warn("mutation failed", zap.String("op", op), zap.String("user", user), zap.Error(err))
		return errors.FromStore(err, "%s", op)
	}
	return nil
}

func validateTaskID(id string) error {
	if strings.TrimSpace(id) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "task id must not be empty")
	}
	if models.IsReservedID(id) {
		return errors.ReservedID(id)
	}
	return nil
}

func validateParentID(id string) error {
	if id == models.NoParent {
		return nil
	}
	return validateTaskID(id)
}

// destination maps the "no parent" sentinel to the root container.
func destination(parentID string) string {
	if parentID == models.NoParent {
		return models.RootID
	}
	return parentID
}

// publicParentID is the inverse of destination for responses.
func publicParentID(id string) string {
	if id == models.RootID {
		return models.NoParent
	}
	return id
}

// liveDestination resolves a destination for move, restore and unarchive.
// ok is false when the node exists but is not in the active tree.
func liveDestination(ctx context.Context, tx store.Tx, dest string) (bool, error) {
	if dest == models.RootID {
		return true, nil
	}
	if _, err := tx.Get(ctx, dest); err != nil {
		if errors.Is(err, errors.ErrCodeNotFound) {
			return false, errors.New(errors.ErrCodeParentNotFound, "parent %s not found", dest)
		}
		return false, err
	}
	container, err := tx.ContainerOf(ctx, dest)
	if err != nil {
		return false, err
	}
	return container == models.RootID, nil
}

// relocate rewrites the single parent edge of id to point at dest.
func relocate(ctx context.Context, tx store.Tx, id, dest string) error {
	parent, err := tx.Parent(ctx, id)
	if err != nil {
		return err
	}
	if parent != nil {
		if err := tx.DeleteEdge(ctx, parent.ID, id); err != nil {
			return err
		}
	}
	return tx.CreateEdge(ctx, dest, id)
}

// subtree returns id followed by all of its descendants.
func subtree(ctx context.Context, tx store.Tx, id string) ([]string, error) {
	desc, err := tx.Descendants(ctx, id)
	if err != nil {
		return nil, err
	}
	return append([]string{id}, models.IDs(desc)...), nil
}

// containerOfTask looks up a task's container. found is false when the id
// does not resolve.
func containerOfTask(ctx context.Context, tx store.Tx, id string) (container string, found bool, err error) {
	container, err = tx.ContainerOf(ctx, id)
	if errors.Is(err, errors.ErrCodeNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return container, true, nil
}

// FindRoots returns the direct children of the user's root.
func (s *TaskService) FindRoots(ctx context.Context, user string) (models.SearchTasksResponse, error) {
	var tasks []models.Task
	err := s.read(ctx, user, func(tx store.Tx) error {
		var err error
		tasks, err = tx.Children(ctx, models.RootID)
		return err
	})
	if err != nil {
		return models.SearchTasksResponse{}, err
	}
	return models.NewSearchTasksResponse(tasks), nil
}

// FindByID returns a single task.
func (s *TaskService) FindByID(ctx context.Context, user, taskID string) (models.TaskResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskResponse{}, err
	}
	var task *models.Task
	err := s.read(ctx, user, func(tx store.Tx) error {
		var err error
		task, err = tx.Get(ctx, taskID)
		return err
	})
	if err != nil {
		return models.TaskResponse{}, err
	}
	return models.NewTaskResponse(*task), nil
}

// FindChildren returns the direct children of a task.
func (s *TaskService) FindChildren(ctx context.Context, user, taskID string) (models.SearchTasksResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.SearchTasksResponse{}, err
	}
	var tasks []models.Task
	err := s.read(ctx, user, func(tx store.Tx) error {
		var err error
		tasks, err = tx.Children(ctx, taskID)
		return err
	})
	if err != nil {
		return models.SearchTasksResponse{}, err
	}
	return models.NewSearchTasksResponse(tasks), nil
}

// GetRoutes returns the path from the outermost ancestor below the container
// down to the task. The task has order 0 and each ancestor one more than the
// node below it.
func (s *TaskService) GetRoutes(ctx context.Context, user, taskID string) (models.TaskRouteResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskRouteResponse{}, err
	}
	var (
		task      *models.Task
		ancestors []models.Task
	)
	err := s.read(ctx, user, func(tx store.Tx) error {
		var err error
		if task, err = tx.Get(ctx, taskID); err != nil {
			return err
		}
		ancestors, err = tx.PathToRoot(ctx, taskID)
		return err
	})
	if err != nil {
		return models.TaskRouteResponse{}, err
	}

	routes := make([]models.TaskRoute, 0, len(ancestors)+1)
	for i := len(ancestors) - 1; i >= 0; i-- {
		routes = append(routes, models.TaskRoute{TaskID: ancestors[i].ID, Name: ancestors[i].Name, Order: i + 1})
	}
	routes = append(routes, models.TaskRoute{TaskID: task.ID, Name: task.Name, Order: 0})
	return models.TaskRouteResponse{Routes: routes}, nil
}
