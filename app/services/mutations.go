package services

import (
	"context"

	"go.uber.org/zap"

	"taskforest/app/errors"
	"taskforest/app/models"
	"taskforest/app/store"
)

// CreateTask adds a task under root (parent "0") or under a live task.
func (s *TaskService) CreateTask(ctx context.Context, user string, req models.TaskCreateRequest) (models.TaskResponse, error) {
	if err := validateParentID(req.ParentID); err != nil {
		return models.TaskResponse{}, err
	}
	parent := destination(req.ParentID)
	task := models.Task{
		ID:        s.newID(),
		Name:      req.Name,
		Memo:      req.Memo,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Priority:  req.Priority,
		Check:     false,
	}

	var created *models.Task
	err := s.mutate(ctx, user, "create", func(tx store.Tx) error {
		live, err := liveDestination(ctx, tx, parent)
		if err != nil {
			return err
		}
		if !live {
			return errors.New(errors.ErrCodeParentNotFound, "parent %s is not in the active tree", parent)
		}
		if created, err = tx.CreateNode(ctx, task); err != nil {
			return err
		}
		return tx.CreateEdge(ctx, parent, task.ID)
	})
	if err != nil {
		return models.TaskResponse{}, err
	}
	s.logger.Info("task created", zap.String("user", user), zap.String("task_id", created.ID), zap.String("parent_id", parent))
	return models.NewTaskResponse(*created), nil
}

// UpdateTask replaces the content fields of a task. Parentage is untouched.
func (s *TaskService) UpdateTask(ctx context.Context, user string, req models.TaskUpdateRequest) (models.TaskResponse, error) {
	if err := validateTaskID(req.TaskID); err != nil {
		return models.TaskResponse{}, err
	}
	memo := ""
	if req.Memo != nil {
		memo = *req.Memo
	}
	priority := 0
	if req.Priority != nil {
		priority = *req.Priority
	}
	fields := models.Fields{
		models.PropName:      req.Name,
		models.PropMemo:      memo,
		models.PropStartDate: models.TimeValue(req.StartDate),
		models.PropEndDate:   models.TimeValue(req.EndDate),
		models.PropPriority:  priority,
	}
	if req.Check != nil {
		fields[models.PropCheck] = *req.Check
	}

	var updated *models.Task
	err := s.mutate(ctx, user, "update", func(tx store.Tx) error {
		var err error
		updated, err = tx.UpdateFields(ctx, req.TaskID, fields)
		return err
	})
	if err != nil {
		return models.TaskResponse{}, err
	}
	return models.NewTaskResponse(*updated), nil
}

// DeleteTask moves a live task to the trash.
//
// With cascade the whole subtree moves as one unit, every node is stamped and
// the count is the number of descendants. Without cascade the children are
// handed to the task's former parent and the count is the task plus its
// reparented children.
func (s *TaskService) DeleteTask(ctx context.Context, user, taskID string, cascade bool) (models.TaskDeleteResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskDeleteResponse{}, err
	}
	var deleted int
	err := s.mutate(ctx, user, "delete", func(tx store.Tx) error {
		deleted = 0
		container, err := tx.ContainerOf(ctx, taskID)
		if err != nil {
			return err
		}
		if container != models.RootID {
			return nil
		}
		parent, err := tx.Parent(ctx, taskID)
		if err != nil {
			return err
		}
		stamp := models.Fields{models.PropDeleteTime: s.now()}

		if cascade {
			ids, err := subtree(ctx, tx, taskID)
			if err != nil {
				return err
			}
			if err := relocate(ctx, tx, taskID, models.TrashID); err != nil {
				return err
			}
			if _, err := tx.StampAll(ctx, ids, stamp); err != nil {
				return err
			}
			deleted = len(ids) - 1
			return nil
		}

		children, err := tx.Children(ctx, taskID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := tx.DeleteEdge(ctx, taskID, c.ID); err != nil {
				return err
			}
			if err := tx.CreateEdge(ctx, parent.ID, c.ID); err != nil {
				return err
			}
		}
		if err := relocate(ctx, tx, taskID, models.TrashID); err != nil {
			return err
		}
		if _, err := tx.UpdateFields(ctx, taskID, stamp); err != nil {
			return err
		}
		deleted = 1 + len(children)
		return nil
	})
	if err != nil {
		return models.TaskDeleteResponse{}, err
	}
	s.logger.Info("task deleted", zap.String("user", user), zap.String("task_id", taskID),
		zap.Bool("cascade", cascade), zap.Int("deleted_nodes", deleted))
	return models.TaskDeleteResponse{TaskID: taskID, DeletedNodes: deleted}, nil
}

// DropTask removes a task permanently. Without cascade its children are
// reattached to its former parent.
func (s *TaskService) DropTask(ctx context.Context, user, taskID string, cascade bool) (models.TaskDeleteResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskDeleteResponse{}, err
	}
	var dropped int
	err := s.mutate(ctx, user, "drop", func(tx store.Tx) error {
		dropped = 0
		if cascade {
			ids, err := subtree(ctx, tx, taskID)
			if err != nil {
				return err
			}
			dropped, err = tx.DeleteNodes(ctx, ids)
			return err
		}

		parent, err := tx.Parent(ctx, taskID)
		if err != nil {
			return err
		}
		children, err := tx.Children(ctx, taskID)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := tx.DeleteEdge(ctx, taskID, c.ID); err != nil {
				return err
			}
			if parent == nil {
				continue
			}
			if err := tx.CreateEdge(ctx, parent.ID, c.ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteNode(ctx, taskID); err != nil {
			return err
		}
		dropped = 1
		return nil
	})
	if err != nil {
		return models.TaskDeleteResponse{}, err
	}
	s.logger.Info("task dropped", zap.String("user", user), zap.String("task_id", taskID),
		zap.Bool("cascade", cascade), zap.Int("deleted_nodes", dropped))
	return models.TaskDeleteResponse{TaskID: taskID, DeletedNodes: dropped}, nil
}

// DropAll empties the user's trash. The trash container itself stays.
func (s *TaskService) DropAll(ctx context.Context, user string) (models.EmptyTrashResponse, error) {
	var dropped int
	err := s.mutate(ctx, user, "drop all", func(tx store.Tx) error {
		desc, err := tx.Descendants(ctx, models.TrashID)
		if err != nil {
			return err
		}
		dropped, err = tx.DeleteNodes(ctx, models.IDs(desc))
		return err
	})
	if err != nil {
		return models.EmptyTrashResponse{}, err
	}
	s.logger.Info("trash emptied", zap.String("user", user), zap.Int("deleted_nodes", dropped))
	return models.EmptyTrashResponse{DeletedNodes: dropped}, nil
}

// RestoreTask moves a trashed task and its subtree back under root or under a
// live task, clearing deleteTime on every moved node. A task that is not in
// the trash restores nothing.
func (s *TaskService) RestoreTask(ctx context.Context, user, taskID, parentID string) (models.TaskRestoreResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskRestoreResponse{}, err
	}
	if err := validateParentID(parentID); err != nil {
		return models.TaskRestoreResponse{}, err
	}
	dest := destination(parentID)

	var restored int
	err := s.mutate(ctx, user, "restore", func(tx store.Tx) error {
		restored = 0
		container, found, err := containerOfTask(ctx, tx, taskID)
		if err != nil || !found || container != models.TrashID {
			return err
		}
		live, err := liveDestination(ctx, tx, dest)
		if err != nil || !live {
			return err
		}
		ids, err := subtree(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := relocate(ctx, tx, taskID, dest); err != nil {
			return err
		}
		if _, err := tx.StampAll(ctx, ids, models.Fields{models.PropDeleteTime: nil}); err != nil {
			return err
		}
		restored = len(ids)
		return nil
	})
	if err != nil {
		return models.TaskRestoreResponse{}, err
	}
	s.logger.Info("task restored", zap.String("user", user), zap.String("task_id", taskID),
		zap.String("parent_id", dest), zap.Int("restored_nodes", restored))
	return models.TaskRestoreResponse{TaskID: taskID, ParentID: parentID, RestoredNodes: restored}, nil
}

// MoveTask reparents a live task and its subtree under root or another live
// task. A destination equal to the task or below it is rejected with a zero
// count before any edge is touched.
func (s *TaskService) MoveTask(ctx context.Context, user, taskID, parentID string) (models.TaskMoveResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskMoveResponse{}, err
	}
	if err := validateParentID(parentID); err != nil {
		return models.TaskMoveResponse{}, err
	}
	dest := destination(parentID)

	var moved int
	err := s.mutate(ctx, user, "move", func(tx store.Tx) error {
		moved = 0
		container, err := tx.ContainerOf(ctx, taskID)
		if err != nil {
			return err
		}
		if container != models.RootID {
			return nil
		}
		if dest == taskID {
			return nil
		}
		live, err := liveDestination(ctx, tx, dest)
		if err != nil || !live {
			return err
		}
		cycle, err := tx.IsAncestor(ctx, taskID, dest)
		if err != nil {
			return err
		}
		if cycle {
			s.logger.Debug("move rejected: destination is a descendant",
				zap.String("task_id", taskID), zap.String("parent_id", dest))
			return nil
		}
		parent, err := tx.Parent(ctx, taskID)
		if err != nil {
			return err
		}
		if parent != nil && parent.ID == dest {
			return nil
		}
		ids, err := subtree(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := relocate(ctx, tx, taskID, dest); err != nil {
			return err
		}
		moved = len(ids)
		return nil
	})
	if err != nil {
		return models.TaskMoveResponse{}, err
	}
	s.logger.Info("task moved", zap.String("user", user), zap.String("task_id", taskID),
		zap.String("parent_id", dest), zap.Int("moved_nodes", moved))
	return models.TaskMoveResponse{TaskID: taskID, ParentID: parentID, MovedNodes: moved}, nil
}

// ArchiveTask moves a live task and its subtree to the archive and stamps the
// former parent on every moved node.
func (s *TaskService) ArchiveTask(ctx context.Context, user, taskID string) (models.TaskArchiveResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskArchiveResponse{}, err
	}
	var archived int
	err := s.mutate(ctx, user, "archive", func(tx store.Tx) error {
		archived = 0
		container, err := tx.ContainerOf(ctx, taskID)
		if err != nil {
			return err
		}
		if container != models.RootID {
			return nil
		}
		parent, err := tx.Parent(ctx, taskID)
		if err != nil {
			return err
		}
		ids, err := subtree(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := relocate(ctx, tx, taskID, models.ArchiveID); err != nil {
			return err
		}
		archived, err = tx.StampAll(ctx, ids, models.Fields{
			models.PropOriginalParentID: parent.ID,
			models.PropArchive:          true,
		})
		return err
	})
	if err != nil {
		return models.TaskArchiveResponse{}, err
	}
	s.logger.Info("task archived", zap.String("user", user), zap.String("task_id", taskID), zap.Int("archived_nodes", archived))
	return models.TaskArchiveResponse{TaskID: taskID, ArchivedNodes: archived}, nil
}

// UnarchiveTask moves an archived task and its subtree back to the live tree.
// With a nil parentID it returns to the remembered parent when that parent is
// still live, otherwise to root; an explicit parentID always wins.
func (s *TaskService) UnarchiveTask(ctx context.Context, user, taskID string, parentID *string) (models.TaskUnarchiveResponse, error) {
	if err := validateTaskID(taskID); err != nil {
		return models.TaskUnarchiveResponse{}, err
	}
	if parentID != nil {
		if err := validateParentID(*parentID); err != nil {
			return models.TaskUnarchiveResponse{}, err
		}
	}

	var (
		unarchived int
		dest       string
	)
	err := s.mutate(ctx, user, "unarchive", func(tx store.Tx) error {
		unarchived = 0
		dest = ""
		container, found, err := containerOfTask(ctx, tx, taskID)
		if err != nil || !found || container != models.ArchiveID {
			return err
		}
		task, err := tx.Get(ctx, taskID)
		if err != nil {
			return err
		}

		if parentID == nil {
			dest = models.RootID
			if orig := task.OriginalParentID; orig != "" && orig != models.RootID {
				c, ok, err := containerOfTask(ctx, tx, orig)
				if err != nil {
					return err
				}
				if ok && c == models.RootID {
					dest = orig
				}
			}
		} else {
			dest = destination(*parentID)
			live, err := liveDestination(ctx, tx, dest)
			if err != nil || !live {
				dest = ""
				return err
			}
		}

		ids, err := subtree(ctx, tx, taskID)
		if err != nil {
			return err
		}
		if err := relocate(ctx, tx, taskID, dest); err != nil {
			return err
		}
		unarchived, err = tx.StampAll(ctx, ids, models.Fields{
			models.PropOriginalParentID: nil,
			models.PropArchive:          false,
		})
		return err
	})
	if err != nil {
		return models.TaskUnarchiveResponse{}, err
	}

	resp := models.TaskUnarchiveResponse{TaskID: taskID, UnarchivedNodes: unarchived}
	if dest != "" {
		resp.ParentID = publicParentID(dest)
	} else if parentID != nil {
		resp.ParentID = *parentID
	}
	s.logger.Info("task unarchived", zap.String("user", user), zap.String("task_id", taskID),
		zap.String("parent_id", dest), zap.Int("unarchived_nodes", unarchived))
	return resp, nil
}
