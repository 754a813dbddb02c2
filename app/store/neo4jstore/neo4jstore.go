// Package neo4jstore implements store.Store on Neo4j.
//
// The graph is (:User {email})-[:CREATED_BY]->(container:Task) and
// (parent:Task)-[:BELONGS_TO]->(child:Task). Each store.Tx wraps one managed
// transaction of one session, so every compound operation commits or rolls
// back as a whole.
package neo4jstore

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"taskforest/app/errors"
	"taskforest/app/models"
	"taskforest/app/store"
)

// Store is the Neo4j backend.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
}

var _ store.Store = (*Store)(nil)

// New creates a Store. An empty database selects the server default.
func New(driver neo4j.DriverWithContext, database string) *Store {
	return &Store{driver: driver, database: database}
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

// EnsureSchema creates the lookup index and the user constraint.
func (s *Store) EnsureSchema(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	for _, stmt := range []string{schemaTaskIndex, schemaUserEmail} {
		res, err := session.Run(ctx, stmt, nil)
		if err != nil {
			return fmt.Errorf("schema %q: %w", stmt, err)
		}
		if _, err := res.Consume(ctx); err != nil {
			return fmt.Errorf("schema %q: %w", stmt, err)
		}
	}
	return nil
}

func (s *Store) Provision(ctx context.Context, owner string) error {
	if owner == "" {
		return errors.New(errors.ErrCodeInvalidInput, "owner must not be empty")
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, provisionQuery, map[string]any{
			"owner":      owner,
			"containers": []string{models.RootID, models.TrashID, models.ArchiveID},
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	return err
}

func (s *Store) ExecuteRead(ctx context.Context, owner string, fn func(tx store.Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, s.run(ctx, mtx, owner, fn)
	})
	return err
}

func (s *Store) ExecuteWrite(ctx context.Context, owner string, fn func(tx store.Tx) error) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, s.run(ctx, mtx, owner, fn)
	})
	return err
}

func (s *Store) run(ctx context.Context, mtx neo4j.ManagedTransaction, owner string, fn func(tx store.Tx) error) error {
	t := &tx{tx: mtx, owner: owner}
	recs, err := t.query(ctx, ownerQuery, nil)
	if err != nil {
		return err
	}
	if len(recs) == 0 || recordInt(recs[0], "n") == 0 {
		return errors.New(errors.ErrCodeUserNotFound, "user %s is not provisioned", owner)
	}
	return fn(t)
}

// Verify checks the owner's forest against the single-parent, reachability
// and stamp rules and returns the first violation.
func (s *Store) Verify(ctx context.Context, owner string) error {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	_, err := session.ExecuteRead(ctx, func(mtx neo4j.ManagedTransaction) (any, error) {
		return nil, s.run(ctx, mtx, owner, func(store.Tx) error {
			return (&tx{tx: mtx, owner: owner}).verify(ctx)
		})
	})
	return err
}

func (t *tx) verify(ctx context.Context) error {
	recs, err := t.query(ctx, verifyContainersQuery, nil)
	if err != nil {
		return err
	}
	if len(recs) > 0 {
		return errors.New(errors.ErrCodeIntegrity, "container %s has a parent", recordString(recs[0], "id"))
	}

	recs, err = t.query(ctx, verifyTasksQuery, nil)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		id := recordString(rec, "id")
		if n := recordInt(rec, "parents"); n != 1 {
			return errors.New(errors.ErrCodeIntegrity, "task %s has %d parents", id, n)
		}
		containers := recordStrings(rec, "containers")
		if len(containers) != 1 {
			return errors.New(errors.ErrCodeIntegrity, "task %s is reachable from %v", id, containers)
		}
		container := containers[0]
		if recordBool(rec, "deleted") != (container == models.TrashID) {
			return errors.New(errors.ErrCodeIntegrity, "task %s under %s has a wrong deleteTime", id, container)
		}
		if recordBool(rec, "archived") != (container == models.ArchiveID) {
			return errors.New(errors.ErrCodeIntegrity, "task %s under %s has a wrong originalParentId", id, container)
		}
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

type tx struct {
	tx    neo4j.ManagedTransaction
	owner string
}

func (t *tx) query(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
	if params == nil {
		params = map[string]any{}
	}
	params["owner"] = t.owner
	res, err := t.tx.Run(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	return res.Collect(ctx)
}

// lookup runs a query whose first column is the node t; zero rows means t
// does not exist.
func (t *tx) lookup(ctx context.Context, cypher, id string, params map[string]any) ([]*neo4j.Record, error) {
	if params == nil {
		params = map[string]any{}
	}
	params["id"] = id
	recs, err := t.query(ctx, cypher, params)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, errors.TaskNotFound(id)
	}
	return recs, nil
}

func (t *tx) count(ctx context.Context, cypher string, params map[string]any) (int, error) {
	recs, err := t.query(ctx, cypher, params)
	if err != nil {
		return 0, err
	}
	if len(recs) == 0 {
		return 0, nil
	}
	return recordInt(recs[0], "n"), nil
}

func toTasks(nodes []neo4j.Node, skip string) []models.Task {
	out := make([]models.Task, 0, len(nodes))
	for _, n := range nodes {
		task := nodeToTask(n)
		if task.ID == skip {
			continue
		}
		out = append(out, task)
	}
	return out
}

func (t *tx) Get(ctx context.Context, id string) (*models.Task, error) {
	recs, err := t.lookup(ctx, getQuery, id, nil)
	if err != nil {
		return nil, err
	}
	n, _ := recordNode(recs[0], "t")
	task := nodeToTask(n)
	return &task, nil
}

func (t *tx) Parent(ctx context.Context, id string) (*models.Task, error) {
	recs, err := t.lookup(ctx, parentQuery, id, nil)
	if err != nil {
		return nil, err
	}
	if len(recs) > 1 {
		return nil, errors.New(errors.ErrCodeIntegrity, "task %s has more than one parent", id)
	}
	n, ok := recordNode(recs[0], "p")
	if !ok {
		return nil, nil
	}
	task := nodeToTask(n)
	return &task, nil
}

func (t *tx) Children(ctx context.Context, id string) ([]models.Task, error) {
	recs, err := t.lookup(ctx, childrenQuery, id, nil)
	if err != nil {
		return nil, err
	}
	return toTasks(recordNodes(recs[0], "nodes"), ""), nil
}

func (t *tx) Descendants(ctx context.Context, id string) ([]models.Task, error) {
	recs, err := t.lookup(ctx, descendantsQuery, id, nil)
	if err != nil {
		return nil, err
	}
	// a cycle through id would list id itself
	return toTasks(recordNodes(recs[0], "nodes"), id), nil
}

func (t *tx) PathToRoot(ctx context.Context, id string) ([]models.Task, error) {
	recs, err := t.lookup(ctx, pathQuery, id, nil)
	if err != nil {
		return nil, err
	}
	return ancestorsFromPath(recordNodes(recs[0], "nodes")), nil
}

func (t *tx) ContainerOf(ctx context.Context, id string) (string, error) {
	recs, err := t.lookup(ctx, containerQuery, id, nil)
	if err != nil {
		return "", err
	}
	return recordString(recs[0], "container"), nil
}

func (t *tx) IsAncestor(ctx context.Context, ancestor, id string) (bool, error) {
	recs, err := t.lookup(ctx, ancestorQuery, id, map[string]any{"ancestor": ancestor})
	if err != nil {
		return false, err
	}
	return recordBool(recs[0], "found"), nil
}

func (t *tx) CreateNode(ctx context.Context, task models.Task) (*models.Task, error) {
	if task.ID == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "task id must not be empty")
	}
	if _, err := t.Get(ctx, task.ID); err == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "task %s already exists", task.ID)
	} else if !errors.Is(err, errors.ErrCodeNotFound) {
		return nil, err
	}
	recs, err := t.query(ctx, createNodeQuery, map[string]any{"props": taskProps(task)})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("create task %s: no row returned", task.ID)
	}
	n, _ := recordNode(recs[0], "t")
	created := nodeToTask(n)
	return &created, nil
}

func (t *tx) UpdateFields(ctx context.Context, id string, fields models.Fields) (*models.Task, error) {
	recs, err := t.lookup(ctx, updateQuery, id, map[string]any{"fields": fieldParams(fields)})
	if err != nil {
		return nil, err
	}
	n, _ := recordNode(recs[0], "t")
	task := nodeToTask(n)
	return &task, nil
}

func (t *tx) StampAll(ctx context.Context, ids []string, fields models.Fields) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return t.count(ctx, stampQuery, map[string]any{"ids": ids, "fields": fieldParams(fields)})
}

func (t *tx) DeleteNode(ctx context.Context, id string) error {
	task, err := t.Get(ctx, id)
	if err != nil {
		return err
	}
	if task.Container {
		return errors.New(errors.ErrCodeInvalidReservedID, "container %s cannot be removed", id)
	}
	_, err = t.count(ctx, deleteNodesQuery, map[string]any{"ids": []string{id}})
	return err
}

func (t *tx) DeleteNodes(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return t.count(ctx, deleteNodesQuery, map[string]any{"ids": ids})
}

func (t *tx) CreateEdge(ctx context.Context, parent, child string) error {
	n, err := t.count(ctx, createEdgeQuery, map[string]any{"parent": parent, "child": child})
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New(errors.ErrCodeNotFound, "cannot link %s -> %s", parent, child)
	}
	return nil
}

func (t *tx) DeleteEdge(ctx context.Context, parent, child string) error {
	n, err := t.count(ctx, deleteEdgeQuery, map[string]any{"parent": parent, "child": child})
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New(errors.ErrCodeNotFound, "edge %s -> %s not found", parent, child)
	}
	return nil
}
