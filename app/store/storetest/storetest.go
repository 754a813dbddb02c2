// Package storetest runs the same task-forest scenarios against any
// store.Store backend, checking the forest with the backend's Verify after
// every mutating step.
package storetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"taskforest/app/errors"
	"taskforest/app/lock"
	"taskforest/app/models"
	"taskforest/app/services"
	"taskforest/app/store"
)

// Verifiable is a backend that can check its own forest rules.
type Verifiable interface {
	store.Store
	Verify(ctx context.Context, owner string) error
}

type harness struct {
	t     *testing.T
	ctx   context.Context
	st    Verifiable
	svc   *services.TaskService
	owner string
}

func newHarness(t *testing.T, st Verifiable) *harness {
	t.Helper()
	h := &harness{
		t:     t,
		ctx:   context.Background(),
		st:    st,
		svc:   services.NewTaskService(st, lock.NewKeyedMutex(), zaptest.NewLogger(t)),
		owner: uuid.NewString() + "@example.com",
	}
	require.NoError(t, h.svc.ProvisionUser(h.ctx, h.owner))
	return h
}

func (h *harness) verify() {
	h.t.Helper()
	require.NoError(h.t, h.st.Verify(h.ctx, h.owner))
}

func (h *harness) create(parent, name string) string {
	h.t.Helper()
	resp, err := h.svc.CreateTask(h.ctx, h.owner, models.TaskCreateRequest{ParentID: parent, Name: name})
	require.NoError(h.t, err)
	h.verify()
	return resp.TaskID
}

func (h *harness) read(fn func(tx store.Tx) error) {
	h.t.Helper()
	require.NoError(h.t, h.st.ExecuteRead(h.ctx, h.owner, fn))
}

func (h *harness) parentOf(id string) string {
	h.t.Helper()
	var parent string
	h.read(func(tx store.Tx) error {
		p, err := tx.Parent(h.ctx, id)
		if p != nil {
			parent = p.ID
		}
		return err
	})
	return parent
}

func (h *harness) containerOf(id string) string {
	h.t.Helper()
	var c string
	h.read(func(tx store.Tx) error {
		var err error
		c, err = tx.ContainerOf(h.ctx, id)
		return err
	})
	return c
}

func ids(resp models.SearchTasksResponse) []string {
	out := make([]string, 0, len(resp.TaskList))
	for _, t := range resp.TaskList {
		out = append(out, t.TaskID)
	}
	return out
}

// Run executes every scenario against the store returned by newStore.
// newStore may hand out the same store each time; scenarios use distinct
// owners.
func Run(t *testing.T, newStore func(t *testing.T) Verifiable) {
	scenarios := []struct {
		name string
		fn   func(h *harness)
	}{
		{"cascade delete and restore", cascadeDeleteRestore},
		{"single delete reattaches children", singleDelete},
		{"move rejects cycles", moveCycle},
		{"archive round trip", archiveRoundTrip},
		{"single drop reattaches children", singleDrop},
		{"drop all empties trash", dropAll},
		{"routes are outermost first", routes},
		{"integrity of primitives", primitives},
	}
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			sc.fn(newHarness(t, newStore(t)))
		})
	}
}

func cascadeDeleteRestore(h *harness) {
	t := h.t
	t1 := h.create(models.NoParent, "T1")
	t2 := h.create(t1, "T2")

	roots, err := h.svc.FindRoots(h.ctx, h.owner)
	require.NoError(t, err)
	assert.Equal(t, []string{t1}, ids(roots))

	del, err := h.svc.DeleteTask(h.ctx, h.owner, t1, true)
	require.NoError(t, err)
	assert.Equal(t, 1, del.DeletedNodes)
	assert.Equal(t, models.TrashID, h.containerOf(t2))
	h.verify()

	res, err := h.svc.RestoreTask(h.ctx, h.owner, t1, models.NoParent)
	require.NoError(t, err)
	assert.Equal(t, 2, res.RestoredNodes)
	assert.Equal(t, models.RootID, h.containerOf(t2))
	h.verify()

	res, err = h.svc.RestoreTask(h.ctx, h.owner, t1, models.NoParent)
	require.NoError(t, err)
	assert.Equal(t, 0, res.RestoredNodes)
}

func singleDelete(h *harness) {
	t := h.t
	p := h.create(models.NoParent, "P")
	a := h.create(p, "A")
	b := h.create(a, "B")
	c := h.create(a, "C")

	resp, err := h.svc.DeleteTask(h.ctx, h.owner, a, false)
	require.NoError(t, err)
	assert.Equal(t, 3, resp.DeletedNodes)
	assert.Equal(t, models.TrashID, h.parentOf(a))
	assert.Equal(t, p, h.parentOf(b))
	assert.Equal(t, p, h.parentOf(c))
	h.verify()

	kids, err := h.svc.FindChildren(h.ctx, h.owner, p)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b, c}, ids(kids))
}

func moveCycle(h *harness) {
	t := h.t
	a := h.create(models.NoParent, "A")
	b := h.create(a, "B")
	c := h.create(b, "C")
	d := h.create(models.NoParent, "D")

	resp, err := h.svc.MoveTask(h.ctx, h.owner, a, c)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.MovedNodes)
	assert.Equal(t, models.RootID, h.parentOf(a))

	resp, err = h.svc.MoveTask(h.ctx, h.owner, a, a)
	require.NoError(t, err)
	assert.Equal(t, 0, resp.MovedNodes)
	h.verify()

	resp, err = h.svc.MoveTask(h.ctx, h.owner, b, d)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.MovedNodes)
	assert.Equal(t, d, h.parentOf(b))
	assert.Equal(t, b, h.parentOf(c))
	h.verify()

	_, err = h.svc.MoveTask(h.ctx, h.owner, c, "ghost")
	assert.True(t, errors.Is(err, errors.ErrCodeParentNotFound))
}

func archiveRoundTrip(h *harness) {
	t := h.t
	p := h.create(models.NoParent, "P")
	q := h.create(models.NoParent, "Q")
	a := h.create(p, "A")
	b := h.create(a, "B")

	arch, err := h.svc.ArchiveTask(h.ctx, h.owner, a)
	require.NoError(t, err)
	assert.Equal(t, 2, arch.ArchivedNodes)
	assert.Equal(t, models.ArchiveID, h.containerOf(b))
	h.verify()

	found, err := h.svc.SearchByName(h.ctx, h.owner, models.ArchiveID, "B", models.Page{})
	require.NoError(t, err)
	assert.Equal(t, []string{b}, ids(found))

	un, err := h.svc.UnarchiveTask(h.ctx, h.owner, a, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, un.UnarchivedNodes)
	assert.Equal(t, p, un.ParentID)
	assert.Equal(t, p, h.parentOf(a))
	h.verify()

	_, err = h.svc.ArchiveTask(h.ctx, h.owner, a)
	require.NoError(t, err)
	un, err = h.svc.UnarchiveTask(h.ctx, h.owner, a, &q)
	require.NoError(t, err)
	assert.Equal(t, q, un.ParentID)
	assert.Equal(t, q, h.parentOf(a))
	h.verify()
}

func singleDrop(h *harness) {
	t := h.t
	p := h.create(models.NoParent, "P")
	a := h.create(p, "A")
	b := h.create(a, "B")

	resp, err := h.svc.DropTask(h.ctx, h.owner, a, false)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.DeletedNodes)
	assert.Equal(t, p, h.parentOf(b))
	h.verify()

	_, err = h.svc.FindByID(h.ctx, h.owner, a)
	assert.True(t, errors.Is(err, errors.ErrCodeNotFound))

	resp, err = h.svc.DropTask(h.ctx, h.owner, p, true)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.DeletedNodes)
	h.verify()
}

func dropAll(h *harness) {
	t := h.t
	a := h.create(models.NoParent, "A")
	h.create(a, "B")
	keep := h.create(models.NoParent, "keep")

	_, err := h.svc.DeleteTask(h.ctx, h.owner, a, true)
	require.NoError(t, err)
	resp, err := h.svc.DropAll(h.ctx, h.owner)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.DeletedNodes)
	h.verify()

	roots, err := h.svc.FindRoots(h.ctx, h.owner)
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, ids(roots))
}

func routes(h *harness) {
	t := h.t
	a := h.create(models.NoParent, "A")
	b := h.create(a, "B")
	c := h.create(b, "C")

	resp, err := h.svc.GetRoutes(h.ctx, h.owner, c)
	require.NoError(t, err)
	assert.Equal(t, []models.TaskRoute{
		{TaskID: a, Name: "A", Order: 2},
		{TaskID: b, Name: "B", Order: 1},
		{TaskID: c, Name: "C", Order: 0},
	}, resp.Routes)
}

// primitives drives the Tx directly: guards on edges and containers, the
// longest path pick and the removal count.
func primitives(h *harness) {
	t := h.t
	a := h.create(models.NoParent, "A")
	b := h.create(a, "B")
	c := h.create(b, "C")

	err := h.st.ExecuteWrite(h.ctx, h.owner, func(tx store.Tx) error {
		assert.Error(t, tx.CreateEdge(h.ctx, a, models.TrashID), "containers take no parent")
		assert.Error(t, tx.CreateEdge(h.ctx, a, a), "no self edge")
		assert.Error(t, tx.DeleteNode(h.ctx, models.RootID), "containers are never removed")
		assert.True(t, errors.Is(tx.DeleteEdge(h.ctx, c, a), errors.ErrCodeNotFound))
		return nil
	})
	require.NoError(t, err)
	h.verify()

	// a second parent edge is visible to Parent and to Verify, and the
	// longer ascent wins in PathToRoot
	err = h.st.ExecuteWrite(h.ctx, h.owner, func(tx store.Tx) error {
		if err := tx.CreateEdge(h.ctx, models.RootID, c); err != nil {
			return err
		}
		_, perr := tx.Parent(h.ctx, c)
		assert.True(t, errors.Is(perr, errors.ErrCodeIntegrity))

		path, err := tx.PathToRoot(h.ctx, c)
		if err != nil {
			return err
		}
		assert.Equal(t, []string{b, a}, models.IDs(path))

		ok, err := tx.IsAncestor(h.ctx, a, c)
		assert.True(t, ok)
		return err
	})
	require.NoError(t, err)
	assert.True(t, errors.Is(h.st.Verify(h.ctx, h.owner), errors.ErrCodeIntegrity))

	err = h.st.ExecuteWrite(h.ctx, h.owner, func(tx store.Tx) error {
		if err := tx.DeleteEdge(h.ctx, models.RootID, c); err != nil {
			return err
		}
		n, err := tx.DeleteNodes(h.ctx, []string{c, b, "ghost", models.RootID})
		assert.Equal(t, 2, n)
		return err
	})
	require.NoError(t, err)
	h.verify()

	h.read(func(tx store.Tx) error {
		kids, err := tx.Children(h.ctx, a)
		assert.Empty(t, kids)
		return err
	})
}
