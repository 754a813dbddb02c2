package memstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskforest/app/errors"
	"taskforest/app/models"
	"taskforest/app/store"
	"taskforest/app/store/storetest"
)

const owner = "ada@example.com"

func newStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	require.NoError(t, s.Provision(context.Background(), owner))
	return s
}

// chain builds root -> a -> b -> c.
func chain(t *testing.T, s *Store) {
	t.Helper()
	err := s.ExecuteWrite(context.Background(), owner, func(tx store.Tx) error {
		ctx := context.Background()
		parent := models.RootID
		for _, id := range []string{"a", "b", "c"} {
			if _, err := tx.CreateNode(ctx, models.Task{ID: id, Name: "task " + id}); err != nil {
				return err
			}
			if err := tx.CreateEdge(ctx, parent, id); err != nil {
				return err
			}
			parent = id
		}
		return nil
	})
	require.NoError(t, err)
}

func TestProvision_Idempotent(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	require.NoError(t, s.Provision(context.Background(), owner))

	err := s.ExecuteRead(context.Background(), owner, func(tx store.Tx) error {
		kids, err := tx.Children(context.Background(), models.RootID)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, models.IDs(kids))
		return nil
	})
	require.NoError(t, err)
}

func TestUnknownOwner(t *testing.T) {
	s := New()
	err := s.ExecuteRead(context.Background(), "nobody", func(tx store.Tx) error { return nil })
	assert.True(t, errors.Is(err, errors.ErrCodeUserNotFound))
	assert.True(t, errors.Is(s.Provision(context.Background(), ""), errors.ErrCodeInvalidInput))
}

func TestTraversal(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	ctx := context.Background()

	err := s.ExecuteRead(ctx, owner, func(tx store.Tx) error {
		desc, err := tx.Descendants(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, models.IDs(desc))

		path, err := tx.PathToRoot(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, models.IDs(path))

		container, err := tx.ContainerOf(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, models.RootID, container)

		ok, err := tx.IsAncestor(ctx, "a", "c")
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = tx.IsAncestor(ctx, "c", "a")
		require.NoError(t, err)
		assert.False(t, ok)
		ok, err = tx.IsAncestor(ctx, "a", "a")
		require.NoError(t, err)
		assert.False(t, ok)

		p, err := tx.Parent(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, models.RootID, p.ID)
		p, err = tx.Parent(ctx, models.RootID)
		require.NoError(t, err)
		assert.Nil(t, p)

		_, err = tx.Get(ctx, "zzz")
		assert.True(t, errors.Is(err, errors.ErrCodeNotFound))
		return nil
	})
	require.NoError(t, err)
}

func TestExecuteWrite_RollsBackOnError(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	ctx := context.Background()
	boom := stderrors.New("boom")

	err := s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		require.NoError(t, tx.DeleteEdge(ctx, "a", "b"))
		require.NoError(t, tx.CreateEdge(ctx, models.TrashID, "b"))
		_, err := tx.UpdateFields(ctx, "b", models.Fields{models.PropDeleteTime: time.Now()})
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.ExecuteRead(ctx, owner, func(tx store.Tx) error {
		p, err := tx.Parent(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "a", p.ID)
		b, err := tx.Get(ctx, "b")
		require.NoError(t, err)
		assert.Nil(t, b.DeleteTime)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Verify(ctx, owner))
}

func TestReadTransactionRejectsWrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	err := s.ExecuteRead(ctx, owner, func(tx store.Tx) error {
		_, err := tx.CreateNode(ctx, models.Task{ID: "x"})
		return err
	})
	assert.Error(t, err)
}

func TestContainersAreProtected(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	ctx := context.Background()

	err := s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		return tx.DeleteNode(ctx, models.TrashID)
	})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidReservedID))

	err = s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		return tx.CreateEdge(ctx, "a", models.ArchiveID)
	})
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidReservedID))

	err = s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		return tx.CreateEdge(ctx, "a", "a")
	})
	assert.True(t, errors.Is(err, errors.ErrCodeIntegrity))
}

func TestIntegrityViolationsAreVisible(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	ctx := context.Background()

	// a second parent edge on c: a -> c as well as b -> c
	err := s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		return tx.CreateEdge(ctx, "a", "c")
	})
	require.NoError(t, err)

	assert.True(t, errors.Is(s.Verify(ctx, owner), errors.ErrCodeIntegrity))
	err = s.ExecuteRead(ctx, owner, func(tx store.Tx) error {
		_, err := tx.Parent(ctx, "c")
		assert.True(t, errors.Is(err, errors.ErrCodeIntegrity))

		// longest of the two candidate paths wins
		path, err := tx.PathToRoot(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a"}, models.IDs(path))
		return nil
	})
	require.NoError(t, err)
}

func TestVerify_StampRules(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	ctx := context.Background()
	require.NoError(t, s.Verify(ctx, owner))

	err := s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		_, err := tx.StampAll(ctx, []string{"b", "c", "missing"}, models.Fields{models.PropOriginalParentID: "a"})
		return err
	})
	require.NoError(t, err)
	assert.True(t, errors.Is(s.Verify(ctx, owner), errors.ErrCodeIntegrity))
}

func TestDeleteNodes(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	ctx := context.Background()

	var removed int
	err := s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		var err error
		removed, err = tx.DeleteNodes(ctx, []string{"b", "c", "c", "nope", models.TrashID})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	err = s.ExecuteRead(ctx, owner, func(tx store.Tx) error {
		kids, err := tx.Children(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, kids)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Verify(ctx, owner))
}

func TestUpdateFields_Types(t *testing.T) {
	s := newStore(t)
	chain(t, s)
	ctx := context.Background()
	when := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	err := s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
		got, err := tx.UpdateFields(ctx, "a", models.Fields{
			models.PropName:      "renamed",
			models.PropPriority:  int64(4),
			models.PropStartDate: when,
			models.PropCheck:     true,
		})
		require.NoError(t, err)
		assert.Equal(t, "renamed", got.Name)
		assert.Equal(t, 4, *got.Priority)
		assert.True(t, got.StartDate.Equal(when))
		assert.True(t, got.Check)

		got, err = tx.UpdateFields(ctx, "a", models.Fields{models.PropStartDate: nil, models.PropPriority: nil})
		require.NoError(t, err)
		assert.Nil(t, got.StartDate)
		assert.Nil(t, got.Priority)

		_, err = tx.UpdateFields(ctx, "a", models.Fields{"colour": "red"})
		assert.Error(t, err)
		_, err = tx.UpdateFields(ctx, "a", models.Fields{models.PropCheck: "yes"})
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)
}

// TestOwnersDoNotBlockEachOther holds one owner's write lock while another
// owner writes.
func TestOwnersDoNotBlockEachOther(t *testing.T) {
	s := newStore(t)
	other := "grace@example.com"
	require.NoError(t, s.Provision(context.Background(), other))

	held := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.ExecuteWrite(context.Background(), owner, func(tx store.Tx) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	done := make(chan error, 1)
	go func() {
		done <- s.ExecuteWrite(context.Background(), other, func(tx store.Tx) error {
			_, err := tx.CreateNode(context.Background(), models.Task{ID: "g1"})
			if err != nil {
				return err
			}
			return tx.CreateEdge(context.Background(), models.RootID, "g1")
		})
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("write for a second owner blocked on the first owner's transaction")
	}
	close(release)
	wg.Wait()
}

func TestConcurrentWritesSameOwner(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()
	n := 50
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("t%d", i)
			err := s.ExecuteWrite(ctx, owner, func(tx store.Tx) error {
				if _, err := tx.CreateNode(ctx, models.Task{ID: id}); err != nil {
					return err
				}
				return tx.CreateEdge(ctx, models.RootID, id)
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	err := s.ExecuteRead(ctx, owner, func(tx store.Tx) error {
		kids, err := tx.Children(ctx, models.RootID)
		require.NoError(t, err)
		assert.Len(t, kids, n)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Verify(ctx, owner))
}

func TestScenarios(t *testing.T) {
	s := New()
	storetest.Run(t, func(*testing.T) storetest.Verifiable { return s })
}
