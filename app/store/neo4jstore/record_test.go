package neo4jstore

import (
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskforest/app/models"
)

func node(props map[string]any) dbtype.Node {
	return dbtype.Node{Labels: []string{"Task"}, Props: props}
}

func TestNodeToTask(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	deleted := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)

	task := nodeToTask(node(map[string]any{
		"id":                        "t1",
		models.PropName:             "plan trip",
		models.PropMemo:             "book trains",
		models.PropStartDate:        start,
		models.PropEndDate:          dbtype.LocalDateTime(start.Add(time.Hour)),
		models.PropPriority:         int64(2),
		models.PropCheck:            true,
		models.PropDeleteTime:       deleted,
		models.PropOriginalParentID: "root",
	}))

	assert.Equal(t, "t1", task.ID)
	assert.Equal(t, "plan trip", task.Name)
	assert.Equal(t, "book trains", task.Memo)
	require.NotNil(t, task.StartDate)
	assert.True(t, task.StartDate.Equal(start))
	require.NotNil(t, task.EndDate)
	assert.True(t, task.EndDate.Equal(start.Add(time.Hour)))
	require.NotNil(t, task.Priority)
	assert.Equal(t, 2, *task.Priority)
	assert.True(t, task.Check)
	assert.False(t, task.Archive)
	assert.True(t, task.DeleteTime.Equal(deleted))
	assert.Equal(t, "root", task.OriginalParentID)
	assert.False(t, task.Container)
}

func TestNodeToTask_MissingProps(t *testing.T) {
	task := nodeToTask(node(map[string]any{"id": "root", "container": true}))
	assert.True(t, task.Container)
	assert.Nil(t, task.StartDate)
	assert.Nil(t, task.Priority)
	assert.Equal(t, "", task.Memo)
}

func TestAncestorsFromPath(t *testing.T) {
	path := []dbtype.Node{
		node(map[string]any{"id": "root", "container": true}),
		node(map[string]any{"id": "a"}),
		node(map[string]any{"id": "b"}),
		node(map[string]any{"id": "c"}),
	}
	assert.Equal(t, []string{"b", "a"}, models.IDs(ancestorsFromPath(path)))

	// a detached chain keeps its top node
	assert.Equal(t, []string{"a"}, models.IDs(ancestorsFromPath(path[1:3])))
	assert.Empty(t, ancestorsFromPath(path[3:]))
	assert.Empty(t, ancestorsFromPath(nil))
}

func TestFieldParams(t *testing.T) {
	when := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	p := 5
	var none *time.Time

	got := fieldParams(models.Fields{
		models.PropStartDate:  &when,
		models.PropEndDate:    none,
		models.PropPriority:   &p,
		models.PropName:       "x",
		models.PropDeleteTime: nil,
	})
	assert.Equal(t, when, got[models.PropStartDate])
	assert.Nil(t, got[models.PropEndDate])
	assert.Equal(t, 5, got[models.PropPriority])
	assert.Equal(t, "x", got[models.PropName])
	_, present := got[models.PropDeleteTime]
	assert.True(t, present, "nil values must be kept so SET += removes the property")
}

func TestTaskProps(t *testing.T) {
	props := taskProps(models.Task{ID: "t9", Name: "n"})
	assert.Equal(t, "t9", props["id"])
	assert.Nil(t, props[models.PropStartDate])
	assert.Nil(t, props[models.PropPriority])
	assert.Equal(t, false, props[models.PropCheck])
}

func TestRecordHelpers(t *testing.T) {
	rec := &neo4j.Record{
		Keys:   []string{"n", "container", "found", "nodes", "containers"},
		Values: []any{int64(3), "trash", true, []any{node(map[string]any{"id": "a"}), nil}, []any{"root", nil}},
	}
	assert.Equal(t, []string{"root"}, recordStrings(rec, "containers"))
	assert.Equal(t, 3, recordInt(rec, "n"))
	assert.Equal(t, "trash", recordString(rec, "container"))
	assert.True(t, recordBool(rec, "found"))
	assert.Len(t, recordNodes(rec, "nodes"), 1)
	assert.Equal(t, 0, recordInt(rec, "missing"))
}
