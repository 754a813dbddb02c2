package neo4jstore

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"taskforest/app/models"
)

const propContainer = "container"

func nodeToTask(n dbtype.Node) models.Task {
	p := n.Props
	return models.Task{
		ID:               propString(p, "id"),
		Name:             propString(p, models.PropName),
		Memo:             propString(p, models.PropMemo),
		StartDate:        propTime(p, models.PropStartDate),
		EndDate:          propTime(p, models.PropEndDate),
		Priority:         propInt(p, models.PropPriority),
		Check:            propBool(p, models.PropCheck),
		Archive:          propBool(p, models.PropArchive),
		DeleteTime:       propTime(p, models.PropDeleteTime),
		OriginalParentID: propString(p, models.PropOriginalParentID),
		Container:        propBool(p, propContainer),
	}
}

// taskProps is the property map of a new node.
func taskProps(t models.Task) map[string]any {
	return map[string]any{
		"id":                 t.ID,
		models.PropName:      t.Name,
		models.PropMemo:      t.Memo,
		models.PropStartDate: models.TimeValue(t.StartDate),
		models.PropEndDate:   models.TimeValue(t.EndDate),
		models.PropPriority:  models.IntValue(t.Priority),
		models.PropCheck:     t.Check,
		models.PropArchive:   t.Archive,
	}
}

// fieldParams normalizes a patch to driver parameter types.
func fieldParams(fields models.Fields) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		switch x := v.(type) {
		case *time.Time:
			out[k] = models.TimeValue(x)
		case *int:
			out[k] = models.IntValue(x)
		case *string:
			if x == nil {
				out[k] = nil
			} else {
				out[k] = *x
			}
		default:
			out[k] = v
		}
	}
	return out
}

func recordNode(rec *neo4j.Record, key string) (dbtype.Node, bool) {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return dbtype.Node{}, false
	}
	n, ok := v.(dbtype.Node)
	return n, ok
}

// recordNodes reads a list column, skipping nulls.
func recordNodes(rec *neo4j.Record, key string) []dbtype.Node {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]dbtype.Node, 0, len(list))
	for _, item := range list {
		if n, ok := item.(dbtype.Node); ok {
			out = append(out, n)
		}
	}
	return out
}

func recordStrings(rec *neo4j.Record, key string) []string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func recordInt(rec *neo4j.Record, key string) int {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	switch i := v.(type) {
	case int64:
		return int(i)
	case int:
		return i
	}
	return 0
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recordBool(rec *neo4j.Record, key string) bool {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return false
	}
	b, _ := v.(bool)
	return b
}

// ancestorsFromPath turns nodes(path), ordered top node first and t last,
// into t's ancestors nearest first without the owning container.
func ancestorsFromPath(path []dbtype.Node) []models.Task {
	if len(path) < 2 {
		return []models.Task{}
	}
	out := make([]models.Task, 0, len(path)-1)
	for i := len(path) - 2; i >= 0; i-- {
		t := nodeToTask(path[i])
		if t.Container {
			break
		}
		out = append(out, t)
	}
	return out
}

func propString(p map[string]any, key string) string {
	s, _ := p[key].(string)
	return s
}

func propBool(p map[string]any, key string) bool {
	b, _ := p[key].(bool)
	return b
}

func propInt(p map[string]any, key string) *int {
	switch v := p[key].(type) {
	case int64:
		i := int(v)
		return &i
	case int:
		return &v
	}
	return nil
}

func propTime(p map[string]any, key string) *time.Time {
	var t time.Time
	switch v := p[key].(type) {
	case time.Time:
		t = v
	case dbtype.LocalDateTime:
		t = time.Time(v)
	case dbtype.Date:
		t = time.Time(v)
	default:
		return nil
	}
	return &t
}
