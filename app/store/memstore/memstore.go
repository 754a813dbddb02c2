// Package memstore is an in-memory store.Store.
//
// Each owner gets its own shard guarded by its own RWMutex, so transactions
// of different owners never wait on each other. A write transaction
// snapshots the shard first and puts the snapshot back if fn fails.
//
// Parent edges are kept as sets rather than a single pointer so that a
// broken single-parent rule shows up in Parent and Verify instead of being
// silently overwritten.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"taskforest/app/errors"
	"taskforest/app/models"
	"taskforest/app/store"
)

type set map[string]struct{}

func (s set) sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type forest struct {
	mu       sync.RWMutex
	nodes    map[string]*models.Task
	parents  map[string]set // child -> parents
	children map[string]set // parent -> children
}

func newForest() *forest {
	f := &forest{
		nodes:    make(map[string]*models.Task),
		parents:  make(map[string]set),
		children: make(map[string]set),
	}
	for _, id := range []string{models.RootID, models.TrashID, models.ArchiveID} {
		f.nodes[id] = &models.Task{ID: id, Name: id, Container: true}
	}
	return f
}

type snapshot struct {
	nodes    map[string]*models.Task
	parents  map[string]set
	children map[string]set
}

func (f *forest) snapshot() snapshot {
	s := snapshot{
		nodes:    make(map[string]*models.Task, len(f.nodes)),
		parents:  copyEdges(f.parents),
		children: copyEdges(f.children),
	}
	for id, n := range f.nodes {
		c := *n
		s.nodes[id] = &c
	}
	return s
}

func (f *forest) restore(s snapshot) {
	f.nodes = s.nodes
	f.parents = s.parents
	f.children = s.children
}

func copyEdges(m map[string]set) map[string]set {
	out := make(map[string]set, len(m))
	for k, v := range m {
		c := make(set, len(v))
		for id := range v {
			c[id] = struct{}{}
		}
		out[k] = c
	}
	return out
}

// Store is the in-memory backend.
type Store struct {
	mu      sync.RWMutex
	forests map[string]*forest
}

var _ store.Store = (*Store)(nil)

// New creates an empty store with no owners.
func New() *Store {
	return &Store{forests: make(map[string]*forest)}
}

func (s *Store) Provision(ctx context.Context, owner string) error {
	if owner == "" {
		return errors.New(errors.ErrCodeInvalidInput, "owner must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.forests[owner]; !ok {
		s.forests[owner] = newForest()
	}
	return nil
}

func (s *Store) forest(owner string) (*forest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.forests[owner]
	if !ok {
		return nil, errors.New(errors.ErrCodeUserNotFound, "user %s is not provisioned", owner)
	}
	return f, nil
}

func (s *Store) ExecuteRead(ctx context.Context, owner string, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.forest(owner)
	if err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return fn(&tx{f: f})
}

func (s *Store) ExecuteWrite(ctx context.Context, owner string, fn func(tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := s.forest(owner)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(&tx{f: f, write: true}); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return nil
}

// Verify checks that the owner's forest satisfies the single-parent,
// acyclicity and stamp rules. It returns the first violation found.
func (s *Store) Verify(ctx context.Context, owner string) error {
	f, err := s.forest(owner)
	if err != nil {
		return err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.nodes))
	for id := range f.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		n := f.nodes[id]
		ps := f.parents[id]
		if n.Container {
			if len(ps) != 0 {
				return errors.New(errors.ErrCodeIntegrity, "container %s has a parent", id)
			}
			continue
		}
		if len(ps) != 1 {
			return errors.New(errors.ErrCodeIntegrity, "task %s has %d parents", id, len(ps))
		}
		container, err := (&tx{f: f}).ContainerOf(ctx, id)
		if err != nil {
			return err
		}
		if container == "" {
			return errors.New(errors.ErrCodeIntegrity, "task %s is not reachable from a container", id)
		}
		if (n.DeleteTime != nil) != (container == models.TrashID) {
			return errors.New(errors.ErrCodeIntegrity, "task %s under %s has deleteTime=%v", id, container, n.DeleteTime)
		}
		if (n.OriginalParentID != "") != (container == models.ArchiveID) {
			return errors.New(errors.ErrCodeIntegrity, "task %s under %s has originalParentId=%q", id, container, n.OriginalParentID)
		}
	}
	return nil
}

type tx struct {
	f     *forest
	write bool
}

func (t *tx) node(id string) (*models.Task, error) {
	n, ok := t.f.nodes[id]
	if !ok {
		return nil, errors.TaskNotFound(id)
	}
	return n, nil
}

func (t *tx) writable() error {
	if !t.write {
		return fmt.Errorf("memstore: write issued in a read transaction")
	}
	return nil
}

func (t *tx) collect(ids []string) []models.Task {
	out := make([]models.Task, 0, len(ids))
	for _, id := range ids {
		out = append(out, *t.f.nodes[id])
	}
	return out
}

func (t *tx) Get(ctx context.Context, id string) (*models.Task, error) {
	n, err := t.node(id)
	if err != nil {
		return nil, err
	}
	c := *n
	return &c, nil
}

func (t *tx) Parent(ctx context.Context, id string) (*models.Task, error) {
	if _, err := t.node(id); err != nil {
		return nil, err
	}
	ps := t.f.parents[id]
	switch len(ps) {
	case 0:
		return nil, nil
	case 1:
		return t.Get(ctx, ps.sorted()[0])
	default:
		return nil, errors.New(errors.ErrCodeIntegrity, "task %s has %d parents", id, len(ps))
	}
}

func (t *tx) Children(ctx context.Context, id string) ([]models.Task, error) {
	if _, err := t.node(id); err != nil {
		return nil, err
	}
	return t.collect(t.f.children[id].sorted()), nil
}

func (t *tx) Descendants(ctx context.Context, id string) ([]models.Task, error) {
	if _, err := t.node(id); err != nil {
		return nil, err
	}
	visited := set{id: {}}
	var order []string
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range t.f.children[cur].sorted() {
			if _, seen := visited[c]; seen {
				continue
			}
			visited[c] = struct{}{}
			order = append(order, c)
			queue = append(queue, c)
		}
	}
	return t.collect(order), nil
}

func (t *tx) PathToRoot(ctx context.Context, id string) ([]models.Task, error) {
	if _, err := t.node(id); err != nil {
		return nil, err
	}
	path := t.longestAscent(id, set{id: {}})
	if n := len(path); n > 0 && t.f.nodes[path[n-1]].Container {
		path = path[:n-1]
	}
	return t.collect(path), nil
}

// longestAscent returns the longest chain of ancestors above id that does not
// revisit a node already on the current path.
func (t *tx) longestAscent(id string, onPath set) []string {
	var best []string
	for _, p := range t.f.parents[id].sorted() {
		if _, ok := onPath[p]; ok {
			continue
		}
		onPath[p] = struct{}{}
		cand := append([]string{p}, t.longestAscent(p, onPath)...)
		delete(onPath, p)
		if len(cand) > len(best) {
			best = cand
		}
	}
	return best
}

func (t *tx) ContainerOf(ctx context.Context, id string) (string, error) {
	if _, err := t.node(id); err != nil {
		return "", err
	}
	visited := set{}
	cur := id
	for {
		if t.f.nodes[cur].Container {
			return cur, nil
		}
		if _, seen := visited[cur]; seen {
			return "", nil
		}
		visited[cur] = struct{}{}
		ps := t.f.parents[cur]
		switch len(ps) {
		case 0:
			return "", nil
		case 1:
			cur = ps.sorted()[0]
		default:
			return "", errors.New(errors.ErrCodeIntegrity, "task %s has %d parents", cur, len(ps))
		}
	}
}

func (t *tx) IsAncestor(ctx context.Context, ancestor, id string) (bool, error) {
	if _, err := t.node(id); err != nil {
		return false, err
	}
	visited := set{id: {}}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for p := range t.f.parents[cur] {
			if p == ancestor {
				return true, nil
			}
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return false, nil
}

func (t *tx) CreateNode(ctx context.Context, task models.Task) (*models.Task, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	if task.ID == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "task id must not be empty")
	}
	if _, ok := t.f.nodes[task.ID]; ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "task %s already exists", task.ID)
	}
	task.Container = false
	t.f.nodes[task.ID] = &task
	return t.Get(ctx, task.ID)
}

func (t *tx) UpdateFields(ctx context.Context, id string, fields models.Fields) (*models.Task, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}
	n, err := t.node(id)
	if err != nil {
		return nil, err
	}
	if err := apply(n, fields); err != nil {
		return nil, err
	}
	return t.Get(ctx, id)
}

func (t *tx) StampAll(ctx context.Context, ids []string, fields models.Fields) (int, error) {
	if err := t.writable(); err != nil {
		return 0, err
	}
	count := 0
	for _, id := range dedupe(ids) {
		n, ok := t.f.nodes[id]
		if !ok {
			continue
		}
		if err := apply(n, fields); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (t *tx) DeleteNode(ctx context.Context, id string) error {
	if err := t.writable(); err != nil {
		return err
	}
	n, err := t.node(id)
	if err != nil {
		return err
	}
	if n.Container {
		return errors.New(errors.ErrCodeInvalidReservedID, "container %s cannot be removed", id)
	}
	for p := range t.f.parents[id] {
		delete(t.f.children[p], id)
	}
	for c := range t.f.children[id] {
		delete(t.f.parents[c], id)
	}
	delete(t.f.parents, id)
	delete(t.f.children, id)
	delete(t.f.nodes, id)
	return nil
}

func (t *tx) DeleteNodes(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range dedupe(ids) {
		if n, ok := t.f.nodes[id]; !ok || n.Container {
			continue
		}
		if err := t.DeleteNode(ctx, id); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (t *tx) CreateEdge(ctx context.Context, parent, child string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, err := t.node(parent); err != nil {
		return err
	}
	c, err := t.node(child)
	if err != nil {
		return err
	}
	if parent == child {
		return errors.New(errors.ErrCodeIntegrity, "task %s cannot be its own parent", child)
	}
	if c.Container {
		return errors.New(errors.ErrCodeInvalidReservedID, "container %s cannot have a parent", child)
	}
	if t.f.parents[child] == nil {
		t.f.parents[child] = set{}
	}
	if t.f.children[parent] == nil {
		t.f.children[parent] = set{}
	}
	t.f.parents[child][parent] = struct{}{}
	t.f.children[parent][child] = struct{}{}
	return nil
}

func (t *tx) DeleteEdge(ctx context.Context, parent, child string) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.f.parents[child][parent]; !ok {
		return errors.New(errors.ErrCodeNotFound, "edge %s -> %s not found", parent, child)
	}
	delete(t.f.parents[child], parent)
	delete(t.f.children[parent], child)
	return nil
}

func dedupe(ids []string) []string {
	seen := make(set, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func apply(n *models.Task, fields models.Fields) error {
	var err error
	for k, v := range fields {
		switch k {
		case models.PropName:
			n.Name, err = asString(k, v)
		case models.PropMemo:
			n.Memo, err = asString(k, v)
		case models.PropOriginalParentID:
			n.OriginalParentID, err = asString(k, v)
		case models.PropStartDate:
			n.StartDate, err = asTime(k, v)
		case models.PropEndDate:
			n.EndDate, err = asTime(k, v)
		case models.PropDeleteTime:
			n.DeleteTime, err = asTime(k, v)
		case models.PropPriority:
			n.Priority, err = asInt(k, v)
		case models.PropCheck:
			n.Check, err = asBool(k, v)
		case models.PropArchive:
			n.Archive, err = asBool(k, v)
		default:
			err = fmt.Errorf("memstore: unknown property %q", k)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func asString(key string, v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	}
	return "", fmt.Errorf("memstore: property %q: want string, got %T", key, v)
}

func asTime(key string, v any) (*time.Time, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		c := *t
		return &c, nil
	}
	return nil, fmt.Errorf("memstore: property %q: want time, got %T", key, v)
}

func asInt(key string, v any) (*int, error) {
	switch i := v.(type) {
	case nil:
		return nil, nil
	case int:
		return &i, nil
	case int64:
		c := int(i)
		return &c, nil
	case *int:
		if i == nil {
			return nil, nil
		}
		c := *i
		return &c, nil
	}
	return nil, fmt.Errorf("memstore: property %q: want int, got %T", key, v)
}

func asBool(key string, v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, fmt.Errorf("memstore: property %q: want bool, got %T", key, v)
}
