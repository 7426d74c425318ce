package do

import "fmt"

// Factory builds an unbound view for one (class, role) pair. The registry
// binds identity and invokes OnInit.
type Factory func() View

// ClassTable maps (class name, role) to a view factory.
type ClassTable struct {
	factories map[string]map[Role]Factory
}

func NewClassTable() *ClassTable {
	return &ClassTable{factories: make(map[string]map[Role]Factory)}
}

func (t *ClassTable) Register(class string, role Role, f Factory) {
	m := t.factories[class]
	if m == nil {
		m = make(map[Role]Factory)
		t.factories[class] = m
	}
	m[role] = f
}

func (t *ClassTable) lookup(class string, role Role) (Factory, bool) {
	f, ok := t.factories[class][role]
	return f, ok
}

type viewKey struct {
	doID uint32
	role Role
}

// Registry owns the views live in one process, indexed by (do_id, role).
// It is only touched from the process's cooperative loop, so it carries no
// locking.
type Registry struct {
	classes *ClassTable
	sender  Sender
	views   map[viewKey]View
	byID    map[uint32][]View // insertion order per do_id
}

func NewRegistry(classes *ClassTable, sender Sender) *Registry {
	return &Registry{
		classes: classes,
		sender:  sender,
		views:   make(map[viewKey]View),
		byID:    make(map[uint32][]View),
	}
}

type corer interface{ core() *Core }

func (c *Core) core() *Core { return c }

// Create instantiates and indexes a view. OnInit runs synchronously before
// Create returns.
func (r *Registry) Create(class string, doID, parentID, zoneID uint32, role Role) (View, error) {
	key := viewKey{doID, role}
	if _, ok := r.views[key]; ok {
		return nil, fmt.Errorf("%w: %s %d role %s", ErrDuplicateObject, class, doID, role)
	}
	f, ok := r.classes.lookup(class, role)
	if !ok {
		return nil, fmt.Errorf("%w: %s role %s", ErrUnknownClass, class, role)
	}
	v := f()
	cr, ok := v.(corer)
	if !ok {
		return nil, fmt.Errorf("do: view for %s does not embed do.Core", class)
	}
	cr.core().bind(doID, parentID, zoneID, role, r.sender)
	r.views[key] = v
	r.byID[doID] = append(r.byID[doID], v)
	v.OnInit()
	return v, nil
}

// Lookup returns the first live view of doID in this process, any role.
func (r *Registry) Lookup(doID uint32) (View, error) {
	vs := r.byID[doID]
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, doID)
	}
	return vs[0], nil
}

func (r *Registry) LookupRole(doID uint32, role Role) (View, error) {
	v, ok := r.views[viewKey{doID, role}]
	if !ok {
		return nil, fmt.Errorf("%w: %d role %s", ErrNotFound, doID, role)
	}
	return v, nil
}

// Views returns the live views of doID in insertion order.
func (r *Registry) Views(doID uint32) []View {
	return r.byID[doID]
}

// Destroy invalidates every view of doID. OnDelete runs synchronously per
// view before removal; subsequent lookups fail with ErrNotFound.
func (r *Registry) Destroy(doID uint32) error {
	vs := r.byID[doID]
	if len(vs) == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, doID)
	}
	for _, v := range vs {
		v.OnDelete()
		delete(r.views, viewKey{doID, v.Role()})
	}
	delete(r.byID, doID)
	return nil
}

// Contains reports whether any view of doID is live. The avatar id allocator
// scans with it.
func (r *Registry) Contains(doID uint32) bool {
	return len(r.byID[doID]) > 0
}
