package zenith

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
)

var (
	ErrUnknownObject   = errors.New("unknown game object")
	ErrObjectDestroyed = errors.New("game object destroyed")
	ErrCycle           = errors.New("parenting would create a cycle")
	ErrNotChild        = errors.New("object is not a child of the given parent")
)

// ObjectDestroyedEvent is delivered to listeners after an object is removed.
type ObjectDestroyedEvent struct {
	Id     GameObjectId
	Name   string
	Parent GameObjectId
}

// Scene is the arena owning every GameObject. Parent and child links are ids
// into the arena; a child has at most one parent and no object can become its
// own ancestor.
type Scene struct {
	mu      sync.RWMutex
	objects map[GameObjectId]*GameObject
	roots   []GameObjectId
	nextId  GameObjectId

	structureVersion atomic.Uint64

	listenersMu sync.Mutex
	listeners   []func(ObjectDestroyedEvent)
}

func NewScene() *Scene {
	return &Scene{objects: make(map[GameObjectId]*GameObject)}
}

// NewGameObject adds a root object with an identity transform.
func (s *Scene) NewGameObject(name string) *GameObject {
	s.mu.Lock()
	s.nextId++
	o := newGameObject(s, s.nextId, name)
	s.objects[o.id] = o
	s.roots = append(s.roots, o.id)
	s.mu.Unlock()

	s.bumpStructure()
	return o
}

func (s *Scene) Get(id GameObjectId) (*GameObject, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[id]
	return o, ok
}

func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Roots returns the top-level objects in insertion order.
func (s *Scene) Roots() []GameObjectId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.roots)
}

func (s *Scene) Children(id GameObjectId) []GameObjectId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if o, ok := s.objects[id]; ok {
		return slices.Clone(o.children)
	}
	return nil
}

func (s *Scene) Parent(id GameObjectId) GameObjectId {
	if o, ok := s.Get(id); ok {
		return o.Parent()
	}
	return NoObject
}

// StructureVersion changes whenever objects are added, removed, reparented,
// activated, deactivated, or gain or lose a graphics component.
func (s *Scene) StructureVersion() uint64 {
	return s.structureVersion.Load()
}

func (s *Scene) bumpStructure() {
	s.structureVersion.Add(1)
}

func (s *Scene) lookupLocked(id GameObjectId) (*GameObject, error) {
	o, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownObject, id)
	}
	if o.destroyed.Load() {
		return nil, fmt.Errorf("%w: %v", ErrObjectDestroyed, id)
	}
	return o, nil
}

// AddChild moves child under parent, detaching it from its previous parent.
func (s *Scene) AddChild(parent, child GameObjectId) error {
	s.mu.Lock()
	p, err := s.lookupLocked(parent)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	c, err := s.lookupLocked(child)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for a := p; a != nil; a = a.parent.Load() {
		if a == c {
			s.mu.Unlock()
			return fmt.Errorf("%w: %v under %v", ErrCycle, child, parent)
		}
	}

	s.detachLocked(c)
	p.children = append(p.children, c.id)
	c.parent.Store(p)
	s.mu.Unlock()

	s.bumpStructure()
	c.CalculateDerivedData()
	return nil
}

// RemoveChild detaches child from parent; the child becomes a root.
func (s *Scene) RemoveChild(parent, child GameObjectId) error {
	s.mu.Lock()
	p, err := s.lookupLocked(parent)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	c, err := s.lookupLocked(child)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if c.parent.Load() != p {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v of %v", ErrNotChild, child, parent)
	}

	s.detachLocked(c)
	s.roots = append(s.roots, c.id)
	s.mu.Unlock()

	s.bumpStructure()
	c.CalculateDerivedData()
	return nil
}

// detachLocked unlinks o from its parent, or from the root list.
func (s *Scene) detachLocked(o *GameObject) {
	if p := o.parent.Load(); p != nil {
		p.children = slices.DeleteFunc(p.children, func(id GameObjectId) bool { return id == o.id })
		o.parent.Store(nil)
		return
	}
	s.roots = slices.DeleteFunc(s.roots, func(id GameObjectId) bool { return id == o.id })
}

// Destroy removes id and its whole subtree, children first, and notifies
// listeners in removal order.
func (s *Scene) Destroy(id GameObjectId) error {
	s.mu.Lock()
	o, err := s.lookupLocked(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	var events []ObjectDestroyedEvent
	var destroy func(o *GameObject)
	destroy = func(o *GameObject) {
		for _, cid := range slices.Clone(o.children) {
			if c, ok := s.objects[cid]; ok {
				destroy(c)
			}
		}
		events = append(events, ObjectDestroyedEvent{Id: o.id, Name: o.name, Parent: o.Parent()})
		s.detachLocked(o)
		o.children = nil
		o.destroyed.Store(true)
		o.clearComponents()
		delete(s.objects, o.id)
	}
	destroy(o)
	s.mu.Unlock()

	s.bumpStructure()

	s.listenersMu.Lock()
	listeners := slices.Clone(s.listeners)
	s.listenersMu.Unlock()
	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
	return nil
}

// OnObjectDestroyed registers fn to be called for every destroyed object.
func (s *Scene) OnObjectDestroyed(fn func(ObjectDestroyedEvent)) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, fn)
	s.listenersMu.Unlock()
}

// Walk visits every object depth-first, parents before children, in child
// order. Returning false from fn skips the object's subtree. The scene may be
// modified from fn; changes to unvisited parts may or may not be observed.
func (s *Scene) Walk(fn func(o *GameObject, depth int) bool) {
	s.walkIds(s.Roots(), 0, false, fn)
}

// WalkReverse is Walk with children visited last to first.
func (s *Scene) WalkReverse(fn func(o *GameObject, depth int) bool) {
	s.walkIds(s.Roots(), 0, true, fn)
}

func (s *Scene) walkIds(ids []GameObjectId, depth int, reverse bool, fn func(*GameObject, int) bool) {
	if reverse {
		slices.Reverse(ids)
	}
	for _, id := range ids {
		o, ok := s.Get(id)
		if !ok {
			continue
		}
		if !fn(o, depth) {
			continue
		}
		s.walkIds(s.Children(id), depth+1, reverse, fn)
	}
}
