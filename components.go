package zenith

import "fmt"

type ComponentKind uint8

const (
	GraphicsKind ComponentKind = iota + 1
	RigidBodyKind
	LifetimeKind
)

func (k ComponentKind) String() string {
	switch k {
	case GraphicsKind:
		return "graphics"
	case RigidBodyKind:
		return "rigidbody"
	case LifetimeKind:
		return "lifetime"
	}
	return fmt.Sprintf("ComponentKind(%d)", uint8(k))
}

// Component is data attached to a GameObject, at most one per kind.
type Component interface {
	Kind() ComponentKind
}

// GraphicsComponent gives an object a drawable model and, through the model's
// local bounds, a world AABB.
type GraphicsComponent struct {
	Model   *ModelAsset
	Visible bool
}

func (*GraphicsComponent) Kind() ComponentKind { return GraphicsKind }

// RigidBodyComponent marks an object as driven by the physics engine.
type RigidBodyComponent struct {
	Static bool
	Mass   float32
}

func (*RigidBodyComponent) Kind() ComponentKind { return RigidBodyKind }

// LifetimeComponent allows an object to automatically be destroyed after a set duration.
type LifetimeComponent struct {
	// Seconds
	TimeLeft float32
}

func (*LifetimeComponent) Kind() ComponentKind { return LifetimeKind }

// AddComponent attaches c, replacing any component of the same kind.
func (o *GameObject) AddComponent(c Component) {
	o.compMu.Lock()
	o.components[c.Kind()] = c
	o.compMu.Unlock()

	if c.Kind() == GraphicsKind {
		o.CalculateDerivedData()
		o.scene.bumpStructure()
	}
}

// RemoveComponent detaches the component of the given kind, if any.
func (o *GameObject) RemoveComponent(kind ComponentKind) bool {
	o.compMu.Lock()
	_, ok := o.components[kind]
	delete(o.components, kind)
	o.compMu.Unlock()

	if ok && kind == GraphicsKind {
		o.CalculateDerivedData()
		o.scene.bumpStructure()
	}
	return ok
}

func (o *GameObject) Component(kind ComponentKind) (Component, bool) {
	o.compMu.RLock()
	defer o.compMu.RUnlock()
	c, ok := o.components[kind]
	return c, ok
}

func (o *GameObject) Graphics() *GraphicsComponent {
	c, _ := o.Component(GraphicsKind)
	g, _ := c.(*GraphicsComponent)
	return g
}

func (o *GameObject) RigidBody() *RigidBodyComponent {
	c, _ := o.Component(RigidBodyKind)
	rb, _ := c.(*RigidBodyComponent)
	return rb
}

func (o *GameObject) Lifetime() *LifetimeComponent {
	c, _ := o.Component(LifetimeKind)
	lt, _ := c.(*LifetimeComponent)
	return lt
}

func (o *GameObject) clearComponents() {
	o.compMu.Lock()
	clear(o.components)
	o.compMu.Unlock()
}
