package solver

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mlange-42/ark/ecs"
)

// Position is an emitter's location in grid cells.
type Position struct {
	mgl32.Vec3
}

// Source is what an emitter injects per step within its radius.
type Source struct {
	Radius      float32
	Temperature float32
	Density     float32
}

// Emitters is the set of impulse sources, stored as entities so the host
// can add and remove them between steps.
type Emitters struct {
	world  *ecs.World
	mapper *ecs.Map2[Position, Source]
	filter *ecs.Filter2[Position, Source]
}

// NewEmitters creates an emitter set seeded with impulses.
func NewEmitters(impulses []Impulse) *Emitters {
	world := ecs.NewWorld()
	e := &Emitters{
		world:  world,
		mapper: ecs.NewMap2[Position, Source](world),
		filter: ecs.NewFilter2[Position, Source](world),
	}
	for _, imp := range impulses {
		e.Add(imp)
	}
	return e
}

// Add creates an emitter and returns its entity.
func (e *Emitters) Add(imp Impulse) ecs.Entity {
	pos := Position{imp.Position}
	src := Source{Radius: imp.Radius, Temperature: imp.Temperature, Density: imp.Density}
	return e.mapper.NewEntity(&pos, &src)
}

// Remove deletes an emitter. Removing a dead entity is a no-op.
func (e *Emitters) Remove(entity ecs.Entity) {
	if e.world.Alive(entity) {
		e.world.RemoveEntity(entity)
	}
}

// Move relocates an emitter.
func (e *Emitters) Move(entity ecs.Entity, to mgl32.Vec3) {
	if !e.world.Alive(entity) {
		return
	}
	pos, _ := e.mapper.Get(entity)
	pos.Vec3 = to
}

// Each calls fn for every live emitter.
func (e *Emitters) Each(fn func(Impulse)) {
	query := e.filter.Query()
	for query.Next() {
		pos, src := query.Get()
		fn(Impulse{
			Position:    pos.Vec3,
			Radius:      src.Radius,
			Temperature: src.Temperature,
			Density:     src.Density,
		})
	}
}

// Len returns the number of live emitters.
func (e *Emitters) Len() int {
	n := 0
	e.Each(func(Impulse) { n++ })
	return n
}
