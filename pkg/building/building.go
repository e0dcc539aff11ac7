// Package building provides the host building context: the walls, trusses
// and trims fixtures are placed on, with their world transforms.
package building

import (
	"fmt"
	"sort"

	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/surface"
)

// Default dimensions in centimeters.
const (
	DefaultWallThickness = 10
	DefaultTrimHeight    = 15
	DefaultPitch         = 4.0 / 12.0 // rise over run
	PlanThickness        = 0.5
)

// Dimensions describes a simple gable building.
type Dimensions struct {
	Style      string  `json:"style"`
	Width      float64 `json:"width"`  // X extent (front/back walls)
	Length     float64 `json:"length"` // Z extent (side walls)
	WallHeight float64 `json:"wall_height"`
	Pitch      float64 `json:"pitch"` // roof rise over run; 0 = DefaultPitch
}

// Building is the host context consumed by fixtures and the placement
// engine.
type Building struct {
	Style      string
	Width      float64
	Length     float64
	WallHeight float64

	walls    map[string]*surface.Surface
	trusses  map[string]*surface.Surface
	trims    map[string]*surface.Surface
	plans    map[string]*surface.Surface // wall ID -> plan overlay
	trussFor map[string]string           // wall ID -> truss ID above it
	trimFor  map[string]string           // wall ID -> trim ID along its top
}

// New returns an empty building.
func New(style string, width, length, wallHeight float64) *Building {
	return &Building{
		Style:      style,
		Width:      width,
		Length:     length,
		WallHeight: wallHeight,
		walls:      make(map[string]*surface.Surface),
		trusses:    make(map[string]*surface.Surface),
		trims:      make(map[string]*surface.Surface),
		plans:      make(map[string]*surface.Surface),
		trussFor:   make(map[string]string),
		trimFor:    make(map[string]string),
	}
}

// NewGable lays out four walls, a gable truss above the front and back
// walls and an eave trim along every wall. Each wall also gets a plan
// overlay that follows its cutouts.
//
// Front faces +Z at yaw 0, back faces -Z at 180, left faces -X at 90 and
// right faces +X at -90. Wall local origins sit at the wall center.
func NewGable(d Dimensions) (*Building, error) {
	if d.Width <= 0 || d.Length <= 0 || d.WallHeight <= 0 {
		return nil, fmt.Errorf("building: dimensions must be positive, got %.1fx%.1fx%.1f",
			d.Width, d.Length, d.WallHeight)
	}
	pitch := d.Pitch
	if pitch <= 0 {
		pitch = DefaultPitch
	}
	b := New(d.Style, d.Width, d.Length, d.WallHeight)

	type side struct {
		id    string
		width float64
		pos   geom.Vec3
		rot   float64
		gable bool
	}
	sides := []side{
		{"front", d.Width, geom.Vec3{X: 0, Z: d.Length / 2}, 0, true},
		{"back", d.Width, geom.Vec3{X: 0, Z: -d.Length / 2}, 180, true},
		{"left", d.Length, geom.Vec3{X: -d.Width / 2, Z: 0}, 90, false},
		{"right", d.Length, geom.Vec3{X: d.Width / 2, Z: 0}, -90, false},
	}
	for _, s := range sides {
		w := surface.New(s.id, surface.Wall, s.width, d.WallHeight)
		w.Thickness = DefaultWallThickness
		w.Position = s.pos
		w.Rotation = s.rot
		b.AddWall(w)
		b.AddPlan(w)

		trim := surface.New(s.id+"-trim", surface.Trim, s.width, DefaultTrimHeight)
		trim.Thickness = 2
		trim.Position = geom.Vec3{X: s.pos.X, Y: d.WallHeight - DefaultTrimHeight, Z: s.pos.Z}
		trim.Rotation = s.rot
		b.AddTrim(s.id, trim)

		if s.gable {
			rise := s.width / 2 * pitch
			truss := surface.New(s.id+"-truss", surface.Truss, s.width, rise)
			truss.Thickness = DefaultWallThickness
			truss.Position = geom.Vec3{X: s.pos.X, Y: d.WallHeight, Z: s.pos.Z}
			truss.Rotation = s.rot
			b.AddTruss(s.id, truss)
		}
	}
	return b, nil
}

// AddWall registers a wall.
func (b *Building) AddWall(w *surface.Surface) {
	b.walls[w.ID] = w
}

// AddPlan attaches a thin overlay panel to w that mirrors its clip stack,
// used for the translucent plan view.
func (b *Building) AddPlan(w *surface.Surface) *surface.Surface {
	plan := surface.New(w.ID+"-plan", surface.Wall, w.Width, w.Height)
	plan.Thickness = PlanThickness
	plan.Position = w.Position
	plan.Rotation = w.Rotation
	plan.Aspect = w.Aspect
	plan.CopyFrom(w)
	w.Overlay = plan
	b.plans[w.ID] = plan
	return plan
}

// AddTruss registers a truss and associates it with the wall below it.
// An empty wallID registers a free-standing truss.
func (b *Building) AddTruss(wallID string, t *surface.Surface) {
	b.trusses[t.ID] = t
	if wallID != "" {
		b.trussFor[wallID] = t.ID
	}
}

// AddTrim registers a trim and associates it with its wall.
func (b *Building) AddTrim(wallID string, t *surface.Surface) {
	b.trims[t.ID] = t
	if wallID != "" {
		b.trimFor[wallID] = t.ID
	}
}

// Wall returns the wall with the given ID, or nil.
func (b *Building) Wall(id string) *surface.Surface { return b.walls[id] }

// Truss returns the truss with the given ID, or nil.
func (b *Building) Truss(id string) *surface.Surface { return b.trusses[id] }

// Trim returns the trim with the given ID, or nil.
func (b *Building) Trim(id string) *surface.Surface { return b.trims[id] }

// Plan returns the plan overlay of the given wall, or nil.
func (b *Building) Plan(wallID string) *surface.Surface { return b.plans[wallID] }

// Plans returns every plan overlay sorted by ID. Plans are not part of
// Surfaces.
func (b *Building) Plans() []*surface.Surface {
	out := make([]*surface.Surface, 0, len(b.plans))
	for _, p := range b.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TrussAbove returns the truss over the given wall, or nil.
func (b *Building) TrussAbove(wallID string) *surface.Surface {
	return b.trusses[b.trussFor[wallID]]
}

// TrimOf returns the trim along the given wall, or nil.
func (b *Building) TrimOf(wallID string) *surface.Surface {
	return b.trims[b.trimFor[wallID]]
}

// Surface looks up any surface by kind and ID.
func (b *Building) Surface(kind surface.Kind, id string) *surface.Surface {
	switch kind {
	case surface.Wall:
		return b.Wall(id)
	case surface.Truss:
		return b.Truss(id)
	case surface.Trim:
		return b.Trim(id)
	}
	return nil
}

// Surfaces returns every surface sorted by kind then ID.
func (b *Building) Surfaces() []*surface.Surface {
	out := make([]*surface.Surface, 0, len(b.walls)+len(b.trusses)+len(b.trims))
	for _, m := range []map[string]*surface.Surface{b.walls, b.trusses, b.trims} {
		for _, s := range m {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].ID < out[j].ID
	})
	return out
}
