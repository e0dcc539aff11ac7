package fixture

import (
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/material"
	"github.com/chazu/openings/pkg/model"
	"github.com/chazu/openings/pkg/orient"
	"github.com/chazu/openings/pkg/placement"
	"github.com/chazu/openings/pkg/surface"
	"github.com/lucasb-eyer/go-colorful"
)

// Core is the state shared by every fixture variant. All methods are safe
// for concurrent use; geometry mutations complete synchronously, including
// their clip pushes and pops.
type Core struct {
	mu sync.Mutex

	id     string
	spec   catalog.Fixture
	deps   Deps
	logger *log.Logger
	alert  colorful.Color

	model       *model.Model
	position    geom.Vec3
	rotation    float64
	positioned  bool
	orientation orient.Flags
	initial     orient.Flags // catalog orientation; the primary icon shows it
	forbidden   bool
	hidden      bool
	refHeight   float64
	refWidth    float64

	hosts map[surface.Kind]*surface.Surface
	// claims maps each host kind to the handle of the region this fixture
	// pushed there.
	// At most one region per surface kind is ever claimed.
	claims map[surface.Kind]surface.Handle

	materials  map[catalog.Role]*material.Material
	overrides  map[catalog.Role]bool
	generation uint64
	lastColor  *material.ColorRequest

	disposed bool
}

func (c *Core) ID() string { return c.id }
func (c *Core) TypeID() string { return c.spec.ID }
func (c *Core) Kind() catalog.Kind { return c.spec.Kind }
func (c *Core) Spec() catalog.Fixture { return c.spec }
func (c *Core) Model() *model.Model { return c.model }

// Reference returns the building height and width given at construction.
func (c *Core) Reference() (height, width float64) { return c.refHeight, c.refWidth }

func (c *Core) Position() geom.Vec3 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.position
}

func (c *Core) Rotation() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotation
}

// State reports Placed once the fixture has a primary host. Cupolas have no
// host and count as placed once positioned.
func (c *Core) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	pk, hosted := c.spec.Kind.Host()
	if !hosted {
		if c.positioned {
			return Placed
		}
		return Unplaced
	}
	if c.hosts[pk] != nil {
		return Placed
	}
	return Unplaced
}

// Host returns the assigned surface of kind k, or nil.
func (c *Core) Host(k surface.Kind) *surface.Surface {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hosts[k]
}

// Claims returns the surface kinds this fixture currently cuts.
func (c *Core) Claims() []surface.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []surface.Kind
	for _, k := range surface.Kinds {
		if _, ok := c.claims[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

// SetPosition moves the fixture: every owned region is popped, and the
// recomputed regions are pushed.
func (c *Core) SetPosition(p geom.Vec3) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return Result{}, ErrDisposed
	}
	var res Result
	c.release(&res, surface.Kinds...)
	c.position = p
	c.positioned = true
	c.claim(&res, surface.Kinds...)
	return res, nil
}

// SetRotation sets the yaw in degrees. A yaw off the supported angles is
// kept but leaves the hosts uncut; Result.Warning says so.
func (c *Core) SetRotation(deg float64) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return Result{}, ErrDisposed
	}
	var res Result
	c.release(&res, surface.Kinds...)
	c.rotation = deg
	c.claim(&res, surface.Kinds...)
	return res, nil
}

// SetHostWall assigns the host wall; nil clears it.
func (c *Core) SetHostWall(s *surface.Surface) (Result, error) {
	return c.setHost(surface.Wall, s)
}

// SetHostTruss assigns the truss above the host wall, or a vent's host; nil
// clears it.
func (c *Core) SetHostTruss(s *surface.Surface) (Result, error) {
	return c.setHost(surface.Truss, s)
}

// SetHostTrim assigns the trim along the host wall; nil clears it.
func (c *Core) SetHostTrim(s *surface.Surface) (Result, error) {
	return c.setHost(surface.Trim, s)
}

// accepts reports whether surfaces of kind k may be assigned.
func (c *Core) accepts(k surface.Kind) bool {
	pk, hosted := c.spec.Kind.Host()
	switch {
	case !hosted:
		return false
	case pk == surface.Wall:
		return true
	default:
		return k == pk
	}
}

func (c *Core) setHost(k surface.Kind, s *surface.Surface) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return Result{}, ErrDisposed
	}
	if !c.accepts(k) {
		return Result{}, fmt.Errorf("%w: %s cannot take a %s", ErrWrongHost, c.spec.Kind, k)
	}
	if s != nil && s.Kind != k {
		return Result{}, fmt.Errorf("%w: %s %q assigned as %s", ErrWrongHost, s.Kind, s.ID, k)
	}

	// Secondary cuts are derived from the primary host's frame, so a new
	// primary host invalidates all of them.
	kinds := []surface.Kind{k}
	if pk, _ := c.spec.Kind.Host(); k == pk {
		kinds = surface.Kinds
	}

	var res Result
	c.release(&res, kinds...)
	if s == nil {
		delete(c.hosts, k)
	} else {
		c.hosts[k] = s
	}
	c.claim(&res, kinds...)
	return res, nil
}

// setHidden releases or restores every cut without touching host references.
func (c *Core) setHidden(hidden bool) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return Result{}, ErrDisposed
	}
	var res Result
	if c.hidden == hidden {
		return res, nil
	}
	if hidden {
		c.release(&res, surface.Kinds...)
		c.hidden = true
		return res, nil
	}
	c.hidden = false
	c.claim(&res, surface.Kinds...)
	return res, nil
}

// release removes the region this fixture pushed on each of kinds, leaving
// regions owned by other fixtures in place. A claimed region missing from
// the host means the clip stack was corrupted by someone else; that is a
// programming error and panics.
func (c *Core) release(res *Result, kinds ...surface.Kind) {
	for _, k := range kinds {
		h, claimed := c.claims[k]
		if !claimed {
			continue
		}
		host := c.hosts[k]
		if host == nil || !host.Release(h) {
			panic(fmt.Errorf("fixture %s: pop %s: %w", c.id, k, surface.ErrClipStackUnderflow))
		}
		delete(c.claims, k)
		res.Popped = append(res.Popped, k)
	}
}

// claim computes the clip set and pushes the regions for kinds that are
// assigned and not already claimed.
func (c *Core) claim(res *Result, kinds ...surface.Kind) {
	pk, hosted := c.spec.Kind.Host()
	if !hosted || c.hidden {
		return
	}
	host := c.hosts[pk]
	if host == nil {
		return
	}

	height := host.Height
	if height <= 0 {
		height = c.refHeight
	}
	in := placement.Input{
		CutBox:   c.spec.CutBox,
		Position: c.position,
		Rotation: c.rotation,
		Host:     placement.Frame{Position: host.Position, Height: height},
		DoorLike: c.spec.Kind.DoorLike(),
	}
	if pk == surface.Wall {
		if t := c.hosts[surface.Truss]; t != nil {
			in.Truss = &placement.TrussFrame{Aspect: t.Aspect}
		}
		if t := c.hosts[surface.Trim]; t != nil {
			in.Trim = &placement.TrimFrame{Height: t.Height}
		}
	}

	clips, err := c.deps.Placement.Compute(in)
	if err != nil {
		res.Warning = fmt.Errorf("fixture %s: %w", c.id, err)
		c.logger.Printf("warning: %v; %s %q left uncut", res.Warning, pk, host.ID)
		return
	}

	for _, k := range kinds {
		if _, claimed := c.claims[k]; claimed || c.hosts[k] == nil {
			continue
		}
		var r *geom.Rect
		switch k {
		case pk:
			r = &clips.Host
		case surface.Truss:
			r = clips.Truss
		case surface.Trim:
			r = clips.Trim
		}
		if r == nil {
			continue
		}
		c.claims[k] = c.hosts[k].Push(*r)
		res.Pushed = append(res.Pushed, k)
	}
}

// Footprint returns the fixture's plan box: its model bounds rotated by the
// yaw and moved to the position, in world X/Z.
func (c *Core) Footprint() geom.Rect {
	c.mu.Lock()
	defer c.mu.Unlock()

	b := c.model.Bounds
	rad := c.rotation * math.Pi / 180
	sin, cos := math.Sincos(rad)

	out := geom.Rect{
		Min: geom.Vec2{X: math.Inf(1), Y: math.Inf(1)},
		Max: geom.Vec2{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, x := range [2]float64{b.Min.X, b.Max.X} {
		for _, z := range [2]float64{b.Min.Z, b.Max.Z} {
			wx := c.position.X + x*cos + z*sin
			wz := c.position.Z - x*sin + z*cos
			out.Min.X = math.Min(out.Min.X, wx)
			out.Min.Y = math.Min(out.Min.Y, wz)
			out.Max.X = math.Max(out.Max.X, wx)
			out.Max.Y = math.Max(out.Max.Y, wz)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Orientation
// ---------------------------------------------------------------------------

func (c *Core) Orientation() orient.Flags {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orientation
}

// Reverse swaps the hinge side and the visible plan icon.
func (c *Core) Reverse() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if !c.spec.Kind.Orientable() {
		return fmt.Errorf("%w: %s", ErrNotReversible, c.spec.Kind)
	}
	c.orientation = orient.Mirror(c.orientation)
	return nil
}

func (c *Core) mirroredLocked() bool {
	const hinge = orient.Left | orient.Right
	return c.orientation&hinge != c.initial&hinge
}

// Icons returns the primary and mirrored plan icons; exactly one is visible.
func (c *Core) Icons() [2]PlanIcon {
	c.mu.Lock()
	defer c.mu.Unlock()
	m := c.mirroredLocked()
	return [2]PlanIcon{
		{Name: c.spec.ID + "-plan", Visible: !m},
		{Name: c.spec.ID + "-plan-mirrored", Mirrored: true, Visible: m},
	}
}

// ---------------------------------------------------------------------------
// Presentation
// ---------------------------------------------------------------------------

func (c *Core) PlacementForbidden() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forbidden
}

// SetPlacementForbidden recolors the primary materials to the alert color,
// or back to white. Geometry and clips are untouched.
func (c *Core) SetPlacementForbidden(forbidden bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.forbidden == forbidden || c.disposed {
		return
	}
	c.forbidden = forbidden
	for role, m := range c.materials {
		if role.Primary() && !c.overrides[role] {
			m.Color = c.tintLocked(role)
			m.NeedsUpdate = true
		}
	}
}

func (c *Core) tintLocked(role catalog.Role) colorful.Color {
	if c.forbidden && role.Primary() {
		return c.alert
	}
	return material.White
}

// Dispose releases every cutout and frees the model's meshes. In-flight
// color requests are discarded. Disposing twice is a no-op.
func (c *Core) Dispose() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	var res Result
	if c.disposed {
		return res
	}
	c.release(&res, surface.Kinds...)
	c.model.Dispose()
	for role := range c.materials {
		delete(c.materials, role)
	}
	c.generation++
	c.disposed = true
	return res
}

// Disposed reports whether Dispose has run.
func (c *Core) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
