// Package tessellate turns a building's host surfaces into triangle meshes
// using a geometry kernel. One mesh is produced per surface, with every
// clip region on its stack cut through the panel.
package tessellate

import (
	"fmt"

	"github.com/chazu/openings/pkg/building"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/kernel"
	"github.com/chazu/openings/pkg/surface"
)

// transformStack accumulates spatial transforms while descending from the
// building frame into each surface frame.
type transformStack struct {
	translations []geom.Vec3
	rotations    []float64
}

func newTransformStack() *transformStack {
	return &transformStack{}
}

func (ts *transformStack) push(translation geom.Vec3, yaw float64) {
	ts.translations = append(ts.translations, translation)
	ts.rotations = append(ts.rotations, yaw)
}

func (ts *transformStack) pop() {
	if len(ts.translations) > 0 {
		ts.translations = ts.translations[:len(ts.translations)-1]
	}
	if len(ts.rotations) > 0 {
		ts.rotations = ts.rotations[:len(ts.rotations)-1]
	}
}

// accumulatedTranslation returns the sum of all translations on the stack.
func (ts *transformStack) accumulatedTranslation() geom.Vec3 {
	var sum geom.Vec3
	for _, t := range ts.translations {
		sum = sum.Add(t)
	}
	return sum
}

// accumulatedRotation returns the sum of all yaws on the stack.
func (ts *transformStack) accumulatedRotation() float64 {
	var sum float64
	for _, r := range ts.rotations {
		sum += r
	}
	return sum
}

// Options adjust tessellation.
type Options struct {
	// Origin offsets the whole building in world space.
	Origin geom.Vec3
	// Kinds limits output to these surface kinds; empty means all.
	Kinds []surface.Kind
	// Plans selects the wall plan overlays instead of the host surfaces.
	Plans bool
}

// Tessellate produces one mesh per surface of b, named by surface ID. The
// tessellator only reads the clip stacks.
func Tessellate(b *building.Building, k kernel.Kernel) ([]*kernel.Mesh, error) {
	return TessellateWith(b, k, Options{})
}

// TessellateWith is Tessellate with options.
func TessellateWith(b *building.Building, k kernel.Kernel, opts Options) ([]*kernel.Mesh, error) {
	if b == nil {
		return nil, nil
	}

	ts := newTransformStack()
	ts.push(opts.Origin, 0)
	defer ts.pop()

	surfaces := b.Surfaces()
	if opts.Plans {
		surfaces = b.Plans()
	}

	var meshes []*kernel.Mesh
	for _, s := range surfaces {
		if !wanted(s.Kind, opts.Kinds) {
			continue
		}
		ts.push(s.Position, s.Rotation)
		mesh, err := panel(k, s, ts)
		ts.pop()
		if err != nil {
			return nil, fmt.Errorf("tessellate: surface %s: %w", s.ID, err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func wanted(k surface.Kind, kinds []surface.Kind) bool {
	if len(kinds) == 0 {
		return true
	}
	for _, w := range kinds {
		if w == k {
			return true
		}
	}
	return false
}

// panel builds the surface slab centered on its local origin and subtracts
// the union of one box per clip region. Region X is divided by the surface aspect to get
// back to panel units.
func panel(k kernel.Kernel, s *surface.Surface, ts *transformStack) (*kernel.Mesh, error) {
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("degenerate panel %.1fx%.1f", s.Width, s.Height)
	}
	thickness := s.Thickness
	if thickness <= 0 {
		thickness = 1
	}
	aspect := s.Aspect
	if aspect <= 0 {
		aspect = 1
	}

	solid := k.Translate(k.Box(s.Width, s.Height, thickness), -s.Width/2, 0, -thickness/2)
	var holes kernel.Solid
	for _, r := range s.Regions() {
		hole := clampRegion(geom.R(r.Min.X/aspect, r.Min.Y, r.Max.X/aspect, r.Max.Y), s)
		if hole.Empty() {
			continue
		}
		cut := k.Box(hole.Width(), hole.Height(), thickness+2)
		cut = k.Translate(cut, hole.Min.X, hole.Min.Y, -thickness/2-1)
		if holes == nil {
			holes = cut
		} else {
			holes = k.Union(holes, cut)
		}
	}
	if holes != nil {
		solid = k.Difference(solid, holes)
	}

	// Apply accumulated rotation first, then translation.
	if yaw := ts.accumulatedRotation(); yaw != 0 {
		solid = k.Rotate(solid, 0, yaw, 0)
	}
	if t := ts.accumulatedTranslation(); t != (geom.Vec3{}) {
		solid = k.Translate(solid, t.X, t.Y, t.Z)
	}

	mesh, err := k.ToMesh(solid)
	if err != nil {
		return nil, fmt.Errorf("ToMesh: %w", err)
	}
	mesh.Name = s.ID
	return mesh, nil
}

// clampRegion limits r to the panel. A region reaching an edge is pushed
// past it by a margin so the cut opens the edge cleanly.
func clampRegion(r geom.Rect, s *surface.Surface) geom.Rect {
	const margin = 1
	minX, maxX := -s.Width/2-margin, s.Width/2+margin
	minY, maxY := -float64(margin), s.Height+margin
	if r.Min.X <= -s.Width/2 {
		r.Min.X = minX
	}
	if r.Max.X >= s.Width/2 {
		r.Max.X = maxX
	}
	if r.Min.Y <= 0 {
		r.Min.Y = minY
	}
	if r.Max.Y >= s.Height {
		r.Max.Y = maxY
	}
	return geom.R(
		clamp(r.Min.X, minX, maxX), clamp(r.Min.Y, minY, maxY),
		clamp(r.Max.X, minX, maxX), clamp(r.Max.Y, minY, maxY),
	)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
