package tessellate_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/chazu/openings/pkg/building"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/kernel"
	"github.com/chazu/openings/pkg/kernel/sdfx"
	"github.com/chazu/openings/pkg/surface"
	"github.com/chazu/openings/pkg/tessellate"
)

// opSolid records the operations that built it.
type opSolid struct{ ops []string }

func (s *opSolid) BoundingBox() (min, max [3]float64) { return }

func (s *opSolid) with(op string) *opSolid {
	return &opSolid{ops: append(append([]string(nil), s.ops...), op)}
}

// recordingKernel emits a one-triangle mesh whose name is unset, and keeps
// the op log of every meshed solid.
type recordingKernel struct {
	meshed [][]string
	fail   bool
}

var _ kernel.Kernel = (*recordingKernel)(nil)

func (k *recordingKernel) Box(x, y, z float64) kernel.Solid {
	return &opSolid{ops: []string{fmt.Sprintf("box %g %g %g", x, y, z)}}
}

func (k *recordingKernel) Union(a, b kernel.Solid) kernel.Solid {
	return a.(*opSolid).with("plus(" + strings.Join(b.(*opSolid).ops, "; ") + ")")
}

func (k *recordingKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return a.(*opSolid).with("minus(" + strings.Join(b.(*opSolid).ops, "; ") + ")")
}

func (k *recordingKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return s.(*opSolid).with(fmt.Sprintf("move %g %g %g", x, y, z))
}

func (k *recordingKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid {
	return s.(*opSolid).with(fmt.Sprintf("rotate %g %g %g", x, y, z))
}

func (k *recordingKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	if k.fail {
		return nil, errors.New("mesher exploded")
	}
	k.meshed = append(k.meshed, s.(*opSolid).ops)
	return &kernel.Mesh{Vertices: make([]float32, 9), Indices: []uint32{0, 1, 2}}, nil
}

func gable(t *testing.T) *building.Building {
	t.Helper()
	b, err := building.NewGable(building.Dimensions{Style: "gable", Width: 600, Length: 900, WallHeight: 250})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func meshByName(meshes []*kernel.Mesh, name string) int {
	for i, m := range meshes {
		if m.Name == name {
			return i
		}
	}
	return -1
}

func TestOneMeshPerSurface(t *testing.T) {
	k := &recordingKernel{}
	meshes, err := tessellate.Tessellate(gable(t), k)
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	// Four walls, two gable trusses and four trims.
	if len(meshes) != 10 {
		t.Fatalf("expected 10 meshes, got %d", len(meshes))
	}
	for _, want := range []string{"front", "back", "left", "right", "front-truss", "back-truss", "front-trim"} {
		if meshByName(meshes, want) < 0 {
			t.Errorf("missing mesh for %q", want)
		}
	}
	if meshes[0].Name != "back" {
		t.Errorf("first mesh = %q, want walls sorted by ID", meshes[0].Name)
	}
}

func TestKindsFilter(t *testing.T) {
	meshes, err := tessellate.TessellateWith(gable(t), &recordingKernel{}, tessellate.Options{
		Kinds: []surface.Kind{surface.Truss},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 2 || meshes[0].Name != "back-truss" || meshes[1].Name != "front-truss" {
		t.Errorf("meshes = %d", len(meshes))
	}
}

func TestClipRegionsAreCut(t *testing.T) {
	b := gable(t)
	front := b.Wall("front")
	front.Push(geom.R(54, 0, 146, 210))
	front.Push(geom.R(-200, 100, -138, 192))

	k := &recordingKernel{}
	meshes, err := tessellate.TessellateWith(b, k, tessellate.Options{Kinds: []surface.Kind{surface.Wall}})
	if err != nil {
		t.Fatal(err)
	}
	ops := k.meshed[meshByName(meshes, "front")]
	want := []string{
		"box 600 250 10",
		"move -300 0 -5",
		// The door reaches the floor, so its cut drops below the panel.
		"minus(box 92 211 12; move 54 -1 -6; plus(box 62 92 12; move -200 100 -6))",
		"move 0 0 450",
	}
	if strings.Join(ops, "\n") != strings.Join(want, "\n") {
		t.Errorf("ops =\n%s\nwant\n%s", strings.Join(ops, "\n"), strings.Join(want, "\n"))
	}
	if front.Depth() != 2 {
		t.Error("tessellation must not change the clip stack")
	}
}

func TestPlansMirrorWallCuts(t *testing.T) {
	b := gable(t)
	b.Wall("front").Push(geom.R(54, 0, 146, 210))

	k := &recordingKernel{}
	meshes, err := tessellate.TessellateWith(b, k, tessellate.Options{Plans: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(meshes) != 4 || meshByName(meshes, "front-plan") < 0 {
		t.Fatalf("expected four plan meshes, got %d", len(meshes))
	}
	ops := k.meshed[meshByName(meshes, "front-plan")]
	want := []string{
		"box 600 250 0.5",
		"move -300 0 -0.25",
		"minus(box 92 211 2.5; move 54 -1 -1.25)",
		"move 0 0 450",
	}
	if strings.Join(ops, "\n") != strings.Join(want, "\n") {
		t.Errorf("ops =\n%s\nwant\n%s", strings.Join(ops, "\n"), strings.Join(want, "\n"))
	}
}

func TestAspectScalesRegionX(t *testing.T) {
	b := gable(t)
	truss := b.TrussAbove("front")
	truss.Aspect = 2
	truss.Push(geom.R(-40, 10, 40, 50))

	k := &recordingKernel{}
	meshes, err := tessellate.TessellateWith(b, k, tessellate.Options{Kinds: []surface.Kind{surface.Truss}})
	if err != nil {
		t.Fatal(err)
	}
	ops := k.meshed[meshByName(meshes, "front-truss")]
	if got := ops[2]; got != "minus(box 40 40 12; move -20 10 -6)" {
		t.Errorf("cut = %q", got)
	}
}

func TestWorldTransform(t *testing.T) {
	k := &recordingKernel{}
	meshes, err := tessellate.TessellateWith(gable(t), k, tessellate.Options{
		Origin: geom.Vec3{X: 1000},
		Kinds:  []surface.Kind{surface.Wall},
	})
	if err != nil {
		t.Fatal(err)
	}
	back := k.meshed[meshByName(meshes, "back")]
	if got := back[len(back)-2:]; got[0] != "rotate 0 180 0" || got[1] != "move 1000 0 -450" {
		t.Errorf("back wall transform = %v", got)
	}
	front := k.meshed[meshByName(meshes, "front")]
	if got := front[len(front)-1]; got != "move 1000 0 450" {
		t.Errorf("front wall transform = %q", got)
	}
}

func TestEmptyRegionSkipped(t *testing.T) {
	b := building.New("gable", 100, 100, 50)
	w := surface.New("w", surface.Wall, 100, 50)
	b.AddWall(w)
	w.Push(geom.R(80, 10, 90, 20)) // entirely off the panel

	k := &recordingKernel{}
	if _, err := tessellate.Tessellate(b, k); err != nil {
		t.Fatal(err)
	}
	for _, op := range k.meshed[0] {
		if strings.HasPrefix(op, "minus") {
			t.Errorf("off-panel region was cut: %s", op)
		}
	}
}

func TestErrors(t *testing.T) {
	b := building.New("gable", 100, 100, 50)
	b.AddWall(surface.New("flat", surface.Wall, 100, 0))
	if _, err := tessellate.Tessellate(b, &recordingKernel{}); err == nil {
		t.Error("expected an error for a degenerate panel")
	}

	if _, err := tessellate.Tessellate(gable(t), &recordingKernel{fail: true}); err == nil {
		t.Error("expected mesher failure to propagate")
	}

	meshes, err := tessellate.Tessellate(nil, &recordingKernel{})
	if err != nil || meshes != nil {
		t.Errorf("nil building = %v, %v", meshes, err)
	}
}

func TestOverlappingCutsSubtractOnce(t *testing.T) {
	b := building.New("gable", 100, 100, 50)
	w := surface.New("w", surface.Wall, 100, 50)
	w.Thickness = 10
	b.AddWall(w)
	w.Push(geom.R(-20, 10, 0, 30))
	w.Push(geom.R(-10, 10, 10, 30))
	w.Push(geom.R(30, 10, 40, 30))

	k := &recordingKernel{}
	if _, err := tessellate.Tessellate(b, k); err != nil {
		t.Fatal(err)
	}
	var minus int
	for _, op := range k.meshed[0] {
		if strings.HasPrefix(op, "minus") {
			minus++
			if n := strings.Count(op, "plus("); n != 2 {
				t.Errorf("cut %q merges %d extra boxes, want 2", op, n)
			}
		}
	}
	if minus != 1 {
		t.Errorf("panel subtracted %d times, want 1", minus)
	}
}

func TestSdfxPanelWithCut(t *testing.T) {
	b := building.New("gable", 100, 100, 50)
	w := surface.New("w", surface.Wall, 100, 50)
	w.Thickness = 10
	b.AddWall(w)
	w.Push(geom.R(-10, 0, 10, 30))

	meshes, err := tessellate.Tessellate(b, sdfx.NewWithCells(24))
	if err != nil {
		t.Fatalf("Tessellate failed: %v", err)
	}
	if len(meshes) != 1 || meshes[0].IsEmpty() || meshes[0].Name != "w" {
		t.Fatalf("unexpected meshes: %+v", meshes)
	}
	if meshes[0].TriangleCount() == 0 {
		t.Error("mesh should have triangles")
	}
}
