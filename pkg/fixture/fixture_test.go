package fixture

import (
	"context"
	"errors"
	"image"
	"io"
	"log"
	"math"
	"testing"

	"github.com/chazu/openings/pkg/building"
	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/kernel"
	"github.com/chazu/openings/pkg/material"
	"github.com/chazu/openings/pkg/model"
	"github.com/chazu/openings/pkg/orient"
	"github.com/chazu/openings/pkg/placement"
	"github.com/chazu/openings/pkg/surface"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type boxSolid struct{ min, max [3]float64 }

func (b *boxSolid) BoundingBox() (min, max [3]float64) { return b.min, b.max }

// stubKernel emits a single triangle per solid.
type stubKernel struct{}

var _ kernel.Kernel = stubKernel{}

func (stubKernel) Box(x, y, z float64) kernel.Solid { return &boxSolid{max: [3]float64{x, y, z}} }
func (stubKernel) Union(a, b kernel.Solid) kernel.Solid { return a }
func (stubKernel) Difference(a, b kernel.Solid) kernel.Solid { return a }
func (stubKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid { return s }
func (stubKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid { return s }
func (stubKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	return &kernel.Mesh{Vertices: make([]float32, 9), Normals: make([]float32, 9), Indices: []uint32{0, 1, 2}}, nil
}

// flatGenerator returns a 1x1 image of the requested color.
type flatGenerator struct{}

func (flatGenerator) Generate(ctx context.Context, req material.PatternRequest) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.Set(0, 0, req.Color)
	return img, nil
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	cat := catalog.Standard()
	logger := log.New(io.Discard, "", 0)
	return Deps{
		Catalog:   cat,
		Models:    model.NewCatalogProvider(cat, stubKernel{}),
		Placement: placement.NewEngine(0),
		Pipeline:  material.NewPipeline(cat, flatGenerator{}, logger, 4),
		Logger:    logger,
	}
}

func testBuilding(t *testing.T, wallHeight float64) *building.Building {
	t.Helper()
	b, err := building.NewGable(building.Dimensions{Style: "gable", Width: 600, Length: 900, WallHeight: wallHeight})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustNew(t *testing.T, deps Deps, typeID string, opts ...Option) Fixture {
	t.Helper()
	f, err := New(deps, typeID, opts...)
	if err != nil {
		t.Fatalf("New(%q): %v", typeID, err)
	}
	return f
}

func mustResult(t *testing.T) func(Result, error) Result {
	return func(r Result, err error) Result {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestNewDispatchesOnKind(t *testing.T) {
	deps := testDeps(t)
	tests := []struct {
		typeID string
		check  func(Fixture) bool
	}{
		{"door_36", func(f Fixture) bool { _, ok := f.(*Door); return ok }},
		{"deep_door", func(f Fixture) bool { _, ok := f.(*DeepDoor); return ok }},
		{"window_60", func(f Fixture) bool { _, ok := f.(*Window); return ok }},
		{"pet_door", func(f Fixture) bool { _, ok := f.(*PetDoor); return ok }},
		{"cupola_small", func(f Fixture) bool { _, ok := f.(*Cupola); return ok }},
		{"gable_vent", func(f Fixture) bool { _, ok := f.(*Vent); return ok }},
	}
	for _, tt := range tests {
		t.Run(tt.typeID, func(t *testing.T) {
			f := mustNew(t, deps, tt.typeID)
			if !tt.check(f) {
				t.Errorf("New(%q) returned %T", tt.typeID, f)
			}
			if f.ID() == "" || f.TypeID() != tt.typeID {
				t.Errorf("identity = %q/%q", f.ID(), f.TypeID())
			}
			if f.State() != Unplaced {
				t.Errorf("new fixture state = %s", f.State())
			}
		})
	}
}

func TestNewUnknownType(t *testing.T) {
	f, err := New(testDeps(t), "skylight")
	if !errors.Is(err, catalog.ErrUnknownFixtureType) {
		t.Fatalf("err = %v, want ErrUnknownFixtureType", err)
	}
	if f != nil {
		t.Fatal("no fixture may be returned on failure")
	}
}

func TestNewOptions(t *testing.T) {
	f := mustNew(t, testDeps(t), "window_60", WithID("w1"), WithReference(250, 600))
	if f.ID() != "w1" {
		t.Errorf("ID = %q", f.ID())
	}
	h, w := f.(*Window).Reference()
	if h != 250 || w != 600 {
		t.Errorf("Reference() = %v, %v", h, w)
	}
	if f.Orientation() != orient.Left|orient.SwingOut {
		t.Errorf("default orientation = %s", f.Orientation())
	}
}

// ---------------------------------------------------------------------------
// Placement
// ---------------------------------------------------------------------------

func TestPlaceDoorOnWall(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	front := b.Wall("front")
	f := mustNew(t, testDeps(t), "door_36")

	ok(f.SetPosition(geom.Vec3{X: 100, Z: 450}))
	res := ok(f.SetHostWall(front))

	if len(res.Pushed) != 1 || res.Pushed[0] != surface.Wall {
		t.Fatalf("Pushed = %v, want [wall]", res.Pushed)
	}
	if f.State() != Placed {
		t.Errorf("state = %s", f.State())
	}
	top, _ := front.Top()
	if want := geom.R(54, 0, 146, 210); top != want {
		t.Errorf("wall clip = %v, want %v", top, want)
	}
}

func TestTallDoorCutsTrussAndTrim(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 200)
	f := mustNew(t, testDeps(t), "double_door")

	ok(f.SetHostTruss(b.TrussAbove("front")))
	ok(f.SetHostTrim(b.TrimOf("front")))
	ok(f.SetPosition(geom.Vec3{X: 50, Z: 450}))
	res := ok(f.SetHostWall(b.Wall("front")))

	if len(res.Pushed) != 3 {
		t.Fatalf("Pushed = %v, want wall, truss and trim", res.Pushed)
	}
	truss, _ := b.TrussAbove("front").Top()
	if truss.Max.Y != 31 || truss.Min.Y != 0 {
		t.Errorf("truss clip Y = [%v, %v], want [0, 31]", truss.Min.Y, truss.Max.Y)
	}
	trim, _ := b.TrimOf("front").Top()
	if trim.Min.X != truss.Min.X || trim.Max.X != truss.Max.X {
		t.Errorf("trim X %v differs from truss X %v", trim, truss)
	}
	if truss.Min.X != -41 || truss.Max.X != 141 {
		t.Errorf("truss X = [%v, %v], want [-41, 141]", truss.Min.X, truss.Max.X)
	}
}

func TestShortDoorSkipsTruss(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	f := mustNew(t, testDeps(t), "double_door")

	ok(f.SetHostTruss(b.TrussAbove("front")))
	ok(f.SetHostWall(b.Wall("front")))
	if d := b.TrussAbove("front").Depth(); d != 0 {
		t.Errorf("truss depth = %d, want 0", d)
	}
}

func TestReassignWall(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	front, back := b.Wall("front"), b.Wall("back")
	f := mustNew(t, testDeps(t), "window_60")

	ok(f.SetHostWall(front))
	frontBefore, backBefore := front.Depth(), back.Depth()
	res := ok(f.SetHostWall(back))

	if front.Depth() != frontBefore-1 || back.Depth() != backBefore+1 {
		t.Errorf("depths front %d->%d back %d->%d", frontBefore, front.Depth(), backBefore, back.Depth())
	}
	if len(res.Popped) != 1 || len(res.Pushed) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestClearHostPopsEverything(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 200)
	f := mustNew(t, testDeps(t), "double_door")

	ok(f.SetHostTruss(b.TrussAbove("front")))
	ok(f.SetHostWall(b.Wall("front")))
	res := ok(f.SetHostWall(nil))

	if len(res.Popped) != 2 {
		t.Errorf("Popped = %v, want wall and truss", res.Popped)
	}
	if b.Wall("front").Depth() != 0 || b.TrussAbove("front").Depth() != 0 {
		t.Error("clearing the wall left cutouts behind")
	}
	if f.State() != Unplaced {
		t.Errorf("state = %s", f.State())
	}
	if f.Host(surface.Truss) == nil {
		t.Error("truss reference should survive clearing the wall")
	}
}

func TestMoveKeepsDepth(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	wall := b.Wall("front")
	f := mustNew(t, testDeps(t), "pet_door")

	ok(f.SetHostWall(wall))
	for _, x := range []float64{-100, 0, 120} {
		ok(f.SetPosition(geom.Vec3{X: x, Z: 450}))
		if wall.Depth() != 1 {
			t.Fatalf("depth = %d after move to %v", wall.Depth(), x)
		}
		top, _ := wall.Top()
		if top.Min.X != x-15 {
			t.Errorf("clip min X = %v, want %v", top.Min.X, x-15)
		}
	}
}

func TestUnsupportedRotationWarns(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	wall := b.Wall("left")
	f := mustNew(t, testDeps(t), "door_36")

	ok(f.SetRotation(90))
	ok(f.SetHostWall(wall))
	if wall.Depth() != 1 {
		t.Fatalf("depth = %d", wall.Depth())
	}

	res := ok(f.SetRotation(30))
	if !errors.Is(res.Warning, placement.ErrUnsupportedRotation) {
		t.Fatalf("Warning = %v, want ErrUnsupportedRotation", res.Warning)
	}
	if wall.Depth() != 0 || f.State() != Placed {
		t.Errorf("depth %d state %s; wall should be uncut but still host", wall.Depth(), f.State())
	}

	res = ok(f.SetRotation(-270))
	if res.Warning != nil || wall.Depth() != 1 {
		t.Errorf("quantizable rotation did not re-cut: %+v depth %d", res, wall.Depth())
	}
}

func TestWrongHostKinds(t *testing.T) {
	b := testBuilding(t, 250)
	deps := testDeps(t)

	vent := mustNew(t, deps, "gable_vent")
	if _, err := vent.SetHostWall(b.Wall("front")); !errors.Is(err, ErrWrongHost) {
		t.Errorf("vent on wall: err = %v", err)
	}
	cupola := mustNew(t, deps, "cupola_small")
	if _, err := cupola.SetHostTruss(b.TrussAbove("front")); !errors.Is(err, ErrWrongHost) {
		t.Errorf("cupola on truss: err = %v", err)
	}
	door := mustNew(t, deps, "door_36")
	if _, err := door.SetHostWall(b.TrimOf("front")); !errors.Is(err, ErrWrongHost) {
		t.Errorf("trim passed as wall: err = %v", err)
	}
}

func TestCupolaPlacedByPosition(t *testing.T) {
	f := mustNew(t, testDeps(t), "cupola_small")
	res, err := f.SetPosition(geom.Vec3{Y: 350})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Pushed) != 0 || f.State() != Placed {
		t.Errorf("result %+v state %s", res, f.State())
	}
}

func TestVentHideShow(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	truss := b.TrussAbove("front")
	v := mustNew(t, testDeps(t), "gable_vent").(*Vent)

	ok(v.SetHostTruss(truss))
	if top, _ := truss.Top(); top != geom.R(-20, 10, 20, 50) {
		t.Errorf("vent clip = %v", top)
	}
	ok(v.Hide())
	if truss.Depth() != 0 || v.Visible() {
		t.Error("Hide should release the cutout")
	}
	ok(v.SetPosition(geom.Vec3{X: 10, Z: 450}))
	if truss.Depth() != 0 {
		t.Error("hidden vent must not cut when moved")
	}
	ok(v.Show())
	if truss.Depth() != 1 || !v.Visible() {
		t.Error("Show should restore the cutout")
	}
}

func TestMoveKeepsNeighbourCutout(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	wall := b.Wall("front")
	deps := testDeps(t)
	left := mustNew(t, deps, "window_60")
	right := mustNew(t, deps, "window_60")

	ok(left.SetPosition(geom.Vec3{X: -100, Z: 450}))
	ok(left.SetHostWall(wall))
	ok(right.SetPosition(geom.Vec3{X: 100, Z: 450}))
	ok(right.SetHostWall(wall))
	rightCut, _ := wall.Top()
	if rightCut.Min.X != 69 || rightCut.Max.X != 131 {
		t.Fatalf("right window clip = %v", rightCut)
	}

	ok(left.SetPosition(geom.Vec3{X: -200, Z: 450}))
	leftCut, _ := wall.Top()
	if leftCut.Min.X != -231 || leftCut.Max.X != -169 {
		t.Fatalf("moved window clip = %v", leftCut)
	}
	got := wall.Regions()
	if len(got) != 2 || got[0] != rightCut || got[1] != leftCut {
		t.Errorf("regions = %v, want [%v %v]", got, rightCut, leftCut)
	}

	ok(right.SetHostWall(nil))
	if got := wall.Regions(); len(got) != 1 || got[0] != leftCut {
		t.Errorf("after detaching the right window regions = %v, want [%v]", got, leftCut)
	}
}

func TestVentAndTallDoorShareTruss(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 200)
	truss := b.TrussAbove("front")
	deps := testDeps(t)
	v := mustNew(t, deps, "gable_vent").(*Vent)
	door := mustNew(t, deps, "double_door")

	ok(v.SetPosition(geom.Vec3{Z: 450}))
	ok(v.SetHostTruss(truss))
	ok(door.SetHostTruss(truss))
	ok(door.SetPosition(geom.Vec3{X: 50, Z: 450}))
	ok(door.SetHostWall(b.Wall("front")))

	ventCut, doorCut := geom.R(-20, 10, 20, 50), geom.R(-41, 0, 141, 31)
	if got := truss.Regions(); len(got) != 2 || got[0] != ventCut || got[1] != doorCut {
		t.Fatalf("regions = %v, want [%v %v]", got, ventCut, doorCut)
	}

	ok(v.Hide())
	if got := truss.Regions(); len(got) != 1 || got[0] != doorCut {
		t.Errorf("after hiding the vent regions = %v, want [%v]", got, doorCut)
	}
	claims := door.(*Door).Claims()
	if len(claims) != 2 || claims[1] != surface.Truss {
		t.Errorf("door claims = %v, want wall and truss", claims)
	}

	ok(v.Show())
	ok(door.SetHostWall(nil))
	if got := truss.Regions(); len(got) != 1 || got[0] != ventCut {
		t.Errorf("after detaching the door regions = %v, want [%v]", got, ventCut)
	}
}

func TestClipStackUnderflowPanics(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 250)
	wall := b.Wall("front")
	f := mustNew(t, testDeps(t), "window_60")
	ok(f.SetHostWall(wall))

	wall.Pop() // someone else stole the region

	defer func() {
		r := recover()
		err, isErr := r.(error)
		if !isErr || !errors.Is(err, surface.ErrClipStackUnderflow) {
			t.Fatalf("recovered %v, want ErrClipStackUnderflow", r)
		}
	}()
	f.SetPosition(geom.Vec3{X: 1})
	t.Fatal("expected panic")
}

func TestFootprint(t *testing.T) {
	ok := mustResult(t)
	f := mustNew(t, testDeps(t), "door_36")
	ok(f.SetPosition(geom.Vec3{X: 100, Z: 50}))

	fp := f.Footprint()
	if fp.Min.X != 54 || fp.Max.X != 146 || fp.Min.Y != 47 || fp.Max.Y != 56 {
		t.Errorf("footprint at 0° = %v", fp)
	}

	ok(f.SetRotation(90))
	fp = f.Footprint()
	const eps = 1e-9
	if math.Abs(fp.Width()-9) > eps || math.Abs(fp.Height()-92) > eps {
		t.Errorf("footprint at 90° = %v, want 9 x 92", fp)
	}
}

// ---------------------------------------------------------------------------
// Orientation
// ---------------------------------------------------------------------------

func TestReverseTwice(t *testing.T) {
	f := mustNew(t, testDeps(t), "double_door")
	start, icons := f.Orientation(), f.Icons()
	if start != orient.Right|orient.SwingOut {
		t.Fatalf("orientation = %s", start)
	}
	if !icons[0].Visible || icons[1].Visible {
		t.Fatalf("initial icons = %+v", icons)
	}

	if err := f.Reverse(); err != nil {
		t.Fatal(err)
	}
	if f.Orientation() != orient.Left|orient.SwingOut {
		t.Errorf("reversed orientation = %s", f.Orientation())
	}
	mid := f.Icons()
	if mid[0].Visible || !mid[1].Visible {
		t.Errorf("reversed icons = %+v", mid)
	}

	if err := f.Reverse(); err != nil {
		t.Fatal(err)
	}
	if f.Orientation() != start || f.Icons() != icons {
		t.Error("reverse twice did not restore the original state")
	}
}

func TestReverseNotOrientable(t *testing.T) {
	f := mustNew(t, testDeps(t), "cupola_small")
	if err := f.Reverse(); !errors.Is(err, ErrNotReversible) {
		t.Errorf("err = %v", err)
	}
}

func TestDoorSwingClearance(t *testing.T) {
	d := mustNew(t, testDeps(t), "deep_door").(*DeepDoor)
	if d.Depth() != 20 {
		t.Errorf("Depth() = %v", d.Depth())
	}
	door := mustNew(t, testDeps(t), "door_36").(*Door)
	if door.SwingClearance() != 0 {
		t.Errorf("outswing clearance = %v", door.SwingClearance())
	}
}

// ---------------------------------------------------------------------------
// Materials
// ---------------------------------------------------------------------------

func TestPlacementForbiddenRecolorsPrimary(t *testing.T) {
	deps := testDeps(t)
	f := mustNew(t, deps, "door_36")
	alert, _ := deps.Catalog.Color("alert")

	f.SetPlacementForbidden(true)
	mats := f.Materials()
	if mats[catalog.RoleMain].Color != alert || mats[catalog.RoleSecondary].Color != alert {
		t.Error("primary roles not tinted with the alert color")
	}
	if mats[catalog.RoleMetal].Color != material.White {
		t.Error("metal role should not be tinted")
	}

	f.SetPlacementForbidden(false)
	if f.Materials()[catalog.RoleMain].Color != material.White {
		t.Error("clearing the flag should restore white")
	}
}

func TestSetColor(t *testing.T) {
	f := mustNew(t, testDeps(t), "door_36")
	custom := material.New("chrome", catalog.RoleMetal)
	if err := f.OverrideMaterial(catalog.RoleMetal, custom); err != nil {
		t.Fatal(err)
	}
	f.SetPlacementForbidden(true)

	req := material.ColorRequest{MainColor: "barn-red", SecondaryColor: "white", SidingID: "lap"}
	if err := f.SetColor(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	mats := f.Materials()
	main := mats[catalog.RoleMain]
	if main.Map == nil || main.BumpMap == nil || !main.NeedsUpdate {
		t.Errorf("main material not updated: %+v", main)
	}
	if main.Base.Hex() != "#7c0a02" || main.Pattern != "lap" {
		t.Errorf("main base %s pattern %q", main.Base.Hex(), main.Pattern)
	}
	if main.Color == material.White {
		t.Error("forbidden tint lost on color change")
	}
	if mats[catalog.RoleMetal].Name != "chrome" || mats[catalog.RoleMetal].Map != nil {
		t.Error("overridden role was regenerated")
	}
	if last := f.LastColor(); last == nil || *last != req {
		t.Errorf("LastColor() = %v", last)
	}
}

func TestSetColorInvalidKeepsState(t *testing.T) {
	f := mustNew(t, testDeps(t), "door_36")
	err := f.SetColor(context.Background(), material.ColorRequest{MainColor: "plaid", SecondaryColor: "white"})
	if !errors.Is(err, catalog.ErrInvalidColorName) {
		t.Fatalf("err = %v", err)
	}
	if f.LastColor() != nil {
		t.Error("failed request recorded as applied")
	}
}

func TestStaleGenerationRejected(t *testing.T) {
	f := mustNew(t, testDeps(t), "window_60")
	c := coreOf(f)
	old := c.BeginColor()
	c.BeginColor()
	if err := c.ApplyColor(old, material.Batch{}); !errors.Is(err, material.ErrSuperseded) {
		t.Errorf("err = %v, want ErrSuperseded", err)
	}
}

func TestOverrideUnknownRole(t *testing.T) {
	f := mustNew(t, testDeps(t), "pet_door")
	if err := f.OverrideMaterial(catalog.RoleShingle, material.New("x", catalog.RoleShingle)); !errors.Is(err, ErrUnknownRole) {
		t.Errorf("err = %v", err)
	}
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestDispose(t *testing.T) {
	ok := mustResult(t)
	b := testBuilding(t, 200)
	f := mustNew(t, testDeps(t), "double_door")
	ok(f.SetHostTruss(b.TrussAbove("front")))
	ok(f.SetHostWall(b.Wall("front")))

	res := f.Dispose()
	if len(res.Popped) != 2 {
		t.Errorf("Popped = %v", res.Popped)
	}
	if b.Wall("front").Depth() != 0 || b.TrussAbove("front").Depth() != 0 {
		t.Error("dispose left cutouts")
	}
	if !coreOf(f).Model().Disposed() {
		t.Error("model not disposed")
	}
	if _, err := f.SetPosition(geom.Vec3{}); !errors.Is(err, ErrDisposed) {
		t.Errorf("SetPosition after dispose: %v", err)
	}
	if err := f.SetColor(context.Background(), material.ColorRequest{}); !errors.Is(err, ErrDisposed) {
		t.Errorf("SetColor after dispose: %v", err)
	}
	if again := f.Dispose(); len(again.Popped) != 0 {
		t.Error("second dispose popped again")
	}
}

func TestSnapshotRestore(t *testing.T) {
	ok := mustResult(t)
	deps := testDeps(t)
	b := testBuilding(t, 200)

	f := mustNew(t, deps, "double_door", WithReference(200, 600))
	ok(f.SetHostTruss(b.TrussAbove("front")))
	ok(f.SetHostTrim(b.TrimOf("front")))
	ok(f.SetPosition(geom.Vec3{X: 50, Z: 450}))
	ok(f.SetHostWall(b.Wall("front")))
	if err := f.Reverse(); err != nil {
		t.Fatal(err)
	}
	req := material.ColorRequest{MainColor: "tan", SecondaryColor: "charcoal"}
	if err := f.SetColor(context.Background(), req); err != nil {
		t.Fatal(err)
	}
	snap := f.Snapshot()
	f.Dispose()

	if snap.WallID != "front" || snap.TrussID != "front-truss" || snap.Orientation != "left|out" {
		t.Fatalf("snapshot = %+v", snap)
	}

	g, err := Restore(context.Background(), deps, snap, b)
	if err != nil {
		t.Fatal(err)
	}
	if g.ID() != snap.ID || g.Orientation() != orient.Left|orient.SwingOut {
		t.Errorf("restored identity/orientation = %s/%s", g.ID(), g.Orientation())
	}
	if !g.Icons()[1].Visible {
		t.Error("restored reversed fixture should show the mirrored icon")
	}
	if b.Wall("front").Depth() != 1 || b.TrussAbove("front").Depth() != 1 || b.TrimOf("front").Depth() != 1 {
		t.Error("restore did not re-cut every host")
	}
	if last := g.LastColor(); last == nil || *last != req {
		t.Errorf("color not replayed: %v", last)
	}
}

func TestRestoreUnknownHost(t *testing.T) {
	deps := testDeps(t)
	b := testBuilding(t, 250)
	snap := Snapshot{ID: "x", TypeID: "window_60", WallID: "porch"}
	if _, err := Restore(context.Background(), deps, snap, b); err == nil {
		t.Fatal("expected an unknown wall error")
	}
}
