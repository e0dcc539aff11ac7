package model

import (
	"errors"
	"testing"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/kernel"
)

// boxSolid is a kernel.Solid that only tracks its bounding box.
type boxSolid struct {
	min, max [3]float64
}

func (b *boxSolid) BoundingBox() (min, max [3]float64) { return b.min, b.max }

// stubKernel records calls and emits one quad per solid.
type stubKernel struct {
	meshes int
	fail   bool
}

var _ kernel.Kernel = (*stubKernel)(nil)

func (k *stubKernel) Box(x, y, z float64) kernel.Solid {
	return &boxSolid{max: [3]float64{x, y, z}}
}
func (k *stubKernel) Union(a, b kernel.Solid) kernel.Solid { return a }
func (k *stubKernel) Difference(a, b kernel.Solid) kernel.Solid { return a }
func (k *stubKernel) Translate(s kernel.Solid, x, y, z float64) kernel.Solid {
	b := s.(*boxSolid)
	d := [3]float64{x, y, z}
	out := &boxSolid{}
	for i := range d {
		out.min[i] = b.min[i] + d[i]
		out.max[i] = b.max[i] + d[i]
	}
	return out
}
func (k *stubKernel) Rotate(s kernel.Solid, x, y, z float64) kernel.Solid { return s }
func (k *stubKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	if k.fail {
		return nil, errors.New("stub: no triangles")
	}
	k.meshes++
	min, max := s.BoundingBox()
	return &kernel.Mesh{
		Vertices: []float32{
			float32(min[0]), float32(min[1]), float32(min[2]),
			float32(max[0]), float32(min[1]), float32(min[2]),
			float32(max[0]), float32(max[1]), float32(max[2]),
		},
		Normals: []float32{0, 0, 1, 0, 0, 1, 0, 0, 1},
		Indices: []uint32{0, 1, 2},
	}, nil
}

func TestLoadDoor(t *testing.T) {
	k := &stubKernel{}
	p := NewCatalogProvider(catalog.Standard(), k)

	m, err := p.Load("door_36")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Names(); len(got) != 3 || got[0] != "slab" {
		t.Fatalf("Names() = %v", got)
	}
	roles := m.Roles()
	want := []catalog.Role{catalog.RoleMain, catalog.RoleSecondary, catalog.RoleMetal}
	if len(roles) != len(want) {
		t.Fatalf("Roles() = %v, want %v", roles, want)
	}
	for i := range want {
		if roles[i] != want[i] {
			t.Errorf("Roles()[%d] = %s, want %s", i, roles[i], want[i])
		}
	}

	slab := m.Part("slab")
	if slab.Mesh.Name != "slab" {
		t.Errorf("mesh name = %q", slab.Mesh.Name)
	}
	// The stub mesh starts at the translated min corner.
	if slab.Mesh.Vertices[0] != -45 || slab.Mesh.Vertices[2] != -2.5 {
		t.Errorf("slab not translated to its min corner: %v", slab.Mesh.Vertices[:3])
	}
	if m.Bounds.Min.X != -46 || m.Bounds.Max.Y != 210 || m.Bounds.Max.Z != 6 {
		t.Errorf("Bounds = %+v", m.Bounds)
	}
	if got := len(m.PartsWithRole(catalog.RoleMetal)); got != 1 {
		t.Errorf("PartsWithRole(metal) = %d parts", got)
	}
}

func TestLoadUnknownType(t *testing.T) {
	p := NewCatalogProvider(catalog.Standard(), &stubKernel{})
	_, err := p.Load("skylight")
	if !errors.Is(err, catalog.ErrUnknownFixtureType) {
		t.Fatalf("err = %v, want ErrUnknownFixtureType", err)
	}
}

func TestLoadKernelFailure(t *testing.T) {
	p := NewCatalogProvider(catalog.Standard(), &stubKernel{fail: true})
	if _, err := p.Load("window_60"); err == nil {
		t.Fatal("expected kernel failure to surface")
	}
}

func TestLoadCachesAndCopies(t *testing.T) {
	k := &stubKernel{}
	p := NewCatalogProvider(catalog.Standard(), k)

	a, err := p.Load("window_60")
	if err != nil {
		t.Fatal(err)
	}
	built := k.meshes
	b, err := p.Load("window_60")
	if err != nil {
		t.Fatal(err)
	}
	if k.meshes != built {
		t.Errorf("second Load tessellated again: %d -> %d meshes", built, k.meshes)
	}

	a.Dispose()
	if !a.Disposed() {
		t.Fatal("Disposed() = false after Dispose")
	}
	for _, name := range b.Names() {
		if b.Part(name).Mesh.IsEmpty() {
			t.Errorf("disposing one model emptied %q in another", name)
		}
	}
	a.Dispose()
}

func TestBoundsWithoutMeshes(t *testing.T) {
	b := catalog.NewBuilder()
	if err := b.AddFixture(catalog.Fixture{ID: "plain", Kind: catalog.KindCupola}); err != nil {
		t.Fatal(err)
	}
	cat, _, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	m, err := NewCatalogProvider(cat, &stubKernel{}).Load("plain")
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Parts) != 0 || len(m.Roles()) != 0 {
		t.Errorf("expected an empty model, got %v", m.Names())
	}
}
