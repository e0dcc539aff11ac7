// Package model loads fixture geometry. A Model is a set of named sub-meshes
// tagged with material roles, built from catalog mesh descriptors through a
// geometry kernel.
package model

import (
	"fmt"
	"sync"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/kernel"
)

// Part is one named sub-mesh of a fixture model in fixture-local
// coordinates (origin at the bottom center of the opening).
type Part struct {
	Name string       `json:"name"`
	Role catalog.Role `json:"role"`
	Box  geom.Box3    `json:"box"`
	Mesh *kernel.Mesh `json:"mesh"`
}

// Model is a loaded fixture model. It is owned by exactly one fixture.
type Model struct {
	TypeID string           `json:"type_id"`
	Parts  map[string]*Part `json:"parts"`
	Bounds geom.Box3        `json:"bounds"`

	order    []string
	disposed bool
}

// Names returns part names in declaration order.
func (m *Model) Names() []string {
	return append([]string(nil), m.order...)
}

// Part returns the named part or nil.
func (m *Model) Part(name string) *Part {
	return m.Parts[name]
}

// Roles returns the distinct material roles in declaration order.
func (m *Model) Roles() []catalog.Role {
	seen := make(map[catalog.Role]bool)
	var out []catalog.Role
	for _, name := range m.order {
		r := m.Parts[name].Role
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	return out
}

// PartsWithRole returns the parts sharing a material role.
func (m *Model) PartsWithRole(r catalog.Role) []*Part {
	var out []*Part
	for _, name := range m.order {
		if p := m.Parts[name]; p.Role == r {
			out = append(out, p)
		}
	}
	return out
}

// Dispose releases every mesh buffer. Disposing twice is a no-op.
func (m *Model) Dispose() {
	if m.disposed {
		return
	}
	for _, p := range m.Parts {
		if p.Mesh != nil {
			p.Mesh.Release()
		}
	}
	m.disposed = true
}

// Disposed reports whether Dispose has run.
func (m *Model) Disposed() bool { return m.disposed }

// Provider loads fixture models by catalog type ID.
type Provider interface {
	Load(typeID string) (*Model, error)
}

// Compile-time interface check.
var _ Provider = (*CatalogProvider)(nil)

// CatalogProvider tessellates catalog mesh descriptors with a kernel.
// Tessellated meshes are cached per type; every Load hands out copies so
// disposing one model never affects another.
type CatalogProvider struct {
	cat *catalog.Catalog
	k   kernel.Kernel

	mu    sync.Mutex
	cache map[string]*Model
}

// NewCatalogProvider returns a provider backed by cat and k.
func NewCatalogProvider(cat *catalog.Catalog, k kernel.Kernel) *CatalogProvider {
	return &CatalogProvider{cat: cat, k: k, cache: make(map[string]*Model)}
}

// Load returns a fresh model for typeID. Unknown types fail with an error
// wrapping catalog.ErrUnknownFixtureType.
func (p *CatalogProvider) Load(typeID string) (*Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tmpl, ok := p.cache[typeID]
	if !ok {
		f, err := p.cat.Fixture(typeID)
		if err != nil {
			return nil, fmt.Errorf("model: %w", err)
		}
		tmpl, err = p.build(f)
		if err != nil {
			return nil, err
		}
		p.cache[typeID] = tmpl
	}
	return tmpl.clone(), nil
}

func (p *CatalogProvider) build(f catalog.Fixture) (*Model, error) {
	m := &Model{TypeID: f.ID, Parts: make(map[string]*Part, len(f.Meshes)), Bounds: fallbackBounds(f.Size)}

	for i, spec := range f.Meshes {
		size := spec.Box.Size()
		solid := p.k.Box(size.X, size.Y, size.Z)
		solid = p.k.Translate(solid, spec.Box.Min.X, spec.Box.Min.Y, spec.Box.Min.Z)

		mesh, err := p.k.ToMesh(solid)
		if err != nil {
			return nil, fmt.Errorf("model: %s: mesh %q: %w", f.ID, spec.Name, err)
		}
		mesh.Name = spec.Name

		m.Parts[spec.Name] = &Part{Name: spec.Name, Role: spec.Role, Box: spec.Box, Mesh: mesh}
		m.order = append(m.order, spec.Name)
		if i == 0 {
			m.Bounds = spec.Box
		} else {
			m.Bounds = m.Bounds.Union(spec.Box)
		}
	}
	return m, nil
}

// fallbackBounds centers a nominal size on the fixture origin.
func fallbackBounds(size geom.Vec3) geom.Box3 {
	return geom.Box3{
		Min: geom.Vec3{X: -size.X / 2, Y: 0, Z: -size.Z / 2},
		Max: geom.Vec3{X: size.X / 2, Y: size.Y, Z: size.Z / 2},
	}
}

func (m *Model) clone() *Model {
	out := &Model{
		TypeID: m.TypeID,
		Parts:  make(map[string]*Part, len(m.Parts)),
		Bounds: m.Bounds,
		order:  append([]string(nil), m.order...),
	}
	for name, part := range m.Parts {
		cp := *part
		cp.Mesh = &kernel.Mesh{
			Vertices: append([]float32(nil), part.Mesh.Vertices...),
			Normals:  append([]float32(nil), part.Mesh.Normals...),
			Indices:  append([]uint32(nil), part.Mesh.Indices...),
			Name:     part.Mesh.Name,
		}
		out.Parts[name] = &cp
	}
	return out
}
