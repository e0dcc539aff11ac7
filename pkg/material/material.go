// Package material turns color requests into per-role texture pairs and
// swaps them into a fixture's materials in one pass.
package material

import (
	"image"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/lucasb-eyer/go-colorful"
)

// White is the neutral tint of a material whose color lives in its map.
var White = colorful.Color{R: 1, G: 1, B: 1}

// Wrap selects how a texture repeats across a mesh.
type Wrap int

const (
	WrapClamp Wrap = iota
	WrapRepeat
)

func (w Wrap) String() string {
	if w == WrapRepeat {
		return "repeat"
	}
	return "clamp"
}

// ColorRequest is one user-initiated recolor of a fixture.
type ColorRequest struct {
	MainColor      string `json:"main_color"`
	SecondaryColor string `json:"secondary_color"`
	SidingID       string `json:"siding_id"`
	TrimID         string `json:"trim_id"`
	// TrimColor colors the secondary role when set; SecondaryColor is used
	// otherwise.
	TrimColor string `json:"trim_color,omitempty"`
}

// TexturePair is the diffuse and bump image generated for one role.
type TexturePair struct {
	Diffuse image.Image
	Bump    image.Image
}

// Material is one role's render material.
type Material struct {
	Name    string         `json:"name"`
	Role    catalog.Role   `json:"role"`
	Base    colorful.Color `json:"base"`  // requested color baked into Map
	Color   colorful.Color `json:"color"` // tint applied over Map
	Map     image.Image    `json:"-"`
	BumpMap image.Image    `json:"-"`
	Pattern string         `json:"pattern"`
	Repeat  geom.Vec2      `json:"repeat"`
	Wrap    Wrap           `json:"wrap"`
	Metal   bool           `json:"metal"`
	// NeedsUpdate tells the renderer to recompute the material.
	NeedsUpdate bool `json:"needs_update"`
}

// New returns an untextured material for a role.
func New(name string, role catalog.Role) *Material {
	return &Material{
		Name:   name,
		Role:   role,
		Base:   White,
		Color:  White,
		Repeat: geom.Vec2{X: 1, Y: 1},
		Wrap:   WrapRepeat,
	}
}

// Update is the generated state for one role.
type Update struct {
	Role    catalog.Role
	Color   colorful.Color
	Pattern string
	Pair    TexturePair
	Repeat  geom.Vec2
	Metal   bool
}

// Apply writes u into m. The map, bump map and update flag change together.
func (m *Material) Apply(u Update) {
	m.Base = u.Color
	m.Pattern = u.Pattern
	m.Map = u.Pair.Diffuse
	m.BumpMap = u.Pair.Bump
	m.Repeat = u.Repeat
	m.Wrap = WrapRepeat
	m.Metal = u.Metal
	m.NeedsUpdate = true
}

// Batch is the complete result of one color request.
type Batch struct {
	Request ColorRequest
	Updates []Update
}
