// Package catalog is the read-only feature catalog: fixture descriptors,
// surface patterns, the named color palette and the building styles that
// opt out of vent customization.
//
// A Catalog is built once through a Builder and then passed explicitly to
// every component that needs it. It is never mutated after Build.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/surface"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/samber/lo"
)

var (
	// ErrUnknownFixtureType is returned for type IDs absent from the catalog.
	ErrUnknownFixtureType = errors.New("unknown fixture type")
	// ErrInvalidColorName is returned for color keys that are neither in the
	// palette nor a valid hex color.
	ErrInvalidColorName = errors.New("invalid color name")
	// ErrUnknownPattern is returned for pattern IDs absent from the catalog.
	ErrUnknownPattern = errors.New("unknown pattern")
)

// ---------------------------------------------------------------------------
// Fixture kinds
// ---------------------------------------------------------------------------

// Kind is the fixture subtype discriminant.
type Kind string

const (
	KindDoor     Kind = "door"
	KindDeepDoor Kind = "deep-door"
	KindWindow   Kind = "window"
	KindPetDoor  Kind = "pet-door"
	KindCupola   Kind = "cupola"
	KindVent     Kind = "vent"
)

var kinds = []Kind{KindDoor, KindDeepDoor, KindWindow, KindPetDoor, KindCupola, KindVent}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(kinds, k) {
		return "", fmt.Errorf("%w: kind %q", ErrUnknownFixtureType, s)
	}
	return k, nil
}

// DoorLike reports whether openings of this kind may extend above the wall
// and cut the truss and trim.
func (k Kind) DoorLike() bool {
	return k == KindDoor || k == KindDeepDoor
}

// Host returns the surface kind this fixture cuts, if any. Cupolas sit on
// the roof ridge and cut nothing.
func (k Kind) Host() (surface.Kind, bool) {
	switch k {
	case KindDoor, KindDeepDoor, KindWindow, KindPetDoor:
		return surface.Wall, true
	case KindVent:
		return surface.Truss, true
	}
	return 0, false
}

// Orientable reports whether the kind carries hinge/swing orientation.
func (k Kind) Orientable() bool {
	return k == KindDoor || k == KindDeepDoor || k == KindWindow || k == KindPetDoor
}

// ---------------------------------------------------------------------------
// Material roles
// ---------------------------------------------------------------------------

// Role names a material slot on a fixture model.
type Role string

const (
	RoleMain      Role = "main"      // primary siding color
	RoleSecondary Role = "secondary" // trim
	RoleWood      Role = "wood"      // wood accents
	RoleMetal     Role = "metal"     // metal roofing / hardware
	RoleShingle   Role = "shingle"   // shingle roofing
	RoleGlass     Role = "glass"
)

var roles = []Role{RoleMain, RoleSecondary, RoleWood, RoleMetal, RoleShingle, RoleGlass}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(roles, r) {
		return "", fmt.Errorf("unknown material role %q", s)
	}
	return r, nil
}

// Primary reports whether the role is recolored by the placement-forbidden
// signal.
func (r Role) Primary() bool {
	return r == RoleMain || r == RoleSecondary
}

// defaultPatterns maps fixed-accent roles to the pattern used when a
// fixture does not name one. Main and secondary come from the request.
var defaultPatterns = map[Role]string{
	RoleWood:    "wood",
	RoleMetal:   "metal-rib",
	RoleShingle: "shingle",
	RoleGlass:   "glass",
}

// ---------------------------------------------------------------------------
// Patterns
// ---------------------------------------------------------------------------

// Style selects the procedural pattern drawn for a texture.
type Style string

const (
	StyleLap         Style = "lap"
	StyleBoardBatten Style = "board-batten"
	StyleMetalRib    Style = "metal-rib"
	StyleShingle     Style = "shingle"
	StyleWoodGrain   Style = "wood-grain"
	StyleFlat        Style = "flat"
)

var styles = []Style{StyleLap, StyleBoardBatten, StyleMetalRib, StyleShingle, StyleWoodGrain, StyleFlat}

// ParseStyle validates a style name.
func ParseStyle(s string) (Style, error) {
	st := Style(strings.ToLower(strings.TrimSpace(s)))
	if !lo.Contains(styles, st) {
		return "", fmt.Errorf("unknown pattern style %q", s)
	}
	return st, nil
}

// Pattern describes a siding, trim or accent texture source.
type Pattern struct {
	ID       string  `json:"id"`
	Style    Style   `json:"style"`
	Diffuse  string  `json:"diffuse"`   // diffuse pattern identifier
	Normal   string  `json:"normal"`    // bump pattern identifier
	Metal    bool    `json:"metal"`     // metal finish
	RefWidth float64 `json:"ref_width"` // physical width one tile covers
	Spacing  float64 `json:"spacing"`   // board/rib spacing within a tile
	Vertical bool    `json:"vertical"`  // boards run vertically
}

// ---------------------------------------------------------------------------
// Fixtures
// ---------------------------------------------------------------------------

// MeshSpec is one named sub-mesh of a fixture model.
type MeshSpec struct {
	Name string    `json:"name"`
	Role Role      `json:"role"`
	Box  geom.Box3 `json:"box"`
}

// Fixture is the static descriptor for one fixture type.
type Fixture struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	Orientation string          `json:"orientation,omitempty"`
	CutBox      geom.Rect       `json:"cut_box"`
	Size        geom.Vec3       `json:"size"`
	Meshes      []MeshSpec      `json:"meshes"`
	Patterns    map[Role]string `json:"patterns,omitempty"`
}

// Roles returns the distinct material roles used by the fixture's meshes
// in declaration order.
func (f Fixture) Roles() []Role {
	return lo.Uniq(lo.Map(f.Meshes, func(m MeshSpec, _ int) Role { return m.Role }))
}

// PatternFor returns the pattern ID the fixture uses for a fixed-accent
// role. Main and secondary report false; they follow the color request.
func (f Fixture) PatternFor(r Role) (string, bool) {
	if id, ok := f.Patterns[r]; ok {
		return id, true
	}
	id, ok := defaultPatterns[r]
	return id, ok
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

// Catalog is the frozen feature catalog.
type Catalog struct {
	fixtures map[string]Fixture
	patterns map[string]Pattern
	colors   map[string]colorful.Color
	exempt   map[string]bool
}

// Fixture returns the descriptor for a type ID.
func (c *Catalog) Fixture(id string) (Fixture, error) {
	f, ok := c.fixtures[id]
	if !ok {
		return Fixture{}, fmt.Errorf("%w: %q", ErrUnknownFixtureType, id)
	}
	return f, nil
}

// Fixtures returns every descriptor sorted by ID.
func (c *Catalog) Fixtures() []Fixture {
	out := lo.Values(c.fixtures)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FixturesOfKind returns the descriptors of one kind sorted by ID.
func (c *Catalog) FixturesOfKind(k Kind) []Fixture {
	return lo.Filter(c.Fixtures(), func(f Fixture, _ int) bool { return f.Kind == k })
}

// Pattern returns the pattern with the given ID.
func (c *Catalog) Pattern(id string) (Pattern, error) {
	p, ok := c.patterns[id]
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %q", ErrUnknownPattern, id)
	}
	return p, nil
}

// Color resolves a palette name or a "#rrggbb" literal.
func (c *Catalog) Color(name string) (colorful.Color, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if col, ok := c.colors[key]; ok {
		return col, nil
	}
	if strings.HasPrefix(key, "#") {
		col, err := colorful.Hex(key)
		if err == nil {
			return col, nil
		}
	}
	return colorful.Color{}, fmt.Errorf("%w: %q", ErrInvalidColorName, name)
}

// ColorNames returns the palette names, sorted.
func (c *Catalog) ColorNames() []string {
	names := lo.Keys(c.colors)
	sort.Strings(names)
	return names
}

// VentExempt reports whether vent customization is disabled for a style.
func (c *Catalog) VentExempt(style string) bool {
	return c.exempt[strings.ToLower(style)]
}
