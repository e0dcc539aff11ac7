// Package fixture implements the placeable building fixtures: doors, deep
// doors, windows, pet doors, cupolas and vents.
//
// Every variant embeds a *Core that owns the fixture's geometry, its
// orientation, its host surface references and the clip regions it has
// pushed onto them. Mutators return a Result naming the surfaces whose
// clip stacks were popped and pushed.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/material"
	"github.com/chazu/openings/pkg/model"
	"github.com/chazu/openings/pkg/orient"
	"github.com/chazu/openings/pkg/placement"
	"github.com/chazu/openings/pkg/surface"
	"github.com/google/uuid"
)

var (
	ErrDisposed      = errors.New("fixture disposed")
	ErrWrongHost     = errors.New("fixture does not attach to this surface")
	ErrNotReversible = errors.New("fixture has no orientation")
	ErrUnknownRole   = errors.New("fixture has no such material role")
	ErrNoPipeline    = errors.New("fixture has no material pipeline")
)

// State is the placement state of a fixture.
type State int

const (
	Unplaced State = iota
	Placed
)

func (s State) String() string {
	if s == Placed {
		return "placed"
	}
	return "unplaced"
}

// Result reports the clip stack side effects of a mutation.
type Result struct {
	Popped []surface.Kind `json:"popped,omitempty"`
	Pushed []surface.Kind `json:"pushed,omitempty"`
	// Warning is set when the cut was skipped, for example because the
	// rotation is not one of the supported angles.
	Warning error `json:"-"`
}

// PlanIcon is one of the two pre-built plan view icons.
type PlanIcon struct {
	Name     string `json:"name"`
	Mirrored bool   `json:"mirrored"`
	Visible  bool   `json:"visible"`
}

// Placeable is the geometry side of a fixture.
type Placeable interface {
	Position() geom.Vec3
	Rotation() float64
	State() State
	SetPosition(p geom.Vec3) (Result, error)
	SetRotation(deg float64) (Result, error)
	SetHostWall(s *surface.Surface) (Result, error)
	SetHostTruss(s *surface.Surface) (Result, error)
	SetHostTrim(s *surface.Surface) (Result, error)
	Host(k surface.Kind) *surface.Surface
	Footprint() geom.Rect
	PlacementForbidden() bool
	SetPlacementForbidden(forbidden bool)
}

// Colorable is the material side of a fixture.
type Colorable interface {
	SetColor(ctx context.Context, req material.ColorRequest) error
	SetColorAsync(ctx context.Context, req material.ColorRequest) <-chan material.Outcome
	OverrideMaterial(role catalog.Role, m *material.Material) error
	Materials() map[catalog.Role]material.Material
	LastColor() *material.ColorRequest
}

// Reversible is the orientation side of a fixture.
type Reversible interface {
	Orientation() orient.Flags
	Reverse() error
	Icons() [2]PlanIcon
}

// Fixture is implemented by every variant.
type Fixture interface {
	Placeable
	Colorable
	Reversible

	ID() string
	TypeID() string
	Kind() catalog.Kind
	Snapshot() Snapshot
	Dispose() Result
}

// Compile-time interface checks.
var (
	_ Fixture = (*Door)(nil)
	_ Fixture = (*DeepDoor)(nil)
	_ Fixture = (*Window)(nil)
	_ Fixture = (*PetDoor)(nil)
	_ Fixture = (*Cupola)(nil)
	_ Fixture = (*Vent)(nil)

	_ material.Target = (*Core)(nil)
)

// Deps are the collaborators shared by all fixtures of a layout.
type Deps struct {
	Catalog   *catalog.Catalog
	Models    model.Provider
	Placement *placement.Engine  // nil selects placement.NewEngine(0)
	Pipeline  *material.Pipeline // nil disables SetColor
	Logger    *log.Logger        // nil selects log.Default()
	// AlertColor is the palette name or hex used while placement is
	// forbidden. Empty selects the catalog's "alert" entry.
	AlertColor string
}

// Option configures a fixture at construction.
type Option func(*Core)

// WithID sets the fixture ID instead of generating one.
func WithID(id string) Option {
	return func(c *Core) { c.id = id }
}

// WithReference records the building height and width a door or window
// was sized against. The height stands in for the wall height when a host
// wall reports none.
func WithReference(height, width float64) Option {
	return func(c *Core) {
		c.refHeight = height
		c.refWidth = width
	}
}

// fallbackAlert is used when neither Deps nor the catalog name an alert
// color.
const fallbackAlert = "#e53935"

// New builds a fixture of the given catalog type. Unknown types, malformed
// orientations and model failures abort construction.
func New(deps Deps, typeID string, opts ...Option) (Fixture, error) {
	if deps.Catalog == nil || deps.Models == nil {
		return nil, errors.New("fixture: catalog and model provider are required")
	}
	spec, err := deps.Catalog.Fixture(typeID)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}

	var flags orient.Flags
	if spec.Kind.Orientable() {
		if flags, err = orient.Parse(spec.Orientation); err != nil {
			return nil, fmt.Errorf("fixture: %s: %w", typeID, err)
		}
	}

	if deps.Placement == nil {
		deps.Placement = placement.NewEngine(0)
	}
	logger := deps.Logger
	if logger == nil {
		logger = log.Default()
	}
	alertName := deps.AlertColor
	if alertName == "" {
		alertName = "alert"
	}
	alert, err := deps.Catalog.Color(alertName)
	if err != nil {
		if alert, err = deps.Catalog.Color(fallbackAlert); err != nil {
			return nil, fmt.Errorf("fixture: alert color: %w", err)
		}
	}

	m, err := deps.Models.Load(typeID)
	if err != nil {
		return nil, fmt.Errorf("fixture: %s: %w", typeID, err)
	}

	c := &Core{
		spec:        spec,
		deps:        deps,
		logger:      logger,
		alert:       alert,
		model:       m,
		orientation: flags,
		initial:     flags,
		hosts:       make(map[surface.Kind]*surface.Surface),
		claims:      make(map[surface.Kind]surface.Handle),
		materials:   make(map[catalog.Role]*material.Material),
		overrides:   make(map[catalog.Role]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.id == "" {
		c.id = uuid.NewString()
	}
	for _, role := range m.Roles() {
		c.materials[role] = material.New(typeID+"/"+string(role), role)
	}

	switch spec.Kind {
	case catalog.KindDoor:
		return &Door{c}, nil
	case catalog.KindDeepDoor:
		return &DeepDoor{c}, nil
	case catalog.KindWindow:
		return &Window{c}, nil
	case catalog.KindPetDoor:
		return &PetDoor{c}, nil
	case catalog.KindCupola:
		return &Cupola{c}, nil
	case catalog.KindVent:
		return &Vent{c}, nil
	}
	m.Dispose()
	return nil, fmt.Errorf("fixture: %w: kind %q", catalog.ErrUnknownFixtureType, spec.Kind)
}

// ---------------------------------------------------------------------------
// Variants
// ---------------------------------------------------------------------------

// Door is a hinged wall door. Tall doors also cut the truss and trim above
// the wall.
type Door struct{ *Core }

// SwingClearance is the depth of floor inside the building swept by the
// leaf; zero for doors swinging outward.
func (d *Door) SwingClearance() float64 {
	if d.Orientation().SwingsOut() {
		return 0
	}
	return d.spec.CutBox.Width()
}

// DeepDoor is a door whose frame runs through the full wall depth.
type DeepDoor struct{ *Core }

// Depth is the frame depth.
func (d *DeepDoor) Depth() float64 { return d.spec.Size.Z }

// Window is a wall window.
type Window struct{ *Core }

// SillHeight is the height of the opening's bottom edge above the floor.
func (w *Window) SillHeight() float64 { return w.spec.CutBox.Min.Y }

// HeadHeight is the height of the opening's top edge above the floor.
func (w *Window) HeadHeight() float64 { return w.spec.CutBox.Max.Y }

// PetDoor is a small flap door cut at floor level.
type PetDoor struct{ *Core }

// FlapHeight is the height of the opening.
func (p *PetDoor) FlapHeight() float64 { return p.spec.CutBox.Height() }

// Cupola sits on the roof ridge. It never cuts a host surface.
type Cupola struct{ *Core }

// Vent is a gable vent hosted by a truss. Hidden vents keep their truss
// reference but release their cutout.
type Vent struct{ *Core }

// Hide releases the vent's truss cutout and marks it invisible.
func (v *Vent) Hide() (Result, error) { return v.setHidden(true) }

// Show restores the vent's visibility and its truss cutout.
func (v *Vent) Show() (Result, error) { return v.setHidden(false) }

// Visible reports whether the vent is shown.
func (v *Vent) Visible() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return !v.hidden
}
