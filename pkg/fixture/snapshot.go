package fixture

import (
	"context"
	"fmt"

	"github.com/chazu/openings/pkg/building"
	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/material"
	"github.com/chazu/openings/pkg/orient"
	"github.com/chazu/openings/pkg/surface"
)

// Snapshot holds the attributes needed to rebuild a fixture's placement.
type Snapshot struct {
	ID          string                 `json:"id"`
	TypeID      string                 `json:"type_id"`
	Kind        catalog.Kind           `json:"kind"`
	Position    geom.Vec3              `json:"position"`
	Rotation    float64                `json:"rotation"`
	Orientation string                 `json:"orientation,omitempty"`
	WallID      string                 `json:"wall_id,omitempty"`
	TrussID     string                 `json:"truss_id,omitempty"`
	TrimID      string                 `json:"trim_id,omitempty"`
	RefHeight   float64                `json:"ref_height,omitempty"`
	RefWidth    float64                `json:"ref_width,omitempty"`
	Forbidden   bool                   `json:"forbidden"`
	Hidden      bool                   `json:"hidden"`
	Color       *material.ColorRequest `json:"color,omitempty"`
}

// Snapshot captures the fixture's current placement state.
func (c *Core) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		ID:        c.id,
		TypeID:    c.spec.ID,
		Kind:      c.spec.Kind,
		Position:  c.position,
		Rotation:  c.rotation,
		RefHeight: c.refHeight,
		RefWidth:  c.refWidth,
		Forbidden: c.forbidden,
		Hidden:    c.hidden,
	}
	if c.spec.Kind.Orientable() {
		s.Orientation = c.orientation.String()
	}
	if h := c.hosts[surface.Wall]; h != nil {
		s.WallID = h.ID
	}
	if h := c.hosts[surface.Truss]; h != nil {
		s.TrussID = h.ID
	}
	if h := c.hosts[surface.Trim]; h != nil {
		s.TrimID = h.ID
	}
	if c.lastColor != nil {
		req := *c.lastColor
		s.Color = &req
	}
	return s
}

// Restore rebuilds a fixture from a snapshot, attaching it to the named
// surfaces of b and replaying its last color request. Any failure disposes
// the partial fixture and returns no fixture.
func Restore(ctx context.Context, deps Deps, s Snapshot, b *building.Building) (Fixture, error) {
	f, err := New(deps, s.TypeID, WithID(s.ID), WithReference(s.RefHeight, s.RefWidth))
	if err != nil {
		return nil, err
	}
	if err := restore(ctx, f, s, b); err != nil {
		f.Dispose()
		return nil, fmt.Errorf("fixture: restore %s: %w", s.ID, err)
	}
	return f, nil
}

func restore(ctx context.Context, f Fixture, s Snapshot, b *building.Building) error {
	if s.Orientation != "" && f.Kind().Orientable() {
		want, err := orient.Parse(s.Orientation)
		if err != nil {
			return err
		}
		coreOf(f).setOrientation(want)
	}
	if _, err := f.SetRotation(s.Rotation); err != nil {
		return err
	}
	if _, err := f.SetPosition(s.Position); err != nil {
		return err
	}

	// Secondary hosts first so the wall assignment cuts everything at once.
	for _, h := range []struct {
		kind surface.Kind
		id   string
		set  func(*surface.Surface) (Result, error)
	}{
		{surface.Truss, s.TrussID, f.SetHostTruss},
		{surface.Trim, s.TrimID, f.SetHostTrim},
		{surface.Wall, s.WallID, f.SetHostWall},
	} {
		if h.id == "" {
			continue
		}
		if b == nil {
			return fmt.Errorf("%s %q: no building", h.kind, h.id)
		}
		surf := b.Surface(h.kind, h.id)
		if surf == nil {
			return fmt.Errorf("unknown %s %q", h.kind, h.id)
		}
		if _, err := h.set(surf); err != nil {
			return err
		}
	}

	if v, ok := f.(*Vent); ok && s.Hidden {
		if _, err := v.Hide(); err != nil {
			return err
		}
	}
	f.SetPlacementForbidden(s.Forbidden)
	if s.Color != nil && coreOf(f).colorable() == nil {
		return f.SetColor(ctx, *s.Color)
	}
	return nil
}

func (c *Core) setOrientation(o orient.Flags) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orientation = o
}

// coreOf returns the Core embedded in a variant.
func coreOf(f Fixture) *Core {
	switch v := f.(type) {
	case *Door:
		return v.Core
	case *DeepDoor:
		return v.Core
	case *Window:
		return v.Core
	case *PetDoor:
		return v.Core
	case *Cupola:
		return v.Core
	case *Vent:
		return v.Core
	}
	panic(fmt.Sprintf("fixture: unexpected variant %T", f))
}
