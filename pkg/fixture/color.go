package fixture

import (
	"context"
	"fmt"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/material"
)

// SetColor runs a color request to completion. A newer request issued
// while this one is generating wins; this one then returns
// material.ErrSuperseded.
func (c *Core) SetColor(ctx context.Context, req material.ColorRequest) error {
	if err := c.colorable(); err != nil {
		return err
	}
	_, err := c.deps.Pipeline.Run(ctx, c, req)
	return err
}

// SetColorAsync runs a color request in the background.
func (c *Core) SetColorAsync(ctx context.Context, req material.ColorRequest) <-chan material.Outcome {
	if err := c.colorable(); err != nil {
		ch := make(chan material.Outcome, 1)
		ch <- material.Outcome{Err: err}
		close(ch)
		return ch
	}
	return c.deps.Pipeline.Go(ctx, c, req)
}

func (c *Core) colorable() error {
	if c.Disposed() {
		return ErrDisposed
	}
	if c.deps.Pipeline == nil {
		return ErrNoPipeline
	}
	return nil
}

// LastColor returns the most recently applied request, or nil.
func (c *Core) LastColor() *material.ColorRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastColor == nil {
		return nil
	}
	req := *c.lastColor
	return &req
}

// OverrideMaterial hands a role to a caller-owned material; color requests
// skip it from then on. A nil material returns the role to the pipeline
// with a fresh untextured material.
func (c *Core) OverrideMaterial(role catalog.Role, m *material.Material) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if _, ok := c.materials[role]; !ok {
		return fmt.Errorf("%w: %s on %s", ErrUnknownRole, role, c.spec.ID)
	}
	if m == nil {
		fresh := material.New(c.spec.ID+"/"+string(role), role)
		fresh.Color = c.tintLocked(role)
		c.materials[role] = fresh
		delete(c.overrides, role)
		return nil
	}
	c.materials[role] = m
	c.overrides[role] = true
	return nil
}

// Materials returns a copy of every role's material.
func (c *Core) Materials() map[catalog.Role]material.Material {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[catalog.Role]material.Material, len(c.materials))
	for role, m := range c.materials {
		out[role] = *m
	}
	return out
}

// ---------------------------------------------------------------------------
// material.Target
// ---------------------------------------------------------------------------

// BeginColor starts a new color generation.
func (c *Core) BeginColor() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	return c.generation
}

// ApplyColor swaps a finished batch into the materials in one pass if gen
// is still the newest generation.
func (c *Core) ApplyColor(gen uint64, b material.Batch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disposed {
		return ErrDisposed
	}
	if gen != c.generation {
		return fmt.Errorf("fixture %s: generation %d, current %d: %w", c.id, gen, c.generation, material.ErrSuperseded)
	}
	for _, u := range b.Updates {
		m, ok := c.materials[u.Role]
		if !ok || c.overrides[u.Role] {
			continue
		}
		m.Apply(u)
		m.Color = c.tintLocked(u.Role)
	}
	req := b.Request
	c.lastColor = &req
	return nil
}

// ColorRoles returns the model's material roles.
func (c *Core) ColorRoles() []catalog.Role {
	return c.model.Roles()
}

// Overridden reports whether a role belongs to a caller-supplied material.
func (c *Core) Overridden(role catalog.Role) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.overrides[role]
}

// PhysicalSize is the fixture's nominal width and height, falling back to
// the model bounds.
func (c *Core) PhysicalSize() geom.Vec2 {
	if c.spec.Size.X > 0 && c.spec.Size.Y > 0 {
		return geom.Vec2{X: c.spec.Size.X, Y: c.spec.Size.Y}
	}
	return geom.Vec2{X: c.model.Bounds.Width(), Y: c.model.Bounds.Height()}
}

// PatternFor returns the catalog pattern of an accent role.
func (c *Core) PatternFor(role catalog.Role) (string, bool) {
	return c.spec.PatternFor(role)
}
