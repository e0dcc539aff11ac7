// Package roof manages the vents on a building's gable trusses. Each
// default vent occupies a slot; choosing a custom vent type hides every
// default and installs one custom vent per slot in its place.
package roof

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/fixture"
	"github.com/chazu/openings/pkg/surface"
	"github.com/samber/lo"
)

// Factory builds a fixture of a catalog type.
type Factory func(typeID string) (fixture.Fixture, error)

// Container tracks default and custom vents for one building.
type Container struct {
	mu       sync.Mutex
	style    string
	cat      *catalog.Catalog
	newVent  Factory
	logger   *log.Logger
	defaults []*fixture.Vent
	custom   []*fixture.Vent
}

// NewContainer returns an empty container. A nil logger means log.Default().
func NewContainer(style string, cat *catalog.Catalog, factory Factory, logger *log.Logger) *Container {
	if logger == nil {
		logger = log.Default()
	}
	return &Container{style: style, cat: cat, newVent: factory, logger: logger}
}

// Style returns the building style.
func (c *Container) Style() string { return c.style }

// AddDefault registers a default vent slot. The vent keeps whatever host
// and visibility it already has.
func (c *Container) AddDefault(v *fixture.Vent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults = append(c.defaults, v)
}

// Defaults returns the default vents.
func (c *Container) Defaults() []*fixture.Vent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fixture.Vent(nil), c.defaults...)
}

// CustomVents returns the installed custom vents.
func (c *Container) CustomVents() []*fixture.Vent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*fixture.Vent(nil), c.custom...)
}

// ClipOwners returns the vents currently holding a truss cutout.
func (c *Container) ClipOwners() []*fixture.Vent {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := append(append([]*fixture.Vent(nil), c.defaults...), c.custom...)
	return lo.Filter(all, func(v *fixture.Vent, _ int) bool {
		return lo.Contains(v.Claims(), surface.Truss)
	})
}

// SetVent selects the vent type for every slot.
//
// An empty id removes the custom vents and shows the defaults again. An id
// already installed is a no-op, as is any call for a vent-exempt style.
// Otherwise the current custom vents are removed and each default slot gets
// a new vent of type id at the default's position, rotation and truss, with
// the default's last color. Defaults are hidden before their replacement
// cuts the truss, so each truss carries one vent cutout at a time.
func (c *Container) SetVent(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cat.VentExempt(c.style) {
		return nil
	}
	if id == "" {
		c.clearLocked()
		return c.showDefaultsLocked()
	}
	if lo.ContainsBy(c.custom, func(v *fixture.Vent) bool { return v.TypeID() == id }) {
		return nil
	}

	spec, err := c.cat.Fixture(id)
	if err != nil {
		return fmt.Errorf("roof: %w", err)
	}
	if spec.Kind != catalog.KindVent {
		return fmt.Errorf("roof: %q is a %s, not a vent", id, spec.Kind)
	}

	c.clearLocked()
	for _, d := range c.defaults {
		v, err := c.install(ctx, id, d)
		if err != nil {
			c.clearLocked()
			return errors.Join(fmt.Errorf("roof: install %s: %w", id, err), c.showDefaultsLocked())
		}
		c.custom = append(c.custom, v)
	}
	c.logger.Printf("roof: installed %d %s vents", len(c.custom), id)
	return nil
}

// install replaces default d with a new vent of type id.
func (c *Container) install(ctx context.Context, id string, d *fixture.Vent) (*fixture.Vent, error) {
	f, err := c.newVent(id)
	if err != nil {
		return nil, err
	}
	v, ok := f.(*fixture.Vent)
	if !ok {
		f.Dispose()
		return nil, fmt.Errorf("factory returned %T for %s", f, id)
	}

	if _, err := d.Hide(); err != nil {
		v.Dispose()
		return nil, err
	}
	steps := []func() (fixture.Result, error){
		func() (fixture.Result, error) { return v.SetRotation(d.Rotation()) },
		func() (fixture.Result, error) { return v.SetPosition(d.Position()) },
		func() (fixture.Result, error) { return v.SetHostTruss(d.Host(surface.Truss)) },
	}
	for _, step := range steps {
		res, err := step()
		if err != nil {
			v.Dispose()
			return nil, err
		}
		if res.Warning != nil {
			c.logger.Printf("roof: %v", res.Warning)
		}
	}

	if last := d.LastColor(); last != nil {
		if err := v.SetColor(ctx, *last); err != nil && !errors.Is(err, fixture.ErrNoPipeline) {
			v.Dispose()
			return nil, err
		}
	}
	return v, nil
}

// clearLocked disposes the custom vents, releasing their cutouts.
func (c *Container) clearLocked() {
	for i := len(c.custom) - 1; i >= 0; i-- {
		c.custom[i].Dispose()
	}
	c.custom = nil
}

func (c *Container) showDefaultsLocked() error {
	var errs []error
	for _, d := range c.defaults {
		if _, err := d.Show(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
