package material

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/sync/errgroup"
)

// ErrSuperseded is returned when a newer color request was issued on the
// same target before this one finished.
var ErrSuperseded = errors.New("color request superseded")

// Pattern identifiers used when a request leaves siding or trim empty.
const (
	DefaultSiding = "lap"
	DefaultTrim   = "trim-flat"
)

// DefaultTextureSize is the edge length of generated textures in pixels.
const DefaultTextureSize = 256

// glassColor tints glass roles; requests never recolor glass.
var glassColor = colorful.Color{R: 0.81, G: 0.91, B: 0.97}

// PatternRequest asks a Generator for one image.
type PatternRequest struct {
	PatternID string
	Style     catalog.Style
	RefWidth  float64
	Spacing   float64
	Size      image.Point
	Color     colorful.Color
	Vertical  bool
	Bump      bool // grayscale height map instead of a diffuse image
}

// Generator produces pattern images. Implementations must be safe for
// concurrent use.
type Generator interface {
	Generate(ctx context.Context, req PatternRequest) (image.Image, error)
}

// Target is a fixture whose materials the pipeline recolors.
type Target interface {
	// BeginColor starts a new request and returns its generation. Any
	// earlier generation becomes stale.
	BeginColor() uint64
	// ApplyColor swaps the batch in if gen is still current and returns
	// ErrSuperseded otherwise.
	ApplyColor(gen uint64, b Batch) error
	ColorRoles() []catalog.Role
	Overridden(role catalog.Role) bool
	// PhysicalSize is the fixture's width and height in centimeters.
	PhysicalSize() geom.Vec2
	// PatternFor returns the fixed pattern of an accent role.
	PatternFor(role catalog.Role) (string, bool)
}

// Outcome is delivered by Go when a request finishes.
type Outcome struct {
	Batch Batch
	Err   error
}

// Pipeline composes materials for color requests.
type Pipeline struct {
	cat         *catalog.Catalog
	gen         Generator
	logger      *log.Logger
	textureSize int
}

// NewPipeline returns a pipeline. A nil logger means log.Default(); a
// non-positive size selects DefaultTextureSize.
func NewPipeline(cat *catalog.Catalog, gen Generator, logger *log.Logger, textureSize int) *Pipeline {
	if logger == nil {
		logger = log.Default()
	}
	if textureSize <= 0 {
		textureSize = DefaultTextureSize
	}
	return &Pipeline{cat: cat, gen: gen, logger: logger, textureSize: textureSize}
}

// job is the resolved input for one role.
type job struct {
	role    catalog.Role
	color   colorful.Color
	pattern catalog.Pattern
}

// Run resolves req against the catalog, generates a texture pair for
// every role t does not override, and applies the batch to t.
//
// Invalid colors or patterns fail before the target's generation moves, so
// an in-flight earlier request is not disturbed. Any generation failure
// fails the whole request and nothing is applied. A request overtaken by a
// newer one returns ErrSuperseded and is dropped.
func (p *Pipeline) Run(ctx context.Context, t Target, req ColorRequest) (Batch, error) {
	jobs, err := p.resolve(t, req)
	if err != nil {
		return Batch{}, err
	}
	gen := t.BeginColor()

	batch := Batch{Request: req, Updates: make([]Update, len(jobs))}
	if len(jobs) > 0 {
		size := t.PhysicalSize()
		g, gctx := errgroup.WithContext(ctx)
		for i, j := range jobs {
			g.Go(func() error {
				u, err := p.generate(gctx, j, size)
				if err != nil {
					return fmt.Errorf("material: role %s: %w", j.role, err)
				}
				batch.Updates[i] = u
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Batch{}, err
		}
	}

	if err := t.ApplyColor(gen, batch); err != nil {
		if errors.Is(err, ErrSuperseded) {
			p.logger.Printf("material: dropping color request generation %d: %v", gen, err)
		}
		return Batch{}, err
	}
	return batch, nil
}

// Go runs the request in the background. The channel receives exactly one
// Outcome and is then closed.
func (p *Pipeline) Go(ctx context.Context, t Target, req ColorRequest) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		b, err := p.Run(ctx, t, req)
		ch <- Outcome{Batch: b, Err: err}
	}()
	return ch
}

// resolve maps each non-overridden role to a color and pattern.
func (p *Pipeline) resolve(t Target, req ColorRequest) ([]job, error) {
	var jobs []job
	for _, role := range t.ColorRoles() {
		if t.Overridden(role) {
			continue
		}
		j := job{role: role}

		var colorName, patternID string
		switch role {
		case catalog.RoleMain:
			colorName, patternID = req.MainColor, orDefault(req.SidingID, DefaultSiding)
		case catalog.RoleSecondary:
			colorName, patternID = orDefault(req.TrimColor, req.SecondaryColor), orDefault(req.TrimID, DefaultTrim)
		case catalog.RoleMetal:
			colorName = req.MainColor
		case catalog.RoleWood, catalog.RoleShingle:
			colorName = req.SecondaryColor
		}
		if patternID == "" {
			id, ok := t.PatternFor(role)
			if !ok {
				return nil, fmt.Errorf("material: role %s has no pattern", role)
			}
			patternID = id
		}

		var err error
		if j.pattern, err = p.cat.Pattern(patternID); err != nil {
			return nil, fmt.Errorf("material: role %s: %w", role, err)
		}
		if role == catalog.RoleGlass {
			j.color = glassColor
		} else if j.color, err = p.cat.Color(colorName); err != nil {
			return nil, fmt.Errorf("material: role %s: %w", role, err)
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// generate renders the diffuse and bump images of one role. Both share the
// same repeat, derived from the fixture size over the pattern's reference
// width.
func (p *Pipeline) generate(ctx context.Context, j job, size geom.Vec2) (Update, error) {
	req := PatternRequest{
		PatternID: j.pattern.Diffuse,
		Style:     j.pattern.Style,
		RefWidth:  j.pattern.RefWidth,
		Spacing:   j.pattern.Spacing,
		Size:      image.Pt(p.textureSize, p.textureSize),
		Color:     j.color,
		Vertical:  j.pattern.Vertical,
	}
	diffuse, err := p.gen.Generate(ctx, req)
	if err != nil {
		return Update{}, fmt.Errorf("diffuse %q: %w", req.PatternID, err)
	}

	req.PatternID = j.pattern.Normal
	req.Bump = true
	bump, err := p.gen.Generate(ctx, req)
	if err != nil {
		return Update{}, fmt.Errorf("bump %q: %w", req.PatternID, err)
	}

	return Update{
		Role:    j.role,
		Color:   j.color,
		Pattern: j.pattern.ID,
		Pair:    TexturePair{Diffuse: diffuse, Bump: bump},
		Repeat:  Repeat(size, j.pattern.RefWidth),
		Metal:   j.pattern.Metal,
	}, nil
}

// Repeat returns how many pattern tiles span a fixture of the given size.
func Repeat(size geom.Vec2, refWidth float64) geom.Vec2 {
	if refWidth <= 0 || size.X <= 0 || size.Y <= 0 {
		return geom.Vec2{X: 1, Y: 1}
	}
	return geom.Vec2{X: size.X / refWidth, Y: size.Y / refWidth}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
