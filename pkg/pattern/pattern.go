// Package pattern rasterizes procedural siding, trim and accent textures
// with draw2d. Diffuse images are tinted by the requested color; bump
// images are grayscale height maps where grooves are dark.
package pattern

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/material"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/llgcode/draw2d/draw2dkit"
	"github.com/lucasb-eyer/go-colorful"
)

// Compile-time interface check.
var _ material.Generator = (*Generator)(nil)

// Generator draws patterns. It holds no state and is safe for concurrent use.
type Generator struct{}

// New returns a Generator.
func New() *Generator { return &Generator{} }

// palette holds the three tones a pattern is drawn with.
type palette struct {
	base, groove, highlight color.Color
}

func diffusePalette(c colorful.Color) palette {
	c = c.Clamped()
	black := colorful.Color{}
	return palette{
		base:      c,
		groove:    c.BlendLab(black, 0.35).Clamped(),
		highlight: c.BlendLab(material.White, 0.2).Clamped(),
	}
}

var bumpPalette = palette{
	base:      color.Gray{Y: 128},
	groove:    color.Gray{Y: 40},
	highlight: color.Gray{Y: 200},
}

// canvas wraps a draw2d context and swaps axes for vertical patterns, so
// every style is drawn as if its boards ran horizontally.
type canvas struct {
	gc       *draw2dimg.GraphicContext
	w, h     float64 // along, across the boards
	vertical bool
}

func (c *canvas) rect(x0, y0, x1, y1 float64, col color.Color) {
	if c.vertical {
		x0, y0, x1, y1 = y0, x0, y1, x1
	}
	c.gc.SetFillColor(col)
	draw2dkit.Rectangle(c.gc, x0, y0, x1, y1)
	c.gc.Fill()
}

func (c *canvas) line(x0, y0, x1, y1, width float64, col color.Color) {
	if c.vertical {
		x0, y0, x1, y1 = y0, x0, y1, x1
	}
	c.gc.SetStrokeColor(col)
	c.gc.SetLineWidth(width)
	c.gc.MoveTo(x0, y0)
	c.gc.LineTo(x1, y1)
	c.gc.Stroke()
}

// Generate draws one image for req.
func (g *Generator) Generate(ctx context.Context, req material.PatternRequest) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Size.X <= 0 || req.Size.Y <= 0 {
		return nil, fmt.Errorf("pattern %q: invalid size %v", req.PatternID, req.Size)
	}

	img := image.NewRGBA(image.Rect(0, 0, req.Size.X, req.Size.Y))
	c := &canvas{
		gc:       draw2dimg.NewGraphicContext(img),
		w:        float64(req.Size.X),
		h:        float64(req.Size.Y),
		vertical: req.Vertical,
	}
	if c.vertical {
		c.w, c.h = c.h, c.w
	}

	pal := diffusePalette(req.Color)
	if req.Bump {
		pal = bumpPalette
	}
	draw.Draw(img, img.Bounds(), image.NewUniform(pal.base), image.Point{}, draw.Src)

	// Board pitch in pixels: Spacing is measured against the reference
	// width the whole tile covers.
	pitch := c.h
	if req.Spacing > 0 && req.RefWidth > 0 {
		pitch = math.Max(2, c.h*req.Spacing/req.RefWidth)
	}

	var err error
	switch req.Style {
	case catalog.StyleLap:
		err = drawLap(ctx, c, pal, pitch)
	case catalog.StyleBoardBatten:
		err = drawBoardBatten(ctx, c, pal, pitch)
	case catalog.StyleMetalRib:
		err = drawMetalRib(ctx, c, pal, pitch)
	case catalog.StyleShingle:
		err = drawShingle(ctx, c, pal, pitch)
	case catalog.StyleWoodGrain:
		err = drawWoodGrain(ctx, c, pal, pitch)
	case catalog.StyleFlat, "":
	default:
		return nil, fmt.Errorf("pattern %q: unknown style %q", req.PatternID, req.Style)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// drawLap draws overlapping horizontal boards: a shadow line under each
// board edge with a lighter lip above it.
func drawLap(ctx context.Context, c *canvas, pal palette, pitch float64) error {
	shadow := math.Max(1, pitch/8)
	for y := 0.0; y < c.h; y += pitch {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.rect(0, y, c.w, y+shadow, pal.groove)
		c.rect(0, y+shadow, c.w, y+2*shadow, pal.highlight)
	}
	return nil
}

// drawBoardBatten draws wide boards with narrow raised battens over the seams.
func drawBoardBatten(ctx context.Context, c *canvas, pal palette, pitch float64) error {
	batten := math.Max(2, pitch/5)
	for y := 0.0; y < c.h; y += pitch {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.rect(0, y, c.w, y+batten, pal.highlight)
		c.line(0, y+batten, c.w, y+batten, 1, pal.groove)
	}
	return nil
}

// drawMetalRib draws trapezoidal ribs: a bright crest flanked by shadows.
func drawMetalRib(ctx context.Context, c *canvas, pal palette, pitch float64) error {
	rib := math.Max(2, pitch/4)
	for y := 0.0; y < c.h; y += pitch {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.rect(0, y, c.w, y+rib/4, pal.groove)
		c.rect(0, y+rib/4, c.w, y+rib*3/4, pal.highlight)
		c.rect(0, y+rib*3/4, c.w, y+rib, pal.groove)
	}
	return nil
}

// drawShingle draws courses of shingles with staggered butt joints.
func drawShingle(ctx context.Context, c *canvas, pal palette, pitch float64) error {
	tab := pitch * 1.5
	course := 0
	for y := 0.0; y < c.h; y += pitch {
		if err := ctx.Err(); err != nil {
			return err
		}
		c.line(0, y, c.w, y, math.Max(1, pitch/10), pal.groove)
		offset := 0.0
		if course%2 == 1 {
			offset = tab / 2
		}
		for x := offset; x < c.w; x += tab {
			c.line(x, y, x, y+pitch, 1, pal.groove)
		}
		course++
	}
	return nil
}

// drawWoodGrain draws gently waving grain lines.
func drawWoodGrain(ctx context.Context, c *canvas, pal palette, pitch float64) error {
	amp := pitch / 3
	for y := pitch / 2; y < c.h; y += pitch {
		if err := ctx.Err(); err != nil {
			return err
		}
		col := pal.groove
		if int(y/pitch)%3 == 0 {
			col = pal.highlight
		}
		const steps = 16
		step := c.w / steps
		for i := 0; i < steps; i++ {
			x0, x1 := float64(i)*step, float64(i+1)*step
			y0 := y + amp*math.Sin(x0/c.w*2*math.Pi)
			y1 := y + amp*math.Sin(x1/c.w*2*math.Pi)
			c.line(x0, y0, x1, y1, 1, col)
		}
	}
	return nil
}
