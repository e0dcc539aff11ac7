package pattern

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/material"
	"github.com/lucasb-eyer/go-colorful"
)

var red = colorful.Color{R: 0.8, G: 0.1, B: 0.1}

func request(style catalog.Style) material.PatternRequest {
	return material.PatternRequest{
		PatternID: string(style),
		Style:     style,
		RefWidth:  120,
		Spacing:   20,
		Size:      image.Pt(64, 64),
		Color:     red,
	}
}

// distinct counts the distinct colors in img.
func distinct(img image.Image) int {
	seen := make(map[color.RGBA]bool)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, a := img.At(x, y).RGBA()
			seen[color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), uint8(a >> 8)}] = true
		}
	}
	return len(seen)
}

func TestGenerateStyles(t *testing.T) {
	g := New()
	for _, style := range []catalog.Style{
		catalog.StyleLap, catalog.StyleBoardBatten, catalog.StyleMetalRib,
		catalog.StyleShingle, catalog.StyleWoodGrain,
	} {
		t.Run(string(style), func(t *testing.T) {
			img, err := g.Generate(context.Background(), request(style))
			if err != nil {
				t.Fatal(err)
			}
			if img.Bounds() != image.Rect(0, 0, 64, 64) {
				t.Errorf("bounds = %v", img.Bounds())
			}
			if n := distinct(img); n < 2 {
				t.Errorf("%s drew a uniform image", style)
			}
		})
	}
}

func TestGenerateFlatIsUniform(t *testing.T) {
	img, err := New().Generate(context.Background(), request(catalog.StyleFlat))
	if err != nil {
		t.Fatal(err)
	}
	if n := distinct(img); n != 1 {
		t.Errorf("flat pattern has %d colors, want 1", n)
	}
	r, _, _, _ := img.At(10, 10).RGBA()
	if r>>8 < 190 {
		t.Errorf("flat pattern not tinted by the request color: r=%d", r>>8)
	}
}

func TestGenerateBumpIsGray(t *testing.T) {
	req := request(catalog.StyleLap)
	req.Bump = true
	img, err := New().Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// Antialiased edges blend grays, which stay gray.
			if r>>8 != g>>8 || g>>8 != bl>>8 {
				t.Fatalf("bump pixel (%d,%d) not gray: %d %d %d", x, y, r>>8, g>>8, bl>>8)
			}
		}
	}
}

func TestGenerateVerticalDiffers(t *testing.T) {
	g := New()
	h, err := g.Generate(context.Background(), request(catalog.StyleLap))
	if err != nil {
		t.Fatal(err)
	}
	req := request(catalog.StyleLap)
	req.Vertical = true
	v, err := g.Generate(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	// Horizontal boards vary down a column; vertical boards vary along a row.
	if h.At(5, 0) != h.At(60, 0) {
		t.Error("horizontal lap should be constant along a row")
	}
	if v.At(0, 5) != v.At(0, 60) {
		t.Error("vertical lap should be constant down a column")
	}
}

func TestGenerateErrors(t *testing.T) {
	g := New()

	req := request(catalog.StyleLap)
	req.Size = image.Point{}
	if _, err := g.Generate(context.Background(), req); err == nil {
		t.Error("expected error for empty size")
	}

	req = request("stucco")
	if _, err := g.Generate(context.Background(), req); err == nil {
		t.Error("expected error for unknown style")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Generate(ctx, request(catalog.StyleShingle)); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
