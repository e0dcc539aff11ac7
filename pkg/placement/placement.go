// Package placement derives the clip rectangles a fixture cuts into its host
// surfaces from the fixture's world position and yaw.
//
// Rotations are quantized onto eight supported angles. Axis-aligned angles
// project the fixture position into the host's local frame; diagonal angles
// use the cut-box as-is. Door-like openings taller than the wall also cut
// the truss and trim above them.
package placement

import (
	"errors"
	"fmt"
	"math"

	"github.com/chazu/openings/pkg/geom"
)

// DefaultTolerance is the quantization slack in degrees.
const DefaultTolerance = 0.5

// ErrUnsupportedRotation is returned when a yaw does not fall on one of the
// eight supported angles.
var ErrUnsupportedRotation = errors.New("unsupported rotation")

// Angle is a quantized yaw in degrees, normalized to (-180, 180].
type Angle int

type axis int

const (
	axisX axis = iota
	axisZ
)

// projection tells how an angle maps world coordinates onto the host's
// local X axis.
type projection struct {
	axis     axis
	sign     float64
	diagonal bool
}

var table = map[Angle]projection{
	0:    {axis: axisX, sign: 1},
	180:  {axis: axisX, sign: -1},
	90:   {axis: axisZ, sign: -1},
	-90:  {axis: axisZ, sign: 1},
	45:   {diagonal: true},
	-45:  {diagonal: true},
	135:  {diagonal: true},
	-135: {diagonal: true},
}

// Diagonal reports whether the angle is one of ±45°, ±135°.
func (a Angle) Diagonal() bool { return table[a].diagonal }

// Frame is a host surface's world origin and height.
type Frame struct {
	Position geom.Vec3
	Height   float64
}

// TrussFrame carries the truss's horizontal scale.
type TrussFrame struct {
	Aspect float64
}

// TrimFrame carries the trim's height.
type TrimFrame struct {
	Height float64
}

// Input is everything Compute needs about one fixture.
type Input struct {
	CutBox   geom.Rect
	Position geom.Vec3
	Rotation float64 // yaw in degrees
	Host     Frame
	DoorLike bool
	Truss    *TrussFrame // nil when no truss is assigned
	Trim     *TrimFrame  // nil when no trim is assigned
}

// Clips is the computed cutout set. Truss and Trim are nil when the opening
// does not reach above the wall or the surface is absent.
type Clips struct {
	Angle Angle
	Host  geom.Rect
	Truss *geom.Rect
	Trim  *geom.Rect
}

// Engine computes clip rectangles.
type Engine struct {
	// Tolerance is how far, in degrees, a yaw may sit from a supported
	// angle and still snap onto it.
	Tolerance float64
}

// NewEngine returns an engine with the given tolerance; a non-positive
// value selects DefaultTolerance.
func NewEngine(tolerance float64) *Engine {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Engine{Tolerance: tolerance}
}

// Quantize snaps a yaw onto the nearest supported angle.
func (e *Engine) Quantize(deg float64) (Angle, error) {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0, fmt.Errorf("%w: %v°", ErrUnsupportedRotation, deg)
	}
	a := math.Mod(deg, 360)
	if a > 180 {
		a -= 360
	} else if a <= -180 {
		a += 360
	}
	q := math.Round(a/45) * 45
	if math.Abs(a-q) > e.Tolerance {
		return 0, fmt.Errorf("%w: %.2f°", ErrUnsupportedRotation, deg)
	}
	if q == -180 {
		q = 180
	}
	return Angle(q), nil
}

// Compute derives the host clip and, for tall door-like openings, the truss
// and trim clips above it.
func (e *Engine) Compute(in Input) (Clips, error) {
	angle, err := e.Quantize(in.Rotation)
	if err != nil {
		return Clips{}, err
	}
	p := table[angle]

	host := in.CutBox
	if !p.diagonal {
		wallPos, fixturePos := in.Host.Position.X, in.Position.X
		if p.axis == axisZ {
			wallPos, fixturePos = in.Host.Position.Z, in.Position.Z
		}
		offset := p.sign * (fixturePos - wallPos)
		if p.sign > 0 {
			host.Min.X = offset + in.CutBox.Min.X
			host.Max.X = offset + in.CutBox.Max.X
		} else {
			// Mirrored frame: the cut-box flips about the fixture origin.
			host.Min.X = offset - in.CutBox.Max.X
			host.Max.X = offset - in.CutBox.Min.X
		}
	}

	clips := Clips{Angle: angle, Host: host}
	overhang := in.CutBox.Max.Y - in.Host.Height
	if !in.DoorLike || overhang <= 0 {
		return clips, nil
	}

	aspect := 1.0
	if in.Truss != nil && in.Truss.Aspect > 0 {
		aspect = in.Truss.Aspect
	}
	above := geom.R(host.Min.X*aspect, 0, host.Max.X*aspect, overhang)
	if in.Truss != nil {
		r := above
		clips.Truss = &r
	}
	if in.Trim != nil {
		r := geom.R(above.Min.X, 0, above.Max.X, in.Trim.Height)
		clips.Trim = &r
	}
	return clips, nil
}
