// Package surface models the building elements a fixture can cut into:
// walls, trusses and trims. Each surface owns a LIFO stack of clip regions
// in its local 2D frame.
package surface

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/openings/pkg/geom"
)

// ErrClipStackUnderflow marks a pop without a matching push.
var ErrClipStackUnderflow = errors.New("clip stack underflow")

// Handle identifies one pushed region for the life of the stack.
type Handle uint64

// Kind distinguishes the three host surface types.
type Kind int

const (
	Wall Kind = iota
	Truss
	Trim
)

// Kinds lists every surface kind in push order.
var Kinds = []Kind{Wall, Truss, Trim}

func (k Kind) String() string {
	switch k {
	case Wall:
		return "wall"
	case Truss:
		return "truss"
	case Trim:
		return "trim"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Surface is a host surface. The panel spans [-Width/2, Width/2] x
// [0, Height] in its local frame; Position is the world location of the
// local origin (bottom center).
type Surface struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	Thickness float64   `json:"thickness"`
	Position  geom.Vec3 `json:"position"` // world position of the local origin
	Rotation  float64   `json:"rotation"` // yaw in degrees
	Aspect    float64   `json:"aspect"`   // horizontal scale of the local frame (trusses)

	// Overlay, when set, mirrors this surface's clip stack after every
	// change. Chains are followed until a surface repeats.
	Overlay *Surface `json:"-"`

	mu    sync.Mutex
	clips []clip
	next  Handle
}

type clip struct {
	h Handle
	r geom.Rect
}

// New returns a surface with an empty clip stack and unit aspect.
func New(id string, kind Kind, width, height float64) *Surface {
	return &Surface{ID: id, Kind: kind, Width: width, Height: height, Aspect: 1}
}

// Push appends a cutout region and returns its handle. Overlap with
// existing regions is allowed.
func (s *Surface) Push(r geom.Rect) Handle {
	s.mu.Lock()
	h := s.pushLocked(r)
	snapshot := s.regionsLocked()
	s.mu.Unlock()
	s.syncOverlay(snapshot)
	return h
}

func (s *Surface) pushLocked(r geom.Rect) Handle {
	s.next++
	s.clips = append(s.clips, clip{h: s.next, r: r})
	return s.next
}

// Pop removes the most recently pushed region. It reports false and does
// nothing when the stack is empty.
func (s *Surface) Pop() bool {
	s.mu.Lock()
	if len(s.clips) == 0 {
		s.mu.Unlock()
		return false
	}
	s.clips = s.clips[:len(s.clips)-1]
	snapshot := s.regionsLocked()
	s.mu.Unlock()
	s.syncOverlay(snapshot)
	return true
}

// Release removes the region pushed under h. Regions pushed after it are
// popped and pushed back in their original order, keeping their handles.
// It reports false when h is not on the stack.
func (s *Surface) Release(h Handle) bool {
	s.mu.Lock()
	i := len(s.clips) - 1
	for i >= 0 && s.clips[i].h != h {
		i--
	}
	if i < 0 {
		s.mu.Unlock()
		return false
	}
	above := append([]clip(nil), s.clips[i+1:]...)
	s.clips = append(s.clips[:i], above...)
	snapshot := s.regionsLocked()
	s.mu.Unlock()
	s.syncOverlay(snapshot)
	return true
}

// CopyFrom replaces this surface's clip stack with a copy of other's.
func (s *Surface) CopyFrom(other *Surface) {
	if other == nil || other == s {
		return
	}
	s.setRegions(other.Regions())
}

// Depth returns the number of active clip regions.
func (s *Surface) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clips)
}

// Top returns the most recently pushed region.
func (s *Surface) Top() (geom.Rect, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.clips) == 0 {
		return geom.Rect{}, false
	}
	return s.clips[len(s.clips)-1].r, true
}

// Regions returns a copy of the clip stack, bottom first.
func (s *Surface) Regions() []geom.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regionsLocked()
}

func (s *Surface) regionsLocked() []geom.Rect {
	out := make([]geom.Rect, len(s.clips))
	for i, c := range s.clips {
		out[i] = c.r
	}
	return out
}

func (s *Surface) setRegions(rs []geom.Rect) {
	s.mu.Lock()
	s.replaceLocked(rs)
	snapshot := s.regionsLocked()
	s.mu.Unlock()
	s.syncOverlay(snapshot)
}

// replaceLocked swaps in rs with fresh handles.
func (s *Surface) replaceLocked(rs []geom.Rect) {
	s.clips = s.clips[:0:0]
	for _, r := range rs {
		s.pushLocked(r)
	}
}

// syncOverlay copies rs down the overlay chain, stopping at the first
// surface already visited.
func (s *Surface) syncOverlay(rs []geom.Rect) {
	seen := map[*Surface]bool{s: true}
	for o := s.Overlay; o != nil && !seen[o]; o = o.Overlay {
		seen[o] = true
		o.mu.Lock()
		o.replaceLocked(rs)
		o.mu.Unlock()
	}
}

func (s *Surface) String() string {
	return fmt.Sprintf("%s %q", s.Kind, s.ID)
}
