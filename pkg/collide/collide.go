// Package collide flags fixtures whose plan boxes overlap on a shared host.
package collide

import (
	"sort"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/fixture"
	"github.com/chazu/openings/pkg/geom"
	"github.com/dhconnelly/rtreego"
	"github.com/samber/lo"
)

// roofGroup collects hostless fixtures that sit on the roof.
const roofGroup = "\x00roof"

// Pair is two fixtures whose footprints overlap.
type Pair struct {
	A, B fixture.Fixture
}

// entry adapts a fixture footprint to the rtree.
type entry struct {
	f    fixture.Fixture
	box  geom.Rect
	rect rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Check marks every fixture that strictly overlaps another on the same host
// surface as placement-forbidden and clears the flag on the rest. Cupolas
// are compared with each other. Fixtures with no host, or with an empty
// footprint, are cleared and never collide. The returned pairs are ordered
// by fixture ID.
func Check(fixtures []fixture.Fixture) []Pair {
	groups := make(map[string][]*entry)
	for _, f := range fixtures {
		key, ok := groupOf(f)
		if !ok {
			continue
		}
		box := f.Footprint()
		if box.Empty() {
			continue
		}
		r, err := rtreego.NewRect(
			rtreego.Point{box.Min.X, box.Min.Y},
			[]float64{box.Width(), box.Height()},
		)
		if err != nil {
			continue
		}
		groups[key] = append(groups[key], &entry{f: f, box: box, rect: r})
	}

	var pairs []Pair
	hit := make(map[fixture.Fixture]bool)
	for _, key := range sortedKeys(groups) {
		entries := groups[key]
		tree := rtreego.NewTree(2, 2, 8)
		for _, e := range entries {
			tree.Insert(e)
		}
		for _, e := range entries {
			for _, s := range tree.SearchIntersect(e.rect) {
				o := s.(*entry)
				if o == e || o.f.ID() < e.f.ID() || !e.box.Overlaps(o.box) {
					continue
				}
				pairs = append(pairs, Pair{A: e.f, B: o.f})
				hit[e.f] = true
				hit[o.f] = true
			}
		}
	}

	for _, f := range fixtures {
		f.SetPlacementForbidden(hit[f])
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].A.ID() != pairs[j].A.ID() {
			return pairs[i].A.ID() < pairs[j].A.ID()
		}
		return pairs[i].B.ID() < pairs[j].B.ID()
	})
	return pairs
}

// groupOf returns the collision group of f: its primary host ID, or the
// roof group for cupolas.
func groupOf(f fixture.Fixture) (string, bool) {
	if f.Kind() == catalog.KindCupola {
		return roofGroup, true
	}
	pk, hosted := f.Kind().Host()
	if !hosted {
		return "", false
	}
	host := f.Host(pk)
	if host == nil {
		return "", false
	}
	return pk.String() + "/" + host.ID, true
}

func sortedKeys(m map[string][]*entry) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}
