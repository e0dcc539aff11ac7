package catalog

import "github.com/chazu/openings/pkg/geom"

// Standard returns the built-in catalog used when no catalog source is
// configured. Units are centimeters.
func Standard() *Catalog {
	b := NewBuilder()

	for _, p := range []Pattern{
		{ID: "lap", Style: StyleLap, RefWidth: 120, Spacing: 20},
		{ID: "board-batten", Style: StyleBoardBatten, RefWidth: 120, Spacing: 30, Vertical: true},
		{ID: "metal-rib", Style: StyleMetalRib, RefWidth: 90, Spacing: 22.5, Vertical: true, Metal: true},
		{ID: "trim-flat", Style: StyleFlat, RefWidth: 60},
		{ID: "wood", Style: StyleWoodGrain, RefWidth: 80, Spacing: 8},
		{ID: "shingle", Style: StyleShingle, RefWidth: 100, Spacing: 15},
		{ID: "glass", Style: StyleFlat, RefWidth: 100},
	} {
		mustOK(b.AddPattern(p))
	}

	for name, hex := range map[string]string{
		"white":        "#ffffff",
		"barn-red":     "#7c0a02",
		"charcoal":     "#36454f",
		"forest-green": "#228b22",
		"tan":          "#d2b48c",
		"black":        "#000000",
		"alert":        "#e53935",
	} {
		mustOK(b.AddColor(name, hex))
	}

	box := func(x0, y0, z0, x1, y1, z1 float64) geom.Box3 {
		return geom.Box3{Min: geom.Vec3{X: x0, Y: y0, Z: z0}, Max: geom.Vec3{X: x1, Y: y1, Z: z1}}
	}

	fixtures := []Fixture{
		{
			ID: "door_36", Kind: KindDoor, Orientation: "left|out",
			CutBox: geom.R(-46, 0, 46, 210), Size: geom.Vec3{X: 92, Y: 210, Z: 6},
			Meshes: []MeshSpec{
				{Name: "slab", Role: RoleMain, Box: box(-45, 0, -2.5, 45, 208, 2.5)},
				{Name: "frame", Role: RoleSecondary, Box: box(-46, 208, -3, 46, 210, 3)},
				{Name: "handle", Role: RoleMetal, Box: box(35, 95, 2.5, 40, 100, 6)},
			},
		},
		{
			ID: "double_door", Kind: KindDoor, Orientation: "right|out",
			CutBox: geom.R(-91, 0, 91, 231), Size: geom.Vec3{X: 182, Y: 231, Z: 6},
			Meshes: []MeshSpec{
				{Name: "leaves", Role: RoleMain, Box: box(-90, 0, -2.5, 90, 229, 2.5)},
				{Name: "frame", Role: RoleSecondary, Box: box(-91, 229, -3, 91, 231, 3)},
				{Name: "crossbuck", Role: RoleWood, Box: box(-88, 20, 2.5, 88, 200, 4)},
			},
		},
		{
			ID: "deep_door", Kind: KindDeepDoor, Orientation: "left|in",
			CutBox: geom.R(-60, 0, 60, 240), Size: geom.Vec3{X: 120, Y: 240, Z: 20},
			Meshes: []MeshSpec{
				{Name: "slab", Role: RoleMain, Box: box(-58, 0, -2.5, 58, 238, 2.5)},
				{Name: "jamb", Role: RoleSecondary, Box: box(-60, 0, -10, 60, 240, -2.5)},
			},
		},
		{
			ID: "window_60", Kind: KindWindow, Orientation: "left|out",
			CutBox: geom.R(-31, 100, 31, 192), Size: geom.Vec3{X: 62, Y: 92, Z: 5},
			Meshes: []MeshSpec{
				{Name: "frame", Role: RoleSecondary, Box: box(-31, 100, -2.5, 31, 192, 2.5)},
				{Name: "pane", Role: RoleGlass, Box: box(-28, 103, -0.5, 28, 189, 0.5)},
			},
		},
		{
			ID: "pet_door", Kind: KindPetDoor, Orientation: "left|out",
			CutBox: geom.R(-15, 0, 15, 35), Size: geom.Vec3{X: 30, Y: 35, Z: 4},
			Meshes: []MeshSpec{
				{Name: "flap", Role: RoleMain, Box: box(-14, 1, -1, 14, 34, 1)},
				{Name: "frame", Role: RoleSecondary, Box: box(-15, 0, -2, 15, 35, -1)},
			},
		},
		{
			ID: "cupola_small", Kind: KindCupola, Size: geom.Vec3{X: 60, Y: 80, Z: 60},
			Meshes: []MeshSpec{
				{Name: "base", Role: RoleMain, Box: box(-30, 0, -30, 30, 50, 30)},
				{Name: "cap", Role: RoleShingle, Box: box(-35, 50, -35, 35, 80, 35)},
			},
		},
		{
			ID: "gable_vent", Kind: KindVent,
			CutBox: geom.R(-20, 10, 20, 50), Size: geom.Vec3{X: 40, Y: 40, Z: 4},
			Meshes: []MeshSpec{
				{Name: "louver", Role: RoleSecondary, Box: box(-20, 10, -2, 20, 50, 2)},
			},
		},
		{
			ID: "metal_vent", Kind: KindVent,
			CutBox: geom.R(-25, 10, 25, 60), Size: geom.Vec3{X: 50, Y: 50, Z: 4},
			Meshes: []MeshSpec{
				{Name: "louver", Role: RoleMetal, Box: box(-25, 10, -2, 25, 60, 2)},
			},
		},
	}
	for _, f := range fixtures {
		mustOK(b.AddFixture(f))
	}

	b.ExemptStyle("lean-to")
	b.ExemptStyle("carport")

	c, _, err := b.Build()
	mustOK(err)
	return c
}

func mustOK(err error) {
	if err != nil {
		panic(err)
	}
}
