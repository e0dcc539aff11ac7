package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/chazu/openings/pkg/building"
	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/collide"
	"github.com/chazu/openings/pkg/config"
	"github.com/chazu/openings/pkg/engine"
	"github.com/chazu/openings/pkg/fixture"
	"github.com/chazu/openings/pkg/geom"
	"github.com/chazu/openings/pkg/kernel"
	"github.com/chazu/openings/pkg/kernel/sdfx"
	"github.com/chazu/openings/pkg/material"
	"github.com/chazu/openings/pkg/model"
	"github.com/chazu/openings/pkg/pattern"
	"github.com/chazu/openings/pkg/placement"
	"github.com/chazu/openings/pkg/roof"
	"github.com/chazu/openings/pkg/store"
	"github.com/chazu/openings/pkg/surface"
	"github.com/chazu/openings/pkg/tessellate"
)

// surfacePalette colors host panels by kind.
var surfacePalette = map[surface.Kind]string{
	surface.Wall:  "#D8D2C4",
	surface.Truss: "#C9BFA8",
	surface.Trim:  "#FFFFFF",
}

// planColor tints plan overlays; the alpha channel keeps them translucent.
const planColor = "#4A90E259"

// defaultVentType fills every truss slot of a new building.
const defaultVentType = "gable_vent"

// ErrUnknownFixture is returned for IDs not in the current layout.
var ErrUnknownFixture = errors.New("no fixture with that id")

// App is the Wails backend. It exposes methods to the frontend via bindings.
type App struct {
	ctx    context.Context
	cfg    *config.Config
	engine *engine.Engine
	kernel kernel.Kernel
	logger *log.Logger

	mu       sync.Mutex
	catalog  *catalog.Catalog
	deps     fixture.Deps
	building *building.Building
	roof     *roof.Container
	fixtures map[string]fixture.Fixture
	store    *store.Store
}

// MeshData is the JSON-serializable mesh format sent to the frontend.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error for the frontend.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// CatalogResult is returned after loading a catalog.
type CatalogResult struct {
	Fixtures []FixtureTypeData `json:"fixtures"`
	Colors   []string          `json:"colors"`
	Errors   []EvalErrorData   `json:"errors"`
	Warnings []EvalErrorData   `json:"warnings"`
}

// FixtureTypeData describes one catalog entry.
type FixtureTypeData struct {
	ID   string    `json:"id"`
	Kind string    `json:"kind"`
	Size geom.Vec3 `json:"size"`
}

// MaterialData is one role's render material. Map is a PNG data URL.
type MaterialData struct {
	Role    string    `json:"role"`
	Color   string    `json:"color"`
	Base    string    `json:"base"`
	Pattern string    `json:"pattern"`
	Repeat  geom.Vec2 `json:"repeat"`
	Metal   bool      `json:"metal"`
	Map     string    `json:"map,omitempty"`
}

// FixtureData is a fixture's presentation state.
type FixtureData struct {
	ID          string              `json:"id"`
	TypeID      string              `json:"typeId"`
	Kind        string              `json:"kind"`
	State       string              `json:"state"`
	Position    geom.Vec3           `json:"position"`
	Rotation    float64             `json:"rotation"`
	Orientation string              `json:"orientation"`
	Forbidden   bool                `json:"forbidden"`
	Footprint   geom.Rect           `json:"footprint"`
	Icons       [2]fixture.PlanIcon `json:"icons"`
	Meshes      []MeshData          `json:"meshes"`
	Materials   []MaterialData      `json:"materials"`
	Warning     string              `json:"warning,omitempty"`
}

// MoveRequest positions a fixture. Rotation is a yaw in degrees.
type MoveRequest struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        float64 `json:"z"`
	Rotation float64 `json:"rotation"`
}

// CollisionData names two overlapping fixtures.
type CollisionData struct {
	A string `json:"a"`
	B string `json:"b"`
}

// NewApp creates a new App configured from the environment.
func NewApp() *App {
	return newApp(config.Load())
}

func newApp(cfg *config.Config) *App {
	return &App{
		cfg:      cfg,
		engine:   engine.NewEngineWithTimeout(cfg.EvalTimeout),
		kernel:   sdfx.NewWithCells(cfg.MeshCells),
		logger:   log.Default(),
		fixtures: make(map[string]fixture.Fixture),
	}
}

// startup is called by Wails on app startup. It loads the catalog, lays
// out the default building and opens the layout store.
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	loaded := false
	if path := a.cfg.CatalogPath; path != "" {
		res := a.loadCatalogFile(path)
		for _, e := range res.Errors {
			a.logger.Printf("catalog %s:%d: %s", path, e.Line, e.Message)
		}
		loaded = len(res.Errors) == 0
	}
	if !loaded {
		a.mu.Lock()
		a.setCatalogLocked(catalog.Standard())
		a.mu.Unlock()
	}

	s, err := store.Open(ctx, a.cfg.StorePath)
	if err != nil {
		a.logger.Printf("layout store unavailable: %v", err)
		return
	}
	a.store = s
}

// shutdown is called by Wails when the app exits.
func (a *App) shutdown(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLayoutLocked()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Printf("close layout store: %v", err)
		}
		a.store = nil
	}
}

func (a *App) runCtx() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

func (a *App) loadCatalogFile(path string) CatalogResult {
	source, err := os.ReadFile(path)
	if err != nil {
		return CatalogResult{Errors: []EvalErrorData{{Message: err.Error()}}}
	}
	return a.LoadCatalog(string(source))
}

// LoadCatalog evaluates catalog source and, when it has no errors,
// replaces the catalog and resets the layout. Empty source restores the
// built-in catalog.
func (a *App) LoadCatalog(source string) CatalogResult {
	result := CatalogResult{
		Fixtures: []FixtureTypeData{},
		Colors:   []string{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	cat := catalog.Standard()
	if source != "" {
		res, err := a.engine.Run(source)
		if err != nil {
			// Fatal error (panic, timeout, etc.)
			a.logger.Printf("LoadCatalog fatal error: %v", err)
			result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
			return result
		}
		for _, e := range res.Errors {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Col: e.Col, Message: e.Message})
		}
		for _, w := range res.Warnings {
			result.Warnings = append(result.Warnings, EvalErrorData{Message: w.Error()})
		}
		if len(result.Errors) > 0 {
			return result
		}
		cat = res.Catalog
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.setCatalogLocked(cat)

	for _, f := range cat.Fixtures() {
		result.Fixtures = append(result.Fixtures, FixtureTypeData{ID: f.ID, Kind: string(f.Kind), Size: f.Size})
	}
	result.Colors = append(result.Colors, cat.ColorNames()...)
	return result
}

// setCatalogLocked swaps the catalog and lays out a fresh default building.
func (a *App) setCatalogLocked(cat *catalog.Catalog) {
	a.clearLayoutLocked()
	a.catalog = cat
	a.deps = fixture.Deps{
		Catalog:    cat,
		Models:     model.NewCatalogProvider(cat, a.kernel),
		Placement:  placement.NewEngine(a.cfg.AngleTolerance),
		Pipeline:   material.NewPipeline(cat, pattern.New(), a.logger, a.cfg.TextureSize),
		Logger:     a.logger,
		AlertColor: a.cfg.AlertColor,
	}
	if err := a.newBuildingLocked(building.Dimensions{Style: "gable", Width: 600, Length: 900, WallHeight: 250}); err != nil {
		a.logger.Printf("default building: %v", err)
	}
}

// NewBuilding replaces the building and clears the layout.
func (a *App) NewBuilding(d building.Dimensions) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.catalog == nil {
		return errors.New("no catalog loaded")
	}
	a.clearLayoutLocked()
	return a.newBuildingLocked(d)
}

func (a *App) newBuildingLocked(d building.Dimensions) error {
	b, err := building.NewGable(d)
	if err != nil {
		return err
	}
	a.building = b
	a.roof = roof.NewContainer(d.Style, a.catalog, func(id string) (fixture.Fixture, error) {
		return fixture.New(a.deps, id)
	}, a.logger)

	if _, err := a.catalog.Fixture(defaultVentType); err != nil {
		return nil
	}
	for _, s := range b.Surfaces() {
		if s.Kind != surface.Truss {
			continue
		}
		f, err := fixture.New(a.deps, defaultVentType, fixture.WithID(s.ID+"-vent"))
		if err != nil {
			return err
		}
		v := f.(*fixture.Vent)
		pos := s.Position.Add(geom.Vec3{Y: s.Height / 2})
		for _, step := range []func() (fixture.Result, error){
			func() (fixture.Result, error) { return v.SetRotation(s.Rotation) },
			func() (fixture.Result, error) { return v.SetPosition(pos) },
			func() (fixture.Result, error) { return v.SetHostTruss(s) },
		} {
			if _, err := step(); err != nil {
				v.Dispose()
				return err
			}
		}
		a.roof.AddDefault(v)
	}
	return nil
}

// clearLayoutLocked disposes every fixture and vent. Every claim is popped
// once, so the clip stacks end empty whatever the order.
func (a *App) clearLayoutLocked() {
	for _, f := range a.fixtures {
		f.Dispose()
	}
	a.fixtures = make(map[string]fixture.Fixture)
	if a.roof != nil {
		if err := a.roof.SetVent(a.runCtx(), ""); err != nil {
			a.logger.Printf("restore default vents: %v", err)
		}
		for _, v := range a.roof.Defaults() {
			v.Dispose()
		}
		a.roof = nil
	}
}

// Fixtures returns every fixture in the layout sorted by ID.
func (a *App) Fixtures() []FixtureData {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []FixtureData{}
	for _, f := range a.sortedLocked() {
		out = append(out, a.fixtureData(f, nil))
	}
	return out
}

func (a *App) sortedLocked() []fixture.Fixture {
	out := make([]fixture.Fixture, 0, len(a.fixtures))
	for _, f := range a.fixtures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

func (a *App) lookupLocked(id string) (fixture.Fixture, error) {
	f, ok := a.fixtures[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFixture, id)
	}
	return f, nil
}

// AddFixture creates an unplaced fixture of a catalog type.
func (a *App) AddFixture(typeID string) (FixtureData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.catalog == nil {
		return FixtureData{}, errors.New("no catalog loaded")
	}
	f, err := fixture.New(a.deps, typeID, fixture.WithReference(a.building.WallHeight, a.building.Width))
	if err != nil {
		return FixtureData{}, err
	}
	a.fixtures[f.ID()] = f
	a.logger.Printf("added %s %s", typeID, f.ID())
	return a.fixtureData(f, nil), nil
}

// MoveFixture sets a fixture's yaw and position, re-cutting its hosts.
func (a *App) MoveFixture(id string, req MoveRequest) (FixtureData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.lookupLocked(id)
	if err != nil {
		return FixtureData{}, err
	}
	var warnings []error
	res, err := f.SetRotation(req.Rotation)
	if err != nil {
		return FixtureData{}, err
	}
	warnings = append(warnings, res.Warning)
	if res, err = f.SetPosition(geom.Vec3{X: req.X, Y: req.Y, Z: req.Z}); err != nil {
		return FixtureData{}, err
	}
	warnings = append(warnings, res.Warning)
	return a.fixtureData(f, errors.Join(warnings...)), nil
}

// AttachFixture hosts a fixture on a surface. Wall openings take the wall,
// the truss above it and its trim; vents take a truss, named directly or
// by the wall below it. An empty surfaceID detaches the fixture.
func (a *App) AttachFixture(id, surfaceID string) (FixtureData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.lookupLocked(id)
	if err != nil {
		return FixtureData{}, err
	}

	var steps []func() (fixture.Result, error)
	pk, hosted := f.Kind().Host()
	switch {
	case !hosted:
		return FixtureData{}, fmt.Errorf("%s: %w", f.TypeID(), fixture.ErrWrongHost)
	case pk == surface.Truss:
		truss := a.building.Truss(surfaceID)
		if truss == nil {
			truss = a.building.TrussAbove(surfaceID)
		}
		if truss == nil && surfaceID != "" {
			return FixtureData{}, fmt.Errorf("no truss %q", surfaceID)
		}
		steps = append(steps, func() (fixture.Result, error) { return f.SetHostTruss(truss) })
	default:
		wall := a.building.Wall(surfaceID)
		if wall == nil && surfaceID != "" {
			return FixtureData{}, fmt.Errorf("no wall %q", surfaceID)
		}
		// Clearing the wall first releases the secondary cuts with it.
		steps = append(steps, func() (fixture.Result, error) { return f.SetHostWall(nil) })
		steps = append(steps,
			func() (fixture.Result, error) { return f.SetHostTruss(a.building.TrussAbove(surfaceID)) },
			func() (fixture.Result, error) { return f.SetHostTrim(a.building.TrimOf(surfaceID)) },
		)
		if wall != nil {
			steps = append(steps, func() (fixture.Result, error) { return f.SetHostWall(wall) })
		}
	}

	var warnings []error
	for _, step := range steps {
		res, err := step()
		if err != nil {
			return FixtureData{}, err
		}
		warnings = append(warnings, res.Warning)
	}
	return a.fixtureData(f, errors.Join(warnings...)), nil
}

// ReverseFixture flips a fixture's hinge side.
func (a *App) ReverseFixture(id string) (FixtureData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.lookupLocked(id)
	if err != nil {
		return FixtureData{}, err
	}
	if err := f.Reverse(); err != nil {
		return FixtureData{}, err
	}
	return a.fixtureData(f, nil), nil
}

// SetFixtureColor regenerates a fixture's materials for a color request.
func (a *App) SetFixtureColor(id string, req material.ColorRequest) (FixtureData, error) {
	a.mu.Lock()
	f, err := a.lookupLocked(id)
	a.mu.Unlock()
	if err != nil {
		return FixtureData{}, err
	}
	// Generation runs unlocked; a newer request for the same fixture wins.
	if err := f.SetColor(a.runCtx(), req); err != nil {
		return FixtureData{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fixtureData(f, nil), nil
}

// SetVent selects the roof vent type; empty restores the defaults.
func (a *App) SetVent(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.roof == nil {
		return errors.New("no building")
	}
	return a.roof.SetVent(a.runCtx(), id)
}

// Vents returns the vents currently cutting the trusses.
func (a *App) Vents() []FixtureData {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []FixtureData{}
	if a.roof == nil {
		return out
	}
	for _, v := range a.roof.ClipOwners() {
		out = append(out, a.fixtureData(v, nil))
	}
	return out
}

// RemoveFixture disposes a fixture, restoring the surfaces it cut.
func (a *App) RemoveFixture(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	f, err := a.lookupLocked(id)
	if err != nil {
		return err
	}
	f.Dispose()
	delete(a.fixtures, id)
	return nil
}

// CheckCollisions flags overlapping fixtures and returns the pairs.
func (a *App) CheckCollisions() []CollisionData {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := []CollisionData{}
	for _, p := range collide.Check(a.sortedLocked()) {
		out = append(out, CollisionData{A: p.A.ID(), B: p.B.ID()})
	}
	return out
}

// SurfaceMeshes tessellates every host surface with its cutouts.
func (a *App) SurfaceMeshes() ([]MeshData, error) {
	return a.meshes(tessellate.Options{})
}

// PlanMeshes tessellates the translucent wall plan overlays, which carry
// the same cutouts as their walls.
func (a *App) PlanMeshes() ([]MeshData, error) {
	return a.meshes(tessellate.Options{Plans: true})
}

func (a *App) meshes(opts tessellate.Options) ([]MeshData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.building == nil {
		return []MeshData{}, nil
	}
	meshes, err := tessellate.TessellateWith(a.building, a.kernel, opts)
	if err != nil {
		a.logger.Printf("Tessellate error: %v", err)
		return nil, err
	}
	kinds := make(map[string]surface.Kind)
	for _, s := range a.building.Surfaces() {
		kinds[s.ID] = s.Kind
	}
	out := make([]MeshData, 0, len(meshes))
	for _, m := range meshes {
		color := surfacePalette[kinds[m.Name]]
		if opts.Plans {
			color = planColor
		}
		out = append(out, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.Name,
			Color:    color,
		})
	}
	return out, nil
}

// SaveLayout replaces the stored layout with the current fixtures.
func (a *App) SaveLayout() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return errors.New("layout store unavailable")
	}
	fixtures := a.sortedLocked()
	snaps := make([]fixture.Snapshot, 0, len(fixtures))
	for _, f := range fixtures {
		snaps = append(snaps, f.Snapshot())
	}
	if err := a.store.ReplaceAll(a.runCtx(), snaps); err != nil {
		return err
	}
	a.logger.Printf("saved %d fixtures", len(snaps))
	return nil
}

// LoadLayout replaces the current fixtures with the stored layout.
// Snapshots that cannot be restored are skipped and reported.
func (a *App) LoadLayout() ([]FixtureData, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.store == nil {
		return nil, errors.New("layout store unavailable")
	}
	snaps, err := a.store.List(a.runCtx())
	if err != nil {
		return nil, err
	}

	for _, f := range a.sortedLocked() {
		f.Dispose()
	}
	a.fixtures = make(map[string]fixture.Fixture)

	var errs []error
	out := []FixtureData{}
	for _, s := range snaps {
		f, err := fixture.Restore(a.runCtx(), a.deps, s, a.building)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		a.fixtures[f.ID()] = f
		out = append(out, a.fixtureData(f, nil))
	}
	return out, errors.Join(errs...)
}

// fixtureData renders f for the frontend.
func (a *App) fixtureData(f fixture.Fixture, warning error) FixtureData {
	d := FixtureData{
		ID:          f.ID(),
		TypeID:      f.TypeID(),
		Kind:        string(f.Kind()),
		State:       f.State().String(),
		Position:    f.Position(),
		Rotation:    f.Rotation(),
		Orientation: f.Orientation().String(),
		Forbidden:   f.PlacementForbidden(),
		Footprint:   f.Footprint(),
		Icons:       f.Icons(),
		Meshes:      []MeshData{},
		Materials:   []MaterialData{},
	}
	if warning != nil {
		d.Warning = warning.Error()
	}
	if !f.Kind().Orientable() {
		d.Orientation = ""
	}

	mats := f.Materials()
	if m := modelOf(f); m != nil {
		for _, name := range m.Names() {
			p := m.Part(name)
			if p.Mesh == nil {
				continue
			}
			d.Meshes = append(d.Meshes, MeshData{
				Vertices: p.Mesh.Vertices,
				Normals:  p.Mesh.Normals,
				Indices:  p.Mesh.Indices,
				PartName: name,
				Color:    mats[p.Role].Color.Hex(),
			})
		}
	}

	roles := make([]string, 0, len(mats))
	for r := range mats {
		roles = append(roles, string(r))
	}
	sort.Strings(roles)
	for _, r := range roles {
		m := mats[catalog.Role(r)]
		md := MaterialData{
			Role:    r,
			Color:   m.Color.Hex(),
			Base:    m.Base.Hex(),
			Pattern: m.Pattern,
			Repeat:  m.Repeat,
			Metal:   m.Metal,
		}
		if m.Map != nil {
			url, err := pngDataURL(m.Map)
			if err != nil {
				a.logger.Printf("encode %s map: %v", m.Name, err)
			}
			md.Map = url
		}
		d.Materials = append(d.Materials, md)
	}
	return d
}

// modelOf returns the loaded model of a fixture variant.
func modelOf(f fixture.Fixture) *model.Model {
	if m, ok := f.(interface{ Model() *model.Model }); ok {
		return m.Model()
	}
	return nil
}

func pngDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
