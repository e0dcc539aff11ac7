package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/chazu/openings/pkg/orient"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultOrientation is used for orientable fixtures that leave the
// orientation string empty.
const DefaultOrientation = "left|out"

// Builder accumulates catalog entries. It is not safe for concurrent use.
type Builder struct {
	c    *Catalog
	errs []error
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{c: &Catalog{
		fixtures: make(map[string]Fixture),
		patterns: make(map[string]Pattern),
		colors:   make(map[string]colorful.Color),
		exempt:   make(map[string]bool),
	}}
}

// AddFixture registers a fixture descriptor. Duplicate IDs are an error.
func (b *Builder) AddFixture(f Fixture) error {
	if f.ID == "" {
		return errors.New("catalog: fixture ID is empty")
	}
	if _, ok := b.c.fixtures[f.ID]; ok {
		return fmt.Errorf("catalog: fixture %q already defined", f.ID)
	}
	if f.Kind.Orientable() && f.Orientation == "" {
		f.Orientation = DefaultOrientation
	}
	b.c.fixtures[f.ID] = f
	return nil
}

// AddMesh appends a sub-mesh to an already registered fixture.
func (b *Builder) AddMesh(fixtureID string, m MeshSpec) error {
	f, ok := b.c.fixtures[fixtureID]
	if !ok {
		return fmt.Errorf("catalog: %w: %q", ErrUnknownFixtureType, fixtureID)
	}
	for _, existing := range f.Meshes {
		if existing.Name == m.Name {
			return fmt.Errorf("catalog: fixture %q already has mesh %q", fixtureID, m.Name)
		}
	}
	f.Meshes = append(f.Meshes, m)
	b.c.fixtures[fixtureID] = f
	return nil
}

// AddPattern registers a surface pattern. Empty Diffuse/Normal identifiers
// default to the pattern ID and ID+"-bump".
func (b *Builder) AddPattern(p Pattern) error {
	if p.ID == "" {
		return errors.New("catalog: pattern ID is empty")
	}
	if _, ok := b.c.patterns[p.ID]; ok {
		return fmt.Errorf("catalog: pattern %q already defined", p.ID)
	}
	if p.Diffuse == "" {
		p.Diffuse = p.ID
	}
	if p.Normal == "" {
		p.Normal = p.ID + "-bump"
	}
	b.c.patterns[p.ID] = p
	return nil
}

// AddColor registers a palette entry.
func (b *Builder) AddColor(name, hex string) error {
	col, err := colorful.Hex(hex)
	if err != nil {
		return fmt.Errorf("catalog: color %q: %w: %q", name, ErrInvalidColorName, hex)
	}
	b.c.colors[strings.ToLower(strings.TrimSpace(name))] = col
	return nil
}

// ExemptStyle disables vent customization for a building style.
func (b *Builder) ExemptStyle(style string) {
	b.c.exempt[strings.ToLower(style)] = true
}

// Build validates the accumulated entries and freezes the catalog.
// Blocking findings are returned as an error; advisory findings come back
// as warnings alongside a usable catalog.
func (b *Builder) Build() (*Catalog, []ValidationError, error) {
	res := Validate(b.c)
	if len(res.Errors) > 0 {
		errs := make([]error, len(res.Errors))
		for i, e := range res.Errors {
			errs[i] = e
		}
		return nil, res.Warnings, fmt.Errorf("catalog: %d validation errors: %w", len(errs), errors.Join(errs...))
	}
	c := b.c
	b.c = nil
	return c, res.Warnings, nil
}

// ---------------------------------------------------------------------------
// Validation
// ---------------------------------------------------------------------------

// Severity indicates whether a finding blocks Build.
type Severity int

const (
	SeverityError   Severity = iota // blocks Build
	SeverityWarning                 // informational
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ValidationError describes a single catalog finding.
type ValidationError struct {
	Subject  string // "fixture door_36", "pattern lap", ...
	Message  string
	Severity Severity
	Err      error // underlying sentinel, if any
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Subject, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Err }

// ValidationResult separates blocking errors from warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

func (r *ValidationResult) add(e ValidationError) {
	if e.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, e)
		return
	}
	r.Errors = append(r.Errors, e)
}

// Validate checks a catalog for internal consistency. It never mutates c.
func Validate(c *Catalog) ValidationResult {
	var res ValidationResult
	for _, p := range c.patterns {
		validatePattern(&res, p)
	}
	for _, f := range c.fixtures {
		validateFixture(&res, c, f)
	}
	return res
}

func validatePattern(res *ValidationResult, p Pattern) {
	subject := "pattern " + p.ID
	if p.RefWidth <= 0 {
		res.add(ValidationError{Subject: subject, Severity: SeverityError,
			Message: fmt.Sprintf("reference width is %.2f, must be positive", p.RefWidth)})
	}
	if p.Spacing < 0 {
		res.add(ValidationError{Subject: subject, Severity: SeverityError,
			Message: fmt.Sprintf("spacing is %.2f, must not be negative", p.Spacing)})
	}
	if p.Spacing > p.RefWidth && p.RefWidth > 0 {
		res.add(ValidationError{Subject: subject, Severity: SeverityWarning,
			Message: "spacing exceeds reference width; the tile shows a single board"})
	}
}

func validateFixture(res *ValidationResult, c *Catalog, f Fixture) {
	subject := "fixture " + f.ID

	if f.Kind.Orientable() {
		if _, err := orient.Parse(f.Orientation); err != nil {
			res.add(ValidationError{Subject: subject, Severity: SeverityError, Message: err.Error(), Err: err})
		}
	}

	if _, hosted := f.Kind.Host(); hosted && f.CutBox.Empty() {
		res.add(ValidationError{Subject: subject, Severity: SeverityError,
			Message: fmt.Sprintf("cut-box %s encloses no area", f.CutBox)})
	}
	if f.Kind.DoorLike() && f.CutBox.Min.Y != 0 {
		res.add(ValidationError{Subject: subject, Severity: SeverityWarning,
			Message: fmt.Sprintf("door cut-box starts at y=%.2f, not the floor", f.CutBox.Min.Y)})
	}

	if len(f.Meshes) == 0 {
		res.add(ValidationError{Subject: subject, Severity: SeverityWarning, Message: "no meshes; fixture renders nothing"})
	}
	for _, m := range f.Meshes {
		s := m.Box.Size()
		if s.X <= 0 || s.Y <= 0 || s.Z <= 0 {
			res.add(ValidationError{Subject: subject, Severity: SeverityError,
				Message: fmt.Sprintf("mesh %q has non-positive extent %s", m.Name, s)})
		}
	}

	for _, r := range f.Roles() {
		id, ok := f.PatternFor(r)
		if !ok {
			continue
		}
		if _, exists := c.patterns[id]; !exists {
			res.add(ValidationError{Subject: subject, Severity: SeverityError, Err: ErrUnknownPattern,
				Message: fmt.Sprintf("role %s references unknown pattern %q", r, id)})
		}
	}
}
