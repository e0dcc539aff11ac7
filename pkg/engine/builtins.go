package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/openings/pkg/catalog"
	"github.com/chazu/openings/pkg/geom"
	zygo "github.com/glycerine/zygomys/zygo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms catalog source before passing it to
// zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: pattern-wood -> pattern_wood
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}


// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpVec3 wraps a geom.Vec3.
type sexpVec3 struct {
	vec geom.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %.1f %.1f %.1f)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpRect wraps a geom.Rect in wall-local coordinates.
type sexpRect struct {
	rect geom.Rect
}

func (r *sexpRect) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(rect %.1f %.1f %.1f %.1f)", r.rect.Min.X, r.rect.Min.Y, r.rect.Max.X, r.rect.Max.Y)
}
func (r *sexpRect) Type() *zygo.RegisteredType { return nil }

// sexpEntryRef names a catalog entry created by a def* builtin.
type sexpEntryRef struct {
	kind string
	id   string
}

func (e *sexpEntryRef) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(%s %q)", e.kind, e.id)
}
func (e *sexpEntryRef) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// A keyword followed by another keyword, or at the end of the list, is a
// flag and maps to SexpNull.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			if _, next := isKW(args[i+1]); !next || isValueKeyword(name) {
				result.kw[name] = args[i+1]
				i += 2
				continue
			}
		}
		result.kw[name] = zygo.SexpNull
		i++
	}
	return result
}

// valueKeywords take another keyword as their value (:kind :door).
var valueKeywords = map[string]bool{
	"kind": true, "role": true, "style": true, "finish": true, "direction": true,
}

func isValueKeyword(name string) bool {
	return valueKeywords[name]
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_door) and plain strings ("door").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toVec3 extracts a Vec3 from a sexpVec3.
func toVec3(s zygo.Sexp) (geom.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return geom.Vec3{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// toRect extracts a Rect from a sexpRect.
func toRect(s zygo.Sexp) (geom.Rect, error) {
	if r, ok := s.(*sexpRect); ok {
		return r.rect, nil
	}
	return geom.Rect{}, fmt.Errorf("expected rect, got %T (%s)", s, s.SexpString(nil))
}

// numbers converts exactly n positional args to floats.
func numbers(fn string, args []zygo.Sexp, n int) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("%s requires exactly %d arguments, got %d", fn, n, len(args))
	}
	out := make([]float64, n)
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", fn, i+1, err)
		}
		out[i] = f
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the catalog DSL builtins into a zygomys
// environment. The builtins populate b during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, b *catalog.Builder) {

	// (vec3 x y z)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("vec3", args, 3)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpVec3{vec: geom.Vec3{X: v[0], Y: v[1], Z: v[2]}}, nil
	})

	// (rect min-x min-y max-x max-y)
	env.AddFunction("rect", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		v, err := numbers("rect", args, 4)
		if err != nil {
			return zygo.SexpNull, err
		}
		return &sexpRect{rect: geom.R(v[0], v[1], v[2], v[3])}, nil
	})

	// -----------------------------------------------------------------------
	// (defcolor "barn-red" "#7c0a02")
	// -----------------------------------------------------------------------
	env.AddFunction("defcolor", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defcolor requires a name and a hex value")
		}
		colorName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defcolor: name: %w", err)
		}
		hex, err := toString(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defcolor: value: %w", err)
		}
		if err := b.AddColor(colorName, hex); err != nil {
			return zygo.SexpNull, fmt.Errorf("defcolor: %w", err)
		}
		return &sexpEntryRef{kind: "color", id: colorName}, nil
	})

	// -----------------------------------------------------------------------
	// (defpattern "metal-rib" :style :metal-rib :width 90 :spacing 22.5
	//             :finish :metal :direction :vertical)
	// -----------------------------------------------------------------------
	env.AddFunction("defpattern", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("defpattern requires an ID")
		}
		id, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defpattern: ID: %w", err)
		}
		p := catalog.Pattern{ID: id, Style: catalog.StyleFlat}

		if v, ok := pa.kw["style"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defpattern %q: style: %w", id, err)
			}
			if p.Style, err = catalog.ParseStyle(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("defpattern %q: %w", id, err)
			}
		}
		for kw, dst := range map[string]*float64{"width": &p.RefWidth, "spacing": &p.Spacing} {
			if v, ok := pa.kw[kw]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("defpattern %q: %s: %w", id, kw, err)
				}
				*dst = f
			}
		}
		for kw, dst := range map[string]*string{"diffuse": &p.Diffuse, "normal": &p.Normal} {
			if v, ok := pa.kw[kw]; ok {
				s, err := toString(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("defpattern %q: %s: %w", id, kw, err)
				}
				*dst = s
			}
		}
		if v, ok := pa.kw["finish"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defpattern %q: finish: %w", id, err)
			}
			switch s {
			case "metal":
				p.Metal = true
			case "matte", "wood":
			default:
				return zygo.SexpNull, fmt.Errorf("defpattern %q: invalid finish %q, expected metal, matte, or wood", id, s)
			}
		}
		if v, ok := pa.kw["direction"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defpattern %q: direction: %w", id, err)
			}
			switch s {
			case "vertical":
				p.Vertical = true
			case "horizontal":
			default:
				return zygo.SexpNull, fmt.Errorf("defpattern %q: invalid direction %q, expected vertical or horizontal", id, s)
			}
		}

		if err := b.AddPattern(p); err != nil {
			return zygo.SexpNull, fmt.Errorf("defpattern: %w", err)
		}
		return &sexpEntryRef{kind: "pattern", id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (deffixture "door_36" :kind :door :orientation "left|out"
	//             :cut-box (rect -46 0 46 210) :size (vec3 92 210 6)
	//             :pattern-wood "wood")
	// -----------------------------------------------------------------------
	env.AddFunction("deffixture", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 1 {
			return zygo.SexpNull, fmt.Errorf("deffixture requires an ID")
		}
		id, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("deffixture: ID: %w", err)
		}
		f := catalog.Fixture{ID: id}

		v, ok := pa.kw["kind"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("deffixture %q: :kind is required", id)
		}
		k, err := toKeywordString(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("deffixture %q: kind: %w", id, err)
		}
		if f.Kind, err = catalog.ParseKind(k); err != nil {
			return zygo.SexpNull, fmt.Errorf("deffixture %q: %w", id, err)
		}

		if v, ok := pa.kw["orientation"]; ok {
			if f.Orientation, err = toString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("deffixture %q: orientation: %w", id, err)
			}
		}
		if v, ok := pa.kw["cut-box"]; ok {
			if f.CutBox, err = toRect(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("deffixture %q: cut-box: %w", id, err)
			}
		}
		if v, ok := pa.kw["size"]; ok {
			if f.Size, err = toVec3(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("deffixture %q: size: %w", id, err)
			}
		}
		for kw, v := range pa.kw {
			role, found := strings.CutPrefix(kw, "pattern-")
			if !found {
				continue
			}
			r, err := catalog.ParseRole(role)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("deffixture %q: %s: %w", id, kw, err)
			}
			pid, err := toString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("deffixture %q: %s: %w", id, kw, err)
			}
			if f.Patterns == nil {
				f.Patterns = make(map[catalog.Role]string)
			}
			f.Patterns[r] = pid
		}

		if err := b.AddFixture(f); err != nil {
			return zygo.SexpNull, fmt.Errorf("deffixture: %w", err)
		}
		return &sexpEntryRef{kind: "fixture", id: id}, nil
	})

	// -----------------------------------------------------------------------
	// (defmesh "door_36" "slab" :role :main :min (vec3 -45 0 -2.5) :max (vec3 45 208 2.5))
	// -----------------------------------------------------------------------
	env.AddFunction("defmesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) < 2 {
			return zygo.SexpNull, fmt.Errorf("defmesh requires a fixture ID and a mesh name")
		}
		var fixtureID string
		switch ref := pa.positional[0].(type) {
		case *sexpEntryRef:
			fixtureID = ref.id
		default:
			s, err := toString(ref)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmesh: fixture: %w", err)
			}
			fixtureID = s
		}
		meshName, err := toString(pa.positional[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh: name: %w", err)
		}
		m := catalog.MeshSpec{Name: meshName, Role: catalog.RoleMain}

		if v, ok := pa.kw["role"]; ok {
			s, err := toKeywordString(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defmesh %q: role: %w", meshName, err)
			}
			if m.Role, err = catalog.ParseRole(s); err != nil {
				return zygo.SexpNull, fmt.Errorf("defmesh %q: %w", meshName, err)
			}
		}
		minV, okMin := pa.kw["min"]
		maxV, okMax := pa.kw["max"]
		if !okMin || !okMax {
			return zygo.SexpNull, fmt.Errorf("defmesh %q: :min and :max are required", meshName)
		}
		if m.Box.Min, err = toVec3(minV); err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh %q: min: %w", meshName, err)
		}
		if m.Box.Max, err = toVec3(maxV); err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh %q: max: %w", meshName, err)
		}

		if err := b.AddMesh(fixtureID, m); err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh: %w", err)
		}
		return &sexpEntryRef{kind: "mesh", id: fixtureID + "/" + meshName}, nil
	})

	// (exempt-style "lean-to")
	env.AddFunction("exempt_style", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("exempt-style requires a style name")
		}
		style, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("exempt-style: %w", err)
		}
		b.ExemptStyle(style)
		return zygo.SexpNull, nil
	})
}
