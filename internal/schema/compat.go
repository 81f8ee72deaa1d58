package schema

import (
	"fmt"
	"reflect"
)

// Result is the outcome of a compatibility check. Compatible is false iff
// Errors is non-empty. Warnings flag plausible but unproven risks and never
// block graph construction.
type Result struct {
	Compatible bool
	Errors     []string
	Warnings   []string
}

// Check performs a recursive structural comparison of a producer descriptor
// against a consumer descriptor. It is pure, deterministic and total: it
// never panics, and malformed or unknown kinds degrade to the wildcard.
func Check(producer, consumer *Type) Result {
	c := &checker{}
	c.check(producer, consumer, "")
	return Result{
		Compatible: len(c.errors) == 0,
		Errors:     c.errors,
		Warnings:   c.warnings,
	}
}

// CheckPresence returns a warning message when a slot carries no declared
// descriptor. The empty string means the slot is declared. Absence of a
// descriptor disables static checking for edges using the slot, which is a
// reduced-confidence condition, not an error.
func CheckPresence(nodeID, direction, slot string, t *Type) string {
	if t != nil {
		return ""
	}
	return fmt.Sprintf("node %q declares no %s descriptor for slot %q; static checking is disabled for connections using it", nodeID, direction, slot)
}

type checker struct {
	errors   []string
	warnings []string
}

func (c *checker) errorf(path, format string, args ...any) {
	c.errors = append(c.errors, prefix(path, fmt.Sprintf(format, args...)))
}

func (c *checker) warnf(path, format string, args ...any) {
	c.warnings = append(c.warnings, prefix(path, fmt.Sprintf(format, args...)))
}

func prefix(path, msg string) string {
	if path == "" {
		return msg
	}
	return path + ": " + msg
}

func joinPath(path, prop string) string {
	if path == "" {
		return prop
	}
	return path + "." + prop
}

func (c *checker) check(p, t *Type, path string) {
	// Wildcards are compatible with anything, in either position.
	if isWildcard(p) || isWildcard(t) {
		return
	}

	if p.Nullable && !t.Nullable {
		c.errorf(path, "producer value may be null but consumer does not accept null")
	}
	if p.Optional && !t.Optional {
		c.warnf(path, "producer value may be undefined at runtime")
	}

	if p.Kind == KindVoid {
		if !t.Optional {
			c.errorf(path, "producer returns no value but consumer requires one")
		}
		return
	}

	// Union handling comes before the basic kind table.
	if p.Kind == KindUnion || t.Kind == KindUnion {
		c.checkUnion(p, t, path)
		return
	}

	switch {
	case p.Kind == KindObject && t.Kind == KindObject:
		c.checkObject(p, t, path)
	case p.Kind == KindArray && t.Kind == KindArray:
		c.check(p.Elem, t.Elem, joinPath(path, "array element"))
	case p.Kind == KindEnum && t.Kind == KindEnum:
		c.checkEnum(p, t, path)
	case p.Kind == KindLiteral && t.Kind == KindLiteral:
		if !reflect.DeepEqual(p.Value, t.Value) {
			c.errorf(path, "literal value %v does not match required literal %v", p.Value, t.Value)
		}
	case p.Kind == t.Kind:
		// Exact kind match is always compatible.
	case p.Kind == KindNumber && t.Kind == KindString,
		p.Kind == KindBool && t.Kind == KindString:
		// Implicit stringification is allowed.
	default:
		c.errorf(path, "cannot assign %s to %s", p.Kind, t.Kind)
	}
}

// checkObject verifies that every required consumer property is satisfiable
// by a same-named producer property, recursing on their types. Producer
// properties the consumer never reads are only flagged informationally.
func (c *checker) checkObject(p, t *Type, path string) {
	for _, want := range t.Attrs {
		got, ok := p.Attr(want.Name)
		if !ok {
			if want.Type != nil && want.Type.Optional {
				c.warnf(path, "missing optional property %q", want.Name)
			} else {
				c.errorf(path, "missing required property %q", want.Name)
			}
			continue
		}
		c.check(got, want.Type, joinPath(path, want.Name))
	}
	for _, extra := range p.Attrs {
		if _, ok := t.Attr(extra.Name); !ok {
			c.warnf(path, "producer property %q is not consumed", extra.Name)
		}
	}
}

// checkUnion applies the union rules: a union consumer needs at least one
// matching alternative; a union producer is accepted when at least one of its
// alternatives matches, with a warning on partial overlap; when both sides
// are unions, every consumer alternative must be satisfiable by at least one
// producer alternative.
func (c *checker) checkUnion(p, t *Type, path string) {
	switch {
	case p.Kind == KindUnion && t.Kind == KindUnion:
		for i, want := range t.Alts {
			if !anyCompatible(p.Alts, want) {
				c.errorf(path, "no producer alternative satisfies consumer union alternative %d (%s)", i, kindOf(want))
			}
		}
	case t.Kind == KindUnion:
		for _, want := range t.Alts {
			if Check(p, want).Compatible {
				return
			}
		}
		c.errorf(path, "producer type %s does not match any consumer union alternative", kindOf(p))
	default: // producer is the union
		matched := 0
		for _, alt := range p.Alts {
			if Check(alt, t).Compatible {
				matched++
			}
		}
		if matched == 0 {
			c.errorf(path, "no producer union alternative is compatible with consumer type %s", kindOf(t))
		} else if matched < len(p.Alts) {
			c.warnf(path, "only %d of %d producer union alternatives are compatible with consumer type %s", matched, len(p.Alts), kindOf(t))
		}
	}
}

// checkEnum compares allowed value sets: disjoint sets are a hard error,
// overlapping but non-identical sets are a warning.
func (c *checker) checkEnum(p, t *Type, path string) {
	shared := 0
	for _, v := range p.Values {
		if containsValue(t.Values, v) {
			shared++
		}
	}
	switch {
	case shared == 0:
		c.errorf(path, "enum value sets are disjoint")
	case shared < len(p.Values) || len(p.Values) != len(t.Values):
		c.warnf(path, "enum value sets overlap but are not identical")
	}
}

func anyCompatible(alts []*Type, want *Type) bool {
	for _, alt := range alts {
		if Check(alt, want).Compatible {
			return true
		}
	}
	return false
}

func containsValue(values []any, v any) bool {
	for _, candidate := range values {
		if reflect.DeepEqual(candidate, v) {
			return true
		}
	}
	return false
}

func kindOf(t *Type) Kind {
	if t == nil {
		return KindAny
	}
	return t.Kind
}
