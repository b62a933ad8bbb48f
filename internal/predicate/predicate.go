// Package predicate implements composable boolean tests over variants.
package predicate

import (
	"strings"

	"github.com/inodb/vibe-gpa/internal/variant"
)

// Predicate is a pure boolean test over a variant.
//
// Key returns a canonical encoding of the predicate: structurally identical
// predicates have identical keys, so keys may be used for deduplication and
// as map keys.
type Predicate interface {
	Test(v *variant.Variant) bool
	Key() string
	Name() string
	Description() string
}

// Equal reports whether two predicates are structurally identical.
func Equal(p, q Predicate) bool {
	if p == nil || q == nil {
		return p == q
	}
	return p.Key() == q.Key()
}

// leaf is a parameterised test on a single variant attribute.
type leaf struct {
	key  string
	name string
	desc string
	test func(*variant.Variant) bool
}

func (l *leaf) Test(v *variant.Variant) bool {
	if v == nil {
		return false
	}
	return l.test(v)
}
func (l *leaf) Key() string         { return l.key }
func (l *leaf) Name() string        { return l.name }
func (l *leaf) Description() string { return l.desc }

type and struct {
	operands []Predicate
}

// And returns a predicate that holds when every operand holds. Evaluation
// stops at the first false operand.
func And(p, q Predicate, more ...Predicate) Predicate {
	return &and{operands: append([]Predicate{p, q}, more...)}
}

func (a *and) Test(v *variant.Variant) bool {
	for _, p := range a.operands {
		if !p.Test(v) {
			return false
		}
	}
	return true
}

func (a *and) Key() string         { return compound("and", a.operands, Predicate.Key) }
func (a *and) Name() string        { return joined(a.operands, " AND ", Predicate.Name) }
func (a *and) Description() string { return joined(a.operands, " and ", Predicate.Description) }

type or struct {
	operands []Predicate
}

// Or returns a predicate that holds when any operand holds. Evaluation stops
// at the first true operand.
func Or(p, q Predicate, more ...Predicate) Predicate {
	return &or{operands: append([]Predicate{p, q}, more...)}
}

func (o *or) Test(v *variant.Variant) bool {
	for _, p := range o.operands {
		if p.Test(v) {
			return true
		}
	}
	return false
}

func (o *or) Key() string         { return compound("or", o.operands, Predicate.Key) }
func (o *or) Name() string        { return joined(o.operands, " OR ", Predicate.Name) }
func (o *or) Description() string { return joined(o.operands, " or ", Predicate.Description) }

type not struct {
	inner Predicate
}

// Not negates p. Double negation is kept as written.
func Not(p Predicate) Predicate { return &not{inner: p} }

func (n *not) Test(v *variant.Variant) bool { return !n.inner.Test(v) }
func (n *not) Key() string                  { return "not(" + n.inner.Key() + ")" }
func (n *not) Name() string                 { return "NOT " + wrap(n.inner, n.inner.Name()) }
func (n *not) Description() string          { return "not " + wrap(n.inner, n.inner.Description()) }

// Func is the signature of a user-supplied variant test.
type Func func(v *variant.Variant) bool

type custom struct {
	name string
	desc string
	fn   Func
}

// Custom wraps a user function as a Predicate. Custom predicates are equal
// when their names are equal, so names must be unique per test function.
func Custom(name, description string, fn Func) Predicate {
	return &custom{name: name, desc: description, fn: fn}
}

func (c *custom) Test(v *variant.Variant) bool { return v != nil && c.fn(v) }
func (c *custom) Key() string                  { return "custom(" + quote(c.name) + ")" }
func (c *custom) Name() string                 { return c.name }
func (c *custom) Description() string          { return c.desc }

func compound(op string, ps []Predicate, f func(Predicate) string) string {
	var sb strings.Builder
	sb.WriteString(op)
	sb.WriteByte('(')
	for i, p := range ps {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(f(p))
	}
	sb.WriteByte(')')
	return sb.String()
}

func joined(ps []Predicate, sep string, f func(Predicate) string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = wrap(p, f(p))
	}
	return strings.Join(parts, sep)
}

// wrap parenthesises compound operands so rendered names keep their grouping.
func wrap(p Predicate, s string) string {
	switch p.(type) {
	case *and, *or:
		return "(" + s + ")"
	}
	return s
}

// quote escapes characters that are structural in keys.
func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `,`, `\,`, `(`, `\(`, `)`, `\)`).Replace(s)
}
