package schema

import (
	"fmt"
	"sort"
	"strings"

	"memento-client/internal/xmltree"
)

// validator collects diagnostics for one Validate call
type validator struct {
	diags []string
}

func (v *validator) report(line int, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if line > 0 {
		msg = fmt.Sprintf("line %d: %s", line, msg)
	}
	v.diags = append(v.diags, msg)
}

func (v *validator) validateRoot(root *xmltree.Node, start *pattern) {
	m := newSequenceMatch([]*xmltree.Node{root})
	if !m.run(start) {
		v.report(root.Line(), "root element <%s> is not allowed; expected %s", root.Name(), m.expectedList())
		return
	}
	v.validateMatched(m)
}

// validateMatched checks the content of every child of a successful match
// against the declarations that accepted it. When several declarations share
// a name, the first one the child fully satisfies wins.
func (v *validator) validateMatched(m *sequenceMatch) {
	for i, kid := range m.kids {
		candidates := m.accepted[i]
		if len(candidates) == 1 {
			v.validateElement(kid, candidates[0])
			continue
		}
		var first []string
		for j, c := range candidates {
			trial := &validator{}
			trial.validateElement(kid, c)
			if len(trial.diags) == 0 {
				first = nil
				break
			}
			if j == 0 {
				first = trial.diags
			}
		}
		v.diags = append(v.diags, first...)
	}
}

// validateElement checks one element whose name already matched p
func (v *validator) validateElement(n *xmltree.Node, p *pattern) {
	content := p.content()
	v.validateAttributes(n, content)

	if p.simple {
		for _, child := range n.Children() {
			v.report(child.Line(), "element <%s> is not allowed in <%s>; only text is expected", child.Name(), n.Name())
		}
		if len(n.Children()) == 0 && !textMatches(content, n.Text()) {
			v.report(n.Line(), "element <%s> has invalid value %q; expected %s", n.Name(), strings.TrimSpace(n.Text()), describe(content))
		}
		return
	}

	if n.HasText() && !allowsText(content) {
		v.report(n.Line(), "element <%s> must not contain text, found %q", n.Name(), strings.TrimSpace(n.Text()))
	}

	kids := n.Children()
	m := newSequenceMatch(kids)
	if m.run(content) {
		v.validateMatched(m)
		return
	}

	decls := map[string][]*pattern{}
	collectElements(content, decls, map[*pattern]bool{})

	var handled *xmltree.Node
	switch {
	case m.furthest == len(kids):
		v.report(n.Line(), "element <%s> is incomplete; missing %s", n.Name(), m.expectedList())
	case m.rejected:
		// the name fitted but the content did not
		handled = kids[m.furthest]
		if candidates := decls[handled.Name()]; len(candidates) == 1 {
			v.validateElement(handled, candidates[0])
		} else {
			var accepted []string
			for _, c := range candidates {
				accepted = append(accepted, describe(c.content()))
			}
			v.report(handled.Line(), "element <%s> has invalid value %q; expected %s",
				handled.Name(), strings.TrimSpace(handled.Text()), strings.Join(accepted, " or "))
		}
	case len(m.expected) == 0:
		bad := kids[m.furthest]
		v.report(bad.Line(), "element <%s> is not allowed in <%s>; no more elements expected", bad.Name(), n.Name())
	default:
		bad := kids[m.furthest]
		v.report(bad.Line(), "element <%s> is not allowed in <%s> here; expected %s", bad.Name(), n.Name(), m.expectedList())
	}

	// Keep going below the failed element so every violation is reported, not
	// just the first: children whose name identifies a single declaration are
	// still checked against it.
	for _, kid := range kids {
		if kid == handled {
			continue
		}
		if candidates := decls[kid.Name()]; len(candidates) == 1 && candidates[0].ns == kid.Space() {
			v.validateElement(kid, candidates[0])
		}
	}
}

func (v *validator) validateAttributes(n *xmltree.Node, content *pattern) {
	var decls []attrDecl
	collectAttributes(content, true, &decls, map[*pattern]bool{})

	seen := map[*pattern]bool{}
	for _, a := range n.Attrs() {
		var decl *attrDecl
		for i := range decls {
			if decls[i].pattern.name == a.Name && decls[i].pattern.ns == a.Space {
				decl = &decls[i]
				break
			}
		}
		if decl == nil {
			v.report(n.Line(), "attribute %q is not allowed on <%s>", a.Name, n.Name())
			continue
		}
		seen[decl.pattern] = true
		if !textMatches(decl.pattern.content(), a.Value) {
			v.report(n.Line(), "attribute %q of <%s> has invalid value %q; expected %s", a.Name, n.Name(), a.Value, describe(decl.pattern.content()))
		}
	}
	for _, d := range decls {
		if d.required && !seen[d.pattern] {
			v.report(n.Line(), "element <%s> is missing required attribute %q", n.Name(), d.pattern.name)
		}
	}
}

// sequenceMatch matches a content pattern against the child elements of one
// element using pattern derivatives: after each child the pattern is replaced
// by what may still follow it, so interleaved operands can take turns freely.
// Element patterns are atoms here. They match by name, and text-only elements
// by value too; other content is checked once the sequence has matched.
type sequenceMatch struct {
	kids []*xmltree.Node

	// accepted holds, per child, the element declarations that took it
	accepted [][]*pattern

	// On failure: the position of the first child that could not be matched
	// (len(kids) when the content ended too early), the element names allowed
	// there, and whether the child there matched a declaration by name only.
	furthest int
	expected map[string]bool
	rejected bool
}

var (
	emptyPattern      = &pattern{kind: kindEmpty}
	notAllowedPattern = &pattern{kind: kindNotAllowed}
)

func newSequenceMatch(kids []*xmltree.Node) *sequenceMatch {
	return &sequenceMatch{kids: kids, accepted: make([][]*pattern, len(kids))}
}

// run reports whether the children match p
func (m *sequenceMatch) run(p *pattern) bool {
	for i := range m.kids {
		rejected := false
		d := m.deriv(p, i, &rejected)
		if d.kind == kindNotAllowed {
			m.fail(i, p)
			m.rejected = rejected
			return false
		}
		p = d
	}
	if !nullable(p) {
		m.fail(len(m.kids), p)
		return false
	}
	return true
}

func (m *sequenceMatch) fail(i int, p *pattern) {
	m.furthest = i
	m.expected = map[string]bool{}
	firstNames(p, m.expected)
}

func (m *sequenceMatch) expectedList() string {
	names := make([]string, 0, len(m.expected))
	for name := range m.expected {
		names = append(names, "<"+name+">")
	}
	sort.Strings(names)
	switch len(names) {
	case 0:
		return "nothing"
	case 1:
		return names[0]
	default:
		return "one of " + strings.Join(names, ", ")
	}
}

// deriv returns the pattern left to match after child i has been consumed by p
func (m *sequenceMatch) deriv(p *pattern, i int, rejected *bool) *pattern {
	switch p.kind {
	case kindElement:
		kid := m.kids[i]
		if kid.Name() != p.name || kid.Space() != p.ns {
			return notAllowedPattern
		}
		if p.simple && !simpleContentMatches(kid, p) {
			*rejected = true
			return notAllowedPattern
		}
		m.accept(i, p)
		return emptyPattern
	case kindRef:
		return m.deriv(p.resolved, i, rejected)
	case kindChoice:
		out := notAllowedPattern
		for _, alt := range p.children {
			out = choiceOf(out, m.deriv(alt, i, rejected))
		}
		return out
	case kindGroup:
		head, rest := p.children[0], p.children[1:]
		out := groupOf(append([]*pattern{m.deriv(head, i, rejected)}, rest...))
		if nullable(head) {
			out = choiceOf(out, m.deriv(groupOf(rest), i, rejected))
		}
		return out
	case kindInterleave:
		out := notAllowedPattern
		for idx, part := range p.children {
			d := m.deriv(part, i, rejected)
			if d.kind == kindNotAllowed {
				continue
			}
			parts := append([]*pattern(nil), p.children...)
			parts[idx] = d
			out = choiceOf(out, interleaveOf(parts))
		}
		return out
	case kindOneOrMore:
		return groupOf([]*pattern{m.deriv(p.content(), i, rejected), choiceOf(p, emptyPattern)})
	}
	// text, data, value and attributes never consume a child element
	return notAllowedPattern
}

func (m *sequenceMatch) accept(i int, p *pattern) {
	for _, seen := range m.accepted[i] {
		if seen == p {
			return
		}
	}
	m.accepted[i] = append(m.accepted[i], p)
}

// nullable reports whether p matches an empty child sequence
func nullable(p *pattern) bool {
	switch p.kind {
	case kindNotAllowed, kindElement:
		return false
	case kindRef:
		return nullable(p.resolved)
	case kindChoice:
		for _, alt := range p.children {
			if nullable(alt) {
				return true
			}
		}
		return false
	case kindGroup, kindInterleave, kindOneOrMore:
		for _, child := range p.children {
			if !nullable(child) {
				return false
			}
		}
		return true
	}
	return true
}

// firstNames adds the names of the elements p can start with to out
func firstNames(p *pattern, out map[string]bool) {
	switch p.kind {
	case kindElement:
		out[p.name] = true
	case kindRef:
		firstNames(p.resolved, out)
	case kindChoice, kindInterleave, kindOneOrMore:
		for _, child := range p.children {
			firstNames(child, out)
		}
	case kindGroup:
		for _, child := range p.children {
			firstNames(child, out)
			if !nullable(child) {
				return
			}
		}
	}
}

func choiceOf(a, b *pattern) *pattern {
	switch {
	case a.kind == kindNotAllowed:
		return b
	case b.kind == kindNotAllowed, a == b:
		return a
	case a.kind == kindEmpty && b.kind == kindEmpty:
		return a
	}
	return &pattern{kind: kindChoice, children: []*pattern{a, b}}
}

func groupOf(parts []*pattern) *pattern {
	return combine(kindGroup, parts)
}

func interleaveOf(parts []*pattern) *pattern {
	return combine(kindInterleave, parts)
}

// combine builds a group or interleave, dropping empty operands
func combine(k kind, parts []*pattern) *pattern {
	var kept []*pattern
	for _, part := range parts {
		switch part.kind {
		case kindNotAllowed:
			return notAllowedPattern
		case kindEmpty:
			continue
		}
		kept = append(kept, part)
	}
	switch len(kept) {
	case 0:
		return emptyPattern
	case 1:
		return kept[0]
	}
	return &pattern{kind: k, children: kept}
}

type attrDecl struct {
	pattern  *pattern
	required bool
}

func collectAttributes(p *pattern, required bool, out *[]attrDecl, seen map[*pattern]bool) {
	if seen[p] {
		return
	}
	seen[p] = true
	switch p.kind {
	case kindAttribute:
		*out = append(*out, attrDecl{pattern: p, required: required})
	case kindElement:
		return
	case kindRef:
		collectAttributes(p.resolved, required, out, seen)
	case kindChoice:
		for _, alt := range p.children {
			collectAttributes(alt, false, out, seen)
		}
	default:
		for _, child := range p.children {
			collectAttributes(child, required, out, seen)
		}
	}
}

func collectElements(p *pattern, out map[string][]*pattern, seen map[*pattern]bool) {
	if seen[p] {
		return
	}
	seen[p] = true
	switch p.kind {
	case kindElement:
		out[p.name] = append(out[p.name], p)
	case kindRef:
		collectElements(p.resolved, out, seen)
	default:
		for _, child := range p.children {
			collectElements(child, out, seen)
		}
	}
}

// simpleContentMatches checks a text-only element against its declaration so
// that same-named alternatives can be told apart by value
func simpleContentMatches(n *xmltree.Node, p *pattern) bool {
	return len(n.Children()) == 0 && textMatches(p.content(), n.Text())
}

// hasElements reports whether the content pattern expects child elements
func hasElements(p *pattern) bool {
	decls := map[string][]*pattern{}
	collectElements(p, decls, map[*pattern]bool{})
	return len(decls) > 0
}

// allowsText reports whether element content may be mixed with text
func allowsText(p *pattern) bool {
	switch p.kind {
	case kindText:
		return true
	case kindElement, kindAttribute:
		return false
	case kindRef:
		return allowsText(p.resolved)
	}
	for _, child := range p.children {
		if allowsText(child) {
			return true
		}
	}
	return false
}

// textMatches checks the text content of an element without child elements
func textMatches(p *pattern, s string) bool {
	switch p.kind {
	case kindEmpty, kindAttribute:
		return strings.TrimSpace(s) == ""
	case kindText:
		return true
	case kindNotAllowed:
		return false
	case kindData:
		return validLexical(p.library, p.datatype, s)
	case kindValue:
		return valuesEqual(p.library, p.datatype, p.value, s)
	case kindRef:
		return textMatches(p.resolved, s)
	case kindOneOrMore:
		return textMatches(p.content(), s)
	case kindChoice:
		for _, alt := range p.children {
			if textMatches(alt, s) {
				return true
			}
		}
		return false
	case kindGroup, kindInterleave:
		checked := false
		for _, child := range p.children {
			if child.kind == kindAttribute || child.kind == kindEmpty {
				continue
			}
			checked = true
			if !textMatches(child, s) {
				return false
			}
		}
		return checked || strings.TrimSpace(s) == ""
	}
	return false
}

// describe renders what a text pattern accepts, for diagnostics
func describe(p *pattern) string {
	switch p.kind {
	case kindEmpty:
		return "no content"
	case kindText:
		return "text"
	case kindData:
		return fmt.Sprintf("a %s value", p.datatype)
	case kindValue:
		return fmt.Sprintf("%q", p.value)
	case kindRef:
		return describe(p.resolved)
	case kindChoice:
		var alts []string
		for _, alt := range p.children {
			alts = append(alts, describe(alt))
		}
		return "one of " + strings.Join(alts, ", ")
	case kindOneOrMore:
		return describe(p.content())
	}
	return "valid content"
}
