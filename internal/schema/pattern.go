package schema

import (
	"fmt"
	"strings"

	"memento-client/internal/xmltree"
)

const (
	relaxNGNamespace = "http://relaxng.org/ns/structure/1.0"
	xsdDatatypes     = "http://www.w3.org/2001/XMLSchema-datatypes"
)

type kind int

const (
	kindEmpty kind = iota
	kindNotAllowed
	kindText
	kindData
	kindValue
	kindElement
	kindAttribute
	kindGroup
	kindInterleave
	kindChoice
	kindOneOrMore
	kindRef
)

// pattern is one node of a compiled RelaxNG pattern. Patterns are never
// modified after compilation.
type pattern struct {
	kind kind

	// element and attribute
	name string
	ns   string

	// group, interleave, choice, oneOrMore and the content of element/attribute
	children []*pattern

	// data and value
	library  string
	datatype string
	value    string

	// ref
	ref      string
	resolved *pattern

	// simple marks elements whose content is text only
	simple bool
}

func (p *pattern) content() *pattern {
	return p.children[0]
}

// compiler turns a RelaxNG XML-syntax tree into patterns
type compiler struct {
	defines  map[string]*pattern
	refs     []*pattern
	elements []*pattern
}

type scope struct {
	ns      string
	library string
}

func (c *compiler) inherit(n *xmltree.Node, parent scope) scope {
	s := parent
	if v, ok := n.Attr("ns"); ok {
		s.ns = v
	}
	if v, ok := n.Attr("datatypeLibrary"); ok {
		s.library = v
	}
	return s
}

func (c *compiler) compileRoot(root *xmltree.Node) (*pattern, error) {
	if root.Space() != relaxNGNamespace {
		return nil, fmt.Errorf("root element <%s> is not in the RELAX NG namespace", root.Name())
	}

	s := c.inherit(root, scope{})
	if root.Name() != "grammar" {
		return c.compile(root, s)
	}

	var start *pattern
	if err := c.compileGrammarContent(root, s, &start); err != nil {
		return nil, err
	}
	if start == nil {
		return nil, fmt.Errorf("grammar has no <start>")
	}
	return start, nil
}

func (c *compiler) compileGrammarContent(n *xmltree.Node, s scope, start **pattern) error {
	for _, child := range rngChildren(n) {
		cs := c.inherit(child, s)
		switch child.Name() {
		case "start":
			if *start != nil {
				return fmt.Errorf("line %d: grammar has more than one <start>", child.Line())
			}
			if _, ok := child.Attr("combine"); ok {
				return fmt.Errorf("line %d: combine is not supported", child.Line())
			}
			p, err := c.compileGroupOf(child, cs)
			if err != nil {
				return err
			}
			*start = p
		case "define":
			name, ok := child.Attr("name")
			if !ok {
				return fmt.Errorf("line %d: <define> without a name", child.Line())
			}
			if _, ok := child.Attr("combine"); ok {
				return fmt.Errorf("line %d: combine is not supported", child.Line())
			}
			if _, dup := c.defines[name]; dup {
				return fmt.Errorf("line %d: %q is defined more than once", child.Line(), name)
			}
			p, err := c.compileGroupOf(child, cs)
			if err != nil {
				return err
			}
			c.defines[name] = p
		case "div":
			if err := c.compileGrammarContent(child, cs, start); err != nil {
				return err
			}
		default:
			return fmt.Errorf("line %d: <%s> is not supported inside <grammar>", child.Line(), child.Name())
		}
	}
	return nil
}

// compileGroupOf compiles the children of n as an implicit group
func (c *compiler) compileGroupOf(n *xmltree.Node, s scope) (*pattern, error) {
	var parts []*pattern
	for _, child := range rngChildren(n) {
		if child.Name() == "name" {
			continue
		}
		p, err := c.compile(child, c.inherit(child, s))
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	switch len(parts) {
	case 0:
		return nil, fmt.Errorf("line %d: <%s> must contain a pattern", n.Line(), n.Name())
	case 1:
		return parts[0], nil
	default:
		return &pattern{kind: kindGroup, children: parts}, nil
	}
}

func (c *compiler) compileOperands(n *xmltree.Node, s scope, k kind) (*pattern, error) {
	var parts []*pattern
	for _, child := range rngChildren(n) {
		p, err := c.compile(child, c.inherit(child, s))
		if err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	switch len(parts) {
	case 0:
		return nil, fmt.Errorf("line %d: <%s> must contain a pattern", n.Line(), n.Name())
	case 1:
		return parts[0], nil
	default:
		return &pattern{kind: k, children: parts}, nil
	}
}

func (c *compiler) compile(n *xmltree.Node, s scope) (*pattern, error) {
	switch n.Name() {
	case "element", "attribute":
		return c.compileNamed(n, s)
	case "group":
		return c.compileOperands(n, s, kindGroup)
	case "interleave":
		return c.compileOperands(n, s, kindInterleave)
	case "choice":
		return c.compileOperands(n, s, kindChoice)
	case "optional":
		p, err := c.compileGroupOf(n, s)
		if err != nil {
			return nil, err
		}
		return optional(p), nil
	case "zeroOrMore":
		p, err := c.compileGroupOf(n, s)
		if err != nil {
			return nil, err
		}
		return optional(&pattern{kind: kindOneOrMore, children: []*pattern{p}}), nil
	case "oneOrMore":
		p, err := c.compileGroupOf(n, s)
		if err != nil {
			return nil, err
		}
		return &pattern{kind: kindOneOrMore, children: []*pattern{p}}, nil
	case "text":
		return &pattern{kind: kindText}, nil
	case "empty":
		return &pattern{kind: kindEmpty}, nil
	case "notAllowed":
		return &pattern{kind: kindNotAllowed}, nil
	case "data":
		return c.compileData(n, s)
	case "value":
		return c.compileValue(n, s)
	case "ref":
		name, ok := n.Attr("name")
		if !ok {
			return nil, fmt.Errorf("line %d: <ref> without a name", n.Line())
		}
		p := &pattern{kind: kindRef, ref: name}
		c.refs = append(c.refs, p)
		return p, nil
	default:
		return nil, fmt.Errorf("line %d: <%s> is not supported", n.Line(), n.Name())
	}
}

func (c *compiler) compileNamed(n *xmltree.Node, s scope) (*pattern, error) {
	k := kindElement
	if n.Name() == "attribute" {
		k = kindAttribute
		// attributes are un-namespaced unless ns is given on the attribute itself
		if _, ok := n.Attr("ns"); !ok {
			s.ns = ""
		}
	}

	name, ok := n.Attr("name")
	if !ok {
		nameNode := n.Find("name")
		if nameNode == nil {
			return nil, fmt.Errorf("line %d: <%s> needs a name attribute or <name> child; other name classes are not supported", n.Line(), n.Name())
		}
		name = strings.TrimSpace(nameNode.Text())
		if v, ok := nameNode.Attr("ns"); ok {
			s.ns = v
		}
	}
	if strings.Contains(name, ":") {
		return nil, fmt.Errorf("line %d: prefixed name %q is not supported; use the ns attribute", n.Line(), name)
	}

	var content *pattern
	children := rngChildren(n)
	if len(children) == 0 || (len(children) == 1 && children[0].Name() == "name") {
		if k == kindElement {
			return nil, fmt.Errorf("line %d: <element name=%q> must contain a pattern", n.Line(), name)
		}
		content = &pattern{kind: kindText}
	} else {
		var err error
		content, err = c.compileGroupOf(n, s)
		if err != nil {
			return nil, err
		}
	}
	p := &pattern{kind: k, name: name, ns: s.ns, children: []*pattern{content}}
	if k == kindElement {
		c.elements = append(c.elements, p)
	}
	return p, nil
}

func (c *compiler) compileData(n *xmltree.Node, s scope) (*pattern, error) {
	typ, ok := n.Attr("type")
	if !ok {
		return nil, fmt.Errorf("line %d: <data> without a type", n.Line())
	}
	if err := checkDatatype(s.library, typ); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line(), err)
	}
	if children := rngChildren(n); len(children) > 0 {
		return nil, fmt.Errorf("line %d: <%s> inside <data> is not supported", children[0].Line(), children[0].Name())
	}
	return &pattern{kind: kindData, library: s.library, datatype: typ}, nil
}

func (c *compiler) compileValue(n *xmltree.Node, s scope) (*pattern, error) {
	library, typ := s.library, "token"
	if v, ok := n.Attr("type"); ok {
		typ = v
	} else {
		// a value without a type is a built-in token
		library = ""
	}
	if err := checkDatatype(library, typ); err != nil {
		return nil, fmt.Errorf("line %d: %w", n.Line(), err)
	}
	return &pattern{kind: kindValue, library: library, datatype: typ, value: n.Text()}, nil
}

// resolve links every ref to its define and rejects references that can recurse
// without passing through an element
func (c *compiler) resolve() error {
	for _, r := range c.refs {
		target, ok := c.defines[r.ref]
		if !ok {
			return fmt.Errorf("reference to undefined pattern %q", r.ref)
		}
		r.resolved = target
	}
	for name, p := range c.defines {
		if err := checkRecursion(p, map[string]bool{name: true}); err != nil {
			return err
		}
	}
	for _, e := range c.elements {
		e.simple = !hasElements(e.content())
	}
	return nil
}

func checkRecursion(p *pattern, visiting map[string]bool) error {
	switch p.kind {
	case kindElement:
		return nil
	case kindRef:
		if visiting[p.ref] {
			return fmt.Errorf("pattern %q refers to itself outside an element", p.ref)
		}
		visiting[p.ref] = true
		defer delete(visiting, p.ref)
		return checkRecursion(p.resolved, visiting)
	}
	for _, child := range p.children {
		if err := checkRecursion(child, visiting); err != nil {
			return err
		}
	}
	return nil
}

func optional(p *pattern) *pattern {
	return &pattern{kind: kindChoice, children: []*pattern{p, {kind: kindEmpty}}}
}

// rngChildren returns the RELAX NG elements below n, skipping foreign annotations
func rngChildren(n *xmltree.Node) []*xmltree.Node {
	var out []*xmltree.Node
	for _, child := range n.Children() {
		if child.Space() == relaxNGNamespace {
			out = append(out, child)
		}
	}
	return out
}
