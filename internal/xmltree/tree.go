// Package xmltree parses XML documents strictly into a small read-only element
// tree that the schema validator and the call mapper both walk.
package xmltree

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// ErrNoRoot is returned for documents without a root element
var ErrNoRoot = errors.New("document has no root element")

// Attr is one attribute of an element
type Attr struct {
	Space string
	Name  string
	Value string
}

// Node is one element of a parsed document
type Node struct {
	space    string
	name     string
	attrs    []Attr
	children []*Node
	text     strings.Builder
	line     int
}

// Document is a parsed, well-formed XML document
type Document struct {
	root *Node
}

// Root returns the document element
func (d *Document) Root() *Node {
	return d.root
}

// SyntaxError reports where a document stopped being well-formed
type SyntaxError struct {
	Line int
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
	}
	return e.Msg
}

// Parse reads a complete document. Parsing is strict: mismatched tags, unknown
// entities, unknown encodings, duplicate attributes, character data outside
// the root element and multiple root elements are all rejected. Declared
// encodings other than UTF-8 are decoded by their IANA label.
func Parse(data []byte) (*Document, error) {
	return ParseReader(bytes.NewReader(data))
}

// ParseReader is Parse over a stream
func ParseReader(r io.Reader) (*Document, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charset.NewReaderLabel

	var (
		root  *Node
		stack []*Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			var synErr *xml.SyntaxError
			if errors.As(err, &synErr) {
				return nil, &SyntaxError{Line: synErr.Line, Msg: synErr.Msg}
			}
			line, _ := dec.InputPos()
			return nil, &SyntaxError{Line: line, Msg: err.Error()}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			line, _ := dec.InputPos()
			n := &Node{space: t.Name.Space, name: t.Name.Local, line: line}
			seen := make(map[xml.Name]bool, len(t.Attr))
			for _, a := range t.Attr {
				if seen[a.Name] {
					return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("attribute %q repeated on <%s>", a.Name.Local, t.Name.Local)}
				}
				seen[a.Name] = true
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				n.attrs = append(n.attrs, Attr{Space: a.Name.Space, Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, &SyntaxError{Line: line, Msg: fmt.Sprintf("unexpected second root element <%s>", t.Name.Local)}
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				if len(bytes.TrimSpace(t)) > 0 {
					line, _ := dec.InputPos()
					return nil, &SyntaxError{Line: line, Msg: "character data outside the root element"}
				}
				continue
			}
			stack[len(stack)-1].text.Write(t)
		}
	}

	if root == nil {
		return nil, ErrNoRoot
	}
	return &Document{root: root}, nil
}

// NewElement builds a detached element, for constructing documents in code
func NewElement(name string, children ...*Node) *Node {
	return &Node{name: name, children: children}
}

// NewTextElement builds a detached element holding only text
func NewTextElement(name, text string) *Node {
	n := &Node{name: name}
	n.text.WriteString(text)
	return n
}

// NewDocument wraps root as a document
func NewDocument(root *Node) *Document {
	return &Document{root: root}
}

// Name returns the element's local name
func (n *Node) Name() string { return n.name }

// Space returns the element's namespace URI
func (n *Node) Space() string { return n.space }

// Line returns the line the element starts on, or 0 for elements built in code
func (n *Node) Line() int { return n.line }

// Text returns the concatenated character data directly inside the element
func (n *Node) Text() string { return n.text.String() }

// HasText reports whether the element directly holds non-whitespace characters
func (n *Node) HasText() bool { return strings.TrimSpace(n.text.String()) != "" }

// Children returns the child elements in document order
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Attrs returns the element's attributes, without namespace declarations
func (n *Node) Attrs() []Attr {
	out := make([]Attr, len(n.attrs))
	copy(out, n.attrs)
	return out
}

// Attr returns the value of the un-namespaced attribute name
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Space == "" && a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Find returns the first element reached by the slash-separated path of child
// names below n, or nil.
func (n *Node) Find(path string) *Node {
	all := n.FindAll(path)
	if len(all) == 0 {
		return nil
	}
	return all[0]
}

// FindAll returns every element reached by the slash-separated path below n, in
// document order.
func (n *Node) FindAll(path string) []*Node {
	current := []*Node{n}
	for _, step := range strings.Split(path, "/") {
		if step == "" {
			continue
		}
		var next []*Node
		for _, c := range current {
			for _, child := range c.children {
				if child.name == step {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// FindText returns the text of the element at path and whether it exists
func (n *Node) FindText(path string) (string, bool) {
	found := n.Find(path)
	if found == nil {
		return "", false
	}
	return found.Text(), true
}
