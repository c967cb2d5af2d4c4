// Package schema compiles RELAX NG schemas (XML syntax) and validates parsed
// documents against them.
//
// The supported subset covers grammar, start, define, ref, div, element,
// attribute, group, interleave, choice, optional, zeroOrMore, oneOrMore, text,
// empty, notAllowed, data and value, with the built-in and XML Schema datatype
// libraries. Element and attribute names must be given as plain names. Operands
// of an interleave are matched as contiguous runs of elements in any order.
// Anything outside the subset is rejected when the schema is compiled.
package schema

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"memento-client/internal/xmltree"
	apperrors "memento-client/pkg/errors"
)

//go:embed call-list.rng
var callListSchema []byte

// Schema is a compiled schema. It is immutable and safe for concurrent use.
type Schema struct {
	start *pattern
}

// Compile reads and compiles a RELAX NG schema in XML syntax
func Compile(r io.Reader) (*Schema, error) {
	doc, err := xmltree.ParseReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}

	c := &compiler{defines: map[string]*pattern{}}
	start, err := c.compileRoot(doc.Root())
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := c.resolve(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	if err := checkRecursion(start, map[string]bool{}); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{start: start}, nil
}

// Load compiles the schema file at path
func Load(path string) (*Schema, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, apperrors.ConfigError("cannot open schema", err)
	}
	defer f.Close()

	s, err := Compile(f)
	if err != nil {
		return nil, apperrors.ConfigError(fmt.Sprintf("invalid schema %s", path), err)
	}
	return s, nil
}

// LoadDefault compiles the bundled call-list schema
func LoadDefault() (*Schema, error) {
	s, err := Compile(bytes.NewReader(callListSchema))
	if err != nil {
		return nil, apperrors.ConfigError("invalid bundled call-list schema", err)
	}
	return s, nil
}

// DefaultSource returns the bundled call-list schema text
func DefaultSource() []byte {
	return bytes.Clone(callListSchema)
}

// Validate checks doc against the schema. A failing document yields a
// SCHEMA_INVALID error carrying every violation found.
func (s *Schema) Validate(doc *xmltree.Document) error {
	v := &validator{}
	v.validateRoot(doc.Root(), s.start)
	if len(v.diags) > 0 {
		return apperrors.SchemaValidationError(v.diags)
	}
	return nil
}
