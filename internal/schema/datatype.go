package schema

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"
)

var (
	dateTimePattern = regexp.MustCompile(`^-?\d{4,}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)
	integerPattern  = regexp.MustCompile(`^[+-]?\d+$`)
)

// datatypes lists the types supported per datatype library
var datatypes = map[string]map[string]bool{
	"": {
		"string": true,
		"token":  true,
	},
	xsdDatatypes: {
		"string":             true,
		"normalizedString":   true,
		"token":              true,
		"anyURI":             true,
		"boolean":            true,
		"dateTime":           true,
		"integer":            true,
		"nonNegativeInteger": true,
	},
}

func checkDatatype(library, typ string) error {
	types, ok := datatypes[library]
	if !ok {
		return fmt.Errorf("datatype library %q is not supported", library)
	}
	if !types[typ] {
		return fmt.Errorf("datatype %q is not supported", typ)
	}
	return nil
}

// validLexical reports whether s is a valid lexical form of the datatype
func validLexical(library, typ, s string) bool {
	if library == "" {
		return true
	}
	v := collapse(s)
	switch typ {
	case "string", "normalizedString", "token":
		return true
	case "anyURI":
		_, err := url.Parse(v)
		return err == nil
	case "boolean":
		return v == "true" || v == "false" || v == "1" || v == "0"
	case "dateTime":
		if !dateTimePattern.MatchString(v) {
			return false
		}
		v = strings.TrimPrefix(v, "-")
		i := strings.IndexByte(v, 'T')
		if i != len("2006-01-02") {
			// years past 9999 are checked by the pattern alone
			return true
		}
		// time.Parse range-checks the date and clock fields
		_, err := time.Parse("2006-01-02T15:04:05", v[:i+len("T15:04:05")])
		return err == nil
	case "integer":
		return integerPattern.MatchString(v)
	case "nonNegativeInteger":
		return integerPattern.MatchString(v) && (!strings.HasPrefix(v, "-") || strings.Trim(v[1:], "0") == "")
	}
	return false
}

// valuesEqual compares a document value against a schema value as the datatype does
func valuesEqual(library, typ, schemaValue, docValue string) bool {
	switch {
	case library == "" && typ == "string":
		return schemaValue == docValue
	case library == xsdDatatypes && typ == "string":
		return schemaValue == docValue
	case library == xsdDatatypes && typ == "boolean":
		return canonicalBool(collapse(schemaValue)) == canonicalBool(collapse(docValue))
	default:
		return collapse(schemaValue) == collapse(docValue)
	}
}

func canonicalBool(v string) string {
	switch v {
	case "1", "true":
		return "true"
	case "0", "false":
		return "false"
	}
	return v
}

// collapse applies XML Schema whitespace collapsing
func collapse(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
