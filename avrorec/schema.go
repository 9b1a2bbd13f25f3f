// Package avrorec is the row-schema backend: records described by an Avro
// schema, held in goavro's native form (map[string]any), with binary and
// object container file streams handled by goavro.
package avrorec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/reoring/natcodec"
)

// ErrInvalidSchema is returned for schemas that cannot be interpreted.
var ErrInvalidSchema = errors.New("natcodec: invalid avro schema")

// Schema is a node of a parsed Avro schema.
type Schema struct {
	// Type is a primitive name, or one of record, enum, array, map, fixed and
	// union.
	Type        string
	Name        string
	Namespace   string
	Aliases     []string
	LogicalType string
	Doc         string

	Fields      []*SchemaField // record
	Symbols     []string       // enum
	EnumDefault string         // enum, "" when absent
	Items       *Schema        // array
	Values      *Schema        // map
	Branches    []*Schema      // union
	Size        int            // fixed

	text string // JSON text, set on the root
}

// SchemaField is a record field.
type SchemaField struct {
	Name       string
	Aliases    []string
	Type       *Schema
	Default    any // raw JSON default
	HasDefault bool
	Doc        string
}

// FullName returns the namespace-qualified name of a named type.
func (s *Schema) FullName() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

// Nullable reports whether the schema accepts null.
func (s *Schema) Nullable() bool {
	if s.Type == "null" {
		return true
	}
	if s.Type == "union" {
		for _, b := range s.Branches {
			if b.Type == "null" {
				return true
			}
		}
	}
	return false
}

// Text returns the JSON text the schema was parsed from (YAML schemas are
// re-encoded as JSON).
func (s *Schema) Text() string { return s.text }

// branchName is goavro's union key for a branch.
func (s *Schema) branchName() string {
	switch s.Type {
	case "record", "enum", "fixed":
		return s.FullName()
	}
	if isTimeLogical(s) {
		return s.Type + "." + s.LogicalType
	}
	return s.Type
}

func isTimeLogical(s *Schema) bool {
	switch s.LogicalType {
	case "timestamp-millis", "timestamp-micros":
		return s.Type == "long"
	case "date":
		return s.Type == "int"
	}
	return false
}

var primitives = map[string]bool{
	"null": true, "boolean": true, "int": true, "long": true,
	"float": true, "double": true, "bytes": true, "string": true,
}

// ParseSchema parses an Avro schema in JSON.
func ParseSchema(text string) (*Schema, error) {
	tree, err := natcodec.DecodeAny(natcodec.JSONBytes([]byte(text)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	s, err := parseTree(tree)
	if err != nil {
		return nil, err
	}
	s.text = text
	return s, nil
}

// ParseSchemaYAML parses an Avro schema written in YAML.
func ParseSchemaYAML(data []byte) (*Schema, error) {
	var tree any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	tree = normalizeYAML(tree)
	text, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	s, err := parseTree(tree)
	if err != nil {
		return nil, err
	}
	s.text = string(text)
	return s, nil
}

// normalizeYAML converts map[any]any nodes into map[string]any.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = normalizeYAML(e)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[fmt.Sprint(k)] = normalizeYAML(e)
		}
		return m
	case []any:
		for i, e := range t {
			t[i] = normalizeYAML(e)
		}
		return t
	}
	return v
}

func parseTree(tree any) (*Schema, error) {
	p := &parser{named: map[string]*Schema{}}
	return p.parse(tree, "")
}

type parser struct {
	named map[string]*Schema
}

func (p *parser) parse(v any, ns string) (*Schema, error) {
	switch t := v.(type) {
	case string:
		return p.reference(t, ns)
	case []any:
		u := &Schema{Type: "union"}
		for _, b := range t {
			bs, err := p.parse(b, ns)
			if err != nil {
				return nil, err
			}
			u.Branches = append(u.Branches, bs)
		}
		return u, nil
	case map[string]any:
		return p.complex(t, ns)
	}
	return nil, fmt.Errorf("%w: unexpected node %T", ErrInvalidSchema, v)
}

func (p *parser) reference(name, ns string) (*Schema, error) {
	if primitives[name] {
		return &Schema{Type: name}, nil
	}
	if !strings.Contains(name, ".") && ns != "" {
		if s, ok := p.named[ns+"."+name]; ok {
			return s, nil
		}
	}
	if s, ok := p.named[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSchema, name)
}

func (p *parser) define(s *Schema, m map[string]any, ns string) error {
	name, _ := m["name"].(string)
	if name == "" {
		return fmt.Errorf("%w: %s without name", ErrInvalidSchema, s.Type)
	}
	s.Namespace = ns
	if nsv, ok := m["namespace"].(string); ok {
		s.Namespace = nsv
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		s.Namespace, name = name[:i], name[i+1:]
	}
	s.Name = name
	s.Aliases = stringList(m["aliases"])
	s.Doc, _ = m["doc"].(string)
	p.named[s.FullName()] = s
	return nil
}

func (p *parser) complex(m map[string]any, ns string) (*Schema, error) {
	switch typ := m["type"].(type) {
	case string:
		switch typ {
		case "record", "error":
			s := &Schema{Type: "record"}
			if err := p.define(s, m, ns); err != nil {
				return nil, err
			}
			raw, _ := m["fields"].([]any)
			for _, rf := range raw {
				fm, ok := rf.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("%w: field of %s is not an object", ErrInvalidSchema, s.FullName())
				}
				fname, _ := fm["name"].(string)
				if fname == "" {
					return nil, fmt.Errorf("%w: field of %s without name", ErrInvalidSchema, s.FullName())
				}
				ft, err := p.parse(fm["type"], s.Namespace)
				if err != nil {
					return nil, fmt.Errorf("field %s.%s: %w", s.FullName(), fname, err)
				}
				f := &SchemaField{Name: fname, Aliases: stringList(fm["aliases"]), Type: ft}
				f.Doc, _ = fm["doc"].(string)
				f.Default, f.HasDefault = fm["default"]
				s.Fields = append(s.Fields, f)
			}
			return s, nil
		case "enum":
			s := &Schema{Type: "enum", Symbols: stringList(m["symbols"])}
			if err := p.define(s, m, ns); err != nil {
				return nil, err
			}
			if len(s.Symbols) == 0 {
				return nil, fmt.Errorf("%w: enum %s without symbols", ErrInvalidSchema, s.FullName())
			}
			s.EnumDefault, _ = m["default"].(string)
			return s, nil
		case "fixed":
			s := &Schema{Type: "fixed"}
			if err := p.define(s, m, ns); err != nil {
				return nil, err
			}
			n, err := toInt64(m["size"])
			if err != nil || n < 0 {
				return nil, fmt.Errorf("%w: fixed %s size", ErrInvalidSchema, s.FullName())
			}
			s.Size = int(n)
			return s, nil
		case "array":
			items, err := p.parse(m["items"], ns)
			if err != nil {
				return nil, err
			}
			return &Schema{Type: "array", Items: items}, nil
		case "map":
			values, err := p.parse(m["values"], ns)
			if err != nil {
				return nil, err
			}
			return &Schema{Type: "map", Values: values}, nil
		}
		s, err := p.reference(typ, ns)
		if err != nil {
			return nil, err
		}
		if lt, ok := m["logicalType"].(string); ok && primitives[typ] {
			s.LogicalType = lt
		}
		return s, nil
	case nil:
		return nil, fmt.Errorf("%w: missing type", ErrInvalidSchema)
	default:
		return p.parse(typ, ns)
	}
}

func stringList(v any) []string {
	raw, _ := v.([]any)
	out := make([]string, 0, len(raw))
	for _, e := range raw {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// toInt64 converts JSON (json.Number) and YAML (int, float64) numbers.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case interface{ String() string }: // json.Number
		return strconv.ParseInt(n.String(), 10, 64)
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		return int64(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, fmt.Errorf("%v is not integral", n)
		}
		return int64(n), nil
	}
	return 0, fmt.Errorf("%T is not a number", v)
}

func toFloat64(v any) (float64, error) {
	switch n := v.(type) {
	case interface{ String() string }:
		return strconv.ParseFloat(n.String(), 64)
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case float64:
		return n, nil
	}
	return 0, fmt.Errorf("%T is not a number", v)
}
