package avrorec

import (
	"fmt"
	"strings"
	"time"

	"github.com/linkedin/goavro/v2"

	"github.com/reoring/natcodec"
	"github.com/reoring/natcodec/codec"
)

// unionCodec reads a union from its natural JSON form: null, or the bare
// value of one branch chosen by token kind in declaration order. Values are
// wrapped in goavro's single-entry union map.
type unionCodec struct {
	branches []unionBranch
	byName   map[string]int
}

type unionBranch struct {
	name   string
	schema *Schema
	codec  codec.Codec[any]
}

func (b *builder) union(s *Schema) (codec.Codec[any], error) {
	u := &unionCodec{byName: make(map[string]int, len(s.Branches))}
	for _, bs := range s.Branches {
		if bs.Type == "null" {
			continue
		}
		c, err := b.codec(bs)
		if err != nil {
			return nil, err
		}
		name := bs.branchName()
		u.byName[name] = len(u.branches)
		u.branches = append(u.branches, unionBranch{name: name, schema: bs, codec: c})
	}
	return u, nil
}

func (u *unionCodec) Read(c *natcodec.Cursor) (any, bool, error) {
	return u.read(c, natcodec.Lenient)
}

func (u *unionCodec) ReadStrict(c *natcodec.Cursor) (any, bool, error) {
	return u.read(c, natcodec.Strict)
}

func (u *unionCodec) read(c *natcodec.Cursor, mode natcodec.Mode) (any, bool, error) {
	tok := c.Current()
	switch tok.Kind {
	case natcodec.TokenNull:
		return nil, false, nil
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return nil, false, natcodec.Structural("value", tok)
	}
	var cands []unionBranch
	for _, b := range u.branches {
		if accepts(b.schema, tok.Kind) {
			cands = append(cands, b)
		}
	}
	if len(cands) == 0 && mode == natcodec.Lenient && tok.Kind.IsScalar() {
		// Lenient coercion, e.g. a numeric string into an int branch.
		cands = u.branches
	}
	if len(cands) == 0 {
		if err := skipValue(c); err != nil {
			return nil, false, err
		}
		if mode == natcodec.Strict {
			return nil, false, natcodec.TypeMismatch(u.expected(), tok)
		}
		return nil, false, nil
	}
	// A container is consumed by the first attempt.
	if !tok.Kind.IsScalar() {
		b := cands[0]
		v, ok, err := codec.ReadMode(b.codec, c, mode)
		if err != nil || !ok {
			return nil, false, err
		}
		return goavro.Union(b.name, v), true, nil
	}
	var firstErr error
	for _, b := range cands {
		v, ok, err := b.codec.ReadStrict(c)
		if err == nil && ok {
			return goavro.Union(b.name, v), true, nil
		}
		if natcodec.IsFatal(err) {
			return nil, false, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if mode == natcodec.Strict {
		return nil, false, firstErr
	}
	for _, b := range cands {
		v, ok, err := b.codec.Read(c)
		if err != nil {
			return nil, false, err
		}
		if ok {
			return goavro.Union(b.name, v), true, nil
		}
	}
	return nil, false, nil
}

func (u *unionCodec) expected() string {
	names := make([]string, len(u.branches))
	for i, b := range u.branches {
		names[i] = b.name
	}
	return "one of " + strings.Join(names, ", ")
}

// Write accepts goavro's union map or a bare value whose Go type selects the
// branch.
func (u *unionCodec) Write(g natcodec.Generator, v any) error {
	if v == nil {
		return g.WriteNull()
	}
	if m, ok := v.(map[string]any); ok && len(m) == 1 {
		for name, inner := range m {
			if i, ok := u.byName[name]; ok {
				if inner == nil {
					return g.WriteNull()
				}
				return u.branches[i].codec.Write(g, inner)
			}
		}
	}
	for _, b := range u.branches {
		if holds(b.schema, v) {
			return b.codec.Write(g, v)
		}
	}
	return fmt.Errorf("%w: %T matches no branch of %s", codec.ErrWrongType, v, u.expected())
}

// accepts reports whether a branch can read a value starting with k.
func accepts(s *Schema, k natcodec.TokenKind) bool {
	switch k {
	case natcodec.TokenString:
		switch s.Type {
		case "string", "enum", "bytes", "fixed":
			return true
		case "int", "long":
			return isTimeLogical(s)
		}
	case natcodec.TokenNumber:
		switch s.Type {
		case "int", "long", "float", "double":
			return true
		}
	case natcodec.TokenBool:
		return s.Type == "boolean"
	case natcodec.TokenBinary:
		return s.Type == "bytes" || s.Type == "fixed"
	case natcodec.TokenBeginObject:
		return s.Type == "record" || s.Type == "map"
	case natcodec.TokenBeginArray:
		return s.Type == "array"
	}
	return false
}

// holds reports whether v is a native value of s.
func holds(s *Schema, v any) bool {
	switch v.(type) {
	case bool:
		return s.Type == "boolean"
	case int32:
		return s.Type == "int" && !isTimeLogical(s)
	case int64:
		return s.Type == "long" && !isTimeLogical(s)
	case float32:
		return s.Type == "float"
	case float64:
		return s.Type == "double"
	case string:
		return s.Type == "string" || s.Type == "enum"
	case []byte:
		return s.Type == "bytes" || s.Type == "fixed"
	case time.Time:
		return isTimeLogical(s)
	case []any:
		return s.Type == "array"
	case map[string]any:
		return s.Type == "record" || s.Type == "map"
	}
	return false
}
