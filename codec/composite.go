package codec

import (
	"slices"
	"strconv"

	"github.com/reoring/natcodec"
)

// List reads arrays of elem. Absent elements are dropped; element errors are
// re-rooted under the element's input index.
func List[E any](elem Codec[E]) Codec[[]E] { return &listCodec[E]{elem: elem} }

type listCodec[E any] struct{ elem Codec[E] }

func (l *listCodec[E]) Read(c *natcodec.Cursor) ([]E, bool, error) {
	return l.read(c, natcodec.Lenient)
}

func (l *listCodec[E]) ReadStrict(c *natcodec.Cursor) ([]E, bool, error) {
	return l.read(c, natcodec.Strict)
}

func (l *listCodec[E]) read(c *natcodec.Cursor, mode natcodec.Mode) ([]E, bool, error) {
	tok := c.Current()
	if tok.Kind != natcodec.TokenBeginArray {
		return nil, false, notContainer(c, mode, "array")
	}
	out := []E{}
	for i := 0; ; i++ {
		k, err := c.Advance()
		if err != nil {
			return nil, false, err
		}
		if k == natcodec.TokenEndArray {
			return out, true, nil
		}
		v, ok, err := ReadMode[E](l.elem, c, mode)
		if err != nil {
			return nil, false, natcodec.UnderPath(err, strconv.Itoa(i))
		}
		if ok {
			out = append(out, v)
		}
	}
}

func (l *listCodec[E]) Write(g natcodec.Generator, v []E) error {
	if v == nil {
		return g.WriteNull()
	}
	if err := g.WriteStartArray(); err != nil {
		return err
	}
	for i, e := range v {
		if err := l.elem.Write(g, e); err != nil {
			return natcodec.UnderPath(err, strconv.Itoa(i))
		}
	}
	return g.WriteEndArray()
}

// Map reads objects into string-keyed maps. Absent values are dropped; value
// errors are re-rooted under the key. Keys are written in sorted order.
func Map[V any](val Codec[V]) Codec[map[string]V] { return &mapCodec[V]{val: val} }

type mapCodec[V any] struct{ val Codec[V] }

func (m *mapCodec[V]) Read(c *natcodec.Cursor) (map[string]V, bool, error) {
	return m.read(c, natcodec.Lenient)
}

func (m *mapCodec[V]) ReadStrict(c *natcodec.Cursor) (map[string]V, bool, error) {
	return m.read(c, natcodec.Strict)
}

func (m *mapCodec[V]) read(c *natcodec.Cursor, mode natcodec.Mode) (map[string]V, bool, error) {
	tok := c.Current()
	if tok.Kind != natcodec.TokenBeginObject {
		return nil, false, notContainer(c, mode, "object")
	}
	out := map[string]V{}
	for {
		k, err := c.Advance()
		if err != nil {
			return nil, false, err
		}
		if k == natcodec.TokenEndObject {
			return out, true, nil
		}
		if k != natcodec.TokenKey {
			return nil, false, natcodec.Structural(natcodec.TokenKey.String(), c.Current())
		}
		key := c.Current().String
		if _, err := c.Advance(); err != nil {
			return nil, false, err
		}
		v, ok, err := ReadMode[V](m.val, c, mode)
		if err != nil {
			return nil, false, natcodec.UnderPath(err, key)
		}
		if ok {
			out[key] = v
		}
	}
}

func (m *mapCodec[V]) Write(g natcodec.Generator, v map[string]V) error {
	if v == nil {
		return g.WriteNull()
	}
	if err := g.WriteStartObject(); err != nil {
		return err
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if err := g.WriteFieldName(k); err != nil {
			return err
		}
		if err := m.val.Write(g, v[k]); err != nil {
			return natcodec.UnderPath(err, k)
		}
	}
	return g.WriteEndObject()
}

// notContainer handles a token that does not open the expected container:
// null is absent, other values are gobbled (lenient) or rejected (strict),
// and stray structural tokens are fatal.
func notContainer(c *natcodec.Cursor, mode natcodec.Mode, expected string) error {
	tok := c.Current()
	switch tok.Kind {
	case natcodec.TokenNull:
		return nil
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return natcodec.Structural(expected, tok)
	}
	if err := c.Gobble(); err != nil {
		return err
	}
	if mode == natcodec.Strict {
		return natcodec.TypeMismatch(expected, tok)
	}
	return nil
}
