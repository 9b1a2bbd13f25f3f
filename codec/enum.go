package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/reoring/natcodec"
)

// ErrUnknownEnumValue is returned when writing a value without a symbol.
var ErrUnknownEnumValue = errors.New("natcodec: enum value has no symbol")

// EnumSymbol binds a label and an ordinal to a native enum value.
type EnumSymbol[E comparable] struct {
	Label   string
	Ordinal int64
	Value   E
}

// EnumOption configures an EnumCodec.
type EnumOption[E comparable] func(*EnumCodec[E])

// WithEnumDefault makes lenient reads yield v instead of absent when no
// symbol matches.
func WithEnumDefault[E comparable](v E) EnumOption[E] {
	return func(c *EnumCodec[E]) {
		c.def = v
		c.hasDef = true
	}
}

const maxFolded = 256

// EnumCodec reads enums by label or ordinal and writes labels.
//
// Labels match case-sensitively first, then case-insensitively; a successful
// case-insensitive lookup is memoized under the input label, up to maxFolded
// labels. The memo is not synchronized: use one codec per goroutine.
type EnumCodec[E comparable] struct {
	symbols   []EnumSymbol[E]
	byLabel   map[string]int
	byOrdinal map[int64]int
	byValue   map[E]int
	folded    map[string]int // input label -> symbol index, -1 for a miss
	def       E
	hasDef    bool
}

// Enum builds a codec over symbols. When two symbols share a label, ordinal
// or value, the first one wins.
func Enum[E comparable](symbols []EnumSymbol[E], opts ...EnumOption[E]) *EnumCodec[E] {
	c := &EnumCodec[E]{
		symbols:   append([]EnumSymbol[E](nil), symbols...),
		byLabel:   make(map[string]int, len(symbols)),
		byOrdinal: make(map[int64]int, len(symbols)),
		byValue:   make(map[E]int, len(symbols)),
		folded:    make(map[string]int),
	}
	for i, s := range c.symbols {
		if _, ok := c.byLabel[s.Label]; !ok {
			c.byLabel[s.Label] = i
		}
		if _, ok := c.byOrdinal[s.Ordinal]; !ok {
			c.byOrdinal[s.Ordinal] = i
		}
		if _, ok := c.byValue[s.Value]; !ok {
			c.byValue[s.Value] = i
		}
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Symbols returns the declared symbols in order.
func (c *EnumCodec[E]) Symbols() []EnumSymbol[E] { return append([]EnumSymbol[E](nil), c.symbols...) }

// Default returns the configured lenient default.
func (c *EnumCodec[E]) Default() (E, bool) { return c.def, c.hasDef }

// Lookup resolves a label.
func (c *EnumCodec[E]) Lookup(label string) (E, bool) {
	if i, ok := c.byLabel[label]; ok {
		return c.symbols[i].Value, true
	}
	i, seen := c.folded[label]
	if !seen {
		i = -1
		for j, s := range c.symbols {
			if strings.EqualFold(s.Label, label) {
				i = j
				break
			}
		}
		if len(c.folded) < maxFolded {
			c.folded[label] = i
		}
	}
	if i < 0 {
		var zero E
		return zero, false
	}
	return c.symbols[i].Value, true
}

// ByOrdinal resolves an ordinal.
func (c *EnumCodec[E]) ByOrdinal(n int64) (E, bool) {
	if i, ok := c.byOrdinal[n]; ok {
		return c.symbols[i].Value, true
	}
	var zero E
	return zero, false
}

// Label returns the label of v.
func (c *EnumCodec[E]) Label(v E) (string, bool) {
	if i, ok := c.byValue[v]; ok {
		return c.symbols[i].Label, true
	}
	return "", false
}

func (c *EnumCodec[E]) match(tok natcodec.Token) (E, bool) {
	switch tok.Kind {
	case natcodec.TokenString:
		return c.Lookup(tok.String)
	case natcodec.TokenNumber:
		if n, st := parseIntText(tok.Number, -1<<63, 1<<63-1); st == numOK {
			return c.ByOrdinal(n)
		}
	}
	var zero E
	return zero, false
}

func (c *EnumCodec[E]) Read(cur *natcodec.Cursor) (E, bool, error) {
	var zero E
	tok := cur.Current()
	switch tok.Kind {
	case natcodec.TokenBeginObject, natcodec.TokenBeginArray:
		if err := cur.Gobble(); err != nil {
			return zero, false, err
		}
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return zero, false, natcodec.Structural("value", tok)
	case natcodec.TokenNull:
		return zero, false, nil
	default:
		if v, ok := c.match(tok); ok {
			return v, true, nil
		}
	}
	if c.hasDef {
		return c.def, true, nil
	}
	return zero, false, nil
}

func (c *EnumCodec[E]) ReadStrict(cur *natcodec.Cursor) (E, bool, error) {
	var zero E
	tok := cur.Current()
	switch tok.Kind {
	case natcodec.TokenNull:
		return zero, false, nil
	case natcodec.TokenString, natcodec.TokenNumber:
		if v, ok := c.match(tok); ok {
			return v, true, nil
		}
		de := natcodec.InvalidValue(natcodec.CodeInvalidEnum, "enum symbol", tok, nil)
		de.Detail = "unknown symbol " + tokenText(tok)
		return zero, false, de
	case natcodec.TokenBeginObject, natcodec.TokenBeginArray:
		if err := cur.Gobble(); err != nil {
			return zero, false, err
		}
	case natcodec.TokenKey, natcodec.TokenEndObject, natcodec.TokenEndArray:
		return zero, false, natcodec.Structural("value", tok)
	}
	return zero, false, natcodec.TypeMismatch("string", tok)
}

func (c *EnumCodec[E]) Write(g natcodec.Generator, v E) error {
	label, ok := c.Label(v)
	if !ok {
		return fmt.Errorf("%w: %v", ErrUnknownEnumValue, v)
	}
	return g.WriteString(label)
}

// String lists the labels, for diagnostics.
func (c *EnumCodec[E]) String() string {
	labels := make([]string, len(c.symbols))
	for i, s := range c.symbols {
		labels[i] = s.Label + "=" + strconv.FormatInt(s.Ordinal, 10)
	}
	return "enum{" + strings.Join(labels, ",") + "}"
}
