package record

import "github.com/reoring/natcodec/internal/naming"

// Index resolves input names to fields.
//
// Declared names and aliases are registered up front. Derived spellings are
// added on the first miss and never override a declared name or alias.
// Names that resolve to nothing are remembered as unknown, up to
// MaxUnknownNames of them. An Index is not safe for concurrent use.
type Index struct {
	fields   []*Field
	names    map[string]*Field // nil value: known unknown
	unknown  int
	variants bool
}

// MaxUnknownNames bounds the unknown-name memo of an Index.
const MaxUnknownNames = 1024

// NewIndex builds an index over fields. When two fields declare the same
// name the first one wins.
func NewIndex(fields []*Field) *Index {
	x := &Index{fields: fields, names: make(map[string]*Field, len(fields)*2)}
	for _, f := range fields {
		for _, n := range f.primaryNames() {
			if _, ok := x.names[n]; !ok {
				x.names[n] = f
			}
		}
	}
	return x
}

// Lookup returns the field accepting name.
func (x *Index) Lookup(name string) (*Field, bool) {
	if f, ok := x.names[name]; ok {
		return f, f != nil
	}
	if !x.variants {
		x.variants = true
		x.loadVariants()
		if f, ok := x.names[name]; ok {
			return f, true
		}
	}
	if x.unknown < MaxUnknownNames {
		x.names[name] = nil
		x.unknown++
	}
	return nil, false
}

func (x *Index) loadVariants() {
	for _, f := range x.fields {
		for _, n := range f.primaryNames() {
			for _, v := range naming.Variants(n) {
				if _, ok := x.names[v]; !ok {
					x.names[v] = f
				}
			}
		}
	}
}

// Unknown reports whether name was already looked up and found unknown.
func (x *Index) Unknown(name string) bool {
	f, ok := x.names[name]
	return ok && f == nil
}
