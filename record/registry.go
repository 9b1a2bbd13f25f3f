package record

// Registry caches record codecs by type identity for one codec graph. It is
// owned by the caller and is not safe for concurrent use.
type Registry struct {
	codecs map[any]any
	added  []any // keys stored by the outermost Resolve in progress
	depth  int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{codecs: make(map[any]any)} }

// Lookup returns the codec stored under key.
func Lookup[R any](reg *Registry, key any) (*Codec[R], bool) {
	if reg == nil {
		return nil, false
	}
	c, ok := reg.codecs[key].(*Codec[R])
	return c, ok
}

// Store registers c under key, replacing any previous entry.
func Store[R any](reg *Registry, key any, c *Codec[R]) {
	if _, ok := reg.codecs[key]; !ok && reg.depth > 0 {
		reg.added = append(reg.added, key)
	}
	reg.codecs[key] = c
}

// Resolve returns the codec stored under key, building it when missing. The
// undefined codec is registered before build runs, so build may resolve key
// again for recursive types. When build fails, every codec registered since
// the outermost Resolve call started is removed, so no undefined codec stays
// reachable.
func Resolve[R any](reg *Registry, key any, build func() (Schema[R], error)) (*Codec[R], error) {
	if c, ok := Lookup[R](reg, key); ok {
		return c, nil
	}
	reg.depth++
	defer func() {
		reg.depth--
		if reg.depth == 0 {
			reg.added = reg.added[:0]
		}
	}()
	mark := len(reg.added)
	c := New[R]()
	Store(reg, key, c)
	s, err := build()
	if err != nil {
		for _, k := range reg.added[mark:] {
			delete(reg.codecs, k)
		}
		reg.added = reg.added[:mark]
		return nil, err
	}
	return c.Define(s), nil
}

// Len returns the number of registered codecs.
func (reg *Registry) Len() int { return len(reg.codecs) }
