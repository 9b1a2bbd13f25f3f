package thriftrec

import (
	"fmt"
	"reflect"

	"github.com/apache/thrift/lib/go/thrift"

	"github.com/reoring/natcodec/codec"
)

// Option configures a Codec.
type Option func(*config)

type config struct {
	enums map[reflect.Type]*enumType
	ctors map[reflect.Type]func() reflect.Value
	tconf *thrift.TConfiguration
}

func newConfig(opts []Option) *config {
	cfg := &config{
		enums: map[reflect.Type]*enumType{},
		ctors: map[reflect.Type]func() reflect.Value{},
		tconf: &thrift.TConfiguration{},
	}
	for _, o := range opts {
		o(cfg)
	}
	return cfg
}

// enumType adapts a generated Thrift enum to the enum codec.
type enumType struct {
	codec codec.Codec[any]
	parse func(label string) (any, bool)
	label func(v any) (string, bool)
}

// Enum is the shape of a generated Thrift enum: an int64 with a String
// method returning the symbol.
type Enum interface {
	~int64
	fmt.Stringer
}

// WithEnum registers the symbols of enum type E. Labels come from String
// and ordinals from the numeric value.
func WithEnum[E Enum](values ...E) Option {
	return func(cfg *config) {
		syms := make([]codec.EnumSymbol[E], len(values))
		for i, v := range values {
			syms[i] = codec.EnumSymbol[E]{Label: v.String(), Ordinal: int64(v), Value: v}
		}
		ec := codec.Enum(syms)
		cfg.enums[reflect.TypeFor[E]()] = &enumType{
			codec: codec.Erase[E](ec),
			parse: func(label string) (any, bool) {
				v, ok := ec.Lookup(label)
				return v, ok
			},
			label: func(v any) (string, bool) {
				e, ok := v.(E)
				if !ok {
					return "", false
				}
				return ec.Label(e)
			},
		}
	}
}

// WithConstructor registers the constructor of struct type T. Field values
// it sets become the field defaults.
func WithConstructor[T any](fn func() *T) Option {
	return func(cfg *config) {
		cfg.ctors[reflect.TypeFor[T]()] = func() reflect.Value { return reflect.ValueOf(fn()) }
	}
}

// WithTConfiguration sets the protocol configuration of binary streams.
func WithTConfiguration(conf *thrift.TConfiguration) Option {
	return func(cfg *config) { cfg.tconf = conf }
}
