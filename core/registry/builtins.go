package registry

import "reflect"

// Char is the handle type for the char short type. It is distinct from
// int32 so that char and int reverse-resolve to their own names.
type Char rune

// builtinTypes are the primitive short types every Ako host understands.
// Names follow the conventional C-family spellings used in Ako documents.
var builtinTypes = []struct {
	name   string
	handle Handle
}{
	{"int", reflect.TypeFor[int32]()},
	{"float", reflect.TypeFor[float32]()},
	{"double", reflect.TypeFor[float64]()},
	{"string", reflect.TypeFor[string]()},
	{"bool", reflect.TypeFor[bool]()},
	{"byte", reflect.TypeFor[uint8]()},
	{"sbyte", reflect.TypeFor[int8]()},
	{"char", reflect.TypeFor[Char]()},
	{"short", reflect.TypeFor[int16]()},
	{"ushort", reflect.TypeFor[uint16]()},
	{"uint", reflect.TypeFor[uint32]()},
	{"long", reflect.TypeFor[int64]()},
	{"ulong", reflect.TypeFor[uint64]()},
	{"object", reflect.TypeFor[any]()},
}

// RegisterBuiltins registers the primitive short types.
func (r *Registry) RegisterBuiltins() error {
	for _, b := range builtinTypes {
		if err := r.Register(b.name, b.handle); err != nil {
			return err
		}
	}
	return nil
}

// NewWithBuiltins creates a registry pre-populated with the primitive short types
func NewWithBuiltins() *Registry {
	r := New()
	if err := r.RegisterBuiltins(); err != nil {
		// Builtin names are distinct, so registration into a fresh registry cannot fail
		panic(err)
	}
	return r
}
