// Package natives implements the Context external contract of §4.3: a
// read-only registry mapping a Hash to a native handler, shared across VMs.
// Registering the handlers themselves (the "standard library of native
// functions") is explicitly out of scope (§1) - this package only defines
// the lookup table and the interface a handler is called through, mirroring
// the teacher's registry.BuiltinCallContext pattern for avoiding an import
// cycle back into the vm package.
package natives

import (
	"github.com/emberscript/embervm/heap"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// Stack exposes the minimal operand-stack services a native handler needs
// (§6.3): it owns the top `args` entries of the stack for the duration of
// its call and must leave exactly one return value on top. Defined here
// rather than imported from vm to avoid vm -> natives -> vm cycles; the vm
// package's frame/stack type satisfies this interface.
type Stack interface {
	Pop() (value.Value, error)
	Push(v value.Value) error
	At(offsetFromTop int) (value.Value, error)
	Len() int
	Heap() *heap.Heap
	// Statics resolves a unit's static-string table for handlers that need
	// to read a StaticString argument's text directly.
	Statics() []string
	// ParkGuard registers a raw guard to be released at the next handler
	// boundary (§4.4, §4.7, §5): a handler that must hold a borrow past its
	// own return (e.g. to hand a slice of array contents to a callback)
	// parks the guard here instead of releasing it immediately.
	ParkGuard(g heap.RawGuard)
}

// Handler is a synchronous native function (§4.3, §6.3).
type Handler func(stack Stack, argCount int) error

// AsyncHandler is an asynchronous native function: instead of completing
// inline it hands back a heap.Awaitable the interpreter boxes into a Future
// slot exactly as if a script-level async call had suspended (§3.3 "Future").
type AsyncHandler func(stack Stack, argCount int) (heap.Awaitable, error)

// Descriptor is one registered native function: exactly one of Sync/Async
// is set.
type Descriptor struct {
	Name  string
	Sync  Handler
	Async AsyncHandler
}

// TypeDescriptor is the native-side counterpart of bytecode.TypeInfo (§4.3
// "lookup_type"), letting `is`-checks resolve types defined in native code
// the same way they resolve types declared in a Unit.
type TypeDescriptor struct {
	Name      ident.Hash
	ValueType value.Kind
}

// Context is the immutable, read-only registry shared across VMs (§4.3,
// §5 "the Context is read-only").
type Context struct {
	handlers map[ident.Hash]Descriptor
	types    map[ident.Hash]TypeDescriptor
}

// NewContext creates an empty registry. Callers populate it with Register
// and RegisterType before handing it to any Vm; once a Vm is running the
// Context must not be mutated (§5).
func NewContext() *Context {
	return &Context{
		handlers: make(map[ident.Hash]Descriptor),
		types:    make(map[ident.Hash]TypeDescriptor),
	}
}

// Register adds a synchronous native handler under hash.
func (c *Context) Register(hash ident.Hash, name string, h Handler) {
	c.handlers[hash] = Descriptor{Name: name, Sync: h}
}

// RegisterAsync adds an asynchronous native handler under hash.
func (c *Context) RegisterAsync(hash ident.Hash, name string, h AsyncHandler) {
	c.handlers[hash] = Descriptor{Name: name, Async: h}
}

// RegisterType adds native type metadata under hash.
func (c *Context) RegisterType(hash ident.Hash, info TypeDescriptor) {
	c.types[hash] = info
}

// Lookup resolves hash to its registered Descriptor.
func (c *Context) Lookup(hash ident.Hash) (Descriptor, bool) {
	d, ok := c.handlers[hash]
	return d, ok
}

// LookupType resolves hash to its native TypeDescriptor (§4.3).
func (c *Context) LookupType(hash ident.Hash) (TypeDescriptor, error) {
	t, ok := c.types[hash]
	if !ok {
		return TypeDescriptor{}, vmerr.New(vmerr.MissingType, "no native type %s", hash)
	}
	return t, nil
}
