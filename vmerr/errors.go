// Package vmerr defines the error taxonomy described in §7 of the spec:
// every failure the heap, stack, interpreter and dispatch layers can
// produce is one of a fixed set of Kinds, wrapped in an Error that
// accumulates a stack trace of (unit, ip, frame) locations as it unwinds
// across call frames (§4.8, §7 "Propagation policy").
//
// This mirrors the teacher's *VMError: a base error value plus contextual
// fields, with Unwrap/Is support so callers can still use errors.Is against
// a Kind sentinel.
package vmerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// Kind is a stable, comparable error classification. Kinds are sentinel
// errors (not just an enum) so callers can errors.Is(err, vmerr.SlotMissing)
// the same way the teacher's code does with its Err* sentinels.
type Kind = error

var (
	// Access / stack
	SlotMissing               Kind = errors.New("slot missing")
	SlotInaccessibleShared    Kind = errors.New("slot inaccessible: shared borrow conflict")
	SlotInaccessibleExclusive Kind = errors.New("slot inaccessible: exclusive borrow conflict")
	StackEmpty                Kind = errors.New("stack empty")
	PopOutOfBounds            Kind = errors.New("pop out of bounds")
	StackOutOfBounds          Kind = errors.New("stack out of bounds")
	CorruptedStackFrame       Kind = errors.New("corrupted stack frame")

	// Arithmetic
	Overflow      Kind = errors.New("integer overflow")
	Underflow     Kind = errors.New("integer underflow")
	DivideByZero  Kind = errors.New("divide by zero")
	FormatError   Kind = errors.New("format error")
	IpOutOfBounds Kind = errors.New("instruction pointer out of bounds")

	// Dispatch
	MissingFunction         Kind = errors.New("missing function")
	MissingInstanceFunction Kind = errors.New("missing instance function")
	MissingModule           Kind = errors.New("missing module")
	MissingType             Kind = errors.New("missing type")
	MissingProtocol         Kind = errors.New("missing protocol")
	MissingStaticString     Kind = errors.New("missing static string")
	MissingStaticObjectKeys Kind = errors.New("missing static object keys")
	MissingRtti             Kind = errors.New("missing rtti")
	MissingVariantName      Kind = errors.New("missing variant: unknown name")
	MissingVariantRtti      Kind = errors.New("missing variant: unknown rtti")

	// Operation typing
	UnsupportedBinaryOperation     Kind = errors.New("unsupported binary operation")
	UnsupportedUnaryOperation      Kind = errors.New("unsupported unary operation")
	UnsupportedIndexGet            Kind = errors.New("unsupported index get")
	UnsupportedIndexSet            Kind = errors.New("unsupported index set")
	UnsupportedTupleIndexGet       Kind = errors.New("unsupported tuple index get")
	UnsupportedTupleIndexSet       Kind = errors.New("unsupported tuple index set")
	UnsupportedObjectSlotIndexGet  Kind = errors.New("unsupported object slot index get")
	UnsupportedIs                  Kind = errors.New("unsupported is check")
	UnsupportedCallFn              Kind = errors.New("unsupported call")
	UnsupportedUnwrapNone          Kind = errors.New("unsupported unwrap: none")
	UnsupportedUnwrapErr           Kind = errors.New("unsupported unwrap: err")
	UnsupportedIterNextOperand     Kind = errors.New("unsupported iterator next operand")

	// Arg/return conversion
	BadArgument                  Kind = errors.New("bad argument")
	BadArgumentAt                Kind = errors.New("bad argument at index")
	BadArgumentCount             Kind = errors.New("bad argument count")
	ValueToIntegerCoercionError  Kind = errors.New("value to integer coercion error")
	IntegerToValueCoercionError  Kind = errors.New("integer to value coercion error")
	ExpectedTuple                Kind = errors.New("expected tuple")
	ExpectedAny                  Kind = errors.New("expected any")
	ExpectedVariant              Kind = errors.New("expected variant")

	// Collections
	MissingIndex       Kind = errors.New("missing index")
	MissingField       Kind = errors.New("missing field")
	MissingStructField Kind = errors.New("missing struct field")
	MissingTupleIndex  Kind = errors.New("missing tuple index")
	OutOfRange         Kind = errors.New("out of range")
	IndexOutOfBounds   Kind = errors.New("index out of bounds")
	UnsupportedRange   Kind = errors.New("unsupported range")

	// State machine
	Halted                   Kind = errors.New("halted")
	ExpectedExecutionState   Kind = errors.New("unexpected execution state")
	FutureCompleted          Kind = errors.New("future already completed")
	GeneratorComplete        Kind = errors.New("generator already complete")
	IterationError           Kind = errors.New("iteration error")
	YieldOutsideGenerator    Kind = errors.New("yield outside a generator")

	// Panics
	NoRunningVm Kind = errors.New("no running vm")
)

// Location identifies one frame boundary crossed while an error unwinds, as
// required by §7 "Propagation policy": each frame boundary annotates the
// error with {unit, ip, frames}.
type Location struct {
	Unit  string
	IP    int
	Depth int
}

// String renders a trace line, formatting ip/depth with humanize.Comma so
// deeply recursive scripts don't produce unreadable walls of digits (see
// SPEC_FULL.md "Formatting").
func (l Location) String() string {
	return fmt.Sprintf("%s:%s (depth %s)", l.Unit, humanize.Comma(int64(l.IP)), humanize.Comma(int64(l.Depth)))
}

// Error is the structured, user-visible failure the embedding application
// receives: a Kind plus contextual message plus an accumulated trace.
type Error struct {
	Kind    Kind
	Message string
	Trace   []Location

	// Reason is set only for Panic-kind errors (§4.6 "Panic(reason)"),
	// carrying the stable programmable reason code.
	Reason string
}

// New builds a fresh Error with no trace yet (raised at the innermost
// frame, annotated as it unwinds via Annotate).
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Panic builds the VM's programmable-panic error (§4.6 Traps, §7 Panics).
func Panic(reason string) *Error {
	return &Error{Kind: errors.New("panicked"), Reason: reason, Message: "panicked: " + reason}
}

// Annotate records a frame boundary crossed while unwinding, per the
// propagation policy in §7. It mutates and returns the receiver so call
// sites can write `return nil, vmerr.Annotate(err, unit, ip, depth)`.
func Annotate(err error, unit string, ip int, depth int) *Error {
	ve := AsError(err)
	if ve == nil {
		ve = &Error{Kind: err, Message: err.Error()}
	}
	ve.Trace = append(ve.Trace, Location{Unit: unit, IP: ip, Depth: depth})
	return ve
}

// AsError extracts an *Error from an error chain, or nil.
func AsError(err error) *Error {
	var ve *Error
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Reason != "" {
		b.WriteString(e.Message)
	} else if e.Message != "" {
		fmt.Fprintf(&b, "%s: %s", e.Kind.Error(), e.Message)
	} else {
		b.WriteString(e.Kind.Error())
	}
	for _, loc := range e.Trace {
		fmt.Fprintf(&b, "\n  at %s", loc)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Kind }

func (e *Error) Is(target error) bool { return errors.Is(e.Kind, target) }
