package vm

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/heap"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/natives"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// State is the per-Vm state machine described in §4.6 "State machine":
// Running -> {Completed, Suspended(Awaiting|Yielded|CallingSubVm), Failed}.
type State int

const (
	StateRunning State = iota
	StateSuspendedAwaiting
	StateSuspendedYielded
	StateSuspendedCallingSubVm
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateSuspendedAwaiting:
		return "SuspendedAwaiting"
	case StateSuspendedYielded:
		return "SuspendedYielded"
	case StateSuspendedCallingSubVm:
		return "SuspendedCallingSubVm"
	case StateCompleted:
		return "Completed"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// exitIP is the sentinel ReturnIP of a Vm's outermost frame: popping it means
// the Vm itself has nothing left to run, i.e. Exited (§4.6 Return: "if there
// was no outer frame the VM exits").
const exitIP = -1

// Vm is the interpreter described in §4.6: one operand Stack, one Unit's
// worth of instructions, a Context of native handlers, and the Heap backing
// every slot handle it touches. A Vm is single-threaded and owns its Heap
// exclusively (§5); a Generator's embedded sub-Vm and an async script call's
// child Vm share the parent's Heap and Context instead of copying them, so
// that Values (handles) crossing the await/yield boundary stay valid: this
// module treats "generator = owned Vm" as "owned Vm sharing the creating
// Vm's heap" rather than a fully isolated arena.
type Vm struct {
	ctx  *natives.Context
	unit *bytecode.Unit
	hp   *heap.Heap

	stack *Stack
	ip    int
	state State

	trace    *Trace
	executed int64
	quota    int

	// pendingYield holds the value a Yield/YieldUnit instruction handed off
	// until the owning Generator's driver (generatorDriver.Resume) collects
	// it - the Yielded StopReason itself carries no payload (§4.7), so the
	// value has to ride along on the Vm between surrendering and collection.
	pendingYield value.Value
}

// Option configures a Vm at construction time (§9 "Configuration").
type Option func(*Vm)

// WithTrace attaches an instruction-level trace recorder (ambient
// diagnostics - see SPEC_FULL.md "Logging/diagnostics").
func WithTrace(t *Trace) Option {
	return func(v *Vm) { v.trace = t }
}

// New creates a fresh Vm over unit, using ctx to resolve native calls
// (§6.2 "new_vm(context, unit) -> Vm").
func New(ctx *natives.Context, unit *bytecode.Unit, opts ...Option) *Vm {
	hp := heap.New()
	v := &Vm{
		ctx:   ctx,
		unit:  unit,
		hp:    hp,
		stack: newStack(hp, unit.StaticStrings),
		state: StateRunning,
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// newChild builds a Vm sharing this Vm's heap, context and unit - used for
// Generator and script-originated async calls (§3.3, §4.6 "Async").
func (vm *Vm) newChild() *Vm {
	return &Vm{
		ctx:   vm.ctx,
		unit:  vm.unit,
		hp:    vm.hp,
		stack: newStack(vm.hp, vm.unit.StaticStrings),
		state: StateRunning,
		trace: vm.trace,
	}
}

// Heap exposes the owning Heap, used by callers wiring native handlers and
// by tests asserting refcount soundness (§8 property 2).
func (vm *Vm) Heap() *heap.Heap { return vm.hp }

// State reports the current execution state (§4.6).
func (vm *Vm) State() State { return vm.state }

// Stats renders a human-readable instruction/frame-depth summary using
// go-humanize, consumed by cmd/embervm's `stats` subcommand.
func (vm *Vm) Stats() string { return renderStats(vm.executed, vm.stack.Depth()) }

// Call resolves hash in the Vm's Unit, validates arity, pushes args and an
// outermost frame, and positions ip at the function's entry (§6.2
// "vm.call(name_or_hash, args) -> Execution"). It does not start running;
// call Execution.Run/Step to drive it.
func (vm *Vm) Call(hash ident.Hash, args []value.Value) (*Execution, error) {
	if vm.state != StateRunning {
		return nil, vmerr.New(vmerr.ExpectedExecutionState, "vm not in a callable state (state=%v)", vm.state)
	}
	fn, err := vm.unit.Lookup(hash)
	if err != nil {
		return nil, err
	}
	if fn.Kind != bytecode.FnKindOffset {
		return nil, vmerr.New(vmerr.UnsupportedCallFn, "function %s is a constructor shorthand, not callable directly", hash)
	}
	if fn.ArgCount != len(args) {
		return nil, vmerr.New(vmerr.BadArgumentCount, "function %s expects %d args, got %d", hash, fn.ArgCount, len(args))
	}
	for _, a := range args {
		if err := vm.pushOwned(a); err != nil {
			return nil, err
		}
	}
	if err := vm.stack.PushFrame(exitIP, len(args)); err != nil {
		return nil, err
	}
	vm.ip = fn.Offset
	return &Execution{vm: vm}, nil
}

// RunFor drives the interpreter loop for at most limit instructions (a
// negative limit means unbounded), returning the StopReason that ended the
// run (§4.7, §6.2 ".run()").
func (vm *Vm) RunFor(limit int) (*StopReason, error) {
	if vm.state != StateRunning {
		return nil, vmerr.New(vmerr.ExpectedExecutionState, "vm not running (state=%v)", vm.state)
	}
	count := 0
	for {
		if limit >= 0 && count >= limit {
			return limited(), nil
		}
		inst, err := vm.unit.InstructionAt(vm.ip)
		if err != nil {
			vm.state = StateFailed
			return nil, vmerr.Annotate(err, vm.unit.Name, vm.ip, vm.stack.Depth())
		}
		if vm.trace != nil {
			vm.trace.observe(vm.ip, inst.Op)
		}
		vm.executed++

		reason, err := vm.dispatch(inst)
		if err != nil {
			vm.state = StateFailed
			return nil, vmerr.Annotate(err, vm.unit.Name, vm.ip, vm.stack.Depth())
		}
		if reason != nil {
			switch reason.Kind {
			case Exited:
				vm.state = StateCompleted
			case Yielded:
				vm.state = StateSuspendedYielded
			case Awaited:
				vm.state = StateSuspendedAwaiting
			case CallVm:
				vm.state = StateSuspendedCallingSubVm
			}
			return reason, nil
		}
		count++
	}
}

// ResumeWith pushes a value the driver obtained while resolving a suspension
// (an awaited future's result, or a value sent into a generator) and returns
// the Vm to Running (§4.6, §4.7, §6.2 "execution.resume(value)").
func (vm *Vm) ResumeWith(v value.Value) error {
	switch vm.state {
	case StateSuspendedAwaiting, StateSuspendedYielded, StateSuspendedCallingSubVm:
	default:
		return vmerr.New(vmerr.ExpectedExecutionState, "vm not suspended (state=%v)", vm.state)
	}
	if err := vm.pushOwned(v); err != nil {
		return err
	}
	vm.ip++
	vm.state = StateRunning
	return nil
}

// ResumeSelectWith pushes the resolved value of a completed Select branch
// followed by its branch index (§4.6 "Select": "on resume, pushes the ready
// value, then pushes the branch index").
func (vm *Vm) ResumeSelectWith(v value.Value, branch int) error {
	switch vm.state {
	case StateSuspendedAwaiting:
	default:
		return vmerr.New(vmerr.ExpectedExecutionState, "vm not suspended on a select (state=%v)", vm.state)
	}
	if err := vm.pushOwned(v); err != nil {
		return err
	}
	if err := vm.pushOwned(value.Integer(int64(branch))); err != nil {
		return err
	}
	vm.ip++
	vm.state = StateRunning
	return nil
}

// Clear resets the Vm's stack and heap and returns it to Running, releasing
// every live slot (§6.2 "vm.clear()"). After Clear, any raw pointer an
// embedder registered via unsafe External insertion into this Vm's heap is
// no longer referenced.
func (vm *Vm) Clear() {
	vm.stack.DisarmGuards()
	vm.hp = heap.New()
	vm.stack = newStack(vm.hp, vm.unit.StaticStrings)
	vm.ip = 0
	vm.state = StateRunning
	vm.executed = 0
}

// --- stack/refcount helpers shared by the exec_*.go files ----------------

// pushOwned pushes v onto the operand stack, taking ownership of the single
// reference it already carries - used for freshly allocated values and for
// values being moved (not duplicated) from elsewhere (§3.4 invariant 2).
func (vm *Vm) pushOwned(v value.Value) error {
	return vm.stack.Push(v)
}

// pushCopy duplicates an existing value onto the stack, contributing one
// additional refcount (Dup/Copy opcodes, receiver-keep-alive, argument
// pass-by-copy).
func (vm *Vm) pushCopy(v value.Value) error {
	if err := vm.stack.Dup(v); err != nil {
		return err
	}
	return vm.stack.Push(v)
}

// popOwned pops the top value without releasing its reference - the caller
// takes ownership and must either re-push it, fold it into a new container,
// or explicitly drop it.
func (vm *Vm) popOwned() (value.Value, error) {
	return vm.stack.Pop()
}

// popDiscard pops the top value and releases its reference immediately,
// used whenever a value is simply being thrown away.
func (vm *Vm) popDiscard() (value.Value, error) {
	v, err := vm.stack.Pop()
	if err != nil {
		return value.Value{}, err
	}
	if err := vm.stack.Drop(v); err != nil {
		return value.Value{}, err
	}
	return v, nil
}

// discard releases v's reference without touching the stack - used after
// popOwned when the caller decides, on a later branch, that v is unused.
func (vm *Vm) discard(v value.Value) error {
	return vm.stack.Drop(v)
}

// popN pops n values without releasing their references (they are about to
// be folded into a new container, which inherits the references).
func (vm *Vm) popN(n int) ([]value.Value, error) {
	return vm.stack.PopN(n)
}
