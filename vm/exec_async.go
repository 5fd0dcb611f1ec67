package vm

import (
	"errors"

	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/ident"
	"github.com/emberscript/embervm/value"
	"github.com/emberscript/embervm/vmerr"
)

// execAsync handles the Async group of §4.6. Await/Select/Yield all leave
// vm.ip pointing AT the suspending instruction when they surrender a
// StopReason - ResumeWith/ResumeSelectWith (vm.go) push the driver's answer
// and advance ip themselves, so the instruction effectively "returns" its
// result only once resumed, matching a yield/await expression's evaluation.
func (vm *Vm) execAsync(inst bytecode.Inst) (*StopReason, error) {
	switch inst.Op {
	case bytecode.OpAwait:
		return vm.execAwait()
	case bytecode.OpSelect:
		return vm.execSelect(int(inst.A))
	case bytecode.OpYield:
		return vm.execYield(true)
	case bytecode.OpYieldUnit:
		return vm.execYield(false)
	}
	vm.ip++
	return nil, nil
}

// execAwait implements Await (§4.6): a non-Future operand gets one chance at
// the INTO_FUTURE protocol before failing.
func (vm *Vm) execAwait() (*StopReason, error) {
	v, err := vm.popOwned()
	if err != nil {
		return nil, err
	}
	if v.Kind != value.KFuture {
		v, err = vm.intoFuture(v)
		if err != nil {
			return nil, err
		}
	}
	return awaitedFuture(v), nil
}

// intoFuture composes instance_function(typeOf(v), INTO_FUTURE) and invokes
// it as a one-argument instance call, expecting a Future back.
func (vm *Vm) intoFuture(v value.Value) (value.Value, error) {
	typ, err := vm.typeOf(v)
	if err != nil {
		return value.Value{}, err
	}
	hash := ident.InstanceFunction(typ, ident.NameINTOFUTURE)
	if err := vm.pushOwned(v); err != nil {
		return value.Value{}, err
	}
	res, err := vm.runNestedCall(hash, 1)
	if err != nil {
		if errors.Is(err, vmerr.MissingFunction) {
			return value.Value{}, vmerr.New(vmerr.UnsupportedUnaryOperation, "%s is not awaitable and has no INTO_FUTURE protocol", typ)
		}
		return value.Value{}, err
	}
	if res.Kind != value.KFuture {
		return value.Value{}, vmerr.New(vmerr.UnsupportedUnaryOperation, "INTO_FUTURE for %s did not produce a Future", typ)
	}
	return res, nil
}

// execSelect implements Select(n) (§4.6): pop n futures, silently discarding
// any already-completed ones (an earlier Select's unpicked branch, or a
// direct Await), and surrender only if at least one live future remains.
//
// The branch index a caller resumes with must be the operand's original
// position (0..n as pushed), not its position among the surviving futures -
// matching rune's own op_select (crates/runestick/src/vm.rs), which keeps
// the pre-filter `branch` attached to each future it carries into its
// Select rather than renumbering the filtered set. SelectFutures therefore
// preserves the gaps left by already-completed operands.
func (vm *Vm) execSelect(n int) (*StopReason, error) {
	futures, err := vm.popN(n)
	if err != nil {
		return nil, err
	}
	live := make([]value.Value, n)
	anyLive := false
	for i, f := range futures {
		if f.Kind != value.KFuture {
			return nil, vmerr.New(vmerr.BadArgument, "Select operand is not a Future (%s)", f.Kind)
		}
		completed, err := vm.hp.FutureCompleted(f.H)
		if err != nil {
			return nil, err
		}
		if completed {
			if err := vm.discard(f); err != nil {
				return nil, err
			}
			continue
		}
		live[i] = f
		anyLive = true
	}
	if !anyLive {
		if err := vm.pushOwned(value.Unit()); err != nil {
			return nil, err
		}
		vm.ip++
		return nil, nil
	}
	return awaitedSelect(live), nil
}

// execYield implements Yield/YieldUnit (§4.6): the yielded value is stashed
// in pendingYield for the owning Generator's driver (generatorDriver.Resume)
// to collect; the Yielded StopReason itself carries no payload (§4.7).
func (vm *Vm) execYield(hasValue bool) (*StopReason, error) {
	if !hasValue {
		vm.pendingYield = value.Unit()
		return yielded(), nil
	}
	v, err := vm.popOwned()
	if err != nil {
		return nil, err
	}
	vm.pendingYield = v
	return yielded(), nil
}
