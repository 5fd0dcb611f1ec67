package vm

import "github.com/emberscript/embervm/value"

// Execution is the handle Vm.Call hands back to an embedder (§6.2
// "vm.call(name_or_hash, args) -> Execution"). Unlike the generator/
// async-call plumbing in future.go and generator.go, which resolve
// suspensions synchronously under the hood, an Execution is the outermost
// driver: its Awaited stops are surfaced to the embedder as-is, since only
// the embedder knows how its own futures get resolved (§4.7).
type Execution struct {
	vm *Vm
}

// Vm exposes the underlying Vm, e.g. for the embedder to inspect Heap()
// stats or State() after a stop.
func (e *Execution) Vm() *Vm { return e.vm }

// Run drives the Execution to completion or the next suspension point
// (§6.2 ".run()").
func (e *Execution) Run() (*StopReason, error) {
	return e.vm.RunFor(-1)
}

// Step drives at most limit instructions (§6.2 ".step(limit)"), useful for
// an embedder enforcing its own cooperative scheduling budget.
func (e *Execution) Step(limit int) (*StopReason, error) {
	return e.vm.RunFor(limit)
}

// Resume supplies the value an awaited single Future resolved to, or the
// value sent into a suspended Yield, and continues running (§6.2
// "execution.resume(value)").
func (e *Execution) Resume(v value.Value) (*StopReason, error) {
	if err := e.vm.ResumeWith(v); err != nil {
		return nil, err
	}
	return e.Run()
}

// ResumeSelect supplies the resolved value and winning branch index of a
// Select suspension (§4.6 "Select").
func (e *Execution) ResumeSelect(v value.Value, branch int) (*StopReason, error) {
	if err := e.vm.ResumeSelectWith(v, branch); err != nil {
		return nil, err
	}
	return e.Run()
}
