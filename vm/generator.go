package vm

import "github.com/emberscript/embervm/value"

// generatorDriver wraps a child Vm as the heap.GeneratorDriver an AllocateGenerator
// slot holds (§3.3 "Generator", §4.6 "CallKind Generator"). It drives the
// child forward on each Resume, collecting whatever the child's Yield/
// YieldUnit instruction stashed in pendingYield, or the final Return value
// once the child exits.
type generatorDriver struct {
	vm      *Vm
	started bool
}

// Resume implements heap.GeneratorDriver. The first call ignores sent (the
// child hasn't executed a Yield to receive it yet); subsequent calls push it
// as the result of the suspended Yield expression.
func (g *generatorDriver) Resume(sent value.Value) (value.Value, bool, value.Value, error) {
	if g.started {
		if err := g.vm.ResumeWith(sent); err != nil {
			return value.Value{}, false, value.Value{}, err
		}
	} else {
		g.started = true
		if err := g.vm.discard(sent); err != nil {
			return value.Value{}, false, value.Value{}, err
		}
	}
	for {
		reason, err := g.vm.RunFor(-1)
		if err != nil {
			return value.Value{}, false, value.Value{}, err
		}
		switch reason.Kind {
		case Exited:
			return value.Value{}, true, reason.Value, nil
		case Yielded:
			yv := g.vm.pendingYield
			g.vm.pendingYield = value.Value{}
			return yv, false, value.Value{}, nil
		case Awaited:
			resolved, branch, err := g.vm.resolveAwaited(reason)
			if err != nil {
				return value.Value{}, false, value.Value{}, err
			}
			if branch < 0 {
				if err := g.vm.ResumeWith(resolved); err != nil {
					return value.Value{}, false, value.Value{}, err
				}
			} else if err := g.vm.ResumeSelectWith(resolved, branch); err != nil {
				return value.Value{}, false, value.Value{}, err
			}
		case Limited:
			// unreachable: RunFor(-1) never returns Limited.
		}
	}
}
