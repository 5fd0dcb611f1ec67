package vm

import (
	"github.com/emberscript/embervm/bytecode"
	"github.com/emberscript/embervm/vmerr"
)

// execPanic implements Panic(reason) (§4.6 "Traps"): raises a failure
// carrying a stable, programmable reason code rather than a free-text
// message, so an embedder can match on it (e.g. "UnmatchedPattern") without
// parsing prose.
func (vm *Vm) execPanic(inst bytecode.Inst) (*StopReason, error) {
	return nil, vmerr.Panic(inst.Reason)
}
