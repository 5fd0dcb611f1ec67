package vm

import (
	"fmt"
	"strings"

	"github.com/emberscript/embervm/bytecode"
)

// Trace is the VM's optional instruction-level diagnostics recorder,
// mirroring the teacher's debugLevel-gated profile struct rather than an
// external logging library (SPEC_FULL.md "Logging/diagnostics"): a plain
// struct field the Vm checks for nil before touching, not a package-level
// logger singleton.
type Trace struct {
	log      []traceEntry
	hotSpots map[bytecode.Opcode]int64
	limit    int
}

type traceEntry struct {
	IP int
	Op bytecode.Opcode
}

// NewTrace builds a Trace recorder. limit caps the retained log length (0
// means unbounded); hot-spot counts are always kept regardless of limit.
func NewTrace(limit int) *Trace {
	return &Trace{hotSpots: make(map[bytecode.Opcode]int64), limit: limit}
}

func (t *Trace) observe(ip int, op bytecode.Opcode) {
	t.hotSpots[op]++
	if t.limit > 0 && len(t.log) >= t.limit {
		return
	}
	t.log = append(t.log, traceEntry{IP: ip, Op: op})
}

// Log returns the recorded (ip, opcode) pairs in execution order.
func (t *Trace) Log() []string {
	out := make([]string, len(t.log))
	for i, e := range t.log {
		out[i] = fmt.Sprintf("%04d  %s", e.IP, e.Op)
	}
	return out
}

// HotSpots renders the opcode execution-frequency table, highest first.
func (t *Trace) HotSpots() string {
	type row struct {
		Op    bytecode.Opcode
		Count int64
	}
	rows := make([]row, 0, len(t.hotSpots))
	for op, count := range t.hotSpots {
		rows = append(rows, row{op, count})
	}
	for i := 1; i < len(rows); i++ {
		for j := i; j > 0 && rows[j].Count > rows[j-1].Count; j-- {
			rows[j], rows[j-1] = rows[j-1], rows[j]
		}
	}
	var b strings.Builder
	for _, r := range rows {
		fmt.Fprintf(&b, "%-20s %d\n", r.Op, r.Count)
	}
	return b.String()
}
