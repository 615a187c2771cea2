package testutil

import (
	"sync"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/rt"
)

// Probe records calls made by an evaluated tree so tests can observe
// evaluation order and short-circuiting.
//
// Each call to Probe.tick(Int) appends its argument to the log and returns it
// unchanged. Probe.mark(Any) does the same for arbitrary values.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Probe struct {
	Owner ir.TypeID

	// Tick is Probe.tick(Int) Int.
	Tick ir.Static1

	// Mark is Probe.mark(Any) Any.
	Mark ir.Static1

	mu  sync.Mutex
	log []rt.Value
}

// NewProbe registers the Probe type in reg and its methods in table.
func NewProbe(reg *ir.Registry, table *rt.Methods) (*Probe, error) {
	owner, ok := reg.Lookup("Probe")
	if !ok {
		var err error
		owner, err = reg.Register("Probe", ir.TypeObject)
		if err != nil {
			return nil, err
		}
	}
	p := &Probe{
		Owner: owner,
		Tick:  ir.StaticMethod1(owner, ir.TypeInt, "tick", ir.TypeInt),
		Mark:  ir.StaticMethod1(owner, ir.TypeAny, "mark", ir.TypeAny),
	}
	if err := table.RegisterStatic(p.Tick.Method, p.record); err != nil {
		return nil, err
	}
	if err := table.RegisterStatic(p.Mark.Method, p.record); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Probe) record(args []rt.Value) (rt.Value, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = append(p.log, args[0])
	return args[0], nil
}

// Calls returns a copy of the recorded arguments in call order.
func (p *Probe) Calls() []rt.Value {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]rt.Value, len(p.log))
	copy(out, p.log)
	return out
}

// Count returns the number of recorded calls.
func (p *Probe) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.log)
}

// Reset clears the log. Used for test reuse.
func (p *Probe) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log = nil
}

// T wraps n in a call to Probe.tick so its evaluation is logged.
func (p *Probe) T(n ir.Node) ir.Node {
	return ir.InvokeStatic1(p.Tick, n)
}

// I logs the integer v when evaluated and yields it.
func (p *Probe) I(v int64) ir.Node {
	return ir.InvokeStatic1(p.Tick, ir.Literal(v))
}
