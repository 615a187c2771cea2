package lower

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/rt"
)

// Compiler is the closure backend. It lowers a tree into a graph of Go
// closures that share nothing mutable except the per-call frame.
//
// Thread-safety: a Compiler may lower from multiple goroutines; each Lower
// call works on private state.
type Compiler struct {
	registry  *ir.Registry
	methods   *rt.Methods
	supported map[ir.Kind]bool
	logger    *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger for lowering diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithSupported restricts the variants the compiler accepts. Lowering any
// other variant fails with UNSUPPORTED_OPERATION. Useful for modelling
// partial backends.
func WithSupported(kinds ...ir.Kind) Option {
	return func(c *Compiler) {
		c.supported = make(map[ir.Kind]bool, len(kinds))
		for _, k := range kinds {
			c.supported[k] = true
		}
	}
}

// NewCompiler creates a closure backend resolving types in reg and methods
// in table.
func NewCompiler(reg *ir.Registry, table *rt.Methods, opts ...Option) *Compiler {
	c := &Compiler{
		registry: reg,
		methods:  table,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the backend identifier.
func (c *Compiler) Name() string {
	return "closure"
}

// Registry returns the type registry the compiler resolves against.
func (c *Compiler) Registry() *ir.Registry {
	return c.registry
}

// Lower validates node and produces an evaluator for it.
func (c *Compiler) Lower(node ir.Node, params ...Param) (*Evaluator, error) {
	s := &session{
		c:     c,
		scope: NewScope(),
		sites: make(map[ir.MethodKey]rt.Callable),
	}
	for _, p := range params {
		s.scope.Declare(p.Name, p.Type)
	}

	root, err := s.lower(node)
	if err != nil {
		c.logger.Debug("lowering failed",
			"backend", c.Name(),
			"code", CodeOf(err),
			"error", err)
		return nil, err
	}

	hash, err := ir.TreeHash(node)
	if err != nil {
		hash = ""
	}

	ev := &Evaluator{
		root:   root,
		params: append([]Param(nil), params...),
		slots:  s.scope.Slots(),
		hash:   hash,
	}
	c.logger.Debug("expression lowered",
		"backend", c.Name(),
		"nodes", ir.Count(node),
		"slots", ev.slots,
		"call_sites", len(s.sites))
	return ev, nil
}

// Check validates node without keeping the evaluator.
func (c *Compiler) Check(node ir.Node, params ...Param) error {
	_, err := c.Lower(node, params...)
	return err
}

// session holds the state of one Lower call.
type session struct {
	c     *Compiler
	scope *Scope
	path  []string
	sites map[ir.MethodKey]rt.Callable
}

// where renders the current position for diagnostics.
func (s *session) where() string {
	return strings.Join(s.path, "/")
}

func (s *session) enter(label string) {
	s.path = append(s.path, label)
}

func (s *session) leave() {
	s.path = s.path[:len(s.path)-1]
}

// child lowers the i-th operand of the current node.
func (s *session) child(label string, i int, n ir.Node) (evalFn, error) {
	if i >= 0 {
		label = label + "[" + strconv.Itoa(i) + "]"
	}
	s.enter(label)
	defer s.leave()
	return s.lower(n)
}

// branch lowers an operand that may not run. It gets a frame of its own, so
// a declaration made directly in it is not visible after it.
func (s *session) branch(label string, n ir.Node) (evalFn, error) {
	s.scope.Push()
	defer s.scope.Pop()
	return s.child(label, -1, n)
}

func (s *session) lower(n ir.Node) (evalFn, error) {
	kind := ir.KindOf(n)
	if n == nil {
		return nil, &Error{
			Code:    ErrCodeUnsupportedOperation,
			Message: "nil node",
			Kind:    ir.KindInvalid,
			Path:    s.where(),
		}
	}
	if s.c.supported != nil && !s.c.supported[kind] {
		return nil, NewUnsupported(kind, s.pathWith(kind))
	}

	switch v := n.(type) {
	case ir.IntegerLiteral:
		val := v.Value
		return func(*frame) (rt.Value, error) { return val, nil }, nil
	case ir.FloatLiteral:
		val := v.Value
		return func(*frame) (rt.Value, error) { return val, nil }, nil
	case ir.StringLiteral:
		val := v.Value
		return func(*frame) (rt.Value, error) { return val, nil }, nil
	case ir.Constant:
		val := v.Value
		return func(*frame) (rt.Value, error) { return val, nil }, nil
	case ir.NullLiteral:
		return func(*frame) (rt.Value, error) { return nil, nil }, nil
	case ir.TrueLiteral:
		return func(*frame) (rt.Value, error) { return true, nil }, nil
	case ir.FalseLiteral:
		return func(*frame) (rt.Value, error) { return false, nil }, nil
	case ir.ArrayLiteral:
		return s.lowerArray(v)
	case ir.Load:
		return s.lowerLoad(v)
	case ir.InvokeStatic:
		return s.lowerInvokeStatic(v)
	case ir.Invoke:
		return s.lowerInvoke(v)
	case ir.Ternary:
		return s.lowerTernary(v)
	case ir.Eq:
		return s.lowerEquality(kind, v.Lhs, v.Rhs, false)
	case ir.NotEq:
		return s.lowerEquality(kind, v.Lhs, v.Rhs, true)
	case ir.Block:
		return s.lowerBlock(v)
	case ir.Condition:
		return s.lowerCondition(v)
	case ir.DeclareLocalVariable:
		return s.lowerDeclare(v)
	case ir.AssignToLocalVariable:
		return s.lowerAssign(v)
	case ir.TryCatch:
		return s.lowerTryCatch(v)
	case ir.Throw:
		return s.lowerThrow(v)
	case ir.BooleanAnd:
		return s.lowerLogical(kind, v.Lhs, v.Rhs, false)
	case ir.BooleanOr:
		return s.lowerLogical(kind, v.Lhs, v.Rhs, true)
	case ir.Not:
		return s.lowerNot(v)
	case ir.IsNull:
		return s.lowerIsNull(v)
	default:
		return nil, NewUnsupported(kind, s.where())
	}
}

func (s *session) pathWith(kind ir.Kind) string {
	if len(s.path) == 0 {
		return kind.String()
	}
	return s.where() + "/" + kind.String()
}

func (s *session) lowerArray(v ir.ArrayLiteral) (evalFn, error) {
	elems, err := s.lowerList("ArrayLiteral", v.Values)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		out := make([]rt.Value, len(elems))
		for i, e := range elems {
			val, err := e(f)
			if err != nil {
				return nil, err
			}
			out[i] = val
		}
		return out, nil
	}, nil
}

func (s *session) lowerList(label string, nodes []ir.Node) ([]evalFn, error) {
	out := make([]evalFn, len(nodes))
	for i, n := range nodes {
		fn, err := s.child(label, i, n)
		if err != nil {
			return nil, err
		}
		out[i] = fn
	}
	return out, nil
}

func (s *session) lowerLoad(v ir.Load) (evalFn, error) {
	b, ok := s.scope.Resolve(v.Name)
	if !ok {
		return nil, NewUnboundVariable(ir.KindLoad, v.Name, s.pathWith(ir.KindLoad))
	}
	slot := b.Slot
	return func(f *frame) (rt.Value, error) { return f.slots[slot], nil }, nil
}

// resolve checks a descriptor against the call shape and the method table.
// Resolutions are memoized per lowering so repeated call sites share one
// table lookup.
func (s *session) resolve(kind ir.Kind, m ir.Method, argc int, static bool) (rt.Callable, error) {
	path := s.pathWith(kind)
	if m.Arity() != argc {
		return rt.Callable{}, NewSignatureMismatch(kind, m, path,
			fmt.Sprintf("descriptor declares %d parameters, call passes %d arguments", m.Arity(), argc))
	}
	key := m.Key()
	callee, ok := s.sites[key]
	if !ok {
		callee, ok = s.c.methods.Resolve(m)
		if !ok {
			return rt.Callable{}, NewSignatureMismatch(kind, m, path,
				fmt.Sprintf("no callable matches %s", m.Describe(s.c.registry)))
		}
		s.sites[key] = callee
	}
	if callee.Static != static {
		want := "instance"
		if static {
			want = "static"
		}
		return rt.Callable{}, NewSignatureMismatch(kind, m, path,
			fmt.Sprintf("%s is not an %s method", m.Describe(s.c.registry), want))
	}
	return callee, nil
}

func (s *session) lowerInvokeStatic(v ir.InvokeStatic) (evalFn, error) {
	callee, err := s.resolve(ir.KindInvokeStatic, v.Method, len(v.Args), true)
	if err != nil {
		return nil, err
	}
	args, err := s.lowerList("InvokeStatic", v.Args)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		vals, err := evalArgs(f, args)
		if err != nil {
			return nil, err
		}
		return callee.Call(nil, vals)
	}, nil
}

func (s *session) lowerInvoke(v ir.Invoke) (evalFn, error) {
	callee, err := s.resolve(ir.KindInvoke, v.Method, len(v.Args), false)
	if err != nil {
		return nil, err
	}
	target, err := s.child("Invoke.target", -1, v.Target)
	if err != nil {
		return nil, err
	}
	args, err := s.lowerList("Invoke", v.Args)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		recv, err := target(f)
		if err != nil {
			return nil, err
		}
		vals, err := evalArgs(f, args)
		if err != nil {
			return nil, err
		}
		return callee.Call(recv, vals)
	}, nil
}

func evalArgs(f *frame, args []evalFn) ([]rt.Value, error) {
	vals := make([]rt.Value, len(args))
	for i, a := range args {
		val, err := a(f)
		if err != nil {
			return nil, err
		}
		vals[i] = val
	}
	return vals, nil
}

func (s *session) lowerTernary(v ir.Ternary) (evalFn, error) {
	cond, err := s.child("Ternary.condition", -1, v.Condition)
	if err != nil {
		return nil, err
	}
	onTrue, err := s.branch("Ternary.onTrue", v.OnTrue)
	if err != nil {
		return nil, err
	}
	onFalse, err := s.branch("Ternary.onFalse", v.OnFalse)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		ok, err := test(f, cond)
		if err != nil {
			return nil, err
		}
		if ok {
			return onTrue(f)
		}
		return onFalse(f)
	}, nil
}

// test evaluates a condition operand. Non-boolean values raise a TypeError.
func test(f *frame, cond evalFn) (bool, error) {
	val, err := cond(f)
	if err != nil {
		return false, err
	}
	ok, err := rt.Truthy(val)
	if err != nil {
		return false, &rt.Exception{Type: ir.TypeError, Message: fmt.Sprintf("%T used as a condition", val), Cause: err}
	}
	return ok, nil
}

func (s *session) lowerEquality(kind ir.Kind, lhs, rhs ir.Node, negate bool) (evalFn, error) {
	label := kind.String()
	l, err := s.child(label+".lhs", -1, lhs)
	if err != nil {
		return nil, err
	}
	r, err := s.child(label+".rhs", -1, rhs)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		a, err := l(f)
		if err != nil {
			return nil, err
		}
		b, err := r(f)
		if err != nil {
			return nil, err
		}
		return rt.Equal(a, b) != negate, nil
	}, nil
}

func (s *session) lowerBlock(v ir.Block) (evalFn, error) {
	s.scope.Push()
	defer s.scope.Pop()
	ops, err := s.lowerList("Block", v.Ops)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		var last rt.Value
		for _, op := range ops {
			val, err := op(f)
			if err != nil {
				return nil, err
			}
			last = val
		}
		return last, nil
	}, nil
}

func (s *session) lowerCondition(v ir.Condition) (evalFn, error) {
	cond, err := s.child("Condition.test", -1, v.Test)
	if err != nil {
		return nil, err
	}
	onTrue, err := s.branch("Condition.onTrue", v.OnTrue)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		ok, err := test(f, cond)
		if err != nil || !ok {
			return nil, err
		}
		if _, err := onTrue(f); err != nil {
			return nil, err
		}
		return nil, nil
	}, nil
}

func (s *session) lowerDeclare(v ir.DeclareLocalVariable) (evalFn, error) {
	b := s.scope.Declare(v.Name, v.Type)
	slot := b.Slot
	zero := rt.Default(v.Type)
	return func(f *frame) (rt.Value, error) {
		f.slots[slot] = zero
		return nil, nil
	}, nil
}

func (s *session) lowerAssign(v ir.AssignToLocalVariable) (evalFn, error) {
	b, ok := s.scope.Resolve(v.Name)
	if !ok {
		return nil, NewUnboundVariable(ir.KindAssignToLocalVariable, v.Name, s.pathWith(ir.KindAssignToLocalVariable))
	}
	value, err := s.child("AssignToLocalVariable.value", -1, v.Value)
	if err != nil {
		return nil, err
	}
	slot := b.Slot
	return func(f *frame) (rt.Value, error) {
		val, err := value(f)
		if err != nil {
			return nil, err
		}
		f.slots[slot] = val
		return nil, nil
	}, nil
}

func (s *session) lowerTryCatch(v ir.TryCatch) (evalFn, error) {
	ops, err := s.branch("TryCatch.ops", v.Ops)
	if err != nil {
		return nil, err
	}

	s.scope.Push()
	b := s.scope.Declare(v.Name, v.ExceptionType)
	onError, err := s.child("TryCatch.onError", -1, v.OnError)
	s.scope.Pop()
	if err != nil {
		return nil, err
	}

	reg := s.c.registry
	catchType := v.ExceptionType
	slot := b.Slot
	return func(f *frame) (rt.Value, error) {
		val, err := ops(f)
		if err == nil {
			return val, nil
		}
		if !rt.Matches(reg, err, catchType) {
			return nil, err
		}
		f.slots[slot] = rt.AsException(err)
		return onError(f)
	}, nil
}

func (s *session) lowerThrow(v ir.Throw) (evalFn, error) {
	value, err := s.child("Throw.error", -1, v.Error)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		val, err := value(f)
		if err != nil {
			return nil, err
		}
		return nil, rt.Throwable(val)
	}, nil
}

// lowerLogical handles BooleanAnd (or=false) and BooleanOr (or=true).
// The right operand runs only when the left does not decide the result.
func (s *session) lowerLogical(kind ir.Kind, lhs, rhs ir.Node, or bool) (evalFn, error) {
	label := kind.String()
	l, err := s.child(label+".lhs", -1, lhs)
	if err != nil {
		return nil, err
	}
	r, err := s.branch(label+".rhs", rhs)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		a, err := test(f, l)
		if err != nil {
			return nil, err
		}
		if a == or {
			return a, nil
		}
		b, err := test(f, r)
		if err != nil {
			return nil, err
		}
		return b, nil
	}, nil
}

func (s *session) lowerNot(v ir.Not) (evalFn, error) {
	operand, err := s.child("Not.operand", -1, v.Operand)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		ok, err := test(f, operand)
		if err != nil {
			return nil, err
		}
		return !ok, nil
	}, nil
}

func (s *session) lowerIsNull(v ir.IsNull) (evalFn, error) {
	operand, err := s.child("IsNull.operand", -1, v.Operand)
	if err != nil {
		return nil, err
	}
	return func(f *frame) (rt.Value, error) {
		val, err := operand(f)
		if err != nil {
			return nil, err
		}
		return val == nil, nil
	}, nil
}
