package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/exprgen/internal/compiler"
	"github.com/roach88/exprgen/internal/interp"
	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
	"github.com/roach88/exprgen/internal/rt"
	"github.com/roach88/exprgen/internal/testutil"
)

// Harness holds the runtime a scenario executes against.
// Every scenario gets a fresh registry and method table for isolation.
type Harness struct {
	registry *ir.Registry
	methods  *rt.Methods
	probe    *testutil.Probe
	backend  lower.Backend
	interp   *interp.Interpreter
	logger   *slog.Logger
}

// lowering is the outcome of lowering one expression.
type lowering struct {
	eval *lower.Evaluator
	err  error
}

// Run executes a scenario with logging suppressed.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunContext executes a scenario and returns the result.
//
// Execution flow:
// 1. Build a fresh registry with the builtin library and the probe methods
// 2. Compile the scenario's CUE source
// 3. Lower every expression concurrently
// 4. Evaluate each case through the evaluator and the interpreter
// 5. Return result with pass/fail, outcomes and errors
//
// The returned error reports setup failures (unreadable or invalid source);
// case mismatches are recorded in the Result.
func RunContext(ctx context.Context, scenario *Scenario, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h, prog, err := setup(scenario, logger)
	if err != nil {
		return nil, err
	}

	lowered, err := h.lowerAll(ctx, prog)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, e := range prog.Expressions {
		dump := ExpressionDump{
			Name:      e.Name,
			Signature: signature(h.registry, &e),
			IR:        ir.FormatWith(h.registry, e.Root),
		}
		if err := lowered[i].err; err != nil {
			dump.Lowering = classify(h.registry, err).code
		}
		result.Expressions = append(result.Expressions, dump)
	}

	for i := range scenario.Cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h.runCase(i, &scenario.Cases[i], prog, lowered, result)
	}

	logger.Info("scenario finished",
		"scenario", scenario.Name,
		"cases", len(scenario.Cases),
		"pass", result.Pass,
		"errors", len(result.Errors),
	)
	return result, nil
}

func setup(scenario *Scenario, logger *slog.Logger) (*Harness, *compiler.Program, error) {
	kinds, err := supportedKinds(scenario.Supported)
	if err != nil {
		return nil, nil, err
	}

	reg := ir.NewRegistry()
	methods, lib, err := rt.Builtins(reg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to install builtins: %w", err)
	}
	probe, err := testutil.NewProbe(reg, methods)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to install probe: %w", err)
	}

	aliases := compiler.BuiltinMethods(reg, lib)
	aliases["Probe.tick"] = compiler.MethodRef{Method: probe.Tick.Method, Static: true}
	aliases["Probe.mark"] = compiler.MethodRef{Method: probe.Mark.Method, Static: true}

	src, err := os.ReadFile(scenario.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read source: %w", err)
	}
	prog, err := compiler.CompileStringWith(string(src), scenario.Source, reg, aliases)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to compile %s: %w", scenario.Source, err)
	}

	opts := []lower.Option{lower.WithLogger(logger)}
	if len(kinds) > 0 {
		opts = append(opts, lower.WithSupported(kinds...))
	}
	h := &Harness{
		registry: reg,
		methods:  methods,
		probe:    probe,
		backend:  lower.NewCompiler(reg, methods, opts...),
		interp:   interp.New(reg, methods, logger),
		logger:   logger,
	}
	return h, prog, nil
}

// lowerAll lowers every expression of prog in parallel. Lowering failures
// are data; only cancellation aborts the group.
func (h *Harness) lowerAll(ctx context.Context, prog *compiler.Program) ([]lowering, error) {
	out := make([]lowering, len(prog.Expressions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range prog.Expressions {
		e := &prog.Expressions[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ev, err := h.backend.Lower(e.Root, e.Params...)
			out[i] = lowering{eval: ev, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (h *Harness) runCase(i int, c *Case, prog *compiler.Program, lowered []lowering, result *Result) {
	label := fmt.Sprintf("cases[%d] (%s)", i, c.Expr)
	cr := CaseResult{Expr: c.Expr, Pass: true}
	fail := func(format string, args ...any) {
		cr.Pass = false
		result.AddError(label + ": " + fmt.Sprintf(format, args...))
	}
	defer func() { result.Cases = append(result.Cases, cr) }()

	idx := -1
	for j := range prog.Expressions {
		if prog.Expressions[j].Name == c.Expr {
			idx = j
			break
		}
	}
	if idx < 0 {
		fail("expression is not defined by the program")
		return
	}
	expr := &prog.Expressions[idx]

	// Already validated by LoadScenario; conversion cannot fail here.
	args, _ := toValues(c.Args)
	cr.Args = args
	if len(args) != len(expr.Params) {
		fail("expression takes %d arguments, case supplies %d", len(expr.Params), len(args))
		return
	}

	// Backend side: a lowering failure stands in for the evaluation outcome.
	h.probe.Reset()
	var got rt.Value
	gotErr := lowered[idx].err
	if gotErr == nil {
		got, gotErr = lowered[idx].eval.Eval(args...)
	}
	calls := h.probe.Calls()
	out := classify(h.registry, gotErr)
	cr.Value, cr.Code, cr.Exception, cr.Message, cr.Calls = got, out.code, out.exception, out.message, calls

	h.logger.Debug("case evaluated", "case", i, "expr", c.Expr, "code", out.code)

	// Reference side.
	if !lower.IsUnsupported(gotErr) {
		h.probe.Reset()
		ref, refErr := h.interp.Eval(expr.Root, expr.Params, args...)
		refCalls := h.probe.Calls()
		refOut := classify(h.registry, refErr)
		switch {
		case out.code != refOut.code || out.exception != refOut.exception:
			fail("backend failed with %s, interpreter with %s", describe(out), describe(refOut))
		case gotErr == nil && !identical(got, ref):
			fail("backend produced %v, interpreter produced %v", got, ref)
		}
		if !sameCalls(calls, refCalls) {
			fail("backend calls %v, interpreter calls %v", calls, refCalls)
		}
	}

	// Expectations.
	if e := c.ExpectError; e != nil {
		switch {
		case out.code == "":
			fail("expected %s, got value %v", e.Code, got)
		case out.code != e.Code:
			fail("expected %s, got %s", e.Code, describe(out))
		case e.Exception != "" && out.exception != e.Exception:
			fail("expected exception %s, got %s", e.Exception, out.exception)
		}
	}
	if c.HasExpect() {
		want, _ := decodeValue(&c.Expect)
		switch {
		case out.code != "":
			fail("expected value %v, got %s", want, describe(out))
		case !identical(got, want):
			fail("expected value %v, got %v", want, got)
		}
	}
	if c.Calls != nil {
		want, _ := toValues(c.Calls)
		if !sameCalls(calls, want) {
			fail("expected calls %v, got %v", want, calls)
		}
	}
}

func describe(o outcome) string {
	switch {
	case o.code == "":
		return "success"
	case o.exception != "":
		return o.code + " " + o.exception
	default:
		return o.code
	}
}

// signature renders "name(a Int, b String)".
func signature(reg *ir.Registry, e *compiler.Expression) string {
	parts := make([]string, len(e.Params))
	for i, p := range e.Params {
		parts[i] = p.Name + " " + reg.Name(p.Type)
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}
