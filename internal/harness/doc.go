// Package harness runs conformance scenarios against the lowering backend.
//
// A scenario is a YAML file naming a CUE program and a list of cases. Each
// case evaluates one expression of the program with concrete arguments and
// states the expected value or failure:
//
//	name: arithmetic
//	description: builtin math lowers and evaluates
//	source: ../programs/arith.cue
//	cases:
//	  - expr: double
//	    args: [3]
//	    expect: 9
//	  - expr: broken
//	    expect_error: {code: UNBOUND_VARIABLE}
//
// Run compiles the program, lowers every expression concurrently with the
// closure compiler and evaluates each case twice: once through the lowered
// evaluator and once through the reference interpreter. A case passes when
// both agree with each other and with the expectation. Values, failure codes,
// exception types and the calls recorded by the probe methods
// (Probe.tick, Probe.mark) all take part in the comparison.
//
// Trees whose lowering is refused with UNSUPPORTED_OPERATION (see the
// scenario's supported list) are not compared against the interpreter, which
// implements every variant.
//
// RunWithGolden additionally snapshots the formatted IR of every expression
// into testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
