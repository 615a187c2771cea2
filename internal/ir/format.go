package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// Format renders n as an indented s-expression. Type tags print as numbers.
// The output is deterministic and is what golden files and diagnostics use.
func Format(n Node) string {
	return FormatWith(nil, n)
}

// FormatWith is like Format but prints type tags by name when reg is non-nil.
func FormatWith(reg *Registry, n Node) string {
	p := &printer{reg: reg}
	p.node(n, 0)
	return p.b.String()
}

type printer struct {
	b   strings.Builder
	reg *Registry
}

func (p *printer) typeName(t TypeID) string {
	if p.reg == nil {
		return "#" + strconv.FormatUint(uint64(t), 10)
	}
	return p.reg.Name(t)
}

func (p *printer) method(m Method) string {
	if p.reg != nil {
		return m.Describe(p.reg)
	}
	parts := make([]string, len(m.params))
	for i, t := range m.params {
		parts[i] = p.typeName(t)
	}
	return fmt.Sprintf("%s.%s(%s) %s", p.typeName(m.owner), m.name, strings.Join(parts, ", "), p.typeName(m.output))
}

func (p *printer) indent(depth int) {
	for i := 0; i < depth; i++ {
		p.b.WriteString("  ")
	}
}

// list writes "(head" followed by each child on its own line.
func (p *printer) list(depth int, head string, children ...Node) {
	p.b.WriteByte('(')
	p.b.WriteString(head)
	for _, c := range children {
		p.b.WriteByte('\n')
		p.indent(depth + 1)
		p.node(c, depth+1)
	}
	p.b.WriteByte(')')
}

func (p *printer) node(n Node, depth int) {
	switch v := n.(type) {
	case nil:
		p.b.WriteString("<nil>")
	case InvokeStatic:
		p.list(depth, "invoke-static "+p.method(v.Method), v.Args...)
	case Invoke:
		p.list(depth, "invoke "+p.method(v.Method), append([]Node{v.Target}, v.Args...)...)
	case Load:
		fmt.Fprintf(&p.b, "(load %s)", v.Name)
	case IntegerLiteral:
		fmt.Fprintf(&p.b, "(int %d)", v.Value)
	case FloatLiteral:
		fmt.Fprintf(&p.b, "(float %s)", strconv.FormatFloat(v.Value, 'g', -1, 64))
	case StringLiteral:
		fmt.Fprintf(&p.b, "(string %s)", strconv.Quote(v.Value))
	case Constant:
		fmt.Fprintf(&p.b, "(constant %T %v)", v.Value, v.Value)
	case NullLiteral:
		p.b.WriteString("(null)")
	case TrueLiteral:
		p.b.WriteString("(true)")
	case FalseLiteral:
		p.b.WriteString("(false)")
	case ArrayLiteral:
		p.list(depth, "array", v.Values...)
	case Ternary:
		p.list(depth, "ternary", v.Condition, v.OnTrue, v.OnFalse)
	case Eq:
		p.list(depth, "eq", v.Lhs, v.Rhs)
	case NotEq:
		p.list(depth, "not-eq", v.Lhs, v.Rhs)
	case Block:
		p.list(depth, "block", v.Ops...)
	case Condition:
		p.list(depth, "condition", v.Test, v.OnTrue)
	case DeclareLocalVariable:
		fmt.Fprintf(&p.b, "(declare %s %s)", p.typeName(v.Type), v.Name)
	case AssignToLocalVariable:
		p.list(depth, "assign "+v.Name, v.Value)
	case TryCatch:
		p.list(depth, fmt.Sprintf("try-catch %s %s", p.typeName(v.ExceptionType), v.Name), v.Ops, v.OnError)
	case Throw:
		p.list(depth, "throw", v.Error)
	case BooleanAnd:
		p.list(depth, "and", v.Lhs, v.Rhs)
	case BooleanOr:
		p.list(depth, "or", v.Lhs, v.Rhs)
	case Not:
		p.list(depth, "not", v.Operand)
	case IsNull:
		p.list(depth, "is-null", v.Operand)
	default:
		fmt.Fprintf(&p.b, "(unknown %T)", n)
	}
}
