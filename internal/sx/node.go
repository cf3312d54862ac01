// Package sx provides scalar expression nodes, the symbolic element type that
// flows through symbolic evaluation of functions.
package sx

import (
	"fmt"
	"math"
	"strconv"
)

// Op identifies the operation a Node performs.
type Op int

// Supported operations.
const (
	OpConst Op = iota
	OpSym
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpNeg
	OpSin
	OpCos
	OpExp
	OpLog
	OpSqrt
	OpTanh
)

// String returns the operation name.
func (op Op) String() string {
	switch op {
	case OpConst:
		return "const"
	case OpSym:
		return "sym"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	case OpNeg:
		return "neg"
	case OpSin:
		return "sin"
	case OpCos:
		return "cos"
	case OpExp:
		return "exp"
	case OpLog:
		return "log"
	case OpSqrt:
		return "sqrt"
	case OpTanh:
		return "tanh"
	default:
		return "unknown"
	}
}

// Arity returns the number of dependencies of the operation.
func (op Op) Arity() int {
	switch op {
	case OpConst, OpSym:
		return 0
	case OpAdd, OpSub, OpMul, OpDiv:
		return 2
	default:
		return 1
	}
}

// Apply evaluates the operation on numeric operands.
// Unary operations ignore b.
func (op Op) Apply(a, b float64) float64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMul:
		return a * b
	case OpDiv:
		return a / b
	case OpNeg:
		return -a
	case OpSin:
		return math.Sin(a)
	case OpCos:
		return math.Cos(a)
	case OpExp:
		return math.Exp(a)
	case OpLog:
		return math.Log(a)
	case OpSqrt:
		return math.Sqrt(a)
	case OpTanh:
		return math.Tanh(a)
	default:
		panic(fmt.Sprintf("sx: cannot apply %s", op))
	}
}

// Node is a scalar expression.
// Nodes are immutable once created and may be shared between expressions.
type Node struct {
	op    Op
	value float64 // OpConst only
	name  string  // OpSym only
	dep   [2]*Node
}

var (
	zero = &Node{op: OpConst, value: 0}
	one  = &Node{op: OpConst, value: 1}
)

// Const returns a constant node.
func Const(v float64) *Node {
	switch v {
	case 0:
		return zero
	case 1:
		return one
	}
	return &Node{op: OpConst, value: v}
}

// Zero returns the constant 0.
func Zero() *Node { return zero }

// One returns the constant 1.
func One() *Node { return one }

// Sym returns a new free symbol.
// Two calls with the same name return distinct symbols.
func Sym(name string) *Node {
	return &Node{op: OpSym, name: name}
}

// Syms returns n symbols named prefix_0 .. prefix_{n-1}.
func Syms(prefix string, n int) []*Node {
	out := make([]*Node, n)
	for i := range out {
		out[i] = Sym(prefix + "_" + strconv.Itoa(i))
	}
	return out
}

// Op returns the node's operation.
func (n *Node) Op() Op { return n.op }

// Value returns the value of a constant node.
func (n *Node) Value() float64 { return n.value }

// Name returns the name of a symbol node.
func (n *Node) Name() string { return n.name }

// Dep returns the i-th dependency, or nil.
func (n *Node) Dep(i int) *Node { return n.dep[i] }

// IsConst reports whether n is a constant.
func (n *Node) IsConst() bool { return n.op == OpConst }

// IsSymbolic reports whether n is a free symbol.
func (n *Node) IsSymbolic() bool { return n.op == OpSym }

// IsZero reports whether n is the constant 0.
func (n *Node) IsZero() bool { return n.op == OpConst && n.value == 0 }

// IsOne reports whether n is the constant 1.
func (n *Node) IsOne() bool { return n.op == OpConst && n.value == 1 }

func binary(op Op, a, b *Node) *Node {
	return &Node{op: op, dep: [2]*Node{a, b}}
}

func unary(op Op, a *Node) *Node {
	return &Node{op: op, dep: [2]*Node{a, nil}}
}

// Add returns a + b.
func Add(a, b *Node) *Node {
	switch {
	case a.IsZero():
		return b
	case b.IsZero():
		return a
	}
	return binary(OpAdd, a, b)
}

// Sub returns a - b.
func Sub(a, b *Node) *Node {
	switch {
	case b.IsZero():
		return a
	case a.IsZero():
		return Neg(b)
	}
	return binary(OpSub, a, b)
}

// Mul returns a * b.
func Mul(a, b *Node) *Node {
	switch {
	case a.IsZero() || b.IsZero():
		return zero
	case a.IsOne():
		return b
	case b.IsOne():
		return a
	}
	return binary(OpMul, a, b)
}

// Div returns a / b.
func Div(a, b *Node) *Node {
	switch {
	case a.IsZero():
		return zero
	case b.IsOne():
		return a
	}
	return binary(OpDiv, a, b)
}

// Neg returns -a.
func Neg(a *Node) *Node {
	if a.IsZero() {
		return zero
	}
	return unary(OpNeg, a)
}

// Sin returns sin(a).
func Sin(a *Node) *Node { return unary(OpSin, a) }

// Cos returns cos(a).
func Cos(a *Node) *Node { return unary(OpCos, a) }

// Exp returns exp(a).
func Exp(a *Node) *Node { return unary(OpExp, a) }

// Log returns log(a).
func Log(a *Node) *Node { return unary(OpLog, a) }

// Sqrt returns sqrt(a).
func Sqrt(a *Node) *Node { return unary(OpSqrt, a) }

// Tanh returns tanh(a).
func Tanh(a *Node) *Node { return unary(OpTanh, a) }

// Apply builds op on the given operands. It is the symbolic counterpart of
// Op.Apply.
func Apply(op Op, a, b *Node) *Node {
	switch op {
	case OpAdd:
		return Add(a, b)
	case OpSub:
		return Sub(a, b)
	case OpMul:
		return Mul(a, b)
	case OpDiv:
		return Div(a, b)
	case OpNeg:
		return Neg(a)
	case OpSin:
		return Sin(a)
	case OpCos:
		return Cos(a)
	case OpExp:
		return Exp(a)
	case OpLog:
		return Log(a)
	case OpSqrt:
		return Sqrt(a)
	case OpTanh:
		return Tanh(a)
	default:
		panic(fmt.Sprintf("sx: cannot apply %s", op))
	}
}

// String renders the expression in infix form.
func (n *Node) String() string {
	switch n.op {
	case OpConst:
		return strconv.FormatFloat(n.value, 'g', -1, 64)
	case OpSym:
		return n.name
	case OpAdd:
		return "(" + n.dep[0].String() + "+" + n.dep[1].String() + ")"
	case OpSub:
		return "(" + n.dep[0].String() + "-" + n.dep[1].String() + ")"
	case OpMul:
		return "(" + n.dep[0].String() + "*" + n.dep[1].String() + ")"
	case OpDiv:
		return "(" + n.dep[0].String() + "/" + n.dep[1].String() + ")"
	case OpNeg:
		return "(-" + n.dep[0].String() + ")"
	default:
		return n.op.String() + "(" + n.dep[0].String() + ")"
	}
}
