// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr provides scalar symbolic expressions and functions built from
// them.
//
// Example:
//
//	x := expr.Syms("x", 2)
//	f, err := expr.NewFunction("f",
//	    [][]*expr.Node{x},
//	    [][]*expr.Node{{expr.Mul(x[0], expr.Sin(x[1]))}},
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := batch.Call(f, []float64{2, 0.5})
package expr

import (
	"github.com/born-ml/batchfn/internal/sx"
	"github.com/born-ml/batchfn/internal/sxfunc"
)

// Node is a scalar expression.
type Node = sx.Node

// Function is a function of scalar expressions.
type Function = sxfunc.Function

// Errors returned by NewFunction.
var (
	ErrNotSymbolic     = sxfunc.ErrNotSymbolic
	ErrDuplicateSymbol = sxfunc.ErrDuplicateSymbol
	ErrFreeSymbol      = sxfunc.ErrFreeSymbol
	ErrNilExpression   = sxfunc.ErrNilExpression
)

// NewFunction creates a function mapping the input symbols to the output
// expressions, one slice per port.
func NewFunction(name string, inputs, outputs [][]*Node) (*Function, error) {
	return sxfunc.New(name, inputs, outputs)
}

// Sym returns a new free symbol.
func Sym(name string) *Node { return sx.Sym(name) }

// Syms returns n symbols named prefix_0 .. prefix_{n-1}.
func Syms(prefix string, n int) []*Node { return sx.Syms(prefix, n) }

// Const returns a constant.
func Const(v float64) *Node { return sx.Const(v) }

// Add returns a + b.
func Add(a, b *Node) *Node { return sx.Add(a, b) }

// Sub returns a - b.
func Sub(a, b *Node) *Node { return sx.Sub(a, b) }

// Mul returns a * b.
func Mul(a, b *Node) *Node { return sx.Mul(a, b) }

// Div returns a / b.
func Div(a, b *Node) *Node { return sx.Div(a, b) }

// Neg returns -a.
func Neg(a *Node) *Node { return sx.Neg(a) }

// Sin returns sin(a).
func Sin(a *Node) *Node { return sx.Sin(a) }

// Cos returns cos(a).
func Cos(a *Node) *Node { return sx.Cos(a) }

// Exp returns exp(a).
func Exp(a *Node) *Node { return sx.Exp(a) }

// Log returns log(a).
func Log(a *Node) *Node { return sx.Log(a) }

// Sqrt returns sqrt(a).
func Sqrt(a *Node) *Node { return sx.Sqrt(a) }

// Tanh returns tanh(a).
func Tanh(a *Node) *Node { return sx.Tanh(a) }

// Eval evaluates expressions numerically with the given symbol bindings.
func Eval(roots []*Node, env map[*Node]float64) ([]float64, error) {
	return sx.Eval(roots, env)
}
