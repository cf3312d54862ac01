// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package batch provides the map combinator: a function that applies another
// function independently to n consecutive slices of its buffers.
//
// Example:
//
//	f, _ := expr.NewFunction("f", inputs, outputs)
//	m, err := batch.Create("m", "openmp", f, 100, batch.Options{"num_threads": 8})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out, err := batch.Call(m, x) // x holds 100 consecutive inputs of f
//
//	src, err := batch.Generate(m, "m") // C source of the same loop
package batch

import (
	"github.com/born-ml/batchfn/internal/codegen"
	"github.com/born-ml/batchfn/internal/function"
	"github.com/born-ml/batchfn/internal/mapping"
	"github.com/born-ml/batchfn/internal/workspace"
)

// Function is the contract every callable satisfies.
type Function = function.Function

// Bvec is a dependency bit-vector used by sparsity propagation.
type Bvec = function.Bvec

// Pattern is a Jacobian sparsity pattern.
type Pattern = function.Pattern

// Sizes holds work requirements.
type Sizes = workspace.Sizes

// Map evaluates a function on n independent slices of its buffers.
type Map = mapping.Map

// Info summarizes a map.
type Info = mapping.Info

// Options holds map construction options.
type Options = mapping.Options

// Parallelization identifies an execution strategy.
type Parallelization = mapping.Parallelization

// Strategies.
const (
	Serial   Parallelization = mapping.Serial
	Parallel Parallelization = mapping.Parallel
)

// InstanceError reports the failure of one instance of a map.
type InstanceError = mapping.InstanceError

// Errors.
var (
	ErrUnknownParallelization = mapping.ErrUnknownParallelization
	ErrInvalidCount           = mapping.ErrInvalidCount
	ErrUnknownOption          = mapping.ErrUnknownOption
	ErrOptionType             = mapping.ErrOptionType
)

// Create builds a map of f over n instances. parallelization is "serial" or
// "openmp"; any other value fails with ErrUnknownParallelization.
func Create(name, parallelization string, f Function, n int, opts Options) (*Map, error) {
	return mapping.Create(name, parallelization, f, n, opts)
}

// Call evaluates f numerically, one slice per input port.
func Call(f Function, inputs ...[]float64) ([][]float64, error) {
	return function.Call(f, inputs...)
}

// Sparsity returns the Jacobian sparsity pattern of f.
func Sparsity(f Function) (*Pattern, error) {
	return function.JacobianSparsity(f)
}

// ReverseSparsity returns the Jacobian sparsity pattern of f computed by
// backward propagation.
func ReverseSparsity(f Function) (*Pattern, error) {
	return function.ReverseSparsity(f)
}

// Generate returns C source exporting f under name, with every function it
// depends on.
func Generate(f Function, name string) (string, error) {
	g := codegen.New("f")
	if err := g.Add(f, name); err != nil {
		return "", err
	}
	return g.Source()
}
