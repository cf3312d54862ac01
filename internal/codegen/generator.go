// Package codegen emits self-contained C source for functions.
//
// Every function is emitted as a static C function with the evaluation
// signature
//
//	int fK(const real_t** arg, real_t** res, int* iw, real_t* w)
//
// returning 0 on success and non-zero on failure. Functions register the
// functions they call with AddDependency from GenerateDeclarations and write
// their statements to Body from GenerateBody. Output is deterministic: the
// same emitters added in the same order produce byte-identical source.
package codegen

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/born-ml/batchfn/internal/workspace"
)

// RealType is the C type of real-valued buffer elements.
const RealType = "real_t"

// ErrNotDeclared is returned when a body calls a function that was never
// registered with AddDependency.
var ErrNotDeclared = errors.New("codegen: call to undeclared dependency")

// Emitter is implemented by anything that can be emitted as a C function.
type Emitter interface {
	// Name returns a human-readable name, used in comments.
	Name() string

	// WorkSize returns the work requirements of one evaluation.
	WorkSize() workspace.Sizes

	// GenerateDeclarations registers the emitter's dependencies.
	GenerateDeclarations(g *Generator) error

	// GenerateBody writes the function body to g.Body.
	GenerateBody(g *Generator) error
}

// Stream is an append-only text buffer.
type Stream struct {
	b strings.Builder
}

// Printf appends formatted text.
func (s *Stream) Printf(format string, args ...any) {
	fmt.Fprintf(&s.b, format, args...)
}

// Line appends formatted text followed by a newline.
func (s *Stream) Line(format string, args ...any) {
	fmt.Fprintf(&s.b, format, args...)
	s.b.WriteByte('\n')
}

// String returns the accumulated text.
func (s *Stream) String() string { return s.b.String() }

// Len returns the number of accumulated bytes.
func (s *Stream) Len() int { return s.b.Len() }

type export struct {
	name   string
	symbol string
	sizes  workspace.Sizes
}

// Generator accumulates C functions into one translation unit.
type Generator struct {
	// Body receives the statements of the function currently being emitted.
	Body *Stream

	prefix    string
	symbols   map[Emitter]string
	functions []string
	exports   []export
	err       error
}

// New creates a generator. Internal function symbols are prefix0, prefix1, ...;
// an empty prefix defaults to "f".
func New(prefix string) *Generator {
	if prefix == "" {
		prefix = "f"
	}
	return &Generator{
		Body:    &Stream{},
		prefix:  prefix,
		symbols: make(map[Emitter]string),
	}
}

// AddDependency registers e, emitting it (and, first, its own dependencies)
// if this is its first registration. It returns e's C symbol.
func (g *Generator) AddDependency(e Emitter) (string, error) {
	if sym, ok := g.symbols[e]; ok {
		return sym, nil
	}
	sym := g.prefix + strconv.Itoa(len(g.symbols))
	g.symbols[e] = sym

	outer := g.Body
	g.Body = &Stream{}
	defer func() { g.Body = outer }()

	if err := e.GenerateDeclarations(g); err != nil {
		return "", fmt.Errorf("codegen: declarations of %s: %w", e.Name(), err)
	}
	if err := e.GenerateBody(g); err != nil {
		return "", fmt.Errorf("codegen: body of %s: %w", e.Name(), err)
	}

	var fn Stream
	fn.Line("/* %s */", e.Name())
	fn.Line("static int %s(const %s** arg, %s** res, int* iw, %s* w) {", sym, RealType, RealType, RealType)
	fn.Printf("%s", g.Body.String())
	fn.Line("  return 0;")
	fn.Line("}")
	g.functions = append(g.functions, fn.String())
	return sym, nil
}

// Call returns a C expression calling the registered dependency e with the
// given buffer expressions. The expression evaluates to e's status.
// Calling an unregistered emitter records ErrNotDeclared, reported by Source.
func (g *Generator) Call(e Emitter, arg, res, iw, w string) string {
	sym, ok := g.symbols[e]
	if !ok {
		if g.err == nil {
			g.err = fmt.Errorf("%w: %s", ErrNotDeclared, e.Name())
		}
		return "1"
	}
	return fmt.Sprintf("%s(%s, %s, %s, %s)", sym, arg, res, iw, w)
}

// Add emits e as an exported function called name, together with a
// name_work function reporting its work sizes.
func (g *Generator) Add(e Emitter, name string) error {
	sym, err := g.AddDependency(e)
	if err != nil {
		return err
	}
	g.exports = append(g.exports, export{name: name, symbol: sym, sizes: e.WorkSize()})
	return nil
}

// Source returns the complete translation unit.
func (g *Generator) Source() (string, error) {
	if g.err != nil {
		return "", g.err
	}

	var s Stream
	s.Line("/* This file was automatically generated by batchfn. */")
	s.Line("#include <math.h>")
	s.Line("")
	s.Line("#ifdef __cplusplus")
	s.Line(`extern "C" {`)
	s.Line("#endif")
	s.Line("")
	s.Line("#ifndef %s", RealType)
	s.Line("#define %s double", RealType)
	s.Line("#endif")
	for _, fn := range g.functions {
		s.Line("")
		s.Printf("%s", fn)
	}
	for _, ex := range g.exports {
		s.Line("")
		s.Line("int %s(const %s** arg, %s** res, int* iw, %s* w) {", ex.name, RealType, RealType, RealType)
		s.Line("  return %s(arg, res, iw, w);", ex.symbol)
		s.Line("}")
		s.Line("")
		s.Line("int %s_work(int* sz_arg, int* sz_res, int* sz_iw, int* sz_w) {", ex.name)
		s.Line("  if (sz_arg) *sz_arg = %d;", ex.sizes.Arg)
		s.Line("  if (sz_res) *sz_res = %d;", ex.sizes.Res)
		s.Line("  if (sz_iw) *sz_iw = %d;", ex.sizes.IW)
		s.Line("  if (sz_w) *sz_w = %d;", ex.sizes.W)
		s.Line("  return 0;")
		s.Line("}")
	}
	s.Line("")
	s.Line("#ifdef __cplusplus")
	s.Line(`} /* extern "C" */`)
	s.Line("#endif")
	return s.String(), nil
}

// Constant formats v as a C double literal.
func Constant(v float64) string {
	switch {
	case math.IsNaN(v):
		return "NAN"
	case math.IsInf(v, 1):
		return "INFINITY"
	case math.IsInf(v, -1):
		return "-INFINITY"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += "."
	}
	return s
}
