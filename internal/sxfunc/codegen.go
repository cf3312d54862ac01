package sxfunc

import (
	"github.com/born-ml/batchfn/internal/codegen"
	"github.com/born-ml/batchfn/internal/sx"
)

// GenerateDeclarations is a no-op: expression functions call nothing.
func (f *Function) GenerateDeclarations(g *codegen.Generator) error {
	return nil
}

// GenerateBody emits the instruction list as straight-line C, one work
// register assignment per instruction, followed by the output writes.
func (f *Function) GenerateBody(g *codegen.Generator) error {
	for k, in := range f.algo {
		switch in.op {
		case sx.OpConst:
			g.Body.Line("  w[%d] = %s;", k, codegen.Constant(in.val))
		case sx.OpSym:
			g.Body.Line("  w[%d] = arg[%d] ? arg[%d][%d] : 0;", k, in.port, in.port, in.nz)
		case sx.OpAdd:
			g.Body.Line("  w[%d] = w[%d] + w[%d];", k, in.arg[0], in.arg[1])
		case sx.OpSub:
			g.Body.Line("  w[%d] = w[%d] - w[%d];", k, in.arg[0], in.arg[1])
		case sx.OpMul:
			g.Body.Line("  w[%d] = w[%d] * w[%d];", k, in.arg[0], in.arg[1])
		case sx.OpDiv:
			g.Body.Line("  w[%d] = w[%d] / w[%d];", k, in.arg[0], in.arg[1])
		case sx.OpNeg:
			g.Body.Line("  w[%d] = -w[%d];", k, in.arg[0])
		default:
			// sin, cos, exp, log, sqrt and tanh share their C names.
			g.Body.Line("  w[%d] = %s(w[%d]);", k, in.op, in.arg[0])
		}
	}
	for k, regs := range f.out {
		if len(regs) == 0 {
			continue
		}
		g.Body.Line("  if (res[%d]) {", k)
		for i, reg := range regs {
			g.Body.Line("    res[%d][%d] = w[%d];", k, i, reg)
		}
		g.Body.Line("  }")
	}
	return nil
}
