package mapping

import (
	"github.com/born-ml/batchfn/internal/codegen"
)

// GenerateDeclarations registers the wrapped function so the emitted source
// is self-contained.
func (m *Map) GenerateDeclarations(g *codegen.Generator) error {
	_, err := g.AddDependency(m.f)
	return err
}

// GenerateBody emits the instance loop of the map's strategy.
func (m *Map) GenerateBody(g *codegen.Generator) error {
	return m.strategy.generateBody(m, g)
}

// generateSerial emits the same slicing as runSerial: instance slots directly
// after the map's own, shared scratch, and a failing call returns at once.
func generateSerial(m *Map, g *codegen.Generator) error {
	rt := codegen.RealType
	g.Body.Line("  const %s** arg1 = arg+%d;", rt, m.nIn)
	g.Body.Line("  %s** res1 = res+%d;", rt, m.nOut)
	g.Body.Line("  int i;")
	g.Body.Line("  for (i=0; i<%d; ++i) {", m.n)
	for j := 0; j < m.nIn; j++ {
		g.Body.Line("    arg1[%d] = arg[%d] ? arg[%d]+i*%d : 0;", j, j, j, m.nnzIn[j])
	}
	for k := 0; k < m.nOut; k++ {
		g.Body.Line("    res1[%d] = res[%d] ? res[%d]+i*%d : 0;", k, k, k, m.nnzOut[k])
	}
	g.Body.Line("    if (%s) return 1;", g.Call(m.f, "arg1", "res1", "iw", "w"))
	g.Body.Line("  }")
	return nil
}

// generateParallel emits the same slicing as runParallel: every instance owns
// a region of the slot arrays and of both scratch arrays. Failures are
// collected with a reduction and reported once the loop has finished.
func generateParallel(m *Map, g *codegen.Generator) error {
	rt := codegen.RealType
	g.Body.Line("  int i;")
	g.Body.Line("  int flag = 0;")
	g.Body.Line("#pragma omp parallel for reduction(|:flag)")
	g.Body.Line("  for (i=0; i<%d; ++i) {", m.n)
	g.Body.Line("    const %s** arg_i = arg + %d + %d*i;", rt, m.nIn, m.fsz.Arg)
	for j := 0; j < m.nIn; j++ {
		g.Body.Line("    arg_i[%d] = arg[%d] ? arg[%d]+i*%d : 0;", j, j, j, m.nnzIn[j])
	}
	g.Body.Line("    %s** res_i = res + %d + %d*i;", rt, m.nOut, m.fsz.Res)
	for k := 0; k < m.nOut; k++ {
		g.Body.Line("    res_i[%d] = res[%d] ? res[%d]+i*%d : 0;", k, k, k, m.nnzOut[k])
	}
	g.Body.Line("    int* iw_i = iw + i*%d;", m.fsz.IW)
	g.Body.Line("    %s* w_i = w + i*%d;", rt, m.fsz.W)
	g.Body.Line("    flag |= %s != 0;", g.Call(m.f, "arg_i", "res_i", "iw_i", "w_i"))
	g.Body.Line("  }")
	g.Body.Line("  if (flag) return 1;")
	return nil
}
