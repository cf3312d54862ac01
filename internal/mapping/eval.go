package mapping

import (
	"github.com/born-ml/batchfn/internal/function"
	"github.com/born-ml/batchfn/internal/sx"
)

// Eval evaluates f numerically on every instance.
func (m *Map) Eval(arg, res [][]float64, iw []int, w []float64, mem int) error {
	if err := function.CheckArgs(m, arg, res, iw, w); err != nil {
		return err
	}
	m.trace("eval")
	return m.strategy.eval(m, arg, res, iw, w)
}

// EvalSX evaluates f symbolically on every instance.
func (m *Map) EvalSX(arg, res [][]*sx.Node, iw []int, w []*sx.Node, mem int) error {
	if err := function.CheckArgs(m, arg, res, iw, w); err != nil {
		return err
	}
	m.trace("eval_sx")
	return m.strategy.evalSX(m, arg, res, iw, w)
}

// SpFwd propagates dependencies forward through every instance. Instance i's
// outputs only ever receive bits from instance i's inputs.
func (m *Map) SpFwd(arg, res [][]function.Bvec, iw []int, w []function.Bvec, mem int) error {
	if err := function.CheckArgs(m, arg, res, iw, w); err != nil {
		return err
	}
	m.trace("sp_fwd")
	return m.strategy.spFwd(m, arg, res, iw, w)
}

// SpRev propagates dependencies backward through every instance, OR-ing into
// instance i's inputs and clearing instance i's outputs.
func (m *Map) SpRev(arg, res [][]function.Bvec, iw []int, w []function.Bvec, mem int) error {
	if err := function.CheckArgs(m, arg, res, iw, w); err != nil {
		return err
	}
	m.trace("sp_rev")
	return m.strategy.spRev(m, arg, res, iw, w)
}

func (m *Map) trace(mode string) {
	if m.cfg.Verbose {
		m.logger.Info("evaluating", "mode", mode, "function", m.f.Name(), "n", m.n)
	}
}
