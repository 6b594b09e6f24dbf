package gp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Backend solves geometric programs in log space.
type Backend interface {
	Solve(ctx context.Context, p *Program) (*RawSolution, error)
}

const (
	rankTol      = 1e-10 // relative singular value threshold of the equality matrix
	eqTol        = 1e-7  // equality residual accepted as consistent
	feasTol      = 1e-6  // log space constraint violation accepted as feasible
	newtonTol    = 1e-10 // half squared Newton decrement at which a centering stops
	stallTol     = 1e-3  // half squared Newton decrement accepted from a stalled centering
	armijo       = 0.01
	backtrack    = 0.5
	minStep      = 1e-14
	unboundedLog = 700 // |log x| beyond which float64 overflows
)

// BarrierSolver is a primal barrier interior point method for geometric programs in convex
// (log-sum-exp) form.
//
// Equalities are eliminated through the null space of their exponent matrix. Every inequality
// fᵢ ≤ 0 is then relaxed to fᵢ ≤ vᵢ with vᵢ ≥ 0, and Penalty·Σvᵢ is added to the cost. The relaxed
// problem always has an interior, so the path starts from any point, including programs whose
// inequalities only hold with equality. A solution left with a violation above 1e-6 is
// infeasible.
type BarrierSolver struct {
	Tol       float64 // duality gap at which the barrier stops
	Mu        float64 // barrier parameter growth per centering
	MaxNewton int     // Newton steps per centering
	Penalty   float64 // cost of a unit violation in log space; exceeds every multiplier
}

// NewBarrierSolver returns a BarrierSolver with default tolerances.
func NewBarrierSolver() *BarrierSolver {
	return &BarrierSolver{Tol: 1e-9, Mu: 20, MaxNewton: 100, Penalty: 1e4}
}

func (b *BarrierSolver) withDefaults() *BarrierSolver {
	d := NewBarrierSolver()
	if b.Tol > 0 {
		d.Tol = b.Tol
	}
	if b.Mu > 1 {
		d.Mu = b.Mu
	}
	if b.MaxNewton > 0 {
		d.MaxNewton = b.MaxNewton
	}
	if b.Penalty > 0 {
		d.Penalty = b.Penalty
	}
	return d
}

// Solve implements Backend.
func (b *BarrierSolver) Solve(ctx context.Context, p *Program) (*RawSolution, error) {
	b = b.withDefaults()
	n := len(p.Vars)
	if n == 0 {
		return nil, fmt.Errorf("%w: no free variables", ErrInvalidModel)
	}
	start := p.Start
	if len(start) != n {
		start = make([]float64, n)
	}
	aff, err := newAffine(p, start)
	if err != nil {
		return nil, err
	}
	sys := aff.system(p)
	_, m := sys.a.Dims()
	nc := len(p.Inequalities)

	lambda := make([]float64, nc)
	var x *mat.VecDense
	if m == 0 {
		// The equalities pin every variable.
		f := sys.values(nil)
		for _, fi := range f[1:] {
			if fi > eqTol {
				return nil, fmt.Errorf("%w: the equalities leave no room for the inequalities", ErrInfeasible)
			}
		}
	} else {
		var ystart mat.VecDense
		ystart.SubVec(mat.NewVecDense(n, append([]float64(nil), start...)), aff.y0)
		x0 := mat.NewVecDense(m, nil)
		x0.MulVec(aff.z.T(), &ystart)

		el, xv := sys.elastic(x0, b.Penalty)
		t, err := b.barrier(ctx, el, xv)
		if err != nil {
			return nil, err
		}
		x = mat.VecDenseCopyOf(xv.SliceVec(0, m))
		if worst := floats.Max(append(sys.values(x)[1:], 0)); worst > feasTol {
			return nil, fmt.Errorf("%w: minimum constraint violation %.3g", ErrInfeasible, worst)
		}
		f := el.values(xv)
		for i := range lambda {
			lambda[i] = 1 / (t * -f[1+i])
		}
	}

	y := mat.NewVecDense(n, nil)
	if m == 0 {
		y.CopyVec(aff.y0)
	} else {
		y.MulVec(aff.z, x)
		y.AddVec(y, aff.y0)
	}
	raw := &RawSolution{Y: append([]float64(nil), y.RawVector().Data...), IneqDuals: lambda}
	raw.EqDuals = aff.duals(p, raw.Y, lambda)
	return raw, nil
}

// barrier follows the central path from the strictly feasible x, which it updates in place, and
// returns the final barrier parameter.
func (b *BarrierSolver) barrier(ctx context.Context, sys *lseSystem, x *mat.VecDense) (float64, error) {
	ncons := len(sys.rows) - 1
	t := 1.0
	for {
		if err := ctx.Err(); err != nil {
			return t, err
		}
		if err := b.center(sys, x, t); err != nil {
			return t, err
		}
		if ncons == 0 || float64(ncons)/t < b.Tol {
			return t, nil
		}
		t *= b.Mu
	}
}

// center minimises t·f₀ - Σlog(-fᵢ) by damped Newton steps. A centering which runs out of steps,
// or whose line search cannot make progress, fails with ErrNotConverged unless the point is
// already close to the central path.
func (b *BarrierSolver) center(sys *lseSystem, x *mat.VecDense, t float64) error {
	m := x.Len()
	xn := mat.NewVecDense(m, nil)
	for iter := 0; ; iter++ {
		f, w, g := sys.eval(x)
		grad := sys.gradient(f, g, t)
		dx, err := solveNewton(sys.hessian(f, w, g, t), grad)
		if err != nil {
			return err
		}
		dec := -floats.Dot(grad, dx)
		if dec/2 <= newtonTol {
			return nil
		}
		if iter == b.MaxNewton {
			if dec/2 <= stallTol {
				return nil
			}
			return fmt.Errorf("%w: no centered point after %d Newton steps (t=%.3g, decrement %.3g)", ErrNotConverged, iter, t, dec/2)
		}
		phi := barrierValue(f, t)
		step := 1.0
		dxv := mat.NewVecDense(m, dx)
		for {
			xn.AddScaledVec(x, step, dxv)
			if barrierValue(sys.values(xn), t) <= phi-armijo*step*dec {
				break
			}
			step *= backtrack
			if step < minStep {
				if dec/2 <= stallTol {
					return nil
				}
				return fmt.Errorf("%w: line search stalled (t=%.3g, decrement %.3g)", ErrNotConverged, t, dec/2)
			}
		}
		x.CopyVec(xn)
		if mat.Norm(x, math.Inf(1)) > unboundedLog {
			return ErrUnbounded
		}
	}
}

func barrierValue(f []float64, t float64) float64 {
	v := t * f[0]
	for _, fi := range f[1:] {
		if !(fi < 0) {
			return math.Inf(1)
		}
		v -= math.Log(-fi)
	}
	return v
}

// affine maps the null space coordinates z to y = y₀ + Z·z.
type affine struct {
	y0 *mat.VecDense
	z  *mat.Dense // n×m, with m = 0 when the equalities pin every variable

	eq    *mat.Dense
	u, v  *mat.Dense // left and right singular vectors of eq restricted to its rank
	sigma []float64
}

func newAffine(p *Program, start []float64) (*affine, error) {
	n := len(p.Vars)
	ys := mat.NewVecDense(n, append([]float64(nil), start...))
	if len(p.Equalities) == 0 {
		z := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			z.Set(i, i, 1)
		}
		return &affine{y0: ys, z: z}, nil
	}

	ne := len(p.Equalities)
	e := mat.NewDense(ne, n, nil)
	d := mat.NewVecDense(ne, nil)
	for j, row := range p.Equalities {
		t := row.Terms[0]
		for i, a := range t.Exps {
			e.Set(j, i, a)
		}
		d.SetVec(j, -t.LogC)
	}
	var svd mat.SVD
	if !svd.Factorize(e, mat.SVDFull) {
		return nil, errors.New("gp: equality factorization failed")
	}
	vals := svd.Values(nil)
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	r := 0
	for _, sv := range vals {
		if vals[0] > 0 && sv > rankTol*vals[0] {
			r++
		}
	}
	if r == 0 {
		return nil, fmt.Errorf("%w: equalities have no variable dependence", ErrInvalidModel)
	}
	aff := &affine{
		eq:    e,
		u:     mat.DenseCopyOf(u.Slice(0, ne, 0, r)),
		v:     mat.DenseCopyOf(v.Slice(0, n, 0, r)),
		sigma: vals[:r],
	}

	// Least-norm correction of the start onto the equality plane.
	res := mat.NewVecDense(ne, nil)
	res.MulVec(e, ys)
	res.SubVec(d, res)
	corr := aff.pinvT(res)
	var dy mat.VecDense
	dy.MulVec(aff.v, corr)
	aff.y0 = mat.NewVecDense(n, nil)
	aff.y0.AddVec(ys, &dy)

	var chk mat.VecDense
	chk.MulVec(e, aff.y0)
	chk.SubVec(&chk, d)
	if mat.Norm(&chk, math.Inf(1)) > eqTol*(1+mat.Norm(d, math.Inf(1))) {
		return nil, fmt.Errorf("%w: inconsistent equalities (residual %.3g)", ErrInfeasible, mat.Norm(&chk, math.Inf(1)))
	}
	if r < n {
		aff.z = mat.DenseCopyOf(v.Slice(0, n, r, n))
	} else {
		aff.z = &mat.Dense{}
	}
	return aff, nil
}

// pinvT returns Σ⁻¹·Uᵀ·b.
func (a *affine) pinvT(b mat.Vector) *mat.VecDense {
	var c mat.VecDense
	c.MulVec(a.u.T(), b)
	for i, s := range a.sigma {
		c.SetVec(i, c.AtVec(i)/s)
	}
	return &c
}

// system returns the objective and inequality rows of p in null space coordinates.
func (a *affine) system(p *Program) *lseSystem {
	rows := append([]Row{p.Objective}, p.Inequalities...)
	k := 0
	for _, r := range rows {
		k += len(r.Terms)
	}
	n := len(p.Vars)
	ty := mat.NewDense(k, n, nil)
	logc := make([]float64, k)
	sys := &lseSystem{rows: make([][2]int, len(rows))}
	at := 0
	for ri, r := range rows {
		sys.rows[ri] = [2]int{at, at + len(r.Terms)}
		for _, t := range r.Terms {
			for i, e := range t.Exps {
				ty.Set(at, i, e)
			}
			logc[at] = t.LogC
			at++
		}
	}
	off := mat.NewVecDense(k, nil)
	off.MulVec(ty, a.y0)
	sys.b = off.RawVector().Data
	floats.Add(sys.b, logc)
	sys.k = k
	sys.a = &mat.Dense{}
	if !a.z.IsEmpty() {
		sys.a.Mul(ty, a.z)
	}
	return sys
}

// duals returns the least squares equality multipliers ν solving Eᵀν = -(∇f₀ + Σλᵢ∇fᵢ) at y.
func (a *affine) duals(p *Program, y []float64, lambda []float64) []float64 {
	if a.eq == nil {
		return nil
	}
	n := len(p.Vars)
	ry := make([]float64, n)
	rowGrad := func(r Row, scale float64) {
		if scale == 0 {
			return
		}
		us := make([]float64, len(r.Terms))
		for k, term := range r.Terms {
			us[k] = term.Value(y)
		}
		_, w := logSumExp(us)
		for k, term := range r.Terms {
			for i, e := range term.Exps {
				ry[i] += scale * w[k] * e
			}
		}
	}
	rowGrad(p.Objective, 1)
	for i, r := range p.Inequalities {
		rowGrad(r, lambda[i])
	}
	floats.Scale(-1, ry)
	var vt mat.VecDense
	vt.MulVec(a.v.T(), mat.NewVecDense(n, ry))
	for i, s := range a.sigma {
		vt.SetVec(i, vt.AtVec(i)/s)
	}
	var nu mat.VecDense
	nu.MulVec(a.u, &vt)
	return append([]float64(nil), nu.RawVector().Data...)
}

// lseSystem holds log-sum-exp rows fᵣ(x) = log Σₖ exp(aₖ·x + bₖ) over dense coefficients. Row 0
// is the objective, plus c·x when c is set; the others are constraints fᵣ ≤ 0.
type lseSystem struct {
	a    *mat.Dense // one row per term
	b    []float64  // one offset per term
	c    []float64  // linear part of the objective
	k    int        // number of terms
	rows [][2]int   // term range of each row
}

func (s *lseSystem) terms(x *mat.VecDense) []float64 {
	u := make([]float64, s.k)
	if x != nil {
		uv := mat.NewVecDense(s.k, u)
		uv.MulVec(s.a, x)
	}
	floats.Add(u, s.b)
	return u
}

func (s *lseSystem) values(x *mat.VecDense) []float64 {
	u := s.terms(x)
	f := make([]float64, len(s.rows))
	for r, rg := range s.rows {
		f[r], _ = logSumExp(u[rg[0]:rg[1]])
	}
	if s.c != nil && x != nil {
		f[0] += floats.Dot(s.c, x.RawVector().Data)
	}
	return f
}

// eval returns the row values, the softmax weight of every term and the gradients of the
// log-sum-exp parts of the rows.
func (s *lseSystem) eval(x *mat.VecDense) (f, w []float64, g [][]float64) {
	m := x.Len()
	u := s.terms(x)
	f = make([]float64, len(s.rows))
	w = make([]float64, s.k)
	g = make([][]float64, len(s.rows))
	for r, rg := range s.rows {
		var wr []float64
		f[r], wr = logSumExp(u[rg[0]:rg[1]])
		copy(w[rg[0]:rg[1]], wr)
		gr := make([]float64, m)
		for k := rg[0]; k < rg[1]; k++ {
			if w[k] != 0 {
				floats.AddScaled(gr, w[k], s.a.RawRowView(k))
			}
		}
		g[r] = gr
	}
	if s.c != nil {
		f[0] += floats.Dot(s.c, x.RawVector().Data)
	}
	return f, w, g
}

func (s *lseSystem) gradient(f []float64, g [][]float64, t float64) []float64 {
	grad := make([]float64, len(g[0]))
	floats.AddScaled(grad, t, g[0])
	if s.c != nil {
		floats.AddScaled(grad, t, s.c)
	}
	for r := 1; r < len(f); r++ {
		floats.AddScaled(grad, 1/-f[r], g[r])
	}
	return grad
}

// hessian assembles the barrier Hessian
//
//	t·∇²f₀ + Σ ∇²fᵢ/(-fᵢ) + ∇fᵢ∇fᵢᵀ/fᵢ²
//
// with ∇²f = Σₖ wₖaₖaₖᵀ - ∇f∇fᵀ, as the difference of two outer products.
func (s *lseSystem) hessian(f, w []float64, g [][]float64, t float64) *mat.SymDense {
	m := len(g[0])
	var pos, neg []float64
	add := func(dst *[]float64, c float64, v []float64) {
		sc := math.Sqrt(c)
		for _, e := range v {
			*dst = append(*dst, sc*e)
		}
	}
	for r, rg := range s.rows {
		c := t
		if r > 0 {
			c = 1 / -f[r]
		}
		for k := rg[0]; k < rg[1]; k++ {
			if w[k] > 0 {
				add(&pos, c*w[k], s.a.RawRowView(k))
			}
		}
		rank := -c
		if r > 0 {
			rank = c*c - c
		}
		switch {
		case rank > 0:
			add(&pos, rank, g[r])
		case rank < 0:
			add(&neg, -rank, g[r])
		}
	}
	h := mat.NewSymDense(m, nil)
	if len(pos) > 0 {
		h.SymOuterK(1, mat.NewDense(len(pos)/m, m, pos).T())
	}
	if len(neg) > 0 {
		var hn mat.SymDense
		hn.SymOuterK(-1, mat.NewDense(len(neg)/m, m, neg).T())
		h.AddSym(h, &hn)
	}
	return h
}

// elastic returns the system over (x, v) minimising f₀ + penalty·Σvᵢ subject to fᵢ(x) - vᵢ ≤ 0
// and -vᵢ ≤ 0, and a strictly feasible start for it at x.
func (s *lseSystem) elastic(x *mat.VecDense, penalty float64) (*lseSystem, *mat.VecDense) {
	m := x.Len()
	nc := len(s.rows) - 1
	el := &lseSystem{
		b:    make([]float64, s.k+nc),
		c:    make([]float64, m+nc),
		k:    s.k + nc,
		rows: make([][2]int, 0, 1+2*nc),
	}
	a := mat.NewDense(el.k, m+nc, nil)
	a.Slice(0, s.k, 0, m).(*mat.Dense).Copy(s.a)
	copy(el.b, s.b)
	el.rows = append(el.rows, s.rows...)
	for i, rg := range s.rows[1:] {
		for k := rg[0]; k < rg[1]; k++ {
			a.Set(k, m+i, -1)
		}
		el.c[m+i] = penalty
	}
	for i := 0; i < nc; i++ {
		a.Set(s.k+i, m+i, -1)
		el.rows = append(el.rows, [2]int{s.k + i, s.k + i + 1})
	}
	el.a = a

	f := s.values(x)
	xv := mat.NewVecDense(m+nc, nil)
	xv.SliceVec(0, m).(*mat.VecDense).CopyVec(x)
	for i := 0; i < nc; i++ {
		xv.SetVec(m+i, math.Max(f[1+i], 0)+1)
	}
	return el, xv
}

// solveNewton solves H·dx = -grad, adding a growing ridge to H until it factorizes.
func solveNewton(h *mat.SymDense, grad []float64) ([]float64, error) {
	m := h.SymmetricDim()
	maxDiag := 0.0
	for i := 0; i < m; i++ {
		maxDiag = math.Max(maxDiag, math.Abs(h.At(i, i)))
	}
	rhs := mat.NewVecDense(m, nil)
	rhs.ScaleVec(-1, mat.NewVecDense(m, grad))
	ridge := 1e-12 * (1 + maxDiag)
	reg := mat.NewSymDense(m, nil)
	for try := 0; try < 16; try++ {
		reg.CopySym(h)
		for i := 0; i < m; i++ {
			reg.SetSym(i, i, reg.At(i, i)+ridge)
		}
		var ch mat.Cholesky
		if ch.Factorize(reg) {
			var dx mat.VecDense
			err := ch.SolveVecTo(&dx, rhs)
			var cond mat.Condition
			if err == nil || errors.As(err, &cond) {
				out := dx.RawVector().Data
				if !floats.HasNaN(out) {
					return out, nil
				}
			}
		}
		ridge *= 100
	}
	return nil, errors.New("gp: singular Newton system")
}
