package scalapack

import (
	"fmt"

	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// ComputeSVD computes the singular value decomposition A = U*Σ*Vᵀ and
// returns the min(m, n) singular values in descending order. U (m x m) and
// VT (n x n) receive the singular vectors unless they are nil, and must
// then share the grid and blocking of A. The values of A are destroyed: it
// becomes General and Unusable.
func (a *Matrix) ComputeSVD(U, VT *Matrix) ([]float64, error) {
	a.begin(opSVD)
	mustMatch("ComputeSVD", "A row blocks and A column blocks", a.mb, a.nb)
	for _, v := range []struct {
		name string
		mat  *Matrix
		n    int
	}{{"U", U, a.m}, {"VT", VT, a.n}} {
		if v.mat == nil {
			continue
		}
		if v.mat.m != v.n || v.mat.n != v.n {
			panic(fmt.Sprintf("scalapack: ComputeSVD needs %s to be %d x "+
				"%d, but it is %d x %d.", v.name, v.n, v.n, v.mat.m, v.mat.n))
		}
		mustMatch("ComputeSVD", "A row blocks and "+v.name+" row blocks", a.mb, v.mat.mb)
		mustMatch("ComputeSVD", "A column blocks and "+v.name+" column blocks", a.nb, v.mat.nb)
		if v.mat.ctx.Handle != a.ctx.Handle {
			panic(fmt.Sprintf("scalapack: ComputeSVD needs %s to share the "+
				"grid of A.", v.name))
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	s := make([]float64, min(a.m, a.n))
	info := 0
	if a.grid.IsActive() {
		gesvd := &pblas.Gesvd{
			Ctx: a.ctx, A: a.operand(),
			WantU: U != nil, WantVT: VT != nil,
		}
		if U != nil {
			gesvd.U = U.operand()
		}
		if VT != nil {
			gesvd.VT = VT.operand()
		}
		a.work.Reserve(gesvd.Query())
		info = gesvd.Execute(&a.work)
		copy(s, gesvd.S)
	}
	grid.SendToInactive(a.grid, s)
	if err := a.agree("Gesvd", info); err != nil {
		return nil, err
	}

	a.property = General
	a.finish(opSVD)
	return s, nil
}

// LeastSquares solves min ||op(A)*X - B|| for every column of B, where
// op(A) is A or its transpose, and overwrites the leading rows of B with X.
// op(A) must have at least as many rows as columns. A and B must both be
// Plain, share a grid, and use square blocks of the same size. The values
// of A are destroyed and it becomes Unusable.
func (a *Matrix) LeastSquares(B *Matrix, transpose bool) error {
	a.mustShareGrid("LeastSquares", B)
	a.begin(opLeastSquares)
	if B.state != Plain {
		panic(fmt.Sprintf("scalapack: LeastSquares needs B to be in the "+
			"state '%s', not '%s'.", Plain, B.state))
	}

	rows, cols := a.m, a.n
	if transpose {
		rows, cols = a.n, a.m
	}
	mustMatch("LeastSquares", "rows of op(A) and B", rows, B.m)
	if cols > rows {
		panic(fmt.Sprintf("scalapack: LeastSquares cannot solve an "+
			"underdetermined system with a %d x %d op(A).", rows, cols))
	}
	mustMatch("LeastSquares", "A row blocks and A column blocks", a.mb, a.nb)
	mustMatch("LeastSquares", "B row blocks and B column blocks", B.mb, B.nb)
	mustMatch("LeastSquares", "A blocks and B blocks", a.mb, B.mb)

	a.mu.Lock()
	defer a.mu.Unlock()

	info := 0
	if a.grid.IsActive() {
		gels := &pblas.Gels{Ctx: a.ctx, TransA: transpose, A: a.operand(), B: B.operand()}
		a.work.Reserve(gels.Query())
		info = gels.Execute(&a.work)
	}
	if err := a.agree("Gels", info); err != nil {
		return err
	}
	a.finish(opLeastSquares)
	return nil
}
