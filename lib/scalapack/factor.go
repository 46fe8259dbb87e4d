package scalapack

import (
	"fmt"

	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// agree passes the status code of a kernel from the active processes to
// the inactive ones and converts it into an error.
func (a *Matrix) agree(routine string, info int) error {
	buf := []int{info}
	grid.SendToInactive(a.grid, buf)
	return pblas.Check(routine, buf[0])
}

// ComputeCholeskyFactorization overwrites the lower triangle of a symmetric
// positive definite matrix with its Cholesky factor L, where A = L*Lᵀ. The
// matrix becomes LowerTriangular and enters the Cholesky state.
func (a *Matrix) ComputeCholeskyFactorization() error {
	if a.m != a.n {
		panic(fmt.Sprintf("scalapack: the Cholesky factorization needs a "+
			"square matrix, not a %d x %d one.", a.m, a.n))
	}
	a.begin(opCholesky)
	if err := a.cholesky(); err != nil {
		return err
	}
	a.finish(opCholesky)
	return nil
}

func (a *Matrix) cholesky() error {
	info := 0
	if a.grid.IsActive() {
		info = pblas.Ppotrf(a.ctx, a.operand())
	}
	if err := a.agree("Ppotrf", info); err != nil {
		return err
	}
	a.property = LowerTriangular
	a.state = Cholesky
	return nil
}

// Invert replaces a symmetric positive definite matrix with its inverse.
// Only the lower triangle of the inverse is stored, so the matrix keeps the
// LowerTriangular property. A Plain matrix, or the inverse left by an
// earlier call, is factorized first.
func (a *Matrix) Invert() error {
	if a.m != a.n {
		panic(fmt.Sprintf("scalapack: only square matrices can be "+
			"inverted, not %d x %d ones.", a.m, a.n))
	}
	a.begin(opInvert)
	if a.state == Plain || a.state == InverseMatrix {
		if err := a.cholesky(); err != nil {
			return err
		}
	}

	info := 0
	if a.grid.IsActive() {
		info = pblas.Ppotri(a.ctx, a.operand())
	}
	if err := a.agree("Ppotri", info); err != nil {
		return err
	}
	a.finish(opInvert)
	return nil
}

// ReciprocalConditionNumber estimates the reciprocal of the 1-norm condition
// number of a matrix in the Cholesky state. aNorm is the 1-norm of the
// matrix before factorization.
func (a *Matrix) ReciprocalConditionNumber(aNorm float64) (float64, error) {
	a.begin(opRCond)
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []float64{0}
	info := 0
	if a.grid.IsActive() {
		pocon := &pblas.Pocon{Ctx: a.ctx, A: a.operand(), ANorm: aNorm}
		a.work.Reserve(pocon.Query())
		info = pocon.Execute(&a.work)
		out[0] = pocon.RCond
	}
	grid.SendToInactive(a.grid, out)
	if err := a.agree("Pocon", info); err != nil {
		return 0, err
	}
	a.finish(opRCond)
	return out[0], nil
}
