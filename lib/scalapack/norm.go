package scalapack

import (
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/lapack"

	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// L1Norm returns the maximum absolute column sum of the matrix.
func (a *Matrix) L1Norm() float64 { return a.norm(lapack.MaxColumnSum) }

// LInftyNorm returns the maximum absolute row sum of the matrix.
func (a *Matrix) LInftyNorm() float64 { return a.norm(lapack.MaxRowSum) }

// FrobeniusNorm returns the square root of the sum of the squares of the
// elements of the matrix.
func (a *Matrix) FrobeniusNorm() float64 { return a.norm(lapack.Frobenius) }

// norm is only defined for Plain matrices and inverses. Symmetric matrices
// are read from their lower triangle.
func (a *Matrix) norm(kind lapack.MatrixNorm) float64 {
	a.begin(opNorm)
	a.mu.Lock()
	defer a.mu.Unlock()

	out := []float64{0}
	if a.grid.IsActive() {
		if a.property == Symmetric {
			out[0] = pblas.Plansy(a.ctx, kind, blas.Lower, a.operand())
		} else {
			out[0] = pblas.Plange(a.ctx, kind, a.operand())
		}
	}
	grid.SendToInactive(a.grid, out)
	return out[0]
}
