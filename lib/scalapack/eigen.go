package scalapack

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// EigenpairsSymmetric computes every eigenvalue of a Plain, Symmetric
// matrix and returns them in ascending order. If vectors is set, the
// matrix is overwritten with the eigenvectors as columns, becomes General,
// and enters the Eigenvalues state. Otherwise its values are destroyed and
// it becomes Unusable.
func (a *Matrix) EigenpairsSymmetric(vectors bool) ([]float64, error) {
	return a.eigenpairs(vectors, pblas.AllEigenvalues, 0, 0, 0, 0)
}

// EigenpairsSymmetricByIndex is EigenpairsSymmetric restricted to the
// eigenvalues with the indices lo..hi, inclusive, in ascending order. If
// vectors is set, the corresponding eigenvectors are stored in the first
// columns of the matrix.
func (a *Matrix) EigenpairsSymmetricByIndex(lo, hi int, vectors bool) ([]float64, error) {
	if lo < 0 || lo >= a.n || hi < 0 || hi >= a.n {
		panic(fmt.Sprintf("scalapack: the eigenvalue indices %d and %d must "+
			"be in the range [0, %d).", lo, hi, a.n))
	}
	lo, hi = min(lo, hi), max(lo, hi)
	if lo == 0 && hi == a.n-1 {
		return a.EigenpairsSymmetric(vectors)
	}
	return a.eigenpairs(vectors, pblas.IndexRange, lo, hi, 0, 0)
}

// EigenpairsSymmetricByValue is EigenpairsSymmetric restricted to the
// eigenvalues in the half-open interval (lo, hi].
func (a *Matrix) EigenpairsSymmetricByValue(lo, hi float64, vectors bool) ([]float64, error) {
	if math.IsNaN(lo) || math.IsNaN(hi) {
		panic(fmt.Sprintf("scalapack: the eigenvalue limits (%g, %g] "+
			"contain a NaN.", lo, hi))
	}
	lo, hi = math.Min(lo, hi), math.Max(lo, hi)
	if lo == hi {
		panic(fmt.Sprintf("scalapack: the eigenvalue limits (%g, %g] "+
			"describe an empty interval.", lo, hi))
	}
	return a.eigenpairs(vectors, pblas.ValueRange, 0, 0, lo, hi)
}

func (a *Matrix) eigenpairs(
	vectors bool, rng pblas.EigenRange, il, iu int, vl, vu float64,
) ([]float64, error) {
	a.begin(opEigen)
	a.mu.Lock()
	defer a.mu.Unlock()

	var z *Matrix
	if vectors {
		// z must share the blocking of A, since its buffer replaces A's.
		z = New(a.m, a.n, a.grid, a.mb, a.nb, a.property)
	}

	routine := "Syev"
	if rng != pblas.AllEigenvalues {
		routine = "Syevx"
	}

	hdr := []int{0, a.n}
	var w []float64
	if a.grid.IsActive() {
		var zop pblas.Operand
		if vectors {
			zop = z.operand()
		}

		if rng == pblas.AllEigenvalues {
			syev := &pblas.Syev{Ctx: a.ctx, Vectors: vectors, A: a.operand(), Z: zop}
			a.work.Reserve(syev.Query())
			hdr[0] = syev.Execute(&a.work)
			w = syev.W
		} else {
			syevx := &pblas.Syevx{
				Ctx: a.ctx, Vectors: vectors, Range: rng,
				IL: il, IU: iu, VL: vl, VU: vu,
				Abstol: 2 * pblas.SafeMinimum,
				Orfac:  pblas.FullReorthogonalization,
				A:      a.operand(), Z: zop,
			}
			a.work.Reserve(syevx.Query())
			hdr[0] = syevx.Execute(&a.work)
			hdr[1] = syevx.M
			w = syevx.W
		}

		if vectors {
			a.values, z.values = z.values, a.values
		}
	}

	grid.SendToInactive(a.grid, hdr)
	if !a.grid.IsActive() {
		w = make([]float64, hdr[1])
	}
	grid.SendToInactive(a.grid, w)
	if err := pblas.Check(routine, hdr[0]); err != nil {
		return nil, err
	}

	if vectors {
		a.property = General
		a.state = Eigenvalues
	} else {
		a.state = Unusable
	}
	return w, nil
}
