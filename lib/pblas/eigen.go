package pblas

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/lapack"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// FullReorthogonalization is the ScaLAPACK orfac value which asks for every
// eigenvector within a cluster to be reorthogonalized against the others.
// Syevx accepts it but does not need it; see Syevx.Orfac.
const FullReorthogonalization = 1e-3

// Syev computes all eigenvalues and, optionally, the eigenvectors of a
// symmetric matrix stored in the lower triangle of A. A is destroyed.
type Syev struct {
	Ctx     Context
	Vectors bool
	A       Operand
	// Z receives the eigenvectors as columns if Vectors is set. It must
	// have the same shape and distribution as A.
	Z Operand

	// W is set by Execute to the eigenvalues in ascending order.
	W []float64
}

func evJob(vectors bool) lapack.EVJob {
	if vectors {
		return lapack.EVCompute
	}
	return lapack.EVNone
}

// Query returns the workspace needed by Execute.
func (s *Syev) Query() WorkSize {
	n := s.A.Desc.N
	work := []float64{0}
	g := generalOf(n, n)
	lapack64.Syev(evJob(s.Vectors), symmetric(g, blas.Lower),
		make([]float64, n), work, -1)
	return WorkSize{Work: max(int(work[0]), 3*n-1, 1)}
}

// Execute runs the decomposition.
func (s *Syev) Execute(work *Workspace) (info int) {
	ctx := s.Ctx
	ctx.checkActive("Syev")
	size := s.Query()
	work.check("Syev", size)

	n := s.A.Desc.N
	s.W = make([]float64, n)
	g := ctx.gather(s.A)
	info = ctx.onRoot(func() int {
		ok := lapack64.Syev(evJob(s.Vectors), symmetric(g, blas.Lower),
			s.W, work.Work, size.Work)
		return status(ok)
	})
	ctx.share(s.W)
	if s.Vectors {
		ctx.scatter(g, s.Z)
	}
	return info
}

// EigenRange selects which eigenvalues Syevx computes.
type EigenRange int

const (
	AllEigenvalues EigenRange = iota
	IndexRange
	ValueRange
)

// Syevx computes a selected subset of the eigenvalues and, optionally, the
// eigenvectors of a symmetric matrix stored in the lower triangle of A.
// The subset is either the eigenvalues with indices IL..IU (0-based,
// inclusive, ascending order) or those in the half-open interval (VL, VU].
type Syevx struct {
	Ctx     Context
	Vectors bool
	Range   EigenRange
	IL, IU  int
	VL, VU  float64
	// Abstol (absolute eigenvalue tolerance) and Orfac (reorthogonalization
	// tolerance) are accepted for compatibility with the pdsyevx calling
	// convention only. They must be non-negative but do not change the
	// result: the subset is taken from a full decomposition, which is
	// already accurate to working precision with orthonormal vectors.
	Abstol, Orfac float64
	A             Operand
	// Z receives the selected eigenvectors in its first M columns. Its
	// remaining columns are zeroed.
	Z Operand

	// M is the number of eigenvalues found, and W[:M] holds them in
	// ascending order. Both are set by Execute.
	M int
	W []float64
}

// Query returns the workspace needed by Execute.
func (s *Syevx) Query() WorkSize {
	full := Syev{Vectors: s.Vectors, A: s.A}
	return full.Query()
}

// Execute runs the decomposition.
func (s *Syevx) Execute(work *Workspace) (info int) {
	ctx := s.Ctx
	ctx.checkActive("Syevx")
	size := s.Query()
	work.check("Syevx", size)

	n := s.A.Desc.N
	if s.Abstol < 0 || s.Orfac < 0 {
		panic(fmt.Sprintf("pblas: Syevx tolerances abstol = %g and orfac = "+
			"%g must be non-negative.", s.Abstol, s.Orfac))
	}
	switch s.Range {
	case AllEigenvalues:
	case IndexRange:
		if s.IL < 0 || s.IU >= n || s.IL > s.IU {
			panic(fmt.Sprintf("pblas: Syevx index range [%d, %d] is invalid "+
				"for a %d x %d matrix.", s.IL, s.IU, n, n))
		}
	case ValueRange:
		if math.IsNaN(s.VL) || math.IsNaN(s.VU) || s.VL >= s.VU {
			panic(fmt.Sprintf("pblas: Syevx value range (%g, %g] is invalid.",
				s.VL, s.VU))
		}
	default:
		panic(fmt.Sprintf("pblas: unknown EigenRange %d.", s.Range))
	}

	w := make([]float64, n)
	g := ctx.gather(s.A)
	sel := []float64{0, 0}
	info = ctx.onRoot(func() int {
		ok := lapack64.Syev(evJob(s.Vectors), symmetric(g, blas.Lower),
			w, work.Work, size.Work)
		if !ok {
			return 1
		}
		lo, hi := s.selection(w)
		sel[0], sel[1] = float64(lo), float64(hi)

		// Move the selected eigenvectors to the front.
		if s.Vectors {
			for i := 0; i < n; i++ {
				row := g.Data[i*g.Stride : i*g.Stride+n]
				copy(row, row[lo:hi])
				for j := hi - lo; j < n; j++ {
					row[j] = 0
				}
			}
		}
		return 0
	})
	ctx.share(w)
	ctx.share(sel)

	lo, hi := int(sel[0]), int(sel[1])
	s.M = hi - lo
	s.W = w[lo:hi]
	if s.Vectors {
		ctx.scatter(g, s.Z)
	}
	return info
}

// selection returns the half-open range of indices of the ascending
// eigenvalues w which the range selects.
func (s *Syevx) selection(w []float64) (lo, hi int) {
	switch s.Range {
	case IndexRange:
		return s.IL, s.IU + 1
	case ValueRange:
		lo, hi = 0, 0
		for lo < len(w) && w[lo] <= s.VL {
			lo++
		}
		for hi = lo; hi < len(w) && w[hi] <= s.VU; hi++ {
		}
		return lo, hi
	}
	return 0, len(w)
}
