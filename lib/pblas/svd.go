package pblas

import (
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// Gesvd computes the singular value decomposition A = U*Σ*Vᵀ of an m x n
// matrix. A is destroyed.
type Gesvd struct {
	Ctx Context
	A   Operand
	// U (m x m) and VT (n x n) receive the singular vectors when the
	// corresponding flag is set.
	WantU, WantVT bool
	U, VT         Operand

	// S is set by Execute to the min(m, n) singular values in descending
	// order.
	S []float64
}

func svdJob(want bool) lapack.SVDJob {
	if want {
		return lapack.SVDAll
	}
	return lapack.SVDNone
}

// shapes returns the replicated matrices of the decomposition. The vector
// matrices hold data only when they are wanted.
func (s *Gesvd) shapes() (a, u, vt blas64.General) {
	m, n := s.A.Desc.M, s.A.Desc.N
	a = generalOf(m, n)
	u = blas64.General{Stride: 1}
	if s.WantU {
		u = generalOf(m, m)
	}
	vt = blas64.General{Stride: 1}
	if s.WantVT {
		vt = generalOf(n, n)
	}
	return a, u, vt
}

func generalOf(m, n int) blas64.General {
	stride := max(1, n)
	return blas64.General{
		Rows: m, Cols: n, Stride: stride,
		Data: make([]float64, max(1, m*stride)),
	}
}

// Query returns the workspace needed by Execute. The query runs against
// full-sized scratch matrices, since gonum slices them while sizing the
// workspace of its subroutines.
func (s *Gesvd) Query() WorkSize {
	work := []float64{0}
	a, u, vt := s.shapes()
	sv := make([]float64, min(a.Rows, a.Cols))
	lapack64.Gesvd(svdJob(s.WantU), svdJob(s.WantVT), a, u, vt, sv, work, -1)
	return WorkSize{Work: max(1, int(work[0]))}
}

// Execute runs the decomposition.
func (s *Gesvd) Execute(work *Workspace) (info int) {
	ctx := s.Ctx
	ctx.checkActive("Gesvd")
	size := s.Query()
	work.check("Gesvd", size)

	m, n := s.A.Desc.M, s.A.Desc.N
	s.S = make([]float64, min(m, n))
	ga := ctx.gather(s.A)
	u, vt := blas64.General{Stride: 1}, blas64.General{Stride: 1}
	if ctx.isRoot() {
		_, u, vt = s.shapes()
	}

	info = ctx.onRoot(func() int {
		ok := lapack64.Gesvd(svdJob(s.WantU), svdJob(s.WantVT), ga, u, vt,
			s.S, work.Work, size.Work)
		return status(ok)
	})
	ctx.share(s.S)
	ctx.scatter(ga, s.A)
	if s.WantU {
		ctx.scatter(u, s.U)
	}
	if s.WantVT {
		ctx.scatter(vt, s.VT)
	}
	return info
}
