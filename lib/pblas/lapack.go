package pblas

import (
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
	"gonum.org/v1/gonum/lapack/lapack64"
)

// SafeMinimum is the smallest normalized double, the "safe minimum" of
// LAPACK's machine constants.
const SafeMinimum = 2.2250738585072014e-308

func symmetric(g blas64.General, uplo blas.Uplo) blas64.Symmetric {
	return blas64.Symmetric{N: g.Rows, Data: g.Data, Stride: g.Stride, Uplo: uplo}
}

func triangular(g blas64.General, uplo blas.Uplo) blas64.Triangular {
	return blas64.Triangular{
		N: g.Rows, Data: g.Data, Stride: g.Stride, Uplo: uplo, Diag: blas.NonUnit,
	}
}

// Ppotrf computes the Cholesky factorization A = L*Lᵀ of a symmetric
// positive definite matrix. Only the lower triangle of A is read and
// overwritten with L. It returns a non-zero status if A is not positive
// definite.
func Ppotrf(ctx Context, a Operand) (info int) {
	ctx.checkActive("Ppotrf")
	g := ctx.gather(a)
	info = ctx.onRoot(func() int {
		_, ok := lapack64.Potrf(symmetric(g, blas.Lower))
		return status(ok)
	})
	ctx.scatter(g, a)
	return info
}

// Ppotri computes the inverse of a symmetric positive definite matrix from
// the lower Cholesky factor computed by Ppotrf. The lower triangle of the
// inverse overwrites the factor.
func Ppotri(ctx Context, a Operand) (info int) {
	ctx.checkActive("Ppotri")
	g := ctx.gather(a)
	info = ctx.onRoot(func() int {
		_, ok := lapack64.Potri(triangular(g, blas.Lower))
		return status(ok)
	})
	ctx.scatter(g, a)
	return info
}

// Plange returns the given norm of a general matrix.
func Plange(ctx Context, norm lapack.MatrixNorm, a Operand) float64 {
	ctx.checkActive("Plange")
	g := ctx.gather(a)
	out := []float64{0}
	if ctx.isRoot() {
		out[0] = lapack64.Lange(norm, g, make([]float64, g.Cols))
	}
	ctx.share(out)
	return out[0]
}

// Plansy returns the given norm of a symmetric matrix stored in the uplo
// triangle of a.
func Plansy(ctx Context, norm lapack.MatrixNorm, uplo blas.Uplo, a Operand) float64 {
	ctx.checkActive("Plansy")
	g := ctx.gather(a)
	out := []float64{0}
	if ctx.isRoot() {
		out[0] = lapack64.Lansy(norm, symmetric(g, uplo), make([]float64, g.Rows))
	}
	ctx.share(out)
	return out[0]
}

// Pocon estimates the reciprocal condition number in the 1-norm of a
// symmetric positive definite matrix from its lower Cholesky factor. ANorm
// is the 1-norm of the original matrix.
type Pocon struct {
	Ctx   Context
	A     Operand
	ANorm float64

	// RCond is set by Execute on every active process.
	RCond float64
}

// Query returns the workspace needed by Execute.
func (p *Pocon) Query() WorkSize {
	n := p.A.Desc.N
	return WorkSize{Work: max(1, 3*n), IWork: max(1, n)}
}

// Execute runs the estimate.
func (p *Pocon) Execute(work *Workspace) (info int) {
	p.Ctx.checkActive("Pocon")
	work.check("Pocon", p.Query())
	g := p.Ctx.gather(p.A)
	out := []float64{0}
	if p.Ctx.isRoot() {
		out[0] = lapack64.Pocon(symmetric(g, blas.Lower), p.ANorm, work.Work, work.IWork)
	}
	p.Ctx.share(out)
	p.RCond = out[0]
	if math.IsNaN(p.RCond) {
		return 1
	}
	return 0
}

// Gels solves the overdetermined or square least squares problem
// min ||op(A)*X - B|| by QR factorization. The solution overwrites the
// first columns-of-op(A) rows of B. A is overwritten by its factorization.
type Gels struct {
	Ctx    Context
	TransA bool
	A, B   Operand
}

// Query returns the workspace needed by Execute.
func (g *Gels) Query() WorkSize {
	work := []float64{0}
	a, b := g.A.Desc, g.B.Desc
	lapack64.Gels(transpose(g.TransA), generalOf(a.M, a.N),
		generalOf(max(a.M, a.N), b.N), work, -1)
	return WorkSize{Work: int(work[0])}
}

// Execute runs the solve.
func (g *Gels) Execute(work *Workspace) (info int) {
	ctx := g.Ctx
	ctx.checkActive("Gels")
	size := g.Query()
	work.check("Gels", size)

	ga, gb := ctx.gather(g.A), ctx.gather(g.B)
	info = ctx.onRoot(func() int {
		// B must have max(m, n) rows for the solver.
		rows := max(ga.Rows, ga.Cols)
		full := blas64.General{
			Rows: rows, Cols: gb.Cols, Stride: gb.Stride,
			Data: make([]float64, rows*gb.Stride),
		}
		copy(full.Data, gb.Data)
		ok := lapack64.Gels(transpose(g.TransA), ga, full, work.Work, size.Work)
		copy(gb.Data, full.Data[:len(gb.Data)])
		return status(ok)
	})
	ctx.scatter(ga, g.A)
	ctx.scatter(gb, g.B)
	return info
}
