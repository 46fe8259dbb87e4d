package pblas

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

func transpose(t bool) blas.Transpose {
	if t {
		return blas.Trans
	}
	return blas.NoTrans
}

// opShape returns the shape of op(A).
func opShape(d Descriptor, t bool) (m, n int) {
	if t {
		return d.N, d.M
	}
	return d.M, d.N
}

// Pgeadd computes C = beta*C + alpha*op(A), where op(A) is A or its
// transpose. A and C must be distributed over ctx.
func Pgeadd(ctx Context, transA bool, alpha float64, a Operand, beta float64, c Operand) {
	ctx.checkActive("Pgeadd")
	am, an := opShape(a.Desc, transA)
	if am != c.Desc.M || an != c.Desc.N {
		panic(fmt.Sprintf("pblas: Pgeadd of a %d x %d op(A) into a %d x %d C.",
			am, an, c.Desc.M, c.Desc.N))
	}

	ga, gc := ctx.gather(a), ctx.gather(c)
	if ctx.isRoot() {
		for i := 0; i < gc.Rows; i++ {
			for j := 0; j < gc.Cols; j++ {
				var x float64
				if transA {
					x = ga.Data[j*ga.Stride+i]
				} else {
					x = ga.Data[i*ga.Stride+j]
				}
				gc.Data[i*gc.Stride+j] = beta*gc.Data[i*gc.Stride+j] + alpha*x
			}
		}
	}
	ctx.scatter(gc, c)
}

// Pgemm computes C = alpha*op(A)*op(B) + beta*C.
func Pgemm(
	ctx Context, transA, transB bool,
	alpha float64, a, b Operand, beta float64, c Operand,
) {
	ctx.checkActive("Pgemm")
	am, ak := opShape(a.Desc, transA)
	bk, bn := opShape(b.Desc, transB)
	if ak != bk || am != c.Desc.M || bn != c.Desc.N {
		panic(fmt.Sprintf("pblas: Pgemm of a %d x %d op(A) and a %d x %d "+
			"op(B) into a %d x %d C.", am, ak, bk, bn, c.Desc.M, c.Desc.N))
	}

	ga, gb, gc := ctx.gather(a), ctx.gather(b), ctx.gather(c)
	if ctx.isRoot() && gc.Rows > 0 && gc.Cols > 0 {
		blas64.Gemm(transpose(transA), transpose(transB), alpha, ga, gb, beta, gc)
	}
	ctx.scatter(gc, c)
}
