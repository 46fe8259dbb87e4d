package scalapack

import (
	"fmt"

	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// mustMatch panics if x != y.
func mustMatch(method, what string, x, y int) {
	if x != y {
		panic(fmt.Sprintf("scalapack: %s needs %s to match, but they are "+
			"%d and %d.", method, what, x, y))
	}
}

func (a *Matrix) mustShareGrid(method string, b *Matrix) {
	if a.grid != b.grid {
		panic(fmt.Sprintf("scalapack: %s needs both matrices to be "+
			"distributed over the same process grid.", method))
	}
}

// Add sets A = alpha*A + beta*op(B), where op(B) is B or its transpose.
// A and B must share a grid, and op(B) must have the shape and blocking of
// A. A becomes Plain.
func (a *Matrix) Add(b *Matrix, alpha, beta float64, transposeB bool) {
	if transposeB {
		mustMatch("Add", "A rows and B columns", a.m, b.n)
		mustMatch("Add", "A columns and B rows", a.n, b.m)
		mustMatch("Add", "A column blocks and B row blocks", a.nb, b.mb)
		mustMatch("Add", "A row blocks and B column blocks", a.mb, b.nb)
	} else {
		mustMatch("Add", "A rows and B rows", a.m, b.m)
		mustMatch("Add", "A columns and B columns", a.n, b.n)
		mustMatch("Add", "A column blocks and B column blocks", a.nb, b.nb)
		mustMatch("Add", "A row blocks and B row blocks", a.mb, b.mb)
	}
	a.mustShareGrid("Add", b)

	if a.grid.IsActive() {
		pblas.Pgeadd(a.ctx, transposeB, beta, b.operand(), alpha, a.operand())
	}
	a.state = Plain
}

// AddScaled sets A = A + s*B.
func (a *Matrix) AddScaled(s float64, b *Matrix) { a.Add(b, 1, s, false) }

// TAdd sets A = A + s*Bᵀ.
func (a *Matrix) TAdd(s float64, b *Matrix) { a.Add(b, 1, s, true) }

// CopyTransposed sets A = Bᵀ.
func (a *Matrix) CopyTransposed(b *Matrix) { a.Add(b, 0, 1, true) }

// Mult sets C = b*op(A)*op(B) + c*C. All three matrices must share a grid,
// and the shapes and blockings of op(A), op(B), and C must agree. C becomes
// Plain.
func (a *Matrix) Mult(b float64, B *Matrix, c float64, C *Matrix, transposeA, transposeB bool) {
	a.mustShareGrid("Mult", B)
	B.mustShareGrid("Mult", C)

	switch {
	case !transposeA && !transposeB:
		mustMatch("Mult", "A columns and B rows", a.n, B.m)
		mustMatch("Mult", "A rows and C rows", a.m, C.m)
		mustMatch("Mult", "B columns and C columns", B.n, C.n)
		mustMatch("Mult", "A row blocks and C row blocks", a.mb, C.mb)
		mustMatch("Mult", "A column blocks and B row blocks", a.nb, B.mb)
		mustMatch("Mult", "B column blocks and C column blocks", B.nb, C.nb)
	case transposeA && !transposeB:
		mustMatch("Mult", "A rows and B rows", a.m, B.m)
		mustMatch("Mult", "A columns and C rows", a.n, C.m)
		mustMatch("Mult", "B columns and C columns", B.n, C.n)
		mustMatch("Mult", "A column blocks and C row blocks", a.nb, C.mb)
		mustMatch("Mult", "A row blocks and B row blocks", a.mb, B.mb)
		mustMatch("Mult", "B column blocks and C column blocks", B.nb, C.nb)
	case !transposeA && transposeB:
		mustMatch("Mult", "A columns and B columns", a.n, B.n)
		mustMatch("Mult", "A rows and C rows", a.m, C.m)
		mustMatch("Mult", "B rows and C columns", B.m, C.n)
		mustMatch("Mult", "A row blocks and C row blocks", a.mb, C.mb)
		mustMatch("Mult", "A column blocks and B column blocks", a.nb, B.nb)
		mustMatch("Mult", "B row blocks and C column blocks", B.mb, C.nb)
	default:
		mustMatch("Mult", "A rows and B columns", a.m, B.n)
		mustMatch("Mult", "A columns and C rows", a.n, C.m)
		mustMatch("Mult", "B rows and C columns", B.m, C.n)
		mustMatch("Mult", "A column blocks and C row blocks", a.nb, C.mb)
		mustMatch("Mult", "A row blocks and B column blocks", a.mb, B.nb)
		mustMatch("Mult", "B row blocks and C column blocks", B.mb, C.nb)
	}

	if a.grid.IsActive() {
		pblas.Pgemm(a.ctx, transposeA, transposeB, b, a.operand(), B.operand(),
			c, C.operand())
	}
	C.state = Plain
}

func addingFactor(adding bool) float64 {
	if adding {
		return 1
	}
	return 0
}

// MMult sets C = A*B, or C += A*B if adding is set.
func (a *Matrix) MMult(C, B *Matrix, adding bool) {
	a.Mult(1, B, addingFactor(adding), C, false, false)
}

// TMMult sets C = Aᵀ*B, or C += Aᵀ*B if adding is set.
func (a *Matrix) TMMult(C, B *Matrix, adding bool) {
	a.Mult(1, B, addingFactor(adding), C, true, false)
}

// MTMult sets C = A*Bᵀ, or C += A*Bᵀ if adding is set.
func (a *Matrix) MTMult(C, B *Matrix, adding bool) {
	a.Mult(1, B, addingFactor(adding), C, false, true)
}

// TMTMult sets C = Aᵀ*Bᵀ, or C += Aᵀ*Bᵀ if adding is set.
func (a *Matrix) TMTMult(C, B *Matrix, adding bool) {
	a.Mult(1, B, addingFactor(adding), C, true, true)
}
