/*package scalapack implements dense matrices which are distributed over a
two-dimensional process grid in the block-cyclic layout.

Every operation on a Matrix is collective: all processes of the grid's
communicator must call it in the same order, including the inactive
processes which hold no piece of the matrix. Results which reduce to
scalars or short arrays (norms, condition numbers, eigenvalues, singular
values) are returned on every process.

The values of a matrix go through a small state machine. SetFrom and the
arithmetic operations leave a Plain matrix, factorizations and
decompositions move it into the state describing what its values now hold,
and operations panic when called in a state in which their input would be
meaningless.
*/
package scalapack

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/layout"
	"github.com/phil-mansfield/bcmat/lib/mpi"
	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// Matrix is an m x n matrix distributed over a process grid with mb x nb
// blocks. Local values are stored in column-major order.
//
// A Matrix is used by one goroutine per process. The workspace of the
// two-phase kernels is guarded by a mutex, but nothing else is.
type Matrix struct {
	m, n   int
	mb, nb int

	grid *grid.ProcessGrid
	ctx  pblas.Context
	desc pblas.Descriptor

	nLocalRows, nLocalCols int
	values                 []float64

	state    State
	property Property

	mu   sync.Mutex
	work pblas.Workspace
}

// New creates an m x n matrix of zeros with mb x nb blocks over g. It must
// be called by every process of g's communicator.
func New(m, n int, g *grid.ProcessGrid, mb, nb int, property Property) *Matrix {
	if m < 1 || n < 1 {
		panic(fmt.Sprintf("scalapack: a matrix must have at least one row "+
			"and column, but %d x %d was requested.", m, n))
	}
	if mb < 1 || mb > m || nb < 1 || nb > n {
		panic(fmt.Sprintf("scalapack: the block size %d x %d is not valid "+
			"for a %d x %d matrix. Each block dimension must be between 1 "+
			"and the matrix dimension.", mb, nb, m, n))
	}

	a := &Matrix{
		m: m, n: n, mb: mb, nb: nb, grid: g, ctx: g.Context(),
		state: Plain, property: property,
	}
	a.desc = pblas.NewDescriptor(m, n, mb, nb, a.ctx)
	if g.IsActive() {
		a.nLocalRows = layout.Numroc(m, mb, g.ThisProcessRow(), 0, g.NProcessRows())
		a.nLocalCols = layout.Numroc(n, nb, g.ThisProcessColumn(), 0, g.NProcessColumns())
		a.values = make([]float64, a.desc.LLD*a.nLocalCols)
	}
	return a
}

// NewSquare creates an n x n matrix with nb x nb blocks.
func NewSquare(n int, g *grid.ProcessGrid, nb int, property Property) *Matrix {
	return New(n, n, g, nb, nb, property)
}

// M returns the number of rows of the matrix.
func (a *Matrix) M() int { return a.m }

// N returns the number of columns of the matrix.
func (a *Matrix) N() int { return a.n }

// RowBlockSize returns the number of rows in a block.
func (a *Matrix) RowBlockSize() int { return a.mb }

// ColumnBlockSize returns the number of columns in a block.
func (a *Matrix) ColumnBlockSize() int { return a.nb }

// LocalM returns the number of rows stored by the calling process.
func (a *Matrix) LocalM() int { return a.nLocalRows }

// LocalN returns the number of columns stored by the calling process.
func (a *Matrix) LocalN() int { return a.nLocalCols }

// Grid returns the process grid the matrix is distributed over.
func (a *Matrix) Grid() *grid.ProcessGrid { return a.grid }

// Descriptor returns the kernel descriptor of the calling process's piece.
func (a *Matrix) Descriptor() pblas.Descriptor { return a.desc }

// State returns the state of the matrix.
func (a *Matrix) State() State { return a.state }

// Property returns the property of the matrix.
func (a *Matrix) Property() Property { return a.property }

// SetProperty declares a property of the matrix. The values are not
// checked against it.
func (a *Matrix) SetProperty(p Property) { a.property = p }

func (a *Matrix) checkActive(method string) {
	if !a.grid.IsActive() {
		panic(fmt.Sprintf("scalapack: %s called on a process outside the "+
			"matrix's grid.", method))
	}
}

// GlobalRow returns the global index of local row li.
func (a *Matrix) GlobalRow(li int) int {
	a.checkActive("GlobalRow")
	if li < 0 || li >= a.nLocalRows {
		panic(fmt.Sprintf("scalapack: local row %d out of range [0, %d).",
			li, a.nLocalRows))
	}
	return layout.LocalToGlobal(li, a.mb, a.grid.ThisProcessRow(), 0,
		a.grid.NProcessRows())
}

// GlobalColumn returns the global index of local column lj.
func (a *Matrix) GlobalColumn(lj int) int {
	a.checkActive("GlobalColumn")
	if lj < 0 || lj >= a.nLocalCols {
		panic(fmt.Sprintf("scalapack: local column %d out of range [0, %d).",
			lj, a.nLocalCols))
	}
	return layout.LocalToGlobal(lj, a.nb, a.grid.ThisProcessColumn(), 0,
		a.grid.NProcessColumns())
}

// LocalEl returns the local element (li, lj).
func (a *Matrix) LocalEl(li, lj int) float64 {
	return a.values[li+lj*a.desc.LLD]
}

// SetLocalEl sets the local element (li, lj).
func (a *Matrix) SetLocalEl(li, lj int, x float64) {
	a.values[li+lj*a.desc.LLD] = x
}

func (a *Matrix) operand() pblas.Operand {
	return pblas.Operand{Desc: a.desc, Data: a.values}
}

// SetFrom copies the elements of full which the calling process owns into
// the matrix. full must hold the same matrix on every process. The matrix
// becomes Plain.
func (a *Matrix) SetFrom(full mat.Matrix) {
	r, c := full.Dims()
	if r != a.m || c != a.n {
		panic(fmt.Sprintf("scalapack: cannot set a %d x %d matrix from a "+
			"%d x %d one.", a.m, a.n, r, c))
	}
	if a.grid.IsActive() {
		for lj := 0; lj < a.nLocalCols; lj++ {
			j := a.GlobalColumn(lj)
			for li := 0; li < a.nLocalRows; li++ {
				a.values[li+lj*a.desc.LLD] = full.At(a.GlobalRow(li), j)
			}
		}
	}
	a.state = Plain
}

// CopyToDense assembles the whole matrix in full on every process. Triangular
// matrices are completed: the unset triangle is zero, or the mirror of the
// set one if the matrix holds an inverse.
func (a *Matrix) CopyToDense(full *mat.Dense) {
	r, c := full.Dims()
	if r != a.m || c != a.n {
		panic(fmt.Sprintf("scalapack: cannot copy a %d x %d matrix into a "+
			"%d x %d one.", a.m, a.n, r, c))
	}

	buf := make([]float64, a.m*a.n)
	if a.grid.IsActive() {
		for lj := 0; lj < a.nLocalCols; lj++ {
			j := a.GlobalColumn(lj)
			for li := 0; li < a.nLocalRows; li++ {
				buf[a.GlobalRow(li)*a.n+j] = a.values[li+lj*a.desc.LLD]
			}
		}
	}
	sum := make([]float64, len(buf))
	mpi.Allreduce(buf, sum, mpi.OpSum, a.grid.Comm())
	for i := 0; i < a.m; i++ {
		for j := 0; j < a.n; j++ {
			full.Set(i, j, sum[i*a.n+j])
		}
	}

	switch a.property {
	case LowerTriangular:
		for i := 0; i < a.m; i++ {
			for j := i + 1; j < a.n; j++ {
				full.Set(i, j, a.mirror(full, j, i))
			}
		}
	case UpperTriangular:
		for i := 0; i < a.m; i++ {
			for j := 0; j < min(i, a.n); j++ {
				full.Set(i, j, a.mirror(full, j, i))
			}
		}
	}
}

// mirror returns element (i, j) of full for inverses, which are square, and
// zero otherwise.
func (a *Matrix) mirror(full *mat.Dense, i, j int) float64 {
	if a.state == InverseMatrix {
		return full.At(i, j)
	}
	return 0
}

// ScaleColumns multiplies column j by factors[j].
func (a *Matrix) ScaleColumns(factors []float64) {
	if len(factors) != a.n {
		panic(fmt.Sprintf("scalapack: %d column factors given for a matrix "+
			"with %d columns.", len(factors), a.n))
	}
	if !a.grid.IsActive() {
		return
	}
	for lj := 0; lj < a.nLocalCols; lj++ {
		s := factors[a.GlobalColumn(lj)]
		col := a.values[lj*a.desc.LLD : lj*a.desc.LLD+a.nLocalRows]
		for li := range col {
			col[li] *= s
		}
	}
}

// ScaleRows multiplies row i by factors[i].
func (a *Matrix) ScaleRows(factors []float64) {
	if len(factors) != a.m {
		panic(fmt.Sprintf("scalapack: %d row factors given for a matrix "+
			"with %d rows.", len(factors), a.m))
	}
	if !a.grid.IsActive() {
		return
	}
	for li := 0; li < a.nLocalRows; li++ {
		s := factors[a.GlobalRow(li)]
		for lj := 0; lj < a.nLocalCols; lj++ {
			a.values[li+lj*a.desc.LLD] *= s
		}
	}
}
