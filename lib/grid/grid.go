/*package grid arranges the processes of a communicator into a
two-dimensional process grid. The first R*C ranks of the communicator are
laid out over an R x C grid in column-major order, so rank r sits at row
r % R and column r / R. Any remaining ranks are inactive: they own no piece
of the matrices distributed over the grid, but they still take part in
every collective operation and receive the results which are reduced to a
scalar or a short array through SendToInactive.
*/
package grid

import (
	"fmt"
	"math"

	"github.com/phil-mansfield/bcmat/lib/mpi"
	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// ProcessGrid is a two-dimensional arrangement of the processes of a
// communicator. It is created and freed collectively.
type ProcessGrid struct {
	comm *mpi.Comm
	// active contains the processes inside the grid. inactive contains
	// rank 0 and the processes outside the grid, and only exists if there
	// are such processes.
	active, inactive *mpi.Comm

	nRows, nCols int
	row, col     int
}

// New creates an nRows x nColumns grid over comm. The grid may be smaller
// than comm, but not larger.
func New(comm *mpi.Comm, nRows, nColumns int) *ProcessGrid {
	if nRows < 1 || nColumns < 1 {
		panic(fmt.Sprintf("grid: a process grid must have at least one row "+
			"and column, but %d x %d was requested.", nRows, nColumns))
	}
	if nRows*nColumns > comm.Size() {
		panic(fmt.Sprintf("grid: a %d x %d process grid needs %d processes, "+
			"but the communicator only has %d.", nRows, nColumns,
			nRows*nColumns, comm.Size()))
	}

	g := &ProcessGrid{comm: comm, nRows: nRows, nCols: nColumns, row: -1, col: -1}
	rank, nActive := comm.Rank(), nRows*nColumns

	color := mpi.Undefined
	if rank < nActive {
		color = 0
		g.row, g.col = rank%nRows, rank/nRows
	}
	g.active = comm.Split(color, rank)

	if nActive < comm.Size() {
		color = mpi.Undefined
		if rank == 0 || rank >= nActive {
			color = 0
		}
		g.inactive = comm.Split(color, rank)
	}
	return g
}

// NewForMatrix creates a grid suited to an m x n matrix with mb x nb
// blocks. It never uses more processes than there are blocks, and it
// shapes the grid after the aspect ratio of the matrix.
func NewForMatrix(comm *mpi.Comm, m, n, mb, nb int) *ProcessGrid {
	if m < 1 || n < 1 || mb < 1 || nb < 1 {
		panic(fmt.Sprintf("grid: cannot size a grid for a %d x %d matrix "+
			"with %d x %d blocks.", m, n, mb, nb))
	}
	nRows, nCols := Shape(comm.Size(), m, n, mb, nb)
	return New(comm, nRows, nCols)
}

// Shape returns the grid shape NewForMatrix would pick for nProcs
// processes.
func Shape(nProcs, m, n, mb, nb int) (nRows, nCols int) {
	blocks := ceilDiv(m, mb) * ceilDiv(n, nb)
	np := min(blocks, nProcs)

	ratio := float64(n) / float64(m)
	pc := int(math.Sqrt(ratio * float64(np)))
	nCols = min(np, max(2, pc))
	nRows = np / nCols
	return nRows, nCols
}

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// Comm returns the communicator the grid was created over.
func (g *ProcessGrid) Comm() *mpi.Comm { return g.comm }

// NProcessRows returns the number of rows of the grid.
func (g *ProcessGrid) NProcessRows() int { return g.nRows }

// NProcessColumns returns the number of columns of the grid.
func (g *ProcessGrid) NProcessColumns() int { return g.nCols }

// ThisProcessRow returns the grid row of the calling process, or -1 if it
// is inactive.
func (g *ProcessGrid) ThisProcessRow() int { return g.row }

// ThisProcessColumn returns the grid column of the calling process, or -1
// if it is inactive.
func (g *ProcessGrid) ThisProcessColumn() int { return g.col }

// IsActive returns true if the calling process is part of the grid.
func (g *ProcessGrid) IsActive() bool { return g.active != nil }

// NInactive returns the number of processes of Comm() outside the grid.
func (g *ProcessGrid) NInactive() int {
	return g.comm.Size() - g.nRows*g.nCols
}

// Context returns the kernel context of the grid.
func (g *ProcessGrid) Context() pblas.Context {
	if !g.IsActive() {
		return pblas.AbsentContext()
	}
	return pblas.Context{
		Handle: g.active.ID(), Comm: g.active,
		NProw: g.nRows, NPcol: g.nCols,
		MyRow: g.row, MyCol: g.col,
	}
}

// SendToInactive copies buf from rank 0 of the grid's communicator to every
// inactive process. Every process of the communicator must call it with a
// buffer of the same length. It does nothing if there are no inactive
// processes.
func SendToInactive[T any](g *ProcessGrid, buf []T) {
	if g.inactive == nil {
		return
	}
	mpi.Bcast(buf, 0, g.inactive)
}

// Free releases the communicators owned by the grid. The communicator the
// grid was created over is left alone.
func (g *ProcessGrid) Free() {
	if g.active != nil {
		g.active.Free()
	}
	if g.inactive != nil {
		g.inactive.Free()
	}
}
