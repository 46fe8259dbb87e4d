package scalapack

import (
	"fmt"

	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/mpi"
	"github.com/phil-mansfield/bcmat/lib/pblas"
)

// unionTag is the tag of the communicators created for redistribution.
const unionTag = 5

// CopyTo copies the matrix into dest, which must have the same shape but
// may be distributed over a different grid with different blocks. dest
// takes on the state and property of the matrix. Every process of either
// grid's communicator must call CopyTo.
func (a *Matrix) CopyTo(dest *Matrix) {
	mustMatch("CopyTo", "source and destination rows", a.m, dest.m)
	mustMatch("CopyTo", "source and destination columns", a.n, dest.n)

	if a.grid != dest.grid || a.mb != dest.mb || a.nb != dest.nb {
		a.redistribute(dest)
	} else if a.grid.IsActive() {
		copy(dest.values, a.values)
	}
	dest.state = a.state
	dest.property = a.property
}

// redistribute moves the matrix into dest through a temporary grid which
// spans both of their grids.
func (a *Matrix) redistribute(dest *Matrix) {
	src, dst := a.grid.Comm(), dest.grid.Comm()
	union := mpi.Union(src.Group(), dst.Group())
	comm := src.World().CreateGroup(union, unionTag)
	defer comm.Free()

	g := grid.New(comm, comm.Size(), 1)
	defer g.Free()

	pblas.Gemr2d(a.m, a.n, a.operand(), a.ctx, 0, 0,
		dest.operand(), dest.ctx, 0, 0, g.Context())
}

// CopySubmatrixTo copies the size[0] x size[1] block of the matrix whose
// first element is offsetA into the block of dest whose first element is
// offsetB. Both matrices must be distributed over the same communicator,
// although their grids and blocks may differ. dest becomes Plain. An empty
// block is not copied.
func (a *Matrix) CopySubmatrixTo(dest *Matrix, offsetA, offsetB, size [2]int) {
	if size[0] == 0 || size[1] == 0 {
		return
	}
	if size[0] < 0 || size[1] < 0 ||
		offsetA[0] < 0 || offsetA[1] < 0 || offsetB[0] < 0 || offsetB[1] < 0 ||
		offsetA[0]+size[0] > a.m || offsetA[1]+size[1] > a.n ||
		offsetB[0]+size[0] > dest.m || offsetB[1]+size[1] > dest.n {
		panic(fmt.Sprintf("scalapack: a %d x %d block cannot be copied from "+
			"(%d, %d) of a %d x %d matrix to (%d, %d) of a %d x %d matrix.",
			size[0], size[1], offsetA[0], offsetA[1], a.m, a.n,
			offsetB[0], offsetB[1], dest.m, dest.n))
	}

	comm := a.grid.Comm()
	if mpi.Compare(comm, dest.grid.Comm()) != mpi.Ident {
		panic("scalapack: CopySubmatrixTo needs both matrices to be " +
			"distributed over the same communicator.")
	}

	g := grid.New(comm, comm.Size(), 1)
	defer g.Free()

	pblas.Gemr2d(size[0], size[1], a.operand(), a.ctx, offsetA[0], offsetA[1],
		dest.operand(), dest.ctx, offsetB[0], offsetB[1], g.Context())
	dest.state = Plain
}
