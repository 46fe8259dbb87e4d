/*package pblas implements the distributed dense kernels used by bcmat. Every
kernel takes one Operand per matrix: a Descriptor that says how the matrix
is laid out over a process grid and the calling process's local buffer.

Local buffers are column-major with leading dimension Descriptor.LLD. The
kernels are collective over the active processes of the grid described by
a Context. They move the operands to the grid's first process, run the
corresponding gonum routine on the assembled matrix, and move the results
back, so they are exact but not scalable. Scalar results and status codes
are returned identically on every active process.

Kernels which need scratch memory are split in two phases: Query reports
how much workspace the kernel needs and Execute runs it with a caller-owned
Workspace of at least that size.
*/
package pblas

import (
	"fmt"

	"github.com/phil-mansfield/bcmat/lib/layout"
	"github.com/phil-mansfield/bcmat/lib/mpi"
)

const (
	// DenseType is the descriptor type of a dense block-cyclic matrix.
	DenseType = 1
	// NoContext marks a process which holds no piece of an operand.
	NoContext = -1
)

// Context describes a process grid to the kernels. Processes outside the
// grid have Handle == NoContext and a nil Comm.
type Context struct {
	Handle       int
	Comm         *mpi.Comm
	NProw, NPcol int
	MyRow, MyCol int
}

// AbsentContext returns the Context of a process outside every grid.
func AbsentContext() Context {
	return Context{Handle: NoContext, MyRow: -1, MyCol: -1}
}

// Active returns true if the calling process is part of the grid.
func (ctx Context) Active() bool { return ctx.Handle != NoContext }

// Coords returns the grid coordinates of a rank of ctx.Comm. Ranks are laid
// out in column-major order.
func (ctx Context) Coords(rank int) (row, col int) {
	return rank % ctx.NProw, rank / ctx.NProw
}

// Rank returns the rank of ctx.Comm at the given grid coordinates.
func (ctx Context) Rank(row, col int) int {
	return row + col*ctx.NProw
}

// Descriptor is the metadata of a distributed matrix.
type Descriptor struct {
	Type    int
	Context int
	// M and N are the global dimensions and MB and NB the block sizes.
	M, N, MB, NB int
	// RSrc and CSrc are the grid coordinates owning the first block.
	RSrc, CSrc int
	// LLD is the leading dimension of the local buffer.
	LLD int
}

// NewDescriptor creates the descriptor of an m x n matrix with mb x nb
// blocks distributed over ctx starting at process (0, 0). On processes
// outside the grid it returns AbsentDescriptor().
func NewDescriptor(m, n, mb, nb int, ctx Context) Descriptor {
	if m < 0 || n < 0 || mb < 1 || nb < 1 {
		panic(fmt.Sprintf("pblas: invalid descriptor for a %d x %d matrix "+
			"with %d x %d blocks.", m, n, mb, nb))
	}
	if !ctx.Active() {
		return AbsentDescriptor()
	}
	d := Descriptor{
		Type: DenseType, Context: ctx.Handle,
		M: m, N: n, MB: mb, NB: nb,
	}
	d.LLD = max(1, d.Rows(ctx).Count(ctx.MyRow))
	return d
}

// AbsentDescriptor is the descriptor passed by processes which hold no
// piece of an operand.
func AbsentDescriptor() Descriptor {
	return Descriptor{-1, NoContext, -1, -1, -1, -1, -1, -1, -1}
}

// Present returns true if the descriptor refers to a piece of a matrix.
func (d Descriptor) Present() bool { return d.Context != NoContext }

// Flat returns the descriptor as the conventional array of nine integers.
func (d Descriptor) Flat() [9]int {
	return [9]int{d.Type, d.Context, d.M, d.N, d.MB, d.NB, d.RSrc, d.CSrc, d.LLD}
}

// Unflatten is the inverse of Flat.
func Unflatten(x [9]int) Descriptor {
	return Descriptor{x[0], x[1], x[2], x[3], x[4], x[5], x[6], x[7], x[8]}
}

// Rows returns the row distribution of the matrix over ctx.
func (d Descriptor) Rows(ctx Context) layout.Dim {
	return layout.Dim{N: d.M, NB: d.MB, NProcs: ctx.NProw, Src: d.RSrc}
}

// Cols returns the column distribution of the matrix over ctx.
func (d Descriptor) Cols(ctx Context) layout.Dim {
	return layout.Dim{N: d.N, NB: d.NB, NProcs: ctx.NPcol, Src: d.CSrc}
}

// Operand is a distributed matrix as seen by one process.
type Operand struct {
	Desc Descriptor
	Data []float64
}

// WorkSize is the amount of scratch memory a kernel needs.
type WorkSize struct {
	Work, IWork int
}

// Workspace is scratch memory for two-phase kernels. A Workspace must not
// be used by two kernels at once.
type Workspace struct {
	Work  []float64
	IWork []int
}

// Reserve grows the workspace so that it can hold size.
func (w *Workspace) Reserve(size WorkSize) {
	if len(w.Work) < size.Work {
		w.Work = make([]float64, size.Work)
	}
	if len(w.IWork) < size.IWork {
		w.IWork = make([]int, size.IWork)
	}
}

func (w *Workspace) check(routine string, size WorkSize) {
	if len(w.Work) < size.Work || len(w.IWork) < size.IWork {
		panic(fmt.Sprintf("pblas: %s needs a workspace of (%d, %d) "+
			"elements, but was given (%d, %d).", routine, size.Work,
			size.IWork, len(w.Work), len(w.IWork)))
	}
}

// KernelError is returned when a kernel reports a non-zero status.
type KernelError struct {
	Routine string
	Info    int
}

func (err *KernelError) Error() string {
	return fmt.Sprintf("pblas: %s returned the status code %d.", err.Routine, err.Info)
}

// Check converts the status code of a kernel into an error.
func Check(routine string, info int) error {
	if info == 0 {
		return nil
	}
	return &KernelError{Routine: routine, Info: info}
}

func status(ok bool) int {
	if ok {
		return 0
	}
	return 1
}
