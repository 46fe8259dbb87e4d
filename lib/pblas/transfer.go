package pblas

import (
	"fmt"

	"gonum.org/v1/gonum/blas/blas64"

	"github.com/phil-mansfield/bcmat/lib/mpi"
)

// root is the rank of ctx.Comm which runs the serial routines.
const root = 0

func (ctx Context) isRoot() bool { return ctx.Comm.Rank() == root }

func (ctx Context) checkActive(routine string) {
	if !ctx.Active() {
		panic(fmt.Sprintf("pblas: %s called by a process outside the grid.", routine))
	}
}

// pack copies the local part of op into a contiguous column-major buffer.
func (ctx Context) pack(op Operand) []float64 {
	nr := op.Desc.Rows(ctx).Count(ctx.MyRow)
	nc := op.Desc.Cols(ctx).Count(ctx.MyCol)
	out := make([]float64, nr*nc)
	if nr == 0 {
		return out
	}
	for j := 0; j < nc; j++ {
		copy(out[j*nr:(j+1)*nr], op.Data[j*op.Desc.LLD:j*op.Desc.LLD+nr])
	}
	return out
}

// gather assembles op on the root process as a row-major general matrix.
// Other processes receive a zero value.
func (ctx Context) gather(op Operand) blas64.General {
	pieces := mpi.Gatherv(ctx.pack(op), root, ctx.Comm)
	if !ctx.isRoot() {
		return blas64.General{}
	}

	d := op.Desc
	g := blas64.General{
		Rows: d.M, Cols: d.N, Stride: max(1, d.N),
		Data: make([]float64, d.M*d.N),
	}
	rows, cols := d.Rows(ctx), d.Cols(ctx)
	for rank, piece := range pieces {
		prow, pcol := ctx.Coords(rank)
		nr, nc := rows.Count(prow), cols.Count(pcol)
		for lj := 0; lj < nc; lj++ {
			gj := cols.Global(lj, pcol)
			for li := 0; li < nr; li++ {
				gi := rows.Global(li, prow)
				g.Data[gi*g.Stride+gj] = piece[lj*nr+li]
			}
		}
	}
	return g
}

// scatter copies the row-major matrix held by the root process into the
// local buffers of op on every process. g is ignored off the root.
func (ctx Context) scatter(g blas64.General, op Operand) {
	d := op.Desc
	global := make([]float64, d.M*d.N)
	if ctx.isRoot() {
		for i := 0; i < d.M; i++ {
			copy(global[i*d.N:(i+1)*d.N], g.Data[i*g.Stride:i*g.Stride+d.N])
		}
	}
	mpi.Bcast(global, root, ctx.Comm)

	rows, cols := d.Rows(ctx), d.Cols(ctx)
	nr, nc := rows.Count(ctx.MyRow), cols.Count(ctx.MyCol)
	for lj := 0; lj < nc; lj++ {
		gj := cols.Global(lj, ctx.MyCol)
		for li := 0; li < nr; li++ {
			gi := rows.Global(li, ctx.MyRow)
			op.Data[lj*d.LLD+li] = global[gi*d.N+gj]
		}
	}
}

// onRoot runs f on the root process and shares its status code.
func (ctx Context) onRoot(f func() int) int {
	info := []int{0}
	if ctx.isRoot() {
		info[0] = f()
	}
	mpi.Bcast(info, root, ctx.Comm)
	return info[0]
}

// share broadcasts a float64 buffer from the root process.
func (ctx Context) share(buf []float64) {
	mpi.Bcast(buf, root, ctx.Comm)
}
