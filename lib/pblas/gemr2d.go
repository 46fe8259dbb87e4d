package pblas

import (
	"fmt"

	"github.com/phil-mansfield/bcmat/lib/layout"
	"github.com/phil-mansfield/bcmat/lib/mpi"
)

// holder is what one process of the union context knows about its piece
// of an operand.
type holder struct {
	present      bool
	nprow, npcol int
	row, col     int
	desc         Descriptor
}

const holderLen = 14

func encodeHolder(ctx Context, d Descriptor) []int {
	out := make([]int, 0, holderLen)
	if d.Present() && ctx.Active() {
		out = append(out, 1, ctx.NProw, ctx.NPcol, ctx.MyRow, ctx.MyCol)
	} else {
		out = append(out, 0, 0, 0, -1, -1)
	}
	flat := d.Flat()
	return append(out, flat[:]...)
}

func decodeHolder(x []int) holder {
	var flat [9]int
	copy(flat[:], x[5:])
	return holder{x[0] == 1, x[1], x[2], x[3], x[4], Unflatten(flat)}
}

// dims returns the row and column distributions of a present holder.
func (h holder) dims() (rows, cols layout.Dim) {
	rows = layout.Dim{N: h.desc.M, NB: h.desc.MB, NProcs: h.nprow, Src: h.desc.RSrc}
	cols = layout.Dim{N: h.desc.N, NB: h.desc.NB, NProcs: h.npcol, Src: h.desc.CSrc}
	return rows, cols
}

// Gemr2d copies the m x n submatrix of A whose first element is (ia, ja)
// into the submatrix of B whose first element is (ib, jb). A is
// distributed over aCtx and B over bCtx, and the two grids may differ in
// shape, block size, and membership. union must contain every process
// holding a piece of either matrix, and every process of union must call
// Gemr2d. Processes which hold no piece of an operand pass
// AbsentDescriptor() for it.
func Gemr2d(
	m, n int,
	a Operand, aCtx Context, ia, ja int,
	b Operand, bCtx Context, ib, jb int,
	union Context,
) {
	union.checkActive("Gemr2d")
	comm := union.Comm
	local := append(encodeHolder(aCtx, a.Desc), encodeHolder(bCtx, b.Desc)...)
	all := mpi.Allgather(local, comm)

	size := comm.Size()
	aHolders, bHolders := make([]holder, size), make([]holder, size)
	aRank, bRank := map[[2]int]int{}, map[[2]int]int{}
	aRef, bRef := -1, -1
	for r := range all {
		aHolders[r] = decodeHolder(all[r][:holderLen])
		bHolders[r] = decodeHolder(all[r][holderLen:])
		if aHolders[r].present {
			aRank[[2]int{aHolders[r].row, aHolders[r].col}] = r
			if aRef == -1 {
				aRef = r
			}
		}
		if bHolders[r].present {
			bRank[[2]int{bHolders[r].row, bHolders[r].col}] = r
			if bRef == -1 {
				bRef = r
			}
		}
	}
	if m == 0 || n == 0 {
		return
	}
	if aRef == -1 || bRef == -1 {
		panic("pblas: Gemr2d called without any process holding A or B.")
	}

	aRows, aCols := aHolders[aRef].dims()
	bRows, bCols := bHolders[bRef].dims()
	if ia+m > aRows.N || ja+n > aCols.N || ib+m > bRows.N || jb+n > bCols.N ||
		ia < 0 || ja < 0 || ib < 0 || jb < 0 {
		panic(fmt.Sprintf("pblas: Gemr2d of a %d x %d block from (%d, %d) of "+
			"a %d x %d A to (%d, %d) of a %d x %d B.", m, n, ia, ja,
			aRows.N, aCols.N, ib, jb, bRows.N, bCols.N))
	}

	me := comm.Rank()
	mine := aHolders[me]
	dest := bHolders[me]

	// Elements are visited in column-major order of the submatrix by both
	// senders and receivers, which fixes the order of each message.
	source := func(i, j int) int {
		return aRank[[2]int{aRows.Owner(ia + i), aCols.Owner(ja + j)}]
	}
	target := func(i, j int) int {
		return bRank[[2]int{bRows.Owner(ib + i), bCols.Owner(jb + j)}]
	}

	sendBufs := make([][]float64, size)
	recvCounts := make([]int, size)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			src, dst := source(i, j), target(i, j)
			if src == me {
				li := aRows.Local(ia+i) + aCols.Local(ja+j)*mine.desc.LLD
				sendBufs[dst] = append(sendBufs[dst], a.Data[li])
			}
			if dst == me {
				recvCounts[src]++
			}
		}
	}

	send := []float64{}
	sendCounts, sendDisp := make([]int, size), make([]int, size)
	for r := range sendBufs {
		sendCounts[r], sendDisp[r] = len(sendBufs[r]), len(send)
		send = append(send, sendBufs[r]...)
	}
	recvDisp := make([]int, size)
	total := 0
	for r := range recvCounts {
		recvDisp[r] = total
		total += recvCounts[r]
	}
	recv := make([]float64, total)
	mpi.Alltoallv(send, sendCounts, sendDisp, recv, recvCounts, recvDisp, comm)

	if !dest.present {
		return
	}
	cursor := append([]int(nil), recvDisp...)
	for j := 0; j < n; j++ {
		for i := 0; i < m; i++ {
			if target(i, j) != me {
				continue
			}
			src := source(i, j)
			li := bRows.Local(ib+i) + bCols.Local(jb+j)*dest.desc.LLD
			b.Data[li] = recv[cursor[src]]
			cursor[src]++
		}
	}
}
