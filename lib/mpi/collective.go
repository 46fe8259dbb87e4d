package mpi

import (
	"fmt"
)

// Number is the set of element types which can be reduced.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Op is a reduction operator.
type Op int

const (
	OpSum Op = iota
	OpMax
	OpMin
)

func clone[T any](x []T) []T {
	return append(make([]T, 0, len(x)), x...)
}

// Barrier blocks until every member of comm has called it.
func Barrier(comm *Comm) {
	comm.exchange(nil)
}

// Bcast copies buffer on root into buffer on every other member of comm.
// All buffers must have the same length.
func Bcast[T any](buffer []T, root int, comm *Comm) {
	var v any
	if comm.Rank() == root {
		v = clone(buffer)
	}
	contrib := comm.exchange(v)
	if comm.Rank() == root {
		return
	}
	src := contrib[root].([]T)
	if len(src) != len(buffer) {
		panic(fmt.Sprintf("mpi: Bcast sent %d elements from rank %d, but "+
			"rank %d's buffer has length %d.", len(src), root, comm.Rank(),
			len(buffer)))
	}
	copy(buffer, src)
}

// Gather concatenates every member's send buffer, in rank order, into recv
// on root. Every send buffer must have the same length, and recv must have
// Size() times that length on root. recv is ignored elsewhere.
func Gather[T any](send, recv []T, root int, comm *Comm) {
	contrib := comm.exchange(clone(send))
	if comm.Rank() != root {
		return
	}
	if len(recv) != len(send)*comm.Size() {
		panic(fmt.Sprintf("mpi: Gather into a buffer of length %d from %d "+
			"ranks sending %d elements each.", len(recv), comm.Size(), len(send)))
	}
	for i, v := range contrib {
		src := v.([]T)
		if len(src) != len(send) {
			panic(fmt.Sprintf("mpi: Gather expected %d elements from rank "+
				"%d, got %d.", len(send), i, len(src)))
		}
		copy(recv[i*len(send):], src)
	}
}

// Gatherv returns every member's send buffer, indexed by rank, on root and
// nil elsewhere. The buffers may have different lengths.
func Gatherv[T any](send []T, root int, comm *Comm) [][]T {
	contrib := comm.exchange(clone(send))
	if comm.Rank() != root {
		return nil
	}
	out := make([][]T, len(contrib))
	for i, v := range contrib {
		out[i] = v.([]T)
	}
	return out
}

// Scatter splits send on root into Size() equal pieces and copies piece i
// into recv on rank i.
func Scatter[T any](send, recv []T, root int, comm *Comm) {
	var v any
	if comm.Rank() == root {
		if len(send) != len(recv)*comm.Size() {
			panic(fmt.Sprintf("mpi: Scatter of %d elements to %d ranks "+
				"receiving %d elements each.", len(send), comm.Size(), len(recv)))
		}
		v = clone(send)
	}
	contrib := comm.exchange(v)
	src := contrib[root].([]T)
	n := len(recv)
	copy(recv, src[comm.Rank()*n:(comm.Rank()+1)*n])
}

// Allgather returns every member's send buffer, indexed by rank. The
// buffers may have different lengths. The returned slices are owned by the
// caller.
func Allgather[T any](send []T, comm *Comm) [][]T {
	contrib := comm.exchange(clone(send))
	out := make([][]T, len(contrib))
	for i, v := range contrib {
		out[i] = clone(v.([]T))
	}
	return out
}

// Alltoallv sends send[sendDisp[i]:sendDisp[i]+sendCounts[i]] to rank i and
// receives the block rank i sent to the caller into
// recv[recvDisp[i]:recvDisp[i]+recvCounts[i]].
func Alltoallv[T any](
	send []T, sendCounts, sendDisp []int,
	recv []T, recvCounts, recvDisp []int, comm *Comm,
) {
	n := comm.Size()
	if len(sendCounts) != n || len(sendDisp) != n ||
		len(recvCounts) != n || len(recvDisp) != n {
		panic(fmt.Sprintf("mpi: Alltoallv on %d ranks given count and "+
			"displacement arrays of lengths %d, %d, %d, and %d.", n,
			len(sendCounts), len(sendDisp), len(recvCounts), len(recvDisp)))
	}

	blocks := make([][]T, n)
	for i := range blocks {
		blocks[i] = clone(send[sendDisp[i] : sendDisp[i]+sendCounts[i]])
	}
	contrib := comm.exchange(blocks)

	for i, v := range contrib {
		src := v.([][]T)[comm.Rank()]
		if len(src) != recvCounts[i] {
			panic(fmt.Sprintf("mpi: rank %d expected %d elements from rank "+
				"%d in Alltoallv, but %d were sent.", comm.Rank(),
				recvCounts[i], i, len(src)))
		}
		copy(recv[recvDisp[i]:], src)
	}
}

// Allreduce combines the send buffers of every member elementwise with op
// and writes the result into recv on every member. send and recv may be the
// same slice.
func Allreduce[T Number](send, recv []T, op Op, comm *Comm) {
	contrib := comm.exchange(clone(send))
	if len(recv) != len(send) {
		panic(fmt.Sprintf("mpi: Allreduce of %d elements into a buffer of "+
			"length %d.", len(send), len(recv)))
	}

	out := clone(contrib[0].([]T))
	for i := 1; i < len(contrib); i++ {
		src := contrib[i].([]T)
		if len(src) != len(out) {
			panic(fmt.Sprintf("mpi: Allreduce expected %d elements from "+
				"rank %d, got %d.", len(out), i, len(src)))
		}
		for j := range out {
			switch op {
			case OpSum:
				out[j] += src[j]
			case OpMax:
				out[j] = max(out[j], src[j])
			case OpMin:
				out[j] = min(out[j], src[j])
			default:
				panic(fmt.Sprintf("mpi: unknown reduction operator %d.", op))
			}
		}
	}
	copy(recv, out)
}
