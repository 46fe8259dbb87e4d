package mpi

import (
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/bcmat/lib/eq"
)

func TestBcast(t *testing.T) {
	for _, size := range []int{1, 2, 5} {
		for root := 0; root < size; root++ {
			err := Run(size, func(comm *Comm) error {
				buf := []int64{-1, -1, -1}
				if comm.Rank() == root {
					buf = []int64{int64(root), 7, 9}
				}
				Bcast(buf, root, comm)
				if !eq.Int64s(buf, []int64{int64(root), 7, 9}) {
					return fmt.Errorf("rank %d: Expected %d, got %d.",
						comm.Rank(), []int64{int64(root), 7, 9}, buf)
				}
				return nil
			})
			if err != nil {
				t.Errorf("size = %d, root = %d) %s", size, root, err.Error())
			}
		}
	}
}

func TestGatherScatter(t *testing.T) {
	err := Run(4, func(comm *Comm) error {
		send := []float64{float64(comm.Rank()), float64(10 * comm.Rank())}
		recv := make([]float64, 8)
		Gather(send, recv, 2, comm)
		if comm.Rank() == 2 {
			exp := []float64{0, 0, 1, 10, 2, 20, 3, 30}
			if !eq.Float64s(recv, exp) {
				return fmt.Errorf("Expected gathered %g, got %g.", exp, recv)
			}
		}

		back := make([]float64, 2)
		Scatter(recv, back, 2, comm)
		if !eq.Float64s(back, send) {
			return fmt.Errorf("rank %d: Expected scattered %g, got %g.",
				comm.Rank(), send, back)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAllgatherVariable(t *testing.T) {
	err := Run(3, func(comm *Comm) error {
		send := make([]int, comm.Rank())
		for i := range send {
			send[i] = comm.Rank()
		}
		out := Allgather(send, comm)
		exp := [][]int{{}, {1}, {2, 2}}
		for i := range exp {
			if !eq.Ints(out[i], exp[i]) {
				return fmt.Errorf("%d) Expected %d, got %d.", i, exp[i], out[i])
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAlltoallv(t *testing.T) {
	// Rank r sends r+1 copies of 100*r + i to rank i.
	n := 3
	err := Run(n, func(comm *Comm) error {
		r := comm.Rank()
		sendCounts, sendDisp := make([]int, n), make([]int, n)
		recvCounts, recvDisp := make([]int, n), make([]int, n)
		send := []int{}
		for i := 0; i < n; i++ {
			sendDisp[i] = len(send)
			sendCounts[i] = r + 1
			for k := 0; k < r+1; k++ {
				send = append(send, 100*r+i)
			}
		}
		total := 0
		for i := 0; i < n; i++ {
			recvCounts[i], recvDisp[i] = i+1, total
			total += i + 1
		}
		recv := make([]int, total)
		Alltoallv(send, sendCounts, sendDisp, recv, recvCounts, recvDisp, comm)

		exp := []int{}
		for i := 0; i < n; i++ {
			for k := 0; k < i+1; k++ {
				exp = append(exp, 100*i+r)
			}
		}
		if !eq.Ints(recv, exp) {
			return fmt.Errorf("rank %d: Expected %d, got %d.", r, exp, recv)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestAllreduce(t *testing.T) {
	tests := []struct {
		op  Op
		exp []float64
	}{
		{OpSum, []float64{6, 4}},
		{OpMax, []float64{3, 1}},
		{OpMin, []float64{0, 1}},
	}

	for i := range tests {
		err := Run(4, func(comm *Comm) error {
			buf := []float64{float64(comm.Rank()), 1}
			Allreduce(buf, buf, tests[i].op, comm)
			if !eq.Float64s(buf, tests[i].exp) {
				return fmt.Errorf("Expected %g, got %g.", tests[i].exp, buf)
			}
			return nil
		})
		if err != nil {
			t.Errorf("%d) %s", i, err.Error())
		}
	}
}

func TestSplit(t *testing.T) {
	err := Run(5, func(comm *Comm) error {
		color := comm.Rank() % 2
		if comm.Rank() == 4 {
			color = Undefined
		}
		sub := comm.Split(color, -comm.Rank())
		if comm.Rank() == 4 {
			if sub != nil {
				return fmt.Errorf("Expected nil communicator for Undefined color.")
			}
			return nil
		}
		if sub.Size() != 2 {
			return fmt.Errorf("rank %d: Expected size 2, got %d.",
				comm.Rank(), sub.Size())
		}
		// Keys are negated ranks, so the order is reversed.
		exp := 1 - comm.Rank()/2
		if sub.Rank() != exp {
			return fmt.Errorf("rank %d: Expected sub-rank %d, got %d.",
				comm.Rank(), exp, sub.Rank())
		}
		sum := []int{comm.Rank()}
		Allreduce(sum, sum, OpSum, sub)
		if sum[0] != 2+2*color {
			return fmt.Errorf("rank %d: Expected sum %d, got %d.",
				comm.Rank(), 2+2*color, sum[0])
		}
		return nil
	})
	require.NoError(t, err)
}

func TestCreateGroupAndCompare(t *testing.T) {
	err := Run(4, func(comm *Comm) error {
		dup := comm.Dup()
		if Compare(dup, comm) != Congruent {
			return fmt.Errorf("Expected a duplicate to be Congruent.")
		}
		if Compare(comm, comm) != Ident {
			return fmt.Errorf("Expected a communicator to be Ident to itself.")
		}
		dup.Free()

		g := Union(NewGroup([]int{3, 1}), NewGroup([]int{1, 0}))
		if !eq.Ints(g.Ranks(), []int{3, 1, 0}) {
			return fmt.Errorf("Expected union [3 1 0], got %d.", g.Ranks())
		}
		if g.Rank(comm.WorldRank()) == Undefined {
			return nil
		}
		sub := comm.CreateGroup(g, 5)
		if sub.WorldRank() != comm.WorldRank() {
			return fmt.Errorf("Expected world rank %d, got %d.",
				comm.WorldRank(), sub.WorldRank())
		}
		buf := []int{sub.Rank()}
		Bcast(buf, 0, sub)
		if buf[0] != 0 {
			return fmt.Errorf("Expected 0 from the group root, got %d.", buf[0])
		}
		sub.Free()
		return nil
	})
	require.NoError(t, err)
}

func TestAbort(t *testing.T) {
	failure := errors.New("rank 1 failed")
	var aborted int32
	err := Run(4, func(comm *Comm) error {
		if comm.Rank() == 1 {
			return failure
		}
		defer func() {
			if p := recover(); p != nil {
				atomic.AddInt32(&aborted, 1)
				panic(p)
			}
		}()
		Barrier(comm)
		return nil
	})

	if !errors.Is(err, failure) {
		t.Errorf("Expected Run to return the original failure, got %v.", err)
	}
	if atomic.LoadInt32(&aborted) != 3 {
		t.Errorf("Expected 3 ranks to be aborted, got %d.", aborted)
	}
}

func TestPanicIsReported(t *testing.T) {
	err := Run(2, func(comm *Comm) error {
		if comm.Rank() == 0 {
			panic("boom")
		}
		Barrier(comm)
		return nil
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "rank 0 panicked: boom")
}
