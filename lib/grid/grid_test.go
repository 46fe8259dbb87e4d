package grid

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/bcmat/lib/eq"
	"github.com/phil-mansfield/bcmat/lib/mpi"
)

func TestNewCoordinates(t *testing.T) {
	tests := []struct {
		p, rows, cols int
	}{
		{1, 1, 1},
		{4, 2, 2},
		{6, 2, 3},
		{7, 2, 3},
		{5, 1, 2},
	}

	for i := range tests {
		test := tests[i]
		err := mpi.Run(test.p, func(comm *mpi.Comm) error {
			g := New(comm, test.rows, test.cols)
			defer g.Free()

			r := comm.Rank()
			active := r < test.rows*test.cols
			if g.IsActive() != active {
				return fmt.Errorf("rank %d: Expected IsActive() = %v.", r, active)
			}
			if g.NInactive() != test.p-test.rows*test.cols {
				return fmt.Errorf("Expected %d inactive processes, got %d.",
					test.p-test.rows*test.cols, g.NInactive())
			}

			row, col := -1, -1
			if active {
				row, col = r%test.rows, r/test.rows
			}
			if g.ThisProcessRow() != row || g.ThisProcessColumn() != col {
				return fmt.Errorf("rank %d: Expected (%d, %d), got (%d, %d).",
					r, row, col, g.ThisProcessRow(), g.ThisProcessColumn())
			}

			ctx := g.Context()
			if ctx.Active() != active {
				return fmt.Errorf("rank %d: Expected context activity %v.", r, active)
			}
			if active {
				crow, ccol := ctx.Coords(ctx.Comm.Rank())
				if crow != row || ccol != col {
					return fmt.Errorf("rank %d: context places the process at "+
						"(%d, %d), expected (%d, %d).", r, crow, ccol, row, col)
				}
			}
			return nil
		})
		if err != nil {
			t.Errorf("%d) %s", i, err.Error())
		}
	}
}

func TestNewTooLarge(t *testing.T) {
	err := mpi.Run(3, func(comm *mpi.Comm) error {
		New(comm, 2, 2)
		return nil
	})
	require.Error(t, err)
}

func TestSendToInactive(t *testing.T) {
	for _, p := range []int{4, 5, 9} {
		err := mpi.Run(p, func(comm *mpi.Comm) error {
			g := New(comm, 2, 2)
			defer g.Free()

			buf := []float64{-1, -1, -1}
			if g.IsActive() {
				buf = []float64{1, 2, 3}
			}
			SendToInactive(g, buf)
			if !eq.Float64s(buf, []float64{1, 2, 3}) {
				return fmt.Errorf("rank %d: Expected [1 2 3], got %g.",
					comm.Rank(), buf)
			}

			var empty []int
			SendToInactive(g, empty)
			return nil
		})
		if err != nil {
			t.Errorf("p = %d) %s", p, err.Error())
		}
	}
}

func TestShape(t *testing.T) {
	tests := []struct {
		p, m, n, mb, nb int
		rows, cols      int
	}{
		{1, 100, 100, 32, 32, 1, 1},
		{4, 100, 100, 32, 32, 2, 2},
		{8, 100, 100, 32, 32, 4, 2},
		{16, 4, 4, 4, 4, 1, 1},
		{16, 64, 64, 16, 16, 4, 4},
		{6, 10, 1000, 10, 100, 1, 6},
	}

	for i := range tests {
		test := tests[i]
		rows, cols := Shape(test.p, test.m, test.n, test.mb, test.nb)
		if rows != test.rows || cols != test.cols {
			t.Errorf("%d) Expected a %d x %d grid, got %d x %d.",
				i, test.rows, test.cols, rows, cols)
		}
	}
}
