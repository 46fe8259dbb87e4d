package lib

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestUniform(t *testing.T) {
	gen1, gen2 := NewRNG(3), NewRNG(3)
	seq := make([]float64, 1000)
	gen2.UniformSequence(seq)

	for i := range seq {
		x := gen1.Uniform()
		if x != seq[i] {
			t.Fatalf("%d) Uniform() = %g, but UniformSequence() gave %g.",
				i, x, seq[i])
		}
		if x < 0 || x >= 1 {
			t.Errorf("%d) %g is outside [0, 1).", i, x)
		}
	}

	other := make([]float64, len(seq))
	NewRNG(4).UniformSequence(other)
	require.NotEqual(t, seq, other)
}

func TestSymmetricPositiveDefinite(t *testing.T) {
	for _, n := range []int{1, 4, 9} {
		a := NewRNG(uint64(n)).SymmetricPositiveDefinite(n)
		for i := 0; i < n; i++ {
			for j := 0; j < i; j++ {
				require.Equal(t, a.At(i, j), a.At(j, i))
			}
		}

		var chol mat.Cholesky
		require.True(t, chol.Factorize(mat.NewSymDense(n, a.RawMatrix().Data)))
	}
}

func TestDense(t *testing.T) {
	a := NewRNG(9).Dense(3, 5)
	r, c := a.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 5, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			require.True(t, a.At(i, j) >= -1 && a.At(i, j) < 1)
		}
	}
	require.Equal(t, a, NewRNG(9).Dense(3, 5))
}
