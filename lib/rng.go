package lib

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	xorshiftMaxUint = float64(math.MaxUint32)
)

// RNG is an xorshift random number generator. Every process of a run seeds
// it identically, so they all generate the same matrix. It is not thread
// safe.
type RNG struct {
	w, x, y, z uint32
}

// NewRNG initializes an RNG with a given seed.
func NewRNG(seed uint64) *RNG {
	return &RNG{uint32(seed), 123456789, 362436069, 521288629}
}

func (gen *RNG) next() uint32 {
	t := gen.x ^ (gen.x << 11)
	gen.x, gen.y, gen.z = gen.y, gen.z, gen.w
	gen.w = gen.w ^ (gen.w >> 19) ^ (t ^ (t >> 8))
	return gen.w
}

// Uniform generates a single random number in the range [0, 1)
func (gen *RNG) Uniform() float64 {
	for {
		res := float64(math.MaxUint32-gen.next()) / xorshiftMaxUint
		if res != 1.0 {
			return res
		}
	}
}

// UniformSequence generates one random number in the range [0, 1) for each
// element of the array target and writes them to that array.
func (gen *RNG) UniformSequence(target []float64) {
	for i := range target {
		target[i] = gen.Uniform()
	}
}

// Dense returns an m x n matrix with elements drawn uniformly from [-1, 1).
func (gen *RNG) Dense(m, n int) *mat.Dense {
	data := make([]float64, m*n)
	gen.UniformSequence(data)
	for i := range data {
		data[i] = 2*data[i] - 1
	}
	return mat.NewDense(m, n, data)
}

// SymmetricPositiveDefinite returns B*Bᵀ + n*I for a random n x n matrix B.
// Adding n to the diagonal keeps the matrix well conditioned.
func (gen *RNG) SymmetricPositiveDefinite(n int) *mat.Dense {
	b := gen.Dense(n, n)
	out := mat.NewDense(n, n, nil)
	out.Mul(b, b.T())
	for i := 0; i < n; i++ {
		for j := 0; j < i; j++ {
			out.Set(i, j, out.At(j, i))
		}
		out.Set(i, i, out.At(i, i)+float64(n))
	}
	return out
}
