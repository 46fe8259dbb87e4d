package lib

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/phil-mansfield/bcmat/lib/scalapack"
)

func testArgs(t *testing.T, rows, cols int, ops ...Operation) *Args {
	return &Args{
		Processes: []int{1, 3, 4},
		Rows:      rows, Columns: cols,
		RowBlockSize: 2, ColumnBlockSize: 2,
		Seed:       5,
		Operations: ops,
		Checkpoint: filepath.Join(t.TempDir(), "p{%02d,processes}.chk"),
		IOMode:     scalapack.SerialIO,
		Threads:    -1,
	}
}

func value(t *testing.T, r Result, label string) float64 {
	for i := range r.Labels {
		if r.Labels[i] == label {
			return r.Values[i]
		}
	}
	t.Fatalf("%s has no value labeled '%s'.", r.Operation, label)
	return 0
}

func TestRunSquare(t *testing.T) {
	args := testArgs(t, 6, 6, Norms, Cholesky, Invert, Eigenvalues, SVD,
		LeastSquares, Mult, Checkpoint)
	require.Empty(t, CheckErrors(args))

	full := NewRNG(args.Seed).SymmetricPositiveDefinite(6)
	var eig mat.EigenSym
	require.True(t, eig.Factorize(mat.NewSymDense(6, full.RawMatrix().Data), false))
	w := eig.Values(nil)

	res, err := Run(args)
	require.NoError(t, err)
	require.Len(t, res, len(args.Processes)*len(args.Operations))

	for i, r := range res {
		require.Equal(t, args.Processes[i/len(args.Operations)], r.Processes)
		require.Equal(t, args.Operations[i%len(args.Operations)], r.Operation)

		switch r.Operation {
		case Norms:
			require.InDelta(t, mat.Norm(full, 1), value(t, r, "L1"), 1e-10)
			require.InDelta(t, mat.Norm(full, math.Inf(1)), value(t, r, "LInfty"), 1e-10)
			require.InDelta(t, mat.Norm(full, 2), value(t, r, "Frobenius"), 1e-10)
		case Cholesky:
			rcond := value(t, r, "rcond")
			require.True(t, rcond > 0 && rcond <= 1)
		case Invert:
			require.Less(t, value(t, r, "residual"), 1e-10)
		case Eigenvalues:
			require.InDelta(t, w[0], value(t, r, "min"), 1e-10)
			require.InDelta(t, w[5], value(t, r, "max"), 1e-10)
		case SVD:
			// The singular values of an SPD matrix are its eigenvalues.
			require.InDelta(t, w[5], value(t, r, "max"), 1e-10)
			require.InDelta(t, w[0], value(t, r, "min"), 1e-10)
		case LeastSquares:
			require.Less(t, value(t, r, "max error"), 1e-10)
		case Mult:
			require.Less(t, value(t, r, "relative error"), 1e-12)
		case Checkpoint:
			require.Zero(t, value(t, r, "LInfty error"))
		}
	}
}

func TestRunRectangular(t *testing.T) {
	args := testArgs(t, 8, 4, Norms, SVD, LeastSquares, Mult, Checkpoint)
	args.IOMode = scalapack.ParallelIO
	args.ProcessRows, args.ProcessColumns = 2, 1
	args.Processes = []int{2, 3}
	require.Empty(t, CheckErrors(args))

	full := NewRNG(args.Seed).Dense(8, 4)
	var svd mat.SVD
	require.True(t, svd.Factorize(full, mat.SVDNone))
	s := svd.Values(nil)

	res, err := Run(args)
	require.NoError(t, err)
	require.Len(t, res, 10)

	for _, r := range res {
		switch r.Operation {
		case Norms:
			require.InDelta(t, mat.Norm(full, 1), value(t, r, "L1"), 1e-10)
			require.InDelta(t, mat.Norm(full, math.Inf(1)), value(t, r, "LInfty"), 1e-10)
		case SVD:
			require.InDelta(t, s[0], value(t, r, "max"), 1e-10)
			require.InDelta(t, s[3], value(t, r, "min"), 1e-10)
		case LeastSquares:
			require.Less(t, value(t, r, "max error"), 1e-8)
		case Mult:
			require.Less(t, value(t, r, "relative error"), 1e-12)
		case Checkpoint:
			require.Zero(t, value(t, r, "LInfty error"))
		}
	}
}

func TestRunFailure(t *testing.T) {
	args := testArgs(t, 4, 4, Cholesky)
	args.Processes = []int{2}
	args.Checkpoint = "{%d,meow}"
	args.Operations = []Operation{Norms, Checkpoint}
	_, err := Run(args)
	require.Error(t, err)
	require.Contains(t, err.Error(), "checkpoint with 2 processes")
}

func TestResultString(t *testing.T) {
	r := Result{
		Processes: 4, Operation: Eigenvalues,
		Labels: []string{"min", "max"}, Values: []float64{1, 2.5},
	}
	s := r.String()
	require.True(t, strings.HasPrefix(s, "p =   4 eigenvalues"))
	require.True(t, strings.HasSuffix(s, "min = 1, max = 2.5"))
}

func TestInspect(t *testing.T) {
	args := testArgs(t, 4, 4, Checkpoint)
	args.Processes = []int{2}
	_, err := Run(args)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	name := filepath.Join(filepath.Dir(args.Checkpoint), "p02.chk")
	require.NoError(t, Inspect(buf, name))
	out := buf.String()
	require.Contains(t, out, "matrix: float64 4 x 4")
	require.Contains(t, out, "state: enum")
	require.Contains(t, out, "property: enum")
	require.Contains(t, out, "= symmetric")

	require.Error(t, Inspect(buf, filepath.Join(t.TempDir(), "missing.chk")))
}

func TestCheckErrors(t *testing.T) {
	args := testArgs(t, 6, 4, Cholesky, SVD)
	args.RowBlockSize = 3
	args.ProcessRows, args.ProcessColumns = 2, 2
	args.Checkpoint = filepath.Join(t.TempDir(), "missing", "p{%d,processes}.chk")
	args.Operations = append(args.Operations, LeastSquares, Checkpoint, Cholesky)

	// Too few processes (twice), square matrix for cholesky, square blocks
	// for svd and lstsq, and three missing checkpoint directories.
	errs := CheckErrors(args)
	require.Len(t, errs, 2+1+2+3)

	args.Rows, args.Columns = 4, 6
	args.RowBlockSize = 2
	args.Processes = []int{4}
	args.Operations = []Operation{LeastSquares}
	require.Len(t, CheckErrors(args), 1)

	args.CheckStrictness = WarnOnError
	require.False(t, Check(args))
}
