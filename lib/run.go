package lib

/* run.go contains the core functions of bcmat's "run" mode. */

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	bcerror "github.com/phil-mansfield/bcmat/lib/error"
	"github.com/phil-mansfield/bcmat/lib/format"
	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/mpi"
	"github.com/phil-mansfield/bcmat/lib/scalapack"
)

// Result is the outcome of one operation in one run.
type Result struct {
	Processes int
	Operation Operation
	Elapsed   time.Duration
	// Values are the quantities the operation measured, named by Labels.
	Labels []string
	Values []float64
}

func (r Result) String() string {
	vals := make([]string, len(r.Values))
	for i := range r.Values {
		vals[i] = fmt.Sprintf("%s = %.6g", r.Labels[i], r.Values[i])
	}
	return fmt.Sprintf("p = %3d %-11s %10.3f ms   %s", r.Processes,
		r.Operation, float64(r.Elapsed)/float64(time.Millisecond),
		strings.Join(vals, ", "))
}

// Run runs every operation in args once for each process count and logs the
// results as they finish.
func Run(args *Args) ([]Result, error) {
	out := []Result{}
	for _, p := range args.Processes {
		res, err := RunProcesses(args, p)
		if err != nil {
			return nil, err
		}
		out = append(out, res...)
	}
	return out, nil
}

// RunProcesses runs every operation in args with p processes.
func RunProcesses(args *Args, p int) ([]Result, error) {
	var out []Result
	err := mpi.Run(p, func(comm *mpi.Comm) error {
		res, err := runRank(args, comm)
		if comm.Rank() == 0 {
			out = res
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// session holds the input matrix of a run, along with a replicated dense
// copy used to check the distributed results.
type session struct {
	args *Args
	comm *mpi.Comm
	g    *grid.ProcessGrid
	a    *scalapack.Matrix
	full *mat.Dense
}

func runRank(args *Args, comm *mpi.Comm) ([]Result, error) {
	var g *grid.ProcessGrid
	if args.ProcessRows == 0 {
		g = grid.NewForMatrix(comm, args.Rows, args.Columns,
			args.RowBlockSize, args.ColumnBlockSize)
	} else {
		g = grid.New(comm, args.ProcessRows, args.ProcessColumns)
	}
	defer g.Free()

	s := &session{args: args, comm: comm, g: g}
	gen := NewRNG(args.Seed)
	property := scalapack.General
	if args.Rows == args.Columns {
		s.full = gen.SymmetricPositiveDefinite(args.Rows)
		property = scalapack.Symmetric
	} else {
		s.full = gen.Dense(args.Rows, args.Columns)
	}
	s.a = scalapack.New(args.Rows, args.Columns, g,
		args.RowBlockSize, args.ColumnBlockSize, property)
	s.a.SetFrom(s.full)

	out := []Result{}
	for _, op := range args.Operations {
		mpi.Barrier(comm)
		start := time.Now()
		labels, values, err := s.run(op)
		if err != nil {
			return nil, errors.Wrapf(err, "%s with %d processes", op, comm.Size())
		}
		res := Result{
			Processes: comm.Size(), Operation: op, Elapsed: time.Since(start),
			Labels: labels, Values: values,
		}
		if comm.Rank() == 0 {
			log.Println(res)
		}
		out = append(out, res)
	}
	return out, nil
}

// clone returns a copy of the input matrix which an operation may destroy.
func (s *session) clone() *scalapack.Matrix {
	b := scalapack.New(s.a.M(), s.a.N(), s.g, s.a.RowBlockSize(),
		s.a.ColumnBlockSize(), s.a.Property())
	s.a.CopyTo(b)
	return b
}

func (s *session) run(op Operation) (labels []string, values []float64, err error) {
	switch op {
	case Norms:
		return []string{"L1", "LInfty", "Frobenius"},
			[]float64{s.a.L1Norm(), s.a.LInftyNorm(), s.a.FrobeniusNorm()}, nil
	case Cholesky:
		return s.cholesky()
	case Invert:
		return s.invert()
	case Eigenvalues:
		return s.eigenvalues()
	case SVD:
		return s.svd()
	case LeastSquares:
		return s.leastSquares()
	case Mult:
		return s.mult()
	case Checkpoint:
		return s.checkpoint()
	}
	bcerror.Internal("Unknown operation %d.", int(op))
	return nil, nil, nil
}

func (s *session) cholesky() ([]string, []float64, error) {
	b := s.clone()
	if err := b.ComputeCholeskyFactorization(); err != nil {
		return nil, nil, err
	}
	rcond, err := b.ReciprocalConditionNumber(s.a.L1Norm())
	if err != nil {
		return nil, nil, err
	}
	return []string{"rcond"}, []float64{rcond}, nil
}

func (s *session) invert() ([]string, []float64, error) {
	b := s.clone()
	if err := b.Invert(); err != nil {
		return nil, nil, err
	}
	n := s.a.M()
	inv := mat.NewDense(n, n, nil)
	b.CopyToDense(inv)

	prod := mat.NewDense(n, n, nil)
	prod.Mul(s.full, inv)
	for i := 0; i < n; i++ {
		prod.Set(i, i, prod.At(i, i)-1)
	}
	return []string{"residual"}, []float64{mat.Norm(prod, 2)}, nil
}

func (s *session) eigenvalues() ([]string, []float64, error) {
	w, err := s.clone().EigenpairsSymmetric(false)
	if err != nil {
		return nil, nil, err
	}
	return []string{"min", "max"}, []float64{w[0], w[len(w)-1]}, nil
}

func (s *session) svd() ([]string, []float64, error) {
	sv, err := s.clone().ComputeSVD(nil, nil)
	if err != nil {
		return nil, nil, err
	}
	hi, lo := sv[0], sv[len(sv)-1]
	return []string{"max", "min", "condition"}, []float64{hi, lo, hi / lo}, nil
}

// leastSquares solves A*X = A*Xtrue for a random Xtrue with one block of
// columns and reports the largest error in X.
func (s *session) leastSquares() ([]string, []float64, error) {
	m, n, nb := s.a.M(), s.a.N(), s.a.RowBlockSize()
	xTrue := NewRNG(s.args.Seed+1).Dense(n, nb)
	rhs := mat.NewDense(m, nb, nil)
	rhs.Mul(s.full, xTrue)

	B := scalapack.New(m, nb, s.g, nb, nb, scalapack.General)
	B.SetFrom(rhs)
	if err := s.clone().LeastSquares(B, false); err != nil {
		return nil, nil, err
	}
	B.CopyToDense(rhs)

	maxErr := 0.0
	for i := 0; i < n; i++ {
		for j := 0; j < nb; j++ {
			maxErr = math.Max(maxErr, math.Abs(rhs.At(i, j)-xTrue.At(i, j)))
		}
	}
	return []string{"max error"}, []float64{maxErr}, nil
}

// mult computes C = A*Aᵀ and compares it against the replicated product.
func (s *session) mult() ([]string, []float64, error) {
	m, mb := s.a.M(), s.a.RowBlockSize()
	C := scalapack.New(m, m, s.g, mb, mb, scalapack.General)
	s.a.MTMult(C, s.a, false)

	got, want := mat.NewDense(m, m, nil), mat.NewDense(m, m, nil)
	C.CopyToDense(got)
	want.Mul(s.full, s.full.T())
	norm := mat.Norm(want, 2)
	got.Sub(got, want)
	return []string{"Frobenius", "relative error"},
		[]float64{C.FrobeniusNorm(), mat.Norm(got, 2) / norm}, nil
}

// checkpoint saves the matrix, loads it back, and reports the
// infinity norm of the difference.
func (s *session) checkpoint() ([]string, []float64, error) {
	name, err := format.ExpandFileFormat(s.args.Checkpoint,
		map[string]int{"processes": s.comm.Size()})
	if err != nil {
		return nil, nil, err
	}
	if err := s.a.Save(name, [2]int{}, s.args.IOMode); err != nil {
		return nil, nil, err
	}
	b := scalapack.New(s.a.M(), s.a.N(), s.g, s.a.RowBlockSize(),
		s.a.ColumnBlockSize(), s.a.Property())
	if err := b.Load(name, s.args.IOMode); err != nil {
		return nil, nil, err
	}

	got := mat.NewDense(s.a.M(), s.a.N(), nil)
	b.CopyToDense(got)
	got.Sub(got, s.full)
	return []string{"LInfty error"}, []float64{mat.Norm(got, math.Inf(1))}, nil
}
