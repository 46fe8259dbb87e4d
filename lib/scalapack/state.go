package scalapack

import (
	"fmt"
)

// State records what the values of a Matrix currently hold.
type State int

// The numbering of the states is part of the checkpoint format.
const (
	Cholesky State = iota
	Eigenvalues
	InverseMatrix
	InverseSVD
	LU
	// Plain is an ordinary matrix which operations can read.
	Plain
	SVD
	// Unusable is a matrix whose values were destroyed by a decomposition.
	Unusable
)

var stateNames = []string{
	"cholesky", "eigenvalues", "inverse_matrix", "inverse_svd", "lu",
	"matrix", "svd", "unusable",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// Property records known structure of a Matrix.
type Property int

// The numbering of the properties is part of the checkpoint format.
const (
	Diagonal Property = iota
	General
	Hessenberg
	LowerTriangular
	Symmetric
	UpperTriangular
)

var propertyNames = []string{
	"diagonal", "general", "hessenberg", "lower_triangular", "symmetric",
	"upper_triangular",
}

func (p Property) String() string {
	if p < 0 || int(p) >= len(propertyNames) {
		return fmt.Sprintf("Property(%d)", int(p))
	}
	return propertyNames[p]
}

// op is an operation whose legality depends on the state of the matrix.
type op int

const (
	opCholesky op = iota
	opInvert
	opRCond
	opEigen
	opSVD
	opLeastSquares
	opNorm
)

// keep is the result of a transition which leaves the state alone or sets
// it to something which depends on the arguments.
const keep State = -1

type transition struct {
	name string
	from []State
	// needsSymmetric is set for operations which only read the lower
	// triangle.
	needsSymmetric bool
	to             State
}

var transitions = map[op]transition{
	opCholesky:     {"ComputeCholeskyFactorization", []State{Plain}, false, Cholesky},
	opInvert:       {"Invert", []State{Plain, Cholesky, InverseMatrix}, false, InverseMatrix},
	opRCond:        {"ReciprocalConditionNumber", []State{Cholesky}, false, keep},
	opEigen:        {"EigenpairsSymmetric", []State{Plain}, true, keep},
	opSVD:          {"ComputeSVD", []State{Plain}, false, Unusable},
	opLeastSquares: {"LeastSquares", []State{Plain}, false, Unusable},
	opNorm:         {"norm", []State{Plain, InverseMatrix}, false, keep},
}

// begin panics unless o is legal in the current state and property of the
// matrix.
func (a *Matrix) begin(o op) {
	t := transitions[o]
	legal := false
	for _, s := range t.from {
		legal = legal || s == a.state
	}
	if !legal {
		panic(fmt.Sprintf("scalapack: %s cannot be called on a matrix in "+
			"the state '%s'. Allowed states are %v.", t.name, a.state, t.from))
	}
	if t.needsSymmetric && a.property != Symmetric {
		panic(fmt.Sprintf("scalapack: %s needs a symmetric matrix, but the "+
			"matrix has the property '%s'.", t.name, a.property))
	}
}

// finish sets the state which o results in.
func (a *Matrix) finish(o op) {
	if to := transitions[o].to; to != keep {
		a.state = to
	}
}
