package lib

import (
	"fmt"
	"strings"
)

// CheckStrictness indicates how functions related to the "check" bcmat mode
// should behave when it encounters an error.
type CheckStrictness int

const (
	CrashOnError CheckStrictness = iota
	WarnOnError
)

// ParseCheckStrictness converts the CheckStrictness config variable, "crash"
// or "warn", into a CheckStrictness.
func ParseCheckStrictness(s string) (CheckStrictness, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "crash":
		return CrashOnError, nil
	case "warn":
		return WarnOnError, nil
	}
	return 0, fmt.Errorf("CheckStrictness = '%s', but the only valid values "+
		"are 'crash' and 'warn'.", s)
}

// Operation is one of the distributed matrix operations bcmat can run.
type Operation int

const (
	Norms Operation = iota
	Cholesky
	Invert
	Eigenvalues
	SVD
	LeastSquares
	Mult
	Checkpoint
)

var operationNames = []string{
	"norms", "cholesky", "invert", "eigenvalues", "svd", "lstsq", "mult",
	"checkpoint",
}

func (op Operation) String() string {
	if op < 0 || int(op) >= len(operationNames) {
		return fmt.Sprintf("Operation(%d)", int(op))
	}
	return operationNames[op]
}

// square returns true if the operation needs a square matrix.
func (op Operation) square() bool {
	return op == Cholesky || op == Invert || op == Eigenvalues
}

// ParseOperations parses a comma-separated list of operation names.
// Repeated operations are run repeatedly.
func ParseOperations(s string) ([]Operation, error) {
	ops := []Operation{}
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		found := false
		for i, name := range operationNames {
			if tok == name {
				ops = append(ops, Operation(i))
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("Operations contains '%s', which is not "+
				"one of the valid operations, %s.", tok,
				strings.Join(operationNames, ", "))
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("Operations = '%s' does not list any "+
			"operations.", s)
	}
	return ops, nil
}
