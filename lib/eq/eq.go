/*package eq is a simple package for telling whether two arrays are equal to
one another. It is used by the tests of the other bcmat packages.*/
package eq

import (
	"math"
)

func sliceEq[T comparable](x, y []T) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// Strings returns true if two []string arrays are the same and false otherwise.
func Strings(x, y []string) bool { return sliceEq(x, y) }

// Ints returns true if two []int arrays are the same and false otherwise.
func Ints(x, y []int) bool { return sliceEq(x, y) }

// Int64s returns true if two []int64 arrays are the same and false otherwise.
func Int64s(x, y []int64) bool { return sliceEq(x, y) }

// Float64s returns true if two []float64 arrays are the same and false
// otherwise.
func Float64s(x, y []float64) bool { return sliceEq(x, y) }

// Float64sEps returns true if the two []float64 arrays are within eps of one
// another and false otherwise.
func Float64sEps(x, y []float64, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i]+eps < y[i] || x[i]-eps > y[i] {
			return false
		}
	}
	return true
}

// Float64sRel returns true if every element of x is within a relative
// tolerance eps of the corresponding element of y. Elements of y with
// magnitude below one are compared absolutely.
func Float64sRel(x, y []float64, eps float64) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		scale := math.Max(1, math.Abs(y[i]))
		if math.Abs(x[i]-y[i]) > eps*scale || math.IsNaN(x[i]) != math.IsNaN(y[i]) {
			return false
		}
	}
	return true
}
