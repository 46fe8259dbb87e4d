package lib

/* check.go contains the core functions of bcmat's "check" mode. */

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"

	bcerror "github.com/phil-mansfield/bcmat/lib/error"
	"github.com/phil-mansfield/bcmat/lib/format"
)

// Check runs the bcmat "check" command on the provided Args. This function
// will either crash upon encountering errors or will print warnings,
// depending on what CheckStrictness is set to in args. If Check completes,
// it returns true if all tests passed and false otherwise.
func Check(args *Args) bool {
	errs := CheckErrors(args)
	if len(errs) == 0 {
		return true
	}
	if args.CheckStrictness == CrashOnError {
		bcerror.External("%s", errs[0].Error())
	}
	for _, err := range errs {
		log.Printf("Warning: %s", err.Error())
	}
	return false
}

// CheckErrors returns every problem with args which would make a run fail
// part way through.
func CheckErrors(args *Args) []error {
	errs := []error{}

	if args.Threads > runtime.NumCPU() {
		errs = append(errs, fmt.Errorf("Threads = %d, but your system only "+
			"has %d cores.", args.Threads, runtime.NumCPU()))
	}

	for _, p := range args.Processes {
		if args.ProcessRows*args.ProcessColumns > p {
			errs = append(errs, fmt.Errorf("A %d x %d process grid needs %d "+
				"processes, but one of the runs only has %d.",
				args.ProcessRows, args.ProcessColumns,
				args.ProcessRows*args.ProcessColumns, p))
		}
	}

	for _, op := range uniqueOperations(args.Operations) {
		switch {
		case op.square() && args.Rows != args.Columns:
			errs = append(errs, fmt.Errorf("The %s operation needs a square "+
				"matrix, but Rows = %d and Columns = %d.", op,
				args.Rows, args.Columns))
		case (op == SVD || op == LeastSquares) &&
			args.RowBlockSize != args.ColumnBlockSize:
			errs = append(errs, fmt.Errorf("The %s operation needs square "+
				"blocks, but RowBlockSize = %d and ColumnBlockSize = %d.", op,
				args.RowBlockSize, args.ColumnBlockSize))
		}
		if op == LeastSquares && args.Rows < args.Columns {
			errs = append(errs, fmt.Errorf("The %s operation cannot solve "+
				"underdetermined systems, but Rows = %d < Columns = %d.", op,
				args.Rows, args.Columns))
		}
		if op == Checkpoint {
			errs = append(errs, checkCheckpoint(args)...)
		}
	}

	return errs
}

func checkCheckpoint(args *Args) []error {
	errs := []error{}
	for _, p := range args.Processes {
		name, err := format.ExpandFileFormat(args.Checkpoint,
			map[string]int{"processes": p})
		if err != nil {
			return append(errs, err)
		}
		dir := filepath.Dir(name)
		info, err := os.Stat(dir)
		if err != nil {
			errs = append(errs, fmt.Errorf("The checkpoint file %s is in the "+
				"directory %s, which cannot be opened: %s", name, dir, err.Error()))
		} else if !info.IsDir() {
			errs = append(errs, fmt.Errorf("The checkpoint file %s is in %s, "+
				"which is not a directory.", name, dir))
		}
	}
	return errs
}

func uniqueOperations(ops []Operation) []Operation {
	seen := map[Operation]bool{}
	out := []Operation{}
	for _, op := range ops {
		if !seen[op] {
			seen[op] = true
			out = append(out, op)
		}
	}
	return out
}
