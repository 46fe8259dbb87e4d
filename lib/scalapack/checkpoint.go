package scalapack

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/phil-mansfield/bcmat/lib/archive"
	"github.com/phil-mansfield/bcmat/lib/grid"
	"github.com/phil-mansfield/bcmat/lib/mpi"
)

// IOMode selects how a matrix is moved between memory and a checkpoint.
type IOMode int

const (
	// SerialIO gathers the matrix on one process, which reads or writes
	// the whole file. The matrix is stored compressed.
	SerialIO IOMode = iota
	// ParallelIO spreads the matrix over a 1 x P grid, and every process
	// reads or writes its own band of columns. The matrix is stored raw.
	ParallelIO
)

func (mode IOMode) String() string {
	switch mode {
	case SerialIO:
		return "serial"
	case ParallelIO:
		return "parallel"
	}
	return fmt.Sprintf("IOMode(%d)", int(mode))
}

// ParseIOMode converts the name of an IOMode back into it.
func ParseIOMode(s string) (IOMode, error) {
	switch s {
	case "serial":
		return SerialIO, nil
	case "parallel":
		return ParallelIO, nil
	}
	return 0, fmt.Errorf("'%s' is not a valid I/O mode. The valid modes are "+
		"'serial' and 'parallel'.", s)
}

const (
	matrixDataset   = "matrix"
	stateDataset    = "state"
	propertyDataset = "property"
)

func enumType(names []string) archive.EnumType {
	t := archive.EnumType{Names: names, Values: make([]int64, len(names))}
	for i := range t.Values {
		t.Values[i] = int64(i)
	}
	return t
}

var (
	stateEnum    = enumType(stateNames)
	propertyEnum = enumType(propertyNames)
)

// collectErrors returns the error of the lowest-ranked process of comm
// which failed, so that every process agrees on whether a collective step
// worked.
func collectErrors(comm *mpi.Comm, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	all := mpi.Allgather([]string{msg}, comm)
	if err != nil {
		return err
	}
	for r := range all {
		if all[r][0] != "" {
			return fmt.Errorf("scalapack: process %d failed: %s", r, all[r][0])
		}
	}
	return nil
}

// Save writes the matrix, its state, and its property to filename. The
// matrix is stored column by column, in chunks of chunk[0] rows and chunk[1]
// columns. A zero chunk selects chunks of single whole columns. Save must
// be called by every process of the grid's communicator.
func (a *Matrix) Save(filename string, chunk [2]int, mode IOMode) error {
	if chunk == [2]int{} {
		chunk = [2]int{a.m, 1}
	}
	if chunk[0] < 1 || chunk[0] > a.m || chunk[1] < 1 || chunk[1] > a.n {
		panic(fmt.Sprintf("scalapack: the chunk size %d x %d is not valid "+
			"for a %d x %d matrix.", chunk[0], chunk[1], a.m, a.n))
	}

	switch mode {
	case SerialIO:
		return a.saveSerial(filename, chunk)
	case ParallelIO:
		return a.saveParallel(filename, chunk)
	}
	panic(fmt.Sprintf("scalapack: unknown I/O mode %d.", mode))
}

// Load reads a matrix, its state, and its property from a file written by
// Save in either mode. The shape stored in the file must match the matrix.
// Load must be called by every process of the grid's communicator.
func (a *Matrix) Load(filename string, mode IOMode) error {
	switch mode {
	case SerialIO:
		return a.loadSerial(filename)
	case ParallelIO:
		return a.loadParallel(filename)
	}
	panic(fmt.Sprintf("scalapack: unknown I/O mode %d.", mode))
}

// fileDims is the shape of the stored array. Columns of the matrix are rows
// of the array.
func (a *Matrix) fileDims() [2]int { return [2]int{a.n, a.m} }

func (a *Matrix) saveSerial(filename string, chunk [2]int) error {
	comm := a.grid.Comm()
	g := grid.New(comm, 1, 1)
	defer g.Free()

	tmp := New(a.m, a.n, g, a.m, a.n, a.property)
	a.CopyTo(tmp)

	var err error
	if g.IsActive() {
		err = tmp.writeFile(filename, chunk)
	}
	return collectErrors(comm, err)
}

// writeFile writes the whole of a matrix held by a single process.
func (a *Matrix) writeFile(filename string, chunk [2]int) error {
	f, err := archive.Create(filename)
	if err != nil {
		return err
	}
	ds, err := f.CreateDataset(matrixDataset, a.fileDims(),
		[2]int{chunk[1], chunk[0]}, true)
	if err == nil {
		err = f.Write(ds, a.values[:a.m*a.n])
	}
	if err == nil {
		err = a.writeEnums(f)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func (a *Matrix) writeEnums(f *archive.File) error {
	if err := f.WriteEnum(stateDataset, stateEnum, int64(a.state)); err != nil {
		return err
	}
	return f.WriteEnum(propertyDataset, propertyEnum, int64(a.property))
}

// columnGrid creates the 1 x P grid used for parallel I/O and the column
// block size which gives each process a single band.
func (a *Matrix) columnGrid() (*grid.ProcessGrid, int) {
	comm := a.grid.Comm()
	p := comm.Size()
	nb := max(1, (a.n+p-1)/p)
	return grid.New(comm, 1, p), nb
}

func (a *Matrix) saveParallel(filename string, chunk [2]int) error {
	comm := a.grid.Comm()
	g, nb := a.columnGrid()
	defer g.Free()

	tmp := New(a.m, a.n, g, a.m, nb, a.property)
	a.CopyTo(tmp)

	var err error
	if comm.Rank() == 0 {
		err = createRaw(filename, tmp.fileDims(), [2]int{chunk[1], chunk[0]})
	}
	if err = collectErrors(comm, err); err != nil {
		return err
	}

	if tmp.nLocalCols > 0 {
		offset := [2]int{g.ThisProcessColumn() * nb, 0}
		count := [2]int{tmp.nLocalCols, tmp.m}
		err = writeBand(filename, offset, count, tmp.values[:count[0]*count[1]])
	}
	if err = collectErrors(comm, err); err != nil {
		return err
	}

	if comm.Rank() == 0 {
		var f *archive.File
		f, err = archive.OpenForWriting(filename)
		if err == nil {
			err = a.writeEnums(f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}
	}
	return collectErrors(comm, err)
}

func createRaw(filename string, dims, chunk [2]int) error {
	f, err := archive.Create(filename)
	if err != nil {
		return err
	}
	_, err = f.CreateDataset(matrixDataset, dims, chunk, false)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

func writeBand(filename string, offset, count [2]int, data []float64) error {
	f, err := archive.OpenForWriting(filename)
	if err != nil {
		return err
	}
	ds, err := f.Dataset(matrixDataset)
	if err == nil {
		err = f.WriteHyperslab(ds, offset, count, data)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}

// openMatrix opens a checkpoint and checks that it holds a matrix with the
// shape of a. It returns the dataset, state, and property.
func (a *Matrix) openMatrix(filename string) (*archive.File, *archive.Dataset, State, Property, error) {
	f, err := archive.Open(filename)
	if err != nil {
		return nil, nil, 0, 0, err
	}
	ds, state, property, err := a.checkFile(f)
	if err != nil {
		f.Close()
		return nil, nil, 0, 0, err
	}
	return f, ds, state, property, nil
}

func (a *Matrix) checkFile(f *archive.File) (*archive.Dataset, State, Property, error) {
	ds, err := f.Dataset(matrixDataset)
	if err != nil {
		return nil, 0, 0, err
	}
	if ds.Class != archive.Float64 {
		return nil, 0, 0, fmt.Errorf("The '%s' dataset of %s holds %s "+
			"values, not float64 values.", matrixDataset, f.Name(), ds.Class)
	}
	if ds.Dims != a.fileDims() {
		return nil, 0, 0, fmt.Errorf("The file %s holds a %d x %d matrix, but "+
			"it is being loaded into a %d x %d matrix.", f.Name(),
			ds.Dims[1], ds.Dims[0], a.m, a.n)
	}

	typ, state, err := f.ReadEnum(stateDataset)
	if err != nil {
		return nil, 0, 0, err
	}
	if !typ.Equal(stateEnum) {
		return nil, 0, 0, fmt.Errorf("The '%s' enumeration of %s has the "+
			"members %v, not %v.", stateDataset, f.Name(), typ.Names, stateEnum.Names)
	}
	typ, property, err := f.ReadEnum(propertyDataset)
	if err != nil {
		return nil, 0, 0, err
	}
	if !typ.Equal(propertyEnum) {
		return nil, 0, 0, fmt.Errorf("The '%s' enumeration of %s has the "+
			"members %v, not %v.", propertyDataset, f.Name(), typ.Names,
			propertyEnum.Names)
	}
	return ds, State(state), Property(property), nil
}

func (a *Matrix) loadSerial(filename string) error {
	comm := a.grid.Comm()
	g := grid.New(comm, 1, 1)
	defer g.Free()

	tmp := New(a.m, a.n, g, a.m, a.n, a.property)
	enums := []int{-1, -1}
	var err error
	if g.IsActive() {
		var f *archive.File
		var ds *archive.Dataset
		var state State
		var property Property
		f, ds, state, property, err = a.openMatrix(filename)
		if err == nil {
			var data []float64
			data, err = f.Read(ds)
			copy(tmp.values, data)
			f.Close()
		}
		enums[0], enums[1] = int(state), int(property)
	}
	if err = collectErrors(comm, err); err != nil {
		return errors.Wrapf(err, "scalapack: loading %s", filename)
	}

	grid.SendToInactive(g, enums)
	tmp.state, tmp.property = State(enums[0]), Property(enums[1])
	tmp.CopyTo(a)
	return nil
}

func (a *Matrix) loadParallel(filename string) error {
	comm := a.grid.Comm()
	g, nb := a.columnGrid()
	defer g.Free()

	tmp := New(a.m, a.n, g, a.m, nb, a.property)
	enums := []int{-1, -1}
	var err error
	if comm.Rank() == 0 {
		var f *archive.File
		var state State
		var property Property
		f, _, state, property, err = a.openMatrix(filename)
		if err == nil {
			f.Close()
		}
		enums[0], enums[1] = int(state), int(property)
	}
	if err = collectErrors(comm, err); err != nil {
		return errors.Wrapf(err, "scalapack: loading %s", filename)
	}
	mpi.Bcast(enums, 0, comm)

	if tmp.nLocalCols > 0 {
		offset := [2]int{g.ThisProcessColumn() * nb, 0}
		count := [2]int{tmp.nLocalCols, tmp.m}
		err = readBand(filename, offset, count, tmp.values)
	}
	if err = collectErrors(comm, err); err != nil {
		return errors.Wrapf(err, "scalapack: loading %s", filename)
	}

	tmp.state, tmp.property = State(enums[0]), Property(enums[1])
	tmp.CopyTo(a)
	return nil
}

func readBand(filename string, offset, count [2]int, out []float64) error {
	f, err := archive.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	ds, err := f.Dataset(matrixDataset)
	if err != nil {
		return err
	}
	data, err := f.ReadHyperslab(ds, offset, count)
	copy(out, data)
	return err
}
