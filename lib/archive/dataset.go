package archive

import (
	"fmt"
	"math"

	"github.com/DataDog/zstd"
	"github.com/pkg/errors"
)

func ceilDiv(a, b int) int { return (a + b - 1) / b }

// chunkGrid returns the number of chunks along each dimension.
func (ds *Dataset) chunkGrid() (n0, n1 int) {
	return ceilDiv(ds.Dims[0], ds.Chunk[0]), ceilDiv(ds.Dims[1], ds.Chunk[1])
}

// chunkExtent returns the first element and the shape of chunk (c0, c1),
// clipped to the array.
func (ds *Dataset) chunkExtent(c0, c1 int) (start, shape [2]int) {
	start = [2]int{c0 * ds.Chunk[0], c1 * ds.Chunk[1]}
	shape = [2]int{
		min(ds.Chunk[0], ds.Dims[0]-start[0]),
		min(ds.Chunk[1], ds.Dims[1]-start[1]),
	}
	return start, shape
}

// CreateDataset adds a float64 array with the given dimensions and chunk
// shape. Space for raw arrays is reserved immediately.
func (file *File) CreateDataset(name string, dims, chunk [2]int, compressed bool) (*Dataset, error) {
	for k := 0; k < 2; k++ {
		if dims[k] < 1 || chunk[k] < 1 || chunk[k] > dims[k] {
			return nil, fmt.Errorf("The dataset '%s' cannot have the "+
				"dimensions %v and chunks %v. Every chunk dimension must be "+
				"between 1 and the corresponding array dimension.",
				name, dims, chunk)
		}
	}

	ds := &Dataset{
		Name: name, Class: Float64, Dims: dims, Chunk: chunk,
		Compressed: compressed,
	}
	if err := file.add(ds); err != nil {
		return nil, err
	}

	if !compressed {
		n0, n1 := ds.chunkGrid()
		ds.base = file.end
		file.end += int64(n0*n1*chunk[0]*chunk[1]) * 8
		if err := file.f.Truncate(file.end); err != nil {
			return nil, errors.Wrapf(err, "archive: reserving space for '%s' in %s",
				name, file.name)
		}
	}
	return ds, nil
}

func (file *File) checkArray(ds *Dataset) error {
	if ds.Class != Float64 {
		return fmt.Errorf("The dataset '%s' in %s has the class %s, not "+
			"float64.", ds.Name, file.name, ds.Class)
	}
	return nil
}

func checkSlab(ds *Dataset, offset, count [2]int, n int) error {
	for k := 0; k < 2; k++ {
		if offset[k] < 0 || count[k] < 0 || offset[k]+count[k] > ds.Dims[k] {
			return fmt.Errorf("The hyperslab with offset %v and count %v "+
				"does not fit inside the dataset '%s', which has the "+
				"dimensions %v.", offset, count, ds.Name, ds.Dims)
		}
	}
	if n != count[0]*count[1] {
		return fmt.Errorf("A hyperslab with count %v needs %d values, but "+
			"%d were given.", count, count[0]*count[1], n)
	}
	return nil
}

// Write writes a whole array, stored in row-major order.
func (file *File) Write(ds *Dataset, data []float64) error {
	if err := file.checkArray(ds); err != nil {
		return err
	}
	if !ds.Compressed {
		return file.WriteHyperslab(ds, [2]int{0, 0}, ds.Dims, data)
	}
	if err := checkSlab(ds, [2]int{0, 0}, ds.Dims, len(data)); err != nil {
		return err
	}
	if len(ds.offsets) > 0 {
		return fmt.Errorf("The compressed dataset '%s' in %s has already "+
			"been written.", ds.Name, file.name)
	}

	n0, n1 := ds.chunkGrid()
	raw, buf := []byte{}, []byte{}
	for c0 := 0; c0 < n0; c0++ {
		for c1 := 0; c1 < n1; c1++ {
			start, shape := ds.chunkExtent(c0, c1)
			raw = raw[:0]
			for i := 0; i < shape[0]; i++ {
				row := (start[0]+i)*ds.Dims[1] + start[1]
				for _, x := range data[row : row+shape[1]] {
					raw = file.order.AppendUint64(raw, math.Float64bits(x))
				}
			}

			var err error
			buf, err = zstd.CompressLevel(buf, raw, 1)
			if err != nil {
				return errors.Wrapf(err, "archive: compressing chunk (%d, %d) of '%s'",
					c0, c1, ds.Name)
			}
			if _, err := file.f.WriteAt(buf, file.end); err != nil {
				return errors.Wrapf(err, "archive: writing chunk (%d, %d) of '%s' to %s",
					c0, c1, ds.Name, file.name)
			}
			ds.offsets = append(ds.offsets, file.end)
			ds.lengths = append(ds.lengths, int64(len(buf)))
			file.end += int64(len(buf))
		}
	}
	file.dirty = true
	return nil
}

// WriteHyperslab writes the count[0] x count[1] block of a raw array whose
// first element is offset. data is the block in row-major order. Different
// handles may write disjoint hyperslabs of the same dataset concurrently.
func (file *File) WriteHyperslab(ds *Dataset, offset, count [2]int, data []float64) error {
	if err := file.checkArray(ds); err != nil {
		return err
	}
	if ds.Compressed {
		return fmt.Errorf("The dataset '%s' in %s is compressed, so it can "+
			"only be written as a whole.", ds.Name, file.name)
	}
	if !file.writable {
		return fmt.Errorf("The file %s was opened read-only.", file.name)
	}
	if err := checkSlab(ds, offset, count, len(data)); err != nil {
		return err
	}

	return ds.forEachRun(offset, count, func(pos int64, slab, n int) error {
		b := make([]byte, 0, 8*n)
		for _, x := range data[slab : slab+n] {
			b = file.order.AppendUint64(b, math.Float64bits(x))
		}
		_, err := file.f.WriteAt(b, pos)
		return errors.Wrapf(err, "archive: writing '%s' to %s", ds.Name, file.name)
	})
}

// forEachRun calls f once for each contiguous run of elements that a
// hyperslab of a raw array covers inside a single chunk row. pos is the
// file offset of the run, slab is the index of its first element within
// the row-major hyperslab, and n is its length.
func (ds *Dataset) forEachRun(offset, count [2]int, f func(pos int64, slab, n int) error) error {
	_, n1 := ds.chunkGrid()
	chunkSize := ds.Chunk[0] * ds.Chunk[1]
	for i := offset[0]; i < offset[0]+count[0]; i++ {
		c0, i0 := i/ds.Chunk[0], i%ds.Chunk[0]
		for j := offset[1]; j < offset[1]+count[1]; {
			c1, j0 := j/ds.Chunk[1], j%ds.Chunk[1]
			n := min(ds.Chunk[1]-j0, offset[1]+count[1]-j)
			elem := (c0*n1+c1)*chunkSize + i0*ds.Chunk[1] + j0
			slab := (i-offset[0])*count[1] + (j - offset[1])
			if err := f(ds.base+int64(elem)*8, slab, n); err != nil {
				return err
			}
			j += n
		}
	}
	return nil
}

// Read reads a whole array in row-major order.
func (file *File) Read(ds *Dataset) ([]float64, error) {
	return file.ReadHyperslab(ds, [2]int{0, 0}, ds.Dims)
}

// ReadHyperslab reads the count[0] x count[1] block of an array whose first
// element is offset and returns it in row-major order.
func (file *File) ReadHyperslab(ds *Dataset, offset, count [2]int) ([]float64, error) {
	if err := file.checkArray(ds); err != nil {
		return nil, err
	}
	out := make([]float64, count[0]*count[1])
	if err := checkSlab(ds, offset, count, len(out)); err != nil {
		return nil, err
	}

	if !ds.Compressed {
		err := ds.forEachRun(offset, count, func(pos int64, slab, n int) error {
			b := make([]byte, 8*n)
			if _, err := file.f.ReadAt(b, pos); err != nil {
				return errors.Wrapf(err, "archive: reading '%s' from %s", ds.Name, file.name)
			}
			for k := 0; k < n; k++ {
				out[slab+k] = math.Float64frombits(file.order.Uint64(b[8*k:]))
			}
			return nil
		})
		return out, err
	}

	n0, n1 := ds.chunkGrid()
	if len(ds.offsets) != n0*n1 {
		return nil, fmt.Errorf("The compressed dataset '%s' in %s was never "+
			"written.", ds.Name, file.name)
	}
	var raw, buf []byte
	for c0 := 0; c0 < n0; c0++ {
		for c1 := 0; c1 < n1; c1++ {
			start, shape := ds.chunkExtent(c0, c1)
			if start[0] >= offset[0]+count[0] || start[0]+shape[0] <= offset[0] ||
				start[1] >= offset[1]+count[1] || start[1]+shape[1] <= offset[1] {
				continue
			}

			idx := c0*n1 + c1
			if int64(cap(buf)) < ds.lengths[idx] {
				buf = make([]byte, ds.lengths[idx])
			}
			buf = buf[:ds.lengths[idx]]
			if _, err := file.f.ReadAt(buf, ds.offsets[idx]); err != nil {
				return nil, errors.Wrapf(err, "archive: reading chunk (%d, %d) of '%s' from %s",
					c0, c1, ds.Name, file.name)
			}
			var err error
			raw, err = zstd.Decompress(raw[:0], buf)
			if err != nil {
				return nil, errors.Wrapf(err, "archive: decompressing chunk (%d, %d) of '%s'",
					c0, c1, ds.Name)
			}
			if len(raw) != 8*shape[0]*shape[1] {
				return nil, fmt.Errorf("Chunk (%d, %d) of '%s' in %s holds %d "+
					"bytes, but should hold %d.", c0, c1, ds.Name, file.name,
					len(raw), 8*shape[0]*shape[1])
			}

			for i := 0; i < shape[0]; i++ {
				gi := start[0] + i
				if gi < offset[0] || gi >= offset[0]+count[0] {
					continue
				}
				for j := 0; j < shape[1]; j++ {
					gj := start[1] + j
					if gj < offset[1] || gj >= offset[1]+count[1] {
						continue
					}
					x := file.order.Uint64(raw[8*(i*shape[1]+j):])
					out[(gi-offset[0])*count[1]+gj-offset[1]] = math.Float64frombits(x)
				}
			}
		}
	}
	return out, nil
}
