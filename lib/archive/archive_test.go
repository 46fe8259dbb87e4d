package archive

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/bcmat/lib/eq"
)

func sequence(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i)*1.5 - 7
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		dims, chunk [2]int
		compressed  bool
	}{
		{[2]int{1, 1}, [2]int{1, 1}, true},
		{[2]int{6, 6}, [2]int{6, 1}, true},
		{[2]int{5, 7}, [2]int{2, 3}, true},
		{[2]int{5, 7}, [2]int{2, 3}, false},
		{[2]int{4, 9}, [2]int{4, 9}, false},
		{[2]int{9, 4}, [2]int{1, 1}, false},
	}

	dir := t.TempDir()
	for i := range tests {
		test := tests[i]
		name := filepath.Join(dir, "rt.chk")
		data := sequence(test.dims[0] * test.dims[1])

		f, err := Create(name)
		require.NoError(t, err)
		ds, err := f.CreateDataset("matrix", test.dims, test.chunk, test.compressed)
		require.NoError(t, err)
		require.NoError(t, f.Write(ds, data))
		require.NoError(t, f.Close())

		f, err = Open(name)
		require.NoError(t, err)
		ds, err = f.Dataset("matrix")
		require.NoError(t, err)
		if ds.Dims != test.dims || ds.Chunk != test.chunk || ds.Compressed != test.compressed {
			t.Errorf("%d) Expected dataset %v %v %v, got %s.", i,
				test.dims, test.chunk, test.compressed, ds.Describe())
		}
		out, err := f.Read(ds)
		require.NoError(t, err)
		if !eq.Float64s(out, data) {
			t.Errorf("%d) Expected %g, got %g.", i, data, out)
		}

		// Read an interior block.
		if test.dims[0] > 2 && test.dims[1] > 2 {
			slab, err := f.ReadHyperslab(ds, [2]int{1, 1}, [2]int{2, 2})
			require.NoError(t, err)
			d1 := test.dims[1]
			exp := []float64{data[d1+1], data[d1+2], data[2*d1+1], data[2*d1+2]}
			if !eq.Float64s(slab, exp) {
				t.Errorf("%d) Expected hyperslab %g, got %g.", i, exp, slab)
			}
		}
		require.NoError(t, f.Close())
	}
}

func TestEnums(t *testing.T) {
	name := filepath.Join(t.TempDir(), "enum.chk")
	colors := EnumType{Names: []string{"red", "green"}, Values: []int64{0, 1}}

	f, err := Create(name)
	require.NoError(t, err)
	require.NoError(t, f.WriteEnum("color", colors, 1))
	require.Error(t, f.WriteEnum("color", colors, 0))
	require.Error(t, f.WriteEnum("other", colors, 5))
	require.NoError(t, f.Close())

	f, err = Open(name)
	require.NoError(t, err)
	defer f.Close()
	typ, v, err := f.ReadEnum("color")
	require.NoError(t, err)
	require.True(t, typ.Equal(colors))
	require.Equal(t, int64(1), v)
	require.Equal(t, "green", typ.Name(v))

	_, _, err = f.ReadEnum("missing")
	require.Error(t, err)
}

func TestParallelHyperslabs(t *testing.T) {
	// Four writers each fill a band of columns of a 6 x 10 array, the way
	// every process of a 1 x P grid does.
	name := filepath.Join(t.TempDir(), "par.chk")
	dims := [2]int{10, 6}
	data := sequence(dims[0] * dims[1])

	f, err := Create(name)
	require.NoError(t, err)
	_, err = f.CreateDataset("matrix", dims, [2]int{3, 6}, false)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	bands := [][2]int{{0, 3}, {3, 3}, {6, 3}, {9, 1}}
	var wg sync.WaitGroup
	errs := make([]error, len(bands))
	for i := range bands {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := OpenForWriting(name)
			if err != nil {
				errs[i] = err
				return
			}
			ds, _ := f.Dataset("matrix")
			lo, n := bands[i][0], bands[i][1]
			errs[i] = f.WriteHyperslab(ds, [2]int{lo, 0}, [2]int{n, dims[1]},
				data[lo*dims[1]:(lo+n)*dims[1]])
			if err := f.Close(); errs[i] == nil {
				errs[i] = err
			}
		}(i)
	}
	wg.Wait()
	for i := range errs {
		require.NoError(t, errs[i], "writer %d", i)
	}

	f, err = OpenForWriting(name)
	require.NoError(t, err)
	require.NoError(t, f.WriteEnum("state", EnumType{[]string{"matrix"}, []int64{5}}, 5))
	require.NoError(t, f.Close())

	f, err = Open(name)
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.Dataset("matrix")
	require.NoError(t, err)
	out, err := f.Read(ds)
	require.NoError(t, err)
	if !eq.Float64s(out, data) {
		t.Errorf("Expected %g, got %g.", data, out)
	}
	require.Len(t, f.Datasets(), 2)
}

func TestBadFiles(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "junk.chk")
	require.NoError(t, os.WriteFile(name, []byte("this is not a checkpoint"), 0644))
	_, err := Open(name)
	require.Error(t, err)

	_, err = Open(filepath.Join(dir, "missing.chk"))
	require.Error(t, err)

	f, err := Create(filepath.Join(dir, "ok.chk"))
	require.NoError(t, err)
	_, err = f.CreateDataset("m", [2]int{3, 3}, [2]int{4, 1}, false)
	require.Error(t, err)
	ds, err := f.CreateDataset("m", [2]int{3, 3}, [2]int{3, 1}, true)
	require.NoError(t, err)
	require.Error(t, f.WriteHyperslab(ds, [2]int{0, 0}, [2]int{1, 1}, []float64{1}))
	require.Error(t, f.Write(ds, []float64{1, 2}))
	require.NoError(t, f.Close())
}
