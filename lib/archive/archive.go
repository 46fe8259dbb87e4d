/*package archive implements bcmat's self-describing checkpoint files. A file
holds named datasets of two classes: two-dimensional arrays of float64
values, stored in fixed-size chunks, and single enumeration values, stored
along with the names of every member of their enumeration.

The layout on disk is

   magic number | version | directory offset | chunk data ... | directory

Chunks of an array are either compressed with zstd, in which case the whole
array has to be written at once by a single process, or raw, in which case
the space for every chunk is reserved when the dataset is created and
different processes can fill disjoint hyperslabs of the array through their
own handles to the file. The directory is rewritten at the end of the file
whenever a handle which added datasets is closed.
*/
package archive

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

const (
	// MagicNumber is an arbitrary number at the start of every checkpoint
	// file which helps identify when the code is run on something else by
	// accident.
	MagicNumber = 0xbc3a7f11
	// ReverseMagicNumber is the magic number if read on a machine with
	// flipped endianness.
	ReverseMagicNumber = 0x117f3abc
	Version            = 1

	headerSize = 16
)

// Class is the type of the values held by a dataset.
type Class uint8

const (
	Float64 Class = iota + 1
	Enum
)

func (c Class) String() string {
	switch c {
	case Float64:
		return "float64"
	case Enum:
		return "enum"
	}
	return fmt.Sprintf("Class(%d)", uint8(c))
}

// EnumType is a named enumeration. Names[i] has the value Values[i].
type EnumType struct {
	Names  []string
	Values []int64
}

// Name returns the name of value v, or "" if v is not a member.
func (t EnumType) Name(v int64) string {
	for i := range t.Values {
		if t.Values[i] == v {
			return t.Names[i]
		}
	}
	return ""
}

// Equal returns true if the two enumerations have the same members.
func (t EnumType) Equal(u EnumType) bool {
	if len(t.Names) != len(u.Names) || len(t.Values) != len(u.Values) {
		return false
	}
	for i := range t.Names {
		if t.Names[i] != u.Names[i] || t.Values[i] != u.Values[i] {
			return false
		}
	}
	return true
}

// Dataset describes one dataset of a file.
type Dataset struct {
	Name  string
	Class Class
	// Dims and Chunk are the shape of the array and of its chunks. Arrays
	// are stored in row-major order.
	Dims, Chunk [2]int
	Compressed  bool

	// Enum and Value are set for enumeration datasets.
	Enum  EnumType
	Value int64

	// base is the start of the reserved space of raw arrays. offsets and
	// lengths locate the chunks of compressed arrays.
	base             int64
	offsets, lengths []int64
}

// Describe returns a one-line summary of the dataset.
func (ds *Dataset) Describe() string {
	switch ds.Class {
	case Enum:
		return fmt.Sprintf("%s: enum %v = %s", ds.Name, ds.Enum.Names,
			ds.Enum.Name(ds.Value))
	default:
		storage := "raw"
		if ds.Compressed {
			storage = "zstd"
		}
		return fmt.Sprintf("%s: %s %d x %d, chunks %d x %d, %s", ds.Name,
			ds.Class, ds.Dims[0], ds.Dims[1], ds.Chunk[0], ds.Chunk[1], storage)
	}
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// File is a handle to a checkpoint file.
type File struct {
	name     string
	f        *os.File
	order    byteOrder
	datasets []*Dataset
	end      int64
	writable bool
	dirty    bool
}

// Create creates a new, empty file, truncating any existing one.
func Create(name string) (*File, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: creating %s", name)
	}
	file := &File{
		name: name, f: f, order: binary.LittleEndian,
		end: headerSize, writable: true, dirty: true,
	}
	if err := file.writeHeader(0); err != nil {
		f.Close()
		return nil, err
	}
	return file, nil
}

// Open opens an existing file for reading.
func Open(name string) (*File, error) {
	return open(name, os.O_RDONLY)
}

// OpenForWriting opens an existing file for reading and writing. Datasets
// can be added to it, and raw arrays can be written.
func OpenForWriting(name string) (*File, error) {
	return open(name, os.O_RDWR)
}

func open(name string, flag int) (*File, error) {
	f, err := os.OpenFile(name, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "archive: opening %s", name)
	}
	file := &File{name: name, f: f, writable: flag == os.O_RDWR}

	dirOffset, err := file.checkFile()
	if err != nil {
		f.Close()
		return nil, err
	}
	if err := file.readDirectory(dirOffset); err != nil {
		f.Close()
		return nil, err
	}
	file.end = dirOffset
	return file, nil
}

// Name returns the path of the file.
func (file *File) Name() string { return file.name }

// Datasets returns the datasets of the file in the order they were
// created.
func (file *File) Datasets() []*Dataset {
	return append([]*Dataset(nil), file.datasets...)
}

// Dataset returns the dataset with the given name.
func (file *File) Dataset(name string) (*Dataset, error) {
	for _, ds := range file.datasets {
		if ds.Name == name {
			return ds, nil
		}
	}
	names := make([]string, len(file.datasets))
	for i := range names {
		names[i] = file.datasets[i].Name
	}
	return nil, fmt.Errorf("The dataset '%s' is not in the file %s. It "+
		"only contains the datasets %s.", name, file.name, names)
}

// Close writes the directory if datasets were added and closes the file.
func (file *File) Close() error {
	defer file.f.Close()
	if !file.dirty {
		return nil
	}
	if err := file.writeDirectory(); err != nil {
		return err
	}
	return errors.Wrapf(file.f.Sync(), "archive: syncing %s", file.name)
}

func (file *File) add(ds *Dataset) error {
	if !file.writable {
		return fmt.Errorf("The file %s was opened read-only, so the dataset "+
			"'%s' cannot be added to it.", file.name, ds.Name)
	}
	for _, other := range file.datasets {
		if other.Name == ds.Name {
			return fmt.Errorf("The file %s already contains a dataset named "+
				"'%s'.", file.name, ds.Name)
		}
	}
	file.datasets = append(file.datasets, ds)
	file.dirty = true
	return nil
}

// WriteEnum adds an enumeration dataset holding value.
func (file *File) WriteEnum(name string, t EnumType, value int64) error {
	if len(t.Names) != len(t.Values) {
		return fmt.Errorf("The enumeration of '%s' has %d names but %d values.",
			name, len(t.Names), len(t.Values))
	}
	if t.Name(value) == "" {
		return fmt.Errorf("The value %d is not a member of the enumeration "+
			"%v of '%s'.", value, t.Names, name)
	}
	return file.add(&Dataset{
		Name: name, Class: Enum, Dims: [2]int{1, 1}, Chunk: [2]int{1, 1},
		Enum: t, Value: value,
	})
}

// ReadEnum returns the enumeration and value of an enumeration dataset.
func (file *File) ReadEnum(name string) (EnumType, int64, error) {
	ds, err := file.Dataset(name)
	if err != nil {
		return EnumType{}, 0, err
	}
	if ds.Class != Enum {
		return EnumType{}, 0, fmt.Errorf("The dataset '%s' in %s has the "+
			"class %s, not enum.", name, file.name, ds.Class)
	}
	return ds.Enum, ds.Value, nil
}

// writeHeader writes the magic number, version, and directory offset.
func (file *File) writeHeader(dirOffset int64) error {
	buf := &bytes.Buffer{}
	binary.Write(buf, file.order, uint32(MagicNumber))
	binary.Write(buf, file.order, uint32(Version))
	binary.Write(buf, file.order, dirOffset)
	_, err := file.f.WriteAt(buf.Bytes(), 0)
	return errors.Wrapf(err, "archive: writing the header of %s", file.name)
}

// checkFile reads in the file's magic number and version number and makes
// sure that bcmat can actually read it. It sets the byte order and returns
// the directory offset.
func (file *File) checkFile() (int64, error) {
	hd := make([]byte, headerSize)
	if _, err := file.f.ReadAt(hd, 0); err != nil {
		return 0, errors.Wrapf(err, "archive: reading the header of %s", file.name)
	}

	file.order = binary.LittleEndian
	switch magic := file.order.Uint32(hd[0:4]); magic {
	case MagicNumber:
	case ReverseMagicNumber:
		file.order = binary.BigEndian
	default:
		return 0, fmt.Errorf("%s is not a bcmat checkpoint file. All "+
			"checkpoint files begin with either the 32-bit integer %x or %x. "+
			"This file begins with %x.", file.name, MagicNumber,
			ReverseMagicNumber, magic)
	}

	if version := file.order.Uint32(hd[4:8]); version > Version {
		return 0, fmt.Errorf("The file %s was written with checkpoint "+
			"version %d, but this code only reads versions up to %d.",
			file.name, version, Version)
	}
	dirOffset := int64(file.order.Uint64(hd[8:16]))
	if dirOffset < headerSize {
		return 0, fmt.Errorf("The file %s has no directory. It was probably "+
			"not closed after it was written.", file.name)
	}
	return dirOffset, nil
}

func writeString(w io.Writer, order binary.ByteOrder, s string) {
	binary.Write(w, order, uint32(len(s)))
	w.Write([]byte(s))
}

func readString(r io.Reader, order binary.ByteOrder) (string, error) {
	var n uint32
	if err := binary.Read(r, order, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	_, err := io.ReadFull(r, b)
	return string(b), err
}

// writeDirectory writes the directory at the end of the file and points the
// header at it.
func (file *File) writeDirectory() error {
	buf, order := &bytes.Buffer{}, file.order
	binary.Write(buf, order, uint32(len(file.datasets)))
	for _, ds := range file.datasets {
		writeString(buf, order, ds.Name)
		compressed := uint8(0)
		if ds.Compressed {
			compressed = 1
		}
		binary.Write(buf, order, uint8(ds.Class))
		binary.Write(buf, order, compressed)
		binary.Write(buf, order, [4]int64{
			int64(ds.Dims[0]), int64(ds.Dims[1]),
			int64(ds.Chunk[0]), int64(ds.Chunk[1]),
		})
		binary.Write(buf, order, ds.base)
		binary.Write(buf, order, uint32(len(ds.offsets)))
		binary.Write(buf, order, ds.offsets)
		binary.Write(buf, order, ds.lengths)

		binary.Write(buf, order, uint32(len(ds.Enum.Names)))
		for _, name := range ds.Enum.Names {
			writeString(buf, order, name)
		}
		binary.Write(buf, order, ds.Enum.Values)
		binary.Write(buf, order, ds.Value)
	}

	if _, err := file.f.WriteAt(buf.Bytes(), file.end); err != nil {
		return errors.Wrapf(err, "archive: writing the directory of %s", file.name)
	}
	if err := file.f.Truncate(file.end + int64(buf.Len())); err != nil {
		return errors.Wrapf(err, "archive: truncating %s", file.name)
	}
	return file.writeHeader(file.end)
}

func (file *File) readDirectory(offset int64) error {
	info, err := file.f.Stat()
	if err != nil {
		return errors.Wrapf(err, "archive: reading the size of %s", file.name)
	}
	r := io.NewSectionReader(file.f, offset, info.Size()-offset)
	order := file.order

	var n uint32
	if err := binary.Read(r, order, &n); err != nil {
		return errors.Wrapf(err, "archive: reading the directory of %s", file.name)
	}
	file.datasets = make([]*Dataset, n)
	for i := range file.datasets {
		ds, err := readDataset(r, order)
		if err != nil {
			return errors.Wrapf(err, "archive: reading dataset %d of %s", i, file.name)
		}
		file.datasets[i] = ds
	}
	return nil
}

func readDataset(r io.Reader, order binary.ByteOrder) (*Dataset, error) {
	ds := &Dataset{}
	var err error
	if ds.Name, err = readString(r, order); err != nil {
		return nil, err
	}

	var class, compressed uint8
	var shape [4]int64
	var nChunks uint32
	for _, x := range []any{&class, &compressed, &shape, &ds.base, &nChunks} {
		if err := binary.Read(r, order, x); err != nil {
			return nil, err
		}
	}
	ds.Class, ds.Compressed = Class(class), compressed == 1
	ds.Dims = [2]int{int(shape[0]), int(shape[1])}
	ds.Chunk = [2]int{int(shape[2]), int(shape[3])}

	ds.offsets, ds.lengths = make([]int64, nChunks), make([]int64, nChunks)
	if err := binary.Read(r, order, ds.offsets); err != nil {
		return nil, err
	}
	if err := binary.Read(r, order, ds.lengths); err != nil {
		return nil, err
	}

	var nNames uint32
	if err := binary.Read(r, order, &nNames); err != nil {
		return nil, err
	}
	ds.Enum.Names = make([]string, nNames)
	for i := range ds.Enum.Names {
		if ds.Enum.Names[i], err = readString(r, order); err != nil {
			return nil, err
		}
	}
	ds.Enum.Values = make([]int64, nNames)
	if err := binary.Read(r, order, ds.Enum.Values); err != nil {
		return nil, err
	}
	if err := binary.Read(r, order, &ds.Value); err != nil {
		return nil, err
	}
	return ds, nil
}
