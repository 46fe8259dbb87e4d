/*package layout contains the index arithmetic of block-cyclic
distributions. Along one dimension, a vector of length N is cut into blocks
of NB elements, and block b is owned by process (Src + b) % NProcs. The
functions here translate between global indices and (owner, local index)
pairs and compute how many elements each process owns.

All indices are 0-based. The functions are pure and do no communication.
*/
package layout

import (
	"fmt"
)

// Dim describes the distribution of one dimension of a matrix.
type Dim struct {
	// N is the global length and NB is the block size.
	N, NB int
	// NProcs is the number of processes along this dimension of the grid.
	NProcs int
	// Src is the process which owns the first block.
	Src int
}

// Owner returns the process that owns global index g.
func (d Dim) Owner(g int) int {
	owner, _ := OwnerAndLocal(g, d.NB, d.NProcs, d.Src)
	return owner
}

// Local returns the index of global index g within its owner's local
// storage.
func (d Dim) Local(g int) int {
	_, local := OwnerAndLocal(g, d.NB, d.NProcs, d.Src)
	return local
}

// Global returns the global index of local index l on process iproc.
func (d Dim) Global(l, iproc int) int {
	return LocalToGlobal(l, d.NB, iproc, d.Src, d.NProcs)
}

// Count returns the number of elements owned by process iproc.
func (d Dim) Count(iproc int) int {
	return Numroc(d.N, d.NB, iproc, d.Src, d.NProcs)
}

// OwnerAndLocal returns the process which owns global index g and the
// index of g within that process's local storage.
func OwnerAndLocal(g, nb, nprocs, src int) (owner, local int) {
	checkBlocking(nb, nprocs)
	owner = (src + g/nb) % nprocs
	local = (g/(nb*nprocs))*nb + g%nb
	return owner, local
}

// LocalToGlobal returns the global index of local index l on process iproc.
func LocalToGlobal(l, nb, iproc, src, nprocs int) int {
	checkBlocking(nb, nprocs)
	blk := l / nb
	return (blk*nprocs+(nprocs+iproc-src)%nprocs)*nb + l%nb
}

// Numroc returns the number of elements of a length-n dimension which are
// owned by process iproc.
func Numroc(n, nb, iproc, src, nprocs int) int {
	checkBlocking(nb, nprocs)
	mydist := (nprocs + iproc - src) % nprocs
	nblocks := n / nb
	num := (nblocks / nprocs) * nb
	extra := nblocks % nprocs
	if mydist < extra {
		num += nb
	} else if mydist == extra {
		num += n % nb
	}
	return num
}

func checkBlocking(nb, nprocs int) {
	if nb < 1 || nprocs < 1 {
		panic(fmt.Sprintf("layout: block size %d and process count %d "+
			"must both be positive.", nb, nprocs))
	}
}
