package mpi

import (
	"fmt"
	"sort"
)

// Comparison is the result of comparing two communicators.
type Comparison int

const (
	// Ident means both handles refer to the same communicator.
	Ident Comparison = iota
	// Congruent means the communicators have the same members in the same
	// order.
	Congruent
	// Similar means the communicators have the same members in different
	// orders.
	Similar
	// Unequal means the members differ.
	Unequal
)

// Comm is one rank's handle to a communicator.
type Comm struct {
	world     *World
	worldComm *Comm
	state     *commState
	rank      int
	seq       int
	freed     bool

	// groupCalls counts CreateGroup calls per (group, tag) so repeated
	// creations over the same group get distinct rendezvous points.
	groupCalls map[string]int
}

// Size returns the number of ranks in the communicator.
func (c *Comm) Size() int { return len(c.state.ranks) }

// Rank returns the rank of the calling process within the communicator.
func (c *Comm) Rank() int { return c.rank }

// WorldRank returns the rank of the calling process within the world.
func (c *Comm) WorldRank() int { return c.state.ranks[c.rank] }

// ID returns an identifier which is shared by every handle to the
// communicator and unique within the world.
func (c *Comm) ID() int { return c.state.id }

// World returns the calling rank's handle to the world communicator.
func (c *Comm) World() *Comm { return c.worldComm }

// Group returns the group of processes in the communicator.
func (c *Comm) Group() *Group {
	return &Group{ranks: append([]int(nil), c.state.ranks...)}
}

// Free releases the handle. Any later collective call on it panics. Free is
// a local operation.
func (c *Comm) Free() {
	c.freed = true
}

// Compare compares two communicators the way MPI_Comm_compare does.
func Compare(c1, c2 *Comm) Comparison {
	if c1.state == c2.state {
		return Ident
	}
	r1, r2 := c1.state.ranks, c2.state.ranks
	if len(r1) != len(r2) {
		return Unequal
	}
	congruent := true
	for i := range r1 {
		if r1[i] != r2[i] {
			congruent = false
			break
		}
	}
	if congruent {
		return Congruent
	}
	s1, s2 := append([]int(nil), r1...), append([]int(nil), r2...)
	sort.Ints(s1)
	sort.Ints(s2)
	for i := range s1 {
		if s1[i] != s2[i] {
			return Unequal
		}
	}
	return Similar
}

func (c *Comm) checkLive() {
	if c.freed {
		panic("mpi: collective call on a freed communicator.")
	}
}

// exchange is the single building block of every collective over c: each
// member contributes v and receives all members' contributions.
func (c *Comm) exchange(v any) []any {
	c.checkLive()
	key := meetingKey{comm: c.state.id, seq: c.seq}
	c.seq++
	return c.world.meet(key, c.Size(), c.rank, v)
}

// derive makes a new handle for the calling rank on state.
func (c *Comm) derive(state *commState, rank int) *Comm {
	return &Comm{
		world: c.world, worldComm: c.worldComm, state: state, rank: rank,
	}
}

// Dup creates a new communicator with the same members. Collective.
func (c *Comm) Dup() *Comm {
	var v any
	if c.rank == 0 {
		v = c.world.newState(append([]int(nil), c.state.ranks...))
	}
	contrib := c.exchange(v)
	return c.derive(contrib[0].(*commState), c.rank)
}

// Split partitions the communicator by color, ordering the ranks of each new
// communicator by key and then by their rank in c. Processes passing
// Undefined as their color receive nil. Collective over c.
func (c *Comm) Split(color, key int) *Comm {
	type entry struct{ color, key, rank, world int }
	contrib := c.exchange(entry{color, key, c.rank, c.WorldRank()})

	var members []entry
	for _, v := range contrib {
		e := v.(entry)
		if color != Undefined && e.color == color {
			members = append(members, e)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		if members[i].key != members[j].key {
			return members[i].key < members[j].key
		}
		return members[i].rank < members[j].rank
	})

	// The first member of each color allocates the shared state.
	var v any
	myIndex := -1
	for i := range members {
		if members[i].rank == c.rank {
			myIndex = i
		}
	}
	if myIndex == 0 {
		ranks := make([]int, len(members))
		for i := range members {
			ranks[i] = members[i].world
		}
		v = c.world.newState(ranks)
	}
	states := c.exchange(v)

	if color == Undefined {
		return nil
	}
	return c.derive(states[members[0].rank].(*commState), myIndex)
}

// CreateGroup creates a communicator containing exactly the processes in g,
// which must be a subset of c. Only the members of g call it, and they must
// pass the same tag. Processes may call CreateGroup on disjoint groups
// concurrently.
func (c *Comm) CreateGroup(g *Group, tag int) *Comm {
	c.checkLive()
	index := g.Rank(c.WorldRank())
	if index == Undefined {
		panic(fmt.Sprintf("mpi: world rank %d called CreateGroup on a group "+
			"it does not belong to.", c.WorldRank()))
	}

	name := fmt.Sprintf("%v/%d", g.ranks, tag)
	if c.groupCalls == nil {
		c.groupCalls = map[string]int{}
	}
	seq := c.groupCalls[name]
	c.groupCalls[name]++

	var v any
	if index == 0 {
		v = c.world.newState(append([]int(nil), g.ranks...))
	}
	key := meetingKey{comm: c.state.id, seq: seq, tag: name}
	contrib := c.world.meet(key, g.Size(), index, v)
	return c.derive(contrib[0].(*commState), index)
}

// Group is an ordered set of world ranks.
type Group struct {
	ranks []int
}

// NewGroup creates a group from a list of world ranks.
func NewGroup(worldRanks []int) *Group {
	return &Group{ranks: append([]int(nil), worldRanks...)}
}

// Size returns the number of processes in the group.
func (g *Group) Size() int { return len(g.ranks) }

// Ranks returns the world ranks of the group's members.
func (g *Group) Ranks() []int { return append([]int(nil), g.ranks...) }

// Rank returns the position of worldRank within the group or Undefined.
func (g *Group) Rank(worldRank int) int {
	for i, r := range g.ranks {
		if r == worldRank {
			return i
		}
	}
	return Undefined
}

// Union returns the processes of g1 followed by the processes of g2 which
// are not in g1.
func Union(g1, g2 *Group) *Group {
	out := append([]int(nil), g1.ranks...)
	for _, r := range g2.ranks {
		if g1.Rank(r) == Undefined {
			out = append(out, r)
		}
	}
	return &Group{ranks: out}
}
