/*package mpi is an in-process message-passing layer. A World holds a fixed
number of ranks, each running in its own goroutine, and each rank sees the
world through Comm handles which support the collective operations that
bcmat needs: broadcasts, gathers, all-to-all exchanges, reductions, and the
creation of sub-communicators.

The routine names follow the MPI calls they stand in for. As with MPI, every
member of a communicator must call the same collectives in the same order.
A Comm handle belongs to a single rank and must not be shared between
goroutines.

If any rank fails (returns an error or panics), the whole World is aborted:
every rank blocked in a collective panics with ErrAborted, which Run
recovers, and Run returns the error of the rank which failed first.
*/
package mpi

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// Undefined is returned by Group.Rank for processes outside the group
	// and may be passed to Split as a color to opt out of every new
	// communicator.
	Undefined = -1
)

// ErrAborted is raised inside ranks which were blocked in a collective when
// another rank failed.
var ErrAborted = errors.New("mpi: the world was aborted by another rank")

// World is a fixed-size collection of ranks.
type World struct {
	size int

	mu       sync.Mutex
	meetings map[meetingKey]*meeting
	nextID   int
	running  bool

	abort     chan struct{}
	abortOnce sync.Once
	cause     error
}

// meetingKey identifies one collective call. Collectives over a
// communicator are keyed by the caller's sequence number on it; group
// creation calls are keyed by tag since non-members never see them.
type meetingKey struct {
	comm, seq int
	tag       string
}

// meeting is the rendezvous point of a single collective call.
type meeting struct {
	contrib []any
	arrived int
	done    chan struct{}
}

// commState is shared by all the handles of a communicator.
type commState struct {
	id    int
	ranks []int
}

// NewWorld creates a World with size ranks.
func NewWorld(size int) *World {
	if size < 1 {
		panic(fmt.Sprintf("mpi: a World must have at least one rank, but %d were requested.", size))
	}
	return &World{
		size:     size,
		meetings: map[meetingKey]*meeting{},
		abort:    make(chan struct{}),
	}
}

// Size returns the number of ranks in the world.
func (w *World) Size() int { return w.size }

// Run starts one goroutine per rank, calls f with that rank's handle to the
// world communicator, and waits for every rank to return. A World can only
// be run once.
func (w *World) Run(f func(comm *Comm) error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		panic("mpi: World.Run called twice on the same World.")
	}
	w.running = true
	w.mu.Unlock()

	ranks := make([]int, w.size)
	for i := range ranks {
		ranks[i] = i
	}
	state := w.newState(ranks)

	var g errgroup.Group
	for r := 0; r < w.size; r++ {
		comm := &Comm{world: w, state: state, rank: r}
		comm.worldComm = comm
		g.Go(func() (err error) {
			defer func() {
				if p := recover(); p != nil {
					err = rankPanic(comm.rank, p)
				}
				if err != nil {
					w.fail(err)
				}
			}()
			return f(comm)
		})
	}

	err := g.Wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cause != nil {
		return w.cause
	}
	return err
}

// Run is a shorthand for NewWorld(size).Run(f).
func Run(size int, f func(comm *Comm) error) error {
	return NewWorld(size).Run(f)
}

func rankPanic(rank int, p any) error {
	if err, ok := p.(error); ok && errors.Is(err, ErrAborted) {
		return ErrAborted
	}
	return fmt.Errorf("mpi: rank %d panicked: %v\n%s", rank, p, debug.Stack())
}

// fail records the first real failure and wakes up every blocked rank.
func (w *World) fail(err error) {
	w.mu.Lock()
	if w.cause == nil && !errors.Is(err, ErrAborted) {
		w.cause = err
	}
	w.mu.Unlock()
	w.abortOnce.Do(func() { close(w.abort) })
}

func (w *World) newState(ranks []int) *commState {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	return &commState{id: w.nextID, ranks: ranks}
}

// meet blocks until all size participants of the collective identified by
// key have arrived and returns every participant's contribution, indexed by
// participant. Contributions are shared between readers and must not be
// modified.
func (w *World) meet(key meetingKey, size, index int, v any) []any {
	w.mu.Lock()
	m, ok := w.meetings[key]
	if !ok {
		m = &meeting{contrib: make([]any, size), done: make(chan struct{})}
		w.meetings[key] = m
	}
	m.contrib[index] = v
	m.arrived++
	if m.arrived == size {
		delete(w.meetings, key)
		close(m.done)
	}
	w.mu.Unlock()

	select {
	case <-m.done:
		return m.contrib
	default:
	}

	select {
	case <-m.done:
		return m.contrib
	case <-w.abort:
		panic(ErrAborted)
	}
}
