package lib

/* thread.go contains functions useful for multi-threading. */

import (
	"fmt"
	"runtime"
)

// SetThreads sets the number of OS threads which run goroutines. n = -1 uses
// one thread per core.
func SetThreads(n int) error {
	if n == -1 {
		n = runtime.NumCPU()
	}
	if n > runtime.NumCPU() {
		return fmt.Errorf("%d threads requested, but your system only has %d "+
			"cores. If you want bcmat to use the maximum number of threads, "+
			"set Threads = -1.", n, runtime.NumCPU())
	}

	runtime.GOMAXPROCS(n)
	return nil
}
