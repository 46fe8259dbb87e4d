package lib

/* inspect.go contains the core function of bcmat's "inspect" mode. */

import (
	"fmt"
	"io"

	"github.com/phil-mansfield/bcmat/lib/archive"
)

// Inspect writes a one-line description of every dataset in a checkpoint
// file to w.
func Inspect(w io.Writer, fileName string) error {
	f, err := archive.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "%s:\n", f.Name())
	for _, ds := range f.Datasets() {
		fmt.Fprintf(w, "    %s\n", ds.Describe())
	}
	return nil
}
