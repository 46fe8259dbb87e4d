package lib

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/bcmat/lib/eq"
	"github.com/phil-mansfield/bcmat/lib/scalapack"
)

func TestParseCommandLine(t *testing.T) {
	mode, config, args, err := ParseCommandLine([]string{
		"run", "bcmat.config", "--Rows", "12", "--processes", "1..3",
		"--IOMode", "parallel", "--Seed", "7",
	})
	require.NoError(t, err)
	require.Equal(t, "run", mode)
	require.Equal(t, "bcmat.config", config)
	require.Equal(t, 12, args.Matrix.Rows)
	require.Equal(t, int64(7), args.Matrix.Seed)
	require.Equal(t, "1..3", args.Grid.Processes)
	require.Equal(t, "parallel", args.Run.IOMode)
	require.Zero(t, args.Matrix.Columns)

	mode, config, _, err = ParseCommandLine([]string{"help"})
	require.NoError(t, err)
	require.Equal(t, "help", mode)
	require.Equal(t, "", config)

	bad := [][]string{
		{},
		{"run", "bcmat.config", "--Rows"},
		{"run", "bcmat.config", "Rows", "12"},
		{"run", "bcmat.config", "--Meow", "12"},
		{"run", "bcmat.config", "--Rows", "twelve"},
	}
	for i := range bad {
		_, _, _, err := ParseCommandLine(bad[i])
		if err == nil {
			t.Errorf("%d) Expected ParseCommandLine(%q) to fail.", i, bad[i])
		}
	}
}

func writeConfig(t *testing.T, text string) string {
	name := filepath.Join(t.TempDir(), "bcmat.config")
	require.NoError(t, os.WriteFile(name, []byte(text), 0644))
	return name
}

func TestParseConfigFile(t *testing.T) {
	name := writeConfig(t, `[Grid]
Processes = 1..4 + 8 - 3
ProcessRows = 2
ProcessColumns = 1

[Matrix]
Rows = 10
ColumnBlockSize = 3

[Run]
Operations = cholesky, invert
CheckStrictness = warn
`)
	raw, err := ParseConfigFile(name)
	require.NoError(t, err)
	require.Equal(t, 10, raw.Matrix.Rows)
	// Variables missing from the file keep their defaults.
	require.Equal(t, 64, raw.Matrix.Columns)
	require.Equal(t, "serial", raw.Run.IOMode)

	args, err := raw.Process()
	require.NoError(t, err)
	require.True(t, eq.Ints(args.Processes, []int{1, 2, 4, 8}))
	require.Equal(t, 2, args.ProcessRows)
	require.Equal(t, 3, args.ColumnBlockSize)
	require.Equal(t, []Operation{Cholesky, Invert}, args.Operations)
	require.Equal(t, WarnOnError, args.CheckStrictness)
	require.Equal(t, scalapack.SerialIO, args.IOMode)

	_, err = ParseConfigFile(writeConfig(t, "[Matrix]\nMeow = 3\n"))
	require.Error(t, err)
	_, err = ParseConfigFile(filepath.Join(t.TempDir(), "missing.config"))
	require.Error(t, err)
}

func TestOverwrite(t *testing.T) {
	raw := DefaultRawArgs()
	_, _, cmd, err := ParseCommandLine([]string{
		"run", "bcmat.config", "--Columns", "5", "--Operations", "svd",
	})
	require.NoError(t, err)
	raw.Overwrite(cmd)

	require.Equal(t, 64, raw.Matrix.Rows)
	require.Equal(t, 5, raw.Matrix.Columns)
	require.Equal(t, "svd", raw.Run.Operations)
	require.Equal(t, -1, raw.Run.Threads)
}

func TestExampleConfigIsDefault(t *testing.T) {
	raw, err := ParseConfigFile(writeConfig(t, ExampleConfig))
	require.NoError(t, err)
	require.Equal(t, DefaultRawArgs(), raw)
}

func TestPrintHelp(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	PrintHelp()
	os.Stdout = stdout
	require.NoError(t, w.Close())

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Contains(t, string(out), ExampleConfig)
	require.Contains(t, string(out), "Checkpoint = bcmat_p{%d,processes}.chk")
}

func TestProcessErrors(t *testing.T) {
	tests := []func(raw *RawArgs){
		func(raw *RawArgs) { raw.Grid.Processes = "0..2" },
		func(raw *RawArgs) { raw.Grid.Processes = "1..2 +" },
		func(raw *RawArgs) { raw.Grid.Processes = "4 - 4" },
		func(raw *RawArgs) { raw.Grid.ProcessRows = 2 },
		func(raw *RawArgs) { raw.Grid.ProcessRows, raw.Grid.ProcessColumns = -1, -2 },
		func(raw *RawArgs) { raw.Matrix.Rows = 0 },
		func(raw *RawArgs) { raw.Matrix.RowBlockSize = -4 },
		func(raw *RawArgs) { raw.Run.Operations = "norms, meow" },
		func(raw *RawArgs) { raw.Run.Operations = " , " },
		func(raw *RawArgs) { raw.Run.IOMode = "both" },
		func(raw *RawArgs) { raw.Run.Threads = 0 },
		func(raw *RawArgs) { raw.Run.CheckStrictness = "strict" },
	}

	for i := range tests {
		raw := DefaultRawArgs()
		tests[i](raw)
		if _, err := raw.Process(); err == nil {
			t.Errorf("%d) Expected Process() to fail.", i)
		}
	}
}

func TestParseOperations(t *testing.T) {
	ops, err := ParseOperations("Norms,lstsq, mult ,norms,checkpoint")
	require.NoError(t, err)
	require.Equal(t, []Operation{Norms, LeastSquares, Mult, Norms, Checkpoint}, ops)
	require.Equal(t, []Operation{Norms, LeastSquares, Mult, Checkpoint},
		uniqueOperations(ops))
	require.Equal(t, "eigenvalues", Eigenvalues.String())
}
