package lib

/* parse.go contains functions for reading bcmat's configuration. */

import (
	"fmt"
	"reflect"
	"strings"

	"gopkg.in/gcfg.v1"

	"github.com/phil-mansfield/bcmat/lib/format"
	"github.com/phil-mansfield/bcmat/lib/scalapack"
)

// RawArgs stores the unprocessed values which the user assigned to each config
// variable. Each section of the config file is a field of RawArgs.
type RawArgs struct {
	Grid struct {
		Processes      string
		ProcessRows    int
		ProcessColumns int
	}
	Matrix struct {
		Rows            int
		Columns         int
		RowBlockSize    int
		ColumnBlockSize int
		Seed            int64
	}
	Run struct {
		Operations      string
		Checkpoint      string
		IOMode          string
		Threads         int
		CheckStrictness string
	}
}

// Args stores configuration information. It is a post-processed version of
// RawArgs.
type Args struct {
	// Processes lists the number of processes of each run. ProcessRows and
	// ProcessColumns are zero if the grid is chosen from the matrix shape.
	Processes                   []int
	ProcessRows, ProcessColumns int

	Rows, Columns                 int
	RowBlockSize, ColumnBlockSize int
	Seed                          uint64

	Operations      []Operation
	Checkpoint      string
	IOMode          scalapack.IOMode
	Threads         int
	CheckStrictness CheckStrictness
}

// DefaultRawArgs returns the values used for variables which are not set in
// the config file.
func DefaultRawArgs() *RawArgs {
	raw := &RawArgs{}
	raw.Grid.Processes = "1"
	raw.Matrix.Rows, raw.Matrix.Columns = 64, 64
	raw.Matrix.RowBlockSize, raw.Matrix.ColumnBlockSize = 8, 8
	raw.Matrix.Seed = 1
	raw.Run.Operations = "norms"
	raw.Run.Checkpoint = "bcmat_p{%d,processes}.chk"
	raw.Run.IOMode = "serial"
	raw.Run.Threads = -1
	raw.Run.CheckStrictness = "crash"
	return raw
}

// ParseCommandLine parses the command line arguments and returns the mode bcmat
// is being run in, the name of the config file, and any arguments which were
// set. Expects that the arguments are presented in the order:
// $ bcmat <mode> <config file> [--<Arg1> <Value1>] [--<Arg2> <Value2>]
// argv does not include the name of the program. The config file may be
// omitted in "help" mode.
func ParseCommandLine(argv []string) (mode, configFile string, args *RawArgs, err error) {
	if len(argv) == 0 {
		return "", "", nil, fmt.Errorf("No mode was given. bcmat should be " +
			"run as '$ bcmat <mode> <config file> [--<Arg> <Value> ...]'.")
	}
	mode = argv[0]
	if len(argv) == 1 {
		return mode, "", &RawArgs{}, nil
	}
	configFile = argv[1]

	flags := argv[2:]
	if len(flags)%2 != 0 {
		return "", "", nil, fmt.Errorf("The command line variable '%s' has "+
			"no value.", flags[len(flags)-1])
	}

	sections := map[string][]string{}
	order := []string{}
	for i := 0; i < len(flags); i += 2 {
		if !strings.HasPrefix(flags[i], "--") {
			return "", "", nil, fmt.Errorf("The command line argument '%s' "+
				"should be a variable name starting with '--'.", flags[i])
		}
		name := flags[i][2:]
		section, ok := sectionOf(name)
		if !ok {
			return "", "", nil, fmt.Errorf("'%s' is not the name of a "+
				"config variable. Run '$ bcmat help' to see all of them.", name)
		}
		if _, ok := sections[section]; !ok {
			order = append(order, section)
		}
		sections[section] = append(sections[section],
			fmt.Sprintf("%s = %s", name, quote(flags[i+1])))
	}

	sb := &strings.Builder{}
	for _, section := range order {
		fmt.Fprintf(sb, "[%s]\n%s\n", section, strings.Join(sections[section], "\n"))
	}
	args = &RawArgs{}
	if err := gcfg.ReadStringInto(args, sb.String()); err != nil {
		return "", "", nil, fmt.Errorf("Could not parse the command line "+
			"variables: %s", err.Error())
	}
	return mode, configFile, args, nil
}

// sectionOf returns the config file section containing the variable name.
func sectionOf(name string) (string, bool) {
	t := reflect.TypeOf(RawArgs{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		for j := 0; j < section.Type.NumField(); j++ {
			if strings.EqualFold(section.Type.Field(j).Name, name) {
				return section.Name, true
			}
		}
	}
	return "", false
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// ParseConfigFile parses arguements from a config file. Variables which the
// file does not set keep the values of DefaultRawArgs.
func ParseConfigFile(fileName string) (*RawArgs, error) {
	args := DefaultRawArgs()
	if err := gcfg.ReadFileInto(args, fileName); err != nil {
		return nil, fmt.Errorf("Could not parse the config file %s: %s",
			fileName, err.Error())
	}
	return args, nil
}

// Overwrite arguments in arg1 which have been set to non-default values in
// arg2.
func (arg1 *RawArgs) Overwrite(arg2 *RawArgs) {
	v1, v2 := reflect.ValueOf(arg1).Elem(), reflect.ValueOf(arg2).Elem()
	for i := 0; i < v1.NumField(); i++ {
		s1, s2 := v1.Field(i), v2.Field(i)
		for j := 0; j < s1.NumField(); j++ {
			if !s2.Field(j).IsZero() {
				s1.Field(j).Set(s2.Field(j))
			}
		}
	}
}

// Process converts the raw user input to a format which is more useful for
// internal functions. Very simple validation will be done here, but nothing
// which requires interacting with external files.
func (raw *RawArgs) Process() (*Args, error) {
	args := &Args{
		ProcessRows:     raw.Grid.ProcessRows,
		ProcessColumns:  raw.Grid.ProcessColumns,
		Rows:            raw.Matrix.Rows,
		Columns:         raw.Matrix.Columns,
		RowBlockSize:    raw.Matrix.RowBlockSize,
		ColumnBlockSize: raw.Matrix.ColumnBlockSize,
		Seed:            uint64(raw.Matrix.Seed),
		Checkpoint:      raw.Run.Checkpoint,
		Threads:         raw.Run.Threads,
	}

	var err error
	if args.Processes, err = format.ExpandProcessFormat(raw.Grid.Processes); err != nil {
		return nil, err
	}
	if args.Operations, err = ParseOperations(raw.Run.Operations); err != nil {
		return nil, err
	}
	if args.IOMode, err = scalapack.ParseIOMode(raw.Run.IOMode); err != nil {
		return nil, err
	}
	if args.CheckStrictness, err = ParseCheckStrictness(raw.Run.CheckStrictness); err != nil {
		return nil, err
	}

	if (args.ProcessRows == 0) != (args.ProcessColumns == 0) {
		return nil, fmt.Errorf("ProcessRows = %d and ProcessColumns = %d. "+
			"Either both must be set or both must be zero.",
			args.ProcessRows, args.ProcessColumns)
	}
	if args.ProcessRows < 0 || args.ProcessColumns < 0 {
		return nil, fmt.Errorf("ProcessRows = %d and ProcessColumns = %d "+
			"cannot be negative.", args.ProcessRows, args.ProcessColumns)
	}
	for _, x := range []struct {
		name string
		val  int
	}{
		{"Rows", args.Rows}, {"Columns", args.Columns},
		{"RowBlockSize", args.RowBlockSize},
		{"ColumnBlockSize", args.ColumnBlockSize},
	} {
		if x.val < 1 {
			return nil, fmt.Errorf("%s = %d, but it must be positive.", x.name, x.val)
		}
	}
	if args.Threads == 0 || args.Threads < -1 {
		return nil, fmt.Errorf("Threads = %d, but it must be positive or -1.",
			args.Threads)
	}

	return args, nil
}

// ExampleConfig is a config file which sets every variable to its default.
const ExampleConfig = `[Grid]
# Processes is a sequence format (e.g. 1..4 + 8) listing the number of
# processes of each run.
Processes = 1
# ProcessRows and ProcessColumns fix the shape of the process grid. If both
# are zero, the grid is shaped after the matrix.
ProcessRows = 0
ProcessColumns = 0

[Matrix]
Rows = 64
Columns = 64
RowBlockSize = 8
ColumnBlockSize = 8
# Seed seeds the random number generator which fills the matrix.
Seed = 1

[Run]
# Operations is a comma-separated list of the operations to time. The valid
# operations are norms, cholesky, invert, eigenvalues, svd, lstsq, mult, and
# checkpoint.
Operations = norms
# Checkpoint is the file written by the checkpoint operation. The variable
# {%d,processes} is replaced by the number of processes in the run.
Checkpoint = bcmat_p{%d,processes}.chk
# IOMode is either serial or parallel.
IOMode = serial
# Threads is the value of GOMAXPROCS, or -1 for one thread per core.
Threads = -1
# CheckStrictness is either crash or warn.
CheckStrictness = crash
`

// PrintHelp prints every config variable along with its default value.
func PrintHelp() {
	fmt.Println("bcmat is run as:")
	fmt.Println("   $ bcmat <mode> <config file> [--<Arg> <Value> ...]")
	fmt.Println("   $ bcmat inspect <checkpoint file>")
	fmt.Println("The modes are help, check, run, and inspect. An example " +
		"config file follows.")
	fmt.Println()
	fmt.Printf("%s", ExampleConfig)
}
