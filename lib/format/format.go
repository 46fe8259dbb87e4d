/*package format handles bcmat's miniature formatting languages for process
counts and checkpoint file names, e.g:

   Processes = 1..4 + 6 + 9
   Checkpoint = out/matrix_p{%03d,processes}.chk

The exact rules are as follows:
File format strings are a combination of fixed text and variables. Fixed text is
always the same, and variables can change from run to run. Variables are
written as {verb,rule}. "verb" is a printf() verb (e.g. %03d) that specifies
how the variable should be printed. "rule" is the name of an integer which the
caller supplies, such as "processes", the size of the current run.

Sequence formats are a generic way to specify non-contiguous sequences of
natural numbers. They consist of a series of n tokens separated by "+" or "-".
Each token can be either a number or two numbers separted by "..". E.g.:

  100
  0..100
  0..10 + 100
  0..100 - 63 - 10..20

These strings build up sequences of numbers by adding/removing individual
numbers and contiguous sequences. For example, 0 through 10 would be 0..10,
1, 2, 3, 15, 16, 17 could be written as  1..17 - 4..13. This is useful for
skipping process counts which do not fit a grid.

All spaces around "-", "+", and "," symbols are ignored.
*/
package format

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// Any expanded formats which would have more than BigNumber elements are
	// assumed to be bugs.
	BigNumber = 1 << 20
)

// ExpandSequenceFormat expands a sequence format string into a sorted sequence
// of integers.
func ExpandSequenceFormat(format string) ([]int, error) {
	// Parse and error-check the format string.
	tok, err := tokeniseSequenceFormat(format)
	if err != nil {
		return nil, err
	}
	adds, subs, err := addsSubsSequenceFormat(tok)
	if err != nil {
		return nil, err
	}

	// Add numbers to the sequence.
	m := map[int]int{}
	for i := range adds {
		ns := parseSequenceFormatToken(adds[i])
		for _, n := range ns {
			if _, ok := m[n]; ok {
				return nil, fmt.Errorf("The number %d is added more than once.", n)
			}
			m[n] = n
		}
	}

	// Remove numbers from the sequence.
	for i := range subs {
		ns := parseSequenceFormatToken(subs[i])
		for _, n := range ns {
			if _, ok := m[n]; !ok {
				return nil, fmt.Errorf("The number %d is removed more times than it was inserted.", n)
			}
			delete(m, n)
		}
	}

	if len(m) > BigNumber {
		return nil, fmt.Errorf("This sequence would have %d elements, which is almost certianly a bug.", len(m))
	}

	// Convert to a sorted array of integers.
	out := []int{}
	for n := range m {
		out = append(out, n)
	}
	sort.Ints(out)

	return out, nil
}

// tokeniseSequenceFormat splits a sequence format string into numbers,
// ranges, and the operators between them.
func tokeniseSequenceFormat(format string) ([]string, error) {
	// Make sure all operators are separated by spaces.
	formatClean := strings.ReplaceAll(format, "+", " + ")
	formatClean = strings.ReplaceAll(formatClean, "-", " - ")

	// Tokenize and remove empty tokens.
	tok := strings.Fields(formatClean)
	if len(tok) == 0 {
		return nil, fmt.Errorf("The format string is empty.")
	}
	return tok, nil
}

func addsSubsSequenceFormat(tok []string) (adds, subs []string, err error) {
	if len(tok) == 0 {
		return nil, nil, fmt.Errorf("Format string is empty")
	}

	// Handle the case where the starting "+" is dropped.
	adds, subs = []string{}, []string{}
	var start int
	if tok[0] == "+" || tok[0] == "-" {
		start = 0
	} else {
		if err := isSequenceFormatToken(tok[0]); err != nil {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', cannot be parsed because %s",
				1, tok[0], err.Error(),
			)
		}

		adds = append(adds, tok[0])
		start = 1
	}

	for i := start; i < len(tok); i += 2 {
		if tok[i] != "-" && tok[i] != "+" {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', should be a '-' or '+', but isn't.",
				i+1, tok[i])
		}

		if i+1 >= len(tok) {
			return nil, nil, fmt.Errorf(
				"The format string ends in a trailing '%s'", tok[i],
			)
		}

		if err := isSequenceFormatToken(tok[i+1]); err != nil {
			return nil, nil, fmt.Errorf(
				"Element number %d, '%s', cannot be parsed because %s",
				i+2, tok[i+1], err.Error(),
			)
		}

		if tok[i] == "+" {
			adds = append(adds, tok[i+1])
		} else {
			subs = append(subs, tok[i+1])
		}
	}

	return adds, subs, nil
}

// isSequenceFormatToken returns a nil error is tok is a valid token for
// a sequence format and an error describing the problem otherwise. The error
// message assumes it is printed after a trailing "beacause"
func isSequenceFormatToken(tok string) error {
	if len(tok) == 0 {
		return fmt.Errorf("the format string is empty.")
	}

	bounds := strings.Split(tok, "..")

	switch len(bounds) {
	case 1:
		_, err := strconv.Atoi(bounds[0])
		if err != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		return nil
	case 2:
		start, err1 := strconv.Atoi(bounds[0])
		if err1 != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[0])
		}
		end, err2 := strconv.Atoi(bounds[1])
		if err2 != nil {
			return fmt.Errorf("'%s' is not an integer.", bounds[1])
		}
		if end < start {
			return fmt.Errorf("lower bound %d is larger than upper bound %d.",
				start, end)
		}

		return nil
	}
	return fmt.Errorf("it has more than one '..'.")
}

// parseSeqeunceFormatToken parses a single token in a seqeunce format stirng
// and returns the corresponding array of numbers. This function assumes that
// the tests in isSequenceFormatToken have already been run and thus does no
// error checking.
func parseSequenceFormatToken(tok string) []int {
	bounds := strings.Split(tok, "..")

	switch len(bounds) {
	case 1:
		n, _ := strconv.Atoi(tok)
		return []int{n}
	case 2:
		start, _ := strconv.Atoi(bounds[0])
		end, _ := strconv.Atoi(bounds[1])
		out := []int{}
		for n := start; n <= end; n++ {
			out = append(out, n)
		}
		return out
	}

	panic(fmt.Sprintf("Invalid sequence format token, '%s', passed "+
		"isSequenceFormatToken()", tok))
}

// ExpandProcessFormat expands the format string specifying the process counts
// bcmat runs with. This format string takes the same form as the general
// ExpandSequenceFormat format string, but every count must be positive.
func ExpandProcessFormat(format string) ([]int, error) {
	procs, err := ExpandSequenceFormat(format)
	if err != nil {
		return nil, fmt.Errorf("The Processes format string, '%s' is not "+
			"valid. %s", format, err.Error())
	}
	if len(procs) == 0 {
		return nil, fmt.Errorf("The Processes format string, '%s' does not "+
			"contain any process counts.", format)
	}
	if procs[0] < 1 {
		return nil, fmt.Errorf("The Processes format string, '%s' contains "+
			"the process count %d, but every run needs at least one process.",
			format, procs[0])
	}
	return procs, nil
}

// ExpandFileFormat replaces every {verb,rule} variable of a file format with
// the value vars[rule] printed with verb.
func ExpandFileFormat(format string, vars map[string]int) (string, error) {
	starts, ends, err := startsEndsFormatString(format)
	if err != nil {
		return "", err
	}

	sb := &strings.Builder{}
	sepStart := 0
	for i := range starts {
		sb.WriteString(format[sepStart:starts[i]])
		sepStart = ends[i]

		v := format[starts[i]+1 : ends[i]-1]
		tok := strings.Split(v, ",")
		if len(tok) != 2 {
			return "", fmt.Errorf("The file format '%s' has an invalid "+
				"variable, '%s'. Variables should contain a formatting 'verb' "+
				"(e.g. '%%d', '%%03d', etc.), a comma, and the name of the "+
				"value the variable takes on (e.g. 'processes').", format, v)
		}
		verb, rule := strings.TrimSpace(tok[0]), strings.TrimSpace(tok[1])
		if !strings.HasPrefix(verb, "%") || !strings.HasSuffix(verb, "d") {
			return "", fmt.Errorf("The file format '%s' has the variable "+
				"'%s', whose verb, '%s', is not an integer verb like '%%d' "+
				"or '%%03d'.", format, v, verb)
		}
		x, ok := vars[rule]
		if !ok {
			names := []string{}
			for name := range vars {
				names = append(names, name)
			}
			sort.Strings(names)
			return "", fmt.Errorf("The file format '%s' has the variable "+
				"'%s', but '%s' is not one of the known values, %s.",
				format, v, rule, names)
		}
		fmt.Fprintf(sb, verb, x)
	}
	sb.WriteString(format[sepStart:])

	return sb.String(), nil
}

// startsEndsFormatString returns the indices of the beginning and end of each
// format variable.
func startsEndsFormatString(format string) (starts, ends []int, err error) {
	starts, ends = []int{}, []int{}
	nestedLevel := 0

	ending := "Make sure variables in file formats are enclosed in matching { ... } pairs."

	for i := range format {
		if format[i] == '{' {
			nestedLevel++
			starts = append(starts, i)
		} else if format[i] == '}' {
			nestedLevel--
			ends = append(ends, i+1)
		}

		if nestedLevel > 1 {
			end := len(starts) - 1
			return nil, nil, fmt.Errorf("The file format '%s' has nested '{' characters, making it invalid. These '{'s are at indices %d and %d. "+ending,
				format, starts[end-1], starts[end])
		} else if nestedLevel < 0 {
			end := len(ends) - 1
			return nil, nil, fmt.Errorf("The file format '%s' has a '}' that doesn't come after a '{' character, making it invalid. This '}' is at index %d. "+ending,
				format, ends[end]-1,
			)
		}
	}

	if len(ends) != len(starts) {
		end := len(starts) - 1
		return nil, nil, fmt.Errorf("The file format '%s' has a '{' without a matching '}', making it invalid. This '{' is at index %d. "+ending, format, starts[end])
	}

	return starts, ends, nil
}
