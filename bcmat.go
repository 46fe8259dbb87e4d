package main

import (
	"fmt"
	"os"

	"github.com/phil-mansfield/bcmat/lib"
	"github.com/phil-mansfield/bcmat/lib/error"
)

func main() {
	// Parse arguements.
	mode, configFile, cmdArgs, err := lib.ParseCommandLine(os.Args[1:])
	if err != nil {
		error.External("%s", err.Error())
	}

	switch mode {
	case "help":
		lib.PrintHelp()
		return
	case "inspect":
		Inspect(configFile)
		return
	}

	if configFile == "" {
		error.External("bcmat's '%s' mode needs a config file. Run "+
			"'$ bcmat help' to see an example.", mode)
	}
	rawArgs, err := lib.ParseConfigFile(configFile)
	if err != nil {
		error.External("%s", err.Error())
	}
	rawArgs.Overwrite(cmdArgs)

	// Do processing that doesn't need external validation.
	args, err := rawArgs.Process()
	if err != nil {
		error.External("%s", err.Error())
	}

	// Run the chosen mode.
	switch mode {
	case "check":
		Check(args)
	case "run":
		Run(args)
	default:
		error.External(
			"You attempted to run bcmat in the mode '%s', but the only valid "+
				"modes are 'help', 'check', 'run', and 'inspect'.", mode,
		)
	}
}

// Check runs bcmat's "check" mode which tests for errors in the configuration
// arguments.
func Check(args *lib.Args) {
	ok := lib.Check(args)
	if ok {
		fmt.Println("No errors detected.")
	}
}

// Run runs bcmat's "run" mode, which times each operation for each process
// count.
func Run(args *lib.Args) {
	lib.Check(args)

	if err := lib.SetThreads(args.Threads); err != nil {
		error.External("%s", err.Error())
	}
	if _, err := lib.Run(args); err != nil {
		error.External("%s", err.Error())
	}
}

// Inspect runs bcmat's "inspect" mode, which lists the contents of a
// checkpoint file.
func Inspect(fileName string) {
	if fileName == "" {
		error.External("bcmat's 'inspect' mode needs the name of a " +
			"checkpoint file.")
	}
	if err := lib.Inspect(os.Stdout, fileName); err != nil {
		error.External("%s", err.Error())
	}
}
