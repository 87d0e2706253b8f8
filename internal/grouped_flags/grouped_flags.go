// Package grouped_flags wraps the flag package to group related flags in
// the help output. Flags are registered in named groups and parsed through
// one combined flag set, so values can also be supplied through environment
// variables as github.com/jnovack/flag allows.
package grouped_flags

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/jnovack/flag"
)

type flagGroup struct {
	name  string
	flags *flag.FlagSet
}

// FlagGroupSet holds the registered groups plus the combined flag set used
// for the actual parsing.
type FlagGroupSet struct {
	groups   []flagGroup
	allFlags *flag.FlagSet
}

func NewFlagGroupSet(errorHandling flag.ErrorHandling) *FlagGroupSet {
	f := &FlagGroupSet{
		allFlags: flag.NewFlagSet(os.Args[0], errorHandling),
	}

	f.allFlags.Usage = f.Usage

	return f
}

// AddGroup registers a new group of flags under the given heading. The
// constructor receives an empty flag set to populate; its flags are merged
// into the combined set for parsing while the group keeps them for the
// help output.
func (f *FlagGroupSet) AddGroup(name string, constructor func(*flag.FlagSet)) {
	groupFlags := flag.NewFlagSet("", flag.PanicOnError)
	constructor(groupFlags)

	groupFlags.VisitAll(func(fl *flag.Flag) {
		f.allFlags.Var(fl.Value, fl.Name, fl.Usage)
	})

	f.groups = append(f.groups, flagGroup{
		name:  name,
		flags: groupFlags,
	})
}

func (f *FlagGroupSet) Parse() error {
	return f.allFlags.Parse(os.Args[1:])
}

func (f *FlagGroupSet) SetOutput(output io.Writer) {
	f.allFlags.SetOutput(output)
}

func (f *FlagGroupSet) Usage() {
	output := f.allFlags.Output()

	fmt.Fprintf(output, "Usage of %s:\n\n", f.allFlags.Name())

	for _, group := range f.groups {
		fmt.Fprintf(output, "%s:\n", group.name)

		// The defaults are rendered into a buffer first, so every group
		// ends with a blank line regardless of its flag count.
		buf := new(bytes.Buffer)
		group.flags.SetOutput(buf)
		group.flags.PrintDefaults()

		fmt.Fprintln(output, buf.String())
	}
}
