package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nzinfo/go-winchmod/pkg/winchmod"
)

func main() {
	recursive := flag.Bool("R", false, "change files and directories recursively")
	journalPath := flag.String("journal", "", "record applied changes in a SQLite journal database")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	modeArg := flag.Arg(0)

	ops := winchmod.NewNativeOps()
	path, err := ops.NormalizePath(flag.Arg(1))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	if *debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	spec, err := winchmod.ParseMode(modeArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n\n", err)
		usage()
		os.Exit(1)
	}

	changer := winchmod.NewChanger(ops)

	if *journalPath != "" {
		journal, err := winchmod.OpenJournal(*journalPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		defer journal.Close()
		changer.Journal = journal
	}

	apply := changer.Apply
	if *recursive {
		// -R is honored only when the path is a directory at invocation
		// time; for anything else the change is applied non-recursively.
		fi, err := changer.Ops.Stat(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "stat failed for %s: %v\n", path, err)
			os.Exit(1)
		}
		if fi.IsDir() {
			apply = changer.ApplyRecursive
		}
	}

	if err := apply(path, spec); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: %s [OPTION] OCTAL-MODE FILE
   or: %s [OPTION] MODE FILE
Change the mode of the FILE to MODE.

Each MODE is of the form '[ugoa]*([-+=]([rwxX]*|[ugo]))+'.

Options:
`, os.Args[0], os.Args[0])
	flag.PrintDefaults()
}
