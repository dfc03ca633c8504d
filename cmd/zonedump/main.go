package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"

	"github.com/haukened/rr-zoned/internal/dns/repos/persistence"
	"github.com/haukened/rr-zoned/internal/dns/services/compiler"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run loads a stored zone collection, compiles it and prints every zone in master-file form.
// The bolt backend takes the database lock, so stop the daemon first.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("zonedump", flag.ContinueOnError)
	fs.SetOutput(stderr)
	backend := fs.String("backend", string(persistence.BackendBolt), "storage backend (bolt|file)")
	only := fs.String("zone", "", "print only this zone")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(stderr, "Usage: zonedump [-backend bolt|file] [-zone name] path/to/storage\n")
		return 2
	}

	store, err := persistence.Open(persistence.Backend(*backend), fs.Arg(0), nil)
	if err != nil {
		fmt.Fprintf(stderr, "failed to open storage: %v\n", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	zones, err := store.LoadAll()
	if err != nil {
		fmt.Fprintf(stderr, "failed to load zones: %v\n", err)
		return 1
	}

	snap, warnings := compiler.Compile(zones, 0)
	for _, w := range multierr.Errors(warnings) {
		fmt.Fprintf(stderr, "warning: %v\n", w)
	}

	origins := snap.Zones()
	if *only != "" {
		z, ok := snap.Lookup(*only)
		if !ok {
			fmt.Fprintf(stderr, "zone %s not found\n", *only)
			return 1
		}
		origins = []string{z.Origin()}
	}

	for i, origin := range origins {
		z, _ := snap.Lookup(origin)
		if i > 0 {
			fmt.Fprintln(stdout)
		}
		fmt.Fprintf(stdout, "$ORIGIN %s\n", z.Origin())
		for _, rr := range z.Records() {
			fmt.Fprintln(stdout, rr.String())
		}
	}
	return 0
}
