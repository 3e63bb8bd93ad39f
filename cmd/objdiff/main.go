// Copyright 2014 Seth Jennings, Josh Poimboeuf, Ross Lagerwall.
// Portions Copyright 2021 The Go Authors.

package main

import (
	"os"

	"github.com/xsplice/objdiff/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
