// This file is part of the program "tagwm".
// Please see the LICENSE file for copyright information.

package main

import (
	"flag"
)

type CLIOpts struct {
	verbose bool
}

func parseCLIOpts() CLIOpts {
	var opt CLIOpts
	flag.BoolVar(&opt.verbose, "v", false, "Verbose output (print logs to stderr)")
	flag.Parse()

	return opt
}
