package main

import (
	"flag"
	"strconv"

	"github.com/golang/glog"
)

// InitLogging pushes the logging settings into glog, which only takes them
// through its registered flags.
func InitLogging(logToStderr bool, verbose int) {
	if !flag.Parsed() {
		flag.CommandLine.Parse(nil)
	}
	if logToStderr {
		flag.Lookup("logtostderr").Value.Set("true")
	}
	if verbose > 0 {
		flag.Lookup("v").Value.Set(strconv.Itoa(verbose))
	}
	glog.V(1).Infof("logging initialised at verbosity %d", verbose)
}
