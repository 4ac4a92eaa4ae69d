// Package env describes the build environment a shelf provides to other
// builds: search paths, environment variables and compiler flags.
//
// A shelf looks like
//
//	shelf/
//	  bin/      -> links into shelf/<name>/<version>/bin
//	  lib/      -> links into shelf/<name>/<version>/lib
//	  include/  -> links into shelf/<name>/<version>/include
//
// so a single -I, -L and PATH entry is enough to consume everything that
// has been linked.
package env
