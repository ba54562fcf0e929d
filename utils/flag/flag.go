/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
)

const (
	APIServer = "api_server"
)

var (
	IsDevelopment bool
	ServiceName   string
	ByPassAuth    bool
)

func init() {
	flag.BoolVar(&IsDevelopment, "dev", true, "set to true if the current run is for development. default value is true")
	flag.StringVar(&ServiceName, "service", APIServer, "'api_server'")
	flag.BoolVar(&ByPassAuth, "no_auth", false, "set to true to skip the viewer header middleware, for local debugging only")
}

// Parse must be called from main after all packages registered their flags.
// Parsing here instead of init keeps test binaries working: the testing
// package registers its -test.* flags after package init runs.
func Parse() {
	flag.Parse()
}
