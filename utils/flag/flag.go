/*
flag Package set up cli flags shared across services

Usage:

	Flags listed in this package are shared across boundaries and service-agnostic
	For service dependent flags please define in their respective package
*/

package flag

import (
	"flag"
	"os"
	"strings"
)

const (
	FeedWatcher = "feed_watcher"
)

var (
	IsDevelopment bool
	ServiceName   string
)

func init() {
	flag.BoolVar(&IsDevelopment, "dev", true, "set to true if the current run is for development. default value is true")
	flag.StringVar(&ServiceName, "service", FeedWatcher, "name of the running service, used in log fields")
	// Test binaries register their -test.* flags after package init runs,
	// so parsing here would reject them; defaults apply under `go test`.
	if strings.HasSuffix(os.Args[0], ".test") || strings.HasSuffix(os.Args[0], ".test.exe") {
		return
	}
	flag.Parse()
}
