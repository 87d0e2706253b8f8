package cli

import (
	"fmt"
	"net/http"
)

var greeting string

func PrepareGreeting() {
	greeting = fmt.Sprintf(
		`Welcome to rangd
================

This is the root directory of the server. Resources are served below the
%s route, one identifier per path, with full support for byte-range
requests. Point your player or downloader there.

Version = %s
GitCommit = %s
BuildDate = %s
`, Flags.Basepath, VersionName, GitCommit, BuildDate)
}

func DisplayGreeting(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(greeting))
}
