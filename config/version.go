package config

import "fmt"

// Set at build time with -ldflags -X.
var (
	Version = "latest"
	Commit  = "none"
	Date    = "unknown"
)

func VersionString() string {
	return fmt.Sprintf("%s-%s-%s", Version, Date, Commit)
}
