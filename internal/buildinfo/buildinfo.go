// Package buildinfo carries version stamps injected at link time:
//
//	go build -ldflags "-X dayplan/internal/buildinfo.Version=v1.0.0"
package buildinfo

var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

// Short returns the release version, or the commit for untagged builds.
func Short() string {
	switch {
	case Version != "" && Version != "dev":
		return Version
	case Commit != "":
		return Commit
	default:
		return "dev"
	}
}

// String is the full stamp for logs, e.g. "v1.0.0 (3f2a9c1, 2024-02-28)".
func String() string {
	s := Short()
	switch {
	case Commit != "" && Commit != s && Date != "":
		return s + " (" + Commit + ", " + Date + ")"
	case Commit != "" && Commit != s:
		return s + " (" + Commit + ")"
	case Date != "":
		return s + " (" + Date + ")"
	}
	return s
}
