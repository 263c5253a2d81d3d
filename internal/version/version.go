package version

// Version is the current semantic version of luaopt.
const Version = "0.3.0"

// BuildDate and GitCommit are stamped at build time via -ldflags -X.
var (
	BuildDate = "development"
	GitCommit = "unknown"
)

// FullInfo returns the version line printed by --version.
func FullInfo() string {
	return "luaopt " + Version + " (commit: " + GitCommit + ", built: " + BuildDate + ")"
}
