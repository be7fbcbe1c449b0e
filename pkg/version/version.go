package version

import "fmt"

// Overridden at build time with
// -ldflags "-X github.com/chmdznr/sftp-log-harvester/pkg/version.Version=..."
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Detailed returns e.g. "0.1.0 (abc1234, built 2024-01-02T15:04:05Z)".
func Detailed() string {
	return fmt.Sprintf("%s (%s, built %s)", Version, GitCommit, BuildTime)
}
