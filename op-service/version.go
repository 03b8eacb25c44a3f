package op_service

import "strings"

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
	Meta      = "dev"
)

func DefaultFormatVersion() string {
	return FormatVersion(Version, GitCommit, GitDate, Meta)
}

// FormatVersion joins the non-empty build details, shortening the commit to 8 characters.
func FormatVersion(version string, gitCommit string, gitDate string, meta string) string {
	parts := []string{version}
	if len(gitCommit) > 8 {
		gitCommit = gitCommit[:8]
	}
	for _, p := range []string{gitCommit, gitDate, meta} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

// PrefixEnvVar returns the environment variable names a flag reads, given the program prefix.
func PrefixEnvVar(prefix, suffix string) []string {
	return []string{prefix + "_" + suffix}
}
