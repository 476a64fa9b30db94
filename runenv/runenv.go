// Package runenv inspects the process environment for conditions the runner
// cannot be told about explicitly, such as a scheduled CI pipeline that should
// run in nightly mode.
package runenv

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
)

const (
	// LocalEnv represents a developer machine.
	LocalEnv = Env("local")
	// CIEnv represents a continuous integration worker.
	CIEnv = Env("ci")

	// NightlyVariable forces (or disables) nightly mode when set to a boolean.
	NightlyVariable = "RUNNER_NIGHTLY"
)

var nightlyHostnameRegexp = regexp.MustCompile(`.*-nightly\..*`)

var getOsHostname = OsHostname

// scheduledPipelineVariables name CI variables whose "schedule" value means
// the pipeline was started by a timer, not by a push.
var scheduledPipelineVariables = []string{
	"GITHUB_EVENT_NAME",
	"CI_PIPELINE_SOURCE",
	"BUILD_REASON",
}

// Env is the kind of machine the run happens on.
type Env string

// Environment returns CIEnv when the conventional CI variable is set and
// LocalEnv otherwise.
func Environment() Env {
	if ci, err := strconv.ParseBool(os.Getenv("CI")); err == nil && ci {
		return CIEnv
	}
	return LocalEnv
}

// NightlyHint reports whether the environment asks for a nightly run. The
// returned string names the condition that decided it and is empty when no
// condition matched.
func NightlyHint() (bool, string) {
	if value, ok := os.LookupEnv(NightlyVariable); ok && value != "" {
		if nightly, err := strconv.ParseBool(value); err == nil {
			return nightly, NightlyVariable
		}
	}
	for _, name := range scheduledPipelineVariables {
		if os.Getenv(name) == "schedule" || os.Getenv(name) == "Schedule" {
			return true, fmt.Sprintf("%s=%s", name, os.Getenv(name))
		}
	}
	if hostname, err := Hostname(); err == nil && nightlyHostnameRegexp.MatchString(hostname) {
		return true, fmt.Sprintf("hostname %s", hostname)
	}
	return false, ""
}

// Hostname returns the host name reported by the cloud or the operating system.
func Hostname() (string, error) {
	if os.Getenv("CLOUD_HOSTNAME") != "" {
		return os.Getenv("CLOUD_HOSTNAME"), nil
	}
	return getOsHostname()
}
