package runenv

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

var nightlyHintTests = []struct {
	name     string
	env      map[string]string
	hostname string
	nightly  bool
	reason   string
}{
	{"nothing set", nil, "dev-box.local", false, ""},
	{"explicit true", map[string]string{"RUNNER_NIGHTLY": "true"}, "dev-box.local", true, "RUNNER_NIGHTLY"},
	{"explicit false wins over schedule", map[string]string{"RUNNER_NIGHTLY": "0", "GITHUB_EVENT_NAME": "schedule"}, "", false, "RUNNER_NIGHTLY"},
	{"garbage flag ignored", map[string]string{"RUNNER_NIGHTLY": "maybe"}, "dev-box.local", false, ""},
	{"github schedule", map[string]string{"GITHUB_EVENT_NAME": "schedule"}, "", true, "GITHUB_EVENT_NAME=schedule"},
	{"github push", map[string]string{"GITHUB_EVENT_NAME": "push"}, "dev-box.local", false, ""},
	{"gitlab schedule", map[string]string{"CI_PIPELINE_SOURCE": "schedule"}, "", true, "CI_PIPELINE_SOURCE=schedule"},
	{"azure schedule", map[string]string{"BUILD_REASON": "Schedule"}, "", true, "BUILD_REASON=Schedule"},
	{"nightly hostname", nil, "worker-nightly.ci.example.com", true, "hostname worker-nightly.ci.example.com"},
	{"cloud hostname", map[string]string{"CLOUD_HOSTNAME": "box-nightly.dc"}, "dev-box.local", true, "hostname box-nightly.dc"},
}

func TestNightlyHint(t *testing.T) {
	defer func() { getOsHostname = OsHostname }()

	for _, tc := range nightlyHintTests {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for key, value := range tc.env {
				t.Setenv(key, value)
			}
			hostname := tc.hostname
			getOsHostname = func() (string, error) { return hostname, nil }

			nightly, reason := NightlyHint()

			assert.Equal(t, tc.nightly, nightly)
			assert.Equal(t, tc.reason, reason)
		})
	}
}

func TestEnvironment(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, LocalEnv, Environment())

	t.Setenv("CI", "true")
	assert.Equal(t, CIEnv, Environment())

	t.Setenv("CI", "false")
	assert.Equal(t, LocalEnv, Environment())
}

func TestHostnamePrefersCloudHostname(t *testing.T) {
	defer func() { getOsHostname = OsHostname }()
	getOsHostname = func() (string, error) { return "os-host", nil }

	os.Clearenv()
	hostname, err := Hostname()
	assert.NoError(t, err)
	assert.Equal(t, "os-host", hostname)

	t.Setenv("CLOUD_HOSTNAME", "cloud-host")
	hostname, err = Hostname()
	assert.NoError(t, err)
	assert.Equal(t, "cloud-host", hostname)
}
