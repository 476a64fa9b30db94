//go:build darwin || freebsd || linux

package runenv

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var osHostnameTests = []struct {
	name     string
	stdout   string
	err      error
	expected string
}{
	{"fqdn", "build-nightly.ci.example.com", nil, "build-nightly.ci.example.com"},
	{"trims whitespace", "build-nightly.ci.example.com\n", nil, "build-nightly.ci.example.com"},
	{"empty output", "  \n", nil, "defaultHost"},
	{"command failure", "", errors.New("command failed"), "defaultHost"},
}

func TestOsHostname(t *testing.T) {
	defer func() { hostnameCommand = execHostnameFqdn{} }()
	defaultHostname = func() (string, error) { return "defaultHost", nil }

	for _, tc := range osHostnameTests {
		t.Run(tc.name, func(t *testing.T) {
			hostnameCommand = &mockCommand{stdout: tc.stdout, err: tc.err}

			hostname, err := OsHostname()

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, hostname)
		})
	}
}

type mockCommand struct {
	stdout string
	err    error
}

func (m *mockCommand) Run() (string, error) {
	return m.stdout, m.err
}
