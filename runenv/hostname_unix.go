//go:build darwin || freebsd || linux

package runenv

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const hostnameTimeout = 2 * time.Second

var hostnameCommand execCommand = execHostnameFqdn{}
var defaultHostname = os.Hostname

// OsHostname returns the fully qualified name from `hostname -f`, falling back
// to os.Hostname when the command fails or prints nothing.
func OsHostname() (string, error) {
	fqdn, err := hostnameCommand.Run()
	if err != nil || strings.TrimSpace(fqdn) == "" {
		return defaultHostname()
	}
	return strings.TrimSpace(fqdn), nil
}

type execCommand interface {
	Run() (string, error)
}

type execHostnameFqdn struct{}

func (execHostnameFqdn) Run() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), hostnameTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, "hostname", "-f") // #nosec
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(err, "couldn't run 'hostname -f'")
	}
	return out.String(), nil
}
