//go:build !windows

package exec

import (
	"os/exec"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/allegro/nightly-runner/proc"
)

func prepareBackground(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func stopBackground(cmd *exec.Cmd, gracePeriod time.Duration) {
	pid := int32(cmd.Process.Pid)
	if err := proc.KillTree(syscall.SIGTERM, pid); err != nil {
		log.WithError(err).Warnf("There was a problem with sending %s to %d tree", syscall.SIGTERM, pid)
	}
	waitOrKill(cmd, gracePeriod, func() {
		if err := proc.KillTree(syscall.SIGKILL, pid); err != nil {
			log.WithError(err).Warnf("There was a problem with sending %s to %d tree, killing the fixture only", syscall.SIGKILL, pid)
			_ = cmd.Process.Kill()
		}
	})
}
