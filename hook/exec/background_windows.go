package exec

import (
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"
)

func prepareBackground(*exec.Cmd) {}

func stopBackground(cmd *exec.Cmd, gracePeriod time.Duration) {
	waitOrKill(cmd, 0, func() {
		if err := cmd.Process.Kill(); err != nil {
			log.WithError(err).Warnf("Unable to kill background fixture %d", cmd.Process.Pid)
		}
	})
}
