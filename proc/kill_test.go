//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKillTreeTerminatesWholeTree(t *testing.T) {
	cmd := exec.Command("testdata/fork.sh")
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	require.NoError(t, cmd.Start())
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, KillTree(syscall.SIGKILL, int32(cmd.Process.Pid)))
	_, _ = cmd.Process.Wait()

	assert.False(t, processExists(cmd.Process.Pid))
}

func TestKillTreeFailsForMissingProcess(t *testing.T) {
	cmd := exec.Command("true")
	require.NoError(t, cmd.Run())

	assert.Error(t, KillTree(syscall.SIGTERM, int32(cmd.Process.Pid)))
}

func processExists(pid int) bool {
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}
