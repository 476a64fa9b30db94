//go:build !windows

// Package proc terminates fixture processes together with everything they
// spawned.
package proc

import (
	"syscall"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
	log "github.com/sirupsen/logrus"
)

// KillTree sends signal to the process groups of pid and of all its
// descendants, except the group of the runner itself. The tree is stopped
// while it is signalled so no process can fork out of it.
func KillTree(signal syscall.Signal, pid int32) error {
	root, err := process.NewProcess(pid)
	if err != nil {
		return errors.Wrapf(err, "finding process %d", pid)
	}

	ownPgid, err := syscall.Getpgid(syscall.Getpid())
	if err != nil {
		return errors.Wrap(err, "reading own process group")
	}

	pgids, err := processGroups(append(descendants(root), root), ownPgid)
	if err != nil {
		return err
	}
	for _, s := range []syscall.Signal{syscall.SIGSTOP, signal, syscall.SIGCONT} {
		if err := signalGroups(s, pgids); err != nil {
			return err
		}
	}
	return nil
}

// descendants walks the whole tree below p in no particular order.
func descendants(p *process.Process) []*process.Process {
	children, _ := p.Children() // #nosec
	all := children
	for _, child := range children {
		all = append(all, descendants(child)...)
	}
	return all
}

func processGroups(processes []*process.Process, skip int) ([]int, error) {
	seen := make(map[int]bool)
	var pgids []int
	for _, p := range processes {
		pgid, err := syscall.Getpgid(int(p.Pid))
		if err != nil {
			return nil, errors.Wrapf(err, "reading process group of %d", p.Pid)
		}
		if pgid == skip || seen[pgid] {
			continue
		}
		seen[pgid] = true
		pgids = append(pgids, pgid)
	}
	return pgids, nil
}

func signalGroups(signal syscall.Signal, pgids []int) error {
	for _, pgid := range pgids {
		log.WithFields(log.Fields{"Signal": signal, "Pgid": pgid}).Debug("Signalling fixture process group")
		if err := syscall.Kill(-pgid, signal); err != nil {
			return errors.Wrapf(err, "sending %s to process group %d", signal, pgid)
		}
	}
	return nil
}
