// Package exec provides hooks that run external commands as unit fixtures.
package exec

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/allegro/nightly-runner/hook"
	"github.com/allegro/nightly-runner/unit"
)

// DefaultGracePeriod is the time a background fixture gets between the
// termination and the kill signal.
const DefaultGracePeriod = 5 * time.Second

type command struct {
	name   string
	args   []string
	export bool
}

// Hook is a hook implementation that calls external commands on specified
// unit events. Commands see the runner environment extended with the unit
// name, the run seed, the unit seed and the environment produced by setup.
type Hook struct {
	commands    map[hook.EventType][]command
	background  []command
	gracePeriod time.Duration

	mutex   sync.Mutex
	running map[unit.Identity][]*exec.Cmd
}

// HandleEvent calls configured external commands (if any are specified) for
// given hook event.
func (h *Hook) HandleEvent(event hook.Event) (hook.Env, error) {
	var env hook.Env
	if event.Type == hook.SetupEvent {
		if err := h.startBackground(event); err != nil {
			return nil, err
		}
	}

	commands, ok := h.commands[event.Type]
	if !ok && len(h.background) == 0 {
		log.Debugf("Received unsupported event type %s - ignoring", event.Type)
	}
	if event.Type == hook.TeardownEvent {
		return h.teardown(commands, event)
	}
	for _, c := range commands {
		produced, err := h.run(c, event, env)
		if err != nil {
			return env, err
		}
		env = append(env, produced...)
	}
	return env, nil
}

// teardown runs every teardown command and stops background fixtures even
// when some of the commands fail. The first error is returned.
func (h *Hook) teardown(commands []command, event hook.Event) (hook.Env, error) {
	defer h.stopBackground(event)

	var (
		env   hook.Env
		first error
	)
	for _, c := range commands {
		produced, err := h.run(c, event, env)
		if err != nil {
			log.WithError(err).WithField("Unit", event.Unit).Warn("Teardown command failed")
			if first == nil {
				first = err
			}
			continue
		}
		env = append(env, produced...)
	}
	return env, first
}

func (h *Hook) run(c command, event hook.Event, produced hook.Env) (hook.Env, error) {
	cmd := exec.Command(c.name, c.args...) // #nosec
	cmd.Env = commandEnv(event, produced)
	cmd.Stderr = os.Stderr
	log.WithFields(log.Fields{"path": cmd.Path, "args": cmd.Args, "Unit": event.Unit}).Info("Running hook command")

	if !c.export {
		cmd.Stdout = os.Stdout
		return nil, cmd.Run()
	}

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, err
	}
	return parseExports(&out), nil
}

// commandEnv returns the environment of a hook command.
func commandEnv(event hook.Event, produced hook.Env) []string {
	env := os.Environ()
	env = append(env,
		fmt.Sprintf("RUNNER_UNIT=%s", event.Unit),
		fmt.Sprintf("RUNNER_SEED=%s", event.RunSeed),
		fmt.Sprintf("RUNNER_UNIT_SEED=%s", event.Seed),
	)
	env = append(env, event.Env...)
	return append(env, produced...)
}

// parseExports reads KEY=VALUE lines. Other lines are ignored.
func parseExports(out *bytes.Buffer) hook.Env {
	var env hook.Env
	scanner := bufio.NewScanner(out)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.IndexByte(line, '='); i > 0 && !strings.ContainsAny(line[:i], " \t") {
			env = append(env, line)
		}
	}
	return env
}

// NewHook creates new exec hook with specified commands.
func NewHook(options ...func(*Hook)) hook.Hook {
	h := &Hook{
		commands:    make(map[hook.EventType][]command),
		gracePeriod: DefaultGracePeriod,
		running:     make(map[unit.Identity][]*exec.Cmd),
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// HookCommand adds a command that will be run on specified event type.
// Commands of one event type run in the order they were added.
func HookCommand(eventType hook.EventType, name string, arg ...string) func(*Hook) {
	return func(h *Hook) {
		h.commands[eventType] = append(h.commands[eventType], command{name: name, args: arg})
	}
}

// ExportCommand adds a command whose standard output lines of the KEY=VALUE
// form are returned as the hook environment. Setup exports are visible to the
// unit body and to teardown.
func ExportCommand(eventType hook.EventType, name string, arg ...string) func(*Hook) {
	return func(h *Hook) {
		h.commands[eventType] = append(h.commands[eventType], command{name: name, args: arg, export: true})
	}
}

// BackgroundCommand adds a fixture process that is started on setup and whose
// whole process tree is terminated on teardown.
func BackgroundCommand(name string, arg ...string) func(*Hook) {
	return func(h *Hook) {
		h.background = append(h.background, command{name: name, args: arg})
	}
}

// GracePeriod sets the delay between terminating and killing background
// fixtures.
func GracePeriod(period time.Duration) func(*Hook) {
	return func(h *Hook) {
		h.gracePeriod = period
	}
}

func (h *Hook) startBackground(event hook.Event) error {
	for _, c := range h.background {
		cmd := exec.Command(c.name, c.args...) // #nosec
		cmd.Env = commandEnv(event, nil)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		prepareBackground(cmd)
		if err := cmd.Start(); err != nil {
			return err
		}
		log.WithFields(log.Fields{"path": cmd.Path, "pid": cmd.Process.Pid, "Unit": event.Unit}).Info("Started background fixture")

		h.mutex.Lock()
		h.running[event.Unit] = append(h.running[event.Unit], cmd)
		h.mutex.Unlock()
	}
	return nil
}

func (h *Hook) stopBackground(event hook.Event) {
	h.mutex.Lock()
	cmds := h.running[event.Unit]
	delete(h.running, event.Unit)
	h.mutex.Unlock()

	for _, cmd := range cmds {
		stopBackground(cmd, h.gracePeriod)
	}
}

// waitOrKill waits for cmd to exit and calls kill when it does not exit within
// gracePeriod.
func waitOrKill(cmd *exec.Cmd, gracePeriod time.Duration, kill func()) {
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(gracePeriod):
		kill()
		<-done
	}
}
