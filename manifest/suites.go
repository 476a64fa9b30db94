package manifest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	runner "github.com/allegro/nightly-runner"
	"github.com/allegro/nightly-runner/hook"
	hookexec "github.com/allegro/nightly-runner/hook/exec"
	"github.com/allegro/nightly-runner/runenv"
	"github.com/allegro/nightly-runner/unitlog"
)

// Environment variables set for unit commands in addition to the ones exported
// by hooks.
const (
	NightlyVariable    = runenv.NightlyVariable
	MultiplierVariable = "RUNNER_MULTIPLIER"
	UnitVariable       = "RUNNER_UNIT"
	SeedVariable       = "RUNNER_SEED"
	UnitSeedVariable   = "RUNNER_UNIT_SEED"
)

// RunnerSuites converts the manifest into runnable suites.
func (m *Manifest) RunnerSuites() []runner.Suite {
	suites := make([]runner.Suite, 0, len(m.Suites))
	for _, s := range m.Suites {
		suite := runner.Suite{
			Name:    s.Name,
			Nightly: s.Nightly,
		}
		if fixture := m.fixtureHook(s); fixture != nil {
			suite.Hooks = []hook.Hook{fixture}
		}
		for _, u := range s.Units {
			suite.Units = append(suite.Units, runner.Unit{
				Name:    u.Name,
				Nightly: u.Nightly,
				Repeat:  u.Repeat,
				Body:    m.body(u),
			})
		}
		suites = append(suites, suite)
	}
	return suites
}

func (m *Manifest) fixtureHook(s Suite) hook.Hook {
	var options []func(*hookexec.Hook)
	for _, c := range s.Setup {
		options = append(options, hookexec.HookCommand(hook.SetupEvent, m.Shell, "-c", c))
	}
	for _, c := range s.Export {
		options = append(options, hookexec.ExportCommand(hook.SetupEvent, m.Shell, "-c", c))
	}
	for _, c := range s.Teardown {
		options = append(options, hookexec.HookCommand(hook.TeardownEvent, m.Shell, "-c", c))
	}
	for _, c := range s.Background {
		options = append(options, hookexec.BackgroundCommand(m.Shell, "-c", c))
	}
	if len(options) == 0 {
		return nil
	}
	if m.GracePeriod > 0 {
		options = append(options, hookexec.GracePeriod(m.GracePeriod))
	}
	return hookexec.NewHook(options...)
}

func (m *Manifest) body(u Unit) runner.Body {
	return func(t *runner.T) error {
		if u.AssumeNightly {
			if err := t.AssumeNightly(); err != nil {
				return err
			}
		}

		env, err := unitEnv(t, u)
		if err != nil {
			return err
		}

		if u.Assume != "" {
			if out, err := m.command(t, env, u.Assume); err != nil {
				return runner.AssumeNoError(withOutput(err, out), u.Assume)
			}
		}

		if u.Output == "" || u.Output == unitlog.FormatText {
			out, err := m.command(t, env, u.Run)
			if err != nil {
				return withOutput(err, out)
			}
			t.Logger().WithField("Output", string(out)).Debug("Unit command succeeded")
			return nil
		}
		return m.forwardedCommand(t, env, u)
	}
}

func (m *Manifest) command(t *runner.T, env []string, command string) ([]byte, error) {
	var output bytes.Buffer
	err := m.start(t, env, command, &output, &output)
	return output.Bytes(), err
}

// forwardedCommand runs the unit command with stdout scraped into the unit
// log. Only stderr ends up in the failure detail.
func (m *Manifest) forwardedCommand(t *runner.T, env []string, u Unit) error {
	scraper, err := unitlog.ScraperFor(u.Output, nil)
	if err != nil {
		return err
	}
	appender := m.appender
	if appender == nil {
		appender = unitlog.Logrus{}
	}
	extenders := append([]unitlog.Extender{unitlog.UnitExtender{
		Unit:    t.Identity(),
		RunSeed: t.RunSeed(),
		Seed:    t.Seed(),
	}}, m.extenders...)
	stdout, done := unitlog.Forward(scraper, appender, extenders...)

	var stderr bytes.Buffer
	err = m.start(t, env, u.Run, stdout, &stderr)
	_ = stdout.Close()
	<-done
	if err != nil {
		return withOutput(err, stderr.Bytes())
	}
	return nil
}

func (m *Manifest) start(t *runner.T, env []string, command string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(t.Context(), m.Shell, "-c", command)
	cmd.Env = env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

func unitEnv(t *runner.T, u Unit) ([]string, error) {
	env := append(os.Environ(),
		fmt.Sprintf("%s=%t", NightlyVariable, t.Nightly()),
		fmt.Sprintf("%s=%s", MultiplierVariable, strconv.FormatFloat(t.Multiplier(), 'g', -1, 64)),
		fmt.Sprintf("%s=%s", UnitVariable, t.Identity()),
		fmt.Sprintf("%s=%s", SeedVariable, t.RunSeed()),
		fmt.Sprintf("%s=%s", UnitSeedVariable, t.Seed()),
	)
	env = append(env, t.Env()...)

	for _, name := range sortedKeys(u.Env) {
		env = append(env, name+"="+u.Env[name])
	}
	for _, name := range sortedKeys(u.Scaled) {
		r := u.Scaled[name]
		value, err := t.ScaledIntBetween(r.Min, r.Max)
		if err != nil {
			return nil, errors.Wrapf(err, "cannot draw %s", name)
		}
		t.Logger().WithField(name, value).Debug("Scaled variable drawn")
		env = append(env, fmt.Sprintf("%s=%d", name, value))
	}
	return env, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func withOutput(err error, output []byte) error {
	output = bytes.TrimSpace(output)
	if len(output) == 0 {
		return err
	}
	return errors.Wrapf(err, "output: %s", output)
}
