package exec

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allegro/nightly-runner/hook"
	"github.com/allegro/nightly-runner/unit"
)

var testUnit = unit.Identity{Suite: "Suite", Name: "unit"}

func TestIfFailsToRunInvalidCommand(t *testing.T) {
	h := NewHook(HookCommand(hook.SetupEvent, "invalid"))

	_, err := h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: testUnit})

	assert.Error(t, err)
}

func TestIfRunsValidCommand(t *testing.T) {
	h := NewHook(HookCommand(hook.SetupEvent, "echo", "test"))

	_, err := h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: testUnit})

	assert.NoError(t, err)
}

func TestIfIgnoresEventsWithoutCommands(t *testing.T) {
	h := NewHook(HookCommand(hook.SetupEvent, "invalid"))

	env, err := h.HandleEvent(hook.Event{Type: hook.TeardownEvent, Unit: testUnit})

	assert.NoError(t, err)
	assert.Empty(t, env)
}

func TestIfExportsKeyValueLines(t *testing.T) {
	h := NewHook(ExportCommand(hook.SetupEvent, "sh", "-c", "echo FOO=bar; echo not an export; echo 'BAD KEY=1'; echo UNIT=$RUNNER_UNIT"))

	env, err := h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: testUnit, RunSeed: 42})

	require.NoError(t, err)
	assert.Equal(t, hook.Env{"FOO=bar", "UNIT=Suite.unit"}, env)
}

func TestIfCommandsSeeSeedsAndSetupEnvironment(t *testing.T) {
	h := NewHook(ExportCommand(hook.TeardownEvent, "sh", "-c", "echo GOT=$FOO-$RUNNER_SEED-$RUNNER_UNIT_SEED"))

	env, err := h.HandleEvent(hook.Event{
		Type:    hook.TeardownEvent,
		Unit:    testUnit,
		RunSeed: 42,
		Seed:    16,
		Env:     hook.Env{"FOO=bar"},
	})

	require.NoError(t, err)
	assert.Equal(t, hook.Env{"GOT=bar-0x2A-0x10"}, env)
}

func TestIfLaterCommandsSeeEarlierExports(t *testing.T) {
	h := NewHook(
		ExportCommand(hook.SetupEvent, "sh", "-c", "echo PORT=8080"),
		ExportCommand(hook.SetupEvent, "sh", "-c", "echo URL=http://localhost:$PORT"),
	)

	env, err := h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: testUnit})

	require.NoError(t, err)
	assert.Equal(t, hook.Env{"PORT=8080", "URL=http://localhost:8080"}, env)
}

func TestIfBackgroundFixtureIsStoppedOnTeardown(t *testing.T) {
	h := NewHook(BackgroundCommand("sleep", "100"), GracePeriod(time.Second)).(*Hook)

	_, err := h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: testUnit})
	require.NoError(t, err)
	require.Len(t, h.running[testUnit], 1)
	cmd := h.running[testUnit][0]

	_, err = h.HandleEvent(hook.Event{Type: hook.TeardownEvent, Unit: testUnit})
	require.NoError(t, err)

	assert.Empty(t, h.running)
	assert.NotNil(t, cmd.ProcessState)
}

func TestIfBackgroundFixturesAreKeptPerUnit(t *testing.T) {
	other := unit.Identity{Suite: "Suite", Name: "other"}
	h := NewHook(BackgroundCommand("sleep", "100"), GracePeriod(time.Second)).(*Hook)

	_, err := h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: testUnit})
	require.NoError(t, err)
	_, err = h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: other})
	require.NoError(t, err)

	_, err = h.HandleEvent(hook.Event{Type: hook.TeardownEvent, Unit: testUnit})
	require.NoError(t, err)
	assert.Len(t, h.running, 1)
	assert.Len(t, h.running[other], 1)

	_, err = h.HandleEvent(hook.Event{Type: hook.TeardownEvent, Unit: other})
	require.NoError(t, err)
	assert.Empty(t, h.running)
}

func TestIfFailingTeardownStillRunsRemainingCommandsAndStopsFixtures(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "cleaned")
	h := NewHook(
		BackgroundCommand("sleep", "30"),
		HookCommand(hook.TeardownEvent, "false"),
		HookCommand(hook.TeardownEvent, "touch", marker),
		GracePeriod(time.Second),
	).(*Hook)

	_, err := h.HandleEvent(hook.Event{Type: hook.SetupEvent, Unit: testUnit})
	require.NoError(t, err)
	require.Len(t, h.running[testUnit], 1)
	cmd := h.running[testUnit][0]

	_, err = h.HandleEvent(hook.Event{Type: hook.TeardownEvent, Unit: testUnit})

	assert.Error(t, err)
	assert.FileExists(t, marker)
	assert.Empty(t, h.running)
	assert.NotNil(t, cmd.ProcessState)
}
