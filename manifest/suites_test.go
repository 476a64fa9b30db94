package manifest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	runner "github.com/allegro/nightly-runner"
	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/seed"
	"github.com/allegro/nightly-runner/unit"
	"github.com/allegro/nightly-runner/unitlog"
)

func run(t *testing.T, m *Manifest, mode runctx.Mode) map[string]runner.Result {
	s := seed.Seed(42)
	rc, err := runctx.Initialize(runctx.Params{Seed: &s, Mode: &mode, NightlyMultiplier: 2})
	require.NoError(t, err)

	results, err := runner.NewRunner(runner.Config{Workers: 2}, rc, runner.Metadata(m)).
		Run(context.Background(), m.RunnerSuites()...)
	require.NoError(t, err)

	byName := make(map[string]runner.Result)
	for _, r := range results {
		byName[r.Identity.String()] = r
	}
	return byName
}

func TestIfManifestRunsInNormalMode(t *testing.T) {
	m, err := Load("testdata/nightly.yaml")
	require.NoError(t, err)

	results := run(t, m, runctx.Normal)

	require.Len(t, results, 5)
	assert.Equal(t, unit.StaticallySkipped, results["examples.NightlyTests.nightlyOnly"].Outcome)
	assert.Equal(t, unit.DynamicallySkipped, results["examples.NightlyTests.nightlyOnlyWithAssume"].Outcome)
	assert.True(t, results["examples.NightlyTests.scaling#1"].Passed, results["examples.NightlyTests.scaling#1"].Detail)
	assert.True(t, results["examples.NightlyTests.scaling#2"].Passed)
	assert.Equal(t, unit.StaticallySkipped, results["examples.Fixtures.port"].Outcome)
}

func TestIfManifestRunsInNightlyMode(t *testing.T) {
	m, err := Load("testdata/nightly.yaml")
	require.NoError(t, err)

	results := run(t, m, runctx.Nightly)

	for name, r := range results {
		assert.Equal(t, unit.Executed, r.Outcome, name)
		assert.True(t, r.Passed, "%s: %s", name, r.Detail)
	}
}

func TestIfFailingCommandFailsUnitWithOutput(t *testing.T) {
	m, err := Parse([]byte(`
suites:
  - name: s
    units:
      - name: fails
        run: "echo broken index >&2; exit 3"
      - name: assumes
        assume: "exit 1"
        run: "exit 3"
`))
	require.NoError(t, err)

	results := run(t, m, runctx.Normal)

	failed := results["s.fails"]
	assert.True(t, failed.Failed())
	assert.Contains(t, failed.Detail, "broken index")
	assert.Contains(t, failed.Detail, "exit status 3")
	assert.Equal(t, unit.DynamicallySkipped, results["s.assumes"].Outcome)
}

func TestIfUnitCommandSeesRunVariables(t *testing.T) {
	m, err := Parse([]byte(`
suites:
  - name: s
    units:
      - name: env
        env: {GREETING: hello}
        run: 'test "$RUNNER_NIGHTLY" = true && test "$RUNNER_MULTIPLIER" = 2 && test "$RUNNER_UNIT" = s.env && test "$RUNNER_SEED" = 0x2A && test "$GREETING" = hello'
`))
	require.NoError(t, err)

	results := run(t, m, runctx.Nightly)

	assert.True(t, results["s.env"].Passed, results["s.env"].Detail)
}

type recordingAppender struct {
	mutex   sync.Mutex
	entries []unitlog.Entry
}

func (r *recordingAppender) Append(entries <-chan unitlog.Entry) {
	for entry := range entries {
		r.mutex.Lock()
		r.entries = append(r.entries, entry)
		r.mutex.Unlock()
	}
}

func TestIfStructuredOutputIsForwarded(t *testing.T) {
	m, err := Parse([]byte(`
suites:
  - name: s
    units:
      - name: logs
        output: logfmt
        run: 'echo msg=indexed docs=10; echo "ignored on success" >&2'
      - name: fails
        output: json
        run: 'echo "{\"msg\":\"crashed\"}"; echo "disk full" >&2; exit 2'
`))
	require.NoError(t, err)
	appender := new(recordingAppender)
	m.SetAppender(appender, unitlog.StaticDataExtender{Data: map[string]interface{}{"env": "test"}})

	results := run(t, m, runctx.Normal)

	assert.True(t, results["s.logs"].Passed, results["s.logs"].Detail)
	assert.True(t, results["s.fails"].Failed())
	assert.Contains(t, results["s.fails"].Detail, "disk full")
	assert.NotContains(t, results["s.fails"].Detail, "crashed")

	require.Len(t, appender.entries, 2)
	byUnit := make(map[string]unitlog.Entry)
	for _, e := range appender.entries {
		byUnit[e["unit"].(string)] = e
	}
	assert.Equal(t, "indexed", byUnit["s.logs"]["msg"])
	assert.Equal(t, "10", byUnit["s.logs"]["docs"])
	assert.Equal(t, "0x2A", byUnit["s.logs"]["seed"])
	assert.Equal(t, "test", byUnit["s.logs"]["env"])
	assert.Equal(t, "crashed", byUnit["s.fails"]["msg"])
}

func TestIfUnknownOutputFormatIsRejected(t *testing.T) {
	_, err := Parse([]byte("suites: [{name: s, units: [{name: u, run: x, output: xml}]}]"))

	assert.Error(t, err)
}
