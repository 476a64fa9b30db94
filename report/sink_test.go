package report

import (
	"bytes"
	"errors"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allegro/nightly-runner/unit"
)

var testUnit = unit.Identity{Suite: "Test011NightlyTests", Name: "nightlyOnly"}

var statusTests = []struct {
	outcome  unit.Outcome
	passed   bool
	expected Status
}{
	{unit.Executed, true, StatusPassed},
	{unit.Executed, false, StatusFailed},
	{unit.StaticallySkipped, false, StatusIgnored},
	{unit.DynamicallySkipped, false, StatusAssumption},
	{unit.DynamicallySkipped, true, StatusAssumption},
}

func TestEntryStatus(t *testing.T) {
	for _, tc := range statusTests {
		e := Entry{Outcome: tc.outcome, Passed: tc.passed}
		assert.Equal(t, tc.expected, e.Status(), "%s passed=%t", tc.outcome, tc.passed)
	}
}

func testEntry(outcome unit.Outcome, detail string) Entry {
	return Entry{
		ID:          "id",
		RunID:       "run",
		RunSeed:     42,
		Unit:        testUnit,
		DerivedSeed: 16,
		Outcome:     outcome,
		Detail:      detail,
		Duration:    1500 * time.Millisecond,
		Time:        time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestLogfmtSinkWritesOneRecordPerEntry(t *testing.T) {
	var out bytes.Buffer
	sink := NewLogfmtSink(&out)

	require.NoError(t, sink.Write(testEntry(unit.StaticallySkipped, "requires nightly mode")))
	require.NoError(t, sink.Write(testEntry(unit.Executed, "")))

	assert.Equal(t,
		"time=2024-01-02T03:04:05Z status=IGNORED unit=Test011NightlyTests.nightlyOnly seed=0x2A unit_seed=0x10 duration=1.5s detail=\"requires nightly mode\" run=run\n"+
			"time=2024-01-02T03:04:05Z status=FAILED unit=Test011NightlyTests.nightlyOnly seed=0x2A unit_seed=0x10 duration=1.5s run=run\n",
		out.String())
}

func TestJSONSinkWritesOneObjectPerLine(t *testing.T) {
	var out bytes.Buffer
	sink := NewJSONSink(&out)

	require.NoError(t, sink.Write(testEntry(unit.DynamicallySkipped, "not nightly")))

	var decoded map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "IGNORED/A", decoded["status"])
	assert.Equal(t, "dynamically skipped", decoded["outcome"])
	assert.Equal(t, "Test011NightlyTests.nightlyOnly", decoded["unit"])
	assert.Equal(t, "Test011NightlyTests", decoded["suite"])
	assert.Equal(t, "0x2A", decoded["seed"])
	assert.Equal(t, "0x10", decoded["unit_seed"])
	assert.Equal(t, 1.5, decoded["duration_seconds"])
	assert.Equal(t, "not nightly", decoded["detail"])
	assert.Equal(t, "RUNNER_SEED=0x2A", decoded["reproduce_with"])
	assert.Equal(t, byte('\n'), out.Bytes()[out.Len()-1])
}

func TestJSONSinkReportsFullReproduction(t *testing.T) {
	var out bytes.Buffer
	sink := NewJSONSink(&out)
	entry := testEntry(unit.Executed, "boom")
	entry.Reproduce = "RUNNER_SEED=0x2A RUNNER_MODE=nightly RUNNER_MULTIPLIER=3 RUNNER_MAX_SPAN=1000"

	require.NoError(t, sink.Write(entry))

	var decoded map[string]interface{}
	require.NoError(t, jsoniter.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, entry.Reproduce, decoded["reproduce_with"])
}

func TestMultiSinkWritesAllSinksAndReturnsFirstError(t *testing.T) {
	firstErr := errors.New("first")
	var a, b Summary
	multi := MultiSink{
		&a,
		sinkFunc(func(Entry) error { return firstErr }),
		sinkFunc(func(Entry) error { return errors.New("second") }),
		&b,
	}

	err := multi.Write(testEntry(unit.Executed, ""))

	assert.Equal(t, firstErr, err)
	assert.Equal(t, 1, a.Total())
	assert.Equal(t, 1, b.Total())
}

func TestSummaryCountsByStatus(t *testing.T) {
	var s Summary
	passed := testEntry(unit.Executed, "")
	passed.Passed = true

	for _, e := range []Entry{passed, passed, testEntry(unit.Executed, ""), testEntry(unit.StaticallySkipped, ""), testEntry(unit.DynamicallySkipped, "")} {
		require.NoError(t, s.Write(e))
	}

	assert.Equal(t, 5, s.Total())
	assert.Equal(t, 2, s.Count(StatusPassed))
	assert.Equal(t, 1, s.Count(StatusFailed))
	assert.Equal(t, 1, s.Count(StatusIgnored))
	assert.Equal(t, 1, s.Count(StatusAssumption))
	assert.Equal(t, "Tests summary: 5 units, 2 passed, 1 failed, 1 ignored, 1 ignored by assumption", s.String())
}

type sinkFunc func(Entry) error

func (f sinkFunc) Write(e Entry) error { return f(e) }
