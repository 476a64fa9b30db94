package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allegro/nightly-runner/runctx"
	"github.com/allegro/nightly-runner/unit"
)

var unitID = unit.Identity{Suite: "Test011NightlyTests", Name: "nightlyOnly"}

var evaluateTests = []struct {
	name     string
	suite    bool
	own      bool
	mode     runctx.Mode
	decision Decision
}{
	{"plain unit in normal mode", false, false, runctx.Normal, Admitted},
	{"plain unit in nightly mode", false, false, runctx.Nightly, Admitted},
	{"nightly unit in normal mode", false, true, runctx.Normal, StaticallySkipped},
	{"nightly unit in nightly mode", false, true, runctx.Nightly, Admitted},
	{"nightly suite in normal mode", true, false, runctx.Normal, StaticallySkipped},
	{"nightly suite in nightly mode", true, false, runctx.Nightly, Admitted},
	{"both in normal mode", true, true, runctx.Normal, StaticallySkipped},
}

func TestEvaluate(t *testing.T) {
	for _, tc := range evaluateTests {
		t.Run(tc.name, func(t *testing.T) {
			reader := new(Static)
			reader.DeclareSuite(unitID.Suite, Metadata{RequiresNightly: tc.suite})
			reader.DeclareUnit(unitID, Metadata{RequiresNightly: tc.own})

			verdict, err := Evaluate(reader, unitID, tc.mode)

			require.NoError(t, err)
			assert.Equal(t, tc.decision, verdict.Decision)
			assert.Equal(t, tc.suite || tc.own, verdict.RequiresNightly)
			if tc.decision == StaticallySkipped {
				assert.Equal(t, NightlyReason, verdict.Reason)
			} else {
				assert.Empty(t, verdict.Reason)
			}
		})
	}
}

func TestEvaluateAppliesToEveryRepetition(t *testing.T) {
	reader := new(Static)
	reader.DeclareUnit(unitID, Metadata{RequiresNightly: true})

	for _, id := range unit.Expand(unitID.Suite, unitID.Name, 3) {
		verdict, err := Evaluate(reader, id, runctx.Normal)
		require.NoError(t, err)
		assert.Equal(t, StaticallySkipped, verdict.Decision, id.String())
	}
}

func TestEvaluateLeavesUnitPendingOnReaderError(t *testing.T) {
	readErr := errors.New("metadata unavailable")
	reader := new(mockReader)
	reader.On("SuiteMetadata", unitID.Suite).Return(Metadata{}, readErr).Once()

	verdict, err := Evaluate(reader, unitID, runctx.Nightly)

	assert.ErrorIs(t, err, readErr)
	assert.Equal(t, Pending, verdict.Decision)
	reader.AssertExpectations(t)
	reader.AssertNotCalled(t, "UnitMetadata", mock.Anything)
}

func TestEvaluateAsksForSuiteAndUnitMetadata(t *testing.T) {
	reader := new(mockReader)
	reader.On("SuiteMetadata", unitID.Suite).Return(Metadata{}, nil).Once()
	reader.On("UnitMetadata", unitID).Return(Metadata{RequiresNightly: true}, nil).Once()

	verdict, err := Evaluate(reader, unitID, runctx.Normal)

	require.NoError(t, err)
	assert.Equal(t, StaticallySkipped, verdict.Decision)
	reader.AssertExpectations(t)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "pending", Pending.String())
	assert.Equal(t, "statically skipped", StaticallySkipped.String())
	assert.Equal(t, "admitted", Admitted.String())
	assert.Equal(t, "unknown", Decision(9).String())
}

type mockReader struct {
	mock.Mock
}

func (m *mockReader) UnitMetadata(id unit.Identity) (Metadata, error) {
	args := m.Called(id)
	return args.Get(0).(Metadata), args.Error(1)
}

func (m *mockReader) SuiteMetadata(suite string) (Metadata, error) {
	args := m.Called(suite)
	return args.Get(0).(Metadata), args.Error(1)
}
