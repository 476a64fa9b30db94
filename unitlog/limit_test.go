package unitlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIfBudgetDropsOversizedEntries(t *testing.T) {
	budget := NewBudget(0, 10)

	assert.NoError(t, budget.Admit("search.bulk", 10))
	err := budget.Admit("search.bulk", 11)

	require.IsType(t, &DropError{}, err)
	assert.Equal(t, &DropError{Unit: "search.bulk", Reason: DroppedForSize}, err)
	assert.Equal(t, "log entry of unit search.bulk dropped: size limit exceeded", err.Error())
	assert.Equal(t, 1, budget.Dropped("search.bulk"))
}

func TestIfBudgetLimitsRatePerUnit(t *testing.T) {
	budget := NewBudget(1, 0)

	require.NoError(t, budget.Admit("search.bulk", 1))
	err := budget.Admit("search.bulk", 1)
	assert.Equal(t, &DropError{Unit: "search.bulk", Reason: DroppedForRate}, err)

	assert.NoError(t, budget.Admit("search.query", 1))
	assert.Equal(t, 1, budget.Dropped("search.bulk"))
	assert.Zero(t, budget.Dropped("search.query"))
}

func TestIfUnlimitedBudgetAdmitsEverything(t *testing.T) {
	budget := NewBudget(0, 0)

	for i := 0; i < 100; i++ {
		assert.NoError(t, budget.Admit("search.bulk", 1<<20))
	}
	assert.Zero(t, budget.Dropped("search.bulk"))
}
