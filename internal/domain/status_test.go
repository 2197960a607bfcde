package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizationTransitions(t *testing.T) {
	next, err := TransitionOptimization(OptimizationGenerated, OptimizationAccepted)
	require.NoError(t, err)
	assert.Equal(t, OptimizationAccepted, next)

	next, err = TransitionOptimization(OptimizationGenerated, OptimizationRejected)
	require.NoError(t, err)
	assert.Equal(t, OptimizationRejected, next)
}

func TestOptimizationTerminalStatesReject(t *testing.T) {
	cases := []struct {
		from OptimizationStatus
		to   OptimizationStatus
	}{
		{OptimizationAccepted, OptimizationRejected},
		{OptimizationRejected, OptimizationAccepted},
		{OptimizationAccepted, OptimizationAccepted},
	}

	for _, c := range cases {
		_, err := TransitionOptimization(c.from, c.to)

		var ite *InvalidTransitionError
		require.ErrorAs(t, err, &ite, "%s -> %s", c.from, c.to)
	}
}

func TestCycleTransitions(t *testing.T) {
	valid := []struct {
		from CycleStatus
		to   CycleStatus
	}{
		{CycleRunning, CyclePaused},
		{CycleRunning, CycleCancelled},
		{CycleRunning, CycleCompleted},
		{CyclePaused, CycleRunning},
		{CyclePaused, CycleCancelled},
	}

	for _, c := range valid {
		next, err := TransitionCycle(c.from, c.to)
		require.NoError(t, err, "%s -> %s", c.from, c.to)
		assert.Equal(t, c.to, next)
	}
}

func TestCycleInvalidTransitionsReject(t *testing.T) {
	invalid := []struct {
		from CycleStatus
		to   CycleStatus
	}{
		{CycleCompleted, CycleRunning},
		{CycleCancelled, CyclePaused},
		{CyclePaused, CycleCompleted},
		{CycleRunning, CycleRunning},
	}

	for _, c := range invalid {
		_, err := TransitionCycle(c.from, c.to)

		var ite *InvalidTransitionError
		require.ErrorAs(t, err, &ite, "%s -> %s", c.from, c.to)
	}
}
