package domain

import "fmt"

type OptimizationStatus string

const (
	OptimizationGenerated OptimizationStatus = "generated"
	OptimizationAccepted  OptimizationStatus = "accepted"
	OptimizationRejected  OptimizationStatus = "rejected"
)

type CycleStatus string

const (
	CycleRunning   CycleStatus = "running"
	CyclePaused    CycleStatus = "paused"
	CycleCompleted CycleStatus = "completed"
	CycleCancelled CycleStatus = "cancelled"
)

type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s status transition: %s -> %s", e.Entity, e.From, e.To)
}

// Terminal states carry no outgoing edges; any transition not listed is
// rejected. Callers must not write a stored status without passing through
// TransitionOptimization or TransitionCycle first.
var optimizationTransitions = map[OptimizationStatus][]OptimizationStatus{
	OptimizationGenerated: {OptimizationAccepted, OptimizationRejected},
	OptimizationAccepted:  {},
	OptimizationRejected:  {},
}

var cycleTransitions = map[CycleStatus][]CycleStatus{
	CycleRunning:   {CyclePaused, CycleCancelled, CycleCompleted},
	CyclePaused:    {CycleRunning, CycleCancelled},
	CycleCompleted: {},
	CycleCancelled: {},
}

func TransitionOptimization(current OptimizationStatus, requested OptimizationStatus) (OptimizationStatus, error) {
	for _, next := range optimizationTransitions[current] {
		if next == requested {
			return requested, nil
		}
	}

	return "", &InvalidTransitionError{Entity: "optimization", From: string(current), To: string(requested)}
}

func TransitionCycle(current CycleStatus, requested CycleStatus) (CycleStatus, error) {
	for _, next := range cycleTransitions[current] {
		if next == requested {
			return requested, nil
		}
	}

	return "", &InvalidTransitionError{Entity: "cycle", From: string(current), To: string(requested)}
}
