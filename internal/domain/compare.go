package domain

// RunComparison reports per-criterion movement between two test runs.
type RunComparison struct {
	Improved  []string `json:"improved"`
	Regressed []string `json:"regressed"`
	Unchanged []string `json:"unchanged"`
}

// CompareRuns classifies every criterion that appears in both runs as
// improved (fail -> pass), regressed (pass -> fail) or unchanged. Criteria
// present in only one run are ignored.
func CompareRuns(prev TestRun, next TestRun) RunComparison {
	prevPassed := criterionOutcomes(prev)

	var comparison RunComparison
	for _, result := range next.Results {
		if result.Status != ResultCompleted {
			continue
		}

		for _, cr := range result.CriterionResults {
			before, ok := prevPassed[cr.CriterionId]
			if !ok {
				continue
			}

			switch {
			case !before && cr.Passed:
				comparison.Improved = append(comparison.Improved, cr.CriterionId)
			case before && !cr.Passed:
				comparison.Regressed = append(comparison.Regressed, cr.CriterionId)
			default:
				comparison.Unchanged = append(comparison.Unchanged, cr.CriterionId)
			}
		}
	}

	return comparison
}

func criterionOutcomes(run TestRun) map[string]bool {
	outcomes := map[string]bool{}
	for _, result := range run.Results {
		if result.Status != ResultCompleted {
			continue
		}

		for _, cr := range result.CriterionResults {
			outcomes[cr.CriterionId] = cr.Passed
		}
	}

	return outcomes
}
