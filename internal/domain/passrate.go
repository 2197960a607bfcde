package domain

// PassRate computes the fraction of passed criteria across completed case
// results. Error-status cases are excluded from numerator and denominator;
// an empty denominator yields exactly 0, never NaN.
func PassRate(results []TestCaseResult) float64 {
	var passed, total int
	for _, result := range results {
		if result.Status != ResultCompleted {
			continue
		}

		for _, cr := range result.CriterionResults {
			total++
			if cr.Passed {
				passed++
			}
		}
	}

	if total == 0 {
		return 0
	}

	return float64(passed) / float64(total)
}

// PartitionCriterionResults splits the criterion results of completed cases
// into failures and passes, preserving result order.
func PartitionCriterionResults(results []TestCaseResult) (failures []CriterionResult, passes []CriterionResult) {
	for _, result := range results {
		if result.Status != ResultCompleted {
			continue
		}

		for _, cr := range result.CriterionResults {
			if cr.Passed {
				passes = append(passes, cr)
			} else {
				failures = append(failures, cr)
			}
		}
	}

	return failures, passes
}
