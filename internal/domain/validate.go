package domain

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateSuite checks the structural invariants of a generated test suite:
// at least five cases, each with at least one turn and one criterion, and
// the mix must contain at least one happy-path and one adversarial case.
func ValidateSuite(suite TestSuite) error {
	if err := validate.Struct(suite); err != nil {
		return fmt.Errorf("invalid test suite: %w", err)
	}

	var happyPath, adversarial bool
	for _, tc := range suite.Cases {
		switch tc.Type {
		case CaseTypeHappyPath:
			happyPath = true
		case CaseTypeAdversarial:
			adversarial = true
		}
	}

	if !happyPath {
		return fmt.Errorf("invalid test suite: no happy-path case")
	}
	if !adversarial {
		return fmt.Errorf("invalid test suite: no adversarial case")
	}

	return nil
}
