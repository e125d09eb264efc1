package services

import (
	"fmt"
)

const (
	msgDuplicateIDs = "Duplicate IDs found"
	msgEmptyValues  = "CSV contains empty values"
)

// ValidationResult lists every structural problem found in a submission.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateSubmission checks a parsed submission against the answer key. All
// checks run so callers receive the full error set. Ids present in the
// submission but absent from the answer key are not reported.
func ValidateSubmission(submission, answer ParsedDataset) ValidationResult {
	var errs []string

	if submission.Len() != answer.Len() {
		errs = append(errs, fmt.Sprintf("Row count mismatch: expected %d, got %d", answer.Len(), submission.Len()))
	}

	submittedIDs := make(map[string]struct{}, submission.Len())
	for _, rec := range submission.Records {
		submittedIDs[rec.ID] = struct{}{}
	}

	reported := make(map[string]struct{})
	for _, rec := range answer.Records {
		if _, ok := submittedIDs[rec.ID]; ok {
			continue
		}
		if _, dup := reported[rec.ID]; dup {
			continue
		}
		reported[rec.ID] = struct{}{}
		errs = append(errs, fmt.Sprintf("Missing ID: %s", rec.ID))
	}

	if len(submittedIDs) < submission.Len() {
		errs = append(errs, msgDuplicateIDs)
	}

	for _, rec := range submission.Records {
		if rec.ID == "" || rec.Value == "" {
			errs = append(errs, msgEmptyValues)
			break
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
