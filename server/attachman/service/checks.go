package service

import (
	"task_server/server/attachman/domain"
)

// validateTypes rejects the whole batch on the first file whose declared
// media type is off the allow-list. Runs before any storage write.
func validateTypes(policy domain.Policy, files []domain.FileUpload) error {
	for _, f := range files {
		if !policy.Allows(f.MediaType) {
			return &domain.InvalidFormatError{MediaType: f.MediaType}
		}
	}
	return nil
}

// checkQuota accepts a batch only if the task's fresh current total plus
// the whole batch still fits under the quota. Partial acceptance is never
// attempted.
func checkQuota(policy domain.Policy, currentTotal int64, incomingSizes []int64) error {
	attempted := currentTotal
	for _, size := range incomingSizes {
		attempted += size
	}
	if attempted > policy.QuotaBytes {
		return &domain.QuotaExceededError{CurrentSize: currentTotal, AttemptedSize: attempted}
	}
	return nil
}
