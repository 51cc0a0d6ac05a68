package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageKeyFormat(t *testing.T) {
	key := storageKey("report.pdf")
	assert.Regexp(t, regexp.MustCompile(`^report_\d+_[0-9a-f]{8}\.pdf$`), key)
}

func TestStorageKeyIsCollisionResistant(t *testing.T) {
	a := storageKey("report.pdf")
	b := storageKey("report.pdf")
	assert.NotEqual(t, a, b)
}

func TestStorageKeySanitizesInput(t *testing.T) {
	assert.Regexp(t, `^quarterly_results_\d+_[0-9a-f]{8}\.xlsx$`, storageKey("quarterly results.xlsx"))
	assert.Regexp(t, `^evil_\d+_[0-9a-f]{8}\.png$`, storageKey("../../evil.png"))
	assert.Regexp(t, `^notes_\d+_[0-9a-f]{8}$`, storageKey("notes"))
	assert.Regexp(t, `^file_\d+_[0-9a-f]{8}$`, storageKey(""))
}
