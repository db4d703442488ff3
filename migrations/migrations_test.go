package migrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamesAreOrdered(t *testing.T) {
	assert.Equal(t, []string{
		"0001_cycles.up.sql",
		"0002_submission_audits.up.sql",
		"0003_outbox.up.sql",
	}, Names())
}
