package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "revalidation/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSubjectID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseSubjectID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseSubjectID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseSubjectID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, SubjectID(validUUID), id)
	})
}

// TestParseID_SecurityInvariants validates parsing at trust boundaries.
func TestParseID_SecurityInvariants(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"SQL injection attempt", "'; DROP TABLE cycles;--", true},
		{"Path traversal", "../../../etc/passwd", true},
		{"Null byte injection", "550e8400\x00-e29b-41d4-a716-446655440000", true},
		{"Oversized input", strings.Repeat("a", 1000), true},
		{"Empty string", "", true},
		{"Nil UUID", uuid.Nil.String(), true},
		{"Whitespace only", "   ", true},
		{"Uppercase valid UUID", "550E8400-E29B-41D4-A716-446655440000", false},
		{"Valid UUID lowercase", "550e8400-e29b-41d4-a716-446655440000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCycleID(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

// TestAllIDTypes_ConsistentBehavior ensures all ID types parse identically.
func TestAllIDTypes_ConsistentBehavior(t *testing.T) {
	validUUID := uuid.New().String()

	t.Run("all accept valid UUID", func(t *testing.T) {
		_, errSubject := ParseSubjectID(validUUID)
		_, errCycle := ParseCycleID(validUUID)
		_, errAudit := ParseAuditID(validUUID)
		require.NoError(t, errSubject)
		require.NoError(t, errCycle)
		require.NoError(t, errAudit)
	})

	for _, input := range []string{"", "invalid", uuid.Nil.String()} {
		t.Run("all reject: "+input, func(t *testing.T) {
			_, errSubject := ParseSubjectID(input)
			_, errCycle := ParseCycleID(input)
			_, errAudit := ParseAuditID(input)
			require.Error(t, errSubject)
			require.Error(t, errCycle)
			require.Error(t, errAudit)
		})
	}
}

func TestIDs_JSONAsPlainUUID(t *testing.T) {
	raw := uuid.New()
	b, err := json.Marshal(struct {
		ID CycleID `json:"id"`
	}{ID: CycleID(raw)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+raw.String()+`"}`, string(b))

	var decoded struct {
		ID CycleID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, CycleID(raw), decoded.ID)
}
