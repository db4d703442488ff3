package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	cause := errors.New("unique violation")

	t.Run("matches wrapped code", func(t *testing.T) {
		err := Wrap(cause, CodePersistence, "create cycle")
		assert.True(t, HasCode(err, CodePersistence))
		assert.False(t, HasCode(err, CodeNoActiveCycle))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", New(CodeNoActiveCycle, "no active cycle"))
		assert.True(t, HasCode(err, CodeNoActiveCycle))
	})

	t.Run("finds inner code under outer code", func(t *testing.T) {
		inner := New(CodeConflict, "active cycle exists")
		err := Wrap(inner, CodePersistence, "create cycle")
		assert.True(t, HasCode(err, CodeConflict))
		assert.Equal(t, CodePersistence, CodeOf(err))
	})

	t.Run("nil and plain errors have no code", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
		assert.False(t, HasCode(cause, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(cause))
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "noop"))
	})
}

func TestToHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeNoActiveCycle:      http.StatusConflict,
		CodeNoCarryForward:     http.StatusConflict,
		CodePersistence:        http.StatusConflict,
		CodeUnsupportedFormat:  http.StatusNotAcceptable,
		CodeNotFound:           http.StatusNotFound,
		CodeInvariantViolation: http.StatusUnprocessableEntity,
		CodeInternal:           http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, ToHTTPStatus(code), string(code))
	}
}
