package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("unwraps through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("verify: %w", New(CodeNotFound, "visitor not found"))
		assert.Equal(t, CodeNotFound, CodeOf(err))
		assert.True(t, HasCode(err, CodeNotFound))
	})

	t.Run("plain errors are internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("wrap keeps the cause reachable", func(t *testing.T) {
		cause := errors.New("connection reset")
		err := Wrap(cause, CodePersistence, "failed to save visitor")
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "failed to save visitor", MessageOf(err))
		assert.Contains(t, err.Error(), "persistence_error")
	})
}
