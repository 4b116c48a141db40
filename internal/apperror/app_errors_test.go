package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMoveError(t *testing.T) {
	for _, err := range []error{ErrGameOver, ErrInvalidPosition, ErrCellOccupied, ErrNotYourTurn} {
		assert.True(t, IsMoveError(fmt.Errorf("wrapped: %w", err)), err.Error())
	}

	assert.False(t, IsMoveError(ErrRoomNotFound))
	assert.False(t, IsMoveError(ErrPersistenceWriteFailed))
	assert.False(t, IsMoveError(errors.New("other")))
	assert.False(t, IsMoveError(nil))
}
