package apperror

import "errors"

var (
	ErrGameOver        = errors.New("game is already finished")
	ErrInvalidPosition = errors.New("invalid cell index")
	ErrCellOccupied    = errors.New("cell is already occupied")
	ErrNotYourTurn     = errors.New("it's not your turn")

	ErrRoomNotFound     = errors.New("room not found")
	ErrSessionNotReady  = errors.New("room state has not been received yet")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrUnknownPlayer    = errors.New("unknown player mark")
	ErrSessionNotActive = errors.New("no active session")

	ErrPersistenceWriteFailed = errors.New("could not save to storage")
	ErrPersistenceReadFailed  = errors.New("could not read from storage")
)

// IsMoveError reports whether err is one of the recoverable move rejections
// that callers treat as a no-op.
func IsMoveError(err error) bool {
	return errors.Is(err, ErrGameOver) ||
		errors.Is(err, ErrInvalidPosition) ||
		errors.Is(err, ErrCellOccupied) ||
		errors.Is(err, ErrNotYourTurn)
}
