package usecase

import (
	"log/slog"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// LocalSession is a game between two players sharing one device. The mark to
// play is always taken from the state, so turn order is never rejected.
// It is not safe for concurrent use.
type LocalSession struct {
	logger *slog.Logger

	state entity.GameState
	score entity.Score
}

func NewLocalSession(logger *slog.Logger) *LocalSession {
	return &LocalSession{
		logger: logger.With("component", "local_session"),
		state:  tictactoe.NewGame(),
	}
}

// Click plays the current turn on position.
func (that *LocalSession) Click(position int) (entity.GameState, error) {
	next, err := tictactoe.ApplyMove(that.state, position, that.state.Turn)
	if err != nil {
		return that.state.Clone(), err
	}

	that.state = next

	if next.Outcome.IsWin() {
		that.score.Add(next.Outcome.Winner)
		that.logger.Debug("game won", "winner", next.Outcome.Winner, "score", that.score)
	}

	return next.Clone(), nil
}

// Reset starts a new game and keeps the score.
func (that *LocalSession) Reset() entity.GameState {
	that.state = tictactoe.Reset(that.state)
	return that.state.Clone()
}

// ResetScore clears the score and keeps the game.
func (that *LocalSession) ResetScore() entity.Score {
	that.score = entity.Score{}
	return that.score
}

func (that *LocalSession) State() entity.GameState {
	return that.state.Clone()
}

func (that *LocalSession) Score() entity.Score {
	return that.score
}
