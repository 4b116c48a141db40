package tictactoe

import (
	"fmt"
	"slices"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

// WinCombos are scanned in this order: rows top to bottom, columns left to right, diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// NewGame returns the initial state: empty board, X to move.
func NewGame() entity.GameState {
	return entity.GameState{
		MoveOrder: []int{},
		Turn:      entity.PlayerX,
		Outcome:   entity.InProgress(),
	}
}

// Reset discards the given state and returns the initial one.
func Reset(_ entity.GameState) entity.GameState {
	return NewGame()
}

// ApplyMove places player's mark on position and returns the next state.
// The input state is never modified.
func ApplyMove(state entity.GameState, position int, player entity.Mark) (entity.GameState, error) {
	if err := validateMove(state, position, player); err != nil {
		return state, err
	}

	next := state.Clone()

	next.MoveOrder = append(next.MoveOrder, position)
	for len(next.MoveOrder) > entity.MaxLiveMoves {
		oldest := next.MoveOrder[0]
		next.MoveOrder = next.MoveOrder[1:]

		if oldest >= 0 && oldest < entity.BoardSize {
			next.Board[oldest] = entity.EmptyCell
		}
	}

	next.Board[position] = player
	next.Outcome = Evaluate(next.Board)

	if !next.Outcome.IsOver() {
		next.Turn = state.Turn.Opponent()
	}

	return next, nil
}

// validateMove - checks the move in a fixed order; the first failure wins.
func validateMove(state entity.GameState, position int, player entity.Mark) error {
	if state.Outcome.IsOver() {
		return apperror.ErrGameOver
	}

	if position < 0 || position >= entity.BoardSize {
		return fmt.Errorf("%w: cell %d", apperror.ErrInvalidPosition, position)
	}

	if state.Board[position] != entity.EmptyCell {
		return fmt.Errorf("%w: cell %d", apperror.ErrCellOccupied, position)
	}

	if player != state.Turn {
		return apperror.ErrNotYourTurn
	}

	return nil
}

// Evaluate derives the outcome of a board.
//
// With the eviction rule at most six cells are ever filled, so Draw is not
// reachable through ApplyMove. It is still reported for full boards that come
// from elsewhere, such as a snapshot written by another client.
func Evaluate(board entity.Board) entity.Outcome {
	for _, combo := range WinCombos {
		a, b, c := board[combo[0]], board[combo[1]], board[combo[2]]
		if a != entity.EmptyCell && a == b && b == c {
			return entity.Win(a)
		}
	}

	if board.HasEmptyCell() {
		return entity.InProgress()
	}

	return entity.Draw()
}

// Restore rebuilds a state from persisted fields and recomputes the outcome.
// The move order is reduced to its live part, see liveMoves.
func Restore(board entity.Board, turn entity.Mark, moveOrder []int) entity.GameState {
	return entity.GameState{
		Board:     board,
		MoveOrder: liveMoves(moveOrder),
		Turn:      turn,
		Outcome:   Evaluate(board),
	}
}

// liveMoves keeps the newest MaxLiveMoves distinct cells of moveOrder, oldest
// first. Cells outside the board are dropped.
func liveMoves(moveOrder []int) []int {
	live := make([]int, 0, min(len(moveOrder), entity.MaxLiveMoves))

	var seen [entity.BoardSize]bool

	for i := len(moveOrder) - 1; i >= 0 && len(live) < entity.MaxLiveMoves; i-- {
		position := moveOrder[i]
		if position < 0 || position >= entity.BoardSize || seen[position] {
			continue
		}

		seen[position] = true
		live = append(live, position)
	}

	slices.Reverse(live)

	return live
}
