package entity

// Mark is the content of a board cell and also identifies a player.
type Mark string

const (
	EmptyCell Mark = ""
	PlayerX   Mark = "X"
	PlayerO   Mark = "O"
)

const (
	BoardSize = 9

	// MaxLiveMoves bounds the marks on the board; older marks are evicted first.
	MaxLiveMoves = 6
)

// Opponent returns the other player. EmptyCell has no opponent.
func (that Mark) Opponent() Mark {
	switch that {
	case PlayerX:
		return PlayerO
	case PlayerO:
		return PlayerX
	default:
		return EmptyCell
	}
}

// IsPlayer reports whether the mark names a player.
func (that Mark) IsPlayer() bool {
	return that == PlayerX || that == PlayerO
}

type Board [BoardSize]Mark

// HasEmptyCell reports whether at least one cell is free.
func (that Board) HasEmptyCell() bool {
	for _, cell := range that {
		if cell == EmptyCell {
			return true
		}
	}

	return false
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWin        Status = "win"
	StatusDraw       Status = "draw"
)

// Outcome is derived from a Board and never stored as authority.
type Outcome struct {
	Status Status `json:"status"`
	Winner Mark   `json:"winner,omitempty"`
}

func InProgress() Outcome {
	return Outcome{Status: StatusInProgress}
}

func Win(player Mark) Outcome {
	return Outcome{Status: StatusWin, Winner: player}
}

func Draw() Outcome {
	return Outcome{Status: StatusDraw}
}

func (that Outcome) IsOver() bool {
	return that.Status == StatusWin || that.Status == StatusDraw
}

func (that Outcome) IsWin() bool {
	return that.Status == StatusWin
}

type GameState struct {
	Board     Board   `json:"board"`
	MoveOrder []int   `json:"moveOrder"`
	Turn      Mark    `json:"currentPlayer"`
	Outcome   Outcome `json:"outcome"`
}

// Clone returns a copy that shares no memory with the receiver.
func (that GameState) Clone() GameState {
	clone := that
	clone.MoveOrder = append(make([]int, 0, len(that.MoveOrder)), that.MoveOrder...)

	return clone
}

// Score counts games won per player in a local session.
type Score struct {
	X int `json:"X"`
	O int `json:"O"`
}

func (that *Score) Add(player Mark) {
	switch player {
	case PlayerX:
		that.X++
	case PlayerO:
		that.O++
	}
}
