package entity

import "time"

// Room is a shared game session identified by a short code.
type Room struct {
	ID     string    `json:"roomId"`
	Player Mark      `json:"player"`
	Game   GameState `json:"game"`
}

// RoomDocument is the persisted shape of a room. Outcome is not part of it:
// every observer derives it from Board.
type RoomDocument struct {
	Board         [BoardSize]string `json:"board"`
	CurrentPlayer string            `json:"currentPlayer"`
	MoveOrder     []int             `json:"moveOrder"`
}

// NewRoomDocument converts a state to its persisted form.
func NewRoomDocument(state GameState) RoomDocument {
	doc := RoomDocument{
		CurrentPlayer: string(state.Turn),
		MoveOrder:     append(make([]int, 0, len(state.MoveOrder)), state.MoveOrder...),
	}

	for i, cell := range state.Board {
		doc.Board[i] = string(cell)
	}

	return doc
}

// ChatMessage is one entry of a room's chat log.
type ChatMessage struct {
	ID        string    `json:"id"`
	Sender    Mark      `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// MarkBoard converts the persisted cells back to marks.
func (that RoomDocument) MarkBoard() Board {
	var board Board
	for i, cell := range that.Board {
		board[i] = Mark(cell)
	}

	return board
}
