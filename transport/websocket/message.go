package websocket

import (
	"encoding/json"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const (
	actionLocalStart = "local:start"
	actionRoomCreate = "room:create"
	actionRoomJoin   = "room:join"
	actionGameTurn   = "game:turn"
	actionGameReset  = "game:reset"
	actionScoreReset = "score:reset"
	actionChatSend   = "chat:send"

	actionGameState    = "game:state"
	actionChatMessages = "chat:messages"
	actionError        = "error"
)

// Message represents a WebSocket message with an action type and a payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload is what clients send; each action reads its own fields.
type Payload struct {
	RoomID string `json:"roomId,omitempty"`
	Cell   *int   `json:"cell,omitempty"`
	Text   string `json:"text,omitempty"`
}

type StatePayload struct {
	Game   entity.GameState `json:"game"`
	Player entity.Mark      `json:"player,omitempty"`
	RoomID string           `json:"roomId,omitempty"`
	Score  *entity.Score    `json:"score,omitempty"`
}

type MessagesPayload struct {
	Messages []entity.ChatMessage `json:"messages"`
}

type ErrorPayload struct {
	Action string `json:"action,omitempty"`
	Error  string `json:"error"`
}
