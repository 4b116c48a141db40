package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const (
	outboxSize   = 16
	writeTimeout = 3 * time.Second
)

// client is one websocket connection. Handlers run on the reader goroutine;
// everything sent to the browser goes through the outbox.
type client struct {
	id     string
	logger *slog.Logger
	conn   *websocket.Conn

	outbox chan []byte
	done   chan struct{}
	stop   func()

	local  *usecase.LocalSession
	remote *usecase.RemoteSession

	// generation changes on every session switch; listeners of older sessions go quiet
	sessionMu  sync.Mutex
	generation uint64
}

func newClient(logger *slog.Logger, id string, conn *websocket.Conn) *client {
	done := make(chan struct{})

	return &client{
		id:     id,
		logger: logger.With("clientID", id),
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
		done:   done,
		stop:   sync.OnceFunc(func() { close(done) }),
	}
}

// writeLoop drains the outbox until ctx is done or a write fails.
func (that *client) writeLoop(ctx context.Context) {
	defer that.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-that.outbox:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := that.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()

			if err != nil {
				that.logger.Error("failed to write message", "error", err)
				return
			}
		}
	}
}

// send queues a message. It gives up once the connection is gone.
func (that *client) send(action string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	data, err := json.Marshal(Message{Action: action, Payload: raw})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	select {
	case that.outbox <- data:
		return nil
	case <-that.done:
		return errClientGone
	}
}

func (that *client) sendError(action string, err error) {
	if sendErr := that.send(actionError, ErrorPayload{Action: action, Error: err.Error()}); sendErr != nil {
		that.logger.Debug("could not report error", "error", sendErr)
	}
}

// switchSession drops whatever session the connection had. Once it returns no
// callback of the old session reaches the outbox.
func (that *client) switchSession() {
	that.sessionMu.Lock()
	that.generation++
	that.sessionMu.Unlock()

	if that.remote != nil {
		that.remote.Close()
		that.remote = nil
	}

	that.local = nil
}

func (that *client) close() {
	that.switchSession()
	that.stop()
}

func (that *client) currentGeneration() uint64 {
	that.sessionMu.Lock()
	defer that.sessionMu.Unlock()

	return that.generation
}

// roomListener forwards one room's changes to its client while that room is
// still the client's session.
type roomListener struct {
	client     *client
	generation uint64
	roomID     string
	self       entity.Mark
}

func (that *client) newRoomListener(room entity.Room) roomListener {
	return roomListener{client: that, generation: that.currentGeneration(), roomID: room.ID, self: room.Player}
}

func (that roomListener) forward(action string, payload any) error {
	that.client.sessionMu.Lock()
	defer that.client.sessionMu.Unlock()

	if that.client.generation != that.generation {
		return errStaleSession
	}

	return that.client.send(action, payload)
}

func (that roomListener) OnState(state entity.GameState) {
	err := that.forward(actionGameState, StatePayload{Game: state, Player: that.self, RoomID: that.roomID})
	if err != nil {
		that.client.logger.Debug("dropped room state", "roomID", that.roomID, "error", err)
	}
}

func (that roomListener) OnMessages(messages []entity.ChatMessage) {
	if err := that.forward(actionChatMessages, MessagesPayload{Messages: messages}); err != nil {
		that.client.logger.Debug("dropped chat messages", "roomID", that.roomID, "error", err)
	}
}
