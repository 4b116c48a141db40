package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// RemoteListener is notified whenever the shared room changes.
type RemoteListener interface {
	OnState(state entity.GameState)
	OnMessages(messages []entity.ChatMessage)
}

// RemoteSession mirrors a room stored in the document store. The stored room
// is authoritative: moves are written to it and the mirror only changes when a
// snapshot comes back.
type RemoteSession struct {
	logger   *slog.Logger
	rooms    roomRepo
	listener RemoteListener

	roomID string
	self   entity.Mark

	mu           sync.RWMutex
	state        entity.GameState
	ready        bool
	messages     []entity.ChatMessage
	unsubscribes []repository.Unsubscribe
}

func NewRemoteSession(
	logger *slog.Logger, rooms roomRepo, roomID string, self entity.Mark, listener RemoteListener,
) (*RemoteSession, error) {
	if !self.IsPlayer() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrUnknownPlayer, self)
	}

	return &RemoteSession{
		logger:   logger.With("component", "remote_session", "roomID", roomID, "player", self),
		rooms:    rooms,
		listener: listener,
		roomID:   roomID,
		self:     self,
		state:    tictactoe.NewGame(),
	}, nil
}

// Start subscribes to the room and its chat. ctx bounds the subscriptions.
func (that *RemoteSession) Start(ctx context.Context) error {
	unsubscribeGame, err := that.rooms.Subscribe(ctx, that.roomID, that.HandleSnapshot)
	if err != nil {
		return fmt.Errorf("%w: %w", apperror.ErrPersistenceReadFailed, err)
	}

	unsubscribeChat, err := that.rooms.SubscribeMessages(ctx, that.roomID, that.HandleMessages)
	if err != nil {
		unsubscribeGame()
		return fmt.Errorf("%w: %w", apperror.ErrPersistenceReadFailed, err)
	}

	that.mu.Lock()
	that.unsubscribes = append(that.unsubscribes, unsubscribeGame, unsubscribeChat)
	that.mu.Unlock()

	return nil
}

// Click validates the move against the mirror and writes the result to the room.
// The returned state is what was written; the mirror itself waits for the snapshot.
func (that *RemoteSession) Click(ctx context.Context, position int) (entity.GameState, error) {
	log := that.logger.With("method", "Click", "cell", position)

	that.mu.RLock()
	state, ready := that.state.Clone(), that.ready
	that.mu.RUnlock()

	if !ready {
		return state, apperror.ErrSessionNotReady
	}

	next, err := tictactoe.ApplyMove(state, position, that.self)
	if err != nil {
		return state, err
	}

	if err = that.rooms.UpdateGame(ctx, that.roomID, entity.NewRoomDocument(next)); err != nil {
		log.Error("failed to write move", "error", err)
		return state, fmt.Errorf("%w: %w", apperror.ErrPersistenceWriteFailed, err)
	}

	return next, nil
}

// Reset writes a fresh game to the room.
func (that *RemoteSession) Reset(ctx context.Context) error {
	if err := that.rooms.UpdateGame(ctx, that.roomID, entity.NewRoomDocument(tictactoe.NewGame())); err != nil {
		that.logger.Error("failed to reset room", "error", err)
		return fmt.Errorf("%w: %w", apperror.ErrPersistenceWriteFailed, err)
	}

	return nil
}

// SendMessage appends text to the room's chat. The store assigns the timestamp.
func (that *RemoteSession) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return apperror.ErrEmptyMessage
	}

	if err := that.rooms.AppendMessage(ctx, that.roomID, that.self, text); err != nil {
		that.logger.Error("failed to send message", "error", err)
		return fmt.Errorf("%w: %w", apperror.ErrPersistenceWriteFailed, err)
	}

	return nil
}

// HandleSnapshot replaces the mirror with doc and derives the outcome from its board.
func (that *RemoteSession) HandleSnapshot(doc entity.RoomDocument) {
	state := tictactoe.Restore(doc.MarkBoard(), entity.Mark(doc.CurrentPlayer), doc.MoveOrder)

	that.mu.Lock()
	that.state = state
	that.ready = true
	that.mu.Unlock()

	if that.listener != nil {
		that.listener.OnState(state.Clone())
	}
}

func (that *RemoteSession) HandleMessages(messages []entity.ChatMessage) {
	messages = append([]entity.ChatMessage(nil), messages...)

	that.mu.Lock()
	that.messages = messages
	that.mu.Unlock()

	if that.listener != nil {
		that.listener.OnMessages(append([]entity.ChatMessage(nil), messages...))
	}
}

// State returns the mirror and whether a snapshot has been received yet.
func (that *RemoteSession) State() (entity.GameState, bool) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return that.state.Clone(), that.ready
}

func (that *RemoteSession) Messages() []entity.ChatMessage {
	that.mu.RLock()
	defer that.mu.RUnlock()

	return append([]entity.ChatMessage(nil), that.messages...)
}

func (that *RemoteSession) Self() entity.Mark {
	return that.self
}

func (that *RemoteSession) RoomID() string {
	return that.roomID
}

// Close stops listening to the room. Writes already in flight are not cancelled.
func (that *RemoteSession) Close() {
	that.mu.Lock()
	unsubscribes := that.unsubscribes
	that.unsubscribes = nil
	that.mu.Unlock()

	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
}
