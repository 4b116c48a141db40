package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

var (
	errStoreDown   = errors.New("store is down")
	errNoRoomCodes = errors.New("no room codes left")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newMemoryRooms() repository.RoomRepository {
	return repository.NewRoomRepository(testLogger(), repository.NewMemoryDocumentStore(), "rooms")
}

// mockRoomRepo is a testify mock of roomRepo.
type mockRoomRepo struct {
	mock.Mock
}

func (that *mockRoomRepo) Create(ctx context.Context, roomID string, room entity.RoomDocument) error {
	args := that.Called(ctx, roomID, room)
	return args.Error(0)
}

func (that *mockRoomRepo) GetByID(ctx context.Context, roomID string) (entity.RoomDocument, error) {
	args := that.Called(ctx, roomID)
	return args.Get(0).(entity.RoomDocument), args.Error(1)
}

func (that *mockRoomRepo) UpdateGame(ctx context.Context, roomID string, room entity.RoomDocument) error {
	args := that.Called(ctx, roomID, room)
	return args.Error(0)
}

func (that *mockRoomRepo) Subscribe(
	ctx context.Context, roomID string, onSnapshot func(entity.RoomDocument),
) (repository.Unsubscribe, error) {
	args := that.Called(ctx, roomID, onSnapshot)
	unsubscribe, _ := args.Get(0).(repository.Unsubscribe)

	return unsubscribe, args.Error(1)
}

func (that *mockRoomRepo) AppendMessage(ctx context.Context, roomID string, sender entity.Mark, text string) error {
	args := that.Called(ctx, roomID, sender, text)
	return args.Error(0)
}

func (that *mockRoomRepo) SubscribeMessages(
	ctx context.Context, roomID string, onMessages func([]entity.ChatMessage),
) (repository.Unsubscribe, error) {
	args := that.Called(ctx, roomID, onMessages)
	unsubscribe, _ := args.Get(0).(repository.Unsubscribe)

	return unsubscribe, args.Error(1)
}

// recordingListener keeps everything a RemoteSession reported.
type recordingListener struct {
	mu       sync.Mutex
	states   []entity.GameState
	messages [][]entity.ChatMessage
}

func (that *recordingListener) OnState(state entity.GameState) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.states = append(that.states, state)
}

func (that *recordingListener) OnMessages(messages []entity.ChatMessage) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.messages = append(that.messages, messages)
}

func (that *recordingListener) lastState() (entity.GameState, int) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.states) == 0 {
		return entity.GameState{}, 0
	}

	return that.states[len(that.states)-1], len(that.states)
}

func (that *recordingListener) lastMessages() []entity.ChatMessage {
	that.mu.Lock()
	defer that.mu.Unlock()

	if len(that.messages) == 0 {
		return nil
	}

	return that.messages[len(that.messages)-1]
}
