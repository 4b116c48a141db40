package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/testing/suite"
)

var errStoreDown = errors.New("store is down")

// failingStore fails every call.
type failingStore struct{}

func (failingStore) CreateDocument(context.Context, string, string, Document) error {
	return errStoreDown
}

func (failingStore) GetDocument(context.Context, string, string) (Document, error) {
	return nil, errStoreDown
}

func (failingStore) UpdateDocument(context.Context, string, string, Document) error {
	return errStoreDown
}

func (failingStore) Subscribe(context.Context, string, string, func(Document)) (Unsubscribe, error) {
	return nil, errStoreDown
}

func (failingStore) AppendToSubcollection(context.Context, string, string, string, Document) error {
	return errStoreDown
}

func (failingStore) SubscribeOrdered(context.Context, string, string, string, string, func([]Document)) (Unsubscribe, error) {
	return nil, errStoreDown
}

func sampleRoom() entity.RoomDocument {
	return entity.RoomDocument{
		Board:         [entity.BoardSize]string{"X", "", "", "", "O"},
		CurrentPlayer: "X",
		MoveOrder:     []int{0, 4},
	}
}

func runRoomRepositoryContract(t *testing.T, newRepo func(t *testing.T) (context.Context, RoomRepository)) {
	t.Run("Create and get by id", func(t *testing.T) {
		ctx, rooms := newRepo(t)

		// Given: a created room
		require.NoError(t, rooms.Create(ctx, "123456", sampleRoom()))

		// When: reading it
		room, err := rooms.GetByID(ctx, "123456")

		// Then: the schema round trips
		require.NoError(t, err)
		assert.Equal(t, sampleRoom(), room)
	})

	t.Run("Missing room", func(t *testing.T) {
		ctx, rooms := newRepo(t)

		_, err := rooms.GetByID(ctx, "000000")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Update missing room", func(t *testing.T) {
		ctx, rooms := newRepo(t)

		err := rooms.UpdateGame(ctx, "000000", sampleRoom())

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Subscribe sees updates", func(t *testing.T) {
		ctx, rooms := newRepo(t)

		require.NoError(t, rooms.Create(ctx, "1", entity.RoomDocument{CurrentPlayer: "X", MoveOrder: []int{}}))

		snapshots := make(chan entity.RoomDocument, 32)
		unsubscribe, err := rooms.Subscribe(ctx, "1", func(room entity.RoomDocument) { snapshots <- room })
		require.NoError(t, err)
		defer unsubscribe()

		waitFor(t, snapshots, func(room entity.RoomDocument) bool { return room.CurrentPlayer == "X" })

		// When: the game is updated
		require.NoError(t, rooms.UpdateGame(ctx, "1", sampleRoom()))

		// Then: subscribers receive the new board
		got := waitFor(t, snapshots, func(room entity.RoomDocument) bool { return len(room.MoveOrder) == 2 })
		assert.Equal(t, sampleRoom(), got)
	})

	t.Run("Chat messages", func(t *testing.T) {
		ctx, rooms := newRepo(t)

		logs := make(chan []entity.ChatMessage, 32)
		unsubscribe, err := rooms.SubscribeMessages(ctx, "1", func(messages []entity.ChatMessage) { logs <- messages })
		require.NoError(t, err)
		defer unsubscribe()

		require.NoError(t, rooms.AppendMessage(ctx, "1", entity.PlayerX, "hi"))
		require.NoError(t, rooms.AppendMessage(ctx, "1", entity.PlayerO, "hello"))

		messages := waitFor(t, logs, func(messages []entity.ChatMessage) bool { return len(messages) == 2 })
		assert.Equal(t, entity.PlayerX, messages[0].Sender)
		assert.Equal(t, "hi", messages[0].Text)
		assert.Equal(t, entity.PlayerO, messages[1].Sender)
		assert.Equal(t, "hello", messages[1].Text)
		assert.NotEmpty(t, messages[0].ID)
		assert.False(t, messages[0].Timestamp.IsZero())
		assert.False(t, messages[1].Timestamp.Before(messages[0].Timestamp))
	})
}

func TestRoomRepository_Memory(t *testing.T) {
	runRoomRepositoryContract(t, func(_ *testing.T) (context.Context, RoomRepository) {
		return context.Background(), NewRoomRepository(testLogger(), NewMemoryDocumentStore(), "rooms")
	})
}

func TestRoomRepository_Redis(t *testing.T) {
	ctx, st := suite.New(t)

	rooms := NewRoomRepository(st.Logger, NewRedisDocumentStore(st.Logger, st.Storage), "rooms")

	runRoomRepositoryContract(t, func(t *testing.T) (context.Context, RoomRepository) {
		require.NoError(t, st.Storage.FlushDB(ctx).Err())

		subCtx, cancel := context.WithCancel(ctx)
		t.Cleanup(cancel)

		return subCtx, rooms
	})
}

func TestRoomRepository_StoreFailures(t *testing.T) {
	ctx := context.Background()
	rooms := NewRoomRepository(testLogger(), failingStore{}, "rooms")

	t.Run("Create", func(t *testing.T) {
		err := rooms.Create(ctx, "1", sampleRoom())
		require.ErrorIs(t, err, errStoreDown)
	})

	t.Run("GetByID is not reported as missing", func(t *testing.T) {
		_, err := rooms.GetByID(ctx, "1")
		require.ErrorIs(t, err, errStoreDown)
		require.NotErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("UpdateGame", func(t *testing.T) {
		require.ErrorIs(t, rooms.UpdateGame(ctx, "1", sampleRoom()), errStoreDown)
	})

	t.Run("Subscribe", func(t *testing.T) {
		_, err := rooms.Subscribe(ctx, "1", func(entity.RoomDocument) {})
		require.ErrorIs(t, err, errStoreDown)
	})

	t.Run("Messages", func(t *testing.T) {
		require.ErrorIs(t, rooms.AppendMessage(ctx, "1", entity.PlayerX, "hi"), errStoreDown)

		_, err := rooms.SubscribeMessages(ctx, "1", func([]entity.ChatMessage) {})
		require.ErrorIs(t, err, errStoreDown)
	})
}

func TestRoomRepository_SkipsMalformedSnapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryDocumentStore()
	rooms := NewRoomRepository(testLogger(), store, "rooms")

	// Given: a document whose board is not an array
	require.NoError(t, store.CreateDocument(ctx, "rooms", "1", Document{"board": []byte(`"oops"`)}))

	var delivered int
	unsubscribe, err := rooms.Subscribe(ctx, "1", func(entity.RoomDocument) { delivered++ })
	require.NoError(t, err)
	defer unsubscribe()

	// When: a valid update follows
	require.NoError(t, rooms.UpdateGame(ctx, "1", sampleRoom()))

	// Then: only the valid snapshot reaches the callback
	assert.Equal(t, 1, delivered)
}
