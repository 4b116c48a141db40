package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

func TestRoomDirectory_CreateRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates a room with a fresh game", func(t *testing.T) {
		// Given: a directory over an empty store
		rooms := newMemoryRooms()
		directory := NewRoomDirectory(testLogger(), rooms)

		// When: a room is created
		room, err := directory.CreateRoom(ctx)

		// Then: the creator plays X and the stored game is the initial one
		require.NoError(t, err)
		assert.Regexp(t, `^[1-9]\d{5}$`, room.ID)
		assert.Equal(t, entity.PlayerX, room.Player)
		assert.Equal(t, tictactoe.NewGame(), room.Game)

		doc, err := rooms.GetByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.NewRoomDocument(tictactoe.NewGame()), doc)
	})

	t.Run("Write failure", func(t *testing.T) {
		// Given: a repository that cannot write
		rooms := &mockRoomRepo{}
		rooms.On("Create", mock.Anything, "424242", mock.Anything).Return(errStoreDown).Once()

		directory := NewRoomDirectory(testLogger(), rooms)
		directory.generateID = func() (string, error) { return "424242", nil }

		// When: a room is created
		_, err := directory.CreateRoom(ctx)

		// Then: the failure is a persistence write failure
		require.ErrorIs(t, err, apperror.ErrPersistenceWriteFailed)
		rooms.AssertExpectations(t)
	})

	t.Run("Id generation failure", func(t *testing.T) {
		rooms := &mockRoomRepo{}
		directory := NewRoomDirectory(testLogger(), rooms)
		directory.generateID = func() (string, error) { return "", errNoRoomCodes }

		_, err := directory.CreateRoom(ctx)

		require.ErrorIs(t, err, errNoRoomCodes)
		rooms.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRoomDirectory_JoinRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("Joins an existing room as O", func(t *testing.T) {
		// Given: a room created by another player who already moved
		rooms := newMemoryRooms()
		directory := NewRoomDirectory(testLogger(), rooms)

		created, err := directory.CreateRoom(ctx)
		require.NoError(t, err)

		moved, err := tictactoe.ApplyMove(created.Game, 4, entity.PlayerX)
		require.NoError(t, err)
		require.NoError(t, rooms.UpdateGame(ctx, created.ID, entity.NewRoomDocument(moved)))

		// When: joining it
		room, err := directory.JoinRoom(ctx, " "+created.ID+" ")

		// Then: the joiner plays O and sees the current game
		require.NoError(t, err)
		assert.Equal(t, created.ID, room.ID)
		assert.Equal(t, entity.PlayerO, room.Player)
		assert.Equal(t, moved, room.Game)
	})

	t.Run("Unknown room", func(t *testing.T) {
		directory := NewRoomDirectory(testLogger(), newMemoryRooms())

		_, err := directory.JoinRoom(ctx, "999999")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Blank room id", func(t *testing.T) {
		directory := NewRoomDirectory(testLogger(), &mockRoomRepo{})

		_, err := directory.JoinRoom(ctx, "  ")

		require.ErrorIs(t, err, apperror.ErrRoomNotFound)
	})

	t.Run("Read failure", func(t *testing.T) {
		// Given: a repository that cannot read
		rooms := &mockRoomRepo{}
		rooms.On("GetByID", mock.Anything, "123456").Return(entity.RoomDocument{}, errStoreDown).Once()

		directory := NewRoomDirectory(testLogger(), rooms)

		// When: joining
		_, err := directory.JoinRoom(ctx, "123456")

		// Then: the failure is a persistence read failure, not a missing room
		require.ErrorIs(t, err, apperror.ErrPersistenceReadFailed)
		assert.NotErrorIs(t, err, apperror.ErrRoomNotFound)
		rooms.AssertExpectations(t)
	})
}
