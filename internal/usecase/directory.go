package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/tictactoe"
)

// RoomDirectory creates rooms and checks that rooms exist before they are joined.
type RoomDirectory struct {
	logger *slog.Logger
	rooms  roomRepo

	generateID func() (string, error)
}

func NewRoomDirectory(logger *slog.Logger, rooms roomRepo) *RoomDirectory {
	return &RoomDirectory{
		logger:     logger.With("component", "room_directory"),
		rooms:      rooms,
		generateID: pkg.GenerateRoomID,
	}
}

// CreateRoom stores a new game under a fresh room code. The creator plays X.
func (that *RoomDirectory) CreateRoom(ctx context.Context) (entity.Room, error) {
	log := that.logger.With("method", "CreateRoom")

	roomID, err := that.generateID()
	if err != nil {
		return entity.Room{}, fmt.Errorf("failed to create room: %w", err)
	}

	game := tictactoe.NewGame()

	if err = that.rooms.Create(ctx, roomID, entity.NewRoomDocument(game)); err != nil {
		log.Error("could not create room", "roomID", roomID, "error", err)
		return entity.Room{}, fmt.Errorf("%w: %w", apperror.ErrPersistenceWriteFailed, err)
	}

	log.Info("room created", "roomID", roomID)

	return entity.Room{ID: roomID, Player: entity.PlayerX, Game: game}, nil
}

// JoinRoom checks that roomID exists. The joiner plays O.
func (that *RoomDirectory) JoinRoom(ctx context.Context, roomID string) (entity.Room, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return entity.Room{}, apperror.ErrRoomNotFound
	}

	log := that.logger.With("method", "JoinRoom", "roomID", roomID)

	doc, err := that.rooms.GetByID(ctx, roomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		log.Info("room not found")
		return entity.Room{}, fmt.Errorf("%w: %s", apperror.ErrRoomNotFound, roomID)
	}

	if err != nil {
		log.Error("could not read room", "error", err)
		return entity.Room{}, fmt.Errorf("%w: %w", apperror.ErrPersistenceReadFailed, err)
	}

	log.Info("room joined")

	return entity.Room{
		ID:     roomID,
		Player: entity.PlayerO,
		Game:   tictactoe.Restore(doc.MarkBoard(), entity.Mark(doc.CurrentPlayer), doc.MoveOrder),
	}, nil
}
