package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

type roomDirectory interface {
	CreateRoom(ctx context.Context) (entity.Room, error)
	JoinRoom(ctx context.Context, roomID string) (entity.Room, error)
}

type RoomHandler interface {
	CreateRoom(w http.ResponseWriter, r *http.Request)
	GetRoom(w http.ResponseWriter, r *http.Request)
}

type roomResponse struct {
	RoomID string      `json:"roomId"`
	Player entity.Mark `json:"player"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type roomHandler struct {
	logger *slog.Logger
	rooms  roomDirectory
}

func NewRoomHandler(logger *slog.Logger, rooms roomDirectory) RoomHandler {
	return &roomHandler{
		logger: logger.With("component", "rest_rooms"),
		rooms:  rooms,
	}
}

func (that *roomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := that.rooms.CreateRoom(r.Context())
	if err != nil {
		that.logger.Error("failed to create room", "method", "CreateRoom", "error", err)
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})

		return
	}

	writeJSON(w, http.StatusCreated, roomResponse{RoomID: room.ID, Player: room.Player})
}

// GetRoom checks that a room exists before a client subscribes to it.
func (that *roomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	room, err := that.rooms.JoinRoom(r.Context(), roomID)
	if err != nil {
		if !errors.Is(err, apperror.ErrRoomNotFound) {
			that.logger.Error("failed to get room", "method", "GetRoom", "roomID", roomID, "error", err)
		}

		writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, roomResponse{RoomID: room.ID, Player: room.Player})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperror.ErrRoomNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrPersistenceReadFailed), errors.Is(err, apperror.ErrPersistenceWriteFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
