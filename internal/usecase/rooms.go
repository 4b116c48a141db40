package usecase

import (
	"context"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
)

type roomRepo interface {
	Create(ctx context.Context, roomID string, room entity.RoomDocument) error
	GetByID(ctx context.Context, roomID string) (entity.RoomDocument, error)
	UpdateGame(ctx context.Context, roomID string, room entity.RoomDocument) error
	Subscribe(ctx context.Context, roomID string, onSnapshot func(entity.RoomDocument)) (repository.Unsubscribe, error)

	AppendMessage(ctx context.Context, roomID string, sender entity.Mark, text string) error
	SubscribeMessages(
		ctx context.Context, roomID string, onMessages func([]entity.ChatMessage),
	) (repository.Unsubscribe, error)
}
