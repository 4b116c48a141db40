package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
)

const messagesSubcollection = "messages"

type RoomRepository interface {
	Create(ctx context.Context, roomID string, room entity.RoomDocument) error
	GetByID(ctx context.Context, roomID string) (entity.RoomDocument, error)
	UpdateGame(ctx context.Context, roomID string, room entity.RoomDocument) error
	Subscribe(ctx context.Context, roomID string, onSnapshot func(entity.RoomDocument)) (Unsubscribe, error)

	AppendMessage(ctx context.Context, roomID string, sender entity.Mark, text string) error
	SubscribeMessages(ctx context.Context, roomID string, onMessages func([]entity.ChatMessage)) (Unsubscribe, error)
}

type chatDocument struct {
	ID        string `json:"id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type dbRoom struct {
	logger     *slog.Logger
	store      DocumentStore
	collection string
}

func NewRoomRepository(logger *slog.Logger, store DocumentStore, collection string) RoomRepository {
	return &dbRoom{
		logger:     logger.With("component", "room_repository"),
		store:      store,
		collection: collection,
	}
}

func (that *dbRoom) Create(ctx context.Context, roomID string, room entity.RoomDocument) error {
	doc, err := encodeDocument(room)
	if err != nil {
		return fmt.Errorf("could not encode room: %w", err)
	}

	if err = that.store.CreateDocument(ctx, that.collection, roomID, doc); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, roomID string) (entity.RoomDocument, error) {
	doc, err := that.store.GetDocument(ctx, that.collection, roomID)
	if errors.Is(err, ErrDocumentNotFound) {
		return entity.RoomDocument{}, apperror.ErrRoomNotFound
	}

	if err != nil {
		return entity.RoomDocument{}, fmt.Errorf("failed to get room by id: %w", err)
	}

	var room entity.RoomDocument
	if err = decodeDocument(doc, &room); err != nil {
		return entity.RoomDocument{}, fmt.Errorf("failed to decode room: %w", err)
	}

	return room, nil
}

// UpdateGame writes board, currentPlayer and moveOrder; nothing else in the room is touched.
func (that *dbRoom) UpdateGame(ctx context.Context, roomID string, room entity.RoomDocument) error {
	doc, err := encodeDocument(room)
	if err != nil {
		return fmt.Errorf("could not encode room: %w", err)
	}

	err = that.store.UpdateDocument(ctx, that.collection, roomID, doc)
	if errors.Is(err, ErrDocumentNotFound) {
		return apperror.ErrRoomNotFound
	}

	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}

	return nil
}

func (that *dbRoom) Subscribe(
	ctx context.Context, roomID string, onSnapshot func(entity.RoomDocument),
) (Unsubscribe, error) {
	log := that.logger.With("method", "Subscribe", "roomID", roomID)

	unsubscribe, err := that.store.Subscribe(ctx, that.collection, roomID, func(doc Document) {
		var room entity.RoomDocument
		if err := decodeDocument(doc, &room); err != nil {
			log.Error("skipping malformed snapshot", "error", err)
			return
		}

		onSnapshot(room)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to room: %w", err)
	}

	return unsubscribe, nil
}

func (that *dbRoom) AppendMessage(ctx context.Context, roomID string, sender entity.Mark, text string) error {
	doc, err := encodeDocument(struct {
		Sender string `json:"sender"`
		Text   string `json:"text"`
	}{Sender: string(sender), Text: text})
	if err != nil {
		return fmt.Errorf("could not encode message: %w", err)
	}

	if err = that.store.AppendToSubcollection(ctx, that.collection, roomID, messagesSubcollection, doc); err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}

	return nil
}

func (that *dbRoom) SubscribeMessages(
	ctx context.Context, roomID string, onMessages func([]entity.ChatMessage),
) (Unsubscribe, error) {
	log := that.logger.With("method", "SubscribeMessages", "roomID", roomID)

	unsubscribe, err := that.store.SubscribeOrdered(ctx, that.collection, roomID, messagesSubcollection, FieldTimestamp,
		func(docs []Document) {
			messages := make([]entity.ChatMessage, 0, len(docs))

			for _, doc := range docs {
				var chat chatDocument
				if err := decodeDocument(doc, &chat); err != nil {
					log.Error("skipping malformed message", "error", err)
					continue
				}

				messages = append(messages, entity.ChatMessage{
					ID:        chat.ID,
					Sender:    entity.Mark(chat.Sender),
					Text:      chat.Text,
					Timestamp: time.UnixMilli(chat.Timestamp).UTC(),
				})
			}

			onMessages(messages)
		})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to messages: %w", err)
	}

	return unsubscribe, nil
}
