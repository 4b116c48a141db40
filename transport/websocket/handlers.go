package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

var (
	errBadMessage    = errors.New("message is not valid JSON")
	errUnknownAction = errors.New("unknown action")
	errCellRequired  = errors.New("cell is required")
	errRoomRequired  = errors.New("roomId is required")
)

func decodePayload(msg *Message) (Payload, error) {
	var payload Payload
	if len(msg.Payload) == 0 {
		return payload, nil
	}

	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return payload, nil
}

func (that *Server) sendLocalState(c *client) error {
	score := c.local.Score()

	return c.send(actionGameState, StatePayload{Game: c.local.State(), Score: &score})
}

func (that *Server) handleLocalStart(_ context.Context, c *client, _ *Message) error {
	c.switchSession()
	c.local = usecase.NewLocalSession(c.logger)

	c.logger.Info("local game started")

	return that.sendLocalState(c)
}

func (that *Server) handleRoomCreate(ctx context.Context, c *client, msg *Message) error {
	room, err := that.directory.CreateRoom(ctx)
	if err != nil {
		c.sendError(msg.Action, err)
		return fmt.Errorf("failed to create room: %w", err)
	}

	return that.openRoom(ctx, c, msg, room)
}

func (that *Server) handleRoomJoin(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		c.sendError(msg.Action, errBadMessage)
		return err
	}

	if payload.RoomID == "" {
		c.sendError(msg.Action, errRoomRequired)
		return nil
	}

	room, err := that.directory.JoinRoom(ctx, payload.RoomID)
	if errors.Is(err, apperror.ErrRoomNotFound) {
		c.sendError(msg.Action, err)
		return nil
	}

	if err != nil {
		c.sendError(msg.Action, err)
		return fmt.Errorf("failed to join room: %w", err)
	}

	return that.openRoom(ctx, c, msg, room)
}

// openRoom replaces the client's session with one following room. The first
// game:state arrives with the room's initial snapshot.
func (that *Server) openRoom(ctx context.Context, c *client, msg *Message, room entity.Room) error {
	c.switchSession()

	session, err := that.newRemote(room.ID, room.Player, c.newRoomListener(room))
	if err != nil {
		c.sendError(msg.Action, err)
		return fmt.Errorf("failed to open room %s: %w", room.ID, err)
	}

	if err = session.Start(ctx); err != nil {
		c.sendError(msg.Action, err)
		return fmt.Errorf("failed to start room %s: %w", room.ID, err)
	}

	c.remote = session
	c.logger.Info("joined room", "roomID", session.RoomID(), "player", session.Self())

	return nil
}

func (that *Server) handleGameTurn(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		c.sendError(msg.Action, errBadMessage)
		return err
	}

	if payload.Cell == nil {
		c.sendError(msg.Action, errCellRequired)
		return nil
	}

	switch {
	case c.remote != nil:
		_, err = c.remote.Click(ctx, *payload.Cell)
	case c.local != nil:
		if _, err = c.local.Click(*payload.Cell); err == nil {
			return that.sendLocalState(c)
		}
	default:
		err = apperror.ErrSessionNotActive
	}

	return that.reportError(c, msg, err)
}

func (that *Server) handleGameReset(ctx context.Context, c *client, msg *Message) error {
	switch {
	case c.remote != nil:
		return that.reportError(c, msg, c.remote.Reset(ctx))
	case c.local != nil:
		c.local.Reset()
		return that.sendLocalState(c)
	default:
		return that.reportError(c, msg, apperror.ErrSessionNotActive)
	}
}

func (that *Server) handleScoreReset(_ context.Context, c *client, msg *Message) error {
	if c.local == nil {
		return that.reportError(c, msg, apperror.ErrSessionNotActive)
	}

	c.local.ResetScore()

	return that.sendLocalState(c)
}

func (that *Server) handleChatSend(ctx context.Context, c *client, msg *Message) error {
	payload, err := decodePayload(msg)
	if err != nil {
		c.sendError(msg.Action, errBadMessage)
		return err
	}

	if c.remote == nil {
		return that.reportError(c, msg, apperror.ErrSessionNotActive)
	}

	return that.reportError(c, msg, c.remote.SendMessage(ctx, payload.Text))
}

// reportError tells the client about err. Only persistence failures are
// returned for logging; the rest are ordinary rejected input.
func (that *Server) reportError(c *client, msg *Message, err error) error {
	if err == nil {
		return nil
	}

	c.sendError(msg.Action, err)

	if apperror.IsMoveError(err) {
		c.logger.Debug("move rejected", "action", msg.Action, "error", err)
		return nil
	}

	if errors.Is(err, apperror.ErrPersistenceWriteFailed) || errors.Is(err, apperror.ErrPersistenceReadFailed) {
		return err
	}

	return nil
}
