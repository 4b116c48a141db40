package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/pkg"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

var (
	errClientGone   = errors.New("client connection is gone")
	errStaleSession = errors.New("session was replaced")
)

type roomDirectory interface {
	CreateRoom(ctx context.Context) (entity.Room, error)
	JoinRoom(ctx context.Context, roomID string) (entity.Room, error)
}

// RemoteSessionFactory opens a session on an existing room.
type RemoteSessionFactory func(roomID string, self entity.Mark, listener usecase.RemoteListener) (*usecase.RemoteSession, error)

type Server struct {
	logger    *slog.Logger
	directory roomDirectory
	newRemote RemoteSessionFactory
	origins   []string

	handlers map[string]func(ctx context.Context, c *client, message *Message) error
}

func New(logger *slog.Logger, directory roomDirectory, newRemote RemoteSessionFactory, origins []string) *Server {
	server := &Server{
		logger:    logger.With("component", "websocket"),
		directory: directory,
		newRemote: newRemote,
		origins:   origins,

		handlers: make(map[string]func(context.Context, *client, *Message) error),
	}

	server.handlers[actionLocalStart] = server.handleLocalStart
	server.handlers[actionRoomCreate] = server.handleRoomCreate
	server.handlers[actionRoomJoin] = server.handleRoomJoin
	server.handlers[actionGameTurn] = server.handleGameTurn
	server.handlers[actionGameReset] = server.handleGameReset
	server.handlers[actionScoreReset] = server.handleScoreReset
	server.handlers[actionChatSend] = server.handleChatSend

	return server
}

// Router exposes the websocket endpoint at /ws.
func (that *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws", that.serveWS)

	return r
}

// Start - starts WebSocket server and stops it when ctx is done.
func (that *Server) Start(ctx context.Context, port string) error {
	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     that.Router(),
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			that.logger.Error("failed to shut down WebSocket server", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

func (that *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveWS")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: that.origins})
	if err != nil {
		log.Error("failed to accept websocket", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := newClient(that.logger, pkg.GenerateNewSessionID(), conn)
	defer c.close()

	go c.writeLoop(ctx)

	log.Info("WebSocket connection established", "clientID", c.id)

	if err = that.handleMessages(ctx, c); err != nil {
		log.Info("WebSocket connection closed", "clientID", c.id, "reason", err)
	}
}

// handleMessages - processes messages from the client until the connection closes.
func (that *Server) handleMessages(ctx context.Context, c *client) error {
	log := c.logger.With("method", "handleMessages")

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}

		var message Message
		if err = json.Unmarshal(data, &message); err != nil {
			log.Warn("failed to unmarshal message", "error", err)
			c.sendError("", errBadMessage)

			continue
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			log.Warn("unknown action", "action", message.Action)
			c.sendError(message.Action, fmt.Errorf("%w: %q", errUnknownAction, message.Action))

			continue
		}

		if err = handler(ctx, c, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}
