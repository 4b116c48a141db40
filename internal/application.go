package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/tictactoe-rooms/internal/config"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/entity"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/repository/storage"
	"github.com/rocketscienceinc/tictactoe-rooms/internal/usecase"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/rest"
	"github.com/rocketscienceinc/tictactoe-rooms/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application until SIGINT or SIGTERM.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := openDocumentStore(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer closeStore()

	roomRepo := repository.NewRoomRepository(logger, store, conf.Storage.Collection)
	directory := usecase.NewRoomDirectory(logger, roomRepo)

	newRemote := func(roomID string, self entity.Mark, listener usecase.RemoteListener) (*usecase.RemoteSession, error) {
		return usecase.NewRemoteSession(logger, roomRepo, roomID, self, listener)
	}

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		router := rest.NewRouter(rest.NewPingHandler(), rest.NewRoomHandler(logger, directory))
		httpErrCh <- rest.Start(ctx, logger, conf.HTTPPort, router)
	}()

	// run Websocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, directory, newRemote, conf.AllowedOrigins)
		wsErrCh <- wsServer.Start(ctx, conf.SocketPort)
	}()

	select {
	case err = <-httpErrCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	case err = <-wsErrCh:
		if err != nil {
			return fmt.Errorf("WebSocket server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Received signal, shutting down")
	}

	return nil
}

// openDocumentStore connects the configured storage driver.
func openDocumentStore(
	ctx context.Context, logger *slog.Logger, conf *config.Config,
) (repository.DocumentStore, func(), error) {
	log := logger.With("component", "app", "driver", conf.Storage.Driver)

	if conf.Storage.Driver == config.DriverMemory {
		log.Warn("rooms are kept in memory and shared only within this process")
		return repository.NewMemoryDocumentStore(), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisStorage, err := storage.NewRedisStorage(ctx, storage.RedisOptions{
		Addr:     redisAddrString,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	closeStore := func() {
		if err := redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}

	return repository.NewRedisDocumentStore(logger, redisStorage.Connection), closeStore, nil
}
