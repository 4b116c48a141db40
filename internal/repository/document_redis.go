package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	changesSuffix = ":changes"

	logBlockTimeout = time.Second
	logRetryDelay   = 500 * time.Millisecond
	logReadCount    = 100
)

// updateScript merges fields into an existing hash and announces the change in
// one step. KEYS: hash, channel. ARGV: id, then field/value pairs.
var updateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('PUBLISH', KEYS[2], ARGV[1])
return 1
`)

type dbDocument struct {
	logger *slog.Logger
	client *redis.Client
}

// NewRedisDocumentStore keeps documents in Redis hashes, announces changes over
// Pub/Sub and keeps subcollections in Redis streams.
func NewRedisDocumentStore(logger *slog.Logger, client *redis.Client) DocumentStore {
	return &dbDocument{
		logger: logger.With("component", "redis_document_store"),
		client: client,
	}
}

func (that *dbDocument) CreateDocument(ctx context.Context, collection, id string, doc Document) error {
	if len(doc) == 0 {
		return ErrEmptyDocument
	}

	key := documentKey(collection, id)

	_, err := that.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, hashFields(doc))
		pipe.Publish(ctx, key+changesSuffix, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to create document %s: %w", key, err)
	}

	return nil
}

func (that *dbDocument) GetDocument(ctx context.Context, collection, id string) (Document, error) {
	key := documentKey(collection, id)

	fields, err := that.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s: %w", key, err)
	}

	if len(fields) == 0 {
		return nil, ErrDocumentNotFound
	}

	doc := make(Document, len(fields))
	for field, value := range fields {
		doc[field] = []byte(value)
	}

	return doc, nil
}

func (that *dbDocument) UpdateDocument(ctx context.Context, collection, id string, doc Document) error {
	if len(doc) == 0 {
		return ErrEmptyDocument
	}

	key := documentKey(collection, id)

	args := make([]any, 0, 1+2*len(doc))
	args = append(args, id)

	for field, value := range hashFields(doc) {
		args = append(args, field, value)
	}

	updated, err := updateScript.Run(ctx, that.client, []string{key, key + changesSuffix}, args...).Int()
	if err != nil {
		return fmt.Errorf("failed to update document %s: %w", key, err)
	}

	if updated == 0 {
		return ErrDocumentNotFound
	}

	return nil
}

func (that *dbDocument) Subscribe(
	ctx context.Context, collection, id string, onSnapshot func(Document),
) (Unsubscribe, error) {
	log := that.logger.With("method", "Subscribe", "collection", collection, "id", id)

	pubsub := that.client.Subscribe(ctx, documentKey(collection, id)+changesSuffix)

	// wait for the subscription to be confirmed so no change after this call is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", documentKey(collection, id), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	changes := pubsub.Channel()

	go func() {
		<-ctx.Done()
		if err := pubsub.Close(); err != nil {
			log.Debug("failed to close pubsub", "error", err)
		}
	}()

	go func() {
		that.deliverDocument(ctx, log, collection, id, onSnapshot)

		for range changes {
			that.deliverDocument(ctx, log, collection, id, onSnapshot)
		}
	}()

	return Unsubscribe(cancel), nil
}

func (that *dbDocument) deliverDocument(
	ctx context.Context, log *slog.Logger, collection, id string, onSnapshot func(Document),
) {
	if ctx.Err() != nil {
		return
	}

	doc, err := that.GetDocument(ctx, collection, id)
	if errors.Is(err, ErrDocumentNotFound) {
		return
	}

	if err != nil {
		if ctx.Err() == nil {
			log.Error("failed to read snapshot", "error", err)
		}
		return
	}

	onSnapshot(doc)
}

func (that *dbDocument) AppendToSubcollection(ctx context.Context, collection, id, sub string, doc Document) error {
	key := subcollectionKey(collection, id, sub)

	values := hashFields(doc)
	delete(values, FieldID)
	delete(values, FieldTimestamp)

	if len(values) == 0 {
		return ErrEmptyDocument
	}

	if err := that.client.XAdd(ctx, &redis.XAddArgs{Stream: key, Values: values}).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", key, err)
	}

	return nil
}

func (that *dbDocument) SubscribeOrdered(
	ctx context.Context, collection, id, sub, orderField string, onSnapshot func([]Document),
) (Unsubscribe, error) {
	log := that.logger.With("method", "SubscribeOrdered", "collection", collection, "id", id, "sub", sub)
	key := subcollectionKey(collection, id, sub)

	entries, lastID, err := that.readLog(ctx, key, orderField)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)

	go func() {
		onSnapshot(entries)

		for {
			streams, err := that.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{key, lastID},
				Count:   logReadCount,
				Block:   logBlockTimeout,
			}).Result()

			if ctx.Err() != nil {
				return
			}

			if errors.Is(err, redis.Nil) {
				continue
			}

			if err != nil {
				log.Error("failed to follow log", "error", err)

				select {
				case <-ctx.Done():
					return
				case <-time.After(logRetryDelay):
				}

				continue
			}

			for _, stream := range streams {
				if n := len(stream.Messages); n > 0 {
					lastID = stream.Messages[n-1].ID
				}
			}

			entries, _, err = that.readLog(ctx, key, orderField)
			if err != nil {
				if ctx.Err() == nil {
					log.Error("failed to read log", "error", err)
				}
				continue
			}

			onSnapshot(entries)
		}
	}()

	return Unsubscribe(cancel), nil
}

// readLog returns every entry of the stream and the id of the newest one.
func (that *dbDocument) readLog(ctx context.Context, key, orderField string) ([]Document, string, error) {
	messages, err := that.client.XRange(ctx, key, "-", "+").Result()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", key, err)
	}

	lastID := "0"
	entries := make([]Document, 0, len(messages))

	for _, message := range messages {
		entries = append(entries, streamEntry(message))
		lastID = message.ID
	}

	sortDocuments(entries, orderField)

	return entries, lastID, nil
}

// streamEntry converts a stream message; the millisecond part of its id is the server timestamp.
func streamEntry(message redis.XMessage) Document {
	doc := make(Document, len(message.Values)+2)
	for field, value := range message.Values {
		doc[field] = []byte(fmt.Sprint(value))
	}

	doc[FieldID] = []byte(strconv.Quote(message.ID))

	millis, _, _ := strings.Cut(message.ID, "-")
	if _, err := strconv.ParseInt(millis, 10, 64); err == nil {
		doc[FieldTimestamp] = []byte(millis)
	}

	return doc
}

func hashFields(doc Document) map[string]any {
	values := make(map[string]any, len(doc))
	for field, value := range doc {
		values[field] = string(value)
	}

	return values
}
