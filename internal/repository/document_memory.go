package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

type docSubscriber struct {
	onSnapshot func(Document)
	pending    bool
}

type logSubscriber struct {
	orderField string
	onSnapshot func([]Document)
	pending    bool
}

type memoryDocument struct {
	mu sync.Mutex

	docs map[string]Document
	logs map[string][]Document

	docSubs map[string]map[int]*docSubscriber
	logSubs map[string]map[int]*logSubscriber

	// keys whose subscribers are being notified right now
	docDelivering map[string]bool
	logDelivering map[string]bool

	nextSubID int
	lastMilli int64
	seq       int64
	now       func() time.Time
}

// NewMemoryDocumentStore keeps documents in process memory. Notifications are
// delivered on a writer's goroutine after the write is visible. Deliveries for
// one key never overlap, and every subscriber gets the latest state last.
func NewMemoryDocumentStore() DocumentStore {
	return &memoryDocument{
		docs:          make(map[string]Document),
		logs:          make(map[string][]Document),
		docSubs:       make(map[string]map[int]*docSubscriber),
		logSubs:       make(map[string]map[int]*logSubscriber),
		docDelivering: make(map[string]bool),
		logDelivering: make(map[string]bool),
		now:           time.Now,
	}
}

func (that *memoryDocument) CreateDocument(_ context.Context, collection, id string, doc Document) error {
	if len(doc) == 0 {
		return ErrEmptyDocument
	}

	key := documentKey(collection, id)

	that.mu.Lock()
	that.docs[key] = cloneDocument(doc)
	that.markDocumentSubscribers(key)
	that.mu.Unlock()

	that.deliverDocuments(key)

	return nil
}

func (that *memoryDocument) GetDocument(_ context.Context, collection, id string) (Document, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	doc, ok := that.docs[documentKey(collection, id)]
	if !ok {
		return nil, ErrDocumentNotFound
	}

	return cloneDocument(doc), nil
}

func (that *memoryDocument) UpdateDocument(_ context.Context, collection, id string, doc Document) error {
	if len(doc) == 0 {
		return ErrEmptyDocument
	}

	key := documentKey(collection, id)

	that.mu.Lock()
	existing, ok := that.docs[key]
	if !ok {
		that.mu.Unlock()
		return ErrDocumentNotFound
	}

	mergeDocument(existing, doc)
	that.markDocumentSubscribers(key)
	that.mu.Unlock()

	that.deliverDocuments(key)

	return nil
}

func (that *memoryDocument) Subscribe(
	_ context.Context, collection, id string, onSnapshot func(Document),
) (Unsubscribe, error) {
	key := documentKey(collection, id)

	that.mu.Lock()
	subID := that.nextSubID
	that.nextSubID++

	if that.docSubs[key] == nil {
		that.docSubs[key] = make(map[int]*docSubscriber)
	}

	_, exists := that.docs[key]
	that.docSubs[key][subID] = &docSubscriber{onSnapshot: onSnapshot, pending: exists}
	that.mu.Unlock()

	that.deliverDocuments(key)

	return Unsubscribe(sync.OnceFunc(func() {
		that.mu.Lock()
		delete(that.docSubs[key], subID)
		that.mu.Unlock()
	})), nil
}

func (that *memoryDocument) AppendToSubcollection(_ context.Context, collection, id, sub string, doc Document) error {
	entry := cloneDocument(doc)
	delete(entry, FieldID)
	delete(entry, FieldTimestamp)

	if len(entry) == 0 {
		return ErrEmptyDocument
	}

	key := subcollectionKey(collection, id, sub)

	that.mu.Lock()
	millis := that.now().UnixMilli()
	if millis <= that.lastMilli {
		that.seq++
		millis = that.lastMilli
	} else {
		that.seq = 0
		that.lastMilli = millis
	}

	entryID := fmt.Sprintf("%d-%d", millis, that.seq)
	entry[FieldID] = []byte(strconv.Quote(entryID))
	entry[FieldTimestamp] = []byte(strconv.FormatInt(millis, 10))

	that.logs[key] = append(that.logs[key], entry)
	for _, subscriber := range that.logSubs[key] {
		subscriber.pending = true
	}
	that.mu.Unlock()

	that.deliverLogs(key)

	return nil
}

func (that *memoryDocument) SubscribeOrdered(
	_ context.Context, collection, id, sub, orderField string, onSnapshot func([]Document),
) (Unsubscribe, error) {
	key := subcollectionKey(collection, id, sub)

	that.mu.Lock()
	subID := that.nextSubID
	that.nextSubID++

	if that.logSubs[key] == nil {
		that.logSubs[key] = make(map[int]*logSubscriber)
	}
	that.logSubs[key][subID] = &logSubscriber{orderField: orderField, onSnapshot: onSnapshot, pending: true}
	that.mu.Unlock()

	that.deliverLogs(key)

	return Unsubscribe(sync.OnceFunc(func() {
		that.mu.Lock()
		delete(that.logSubs[key], subID)
		that.mu.Unlock()
	})), nil
}

// markDocumentSubscribers must be called with mu held.
func (that *memoryDocument) markDocumentSubscribers(key string) {
	for _, sub := range that.docSubs[key] {
		sub.pending = true
	}
}

// deliverDocuments sends the current document to every pending subscriber of
// key. If another goroutine is already delivering for key it picks the new
// work up before it finishes, so snapshots never arrive out of order.
func (that *memoryDocument) deliverDocuments(key string) {
	type delivery struct {
		fn  func(Document)
		doc Document
	}

	that.mu.Lock()
	if that.docDelivering[key] {
		that.mu.Unlock()
		return
	}
	that.docDelivering[key] = true

	for {
		var batch []delivery

		if doc, ok := that.docs[key]; ok {
			for _, sub := range that.docSubs[key] {
				if sub.pending {
					sub.pending = false
					batch = append(batch, delivery{fn: sub.onSnapshot, doc: cloneDocument(doc)})
				}
			}
		}

		if len(batch) == 0 {
			delete(that.docDelivering, key)
			that.mu.Unlock()

			return
		}

		that.mu.Unlock()

		for _, d := range batch {
			d.fn(d.doc)
		}

		that.mu.Lock()
	}
}

// deliverLogs is deliverDocuments for subcollections.
func (that *memoryDocument) deliverLogs(key string) {
	type delivery struct {
		fn      func([]Document)
		entries []Document
	}

	that.mu.Lock()
	if that.logDelivering[key] {
		that.mu.Unlock()
		return
	}
	that.logDelivering[key] = true

	for {
		var batch []delivery

		for _, sub := range that.logSubs[key] {
			if sub.pending {
				sub.pending = false
				batch = append(batch, delivery{fn: sub.onSnapshot, entries: that.orderedLog(key, sub.orderField)})
			}
		}

		if len(batch) == 0 {
			delete(that.logDelivering, key)
			that.mu.Unlock()

			return
		}

		that.mu.Unlock()

		for _, d := range batch {
			d.fn(d.entries)
		}

		that.mu.Lock()
	}
}

func (that *memoryDocument) orderedLog(key, orderField string) []Document {
	entries := make([]Document, 0, len(that.logs[key]))
	for _, entry := range that.logs[key] {
		entries = append(entries, cloneDocument(entry))
	}

	sortDocuments(entries, orderField)

	return entries
}
