package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"sort"
)

const (
	// FieldID and FieldTimestamp are assigned by the store to subcollection entries.
	FieldID        = "id"
	FieldTimestamp = "timestamp"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrEmptyDocument    = errors.New("document has no fields")
)

// Document maps field names to JSON encoded values.
type Document map[string]json.RawMessage

// Unsubscribe stops a subscription. It is safe to call more than once.
type Unsubscribe func()

// DocumentStore is the narrow contract the game needs from a realtime document database.
type DocumentStore interface {
	// CreateDocument writes doc as the whole content of collection/id, replacing what was there.
	CreateDocument(ctx context.Context, collection, id string, doc Document) error
	// GetDocument returns ErrDocumentNotFound when nothing is stored under collection/id.
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	// UpdateDocument merges the given fields into an existing document.
	UpdateDocument(ctx context.Context, collection, id string, doc Document) error
	// Subscribe calls onSnapshot with the full document once it exists and after every
	// change, the subscriber's own writes included.
	Subscribe(ctx context.Context, collection, id string, onSnapshot func(Document)) (Unsubscribe, error)

	// AppendToSubcollection adds an entry to an ordered log under collection/id.
	// FieldID and FieldTimestamp are assigned by the store.
	AppendToSubcollection(ctx context.Context, collection, id, sub string, doc Document) error
	// SubscribeOrdered calls onSnapshot with every entry of the log, sorted by orderField,
	// once on subscribe and after every append.
	SubscribeOrdered(
		ctx context.Context, collection, id, sub, orderField string, onSnapshot func([]Document),
	) (Unsubscribe, error)
}

func documentKey(collection, id string) string {
	return collection + ":" + id
}

func subcollectionKey(collection, id, sub string) string {
	return documentKey(collection, id) + ":" + sub
}

// encodeDocument turns a JSON object value into a Document.
func encodeDocument(value any) (Document, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}

	var doc Document
	if err = json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert document: %w", err)
	}

	return doc, nil
}

// decodeDocument fills target from the fields of doc.
func decodeDocument(doc Document, target any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	if err = json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to unmarshal document: %w", err)
	}

	return nil
}

func cloneDocument(doc Document) Document {
	clone := make(Document, len(doc))
	for field, value := range doc {
		clone[field] = bytes.Clone(value)
	}

	return clone
}

func mergeDocument(dst, src Document) {
	maps.Copy(dst, cloneDocument(src))
}

// sortDocuments orders entries by the numeric value of field. Entries without
// a numeric value keep their relative order after all others.
func sortDocuments(docs []Document, field string) {
	keys := make([]float64, len(docs))
	valid := make([]bool, len(docs))

	for i, doc := range docs {
		if raw, ok := doc[field]; ok {
			valid[i] = json.Unmarshal(raw, &keys[i]) == nil
		}
	}

	index := make([]int, len(docs))
	for i := range index {
		index[i] = i
	}

	sort.SliceStable(index, func(a, b int) bool {
		ia, ib := index[a], index[b]
		if valid[ia] != valid[ib] {
			return valid[ia]
		}

		return valid[ia] && keys[ia] < keys[ib]
	})

	sorted := make([]Document, len(docs))
	for i, from := range index {
		sorted[i] = docs[from]
	}

	copy(docs, sorted)
}
