package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/baharkarakas/simsforum/internal/metrics"
)

// Tx is the view of the store held by one View or Update call.
type Tx struct {
	ctx      context.Context
	store    *Store
	modes    map[Document]bool
	raw      map[Document][]byte
	degraded map[Document]error
	staged   map[Document][]byte
}

func (tx *Tx) Context() context.Context { return tx.ctx }

// Degraded reports whether doc could not be read and was replaced by an
// empty collection in this transaction.
func (tx *Tx) Degraded(doc Document) bool {
	_, bad := tx.degraded[doc]
	return bad
}

func (tx *Tx) bytes(doc Document) ([]byte, error) {
	if _, ok := tx.modes[doc]; !ok {
		return nil, fmt.Errorf("store: %s not declared in this transaction", doc)
	}
	if data, ok := tx.staged[doc]; ok {
		return data, nil
	}
	if data, ok := tx.raw[doc]; ok {
		return data, nil
	}
	if _, bad := tx.degraded[doc]; bad {
		return nil, nil
	}
	data, err := tx.store.backend.Load(tx.ctx, string(doc))
	switch {
	case errors.Is(err, ErrNotExist):
		data = nil
	case err != nil:
		if ctxErr := tx.ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		tx.markDegraded(doc, err)
		return nil, nil
	}
	tx.raw[doc] = data
	return data, nil
}

func (tx *Tx) markDegraded(doc Document, cause error) {
	tx.degraded[doc] = cause
	metrics.DocumentLoadFailures.WithLabelValues(string(doc)).Inc()
	tx.store.log.Warn("document unreadable, continuing with an empty collection",
		"document", doc, "err", cause)
}

// Load decodes doc as a collection of T. A missing or blank document is an
// empty collection. An unreadable or malformed one is also empty, but the
// transaction records it as degraded and refuses to overwrite it.
func Load[T any](tx *Tx, doc Document) ([]T, error) {
	data, err := tx.bytes(doc)
	if err != nil {
		return nil, err
	}
	items := []T{}
	if len(bytes.TrimSpace(data)) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		delete(tx.raw, doc)
		tx.markDegraded(doc, err)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save stages items as the full replacement of doc. Nothing is written until
// the enclosing Update returns.
func Save[T any](tx *Tx, doc Document, items []T) error {
	if !tx.modes[doc] {
		return fmt.Errorf("store: %s is not writable in this transaction", doc)
	}
	if items == nil {
		items = []T{}
	}
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", doc, err)
	}
	tx.staged[doc] = data
	return nil
}
