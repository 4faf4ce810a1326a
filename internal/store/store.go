// Package store persists named collections as whole documents and
// serializes access to them. Every read and write happens inside a
// transaction that holds the locks of the documents it declared up front.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/baharkarakas/simsforum/internal/metrics"
	"github.com/baharkarakas/simsforum/internal/models"
)

type Document string

const (
	Users      Document = "users"
	Categories Document = "categories"
	Topics     Document = "topics"
	Posts      Document = "posts"
)

// lockOrder is the global acquisition order. Every transaction takes its
// locks in this order, so two transactions can never wait on each other.
var lockOrder = []Document{Users, Categories, Topics, Posts}

// ErrNotExist is returned by a Backend when a document has never been saved.
var ErrNotExist = errors.New("document does not exist")

// Backend loads and replaces raw documents. Commit must make either all of
// the given documents visible or none of them.
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Commit(ctx context.Context, docs map[string][]byte) error
}

// Access declares the documents a transaction reads and writes.
type Access struct {
	Read  []Document
	Write []Document
}

func Reading(docs ...Document) Access { return Access{Read: docs} }

func Writing(docs ...Document) Access { return Access{Write: docs} }

func (a Access) Reading(docs ...Document) Access {
	a.Read = append(append([]Document(nil), a.Read...), docs...)
	return a
}

type Store struct {
	backend Backend
	log     *slog.Logger
	locks   map[Document]*sync.RWMutex
}

func New(backend Backend, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	locks := make(map[Document]*sync.RWMutex, len(lockOrder))
	for _, d := range lockOrder {
		locks[d] = &sync.RWMutex{}
	}
	return &Store{backend: backend, log: log, locks: locks}
}

// View runs fn with shared locks on every declared document. Writes
// declared in a are ignored; nothing is committed.
func (s *Store) View(ctx context.Context, a Access, fn func(tx *Tx) error) error {
	modes, err := s.modes(Access{Read: append(append([]Document(nil), a.Read...), a.Write...)})
	if err != nil {
		return err
	}
	unlock := s.lock(modes)
	defer unlock()

	return fn(s.newTx(ctx, modes))
}

// Update runs fn holding exclusive locks on the written documents and shared
// locks on the read ones. Documents staged with Save are committed together
// after fn returns nil; if fn fails nothing is written.
func (s *Store) Update(ctx context.Context, a Access, fn func(tx *Tx) error) error {
	modes, err := s.modes(a)
	if err != nil {
		return err
	}
	unlock := s.lock(modes)
	defer unlock()

	tx := s.newTx(ctx, modes)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.commit()
}

func (s *Store) modes(a Access) (map[Document]bool, error) {
	modes := make(map[Document]bool, len(a.Read)+len(a.Write))
	for _, d := range a.Read {
		if _, ok := s.locks[d]; !ok {
			return nil, fmt.Errorf("store: unknown document %q", d)
		}
		if _, seen := modes[d]; !seen {
			modes[d] = false
		}
	}
	for _, d := range a.Write {
		if _, ok := s.locks[d]; !ok {
			return nil, fmt.Errorf("store: unknown document %q", d)
		}
		modes[d] = true
	}
	return modes, nil
}

func (s *Store) lock(modes map[Document]bool) func() {
	taken := make([]func(), 0, len(modes))
	for _, d := range lockOrder {
		write, ok := modes[d]
		if !ok {
			continue
		}
		mu := s.locks[d]
		if write {
			mu.Lock()
			taken = append(taken, mu.Unlock)
		} else {
			mu.RLock()
			taken = append(taken, mu.RUnlock)
		}
	}
	return func() {
		for i := len(taken) - 1; i >= 0; i-- {
			taken[i]()
		}
	}
}

func (s *Store) newTx(ctx context.Context, modes map[Document]bool) *Tx {
	return &Tx{
		ctx:      ctx,
		store:    s,
		modes:    modes,
		raw:      map[Document][]byte{},
		degraded: map[Document]error{},
		staged:   map[Document][]byte{},
	}
}

func (tx *Tx) commit() error {
	if len(tx.staged) == 0 {
		return nil
	}
	for d := range tx.staged {
		if cause, bad := tx.degraded[d]; bad {
			metrics.DocumentCommits.WithLabelValues("error").Inc()
			tx.store.log.Error("refusing to overwrite unreadable document", "document", d, "err", cause)
			return models.Storage("%s data is unreadable; refusing to overwrite it", d)
		}
	}
	if err := tx.ctx.Err(); err != nil {
		return err
	}
	docs := make(map[string][]byte, len(tx.staged))
	for d, data := range tx.staged {
		docs[string(d)] = data
	}
	if err := tx.store.backend.Commit(tx.ctx, docs); err != nil {
		metrics.DocumentCommits.WithLabelValues("error").Inc()
		return fmt.Errorf("commit %d document(s): %w", len(docs), err)
	}
	metrics.DocumentCommits.WithLabelValues("ok").Inc()
	return nil
}
