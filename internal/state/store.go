// Package state holds the live packing document, notifies subscribers after
// every write and keeps the undo/redo history.
package state

import (
	"log/slog"
	"sync"

	"github.com/erazemk/trailpack/internal/model"
)

// SubscriptionID identifies a registered subscriber.
type SubscriptionID int

type subscription struct {
	id SubscriptionID
	fn func()
}

// Store owns the document and the session overlay. Every write, whether a
// typed Update or a path Set, is followed by exactly one synchronous
// notification pass before the call returns.
//
// Subscribers must not write to the store from inside their callback.
type Store struct {
	// writeMu serializes a write together with its notification pass so
	// notifications are delivered in call order.
	writeMu sync.Mutex

	mu      sync.RWMutex
	doc     model.Document
	session model.Session

	subMu   sync.Mutex
	subs    []subscription
	nextSub SubscriptionID

	logger *slog.Logger
}

// New creates a store around doc. A nil logger uses slog.Default().
func New(doc model.Document, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{doc: doc, logger: logger}
}

// Document returns a deep copy of the current document.
func (s *Store) Document() model.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc.Clone()
}

// Session returns a deep copy of the current session overlay.
func (s *Store) Session() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.Clone()
}

// Update applies fn to the live document and notifies once.
func (s *Store) Update(fn func(doc *model.Document)) {
	s.write(func() error {
		fn(&s.doc)
		return nil
	})
}

// UpdateSession applies fn to the session overlay and notifies once.
func (s *Store) UpdateSession(fn func(sess *model.Session)) {
	s.write(func() error {
		fn(&s.session)
		return nil
	})
}

// Subscribe registers fn to run after every committed write.
func (s *Store) Subscribe(fn func()) SubscriptionID {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.nextSub++
	s.subs = append(s.subs, subscription{id: s.nextSub, fn: fn})
	return s.nextSub
}

// Unsubscribe removes a subscriber. Unknown ids are ignored.
func (s *Store) Unsubscribe(id SubscriptionID) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// write runs fn under the data lock and, if it succeeds, notifies.
func (s *Store) write(fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	err := fn()
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.notify()
	return nil
}

func (s *Store) notify() {
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		s.call(sub)
	}
}

// call shields the write path from a panicking subscriber.
func (s *Store) call(sub subscription) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("subscriber panicked", "subscription", int(sub.id), "panic", r)
		}
	}()
	sub.fn()
}
