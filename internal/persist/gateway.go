// Package persist loads the packing document from durable storage at
// startup and writes it back after every change.
package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/erazemk/trailpack/internal/model"
	"github.com/erazemk/trailpack/internal/state"
)

// StorageKey is the fixed key of the durable record.
const StorageKey = "hiking_packer_data"

// saveTimeout bounds a single write issued from the notification path.
const saveTimeout = 5 * time.Second

// Backend reads and writes raw records. Read returns nil data when the
// record does not exist.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
}

// Gateway is the only reader and writer of the durable record.
type Gateway struct {
	backend Backend
	key     string
	logger  *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// NewGateway creates a gateway over backend using StorageKey.
func NewGateway(backend Backend, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{backend: backend, key: StorageKey, logger: logger}
}

// Load returns the stored document, or the starter document when the
// record is missing or unreadable. It never fails.
func (g *Gateway) Load(ctx context.Context) model.Document {
	doc, err := g.load(ctx)
	if err != nil {
		g.logger.Warn("failed to load state, using defaults", "key", g.key, "error", err)
		doc = model.DefaultDocument()
	}
	doc.Normalize()
	return doc
}

func (g *Gateway) load(ctx context.Context) (model.Document, error) {
	data, err := g.backend.Read(ctx, g.key)
	if err != nil {
		return model.Document{}, fmt.Errorf("reading record: %w", err)
	}
	if data == nil {
		g.logger.Info("no saved state, using defaults", "key", g.key)
		return model.DefaultDocument(), nil
	}
	if trimmed := bytes.TrimSpace(data); len(trimmed) == 0 || trimmed[0] != '{' {
		return model.Document{}, fmt.Errorf("record is not a JSON object")
	}

	var doc model.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return model.Document{}, fmt.Errorf("parsing record: %w", err)
	}
	return doc, nil
}

// Save writes a sanitized copy of doc. Failures are logged and remembered
// but never returned, so a failing disk cannot break the notification path.
func (g *Gateway) Save(ctx context.Context, doc model.Document) {
	err := g.save(ctx, doc)
	if err != nil {
		g.logger.Error("failed to save state", "key", g.key, "error", err)
	}
	g.mu.Lock()
	g.lastErr = err
	g.mu.Unlock()
}

func (g *Gateway) save(ctx context.Context, doc model.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while saving: %v", r)
		}
	}()

	data, err := json.Marshal(sanitize(doc))
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := g.backend.Write(ctx, g.key, data); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}

// LastSaveError returns the error from the most recent save, if any.
func (g *Gateway) LastSaveError() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Attach subscribes the gateway to s so every notification saves the
// current document.
func (g *Gateway) Attach(s *state.Store) state.SubscriptionID {
	return s.Subscribe(func() {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		g.Save(ctx, s.Document())
	})
}

// sanitize drops any session-only key that found its way into the
// document's unknown-key overlay.
func sanitize(doc model.Document) model.Document {
	if len(doc.Extra) == 0 {
		return doc
	}
	extra := make(map[string]json.RawMessage, len(doc.Extra))
	for k, v := range doc.Extra {
		if model.IsTransientKey(k) {
			continue
		}
		extra[k] = v
	}
	doc.Extra = extra
	return doc
}
