package ml

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder is a Model whose underlying artifact can be replaced atomically.
// Readers never block and never observe a half-loaded artifact.
type Holder struct {
	current atomic.Pointer[modelBox]
}

type modelBox struct{ model Model }

// NewHolder returns a Holder serving model.
func NewHolder(model Model) *Holder {
	h := &Holder{}
	h.Store(model)
	return h
}

// Store swaps in model for all subsequent calls.
func (h *Holder) Store(model Model) {
	h.current.Store(&modelBox{model: model})
}

// Load returns the current model, or nil if none was stored.
func (h *Holder) Load() Model {
	box := h.current.Load()
	if box == nil {
		return nil
	}
	return box.model
}

func (h *Holder) FeatureNames() []string {
	m := h.Load()
	if m == nil {
		return nil
	}
	return m.FeatureNames()
}

func (h *Holder) Predict(features []float64) (float64, error) {
	m := h.Load()
	if m == nil {
		return 0, errors.New("model not loaded")
	}
	return m.Predict(features)
}

// Reload builds a fresh model and swaps it in only if it matches schema.
func (h *Holder) Reload(build func() (Model, error), schema Schema) error {
	model, err := build()
	if err != nil {
		return err
	}
	if err := schema.Validate(model.FeatureNames()); err != nil {
		return fmt.Errorf("reloaded model does not match feature schema: %w", err)
	}
	h.Store(model)
	return nil
}

// Watch reloads the holder whenever the artifact at path is written or
// replaced. A failed reload keeps the previous model. Watch blocks until ctx
// is done.
func (h *Holder) Watch(ctx context.Context, path string, build func() (Model, error), schema Schema, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors and deploy tools replace the file by rename.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	logger.Info("watching model artifact", zap.String("path", target))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := h.Reload(build, schema); err != nil {
				logger.Warn("model reload failed, keeping previous artifact", zap.String("path", target), zap.Error(err))
				continue
			}
			logger.Info("model artifact reloaded", zap.String("path", target))
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("model watcher error", zap.Error(err))
		}
	}
}
