package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/errors"
	"github.com/gcbaptista/go-vsr-engine/services"
)

// CreateIndex creates a new, empty index with the given settings and persists them.
func (e *Engine) CreateIndex(settings config.IndexSettings) error {
	if problems := settings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[settings.Name]; exists {
		return errors.NewIndexAlreadyExistsError(settings.Name)
	}

	instance, err := NewIndexInstance(settings, e.sources, e.cache, e.metrics)
	if err != nil {
		return fmt.Errorf("failed to create new index instance for '%s': %w", settings.Name, err)
	}

	if err := e.sources.SaveSettings(instance.Settings()); err != nil {
		return fmt.Errorf("failed to persist new index '%s': %w", settings.Name, err)
	}

	e.indexes[settings.Name] = instance
	e.logger.Info("index created", "index", settings.Name)
	return nil
}

// GetIndex retrieves an index by its name.
func (e *Engine) GetIndex(name string) (services.IndexAccessor, error) {
	return e.instance(name)
}

func (e *Engine) instance(name string) (*IndexInstance, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	instance, exists := e.indexes[name]
	if !exists {
		return nil, errors.NewIndexNotFoundError(name)
	}
	return instance, nil
}

// GetIndexSettings retrieves the settings for a specific index.
func (e *Engine) GetIndexSettings(name string) (config.IndexSettings, error) {
	instance, err := e.instance(name)
	if err != nil {
		return config.IndexSettings{}, err
	}
	return instance.Settings(), nil
}

// DeleteIndex deletes an index, its stored documents and its cached results.
func (e *Engine) DeleteIndex(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.indexes[name]; !exists {
		return errors.NewIndexNotFoundError(name)
	}

	if err := e.sources.DeleteIndex(name); err != nil {
		return fmt.Errorf("failed to remove stored documents of index '%s': %w", name, err)
	}
	delete(e.indexes, name)

	if e.cache != nil {
		if err := e.cache.InvalidateIndex(context.Background(), name); err != nil {
			e.logger.Warn("cache invalidation failed", "index", name, "error", err)
		}
	}
	if e.metrics != nil {
		e.metrics.ForgetIndex(name)
	}

	e.logger.Info("index deleted", "index", name)
	return nil
}
