package engine

import (
	"fmt"
	"strings"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/internal/errors"
)

// UpdateIndexSettings replaces the query-time settings of an index and persists them.
// Settings never change how documents are indexed, so no rebuild is needed; the
// new context window and page sizes apply to the next query.
func (e *Engine) UpdateIndexSettings(name string, newSettings config.IndexSettings) error {
	instance, err := e.instance(name)
	if err != nil {
		return err
	}

	if newSettings.Name != "" && newSettings.Name != name {
		return errors.NewValidationError("name",
			fmt.Sprintf("cannot change index name from '%s' to '%s' during settings update", name, newSettings.Name))
	}
	newSettings.Name = name

	if problems := newSettings.Validate(); len(problems) > 0 {
		return errors.NewValidationError("settings", strings.Join(problems, "; "))
	}
	newSettings.ApplyDefaults()

	if err := e.sources.SaveSettings(newSettings); err != nil {
		return fmt.Errorf("failed to save updated settings for index '%s': %w", name, err)
	}
	if err := instance.setSettings(newSettings); err != nil {
		return fmt.Errorf("failed to update search service with new settings for '%s': %w", name, err)
	}

	e.logger.Info("index settings updated", "index", name)
	return nil
}
