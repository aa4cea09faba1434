// Package config provides configuration structures for the retrieval engine.
// It defines per-index settings and the service configuration.
package config

import (
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	DefaultContextWindow   = 5
	DefaultPageSize        = 10
	DefaultMaxPageSize     = 100
	DefaultIncludePattern  = "**/*"
	maxContextWindowLength = 50
)

// IndexSettings contains all configuration options for a retrieval index.
//
// Includes and Excludes are doublestar patterns matched against paths relative to
// the directory being loaded. A file is loaded when it matches at least one include
// and no exclude.
type IndexSettings struct {
	Name            string   `json:"name"`              // Unique name for the index
	ContextWindow   int      `json:"context_window"`    // Terms shown on each side of a phrase match (e.g., 5)
	DefaultPageSize int      `json:"default_page_size"` // Ranked results per page when the request does not say
	MaxPageSize     int      `json:"max_page_size"`     // Upper bound for a requested page size
	AutoBuild       bool     `json:"auto_build"`        // Rebuild the index after every document batch
	Includes        []string `json:"includes"`          // Glob patterns of files to load (e.g., ["**/*.txt"])
	Excludes        []string `json:"excludes"`          // Glob patterns of files to skip (e.g., ["**/.git/**"])
}

// Validate checks the settings for values that cannot be used and returns one
// message per problem.
func (settings *IndexSettings) Validate() []string {
	var problems []string

	if strings.TrimSpace(settings.Name) == "" {
		problems = append(problems, "Index name cannot be empty or whitespace-only")
	}
	if settings.ContextWindow < 0 || settings.ContextWindow > maxContextWindowLength {
		problems = append(problems, "context_window must be between 0 and "+strconv.Itoa(maxContextWindowLength))
	}
	if settings.DefaultPageSize < 0 {
		problems = append(problems, "default_page_size cannot be negative")
	}
	if settings.MaxPageSize < 0 {
		problems = append(problems, "max_page_size cannot be negative")
	}
	if settings.MaxPageSize > 0 && settings.DefaultPageSize > settings.MaxPageSize {
		problems = append(problems, "default_page_size cannot be larger than max_page_size")
	}

	problems = append(problems, checkPatterns("includes", settings.Includes)...)
	problems = append(problems, checkPatterns("excludes", settings.Excludes)...)

	return problems
}

// checkPatterns reports duplicate and malformed glob patterns
func checkPatterns(fieldName string, patterns []string) []string {
	var errors []string
	seen := make(map[string]bool)

	for _, pattern := range patterns {
		if strings.TrimSpace(pattern) == "" {
			errors = append(errors, "Pattern in "+fieldName+" cannot be empty")
			continue
		}
		if seen[pattern] {
			errors = append(errors, "Duplicate pattern '"+pattern+"' found in "+fieldName)
		}
		seen[pattern] = true
		if !doublestar.ValidatePattern(pattern) {
			errors = append(errors, "Invalid pattern '"+pattern+"' in "+fieldName)
		}
	}

	return errors
}

// ApplyDefaults applies default values to the index settings
func (settings *IndexSettings) ApplyDefaults() {
	if settings.ContextWindow == 0 {
		settings.ContextWindow = DefaultContextWindow
	}
	if settings.MaxPageSize == 0 {
		settings.MaxPageSize = DefaultMaxPageSize
	}
	if settings.DefaultPageSize == 0 {
		settings.DefaultPageSize = DefaultPageSize
	}
	if settings.DefaultPageSize > settings.MaxPageSize {
		settings.DefaultPageSize = settings.MaxPageSize
	}

	// Initialize empty slices if nil to prevent nil pointer issues
	if len(settings.Includes) == 0 {
		settings.Includes = []string{DefaultIncludePattern}
	}
	if settings.Excludes == nil {
		settings.Excludes = []string{}
	}
}

// PageSize returns the effective page size for a requested size.
func (settings *IndexSettings) PageSize(requested int) int {
	if requested <= 0 {
		return settings.DefaultPageSize
	}
	if settings.MaxPageSize > 0 && requested > settings.MaxPageSize {
		return settings.MaxPageSize
	}
	return requested
}
