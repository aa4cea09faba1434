package api

import (
	"testing"

	"github.com/gcbaptista/go-vsr-engine/config"
	"github.com/gcbaptista/go-vsr-engine/model"
)

func TestValidationResult_AddError(t *testing.T) {
	result := &ValidationResult{Valid: true}

	result.AddError("field1", "error message")

	if result.Valid {
		t.Error("Expected Valid to be false after adding error")
	}

	if len(result.Errors) != 1 {
		t.Fatalf("Expected 1 error, got %d", len(result.Errors))
	}

	if result.Errors[0].Field != "field1" {
		t.Errorf("Expected field 'field1', got '%s'", result.Errors[0].Field)
	}

	if result.Errors[0].Message != "error message" {
		t.Errorf("Expected message 'error message', got '%s'", result.Errors[0].Message)
	}
}

func TestValidationResult_HasErrors(t *testing.T) {
	result := &ValidationResult{Valid: true}

	if result.HasErrors() {
		t.Error("Expected HasErrors to be false for empty result")
	}

	result.AddError("field", "message")

	if !result.HasErrors() {
		t.Error("Expected HasErrors to be true after adding error")
	}
}

func TestValidateIndexName(t *testing.T) {
	tests := []struct {
		name      string
		indexName string
		wantValid bool
		wantError string
	}{
		{
			name:      "valid index name",
			indexName: "test-index",
			wantValid: true,
		},
		{
			name:      "empty index name",
			indexName: "",
			wantValid: false,
			wantError: "Index name is required",
		},
		{
			name:      "index name with leading whitespace",
			indexName: " test-index",
			wantValid: false,
			wantError: "Index name cannot have leading or trailing whitespace",
		},
		{
			name:      "index name with trailing whitespace",
			indexName: "test-index ",
			wantValid: false,
			wantError: "Index name cannot have leading or trailing whitespace",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateIndexName(tt.indexName)

			if result.HasErrors() == tt.wantValid {
				t.Fatalf("Expected valid=%v, got errors %+v", tt.wantValid, result.Errors)
			}
			if tt.wantError != "" && result.Errors[0].Message != tt.wantError {
				t.Errorf("Expected error '%s', got '%s'", tt.wantError, result.Errors[0].Message)
			}
		})
	}
}

func TestValidateDocumentID(t *testing.T) {
	tests := []struct {
		name       string
		documentID string
		wantValid  bool
	}{
		{name: "valid document ID", documentID: "docs/a.txt", wantValid: true},
		{name: "empty document ID", documentID: "", wantValid: false},
		{name: "padded document ID", documentID: " doc1", wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocumentID(tt.documentID)
			if result.HasErrors() == tt.wantValid {
				t.Errorf("Expected valid=%v, got errors %+v", tt.wantValid, result.Errors)
			}
		})
	}
}

func TestValidateIndexSettings(t *testing.T) {
	tests := []struct {
		name       string
		settings   *config.IndexSettings
		wantErrors int
	}{
		{
			name:       "nil settings",
			settings:   nil,
			wantErrors: 1,
		},
		{
			name:       "missing name",
			settings:   &config.IndexSettings{},
			wantErrors: 1,
		},
		{
			name:       "valid settings",
			settings:   &config.IndexSettings{Name: "docs", Includes: []string{"**/*.txt"}},
			wantErrors: 0,
		},
		{
			name: "every problem is reported",
			settings: &config.IndexSettings{
				Name:          "docs",
				ContextWindow: -1,
				Excludes:      []string{"[", "[", ""},
			},
			wantErrors: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateIndexSettings(tt.settings)
			if len(result.Errors) != tt.wantErrors {
				t.Errorf("Expected %d errors, got %d: %+v", tt.wantErrors, len(result.Errors), result.Errors)
			}
		})
	}
}

func TestValidateDocuments(t *testing.T) {
	tests := []struct {
		name       string
		docs       []model.RawDocument
		wantErrors int
		wantField  string
	}{
		{
			name:       "no documents",
			docs:       nil,
			wantErrors: 1,
			wantField:  "documents",
		},
		{
			name:       "valid batch",
			docs:       []model.RawDocument{{ID: "a", Text: "x"}, {ID: "b"}},
			wantErrors: 0,
		},
		{
			name:       "blank ID",
			docs:       []model.RawDocument{{ID: "a"}, {ID: "  "}},
			wantErrors: 1,
			wantField:  "documents[1].id",
		},
		{
			name:       "repeated ID",
			docs:       []model.RawDocument{{ID: "a"}, {ID: "b"}, {ID: "a"}},
			wantErrors: 1,
			wantField:  "documents[2].id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateDocuments(tt.docs)
			if len(result.Errors) != tt.wantErrors {
				t.Fatalf("Expected %d errors, got %+v", tt.wantErrors, result.Errors)
			}
			if tt.wantField != "" && result.Errors[0].Field != tt.wantField {
				t.Errorf("Expected field '%s', got '%s'", tt.wantField, result.Errors[0].Field)
			}
		})
	}
}

func TestValidatePaginationAndWindow(t *testing.T) {
	if result := ValidatePagination(0, 0); result.HasErrors() {
		t.Errorf("Expected zero pagination to be left for defaults, got %+v", result.Errors)
	}
	if result := ValidatePagination(-1, -5); len(result.Errors) != 2 {
		t.Errorf("Expected 2 pagination errors, got %+v", result.Errors)
	}

	negative, zero := -1, 0
	if result := ValidateWindow(nil); result.HasErrors() {
		t.Error("Expected missing window to be valid")
	}
	if result := ValidateWindow(&zero); result.HasErrors() {
		t.Error("Expected zero window to be valid")
	}
	if result := ValidateWindow(&negative); !result.HasErrors() {
		t.Error("Expected negative window to be rejected")
	}
}
