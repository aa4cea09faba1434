package errors

import (
	"errors"
	"io"
	"testing"
)

func TestIndexNotFoundError(t *testing.T) {
	err := NewIndexNotFoundError("test-index")

	expectedMsg := "index named 'test-index' not found"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrIndexNotFound) {
		t.Error("Expected error to match ErrIndexNotFound sentinel")
	}

	if errors.Is(err, ErrDocumentNotFound) {
		t.Error("Error should not match ErrDocumentNotFound")
	}
}

func TestIndexAlreadyExistsError(t *testing.T) {
	err := NewIndexAlreadyExistsError("existing-index")

	expectedMsg := "index named 'existing-index' already exists"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}

	if !errors.Is(err, ErrIndexAlreadyExists) {
		t.Error("Expected error to match ErrIndexAlreadyExists sentinel")
	}
}

func TestDocumentNotFoundError(t *testing.T) {
	err := NewDocumentNotFoundError("doc123")
	if err.Error() != "document with ID 'doc123' not found" {
		t.Errorf("Unexpected error message '%s'", err.Error())
	}

	err2 := NewDocumentNotFoundError("doc123", "reuters")
	if err2.Error() != "document with ID 'doc123' not found in index 'reuters'" {
		t.Errorf("Unexpected error message '%s'", err2.Error())
	}

	if !errors.Is(err, ErrDocumentNotFound) || !errors.Is(err2, ErrDocumentNotFound) {
		t.Error("Expected errors to match ErrDocumentNotFound sentinel")
	}
}

func TestDuplicateDocumentError(t *testing.T) {
	err := NewDuplicateDocumentError("Reut_259.txt")

	expectedMsg := "document with ID 'Reut_259.txt' already exists in corpus"
	if err.Error() != expectedMsg {
		t.Errorf("Expected error message '%s', got '%s'", expectedMsg, err.Error())
	}
	if !errors.Is(err, ErrDocumentExists) {
		t.Error("Expected error to match ErrDocumentExists sentinel")
	}
}

func TestDocumentReadError(t *testing.T) {
	err := NewDocumentReadError("broken.txt", io.ErrUnexpectedEOF)

	if !errors.Is(err, ErrDocumentRead) {
		t.Error("Expected error to match ErrDocumentRead sentinel")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("Expected error to unwrap to the underlying I/O error")
	}
}

func TestJobNotFoundError(t *testing.T) {
	err := NewJobNotFoundError("job-456")

	if err.Error() != "job with ID 'job-456' not found" {
		t.Errorf("Unexpected error message '%s'", err.Error())
	}
	if !errors.Is(err, ErrJobNotFound) {
		t.Error("Expected error to match ErrJobNotFound sentinel")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("name", "cannot be empty")
	if err.Error() != "validation error for field 'name': cannot be empty" {
		t.Errorf("Unexpected error message '%s'", err.Error())
	}

	err2 := NewValidationError("", "cannot be empty")
	if err2.Error() != "validation error: cannot be empty" {
		t.Errorf("Unexpected error message '%s'", err2.Error())
	}

	if !errors.Is(err, ErrInvalidInput) || !errors.Is(err2, ErrInvalidInput) {
		t.Error("Expected errors to match ErrInvalidInput sentinel")
	}
}

func TestErrorChaining(t *testing.T) {
	originalErr := NewIndexNotFoundError("test-index")
	wrappedErr := errors.Join(originalErr, errors.New("additional context"))

	if !errors.Is(wrappedErr, ErrIndexNotFound) {
		t.Error("Expected wrapped error to still match ErrIndexNotFound sentinel")
	}

	var indexErr *IndexNotFoundError
	if !errors.As(wrappedErr, &indexErr) {
		t.Fatal("Expected to be able to unwrap to IndexNotFoundError")
	}
	if indexErr.IndexName != "test-index" {
		t.Errorf("Expected index name 'test-index', got '%s'", indexErr.IndexName)
	}
}
