// package testing contains shared testing utilities
package testing

import (
	"context"
	"os"
	"testing"

	"github.com/harmonia-app/harmonia/internal/models"
	"github.com/harmonia-app/harmonia/internal/sources"
)

// MockExtractor is a test double for [sources.Extractor] with configurable
// source, login state, and search results.
type MockExtractor struct {
	sources.Unimplemented
	Src     models.Source
	Status  sources.AuthStatus
	Results *sources.SearchResult
	Err     error
}

func (m *MockExtractor) Source() models.Source {
	return m.Src
}

func (m *MockExtractor) LoginStatus(context.Context) (sources.AuthStatus, error) {
	return m.Status, nil
}

func (m *MockExtractor) Search(context.Context, string) (*sources.SearchResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Results != nil {
		return m.Results, nil
	}
	return &sources.SearchResult{}, nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustWriteFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}
