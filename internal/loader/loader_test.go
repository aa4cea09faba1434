package loader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestWalk_Patterns(t *testing.T) {
	root := writeTree(t, map[string]string{
		"Reut_2.txt":        "b",
		"Reut_1.txt":        "a",
		"nested/Reut_3.txt": "c",
		"notes.md":          "d",
		".git/HEAD":         "ref",
	})

	tests := []struct {
		name     string
		includes []string
		excludes []string
		expected []string
	}{
		{
			name:     "everything",
			expected: []string{".git/HEAD", "Reut_1.txt", "Reut_2.txt", "nested/Reut_3.txt", "notes.md"},
		},
		{
			name:     "text files only",
			includes: []string{"**/*.txt"},
			expected: []string{"Reut_1.txt", "Reut_2.txt", "nested/Reut_3.txt"},
		},
		{
			name:     "excluded directory is skipped",
			excludes: []string{".git/**", "nested/**"},
			expected: []string{"Reut_1.txt", "Reut_2.txt", "notes.md"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := New(tt.includes, tt.excludes, 2).Walk(root)
			require.NoError(t, err)

			ids := make([]string, 0, len(files))
			for _, f := range files {
				ids = append(ids, f.ID)
				assert.True(t, filepath.IsAbs(f.Path))
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestWalk_NotADirectory(t *testing.T) {
	root := writeTree(t, map[string]string{"file.txt": "x"})

	_, err := New(nil, nil, 1).Walk(filepath.Join(root, "file.txt"))
	assert.Error(t, err)

	_, err = New(nil, nil, 1).Walk(filepath.Join(root, "missing"))
	assert.Error(t, err)
}

func TestLoad_DeterministicOrderAndProgress(t *testing.T) {
	files := make(map[string]string)
	for _, name := range []string{"e", "a", "d", "c", "b", "f", "h", "g"} {
		files[name+".txt"] = "content of " + name
	}
	root := writeTree(t, files)

	var mu sync.Mutex
	calls := 0
	lastTotal := 0
	docs, err := New([]string{"*.txt"}, nil, 4).Load(context.Background(), root, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		lastTotal = total
	})
	require.NoError(t, err)

	require.Len(t, docs, 8)
	for i, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		assert.Equal(t, name+".txt", docs[i].ID)
		assert.Equal(t, "content of "+name, docs[i].Text)
	}
	assert.Equal(t, 8, calls)
	assert.Equal(t, 8, lastTotal)
}

func TestLoad_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(nil, nil, 1).Load(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadNew_SkipsKnownFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":     "a",
		"b.txt":     "b",
		"sub/c.txt": "c",
	})
	known := map[string]bool{"a.txt": true, "sub/c.txt": true}

	var mu sync.Mutex
	var totals []int
	docs, err := New(nil, nil, 2).LoadNew(context.Background(), root, func(id string) bool { return known[id] }, func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		totals = append(totals, total)
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b.txt", docs[0].ID)
	assert.Equal(t, []int{1}, totals, "progress counts only the files read")
}

func TestLoad_HTML(t *testing.T) {
	root := writeTree(t, map[string]string{
		"page.html": `<html><head><title>Rain Report</title><style>.x { color: red }</style></head>
<body><p>November rain</p><script>var ignored = 1;</script><p>fell &amp; stopped</p></body></html>`,
	})

	docs, err := New(nil, nil, 1).Load(context.Background(), root, nil)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	lines := strings.Split(docs[0].Text, "\n")
	assert.Equal(t, []string{"Rain Report", "November rain", "fell & stopped"}, lines)
	assert.NotContains(t, docs[0].Text, "ignored")
	assert.NotContains(t, docs[0].Text, "color")
}

func TestIsHTML(t *testing.T) {
	assert.True(t, IsHTML("index.HTML"))
	assert.True(t, IsHTML("text/html; charset=utf-8"))
	assert.False(t, IsHTML("Reut_1.txt"))
	assert.False(t, IsHTML("text/plain"))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "bold and plain", SanitizeText("  <b>bold</b>\tand   plain "))
	assert.Equal(t, "", SanitizeText("<br/>"))
}
