package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/askdocs/askdocs/internal/domain"
)

func newTestFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()

	writeFile(t, dir, "notes.txt", "Some notes about the project.")
	writeFile(t, dir, filepath.Join("sub", "readme.md"), "Nested documentation.")
	writeFile(t, dir, ".hidden", "should be skipped")

	return NewFS(dir), dir
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestFS_Fetch(t *testing.T) {
	fs, _ := newTestFS(t)

	doc, err := fs.Fetch(context.Background(), "notes.txt")

	assert.NoError(t, err)
	assert.Equal(t, "notes.txt", doc.ID)
	assert.Equal(t, "notes.txt", doc.Name)
	assert.Equal(t, "Some notes about the project.", doc.Content)
}

func TestFS_FetchNested(t *testing.T) {
	fs, _ := newTestFS(t)

	doc, err := fs.Fetch(context.Background(), "sub/readme.md")

	assert.NoError(t, err)
	assert.Equal(t, "readme.md", doc.Name)
}

func TestFS_FetchMissing(t *testing.T) {
	fs, _ := newTestFS(t)

	_, err := fs.Fetch(context.Background(), "nope.txt")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestFS_FetchRejectsEscapes(t *testing.T) {
	fs, _ := newTestFS(t)

	_, err := fs.Fetch(context.Background(), "../outside.txt")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)

	_, err = fs.Fetch(context.Background(), "/etc/passwd")
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

func TestFS_List(t *testing.T) {
	fs, _ := newTestFS(t)

	refs, err := fs.List(context.Background())

	assert.NoError(t, err)
	assert.Len(t, refs, 2)

	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	assert.Contains(t, ids, "notes.txt")
	assert.Contains(t, ids, "sub/readme.md")
}
