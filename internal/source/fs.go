package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/askdocs/askdocs/internal/domain"
)

// FS serves documents from a directory tree. Document ids are paths
// relative to the root; names are the file base names.
type FS struct {
	root string
}

func NewFS(root string) *FS {
	return &FS{root: root}
}

func (f *FS) Fetch(ctx context.Context, id string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := f.resolve(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	return &domain.Document{
		ID:      id,
		Name:    filepath.Base(path),
		Content: string(data),
	}, nil
}

func (f *FS) List(ctx context.Context) ([]domain.DocumentRef, error) {
	var refs []domain.DocumentRef
	err := filepath.WalkDir(f.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(f.root, path)
		if err != nil {
			return err
		}
		refs = append(refs, domain.DocumentRef{
			ID:   filepath.ToSlash(rel),
			Name: d.Name(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	return refs, nil
}

// resolve maps a document id to a path under the root, rejecting ids that
// escape it.
func (f *FS) resolve(id string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(id))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", domain.ErrDocumentNotFound
	}
	return filepath.Join(f.root, clean), nil
}
