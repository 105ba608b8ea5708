package storage

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/useandsell/marketplace/internal/images"
)

// Disk stores uploaded files under <root>/products and hands out
// server-relative /uploads/products/<name> references.
type Disk struct {
	Root string
}

func NewDisk(root string) (*Disk, error) {
	if err := os.MkdirAll(filepath.Join(root, "products"), 0o755); err != nil {
		return nil, fmt.Errorf("create uploads dir: %w", err)
	}
	return &Disk{Root: root}, nil
}

func (d *Disk) UploadAll(ctx context.Context, files []*multipart.FileHeader) ([]string, error) {
	refs := make([]string, 0, len(files))
	saved := make([]string, 0, len(files))

	for _, fh := range files {
		if err := ctx.Err(); err != nil {
			d.removeAll(saved)
			return nil, err
		}
		name := uuid.NewString() + filepath.Ext(fh.Filename)
		if err := d.save(fh, name); err != nil {
			d.removeAll(saved)
			return nil, err
		}
		saved = append(saved, name)
		refs = append(refs, images.ProductsPrefix+name)
	}

	return refs, nil
}

// Remove deletes the local file a stored reference points at. Absolute URLs
// are not local files and report os.ErrNotExist.
func (d *Disk) Remove(ref string) error {
	name, ok := images.LocalFilename(ref)
	if !ok {
		return os.ErrNotExist
	}
	return os.Remove(d.path(name))
}

func (d *Disk) save(fh *multipart.FileHeader, name string) error {
	src, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload %q: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.Create(d.path(name))
	if err != nil {
		return fmt.Errorf("create %q: %w", name, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write %q: %w", name, err)
	}
	return nil
}

func (d *Disk) path(name string) string {
	return filepath.Join(d.Root, "products", name)
}

func (d *Disk) removeAll(names []string) {
	for _, name := range names {
		_ = os.Remove(d.path(name))
	}
}
