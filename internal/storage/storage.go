package storage

import (
	"context"
	"mime/multipart"
)

// Store persists uploaded image files and returns one reference per file, in
// input order. A batch is all-or-nothing: the first failing upload aborts the
// whole call and no partial result is reported.
type Store interface {
	UploadAll(ctx context.Context, files []*multipart.FileHeader) ([]string, error)
}
