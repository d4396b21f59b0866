package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"airdate/internal/config"
	"airdate/internal/services"
)

// Source describes a resolved local media file ready for upload.
type Source struct {
	Path     string
	Size     int64
	MIMEType string
}

// Resolver maps an opaque media reference onto a readable local file.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (*Source, error)
}

// FileResolver resolves media references against the configured library
// directory. Absolute references are accepted as-is; relative references are
// joined under the library root and may not escape it.
type FileResolver struct {
	root string
}

// NewFileResolver builds a resolver rooted at the config library directory.
func NewFileResolver(cfg *config.Config) *FileResolver {
	return &FileResolver{root: cfg.Paths.LibraryDir}
}

const component = "media"

// Resolve validates a media reference and returns the backing file metadata.
// Missing or unreadable files yield a validation error so callers can mark
// the owning job failed instead of retrying forever.
func (r *FileResolver) Resolve(ctx context.Context, ref string) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, services.Wrap(services.ErrValidation, component, "resolve", "media reference is empty", nil)
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.root, ref)
		rel, err := filepath.Rel(r.root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return nil, services.Wrap(services.ErrValidation, component, "resolve",
				fmt.Sprintf("media reference %q escapes the library directory", ref), nil)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, services.Wrap(services.ErrNotFound, component, "resolve",
				fmt.Sprintf("media file %q does not exist", path), err)
		}
		return nil, services.Wrap(services.ErrValidation, component, "resolve",
			fmt.Sprintf("media file %q is not readable", path), err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, component, "resolve",
			fmt.Sprintf("media reference %q is a directory", path), nil)
	}
	if info.Size() == 0 {
		return nil, services.Wrap(services.ErrValidation, component, "resolve",
			fmt.Sprintf("media file %q is empty", path), nil)
	}

	return &Source{
		Path:     path,
		Size:     info.Size(),
		MIMEType: detectMIME(path),
	}, nil
}

func detectMIME(path string) string {
	if typ := mime.TypeByExtension(filepath.Ext(path)); typ != "" {
		return typ
	}
	return "application/octet-stream"
}
