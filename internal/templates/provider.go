// Package templates resolves the external fillable template for a form type.
// Templates are third-party artifacts dropped into a directory; a missing
// file means the form type is unsupported by this deployment, not a crash.
package templates

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// UnavailableError indicates the template bytes for a form type could not be
// read. The single-document filler treats it as form-type-unsupported; the
// compiler treats it as "skip this submission".
type UnavailableError struct {
	FormType string
	Path     string
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("template for form type %q unavailable (%s): %v", e.FormType, e.Path, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Provider loads template bytes from a directory.
type Provider struct {
	dir     string
	maxSize int64
}

// NewProvider returns a provider rooted at dir, rejecting templates larger
// than maxSize bytes.
func NewProvider(dir string, maxSize int64) *Provider {
	return &Provider{dir: dir, maxSize: maxSize}
}

// Load reads the raw bytes of the named template file for formType. A
// cancelled context aborts the read before any file access.
func (p *Provider) Load(ctx context.Context, formType, templateFile string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, &UnavailableError{FormType: formType, Path: templateFile, Err: err}
	}

	path := filepath.Join(p.dir, filepath.Base(templateFile))

	info, err := os.Stat(path)
	if err != nil {
		return nil, &UnavailableError{FormType: formType, Path: path, Err: err}
	}
	if p.maxSize > 0 && info.Size() > p.maxSize {
		return nil, &UnavailableError{
			FormType: formType,
			Path:     path,
			Err:      fmt.Errorf("template size %d exceeds limit %d", info.Size(), p.maxSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UnavailableError{FormType: formType, Path: path, Err: err}
	}
	return data, nil
}
