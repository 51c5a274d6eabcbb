package source

import (
	"context"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/spf13/afero"

	"modstream/internal/errors"
)

// FSStore loads modules from a filesystem.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore creates a store over fs. A nil fs means the OS filesystem.
func NewFSStore(fs afero.Fs) *FSStore {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FSStore{fs: fs}
}

// Load implements Store.
func (s *FSStore) Load(ctx context.Context, location string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := afero.ReadFile(s.fs, filepath.FromSlash(location))
	if err != nil {
		return "", errors.NewBundleError(errors.LoadError, "cannot load "+location, err)
	}
	if !utf8.Valid(data) {
		return "", errors.Errorf(errors.LoadError, "%s is not valid UTF-8", location)
	}
	return string(data), nil
}

// Walk calls fn for every module file under root, in lexical order.
func (s *FSStore) Walk(root string, fn func(location string) error) error {
	return afero.Walk(s.fs, filepath.FromSlash(root), func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !IsModuleFile(info.Name()) {
			return nil
		}
		return fn(filepath.ToSlash(p))
	})
}
