// Package memory keeps resources and page markers in process memory, for
// development runs and tests.
package memory

import (
	"github.com/spf13/afero"

	"github.com/JakeFAU/scrapper/internal/storage/local"
)

// NewFileSystem returns an empty file system backed by afero's MemMapFs.
func NewFileSystem() *local.FileSystem {
	return local.Wrap(afero.NewMemMapFs())
}
