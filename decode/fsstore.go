package decode

import (
	"context"
	"os"
	"path/filepath"
)

// FSStore is the simplest BlobStore: it resolves every path relative to a
// root directory on the local filesystem. Hosts with their own resource
// manager (archives, network mounts, virtual filesystems) supply their own
// BlobStore instead — this one exists so the package is usable standalone
// and so tests have something concrete to exercise PkgReader/Decoder
// against without a mock.
type FSStore struct {
	root string
}

var _ BlobStore = (*FSStore)(nil)

// NewFSStore returns an FSStore rooted at root.
func NewFSStore(root string) *FSStore {
	return &FSStore{root: root}
}

func (f *FSStore) resolve(path string) string {
	return filepath.Join(f.root, filepath.FromSlash(path))
}

// Read returns the full contents of the file at path, relative to root.
func (f *FSStore) Read(_ context.Context, path string) ([]byte, error) {
	return os.ReadFile(f.resolve(path))
}

// Exists reports whether the file at path, relative to root, exists and is
// readable as a regular file.
func (f *FSStore) Exists(_ context.Context, path string) bool {
	info, err := os.Stat(f.resolve(path))
	return err == nil && !info.IsDir()
}
