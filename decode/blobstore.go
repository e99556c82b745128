package decode

import "context"

// BlobStore is the single abstraction every other component reads bytes
// through (§3 C1). It knows nothing about package directories, models, or
// any binary format; it just resolves a caller-given path to bytes, a
// pluggable backend seam so package-directory and loose-directory lookups
// can sit behind the same interface.
type BlobStore interface {
	// Read returns the full contents addressed by path. path is either a
	// loose filesystem-relative path or, when a PkgReader is layered on
	// top, a virtual path inside a package directory.
	Read(ctx context.Context, path string) ([]byte, error)

	// Exists reports whether path can currently be resolved, without
	// reading its contents. Used by companion-file resolution (§6) to probe
	// several candidate suffixes cheaply.
	Exists(ctx context.Context, path string) bool
}
