package decode

import "errors"

// Sentinel error kinds (§7). Callers compare with errors.Is; every
// returned error wraps one of these with fmt.Errorf("...: %w", ...) so the
// offending path/table/index survives in the message while the kind stays
// machine-checkable.
var (
	// ErrInvalidPackage means the package directory itself (signature,
	// header, or string tree) did not parse.
	ErrInvalidPackage = errors.New("decode: invalid package directory")

	// ErrNotFound means a requested blob path is not present in an
	// otherwise-valid package directory.
	ErrNotFound = errors.New("decode: blob not found")

	// ErrInvalidModel means the MDL header or a required top-level table
	// failed to parse (bad magic, unsupported version, corrupt offsets).
	ErrInvalidModel = errors.New("decode: invalid model")

	// ErrMissingCompanion means a required companion file (.vvd, .vtx, or
	// the .ani an animation block points into) could not be located next
	// to the model.
	ErrMissingCompanion = errors.New("decode: missing companion file")

	// ErrMalformedTable means a sub-table within an otherwise valid file
	// failed a structural check (bad count, out-of-range offset, duplicate
	// bone index) and the smallest enclosing unit was skipped.
	ErrMalformedTable = errors.New("decode: malformed table")

	// ErrUnsupportedFormat means a recognized-but-unsupported format
	// variant was encountered (e.g. a floating-point or cubemap texture).
	ErrUnsupportedFormat = errors.New("decode: unsupported format")

	// ErrAborted means the caller's context was cancelled between stages.
	ErrAborted = errors.New("decode: aborted")
)
