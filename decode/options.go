package decode

import (
	"log/slog"
)

// config holds the assembled result of applying every Option. It is
// unexported; callers only ever see the Option builder functions.
type config struct {
	store  BlobStore
	logger *slog.Logger

	// Companion-file suffixes (§6); defaults match the documented
	// extensions exactly. Only vtxSuffixes can be overridden (WithVTXSuffixes);
	// vvdSuffix, phySuffix and aniSuffix always keep their defaults.
	vtxSuffixes []string
	vvdSuffix   string
	phySuffix   string
	aniSuffix   string
}

func defaultConfig() *config {
	return &config{
		logger:      slog.Default(),
		vtxSuffixes: []string{".dx90.vtx", ".dx80.vtx", ".sw.vtx"},
		vvdSuffix:   ".vvd",
		phySuffix:   ".phy",
		aniSuffix:   ".ani",
	}
}

// Option configures a Decoder via the WithX(...) functional-options idiom.
type Option func(*config)

// WithBlobStore supplies the BlobStore the Decoder reads packages and loose
// files through. Required; NewDecoder returns an error if omitted.
func WithBlobStore(store BlobStore) Option {
	return func(c *config) { c.store = store }
}

// WithLogger overrides the *slog.Logger used for recoverable-error warnings
// (§4.0). Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithVTXSuffixes overrides the ordered list of VTX companion suffixes
// tried during companion resolution (§6). Defaults to
// [".dx90.vtx", ".dx80.vtx", ".sw.vtx"], tried in that order.
func WithVTXSuffixes(suffixes ...string) Option {
	return func(c *config) {
		if len(suffixes) > 0 {
			c.vtxSuffixes = suffixes
		}
	}
}
