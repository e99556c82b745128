package decode

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/sourceassets/mdlimport/internal/bin"
)

// PkgReader parses a package directory (§4.1 C2) and serves its entries as
// a BlobStore, resolving virtual archive paths to bytes pulled from either
// the directory file itself (preload/archiveSelf entries) or a numbered
// archive file next to it. Concurrent reads of the same not-yet-cached
// path are collapsed with singleflight, and resolved blobs are cached in a
// map guarded by sync.RWMutex, chosen because companion-file resolution
// issues several Read calls per asset against what may be a shared archive
// (§4.1 NEW).
type PkgReader struct {
	raw BlobStore // resolves archive file names (dir + numbered archives) to bytes

	dirPath     string
	entries     map[string]pkgEntry // normalized path -> entry
	archiveBase string               // e.g. "pak01" for "pak01_dir.vpk"

	mu    sync.RWMutex
	cache map[string][]byte

	group singleflight.Group
}

var _ BlobStore = (*PkgReader)(nil)

// OpenPkg reads and parses the package directory file at dirPath through
// raw, building the path->entry index. It does not read any archive data
// until Read is called.
func OpenPkg(ctx context.Context, raw BlobStore, dirPath string) (*PkgReader, error) {
	data, err := raw.Read(ctx, dirPath)
	if err != nil {
		return nil, fmt.Errorf("decode: reading package directory %q: %w", dirPath, err)
	}

	c := bin.NewCursor(data)
	sig, err := c.U32()
	if err != nil || sig != pkgSignature {
		return nil, fmt.Errorf("%w: %q has bad signature", ErrInvalidPackage, dirPath)
	}
	version, err := c.U32()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPackage, dirPath, err)
	}
	if _, err := c.U32(); err != nil { // tree size; readUncached re-reads it for archiveSelf entries
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPackage, dirPath, err)
	}
	if version >= 2 {
		// FileDataSize, ArchiveMD5SectionSize, OtherMD5SectionSize,
		// SignatureSectionSize: not needed to locate entries, skip.
		if err := c.Skip(16); err != nil {
			return nil, fmt.Errorf("%w: %q: v2 header: %v", ErrInvalidPackage, dirPath, err)
		}
	}

	entries, err := parsePkgStringTree(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPackage, dirPath, err)
	}

	base := filepath.Base(dirPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.TrimSuffix(base, "_dir")

	return &PkgReader{
		raw:         raw,
		dirPath:     dirPath,
		entries:     entries,
		archiveBase: base,
		cache:       make(map[string][]byte),
	}, nil
}

// parsePkgStringTree walks the three-level extension -> path -> filename
// nested NUL-string tree and the entry record that follows each filename,
// per §4.1.
func parsePkgStringTree(c *bin.Cursor) (map[string]pkgEntry, error) {
	entries := make(map[string]pkgEntry)

	for {
		ext, err := c.CString()
		if err != nil {
			return nil, err
		}
		if ext == "" {
			break // outer terminator: end of extension list
		}
		for {
			dir, err := c.CString()
			if err != nil {
				return nil, err
			}
			if dir == "" {
				break // end of this extension's path list
			}
			for {
				name, err := c.CString()
				if err != nil {
					return nil, err
				}
				if name == "" {
					break // end of this path's filename list
				}

				crc, err := c.U32()
				if err != nil {
					return nil, err
				}
				preloadSize, err := c.U16()
				if err != nil {
					return nil, err
				}
				archiveIndex, err := c.U16()
				if err != nil {
					return nil, err
				}
				offset, err := c.U32()
				if err != nil {
					return nil, err
				}
				length, err := c.U32()
				if err != nil {
					return nil, err
				}
				term, err := c.U16()
				if err != nil {
					return nil, err
				}
				if term != terminatorEntry {
					return nil, fmt.Errorf("%w: entry for %q missing terminator", ErrMalformedTable, name)
				}

				var preload []byte
				if preloadSize > 0 {
					preload, err = c.Bytes(int(preloadSize))
					if err != nil {
						return nil, err
					}
				}

				full := pkgJoinPath(dir, name, ext)
				entries[full] = pkgEntry{
					Path:         full,
					CRC32:        crc,
					PreloadSize:  preloadSize,
					ArchiveIndex: archiveIndex,
					EntryOffset:  offset,
					EntryLength:  length,
					PreloadBytes: preload,
				}
			}
		}
	}

	return entries, nil
}

func pkgJoinPath(dir, name, ext string) string {
	full := name
	if ext != "" {
		full += "." + ext
	}
	if dir != "" && dir != " " {
		full = dir + "/" + full
	}
	return strings.ToLower(full)
}

func pkgNormalize(path string) string {
	return strings.ToLower(strings.ReplaceAll(path, "\\", "/"))
}

// Exists reports whether path resolves to a known entry (§4.1).
func (r *PkgReader) Exists(_ context.Context, path string) bool {
	_, ok := r.entries[pkgNormalize(path)]
	return ok
}

// Read resolves path to an entry and returns its bytes, preferring an
// embedded preload blob, otherwise reading the numbered archive file (or
// the directory file itself for archiveSelf entries) (§4.1).
func (r *PkgReader) Read(ctx context.Context, path string) ([]byte, error) {
	norm := pkgNormalize(path)

	r.mu.RLock()
	if b, ok := r.cache[norm]; ok {
		r.mu.RUnlock()
		return b, nil
	}
	r.mu.RUnlock()

	v, err, _ := r.group.Do(norm, func() (interface{}, error) {
		b, err := r.readUncached(ctx, norm)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cache[norm] = b
		r.mu.Unlock()
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (r *PkgReader) readUncached(ctx context.Context, norm string) ([]byte, error) {
	entry, ok := r.entries[norm]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, norm)
	}

	if entry.EntryLength == 0 {
		return entry.PreloadBytes, nil
	}

	var archivePath string
	if entry.ArchiveIndex == archiveSelf {
		archivePath = r.dirPath
	} else {
		dir := filepath.Dir(r.dirPath)
		archivePath = filepath.Join(dir, fmt.Sprintf("%s_%03d.vpk", r.archiveBase, entry.ArchiveIndex))
	}

	data, err := r.raw.Read(ctx, archivePath)
	if err != nil {
		return nil, fmt.Errorf("decode: reading archive %q for %q: %w", archivePath, norm, err)
	}

	start := int(entry.EntryOffset)
	if entry.ArchiveIndex == archiveSelf {
		// Embedded bodies are addressed from the end of the string tree,
		// past the 12-byte (v1) or 28-byte (v2) header.
		hc := bin.NewCursor(data)
		_, errSig := hc.U32()
		version, errVer := hc.U32()
		treeSize, errTree := hc.U32()
		if errSig != nil || errVer != nil || errTree != nil {
			return nil, fmt.Errorf("%w: %q: short directory header", ErrInvalidPackage, archivePath)
		}
		headerLen := 12
		if version >= 2 {
			headerLen = 28
		}
		start += headerLen + int(treeSize)
	}
	end := start + int(entry.EntryLength)
	if start < 0 || end > len(data) || start > end {
		return nil, fmt.Errorf("%w: entry %q offset/length out of range in %q", ErrMalformedTable, norm, archivePath)
	}

	body := data[start:end]
	if len(entry.PreloadBytes) > 0 {
		combined := make([]byte, 0, len(entry.PreloadBytes)+len(body))
		combined = append(combined, entry.PreloadBytes...)
		combined = append(combined, body...)
		return combined, nil
	}
	return body, nil
}
