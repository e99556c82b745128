package decode

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"
)

// memStore is a trivial in-memory BlobStore used to feed OpenPkg/PkgReader
// fixed byte buffers without touching a filesystem.
type memStore struct {
	files map[string][]byte
}

func (m *memStore) Read(_ context.Context, path string) ([]byte, error) {
	b, ok := m.files[path]
	if !ok {
		return nil, ErrNotFound
	}
	return b, nil
}

func (m *memStore) Exists(_ context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

// buildPkgDir writes a minimal v1 package directory containing a single
// preload-only entry "models/props/barrel.mdl" whose bytes live inline in
// the directory file itself (archiveSelf, EntryLength 0).
func buildPkgDir(t *testing.T, preload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	w16 := func(v uint16) { binary.Write(&buf, binary.LittleEndian, v) }

	w32(pkgSignature)
	w32(1) // version 1: no v2 footer fields
	w32(0) // tree size, unused by OpenPkg

	// extension "mdl"
	buf.WriteString("mdl\x00")
	// path "models/props"
	buf.WriteString("models/props\x00")
	// filename "barrel"
	buf.WriteString("barrel\x00")
	w32(0)                        // crc32
	w16(uint16(len(preload)))      // preload size
	w16(uint16(archiveSelf))       // archive index
	w32(0)                        // entry offset, unused (length 0)
	w32(0)                        // entry length: preload-only
	w16(uint16(terminatorEntry))
	buf.Write(preload)
	buf.WriteString("\x00") // end of this path's filename list
	buf.WriteString("\x00") // end of this extension's path list
	buf.WriteString("\x00") // end of extension list

	return buf.Bytes()
}

func TestOpenPkgAndReadPreloadEntry(t *testing.T) {
	preload := []byte("fake mdl bytes")
	dirBytes := buildPkgDir(t, preload)
	store := &memStore{files: map[string][]byte{"pak01_dir.vpk": dirBytes}}

	reader, err := OpenPkg(context.Background(), store, "pak01_dir.vpk")
	if err != nil {
		t.Fatalf("OpenPkg: %v", err)
	}

	if !reader.Exists(context.Background(), "models/props/barrel.mdl") {
		t.Fatal("Exists = false for a present entry")
	}

	got, err := reader.Read(context.Background(), "models/props/barrel.mdl")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(preload) {
		t.Errorf("Read = %q, want %q", got, preload)
	}
}

func TestOpenPkgRejectsBadSignature(t *testing.T) {
	store := &memStore{files: map[string][]byte{"bad.vpk": {0, 0, 0, 0}}}
	if _, err := OpenPkg(context.Background(), store, "bad.vpk"); err == nil {
		t.Fatal("expected error for bad package signature")
	}
}

func TestPkgNormalizeLowercasesAndFixesSlashes(t *testing.T) {
	got := pkgNormalize(`Models\Props\Barrel.mdl`)
	want := "models/props/barrel.mdl"
	if got != want {
		t.Errorf("pkgNormalize = %q, want %q", got, want)
	}
}
