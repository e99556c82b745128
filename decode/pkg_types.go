package decode

// pkgSignature is the magic value at the start of every package directory
// file (§4.1 "signature 0x55AA1234").
const pkgSignature = 0x55AA1234

// archiveSelf is the special archive index meaning "this entry's bytes live
// in the directory file itself, immediately after the string tree", used
// for preloaded/small entries.
const archiveSelf = 0x7FFF

// terminatorEntry is the 0xFFFF value that closes every entry record in the
// extension/path/name triple-nested string tree.
const terminatorEntry = 0xFFFF

// pkgEntry is one file record from the directory's string tree (§4.1).
type pkgEntry struct {
	Path        string // normalized, lowercase, forward-slash, no leading slash
	CRC32       uint32
	PreloadSize uint16
	ArchiveIndex uint16
	EntryOffset  uint32
	EntryLength  uint32
	// PreloadBytes is non-empty when PreloadSize > 0: bytes embedded inline
	// in the directory file immediately after the entry record's
	// terminator. Required reading for entries that are preload-only
	// (EntryLength == 0 and ArchiveIndex == archiveSelf) but we keep the
	// full remainder available for any other reader too.
	PreloadBytes []byte
}
