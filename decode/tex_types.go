package decode

// VTF-like high-res image format enum values (§4.2). Unnamed formats map to
// ErrUnsupportedFormat; texFmtBGRX8888 is named but has no pixel decoder,
// so it maps to ErrUnsupportedFormat as well.
const (
	texFmtRGBA8888 = 0
	texFmtABGR8888 = 1
	texFmtRGB888   = 2
	texFmtBGR888   = 3
	texFmtARGB8888 = 12
	texFmtBGRA8888 = 13
	texFmtDXT1     = 14
	texFmtDXT3     = 15
	texFmtDXT5     = 16
	texFmtBGRX8888 = 17
	texFmtDXT1OneBitAlpha = 21
)

// texHeader is the fixed portion of the container header this decoder
// reads (§4.2): signature, version, dimensions, mip count, and the
// high-res pixel format selecting which of the low-level decoders below to
// use. Reflectivity/bumpmap/low-res-thumbnail fields are skipped, not
// modeled, since nothing downstream consumes them.
type texHeader struct {
	VersionMajor uint32
	VersionMinor uint32
	HeaderSize   uint32
	Width        uint16
	Height       uint16
	Flags        uint32
	Frames       uint16
	Format       int32
	MipmapCount  uint8
	LowResFormat int32
	LowResWidth  uint8
	LowResHeight uint8
}

func texBlockSize(format int32) int {
	switch format {
	case texFmtDXT1, texFmtDXT1OneBitAlpha:
		return 8
	case texFmtDXT3, texFmtDXT5:
		return 16
	default:
		return 0
	}
}

func texBytesPerPixel(format int32) int {
	switch format {
	case texFmtRGBA8888, texFmtABGR8888, texFmtARGB8888, texFmtBGRA8888, texFmtBGRX8888:
		return 4
	case texFmtRGB888, texFmtBGR888:
		return 3
	default:
		return 0
	}
}

// texMipSize returns the encoded byte size of one mip level at w x h for
// format, or 0 if the format is unrecognized.
func texMipSize(format int32, w, h int) int {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	if bs := texBlockSize(format); bs > 0 {
		blocksWide := (w + 3) / 4
		blocksHigh := (h + 3) / 4
		return blocksWide * blocksHigh * bs
	}
	if bpp := texBytesPerPixel(format); bpp > 0 {
		return w * h * bpp
	}
	return 0
}
