package decode

import (
	"fmt"

	"github.com/sourceassets/mdlimport/asset"
	"github.com/sourceassets/mdlimport/internal/bin"
)

var texMagic = [4]byte{'V', 'T', 'F', 0}

// TexDecoder decodes a texture blob into an asset.Material with plain
// RGBA8888 pixels (§4.2 C3). Only the highest-resolution mip of the first
// frame is decoded; LOD/cubemap/floating-point variants are explicit
// Non-goals.
type TexDecoder struct{}

// NewTexDecoder returns a stateless TexDecoder; it is safe to share across
// goroutines since it holds no mutable state.
func NewTexDecoder() *TexDecoder { return &TexDecoder{} }

// Decode parses data as a texture container and returns the decoded
// highest-resolution mip as an RGBA8888 asset.Material named name.
func (d *TexDecoder) Decode(data []byte, name string) (asset.Material, error) {
	c := bin.NewCursor(data)

	magic, err := c.Bytes(4)
	if err != nil || string(magic) != string(texMagic[:]) {
		return asset.Material{}, fmt.Errorf("%w: %q bad texture signature", ErrInvalidModel, name)
	}

	var hdr texHeader
	if hdr.VersionMajor, err = c.U32(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.VersionMinor, err = c.U32(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.HeaderSize, err = c.U32(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.Width, err = c.U16(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.Height, err = c.U16(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.Flags, err = c.U32(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.Frames, err = c.U16(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if _, err = c.U16(); err != nil { // first frame index, unused (only frame 0 decoded)
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if err = c.Skip(4); err != nil { // padding
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if err = c.Skip(12); err != nil { // reflectivity vec3
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if err = c.Skip(4); err != nil { // padding
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if _, err = c.F32(); err != nil { // bumpmap scale, unused
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.Format, err = c.I32(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.MipmapCount, err = c.U8(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.LowResFormat, err = c.I32(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.LowResWidth, err = c.U8(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}
	if hdr.LowResHeight, err = c.U8(); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrInvalidModel, name, err)
	}

	blockSize := texBlockSize(hdr.Format)
	bpp := texBytesPerPixel(hdr.Format)
	if blockSize == 0 && bpp == 0 {
		return asset.Material{}, fmt.Errorf("%w: texture %q format %d", ErrUnsupportedFormat, name, hdr.Format)
	}

	// The low-res thumbnail (always DXT1) sits right after the header;
	// skip it before the mip chain.
	if hdr.LowResFormat != -1 && hdr.LowResWidth > 0 && hdr.LowResHeight > 0 {
		if err := c.Seek(int(hdr.HeaderSize) + texMipSize(texFmtDXT1, int(hdr.LowResWidth), int(hdr.LowResHeight))); err != nil {
			return asset.Material{}, fmt.Errorf("%w: %q: skipping low-res thumbnail: %v", ErrMalformedTable, name, err)
		}
	} else if err := c.Seek(int(hdr.HeaderSize)); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrMalformedTable, name, err)
	}

	// Mips are stored smallest-first; walk the chain to find the largest
	// (mip 0) offset rather than assuming a fixed stride, since each level
	// halves dimensions and therefore encoded size.
	mipCount := int(hdr.MipmapCount)
	if mipCount < 1 {
		mipCount = 1
	}
	sizes := make([]int, mipCount)
	w, h := int(hdr.Width), int(hdr.Height)
	for level := 0; level < mipCount; level++ {
		lw := w >> uint(mipCount-1-level)
		lh := h >> uint(mipCount-1-level)
		sizes[level] = texMipSize(hdr.Format, lw, lh)
	}

	offset := c.Pos()
	for level := 0; level < mipCount-1; level++ {
		offset += sizes[level]
	}
	if err := c.Seek(offset); err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: locating mip 0: %v", ErrMalformedTable, name, err)
	}

	raw, err := c.Bytes(sizes[mipCount-1])
	if err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: reading mip 0: %v", ErrMalformedTable, name, err)
	}

	pixels, err := decodePixels(hdr.Format, raw, w, h)
	if err != nil {
		return asset.Material{}, fmt.Errorf("%w: %q: %v", ErrUnsupportedFormat, name, err)
	}

	return asset.Material{Name: name, Width: w, Height: h, Pixels: pixels}, nil
}

// decodePixels expands raw encoded bytes for one w x h mip into RGBA8888.
func decodePixels(format int32, raw []byte, w, h int) ([]byte, error) {
	switch format {
	case texFmtDXT1, texFmtDXT1OneBitAlpha:
		return decodeDXT1(raw, w, h, format == texFmtDXT1OneBitAlpha)
	case texFmtDXT3:
		return decodeDXT3(raw, w, h)
	case texFmtDXT5:
		return decodeDXT5(raw, w, h)
	case texFmtRGBA8888:
		return raw, nil
	case texFmtBGRA8888, texFmtARGB8888:
		return swapRB4(raw), nil
	case texFmtABGR8888:
		return abgrToRGBA(raw), nil
	case texFmtRGB888:
		return expand3to4(raw, false), nil
	case texFmtBGR888:
		return expand3to4(raw, true), nil
	default:
		return nil, fmt.Errorf("format %d has no pixel decoder", format)
	}
}

func swapRB4(raw []byte) []byte {
	out := make([]byte, len(raw))
	copy(out, raw)
	for i := 0; i+3 < len(out); i += 4 {
		out[i], out[i+2] = out[i+2], out[i]
	}
	return out
}

func abgrToRGBA(raw []byte) []byte {
	out := make([]byte, len(raw))
	for i := 0; i+3 < len(raw); i += 4 {
		a, b, g, r := raw[i], raw[i+1], raw[i+2], raw[i+3]
		out[i], out[i+1], out[i+2], out[i+3] = r, g, b, a
	}
	return out
}

func expand3to4(raw []byte, bgr bool) []byte {
	n := len(raw) / 3
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		r, g, b := raw[i*3], raw[i*3+1], raw[i*3+2]
		if bgr {
			r, b = b, r
		}
		out[i*4], out[i*4+1], out[i*4+2], out[i*4+3] = r, g, b, 0xFF
	}
	return out
}
