package decode

import (
	"encoding/binary"
	"errors"
)

// DXT1/3/5 (BC1/2/3) 4x4 block decode. No ecosystem BCn/DXT decoder exists
// anywhere in the retrieved example pack (confirmed against
// deepteams-webp/internal/lossy and internal/lossless, which hand-roll their
// own VP8/DCT macroblock decode rather than reach for a library); this is a
// structurally identical problem — fixed-size blocks, bit-packed sub-byte
// fields, a small lookup/interpolation step per block — so this file is
// grounded on that hand-rolled bit-block-walk idiom rather than a specific
// snippet of it (§4.2 NEW in SPEC_FULL.md; documented in DESIGN.md as the
// required standard-library justification).

func color565(c uint16) (r, g, b uint8) {
	r = uint8((c>>11)&0x1F) << 3
	g = uint8((c>>5)&0x3F) << 2
	b = uint8(c&0x1F) << 3
	r |= r >> 5
	g |= g >> 6
	b |= b >> 5
	return
}

func decodeDXT1(raw []byte, w, h int, oneBitAlpha bool) ([]byte, error) {
	return decodeBC(raw, w, h, 8, func(block []byte, out []byte, bx, by, w int) {
		c0 := binary.LittleEndian.Uint16(block[0:2])
		c1 := binary.LittleEndian.Uint16(block[2:4])
		idx := binary.LittleEndian.Uint32(block[4:8])

		r0, g0, b0 := color565(c0)
		r1, g1, b1 := color565(c1)

		var palette [4][4]uint8 // r,g,b,a
		palette[0] = [4]uint8{r0, g0, b0, 0xFF}
		palette[1] = [4]uint8{r1, g1, b1, 0xFF}
		if c0 > c1 || !oneBitAlpha {
			palette[2] = [4]uint8{
				uint8((2*int(r0) + int(r1)) / 3),
				uint8((2*int(g0) + int(g1)) / 3),
				uint8((2*int(b0) + int(b1)) / 3),
				0xFF,
			}
			palette[3] = [4]uint8{
				uint8((int(r0) + 2*int(r1)) / 3),
				uint8((int(g0) + 2*int(g1)) / 3),
				uint8((int(b0) + 2*int(b1)) / 3),
				0xFF,
			}
		} else {
			palette[2] = [4]uint8{
				uint8((int(r0) + int(r1)) / 2),
				uint8((int(g0) + int(g1)) / 2),
				uint8((int(b0) + int(b1)) / 2),
				0xFF,
			}
			palette[3] = [4]uint8{0, 0, 0, 0} // transparent
		}

		for py := 0; py < 4; py++ {
			for px := 0; px < 4; px++ {
				sel := (idx >> uint((py*4+px)*2)) & 0x3
				writeTexel(out, w, bx*4+px, by*4+py, palette[sel])
			}
		}
	})
}

func decodeDXT3(raw []byte, w, h int) ([]byte, error) {
	return decodeBC(raw, w, h, 16, func(block []byte, out []byte, bx, by, w int) {
		alphaBits := binary.LittleEndian.Uint64(block[0:8])
		colorBlock := block[8:16]

		c0 := binary.LittleEndian.Uint16(colorBlock[0:2])
		c1 := binary.LittleEndian.Uint16(colorBlock[2:4])
		idx := binary.LittleEndian.Uint32(colorBlock[4:8])

		r0, g0, b0 := color565(c0)
		r1, g1, b1 := color565(c1)
		var palette [4][3]uint8
		palette[0] = [3]uint8{r0, g0, b0}
		palette[1] = [3]uint8{r1, g1, b1}
		palette[2] = [3]uint8{
			uint8((2*int(r0) + int(r1)) / 3),
			uint8((2*int(g0) + int(g1)) / 3),
			uint8((2*int(b0) + int(b1)) / 3),
		}
		palette[3] = [3]uint8{
			uint8((int(r0) + 2*int(r1)) / 3),
			uint8((int(g0) + 2*int(g1)) / 3),
			uint8((int(b0) + 2*int(b1)) / 3),
		}

		for py := 0; py < 4; py++ {
			for px := 0; px < 4; px++ {
				sel := (idx >> uint((py*4+px)*2)) & 0x3
				a4 := uint8((alphaBits >> uint((py*4+px)*4)) & 0xF)
				a := a4<<4 | a4
				rgb := palette[sel]
				writeTexel(out, w, bx*4+px, by*4+py, [4]uint8{rgb[0], rgb[1], rgb[2], a})
			}
		}
	})
}

func decodeDXT5(raw []byte, w, h int) ([]byte, error) {
	return decodeBC(raw, w, h, 16, func(block []byte, out []byte, bx, by, w int) {
		a0 := block[0]
		a1 := block[1]
		var alphaBits uint64
		for i := 0; i < 6; i++ {
			alphaBits |= uint64(block[2+i]) << uint(8*i)
		}

		var alpha [8]uint8
		alpha[0], alpha[1] = a0, a1
		if a0 > a1 {
			for i := 1; i <= 6; i++ {
				alpha[1+i] = uint8((int(7-i)*int(a0) + i*int(a1)) / 7)
			}
		} else {
			for i := 1; i <= 4; i++ {
				alpha[1+i] = uint8((int(5-i)*int(a0) + i*int(a1)) / 5)
			}
			alpha[6] = 0
			alpha[7] = 0xFF
		}

		colorBlock := block[8:16]
		c0 := binary.LittleEndian.Uint16(colorBlock[0:2])
		c1 := binary.LittleEndian.Uint16(colorBlock[2:4])
		idx := binary.LittleEndian.Uint32(colorBlock[4:8])

		r0, g0, b0 := color565(c0)
		r1, g1, b1 := color565(c1)
		var palette [4][3]uint8
		palette[0] = [3]uint8{r0, g0, b0}
		palette[1] = [3]uint8{r1, g1, b1}
		palette[2] = [3]uint8{
			uint8((2*int(r0) + int(r1)) / 3),
			uint8((2*int(g0) + int(g1)) / 3),
			uint8((2*int(b0) + int(b1)) / 3),
		}
		palette[3] = [3]uint8{
			uint8((int(r0) + 2*int(r1)) / 3),
			uint8((int(g0) + 2*int(g1)) / 3),
			uint8((int(b0) + 2*int(b1)) / 3),
		}

		for py := 0; py < 4; py++ {
			for px := 0; px < 4; px++ {
				colSel := (idx >> uint((py*4+px)*2)) & 0x3
				alphaSel := (alphaBits >> uint((py*4+px)*3)) & 0x7
				rgb := palette[colSel]
				writeTexel(out, w, bx*4+px, by*4+py, [4]uint8{rgb[0], rgb[1], rgb[2], alpha[alphaSel]})
			}
		}
	})
}

// decodeBC walks a width x height image laid out as 4x4 blocks of the given
// byte size, invoking decodeBlock on each and writing its sixteen texels
// into an RGBA8888 output buffer of exactly w*h*4 bytes.
func decodeBC(raw []byte, w, h, blockBytes int, decodeBlock func(block, out []byte, bx, by, w int)) ([]byte, error) {
	blocksWide := (w + 3) / 4
	blocksHigh := (h + 3) / 4
	out := make([]byte, w*h*4)

	pos := 0
	for by := 0; by < blocksHigh; by++ {
		for bx := 0; bx < blocksWide; bx++ {
			if pos+blockBytes > len(raw) {
				return nil, errShortBlock
			}
			decodeBlock(raw[pos:pos+blockBytes], out, bx, by, w)
			pos += blockBytes
		}
	}
	return out, nil
}

var errShortBlock = errors.New("decode: texture data truncated mid-block")

func writeTexel(out []byte, w, x, y int, rgba [4]uint8) {
	if x < 0 || y < 0 || x >= w {
		return
	}
	stride := w * 4
	i := y*stride + x*4
	if i+4 > len(out) {
		return // block overhangs a non-multiple-of-4 image edge; clip
	}
	out[i], out[i+1], out[i+2], out[i+3] = rgba[0], rgba[1], rgba[2], rgba[3]
}
