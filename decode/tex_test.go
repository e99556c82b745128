package decode

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildDxt5Texture assembles a minimal single-mip, single-frame VTF-like
// container: a fixed header (no low-res thumbnail, one 4x4 DXT5 mip) holding
// one opaque solid-red block.
func buildDxt5Texture(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	w32 := func(v uint32) { binary.Write(&buf, binary.LittleEndian, v) }
	w16 := func(v uint16) { binary.Write(&buf, binary.LittleEndian, v) }
	i32 := func(v int32) { binary.Write(&buf, binary.LittleEndian, v) }
	f32 := func(v float32) { binary.Write(&buf, binary.LittleEndian, v) }

	buf.Write(texMagic[:])
	w32(7)         // version major
	w32(2)         // version minor
	headerSizeOff := buf.Len()
	w32(0) // header size, patched below
	w16(4) // width
	w16(4) // height
	w32(0) // flags
	w16(1) // frames
	w16(0) // first frame index
	buf.Write(make([]byte, 4))  // padding
	buf.Write(make([]byte, 12)) // reflectivity
	buf.Write(make([]byte, 4))  // padding
	f32(1)              // bumpmap scale
	i32(texFmtDXT5)     // format
	buf.WriteByte(1)    // mipmap count
	i32(-1)             // low-res format: none
	buf.WriteByte(0)    // low-res width
	buf.WriteByte(0)    // low-res height

	data := buf.Bytes()
	binary.LittleEndian.PutUint32(data[headerSizeOff:], uint32(buf.Len()))

	red565 := uint16(0xF800)
	block := make([]byte, 16)
	block[0] = 0xFF // alpha0
	block[1] = 0xFF // alpha1
	block[8] = byte(red565)
	block[9] = byte(red565 >> 8)
	block[10] = byte(red565)
	block[11] = byte(red565 >> 8)
	buf.Write(block)

	return buf.Bytes()
}

func TestTexDecoderDecodesOpaqueDXT5Mip(t *testing.T) {
	data := buildDxt5Texture(t)

	mat, err := NewTexDecoder().Decode(data, "wall01")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if mat.Name != "wall01" || mat.Width != 4 || mat.Height != 4 {
		t.Fatalf("material dims = %dx%d %q, want 4x4 wall01", mat.Width, mat.Height, mat.Name)
	}
	if len(mat.Pixels) != 4*4*4 {
		t.Fatalf("pixel buffer length = %d, want %d", len(mat.Pixels), 4*4*4)
	}
	for i := 0; i < len(mat.Pixels); i += 4 {
		r, g, b, a := mat.Pixels[i], mat.Pixels[i+1], mat.Pixels[i+2], mat.Pixels[i+3]
		if r != 0xFF || g != 0 || b != 0 || a != 0xFF {
			t.Fatalf("texel %d = %d,%d,%d,%d, want opaque red", i/4, r, g, b, a)
		}
	}
}

func TestTexDecoderRejectsBadMagic(t *testing.T) {
	_, err := NewTexDecoder().Decode([]byte("XXXX"), "broken")
	if err == nil {
		t.Fatal("expected error for bad texture signature")
	}
}

func TestTexDecoderRejectsUnsupportedFormat(t *testing.T) {
	data := buildDxt5Texture(t)
	// Format field sits right before MipmapCount; patch it to a value with
	// neither a block size nor a bytes-per-pixel mapping.
	const formatFieldOffset = 4 + 4 + 4 + 4 + 2 + 2 + 4 + 2 + 2 + 4 + 12 + 4 + 4
	binary.LittleEndian.PutUint32(data[formatFieldOffset:], uint32(999))
	_, err := NewTexDecoder().Decode(data, "wall01")
	if err == nil {
		t.Fatal("expected error for unsupported texture format")
	}
}
