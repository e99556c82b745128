package decode

import "testing"

func TestColor565RoundTrips5BitWhite(t *testing.T) {
	// 0xFFFF = full white in 5:6:5.
	r, g, b := color565(0xFFFF)
	if r != 0xFF || g != 0xFF || b != 0xFF {
		t.Fatalf("color565(white) = %d,%d,%d, want 255,255,255", r, g, b)
	}
}

func TestDecodeDXT1OpaqueBlock(t *testing.T) {
	// A single 4x4 block: c0 == c1 (pure two-color mode, no alpha), every
	// index selecting color 0, which is solid 565 red.
	red565 := uint16(0xF800)
	block := []byte{
		byte(red565), byte(red565 >> 8), // c0
		byte(red565), byte(red565 >> 8), // c1 == c0
		0x00, 0x00, 0x00, 0x00, // all indices 0
	}
	out, err := decodeDXT1(block, 4, 4, false)
	if err != nil {
		t.Fatalf("decodeDXT1: %v", err)
	}
	if len(out) != 4*4*4 {
		t.Fatalf("output length = %d, want %d", len(out), 4*4*4)
	}
	r, g, b, a := out[0], out[1], out[2], out[3]
	if r != 0xFF || g != 0 || b != 0 || a != 0xFF {
		t.Errorf("texel 0 = %d,%d,%d,%d, want 255,0,0,255", r, g, b, a)
	}
	// Every texel in the block should match since all indices are 0.
	for i := 0; i < len(out); i += 4 {
		if out[i] != 0xFF || out[i+1] != 0 || out[i+2] != 0 || out[i+3] != 0xFF {
			t.Fatalf("texel %d differs from uniform red block: %v", i/4, out[i:i+4])
		}
	}
}

func TestDecodeDXT5OpaqueBlock(t *testing.T) {
	// Alpha endpoints both 0xFF (fully opaque everywhere), color block same
	// as the DXT1 test above.
	red565 := uint16(0xF800)
	block := make([]byte, 16)
	block[0] = 0xFF // alpha0
	block[1] = 0xFF // alpha1
	// alpha index bits all zero already (selects alpha0 = 0xFF everywhere)
	block[8] = byte(red565)
	block[9] = byte(red565 >> 8)
	block[10] = byte(red565)
	block[11] = byte(red565 >> 8)

	out, err := decodeDXT5(block, 4, 4)
	if err != nil {
		t.Fatalf("decodeDXT5: %v", err)
	}
	for i := 0; i < len(out); i += 4 {
		if out[i] != 0xFF || out[i+1] != 0 || out[i+2] != 0 || out[i+3] != 0xFF {
			t.Fatalf("texel %d = %v, want opaque red", i/4, out[i:i+4])
		}
	}
}

func TestDecodeBCShortBlockErrors(t *testing.T) {
	_, err := decodeDXT1([]byte{0, 0, 0}, 4, 4, false)
	if err == nil {
		t.Fatal("expected error decoding a truncated DXT1 block")
	}
}
