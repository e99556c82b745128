package bin

import "testing"

func TestCursorScalars(t *testing.T) {
	buf := []byte{
		0x7B,             // U8 123
		0xFF,             // I8 -1
		0x01, 0x02,       // U16 0x0201
		0x00, 0x00, 0x80, 0x3F, // F32 1.0
	}
	c := NewCursor(buf)

	if v, err := c.U8(); err != nil || v != 123 {
		t.Fatalf("U8 = %d, %v", v, err)
	}
	if v, err := c.I8(); err != nil || v != -1 {
		t.Fatalf("I8 = %d, %v", v, err)
	}
	if v, err := c.U16(); err != nil || v != 0x0201 {
		t.Fatalf("U16 = %d, %v", v, err)
	}
	if v, err := c.F32(); err != nil || v != 1.0 {
		t.Fatalf("F32 = %v, %v", v, err)
	}
	if c.Pos() != len(buf) {
		t.Fatalf("Pos = %d, want %d", c.Pos(), len(buf))
	}
}

func TestCursorSeekOutOfRange(t *testing.T) {
	c := NewCursor(make([]byte, 4))
	if err := c.Seek(5); err == nil {
		t.Fatal("expected error seeking past end of buffer")
	}
	if err := c.Seek(-1); err == nil {
		t.Fatal("expected error seeking before start of buffer")
	}
	if err := c.Seek(4); err != nil {
		t.Fatalf("Seek(len(buf)) should be valid: %v", err)
	}
}

func TestCursorReadPastEnd(t *testing.T) {
	c := NewCursor([]byte{0x01})
	if _, err := c.U32(); err == nil {
		t.Fatal("expected error reading 4 bytes from a 1-byte buffer")
	}
}

func TestCursorStringAt(t *testing.T) {
	buf := append([]byte{0, 0, 0, 0}, []byte("bip_head\x00")...)
	c := NewCursor(buf)
	s, err := c.StringAt(4)
	if err != nil {
		t.Fatalf("StringAt: %v", err)
	}
	if s != "bip_head" {
		t.Fatalf("StringAt = %q, want %q", s, "bip_head")
	}
	// StringAt must not disturb the cursor's own position.
	if c.Pos() != 0 {
		t.Fatalf("StringAt moved cursor position to %d", c.Pos())
	}
}

func TestCursorCString(t *testing.T) {
	buf := []byte("mdl\x00vtx\x00")
	c := NewCursor(buf)
	first, err := c.CString()
	if err != nil || first != "mdl" {
		t.Fatalf("CString #1 = %q, %v", first, err)
	}
	second, err := c.CString()
	if err != nil || second != "vtx" {
		t.Fatalf("CString #2 = %q, %v", second, err)
	}
}

func TestCursorCStringUnterminated(t *testing.T) {
	c := NewCursor([]byte("no-nul-here"))
	if _, err := c.CString(); err == nil {
		t.Fatal("expected error reading an unterminated CString")
	}
}
