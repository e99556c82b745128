// Package bin provides a small little-endian binary cursor shared by every
// decode/* reader. All seven source-engine formats are flat, fixed-stride,
// offset-addressed binary blobs (header with (count, offset) pairs pointing
// into the same buffer), so every reader walks the same way: seek to an
// offset, read a fixed-size record, restore position, repeat.
package bin

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Cursor reads little-endian fields from an in-memory blob, tracking a
// current read position the way bytes.Reader does, but with the
// domain-specific helpers (StringAt, fixed-size sub-slices) every reader in
// this module needs.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor wraps buf for little-endian reads starting at position 0.
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the total length of the underlying blob.
func (c *Cursor) Len() int { return len(c.buf) }

// Pos returns the current read position.
func (c *Cursor) Pos() int { return c.pos }

// Seek moves the cursor to an absolute byte offset. It returns an error
// rather than panicking so malformed offset tables surface as
// decode.ErrMalformedTable instead of a crash.
func (c *Cursor) Seek(offset int) error {
	if offset < 0 || offset > len(c.buf) {
		return fmt.Errorf("bin: seek offset %d out of range [0,%d]", offset, len(c.buf))
	}
	c.pos = offset
	return nil
}

// Skip advances the cursor by n bytes.
func (c *Cursor) Skip(n int) error {
	return c.Seek(c.pos + n)
}

func (c *Cursor) require(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, fmt.Errorf("bin: read of %d bytes at %d exceeds buffer length %d", n, c.pos, len(c.buf))
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Bytes reads n raw bytes and advances the cursor.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	return c.require(n)
}

// U8 reads a single unsigned byte.
func (c *Cursor) U8() (uint8, error) {
	b, err := c.require(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// I8 reads a single signed byte.
func (c *Cursor) I8() (int8, error) {
	v, err := c.U8()
	return int8(v), err
}

// U16 reads a little-endian uint16.
func (c *Cursor) U16() (uint16, error) {
	b, err := c.require(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// I16 reads a little-endian int16.
func (c *Cursor) I16() (int16, error) {
	v, err := c.U16()
	return int16(v), err
}

// U32 reads a little-endian uint32.
func (c *Cursor) U32() (uint32, error) {
	b, err := c.require(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32 reads a little-endian int32.
func (c *Cursor) I32() (int32, error) {
	v, err := c.U32()
	return int32(v), err
}

// F32 reads a little-endian IEEE-754 float32.
func (c *Cursor) F32() (float32, error) {
	v, err := c.U32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Vec2 reads two consecutive float32s.
func (c *Cursor) Vec2() (x, y float32, err error) {
	if x, err = c.F32(); err != nil {
		return
	}
	y, err = c.F32()
	return
}

// Vec3 reads three consecutive float32s.
func (c *Cursor) Vec3() (x, y, z float32, err error) {
	if x, err = c.F32(); err != nil {
		return
	}
	if y, err = c.F32(); err != nil {
		return
	}
	z, err = c.F32()
	return
}

// Vec4 reads four consecutive float32s.
func (c *Cursor) Vec4() (x, y, z, w float32, err error) {
	if x, err = c.F32(); err != nil {
		return
	}
	if y, err = c.F32(); err != nil {
		return
	}
	if z, err = c.F32(); err != nil {
		return
	}
	w, err = c.F32()
	return
}

// CString reads a NUL-terminated string starting at the current position
// and advances past the terminating NUL, for formats (like the package
// directory's string tree) that lay strings out sequentially rather than
// addressing them by offset.
func (c *Cursor) CString() (string, error) {
	start := c.pos
	for c.pos < len(c.buf) && c.buf[c.pos] != 0 {
		c.pos++
	}
	if c.pos >= len(c.buf) {
		return "", fmt.Errorf("bin: unterminated string starting at %d", start)
	}
	s := string(c.buf[start:c.pos])
	c.pos++ // skip NUL
	return s, nil
}

// StringAt reads a NUL-terminated string starting at an absolute offset
// without disturbing the cursor's current position, the same "follow the
// offset, read to NUL, come back" idiom gltf_parser.go uses for accessor
// strings and iqm.go uses for its text-table label scan.
func (c *Cursor) StringAt(offset int) (string, error) {
	if offset < 0 || offset > len(c.buf) {
		return "", fmt.Errorf("bin: string offset %d out of range [0,%d]", offset, len(c.buf))
	}
	end := offset
	for end < len(c.buf) && c.buf[end] != 0 {
		end++
	}
	return string(c.buf[offset:end]), nil
}
