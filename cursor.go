package packjson

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ByteCursor reads primitives from one contiguous buffer. Like the stream
// readers it is modelled on, it latches the first error: once a read fails,
// every later read is a no-op returning zero, and Err reports the cause.
type ByteCursor struct {
	b   []byte
	pos int
	err error
}

// NewByteCursor returns a cursor positioned at the start of b.
func NewByteCursor(b []byte) *ByteCursor {
	return &ByteCursor{b: b}
}

func (c *ByteCursor) Err() error     { return c.err }
func (c *ByteCursor) Pos() int       { return c.pos }
func (c *ByteCursor) Remaining() int { return len(c.b) - c.pos }

// setError records the first non-nil error.
func (c *ByteCursor) setError(err error) {
	if c.err == nil && err != nil {
		c.err = err
	}
}

// next returns the following n bytes and advances past them.
func (c *ByteCursor) next(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || n > len(c.b)-c.pos {
		c.setError(fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncatedData, n, c.pos, len(c.b)-c.pos))
		c.pos = len(c.b)
		return nil
	}
	p := c.b[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return p
}

// ReadBytes returns the next n bytes as a sub-slice of the buffer, without copying.
func (c *ByteCursor) ReadBytes(n int) []byte { return c.next(n) }

// ReadString returns the next n bytes as a string.
func (c *ByteCursor) ReadString(n int) string { return string(c.next(n)) }

// --- Primitive Read Operations ---

func (c *ByteCursor) ReadU8() uint8 {
	if c.err != nil {
		return 0
	}
	if c.pos >= len(c.b) {
		c.setError(fmt.Errorf("%w: need 1 byte at offset %d", ErrTruncatedData, c.pos))
		return 0
	}
	v := c.b[c.pos]
	c.pos++
	return v
}

func (c *ByteCursor) ReadU16() uint16 {
	p := c.next(2)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(p)
}

func (c *ByteCursor) ReadU24() uint32 {
	p := c.next(3)
	if p == nil {
		return 0
	}
	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16
}

func (c *ByteCursor) ReadU32() uint32 {
	p := c.next(4)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(p)
}

func (c *ByteCursor) ReadU64() uint64 {
	p := c.next(8)
	if p == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(p)
}

func (c *ByteCursor) ReadF32() float32 { return math.Float32frombits(c.ReadU32()) }
func (c *ByteCursor) ReadF64() float64 { return math.Float64frombits(c.ReadU64()) }
