package packjson

import (
	"encoding/binary"
	"fmt"
	"math/bits"
)

// VLQ size classes. The low bits of the first byte select the width:
//
//	xxxxxxx0                      1 byte,  7 bits
//	xxxxxx01 xxxxxxxx             2 bytes, 14 bits
//	xxxxx011 xxxxxxxx xxxxxxxx    3 bytes, 21 bits
//	xxxx0111 + 3 bytes            4 bytes, 28 bits
//	xxxx1111 + 3 bytes + UintVar  4 bytes, 28 low bits, rest follows
const (
	vlqMax1 = 1<<7 - 1
	vlqMax2 = 1<<14 - 1
	vlqMax3 = 1<<21 - 1
	vlqMax4 = 1<<28 - 1
)

// WriteVLQ writes v using the size-class encoding above.
func (s *ByteSink) WriteVLQ(v uint64) {
	switch {
	case v <= vlqMax1:
		s.WriteU8(uint8(v << 1))
	case v <= vlqMax2:
		s.WriteU16(uint16(v<<2 | 0b01))
	case v <= vlqMax3:
		s.WriteU24(uint32(v<<3 | 0b011))
	case v <= vlqMax4:
		s.WriteU32(uint32(v<<4 | 0b0111))
	default:
		s.WriteU32(uint32((v&vlqMax4)<<4 | 0b1111))
		s.WriteUintVar(v >> 28)
	}
}

// ReadVLQ reads a value written by WriteVLQ.
func (c *ByteCursor) ReadVLQ() uint64 {
	b0 := c.ReadU8()
	switch {
	case b0&0b1 == 0:
		return uint64(b0 >> 1)
	case b0&0b10 == 0:
		return (uint64(b0) | uint64(c.ReadU8())<<8) >> 2
	case b0&0b100 == 0:
		p := c.next(2)
		if p == nil {
			return 0
		}
		return (uint64(b0) | uint64(p[0])<<8 | uint64(p[1])<<16) >> 3
	}
	p := c.next(3)
	if p == nil {
		return 0
	}
	v := (uint64(b0) | uint64(p[0])<<8 | uint64(p[1])<<16 | uint64(p[2])<<24) >> 4
	if b0&0b1000 != 0 {
		v |= c.ReadUintVar() << 28
	}
	return v
}

// vlqLen returns the number of bytes WriteVLQ uses for v.
func vlqLen(v uint64) int {
	switch {
	case v <= vlqMax1:
		return 1
	case v <= vlqMax2:
		return 2
	case v <= vlqMax3:
		return 3
	case v <= vlqMax4:
		return 4
	}
	return 4 + uintVarLen(v>>28)
}

// WriteUintVar writes v as a little-endian base-128 varint, bit 7 marking continuation.
func (s *ByteSink) WriteUintVar(v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	s.write(buf[:n])
}

// ReadUintVar reads a value written by WriteUintVar.
func (c *ByteCursor) ReadUintVar() uint64 {
	if c.err != nil {
		return 0
	}
	v, n := binary.Uvarint(c.b[c.pos:])
	if n <= 0 {
		if n == 0 {
			c.setError(fmt.Errorf("%w: varint at offset %d", ErrTruncatedData, c.pos))
		} else {
			c.setError(fmt.Errorf("%w: varint at offset %d overflows 64 bits", ErrMalformed, c.pos))
		}
		c.pos = len(c.b)
		return 0
	}
	c.pos += n
	return v
}

// WriteIntVar zig-zags v (sign in bit 0) and writes it as a UintVar.
func (s *ByteSink) WriteIntVar(v int64) { s.WriteUintVar(zigzag(v)) }

// ReadIntVar reads a value written by WriteIntVar.
func (c *ByteCursor) ReadIntVar() int64 { return unzigzag(c.ReadUintVar()) }

func zigzag(v int64) uint64   { return uint64(v<<1) ^ uint64(v>>63) }
func unzigzag(u uint64) int64 { return int64(u>>1) ^ -int64(u&1) }

func uintVarLen(v uint64) int { return (bits.Len64(v|1) + 6) / 7 }
func intVarLen(v int64) int   { return uintVarLen(zigzag(v)) }

// WriteBits packs each value in width bits, least significant bit first, and
// pads the final byte with zeros. A zero width writes nothing.
func (s *ByteSink) WriteBits(vals []uint8, width int) {
	if width == 0 {
		return
	}
	var acc uint64
	var nb int
	for _, v := range vals {
		acc |= uint64(v) << nb
		nb += width
		for nb >= 8 {
			s.WriteU8(uint8(acc))
			acc >>= 8
			nb -= 8
		}
	}
	if nb > 0 {
		s.WriteU8(uint8(acc))
	}
}

// ReadBits unpacks n values of width bits written by WriteBits.
// It returns nil and latches ErrTruncatedData when the input is too short.
func (c *ByteCursor) ReadBits(n, width int) []uint8 {
	if c.err != nil {
		return nil
	}
	if need := ceilDiv(n*width, 8); need > c.Remaining() {
		c.setError(fmt.Errorf("%w: need %d bytes of %d-bit values at offset %d", ErrTruncatedData, need, width, c.pos))
		return nil
	}
	out := make([]uint8, n)
	if width == 0 {
		return out
	}
	mask := uint64(1)<<width - 1
	var acc uint64
	var nb int
	for i := range out {
		for nb < width {
			acc |= uint64(c.b[c.pos]) << nb
			c.pos++
			nb += 8
		}
		out[i] = uint8(acc & mask)
		acc >>= width
		nb -= width
	}
	return out
}

// bitsLen returns the byte length of n values packed at width bits.
func bitsLen(n, width int) int { return ceilDiv(n*width, 8) }
