package packjson

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type CursorTestSuite struct {
	suite.Suite
}

func (s *CursorTestSuite) TestPrimitiveReads() {
	data := []byte{
		0xAA,
		0xCC, 0xBB,
		0x33, 0x22, 0x11,
		0x00, 0xFF, 0xEE, 0xDD,
		0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01,
		'h', 'i',
	}
	c := NewByteCursor(data)
	s.Assert().EqualValues(0xAA, c.ReadU8())
	s.Assert().EqualValues(0xBBCC, c.ReadU16())
	s.Assert().EqualValues(0x112233, c.ReadU24())
	s.Assert().EqualValues(0xDDEEFF00, c.ReadU32())
	s.Assert().EqualValues(uint64(0x0102030405060708), c.ReadU64())
	s.Assert().Equal("hi", c.ReadString(2))
	s.Require().NoError(c.Err())
	s.Assert().Zero(c.Remaining())
	s.Assert().Equal(len(data), c.Pos())
}

func (s *CursorTestSuite) TestFloats() {
	sink := NewByteSink(0)
	defer sink.Release()
	sink.WriteF32(1.5)
	sink.WriteF64(math.Pi)

	c := NewByteCursor(sink.Bytes())
	s.Assert().Equal(float32(1.5), c.ReadF32())
	s.Assert().Equal(math.Pi, c.ReadF64())
	s.Assert().NoError(c.Err())
}

func (s *CursorTestSuite) TestErrorLatching() {
	c := NewByteCursor([]byte{1, 2, 3})
	s.Assert().Zero(c.ReadU32())
	s.Require().ErrorIs(c.Err(), ErrTruncatedData)
	first := c.Err()

	// Reads after the first failure are no-ops.
	s.Assert().Zero(c.ReadU8())
	s.Assert().Nil(c.ReadBytes(1))
	s.Assert().Same(first, c.Err())
}

func TestCursorTestSuite(t *testing.T) {
	suite.Run(t, new(CursorTestSuite))
}

func TestVLQ(t *testing.T) {
	cases := []struct {
		v    uint64
		size int
	}{
		{0, 1},
		{1, 1},
		{vlqMax1, 1},
		{vlqMax1 + 1, 2},
		{vlqMax2, 2},
		{vlqMax2 + 1, 3},
		{vlqMax3, 3},
		{vlqMax3 + 1, 4},
		{vlqMax4, 4},
		{vlqMax4 + 1, 5},
		{1 << 40, 6},
		{math.MaxUint64, 10},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprint(tc.v), func(t *testing.T) {
			s := NewByteSink(MinChunkSize)
			s.WriteVLQ(tc.v)
			assert.Equal(t, tc.size, s.Len())
			assert.Equal(t, tc.size, vlqLen(tc.v))

			c := NewByteCursor(s.Bytes())
			assert.Equal(t, tc.v, c.ReadVLQ())
			require.NoError(t, c.Err())
			assert.Zero(t, c.Remaining())
		})
	}
}

func TestVLQLayout(t *testing.T) {
	s := NewByteSink(0)
	defer s.Release()
	s.WriteVLQ(5)
	s.WriteVLQ(128)
	assert.Equal(t, []byte{5 << 1, 0x01, 0x02}, s.Bytes())
}

func TestVLQTruncated(t *testing.T) {
	for _, data := range [][]byte{{}, {0x01}, {0x03, 0}, {0x07, 0, 0}, {0x0F, 0, 0, 0}} {
		c := NewByteCursor(data)
		c.ReadVLQ()
		assert.ErrorIs(t, c.Err(), ErrTruncatedData, "% x", data)
	}
}

func TestUintVar(t *testing.T) {
	for _, v := range []uint64{0, 1, 127, 128, 16383, 16384, 1 << 35, math.MaxUint64} {
		s := NewByteSink(0)
		s.WriteUintVar(v)
		assert.Equal(t, uintVarLen(v), s.Len(), "len of %d", v)

		c := NewByteCursor(s.Bytes())
		assert.Equal(t, v, c.ReadUintVar())
		assert.NoError(t, c.Err())
		s.Release()
	}
	assert.Equal(t, []byte{0xAC, 0x02}, func() []byte {
		s := NewByteSink(0)
		s.WriteUintVar(300)
		return s.Bytes()
	}())
}

func TestIntVar(t *testing.T) {
	for _, v := range []int64{0, -1, 1, -64, 64, math.MinInt32, math.MaxInt64, math.MinInt64} {
		s := NewByteSink(0)
		s.WriteIntVar(v)
		assert.Equal(t, intVarLen(v), s.Len(), "len of %d", v)

		c := NewByteCursor(s.Bytes())
		assert.Equal(t, v, c.ReadIntVar())
		assert.NoError(t, c.Err())
		s.Release()
	}
	assert.Equal(t, uint64(1), zigzag(-1))
	assert.Equal(t, uint64(2), zigzag(1))
}

func TestUintVarOverflow(t *testing.T) {
	data := []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01}
	c := NewByteCursor(data)
	c.ReadUintVar()
	assert.ErrorIs(t, c.Err(), ErrMalformed)
}

func TestBits(t *testing.T) {
	for width := 1; width <= 8; width++ {
		vals := make([]uint8, 13)
		for i := range vals {
			vals[i] = uint8(i*7) & uint8(1<<width-1)
		}
		s := NewByteSink(MinChunkSize)
		s.WriteBits(vals, width)
		assert.Equal(t, bitsLen(len(vals), width), s.Len())

		c := NewByteCursor(s.Bytes())
		assert.Equal(t, vals, c.ReadBits(len(vals), width), "width %d", width)
		assert.NoError(t, c.Err())
	}

	t.Run("LSBFirst", func(t *testing.T) {
		s := NewByteSink(0)
		s.WriteBits([]uint8{1, 2, 3}, 2)
		assert.Equal(t, []byte{0b00111001}, s.Bytes())
	})

	t.Run("ZeroWidth", func(t *testing.T) {
		s := NewByteSink(0)
		s.WriteBits([]uint8{0, 0, 0}, 0)
		assert.Zero(t, s.Len())
		assert.Equal(t, []uint8{0, 0, 0}, NewByteCursor(nil).ReadBits(3, 0))
	})

	t.Run("Truncated", func(t *testing.T) {
		c := NewByteCursor([]byte{0xFF})
		assert.Nil(t, c.ReadBits(3, 4))
		assert.ErrorIs(t, c.Err(), ErrTruncatedData)
	})
}
