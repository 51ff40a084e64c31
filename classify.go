package packjson

import (
	"math"
	"strconv"
)

// NumType is the narrowest encoding that represents a number exactly.
// The numeric values are wire IDs and must not change.
type NumType uint8

const (
	Uint8 NumType = iota
	Uint16
	Uint24
	Uint32
	UintVar
	Int8
	Int16
	Int24
	Int32
	IntVar
	Float32
	Float64

	numTypeCount
)

var numTypeNames = [numTypeCount]string{
	"uint8", "uint16", "uint24", "uint32", "uintvar",
	"int8", "int16", "int24", "int32", "intvar",
	"float32", "float64",
}

func (t NumType) String() string {
	if t < numTypeCount {
		return numTypeNames[t]
	}
	return "numtype(" + strconv.Itoa(int(t)) + ")"
}

func (t NumType) IsFloat() bool { return t == Float32 || t == Float64 }

// maxExactInt is the largest magnitude a float64 holds for every integer.
const maxExactInt = 1 << 53

// Classify returns the coarse kind of v and, for numbers, their numeric subtype.
// Non-finite numbers classify as Null.
func Classify(v Value) (Kind, NumType) {
	if v.kind != KindNumber {
		return v.kind, 0
	}
	if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
		return KindNull, 0
	}
	return KindNumber, classifyFloat(v.num)
}

func classifyFloat(f float64) NumType {
	if isExactInt(f) {
		return classifyInt(int64(f))
	}
	if float64(float32(f)) == f {
		return Float32
	}
	return Float64
}

// isExactInt reports whether f is an integer within ±2^53. Negative zero is
// not, so that its sign survives the float path.
func isExactInt(f float64) bool {
	return f == math.Trunc(f) && math.Abs(f) <= maxExactInt && !(f == 0 && math.Signbit(f))
}

func classifyInt(i int64) NumType {
	if i >= 0 {
		switch {
		case i <= math.MaxUint8:
			return Uint8
		case i <= math.MaxUint16:
			return Uint16
		case i <= 1<<24-1:
			return Uint24
		case i <= math.MaxUint32:
			return Uint32
		}
		return UintVar
	}
	switch {
	case i >= math.MinInt8:
		return Int8
	case i >= math.MinInt16:
		return Int16
	case i >= -1<<23:
		return Int24
	case i >= math.MinInt32:
		return Int32
	}
	return IntVar
}

// Element tags. An array's type bitmap has one bit per tag; booleans split
// into false and true so that neither needs payload bytes.
const (
	tagUndefined uint8 = iota
	tagNull
	tagFalse
	tagTrue
	tagString
	tagNumber
	tagArray
	tagObject

	tagCount
)

var tagNames = [tagCount]string{"undefined", "null", "false", "true", "string", "number", "array", "object"}

// tagOf classifies v into its element tag, with the subtype for numbers.
func tagOf(v Value) (uint8, NumType) {
	k, nt := Classify(v)
	switch k {
	case KindNull:
		return tagNull, 0
	case KindBool:
		if v.b {
			return tagTrue, 0
		}
		return tagFalse, 0
	case KindNumber:
		return tagNumber, nt
	case KindString:
		return tagString, 0
	case KindArray:
		return tagArray, 0
	case KindObject:
		return tagObject, 0
	}
	return tagUndefined, 0
}

// Packed kinds are what object entries and the root carry: the element tag
// for non-numbers, and tagCount+subtype for numbers, so the value that
// follows needs no further tag.
func packKind(tag uint8, nt NumType) uint8 {
	if tag == tagNumber {
		return tagCount + uint8(nt)
	}
	return tag
}

func unpackKind(pk uint8) (tag uint8, nt NumType, ok bool) {
	switch {
	case pk == tagNumber:
		return 0, 0, false
	case pk < tagCount:
		return pk, 0, true
	case pk < tagCount+uint8(numTypeCount):
		return tagNumber, NumType(pk - tagCount), true
	}
	return 0, 0, false
}

// rawSize returns the payload size of one number written as t.
func rawSize(t NumType, i int64) int {
	switch t {
	case Uint8, Int8:
		return 1
	case Uint16, Int16:
		return 2
	case Uint24, Int24:
		return 3
	case Uint32, Int32, Float32:
		return 4
	case UintVar:
		return uintVarLen(uint64(i))
	case IntVar:
		return intVarLen(i)
	}
	return 8
}

// writeRaw writes one number as t. Integer subtypes use i, float subtypes f.
func (s *ByteSink) writeRaw(t NumType, i int64, f float64) {
	switch t {
	case Uint8, Int8:
		s.WriteU8(uint8(i))
	case Uint16, Int16:
		s.WriteU16(uint16(i))
	case Uint24, Int24:
		s.WriteU24(uint32(i) & 0xFFFFFF)
	case Uint32, Int32:
		s.WriteU32(uint32(i))
	case UintVar:
		s.WriteUintVar(uint64(i))
	case IntVar:
		s.WriteIntVar(i)
	case Float32:
		s.WriteF32(float32(f))
	case Float64:
		s.WriteF64(f)
	}
}

// readRawInt reads one integer-subtype number.
func (c *ByteCursor) readRawInt(t NumType) int64 {
	switch t {
	case Uint8:
		return int64(c.ReadU8())
	case Uint16:
		return int64(c.ReadU16())
	case Uint24:
		return int64(c.ReadU24())
	case Uint32:
		return int64(c.ReadU32())
	case UintVar:
		return int64(c.ReadUintVar())
	case Int8:
		return int64(int8(c.ReadU8()))
	case Int16:
		return int64(int16(c.ReadU16()))
	case Int24:
		return int64(int32(c.ReadU24()<<8) >> 8)
	case Int32:
		return int64(int32(c.ReadU32()))
	case IntVar:
		return c.ReadIntVar()
	}
	return 0
}

// readRaw reads one number of any subtype as a float64.
func (c *ByteCursor) readRaw(t NumType) float64 {
	switch t {
	case Float32:
		return float64(c.ReadF32())
	case Float64:
		return c.ReadF64()
	}
	return float64(c.readRawInt(t))
}
