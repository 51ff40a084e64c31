package packjson

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// --- Helpers ---

// sampleDoc exercises every codec path: columns with holes, inline entries,
// flattened and nested arrays, mixed element types and repeated strings.
func sampleDoc() Value {
	var rows []Value
	for i := range 50 {
		row := []Member{
			M("id", Number(float64(i))),
			M("name", String(fmt.Sprintf("user-%d", i%7))),
			M("score", Number(float64(i)*0.5)),
		}
		if i%5 == 0 {
			row = append(row, M("tags", Array(String("admin"), String("ops"))))
		}
		rows = append(rows, Object(row...))
	}
	return Object(
		M("version", Number(3)),
		M("title", String("packjson sample")),
		M("rows", Array(rows...)),
		M("matrix", Array(
			Array(Number(1), Number(2), Number(3)),
			Array(Number(4), Number(5)),
			Array(),
		)),
		M("mixed", Array(Null(), Bool(true), Bool(false), String("s"), Number(-7), Number(1.5), Undefined(), Object())),
		M("nested", Object(M("deep", Object(M("deeper", Array(Object(M("k", String("v"))))))))),
	)
}

type sections struct {
	strs    []string
	strRefs []int
	headers []arrayHeader
	hdrRefs []int
	root    uint8
}

func readSections(t require.TestingT, data []byte) sections {
	var s sections
	var err error
	c := NewByteCursor(data)
	s.strs, s.strRefs, err = c.readStringSection()
	require.NoError(t, err)
	s.headers, s.hdrRefs, err = c.readHeaderSection()
	require.NoError(t, err)
	s.root = c.ReadU8()
	require.NoError(t, c.Err())
	return s
}

// --- Codec Test Suite ---

type CodecTestSuite struct {
	suite.Suite
}

func (s *CodecTestSuite) roundTrip(v Value, opts ...Option) []byte {
	data := Encode(v, opts...)
	got, err := Decode(data)
	s.Require().NoError(err)
	s.Require().True(v.Equal(got), "want %s\ngot  %s", v, got)
	return data
}

func (s *CodecTestSuite) TestNull() {
	data := s.roundTrip(Null())
	s.Assert().Equal([]byte{0, 0, 0, 0, 0, 0, tagNull}, data)
}

func (s *CodecTestSuite) TestScalars() {
	for _, v := range []Value{
		Undefined(), Bool(true), Bool(false),
		String(""), String("hello"), String("日本語 🙂"),
		Number(0), Number(math.Copysign(0, -1)), Number(0.1), Number(-2.5),
		Number(math.MaxFloat64), Number(math.SmallestNonzeroFloat64),
		Number(1 << 53), Number(-(1 << 53)),
	} {
		s.Run(v.String(), func() { s.roundTrip(v) })
	}
}

func (s *CodecTestSuite) TestSubtypeBoundaries() {
	for _, b := range []float64{0xFF, 0xFFFF, 0xFFFFFF, 0xFFFFFFFF} {
		for _, f := range []float64{b, b + 1, -b, -b - 1} {
			s.Run(strconv.FormatFloat(f, 'f', -1, 64), func() {
				s.roundTrip(Number(f))
				s.roundTrip(Array(Number(f), Number(f), Number(1)))
			})
		}
	}
}

func (s *CodecTestSuite) TestBigInteger() {
	data := s.roundTrip(Number(12345678901))
	sec := readSections(s.T(), data)
	s.Assert().Equal(packKind(tagNumber, UintVar), sec.root)
}

func (s *CodecTestSuite) TestRepeatedStringStoredOnce() {
	data := s.roundTrip(Array(String("a"), String("a"), String("a")))
	sec := readSections(s.T(), data)
	s.Assert().Equal([]string{"a"}, sec.strs)
	s.Assert().Equal([]int{0, 0, 0}, sec.strRefs)
}

func (s *CodecTestSuite) TestStringsSharedAcrossTree() {
	v := Object(
		M("status", String("status")),
		M("list", Array(String("status"), Object(M("status", String("ok"))))),
	)
	data := s.roundTrip(v)
	sec := readSections(s.T(), data)
	s.Assert().ElementsMatch([]string{"status", "list", "ok"}, sec.strs)
}

func (s *CodecTestSuite) TestUniformObjects() {
	v := Array(
		Object(M("x", Number(1)), M("y", Number(2))),
		Object(M("x", Number(3)), M("y", Number(4))),
	)
	data := s.roundTrip(v)
	sec := readSections(s.T(), data)
	root := sec.headers[sec.hdrRefs[0]]
	s.Assert().True(root.flagMode)
	s.Assert().Equal(flagColumns, root.flags)
	// Both columns hold two small integers and share one header.
	s.Assert().Len(sec.headers, 2)
	s.Assert().Equal([]int{0, 1, 1}, sec.hdrRefs)
}

func (s *CodecTestSuite) TestDivergentObjects() {
	s.roundTrip(Array(
		Object(M("a", Number(1)), M("b", Number(2))),
		Object(M("b", Number(3)), M("a", Number(4))),
		Object(M("c", Null())),
		Object(),
		Object(M("a", String("x")), M("d", Array(Number(1)))),
	))
}

func (s *CodecTestSuite) TestColumnsWithInlineKeys() {
	v := Array(
		Object(M("id", Number(1)), M("name", String("a"))),
		Object(M("id", Number(2)), M("name", String("b")), M("extra", Bool(true))),
		Object(M("id", Number(3)), M("name", String("c"))),
	)
	data := s.roundTrip(v)
	sec := readSections(s.T(), data)
	root := sec.headers[sec.hdrRefs[0]]
	s.Assert().Equal(flagColumns|flagInline, root.flags)
}

func (s *CodecTestSuite) TestKeyOrderPreserved() {
	v := Object(M("zebra", Number(1)), M("apple", Number(2)), M("mango", Number(3)))
	s.roundTrip(v)
	s.roundTrip(Array(v, v, v))
}

func (s *CodecTestSuite) TestUndefinedMembersOmitted() {
	in := Array(
		Object(M("a", Number(1)), M("u", Undefined())),
		Object(M("a", Number(2))),
	)
	want := Array(Object(M("a", Number(1))), Object(M("a", Number(2))))
	got, err := Decode(Encode(in))
	s.Require().NoError(err)
	s.Assert().True(want.Equal(got), "got %s", got)
}

func (s *CodecTestSuite) TestHoles() {
	s.roundTrip(Array(Undefined(), Undefined()))
	s.roundTrip(Array(Number(1), Undefined(), Number(3)))
	s.roundTrip(Array(Null(), Undefined(), Null()))
}

func (s *CodecTestSuite) TestNonFinite() {
	got, err := Decode(Encode(Array(Number(math.NaN()), Number(math.Inf(1)), Number(1))))
	s.Require().NoError(err)
	s.Assert().Equal("[null,null,1]", got.String())
}

func (s *CodecTestSuite) TestArrays() {
	for name, v := range map[string]Value{
		"empty":        Array(),
		"progression":  Array(Number(1), Number(2), Number(3), Number(4), Number(5)),
		"geometric":    Array(Number(1), Number(2), Number(4), Number(8), Number(16)),
		"mixed":        Array(Number(1), String("a"), Null(), Bool(true), Bool(false), Array(Number(1)), Object(M("a", Number(1)))),
		"flattened":    Array(Array(Number(1), Number(2)), Array(Number(3)), Array()),
		"emptyNested":  Array(Array(), Array()),
		"notFlattened": Array(Array(Number(1), String("a")), Array(Number(2))),
		"floats":       Array(Number(0.1), Number(0.25), Number(-1e300)),
		"strings":      Array(String("x"), String("y"), String("x")),
		"booleans":     Array(Bool(true), Bool(false), Bool(true)),
		"oneObject":    Array(Object(M("k", String("v")))),
		"emptyObjects": Array(Object(), Object()),
	} {
		s.Run(name, func() { s.roundTrip(v) })
	}
}

func (s *CodecTestSuite) TestProgressionPath() {
	stats := NewStats()
	s.roundTrip(Array(Number(1), Number(2), Number(3), Number(4), Number(5)), WithStats(stats))
	s.Assert().EqualValues(1, stats.Numeric("progression"))

	s.roundTrip(Array(Number(1), Number(2), Number(4), Number(8), Number(16)), WithStats(stats))
	s.Assert().EqualValues(1, stats.Numeric("progression"))
	s.Assert().EqualValues(1, stats.Numeric("delta+nibble"))
}

func (s *CodecTestSuite) TestLargeIntegerRun() {
	ints := make([]Value, 100000)
	strs := make([]Value, len(ints))
	for i := range ints {
		ints[i] = Number(float64(i))
		strs[i] = String(strconv.Itoa(i))
	}
	data := s.roundTrip(Array(ints...))
	s.Assert().Less(len(data), len(Encode(Array(strs...))))
	s.Assert().Less(len(data), 32)
}

func (s *CodecTestSuite) TestHeaderDedup() {
	v := Array(
		Array(String("a"), String("b")),
		Null(),
		Array(String("c"), String("d")),
	)
	data := s.roundTrip(v)
	sec := readSections(s.T(), data)
	s.Assert().Len(sec.headers, 2)
	s.Assert().Equal([]int{0, 1, 1}, sec.hdrRefs)
}

func (s *CodecTestSuite) TestSlotKinds() {
	s.roundTrip(Array(
		Array(Object(M("a", Number(1)), M("b", Null()))),
		Array(Object(M("a", String("x")), M("b", Null()))),
		Array(Object(M("b", Null()), M("a", Number(2)))),
		Array(Object(M("a", Number(3)), M("b", Null()))),
	))
}

func (s *CodecTestSuite) TestDeepNesting() {
	v := Number(1)
	for i := range 500 {
		if i%2 == 0 {
			v = Array(v)
		} else {
			v = Object(M("k", v))
		}
	}
	s.roundTrip(v)
}

func (s *CodecTestSuite) TestTooDeep() {
	v := Array()
	for range maxDepth + 1 {
		v = Array(v)
	}
	_, err := Decode(Encode(v))
	s.Assert().ErrorIs(err, ErrMalformed)
}

func (s *CodecTestSuite) TestDeepArraysOfObjects() {
	v := Null()
	for range maxDepth - 1 {
		v = Array(Object(M("k", v)), Object(M("k", Null())))
	}
	s.roundTrip(v)

	inline := Null()
	for range maxDepth - 1 {
		inline = Array(Object(M("k", inline)))
	}
	s.roundTrip(inline)

	objects := Null()
	for range maxDepth {
		objects = Object(M("k", objects))
	}
	s.roundTrip(objects)
}

func (s *CodecTestSuite) TestSampleDocument() {
	s.roundTrip(sampleDoc())
	s.roundTrip(sampleDoc(), WithChunkSize(MinChunkSize))
}

func (s *CodecTestSuite) TestDeterminism() {
	doc := sampleDoc()
	first := Encode(doc)
	s.Assert().Equal(first, Encode(doc))
	s.Assert().Equal(first, Encode(doc, WithChunkSize(16)))

	m := map[string]any{"b": []any{1, "x", true}, "a": map[string]any{"z": nil, "y": 2.5}}
	s.Assert().Equal(Encode(FromAny(m)), Encode(FromAny(m)))
}

func (s *CodecTestSuite) TestConcurrentEncodes() {
	doc := sampleDoc()
	want := Encode(doc)

	var wg sync.WaitGroup
	results := make([][]byte, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = Encode(doc)
		}()
	}
	wg.Wait()
	for _, got := range results {
		s.Assert().Equal(want, got)
	}
}

func (s *CodecTestSuite) TestStreams() {
	doc := sampleDoc()
	var buf bytes.Buffer
	n, err := EncodeTo(&buf, doc)
	s.Require().NoError(err)
	s.Assert().EqualValues(buf.Len(), n)
	s.Assert().Equal(Encode(doc), buf.Bytes())

	got, err := DecodeFrom(&buf)
	s.Require().NoError(err)
	s.Assert().True(doc.Equal(got))

	_, err = EncodeTo(nil, doc)
	s.Assert().ErrorIs(err, ErrNilIO)
	_, err = DecodeFrom(nil)
	s.Assert().ErrorIs(err, ErrNilIO)
}

func (s *CodecTestSuite) TestMaxInput() {
	data := Encode(sampleDoc())
	_, err := DecodeFrom(bytes.NewReader(data), WithMaxInput(int64(len(data)-1)))
	s.Assert().ErrorIs(err, ErrInputTooLarge)

	got, err := DecodeFrom(bytes.NewReader(data), WithMaxInput(int64(len(data))))
	s.Require().NoError(err)
	s.Assert().True(sampleDoc().Equal(got))
}

func TestCodecTestSuite(t *testing.T) {
	suite.Run(t, new(CodecTestSuite))
}

// --- Decode errors ---

func TestDecodeErrors(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		_, err := Decode(nil)
		assert.ErrorIs(t, err, ErrTruncatedData)
	})

	t.Run("Truncated", func(t *testing.T) {
		data := Encode(sampleDoc())
		for cut := 0; cut < len(data); cut++ {
			_, err := Decode(data[:cut])
			require.Error(t, err, "cut at %d of %d", cut, len(data))
		}
	})

	t.Run("TrailingData", func(t *testing.T) {
		data := append(Encode(Array(Number(1), String("x"))), 0)
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrTrailingData)
	})

	t.Run("BareNumberKind", func(t *testing.T) {
		data := Encode(Null())
		data[len(data)-1] = tagNumber
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrBadTag)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		data := Encode(Null())
		data[len(data)-1] = 0xEE
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrBadTag)
	})

	t.Run("UnconsumedStringRef", func(t *testing.T) {
		s := NewByteSink(0)
		s.WriteVLQ(1)
		s.WriteString("a")
		s.writeUints([]int{1 << 2})
		s.writeUints(nil)
		s.writeUints([]int{0})
		s.writeUints(nil)
		s.writeUints(nil)
		s.WriteU8(tagNull)
		_, err := Decode(s.Bytes())
		assert.ErrorIs(t, err, ErrUnconsumedRefs)
	})

	t.Run("MissingHeaderRef", func(t *testing.T) {
		s := NewByteSink(0)
		s.WriteVLQ(0)
		s.writeUints(nil)
		s.writeUints(nil)
		s.writeUints(nil)
		s.writeUints(nil)
		s.writeUints(nil)
		s.WriteU8(tagArray)
		s.WriteVLQ(0)
		_, err := Decode(s.Bytes())
		assert.ErrorIs(t, err, ErrBadReference)
	})
}

// --- Codec interfaces ---

func TestValueCodec(t *testing.T) {
	doc := sampleDoc()

	data, err := doc.MarshalBinary()
	require.NoError(t, err)
	assert.Equal(t, len(data), doc.Size())

	var got Value
	require.NoError(t, got.UnmarshalBinary(data))
	assert.True(t, doc.Equal(got))

	t.Run("WriteToReadFrom", func(t *testing.T) {
		var buf bytes.Buffer
		n, err := doc.WriteTo(&buf)
		require.NoError(t, err)
		assert.EqualValues(t, len(data), n)

		var back Value
		m, err := back.ReadFrom(&buf)
		require.NoError(t, err)
		assert.EqualValues(t, n, m)
		assert.True(t, doc.Equal(back))
	})

	t.Run("MarshalTo", func(t *testing.T) {
		buf := make([]byte, doc.Size())
		n, err := doc.MarshalTo(buf)
		require.NoError(t, err)
		assert.Equal(t, data, buf[:n])

		_, err = doc.MarshalTo(make([]byte, 3))
		assert.ErrorIs(t, err, io.ErrShortWrite)
	})

	t.Run("UnmarshalError", func(t *testing.T) {
		var v Value
		assert.ErrorIs(t, v.UnmarshalBinary(data[:len(data)-1]), ErrTruncatedData)
	})
}
