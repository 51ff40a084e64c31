package packjson

import (
	"encoding/binary"
	"io"
	"math"
)

// ByteSink is a growable, append-only byte buffer. It allocates fixed-size
// chunks instead of reallocating one slice, and concatenates them on Bytes.
type ByteSink struct {
	done  [][]byte // filled chunks
	cur   []byte   // active chunk; len is the used part
	size  int
	count int
}

// NewByteSink returns a sink growing by chunkSize bytes.
// Zero or negative selects DefaultChunkSize, and anything below MinChunkSize is raised to it.
func NewByteSink(chunkSize int) *ByteSink {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkSize < MinChunkSize {
		chunkSize = MinChunkSize
	}
	return &ByteSink{size: chunkSize}
}

func (s *ByteSink) grow() {
	if s.cur != nil {
		s.done = append(s.done, s.cur)
	}
	if s.size == DefaultChunkSize {
		s.cur = (*chunkPool.Get().(*[]byte))[:0]
		return
	}
	s.cur = make([]byte, 0, s.size)
}

// Len returns the number of bytes written so far.
func (s *ByteSink) Len() int { return s.count }

// ChunkSize returns the growth granularity of the sink.
func (s *ByteSink) ChunkSize() int { return s.size }

// Chunks returns the number of chunks allocated so far.
func (s *ByteSink) Chunks() int {
	if s.cur == nil {
		return len(s.done)
	}
	return len(s.done) + 1
}

// write appends p, splitting it across chunk boundaries when needed.
func (s *ByteSink) write(p []byte) {
	s.count += len(p)
	for len(p) > 0 {
		if len(s.cur) == cap(s.cur) {
			s.grow()
		}
		k := min(cap(s.cur)-len(s.cur), len(p))
		s.cur = append(s.cur, p[:k]...)
		p = p[k:]
	}
}

// Write implements io.Writer. It never fails.
func (s *ByteSink) Write(p []byte) (int, error) {
	s.write(p)
	return len(p), nil
}

// WriteBytes appends p.
func (s *ByteSink) WriteBytes(p []byte) { s.write(p) }

// WriteString appends the bytes of str.
func (s *ByteSink) WriteString(str string) {
	s.count += len(str)
	for len(str) > 0 {
		if len(s.cur) == cap(s.cur) {
			s.grow()
		}
		k := min(cap(s.cur)-len(s.cur), len(str))
		s.cur = append(s.cur, str[:k]...)
		str = str[k:]
	}
}

// WriteSink appends everything written to o.
func (s *ByteSink) WriteSink(o *ByteSink) {
	for _, c := range o.done {
		s.write(c)
	}
	s.write(o.cur)
}

// --- Primitive Write Operations ---

func (s *ByteSink) WriteU8(v uint8) {
	if len(s.cur) == cap(s.cur) {
		s.grow()
	}
	s.cur = append(s.cur, v)
	s.count++
}

func (s *ByteSink) WriteU16(v uint16) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	s.write(buf[:])
}

func (s *ByteSink) WriteU24(v uint32) {
	buf := [3]byte{byte(v), byte(v >> 8), byte(v >> 16)}
	s.write(buf[:])
}

func (s *ByteSink) WriteU32(v uint32) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	s.write(buf[:])
}

func (s *ByteSink) WriteU64(v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	s.write(buf[:])
}

func (s *ByteSink) WriteF32(v float32) { s.WriteU32(math.Float32bits(v)) }
func (s *ByteSink) WriteF64(v float64) { s.WriteU64(math.Float64bits(v)) }

// Bytes returns the concatenation of all chunks as one slice.
func (s *ByteSink) Bytes() []byte {
	out := make([]byte, 0, s.count)
	for _, c := range s.done {
		out = append(out, c...)
	}
	return append(out, s.cur...)
}

// WriteTo flushes the sink chunk by chunk to w without concatenating.
func (s *ByteSink) WriteTo(w io.Writer) (int64, error) {
	if w == nil {
		return 0, ErrNilIO
	}
	var n int64
	for _, c := range s.done {
		k, err := w.Write(c)
		n += int64(k)
		if err != nil {
			return n, err
		}
	}
	k, err := w.Write(s.cur)
	n += int64(k)
	return n, err
}

// Release returns pooled chunks and resets the sink. The sink must not be
// read after Release; it may be written again.
func (s *ByteSink) Release() {
	if s.size == DefaultChunkSize {
		for _, c := range s.done {
			c = c[:0]
			chunkPool.Put(&c)
		}
		if s.cur != nil {
			c := s.cur[:0]
			chunkPool.Put(&c)
		}
	}
	s.done, s.cur, s.count = nil, nil, 0
}
