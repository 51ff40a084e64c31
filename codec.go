package packjson

import (
	"encoding"
	"io"
)

// Sizer is implemented by types that can report their encoded size.
type Sizer interface {
	// Size returns the size of the type in bytes when encoded.
	Size() int
}

// Marshaler groups the encoding methods.
type Marshaler interface {
	encoding.BinaryMarshaler // MarshalBinary() ([]byte, error)
	// io.WriterTo streams the encoding chunk by chunk.
	io.WriterTo // WriteTo(w io.Writer) (int64, error)

	// MarshalTo encodes into a pre-allocated buffer, returning io.ErrShortWrite
	// if it is too small.
	MarshalTo(buf []byte) (int, error)
}

// Unmarshaler groups the decoding methods.
type Unmarshaler interface {
	encoding.BinaryUnmarshaler // UnmarshalBinary(data []byte) error
	io.ReaderFrom              // ReadFrom(r io.Reader) (int64, error)
}

// Codec aggregates all binary serialization interfaces. Value implements it.
type Codec interface {
	Sizer
	Marshaler
	Unmarshaler
}

var _ Codec = (*Value)(nil)

// Size encodes v and reports the length of the result.
func (v Value) Size() int {
	s := encode(v, newOptions(nil))
	defer s.Release()
	return s.Len()
}

func (v Value) MarshalBinary() ([]byte, error) { return Encode(v), nil }

func (v Value) WriteTo(w io.Writer) (int64, error) { return EncodeTo(w, v) }

func (v Value) MarshalTo(buf []byte) (int, error) { return MarshalToGeneric(v, buf) }

func (v *Value) UnmarshalBinary(data []byte) error {
	d, err := Decode(data)
	if err != nil {
		return err
	}
	*v = d
	return nil
}

// ReadFrom reads r to EOF and decodes it into v. It is not a streaming
// decoder: the whole input is buffered first.
func (v *Value) ReadFrom(r io.Reader) (int64, error) { return ReadFromGeneric(v, r) }
