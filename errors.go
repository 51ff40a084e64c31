package packjson

import "errors"

var (
	// ErrNilIO indicates that EncodeTo/DecodeFrom was called with a nil io.Writer/io.Reader.
	ErrNilIO = errors.New("packjson: EncodeTo/DecodeFrom called with a nil io.Writer/io.Reader")

	// ErrTruncatedData indicates that a read could not complete because the input
	// ended before all expected bytes were read.
	ErrTruncatedData = errors.New("packjson: truncated data")

	// ErrInputTooLarge is returned by DecodeFrom when the reader yields more bytes
	// than WithMaxInput allows.
	ErrInputTooLarge = errors.New("packjson: input exceeds size limit")

	// ErrTrailingData is returned by Decode when bytes remain after the root value.
	ErrTrailingData = errors.New("packjson: end of input not reached")

	// ErrUnconsumedRefs is returned by Decode when the string or array-header reference
	// sequences hold more entries than the structure section used.
	ErrUnconsumedRefs = errors.New("packjson: unconsumed references after decoding")

	// ErrBadTag indicates an unknown kind, entry tag or numeric method in the input.
	ErrBadTag = errors.New("packjson: invalid tag")

	// ErrBadReference indicates a string, header or slot reference that points outside
	// its table.
	ErrBadReference = errors.New("packjson: reference out of range")

	// ErrMalformed indicates structurally inconsistent input, such as a column whose
	// length differs from its object count.
	ErrMalformed = errors.New("packjson: malformed data")
)
