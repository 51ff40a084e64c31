package packjson

import "io"

// LimitedReader reads from R until N bytes have been consumed, then fails
// with ErrInputTooLarge instead of reporting a clean EOF, so that a cut-off
// input is never mistaken for a complete one.
type LimitedReader struct {
	R io.Reader
	N int64 // bytes still allowed
}

// LimitReader returns a reader that fails once more than n bytes are read from r.
func LimitReader(r io.Reader, n int64) *LimitedReader {
	return &LimitedReader{R: r, N: n}
}

func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.N <= 0 {
		// One probe byte distinguishes EOF at the limit from overflow.
		var probe [1]byte
		n, err := l.R.Read(probe[:])
		if n > 0 {
			return 0, ErrInputTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > l.N {
		p = p[:l.N]
	}
	n, err := l.R.Read(p)
	l.N -= int64(n)
	return n, err
}

// Close closes the underlying reader if it implements io.Closer.
func (l *LimitedReader) Close() error {
	if c, ok := l.R.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
