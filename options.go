package packjson

import "log/slog"

const (
	// DefaultChunkSize is the growth granularity of the output buffer.
	DefaultChunkSize = 64 * 1024
	// MinChunkSize is the smallest accepted chunk size; smaller values are raised to it.
	MinChunkSize = 8
)

// Option configures a single Encode or Decode call.
type Option func(*options)

type options struct {
	chunkSize int
	logger    *slog.Logger
	stats     *Stats
	maxInput  int64
}

var discardLogger = slog.New(slog.DiscardHandler)

// WithChunkSize sets the chunk size the output buffer grows by.
// Zero or negative keeps DefaultChunkSize; values below MinChunkSize are raised to it.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithLogger routes debug records about encoding decisions to l.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithStats accumulates counters into s. A Stats may be shared by concurrent calls.
func WithStats(s *Stats) Option {
	return func(o *options) { o.stats = s }
}

// WithMaxInput makes DecodeFrom fail with ErrInputTooLarge
// once more than n bytes have been read. Zero or negative means no limit.
func WithMaxInput(n int64) Option {
	return func(o *options) { o.maxInput = max(n, 0) }
}

func newOptions(opts []Option) *options {
	o := &options{chunkSize: DefaultChunkSize, logger: discardLogger}
	for _, opt := range opts {
		opt(o)
	}
	if o.chunkSize < MinChunkSize {
		o.chunkSize = MinChunkSize
	}
	return o
}
