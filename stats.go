package packjson

import (
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/exp/slices"
)

// Stats accumulates counters across encode and decode calls. It is safe for
// concurrent use and may be shared by any number of goroutines through
// WithStats.
type Stats struct {
	Encodes        *xsync.Counter
	Decodes        *xsync.Counter
	BytesOut       *xsync.Counter
	BytesIn        *xsync.Counter
	ColumnsKept    *xsync.Counter
	ColumnsDropped *xsync.Counter

	numeric *xsync.Map[string, *xsync.Counter]
}

func NewStats() *Stats {
	return &Stats{
		Encodes:        xsync.NewCounter(),
		Decodes:        xsync.NewCounter(),
		BytesOut:       xsync.NewCounter(),
		BytesIn:        xsync.NewCounter(),
		ColumnsKept:    xsync.NewCounter(),
		ColumnsDropped: xsync.NewCounter(),
		numeric:        xsync.NewMap[string, *xsync.Counter](),
	}
}

func (s *Stats) recordNumeric(method string) {
	c, ok := s.numeric.Load(method)
	if !ok {
		c, _ = s.numeric.LoadOrStore(method, xsync.NewCounter())
	}
	c.Inc()
}

// Numeric returns how many numeric runs were encoded with the named method,
// e.g. "typed", "delta+nibble" or "progression".
func (s *Stats) Numeric(method string) int64 {
	if c, ok := s.numeric.Load(method); ok {
		return c.Value()
	}
	return 0
}

// NumericMethods returns the per-method run counts observed so far.
func (s *Stats) NumericMethods() map[string]int64 {
	out := make(map[string]int64)
	s.numeric.Range(func(k string, c *xsync.Counter) bool {
		out[k] = c.Value()
		return true
	})
	return out
}

// Methods lists the numeric methods observed so far, sorted.
func (s *Stats) Methods() []string {
	var keys []string
	s.numeric.Range(func(k string, _ *xsync.Counter) bool {
		keys = append(keys, k)
		return true
	})
	slices.Sort(keys)
	return keys
}
