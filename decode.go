package packjson

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"golang.org/x/exp/slices"
)

// maxDepth bounds array and object nesting on decode. The objects of an
// array and their columns count with the array, so any tree of at most
// maxDepth nested arrays and objects decodes.
const maxDepth = 10000

// decodeError wraps failures raised deep in the recursive readers. It is
// recovered by Decode and never escapes the package.
type decodeError struct {
	err error
}

type decoder struct {
	c *ByteCursor

	strs    []string
	strRefs []int
	si      int

	headers []arrayHeader
	hdrRefs []int
	hi      int

	slots [][]slotDef
	depth int
}

func (d *decoder) fail(err error) {
	panic(decodeError{err})
}

// check turns the cursor's latched error into a failure.
func (d *decoder) check() {
	if err := d.c.Err(); err != nil {
		d.fail(err)
	}
}

func (d *decoder) nextString() string {
	if d.si >= len(d.strRefs) {
		d.fail(fmt.Errorf("%w: string references exhausted after %d", ErrBadReference, d.si))
	}
	s := d.strs[d.strRefs[d.si]]
	d.si++
	return s
}

func (d *decoder) nextHeader() arrayHeader {
	if d.hi >= len(d.hdrRefs) {
		d.fail(fmt.Errorf("%w: array header references exhausted after %d", ErrBadReference, d.hi))
	}
	h := d.headers[d.hdrRefs[d.hi]]
	d.hi++
	return h
}

func (d *decoder) enter() {
	if d.depth++; d.depth > maxDepth {
		d.fail(fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, maxDepth))
	}
}

func (d *decoder) leave() { d.depth-- }

// Decode parses data produced by Encode. Every byte and every string and
// header reference must be consumed.
func Decode(data []byte, opts ...Option) (Value, error) {
	o := newOptions(opts)
	d := &decoder{c: NewByteCursor(data)}
	v, err := d.decode()
	if err != nil {
		o.logger.Debug("packjson: decode failed", slog.Int("bytes", len(data)), slog.Any("error", err))
		return Value{}, err
	}

	if o.logger.Enabled(context.Background(), slog.LevelDebug) {
		o.logger.Debug("packjson: decoded",
			slog.Int("bytes", len(data)),
			slog.Int("strings", len(d.strs)),
			slog.Int("headers", len(d.headers)),
			slog.String("root", v.Kind().String()),
		)
	}
	if o.stats != nil {
		o.stats.Decodes.Inc()
		o.stats.BytesIn.Add(int64(len(data)))
	}
	return v, nil
}

func (d *decoder) decode() (v Value, err error) {
	if d.c.Remaining() == 0 {
		return Value{}, fmt.Errorf("%w: empty input", ErrTruncatedData)
	}
	defer func() {
		if r := recover(); r != nil {
			de, ok := r.(decodeError)
			if !ok {
				panic(r)
			}
			v, err = Value{}, de.err
		}
	}()

	if d.strs, d.strRefs, err = d.c.readStringSection(); err != nil {
		return Value{}, err
	}
	if d.headers, d.hdrRefs, err = d.c.readHeaderSection(); err != nil {
		return Value{}, err
	}
	pk := d.c.ReadU8()
	d.check()
	v = d.readValue(pk)

	if n := d.c.Remaining(); n > 0 {
		return Value{}, fmt.Errorf("%w: %d bytes left", ErrTrailingData, n)
	}
	if d.si != len(d.strRefs) || d.hi != len(d.hdrRefs) {
		return Value{}, fmt.Errorf("%w: %d of %d string and %d of %d header references used",
			ErrUnconsumedRefs, d.si, len(d.strRefs), d.hi, len(d.hdrRefs))
	}
	return v, nil
}

// DecodeFrom reads r to EOF and decodes the result. The input is bounded by
// WithMaxInput when set.
func DecodeFrom(r io.Reader, opts ...Option) (v Value, err error) {
	o := newOptions(opts)
	_, err = readAll(r, o.maxInput, func(data []byte) error {
		v, err = Decode(data, opts...)
		return err
	})
	return v, err
}

// readValue reads the payload of a value whose packed kind is pk.
func (d *decoder) readValue(pk uint8) Value {
	tag, nt, ok := unpackKind(pk)
	if !ok {
		d.fail(fmt.Errorf("%w: packed kind %d", ErrBadTag, pk))
	}
	switch tag {
	case tagNull:
		return Null()
	case tagFalse:
		return Bool(false)
	case tagTrue:
		return Bool(true)
	case tagString:
		return String(d.nextString())
	case tagNumber:
		f := d.c.readRaw(nt)
		d.check()
		return Number(f)
	case tagArray:
		return d.readArray()
	case tagObject:
		d.enter()
		defer d.leave()
		return Object(d.readEntries()...)
	}
	return Undefined()
}

// readArray reads one array written by writeArray.
func (d *decoder) readArray() Value {
	d.enter()
	defer d.leave()
	return d.readElems()
}

// readElems reads an array body without counting a nesting level.
func (d *decoder) readElems() Value {
	h := d.nextHeader()
	n64 := d.c.ReadVLQ()
	d.check()
	if n64 > math.MaxInt32 {
		d.fail(fmt.Errorf("%w: array of %d elements", ErrMalformed, n64))
	}
	n := int(n64)

	var order []uint8 // tags present, ascending
	for t := range tagCount {
		if h.has(t) {
			order = append(order, t)
		}
	}
	var tags []uint8
	switch {
	case n == 0:
	case len(order) == 0:
		d.fail(fmt.Errorf("%w: %d elements with no types", ErrMalformed, n))
	case len(order) == 1:
		tags = make([]uint8, n)
		for i := range tags {
			tags[i] = order[0]
		}
	default:
		// The packed index is bounds-checked against the input before
		// anything is allocated for it.
		tags = d.c.ReadBits(n, bitsFor(len(order)))
		d.check()
		for i, r := range tags {
			if int(r) >= len(order) {
				d.fail(fmt.Errorf("%w: type index %d of %d", ErrBadTag, r, len(order)))
			}
			tags[i] = order[r]
		}
	}

	var counts [tagCount]int
	for _, t := range tags {
		counts[t]++
	}
	elems := make([]Value, n)
	for i, t := range tags {
		switch t {
		case tagNull:
			elems[i] = Null()
		case tagFalse:
			elems[i] = Bool(false)
		case tagTrue:
			elems[i] = Bool(true)
		case tagString:
			elems[i] = String(d.nextString())
		}
	}

	if counts[tagNumber] > 0 {
		nums, err := d.c.readNumPayload(h.num, counts[tagNumber])
		if err != nil {
			d.fail(err)
		}
		d.check()
		d.place(elems, tags, tagNumber, func(k int) Value { return Number(nums[k]) })
	}

	if counts[tagArray] > 0 {
		if h.flagMode && h.flags&flagFlatten != 0 {
			subs := d.readFlattened(counts[tagArray])
			d.place(elems, tags, tagArray, func(k int) Value { return subs[k] })
		} else {
			for i, t := range tags {
				if t == tagArray {
					elems[i] = d.readArray()
				}
			}
		}
	}

	if counts[tagObject] > 0 {
		objs := d.readObjects(h, counts[tagObject])
		d.place(elems, tags, tagObject, func(k int) Value { return objs[k] })
	}
	return Value{kind: KindArray, elems: elems}
}

// place stores the k-th value of kind tag into its element slot.
func (d *decoder) place(elems []Value, tags []uint8, tag uint8, at func(k int) Value) {
	k := 0
	for i, t := range tags {
		if t == tag {
			elems[i] = at(k)
			k++
		}
	}
}

// readFlattened reads count sub-arrays stored as a lengths array followed by
// their concatenated numbers.
func (d *decoder) readFlattened(count int) []Value {
	lengths, err := d.c.readUints()
	if err != nil {
		d.fail(err)
	}
	flat, err := d.c.readNumbers()
	if err != nil {
		d.fail(err)
	}
	if len(lengths) != count {
		d.fail(fmt.Errorf("%w: %d flattened lengths for %d arrays", ErrMalformed, len(lengths), count))
	}
	subs := make([]Value, count)
	off := 0
	for i, l := range lengths {
		if l > len(flat)-off {
			d.fail(fmt.Errorf("%w: flattened array %d overruns its values", ErrMalformed, i))
		}
		sub := make([]Value, l)
		for j := range sub {
			sub[j] = Number(flat[off+j])
		}
		subs[i] = Value{kind: KindArray, elems: sub}
		off += l
	}
	if off != len(flat) {
		d.fail(fmt.Errorf("%w: %d flattened values left over", ErrMalformed, len(flat)-off))
	}
	return subs
}

// readObjects reads the count objects of one array: inline entry lists,
// then the column block. Members are merged back into discovery order.
func (d *decoder) readObjects(h arrayHeader, count int) []Value {
	members := make([][]Member, count)
	if h.flags&flagInline != 0 {
		for i := range members {
			members[i] = d.readEntries()
		}
	}
	if h.flags&flagColumns != 0 {
		nkeys := d.c.ReadVLQ()
		d.check()
		if nkeys > uint64(len(d.strRefs)-d.si) {
			d.fail(fmt.Errorf("%w: %d column keys", ErrMalformed, nkeys))
		}
		marks := d.c.ReadBits(int(nkeys), 1)
		d.check()
		keys := make([]string, nkeys)
		index := make(map[string]int, nkeys)
		for k := range keys {
			keys[k] = d.nextString()
			index[keys[k]] = k
		}
		for k, m := range marks {
			if m == 0 {
				continue
			}
			col := d.readElems()
			if len(col.elems) != count {
				d.fail(fmt.Errorf("%w: column %q holds %d values for %d objects", ErrMalformed, keys[k], len(col.elems), count))
			}
			for i, v := range col.elems {
				if !v.IsUndefined() {
					members[i] = append(members[i], Member{Key: keys[k], Value: v})
				}
			}
		}
		if h.flags&flagInline != 0 {
			pos := func(key string) int {
				if k, ok := index[key]; ok {
					return k
				}
				return len(keys)
			}
			for _, ms := range members {
				slices.SortStableFunc(ms, func(a, b Member) int { return pos(a.Key) - pos(b.Key) })
			}
		}
	}

	objs := make([]Value, count)
	for i, ms := range members {
		objs[i] = Object(ms...)
	}
	return objs
}
