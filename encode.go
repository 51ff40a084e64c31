package packjson

import (
	"context"
	"io"
	"log/slog"
)

// encoder owns every dictionary of one Encode call.
type encoder struct {
	out     *ByteSink // structure section
	strs    stringDict
	headers headerTable
	slots   slotTable
	opts    *options
}

// Encode serializes v. It never fails: values with no JSON form encode as
// Undefined and non-finite numbers as null. Trees nested deeper than 10000
// arrays and objects still encode, but Decode rejects them.
func Encode(v Value, opts ...Option) []byte {
	s := encode(v, newOptions(opts))
	defer s.Release()
	return s.Bytes()
}

// EncodeTo serializes v and writes it to w chunk by chunk.
func EncodeTo(w io.Writer, v Value, opts ...Option) (int64, error) {
	if w == nil {
		return 0, ErrNilIO
	}
	s := encode(v, newOptions(opts))
	defer s.Release()
	return s.WriteTo(w)
}

// encode walks v into the structure section, then assembles the string and
// header sections in front of it.
func encode(v Value, o *options) *ByteSink {
	e := &encoder{out: NewByteSink(o.chunkSize), opts: o}
	defer e.out.Release()

	tag, nt := tagOf(v)
	pk := packKind(tag, nt)
	e.out.WriteU8(pk)
	e.writeValue(pk, v)

	table := e.strs.finalize()
	final := NewByteSink(o.chunkSize)
	table.writeTo(final)
	stringBytes := final.Len()
	e.headers.writeTo(final)
	headerBytes := final.Len() - stringBytes
	final.WriteSink(e.out)

	if o.logger.Enabled(context.Background(), slog.LevelDebug) {
		o.logger.Debug("packjson: encoded",
			slog.Int("strings", len(table.defs)),
			slog.Int("string_refs", len(table.refs)),
			slog.Int("string_bytes", stringBytes),
			slog.Int("headers", e.headers.count),
			slog.Int("header_refs", len(e.headers.refs)),
			slog.Int("header_bytes", headerBytes),
			slog.Int("structure_bytes", e.out.Len()),
			slog.Int("total_bytes", final.Len()),
		)
	}
	if o.stats != nil {
		o.stats.Encodes.Inc()
		o.stats.BytesOut.Add(int64(final.Len()))
	}
	return final
}

// writeValue writes the payload of v, whose packed kind is already known to
// the reader.
func (e *encoder) writeValue(pk uint8, v Value) {
	tag, nt, _ := unpackKind(pk)
	switch tag {
	case tagString:
		e.strs.ref(v.str)
	case tagNumber:
		e.out.writeRaw(nt, int64(v.num), v.num)
	case tagArray:
		e.writeArray(v.elems)
	case tagObject:
		e.writeEntries(v.mems)
	}
}

// writeArray writes one array: a header reference, the length, the element
// type index when more than one tag is present, then the payload of each
// kind in tag order.
func (e *encoder) writeArray(elems []Value) {
	n := len(elems)
	tags := make([]uint8, n)
	var counts [tagCount]int
	var h arrayHeader
	for i, v := range elems {
		tags[i], _ = tagOf(v)
		counts[tags[i]]++
		h.types |= 1 << tags[i]
	}

	var nums []float64
	if counts[tagNumber] > 0 {
		nums = make([]float64, 0, counts[tagNumber])
		for i, v := range elems {
			if tags[i] == tagNumber {
				nums = append(nums, v.num)
			}
		}
	}
	var subs, objs []Value
	for i, v := range elems {
		switch tags[i] {
		case tagArray:
			subs = append(subs, v)
		case tagObject:
			objs = append(objs, v)
		}
	}

	flatten := flattenable(subs)
	if len(objs) > 0 || flatten || h.types&^(1<<tagUndefined) == 0 {
		h.flagMode = true
		if flatten {
			h.flags |= flagFlatten
		}
		if counts[tagNull] > 0 {
			h.flags |= flagNulls
		}
	} else {
		h.dominant = tagNull
		for t := tagNull + 1; t < tagCount; t++ {
			if counts[t] > counts[h.dominant] {
				h.dominant = t
			}
		}
	}

	var plan numPlan
	if len(nums) > 0 {
		plan = planNumbers(nums)
		h.num = plan.enc
		e.noteNumbers(&plan, len(nums))
	}

	var cols *columnPlan
	switch {
	case len(objs) > 1:
		cols = planColumns(objs)
		if cols.any() {
			h.flags |= flagColumns
		}
		if cols.inline {
			h.flags |= flagInline
		}
		e.noteColumns(cols, len(objs))
	case len(objs) == 1 && len(objs[0].mems) > 0:
		h.flags |= flagInline
	}

	e.headers.ref(h)
	e.out.WriteVLQ(uint64(n))
	if k := popcount(h.types); k > 1 {
		idx := make([]uint8, n)
		for i, t := range tags {
			idx[i] = uint8(rank(h.types, int(t)))
		}
		e.out.WriteBits(idx, bitsFor(k))
	}

	for i, v := range elems {
		if tags[i] == tagString {
			e.strs.ref(v.str)
		}
	}
	if len(nums) > 0 {
		e.out.writeNumPayload(&plan)
	}
	if flatten {
		lengths := make([]float64, len(subs))
		var flat []float64
		for i, sub := range subs {
			lengths[i] = float64(len(sub.elems))
			for _, x := range sub.elems {
				flat = append(flat, x.num)
			}
		}
		lp := e.out.writeNumbers(lengths)
		e.noteNumbers(&lp, len(lengths))
		fp := e.out.writeNumbers(flat)
		e.noteNumbers(&fp, len(flat))
	} else {
		for _, sub := range subs {
			e.writeArray(sub.elems)
		}
	}
	if len(objs) > 0 {
		e.writeObjects(h.flags, objs, cols)
	}
}

// flattenable reports whether subs can be written as one lengths array plus
// one concatenated numeric array: at least two sub-arrays holding only numbers.
func flattenable(subs []Value) bool {
	if len(subs) < 2 {
		return false
	}
	for _, sub := range subs {
		for _, x := range sub.elems {
			if tag, _ := tagOf(x); tag != tagNumber {
				return false
			}
		}
	}
	return true
}

// writeObjects writes the objects of an array: inline entry lists first,
// then the column block.
func (e *encoder) writeObjects(flags uint8, objs []Value, cols *columnPlan) {
	if flags&flagInline != 0 {
		for _, o := range objs {
			if cols == nil {
				e.writeEntries(o.mems)
				continue
			}
			e.writeEntries(cols.inlineMembers(o))
		}
	}
	if flags&flagColumns == 0 {
		return
	}
	e.out.WriteVLQ(uint64(len(cols.keys)))
	marks := make([]uint8, len(cols.keys))
	for k, c := range cols.columns {
		marks[k] = uint8(b2i(c))
	}
	e.out.WriteBits(marks, 1)
	for _, key := range cols.keys {
		e.strs.ref(key)
	}
	for k, c := range cols.columns {
		if c {
			e.writeArray(cols.values[k])
		}
	}
}

func (e *encoder) noteNumbers(p *numPlan, n int) {
	if e.opts.stats != nil {
		e.opts.stats.recordNumeric(p.enc.String())
	}
	if e.opts.logger.Enabled(context.Background(), slog.LevelDebug) {
		e.opts.logger.Debug("packjson: numeric run",
			slog.Int("count", n),
			slog.String("method", p.enc.String()),
			slog.Int("bytes", p.cost),
		)
	}
}

func (e *encoder) noteColumns(p *columnPlan, objects int) {
	kept := 0
	for _, c := range p.columns {
		kept += b2i(c)
	}
	if e.opts.stats != nil {
		e.opts.stats.ColumnsKept.Add(int64(kept))
		e.opts.stats.ColumnsDropped.Add(int64(len(p.columns) - kept))
	}
	if e.opts.logger.Enabled(context.Background(), slog.LevelDebug) {
		e.opts.logger.Debug("packjson: columnized objects",
			slog.Int("objects", objects),
			slog.Int("keys", len(p.keys)),
			slog.Int("columns", kept),
			slog.Bool("ordered", p.ordered),
		)
	}
}
