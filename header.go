package packjson

import (
	"encoding/binary"
	"fmt"
)

// Array header byte:
//
//	bit 7     has undefined holes
//	bits 6-5  extra types: 00 none, 01 one or two packed tags, 10 1-byte bitmap, 11 2-byte bitmap
//	bit 4     low bits kind: 0 dominant tag, 1 flag bundle
//	bits 3-0  dominant tag, or flagColumns|flagInline|flagFlatten|flagNulls
const (
	hdrHoles    = 0x80
	hdrFlagMode = 0x10

	extraNone   = 0b00
	extraPacked = 0b01
	extraByte   = 0b10
	extraWide   = 0b11 // decode only: 8 tags always fit the 1-byte bitmap
)

const (
	flagColumns uint8 = 1 << iota // object columns follow the inline entries
	flagInline                    // objects carry inline entry lists
	flagFlatten                   // sub-arrays are written as lengths + concatenated numbers
	flagNulls                     // null elements are present
)

// arrayHeader is the shape of an array independent of its length.
type arrayHeader struct {
	types    uint8 // bitmap over element tags, undefined and null included
	flagMode bool
	dominant uint8 // dominant mode only
	flags    uint8 // flag mode only
	num      numEncoding
}

func (h arrayHeader) has(tag uint8) bool { return h.types&(1<<tag) != 0 }

// tuple renders h as the ints stored in the header-definition table:
// the header byte, the extra-type ints, then the numeric descriptor when
// numbers are present.
func (h arrayHeader) tuple() []uint64 {
	var hdr uint8
	if h.has(tagUndefined) {
		hdr |= hdrHoles
	}
	rest := h.types &^ (1 << tagUndefined)
	if h.flagMode {
		hdr |= hdrFlagMode | h.flags
		rest &^= 1 << tagNull
	} else {
		hdr |= h.dominant
		rest &^= 1 << h.dominant
	}

	out := make([]uint64, 1, 4)
	switch popcount(rest) {
	case 0:
	case 1, 2:
		var packed []uint8
		for t := range tagCount {
			if rest&(1<<t) != 0 {
				packed = append(packed, t)
			}
		}
		if len(packed) == 1 {
			packed = append(packed, packed[0])
		}
		hdr |= extraPacked << 5
		out = append(out, uint64(packed[0]|packed[1]<<4))
	default:
		hdr |= extraByte << 5
		out = append(out, uint64(rest))
	}
	out[0] = uint64(hdr)
	if h.has(tagNumber) {
		out = h.num.appendDescriptor(out)
	}
	return out
}

// parseHeader decodes one tuple from defs starting at pos and returns the
// position after it.
func parseHeader(defs []uint64, pos int) (arrayHeader, int, error) {
	var h arrayHeader
	next := func() (uint64, error) {
		if pos >= len(defs) {
			return 0, fmt.Errorf("%w: header definition cut short", ErrMalformed)
		}
		v := defs[pos]
		pos++
		return v, nil
	}

	v, err := next()
	if err != nil || v > 0xFF {
		return h, pos, fmt.Errorf("%w: array header %#x", ErrBadTag, v)
	}
	hdr := uint8(v)
	switch hdr >> 5 & 0b11 {
	case extraPacked:
		if v, err = next(); err != nil {
			return h, pos, err
		}
		a, b := uint8(v&0xF), uint8(v>>4)
		if a >= tagCount || b >= tagCount {
			return h, pos, fmt.Errorf("%w: packed extra types %#x", ErrBadTag, v)
		}
		h.types |= 1<<a | 1<<b
	case extraByte, extraWide:
		if v, err = next(); err != nil {
			return h, pos, err
		}
		if v>>tagCount != 0 {
			return h, pos, fmt.Errorf("%w: type bitmap %#x", ErrBadTag, v)
		}
		h.types |= uint8(v)
	}

	low := hdr & 0x0F
	if hdr&hdrFlagMode != 0 {
		h.flagMode = true
		h.flags = low
		if low&flagNulls != 0 {
			h.types |= 1 << tagNull
		}
	} else {
		if low == tagUndefined || low >= tagCount {
			return h, pos, fmt.Errorf("%w: dominant tag %d", ErrBadTag, low)
		}
		h.dominant = low
		h.types |= 1 << low
	}
	if hdr&hdrHoles != 0 {
		h.types |= 1 << tagUndefined
	}

	if h.has(tagNumber) {
		if v, err = next(); err != nil {
			return h, pos, err
		}
		if h.num, err = parseDescriptor(v); err != nil {
			return h, pos, err
		}
		if h.num.method == methodTyped {
			if v, err = next(); err != nil {
				return h, pos, err
			}
			h.num.subtypes = uint16(v)
		}
	}
	return h, pos, nil
}

// headerTable deduplicates array header tuples for one encode call.
type headerTable struct {
	index map[string]int
	defs  []int
	refs  []int
	count int
	key   []byte
}

// ref registers h if it is new and records a reference to it.
func (t *headerTable) ref(h arrayHeader) int {
	tuple := h.tuple()
	t.key = t.key[:0]
	for _, v := range tuple {
		t.key = binary.AppendUvarint(t.key, v)
	}
	id, ok := t.index[string(t.key)]
	if !ok {
		if t.index == nil {
			t.index = make(map[string]int)
		}
		id = t.count
		t.count++
		t.index[string(t.key)] = id
		for _, v := range tuple {
			t.defs = append(t.defs, int(v))
		}
	}
	t.refs = append(t.refs, id)
	return id
}

func (t *headerTable) writeTo(s *ByteSink) {
	s.writeUints(t.defs)
	s.writeUints(t.refs)
}

// readHeaderSection reads the header-definition section.
func (c *ByteCursor) readHeaderSection() (headers []arrayHeader, refs []int, err error) {
	defs, err := c.readUints()
	if err != nil {
		return nil, nil, err
	}
	if refs, err = c.readUints(); err != nil {
		return nil, nil, err
	}
	tuples := make([]uint64, len(defs))
	for i, v := range defs {
		tuples[i] = uint64(v)
	}
	for pos := 0; pos < len(tuples); {
		var h arrayHeader
		if h, pos, err = parseHeader(tuples, pos); err != nil {
			return nil, nil, err
		}
		headers = append(headers, h)
	}
	for _, r := range refs {
		if r >= len(headers) {
			return nil, nil, fmt.Errorf("%w: array header %d of %d", ErrBadReference, r, len(headers))
		}
	}
	return headers, refs, nil
}
