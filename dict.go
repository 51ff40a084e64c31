package packjson

import (
	"cmp"
	"fmt"
	"strings"

	"golang.org/x/exp/slices"
)

// minShared is the shortest prefix or suffix worth sharing with the
// preceding table entry.
const minShared = 3

// Reference index ranges that fit a 1-byte and a 2-byte VLQ.
var refBuckets = [...]int{vlqMax1 + 1, vlqMax2 + 1}

// stringDict collects every string of a document during the encode walk.
// Strings get ids in first-seen order; every use appends to refs.
type stringDict struct {
	ids    map[string]int
	strs   []string
	counts []int
	refs   []int
}

// ref records one use of str and returns its first-seen id.
func (d *stringDict) ref(str string) int {
	id, ok := d.ids[str]
	if !ok {
		if d.ids == nil {
			d.ids = make(map[string]int)
		}
		id = len(d.strs)
		d.ids[str] = id
		d.strs = append(d.strs, str)
		d.counts = append(d.counts, 0)
	}
	d.counts[id]++
	d.refs = append(d.refs, id)
	return id
}

// lookup returns the id of str without recording a use.
func (d *stringDict) lookup(str string) (int, bool) {
	id, ok := d.ids[str]
	return id, ok
}

// stringTable is a finalized dictionary, ready to be written.
type stringTable struct {
	order  []int // table index -> first-seen id
	text   []byte
	defs   []int // midLen<<2 | hasPrefix<<1 | hasSuffix
	shared []int // prefix and suffix lengths of flagged entries, in table order
	refs   []int // reference sequence, remapped to table indices
}

// finalize orders the table so that frequently used strings get the
// cheapest indices and neighbours share prefixes and suffixes.
func (d *stringDict) finalize() stringTable {
	n := len(d.strs)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ma, mb := d.counts[a] > 1, d.counts[b] > 1
		switch {
		case ma && !mb:
			return -1
		case mb && !ma:
			return 1
		case ma:
			return cmp.Compare(d.counts[b], d.counts[a])
		}
		return 0
	})

	multi := 0
	for _, c := range d.counts {
		if c > 1 {
			multi++
		}
	}
	lo := 0
	for _, hi := range []int{min(refBuckets[0], multi), min(refBuckets[1], multi), multi, n} {
		if hi > lo {
			bucket := order[lo:hi]
			slices.SortFunc(bucket, func(a, b int) int { return strings.Compare(d.strs[a], d.strs[b]) })
		}
		lo = max(lo, hi)
	}

	t := stringTable{order: order, defs: make([]int, n), refs: make([]int, len(d.refs))}
	remap := make([]int, n)
	prev := ""
	for i, id := range order {
		remap[id] = i
		s := d.strs[id]
		p := commonPrefix(s, prev)
		if p < minShared {
			p = 0
		}
		sfx := commonSuffix(s[p:], prev)
		if sfx < minShared {
			sfx = 0
		}
		mid := s[p : len(s)-sfx]
		t.defs[i] = len(mid) << 2
		if p > 0 {
			t.defs[i] |= 0b10
			t.shared = append(t.shared, p)
		}
		if sfx > 0 {
			t.defs[i] |= 0b01
			t.shared = append(t.shared, sfx)
		}
		t.text = append(t.text, mid...)
		prev = s
	}
	for i, id := range d.refs {
		t.refs[i] = remap[id]
	}
	return t
}

func commonPrefix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffix(a, b string) int {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

// writeTo writes the string section.
func (t *stringTable) writeTo(s *ByteSink) {
	s.WriteVLQ(uint64(len(t.text)))
	s.WriteBytes(t.text)
	s.writeUints(t.defs)
	s.writeUints(t.shared)
	s.writeUints(t.refs)
}

// readStringSection reads the string section and rebuilds every table entry
// from its predecessor.
func (c *ByteCursor) readStringSection() (strs []string, refs []int, err error) {
	size := c.ReadVLQ()
	text := c.ReadBytes(int(min(size, uint64(c.Remaining()+1))))
	if err := c.Err(); err != nil {
		return nil, nil, err
	}
	defs, err := c.readUints()
	if err != nil {
		return nil, nil, err
	}
	shared, err := c.readUints()
	if err != nil {
		return nil, nil, err
	}
	if refs, err = c.readUints(); err != nil {
		return nil, nil, err
	}

	strs = make([]string, len(defs))
	prev, off, k := "", 0, 0
	for i, def := range defs {
		mid := def >> 2
		var p, sfx int
		if def&0b10 != 0 {
			if k >= len(shared) {
				return nil, nil, fmt.Errorf("%w: string %d prefix length missing", ErrMalformed, i)
			}
			p = shared[k]
			k++
		}
		if def&0b01 != 0 {
			if k >= len(shared) {
				return nil, nil, fmt.Errorf("%w: string %d suffix length missing", ErrMalformed, i)
			}
			sfx = shared[k]
			k++
		}
		if p > len(prev) || sfx > len(prev) || mid > len(text)-off {
			return nil, nil, fmt.Errorf("%w: string %d exceeds its sources", ErrMalformed, i)
		}
		var b strings.Builder
		b.Grow(p + mid + sfx)
		b.WriteString(prev[:p])
		b.Write(text[off : off+mid])
		b.WriteString(prev[len(prev)-sfx:])
		strs[i] = b.String()
		prev = strs[i]
		off += mid
	}
	if off != len(text) || k != len(shared) {
		return nil, nil, fmt.Errorf("%w: string section has unused payload", ErrMalformed)
	}
	for _, r := range refs {
		if r >= len(strs) {
			return nil, nil, fmt.Errorf("%w: string %d of %d", ErrBadReference, r, len(strs))
		}
	}
	return strs, refs, nil
}
