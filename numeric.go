package packjson

import (
	"fmt"
	"math"
)

// numMethod is the byte-level layout of a numeric run.
type numMethod uint8

const (
	// methodTyped writes a bit-packed subtype index per element, then each
	// value in its own narrowest raw form.
	methodTyped numMethod = iota
	// methodVarint writes each value as a UintVar, or IntVar when signed.
	methodVarint
	// methodNibble packs 4 bits per element: 0-7 inline, bit 3 escapes the
	// rest of the value into a trailing UintVar stream.
	methodNibble
	// methodProgression writes the first value and a constant step.
	methodProgression

	methodCount
)

// lowering transforms an integer run before one of the methods encodes it.
type lowering uint8

const (
	lowerNone lowering = iota
	// lowerDelta encodes the first value followed by consecutive differences.
	lowerDelta
	// lowerMin writes the minimum, then every value minus that minimum.
	lowerMin

	loweringCount
)

var (
	methodNames   = [methodCount]string{"typed", "varint", "nibble", "progression"}
	loweringNames = [loweringCount]string{"", "delta+", "min+"}
)

// numEncoding identifies how a numeric run was written. It is what the
// descriptor carries; payload values such as the progression start are not
// part of it.
type numEncoding struct {
	method   numMethod
	lower    lowering
	signed   bool
	subtypes uint16 // methodTyped only: bitmap of NumTypes present
}

func (e numEncoding) String() string {
	return loweringNames[e.lower] + methodNames[e.method]
}

func (e numEncoding) descriptor() uint64 {
	return uint64(e.method) | uint64(e.lower)<<3 | uint64(b2i(e.signed))<<5
}

// appendDescriptor appends the descriptor ints, as carried in array header tuples.
func (e numEncoding) appendDescriptor(dst []uint64) []uint64 {
	dst = append(dst, e.descriptor())
	if e.method == methodTyped {
		dst = append(dst, uint64(e.subtypes))
	}
	return dst
}

// descriptorLen returns the VLQ byte length of the descriptor.
func (e numEncoding) descriptorLen() int {
	n := vlqLen(e.descriptor())
	if e.method == methodTyped {
		n += vlqLen(uint64(e.subtypes))
	}
	return n
}

func parseDescriptor(d uint64) (numEncoding, error) {
	e := numEncoding{
		method: numMethod(d & 0b111),
		lower:  lowering(d >> 3 & 0b11),
		signed: d>>5&1 != 0,
	}
	if e.method >= methodCount || e.lower >= loweringCount || d>>6 != 0 {
		return e, fmt.Errorf("%w: numeric descriptor %#x", ErrBadTag, d)
	}
	return e, nil
}

// numRun is a numeric sequence prepared for cost estimation.
type numRun struct {
	vals  []float64 // input values; nil for lowered runs
	ints  []int64   // integer view, valid where types[i] is an integer subtype
	types []NumType
	exact bool // every element is an exact integer
}

func newRun(vals []float64) *numRun {
	r := &numRun{
		vals:  vals,
		ints:  make([]int64, len(vals)),
		types: make([]NumType, len(vals)),
		exact: true,
	}
	for i, f := range vals {
		if isExactInt(f) {
			r.ints[i] = int64(f)
			r.types[i] = classifyInt(r.ints[i])
			continue
		}
		r.exact = false
		r.types[i] = classifyFloat(f)
	}
	return r
}

func newIntRun(ints []int64) *numRun {
	r := &numRun{ints: ints, types: make([]NumType, len(ints)), exact: true}
	for i, v := range ints {
		r.types[i] = classifyInt(v)
	}
	return r
}

func (r *numRun) float(i int) float64 {
	if r.vals != nil {
		return r.vals[i]
	}
	return float64(r.ints[i])
}

// numPlan is the cheapest encoding found for a run.
type numPlan struct {
	enc  numEncoding
	cost int // payload plus descriptor bytes
	run  *numRun
	base int64 // lowerMin only
}

func (p *numPlan) offer(enc numEncoding, cost int, run *numRun, base int64) {
	if p.run == nil || cost < p.cost {
		*p = numPlan{enc: enc, cost: cost, run: run, base: base}
	}
}

// planNumbers estimates every candidate encoding of vals and returns the
// smallest. Candidates are enumerated in a fixed order and a later candidate
// must be strictly smaller to win, which keeps output deterministic.
func planNumbers(vals []float64) numPlan {
	var best numPlan
	direct := newRun(vals)
	direct.estimate(lowerNone, 0, 0, &best)
	if !direct.exact || len(vals) < 2 {
		return best
	}

	deltas := make([]int64, len(vals))
	deltas[0] = direct.ints[0]
	lo := direct.ints[0]
	for i := 1; i < len(vals); i++ {
		deltas[i] = direct.ints[i] - direct.ints[i-1]
		lo = min(lo, direct.ints[i])
	}
	newIntRun(deltas).estimate(lowerDelta, 0, 0, &best)

	shifted := make([]int64, len(vals))
	for i, v := range direct.ints {
		shifted[i] = v - lo
	}
	newIntRun(shifted).estimate(lowerMin, lo, intVarLen(lo), &best)
	return best
}

// estimate offers each method applicable to r. extra is the byte cost the
// lowering itself adds.
func (r *numRun) estimate(lower lowering, base int64, extra int, best *numPlan) {
	n := len(r.types)

	var subtypes uint16
	raw := 0
	for i, t := range r.types {
		subtypes |= 1 << t
		raw += rawSize(t, r.ints[i])
	}
	typed := numEncoding{method: methodTyped, lower: lower, subtypes: subtypes}
	best.offer(typed, extra+typed.descriptorLen()+bitsLen(n, bitsFor(popcount(subtypes)))+raw, r, base)

	if !r.exact {
		return
	}

	signed := false
	for _, v := range r.ints {
		if v < 0 {
			signed = true
			break
		}
	}
	varint, nibble := 0, bitsLen(n, 4)
	for _, v := range r.ints {
		u := uint64(v)
		if signed {
			u = zigzag(v)
		}
		varint += uintVarLen(u)
		if u >= 8 {
			nibble += uintVarLen(u>>3 - 1)
		}
	}
	enc := numEncoding{method: methodVarint, lower: lower, signed: signed}
	best.offer(enc, extra+enc.descriptorLen()+varint, r, base)
	enc.method = methodNibble
	best.offer(enc, extra+enc.descriptorLen()+nibble, r, base)

	if step, ok := r.progression(); ok {
		enc = numEncoding{method: methodProgression, lower: lower}
		best.offer(enc, extra+enc.descriptorLen()+intVarLen(r.ints[0])+intVarLen(step), r, base)
	}
}

// progression reports the constant step of r, if every consecutive
// difference is the same.
func (r *numRun) progression() (int64, bool) {
	if len(r.ints) == 0 {
		return 0, false
	}
	if len(r.ints) == 1 {
		return 0, true
	}
	step := r.ints[1] - r.ints[0]
	for i := 2; i < len(r.ints); i++ {
		if r.ints[i]-r.ints[i-1] != step {
			return 0, false
		}
	}
	return step, true
}

// writeNumPayload writes the plan's payload. The descriptor and element
// count are written by the caller.
func (s *ByteSink) writeNumPayload(p *numPlan) {
	if p.enc.lower == lowerMin {
		s.WriteIntVar(p.base)
	}
	r := p.run
	switch p.enc.method {
	case methodTyped:
		idx := make([]uint8, len(r.types))
		for i, t := range r.types {
			idx[i] = uint8(rank(p.enc.subtypes, int(t)))
		}
		s.WriteBits(idx, bitsFor(popcount(p.enc.subtypes)))
		for i, t := range r.types {
			var f float64
			if t.IsFloat() {
				f = r.vals[i]
			}
			s.writeRaw(t, r.ints[i], f)
		}
	case methodVarint:
		for _, v := range r.ints {
			if p.enc.signed {
				s.WriteIntVar(v)
			} else {
				s.WriteUintVar(uint64(v))
			}
		}
	case methodNibble:
		nibs := make([]uint8, len(r.ints))
		for i, v := range r.ints {
			u := uint64(v)
			if p.enc.signed {
				u = zigzag(v)
			}
			if u < 8 {
				nibs[i] = uint8(u)
			} else {
				nibs[i] = 8 | uint8(u&7)
			}
		}
		s.WriteBits(nibs, 4)
		for i, v := range r.ints {
			if nibs[i]&8 == 0 {
				continue
			}
			u := uint64(v)
			if p.enc.signed {
				u = zigzag(v)
			}
			s.WriteUintVar(u>>3 - 1)
		}
	case methodProgression:
		step, _ := r.progression()
		s.WriteIntVar(r.ints[0])
		s.WriteIntVar(step)
	}
}

// readNumPayload reads n numbers written under e.
func (c *ByteCursor) readNumPayload(e numEncoding, n int) ([]float64, error) {
	var base int64
	if e.lower == lowerMin {
		base = c.ReadIntVar()
	}
	if e.method == methodTyped && e.lower == lowerNone {
		return c.readTyped(e.subtypes, n)
	}

	var ints []int64
	switch e.method {
	case methodTyped:
		var err error
		if ints, err = c.readTypedInts(e.subtypes, n); err != nil {
			return nil, err
		}
	case methodVarint:
		ints = make([]int64, n)
		for i := range ints {
			if e.signed {
				ints[i] = c.ReadIntVar()
			} else {
				ints[i] = int64(c.ReadUintVar())
			}
		}
	case methodNibble:
		ints = make([]int64, n)
		nibs := c.ReadBits(n, 4)
		if nibs == nil && n > 0 {
			return nil, c.Err()
		}
		for i, nib := range nibs {
			u := uint64(nib)
			if nib&8 != 0 {
				u = (c.ReadUintVar()+1)<<3 | uint64(nib&7)
			}
			if e.signed {
				ints[i] = unzigzag(u)
			} else {
				ints[i] = int64(u)
			}
		}
	case methodProgression:
		ints = make([]int64, n)
		first, step := c.ReadIntVar(), c.ReadIntVar()
		for i := range ints {
			ints[i] = first + int64(i)*step
		}
	}
	if err := c.Err(); err != nil {
		return nil, err
	}

	switch e.lower {
	case lowerDelta:
		for i := 1; i < n; i++ {
			ints[i] += ints[i-1]
		}
	case lowerMin:
		for i := range ints {
			ints[i] += base
		}
	}
	out := make([]float64, n)
	for i, v := range ints {
		out[i] = float64(v)
	}
	return out, nil
}

// typedIndex reads the per-element subtype index of a typed run and resolves
// it to subtypes.
func (c *ByteCursor) typedIndex(subtypes uint16, n int) ([]NumType, error) {
	k := popcount(subtypes)
	if k == 0 && n > 0 || subtypes>>numTypeCount != 0 {
		return nil, fmt.Errorf("%w: subtype bitmap %#x for %d values", ErrBadTag, subtypes, n)
	}
	var order [numTypeCount]NumType
	for i, j := 0, 0; i < int(numTypeCount); i++ {
		if subtypes&(1<<i) != 0 {
			order[j] = NumType(i)
			j++
		}
	}
	idx := c.ReadBits(n, bitsFor(k))
	if idx == nil && n > 0 {
		return nil, c.Err()
	}
	types := make([]NumType, n)
	for i, x := range idx {
		if int(x) >= k {
			return nil, fmt.Errorf("%w: subtype index %d of %d", ErrBadReference, x, k)
		}
		types[i] = order[x]
	}
	return types, nil
}

// readTyped reads a typed run of any subtypes.
func (c *ByteCursor) readTyped(subtypes uint16, n int) ([]float64, error) {
	types, err := c.typedIndex(subtypes, n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, t := range types {
		out[i] = c.readRaw(t)
	}
	return out, c.Err()
}

// readTypedInts reads a typed run of a lowered series, which holds integer
// subtypes only.
func (c *ByteCursor) readTypedInts(subtypes uint16, n int) ([]int64, error) {
	if subtypes&(1<<Float32|1<<Float64) != 0 {
		return nil, fmt.Errorf("%w: float subtype in a lowered run", ErrBadTag)
	}
	types, err := c.typedIndex(subtypes, n)
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i, t := range types {
		out[i] = c.readRawInt(t)
	}
	return out, c.Err()
}

// writeNumbers writes a standalone numeric array: count, descriptor, payload.
func (s *ByteSink) writeNumbers(vals []float64) numPlan {
	s.WriteVLQ(uint64(len(vals)))
	if len(vals) == 0 {
		return numPlan{}
	}
	p := planNumbers(vals)
	s.WriteVLQ(p.enc.descriptor())
	if p.enc.method == methodTyped {
		s.WriteVLQ(uint64(p.enc.subtypes))
	}
	s.writeNumPayload(&p)
	return p
}

// readNumbers reads an array written by writeNumbers.
func (c *ByteCursor) readNumbers() ([]float64, error) {
	n := c.ReadVLQ()
	if err := c.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if n > math.MaxInt32 {
		return nil, fmt.Errorf("%w: numeric array of %d elements", ErrMalformed, n)
	}
	d := c.ReadVLQ()
	if err := c.Err(); err != nil {
		return nil, err
	}
	e, err := parseDescriptor(d)
	if err != nil {
		return nil, err
	}
	if e.method == methodTyped {
		e.subtypes = uint16(c.ReadVLQ())
		if err := c.Err(); err != nil {
			return nil, err
		}
	}
	return c.readNumPayload(e, int(n))
}

// writeUints writes non-negative integers through writeNumbers.
func (s *ByteSink) writeUints(vals []int) {
	f := make([]float64, len(vals))
	for i, v := range vals {
		f[i] = float64(v)
	}
	s.writeNumbers(f)
}

// maxUint is the largest value readUints accepts: exact in a float64 and
// within int.
const maxUint = min(1<<53, math.MaxInt)

// readUints reads an array written by writeUints.
func (c *ByteCursor) readUints() ([]int, error) {
	f, err := c.readNumbers()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(f))
	for i, v := range f {
		if v < 0 || v != math.Trunc(v) || v > maxUint {
			return nil, fmt.Errorf("%w: %v is not an index", ErrMalformed, v)
		}
		out[i] = int(v)
	}
	return out, nil
}
